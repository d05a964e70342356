package pastatus

import (
	"strings"

	"github.com/radpa/radpa/internal/domain/order"
)

// SeverityBlocking is the only severity the issue catalogue produces.
const SeverityBlocking = "Blocking"

// IssueDetails is the Issues page card.
type IssueDetails struct {
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Severity    string   `json:"severity"`
	Impact      string   `json:"impact"`
	Explanation string   `json:"explanation"`
	Resolution  []string `json:"resolution"`
}

// Issue returns the blocking issue for o, or nil when there is none. The
// issue type is the order's issueType, falling back to its authStatus.
func Issue(o *order.Order) *IssueDetails {
	ps := o.PAStatus
	issueType := ps.IssueType
	if issueType == "" {
		issueType = ps.AuthStatus
	}

	d := &IssueDetails{Type: issueType, Severity: SeverityBlocking}
	switch issueType {
	case order.StatusClinicalMissing:
		d.Title = "Required Clinical Documentation Missing"
		d.Impact = "Authorization cannot be submitted"
		d.Explanation = "Required clinical documentation was not found in the patient record during the automated document retrieval process."
		d.Resolution = []string{
			"Upload the latest clinical notes from the ordering provider",
			"Ensure the documentation includes the medical necessity justification for the imaging study",
		}
	case order.StatusSupportingImagingMissing:
		var types []string
		for _, doc := range MissingDocuments(o) {
			types = append(types, doc.Type)
		}
		missing := strings.Join(types, ", ")
		if missing == "" {
			missing = "prior imaging reports"
		}
		d.Title = "Supporting Imaging Documentation Missing"
		d.Impact = "Authorization cannot be submitted"
		d.Explanation = "Supporting imaging studies required by payer policy were not found. Missing documents include: " + missing + "."
		d.Resolution = []string{
			"Upload relevant prior imaging reports (X-ray, Ultrasound, CT, or MRI)",
			"Verify that the imaging is relevant to the current clinical indication",
		}
	case order.StatusInvalidDxCode:
		d.Title = "Diagnosis Code Does Not Meet Requirements"
		d.Impact = "Authorization cannot be submitted"
		d.Explanation = "The diagnosis code provided does not meet payer medical necessity criteria for the requested imaging study."
		d.Resolution = []string{
			"Review and update the diagnosis code in the order to align with clinical documentation",
			"Ensure the diagnosis code matches the medical necessity for the imaging type",
		}
	case order.StatusEligibilityFailed:
		d.Title = "Patient Eligibility Verification Failed"
		d.Impact = "Authorization cannot be processed"
		d.Explanation = "Patient eligibility could not be verified with the payer. This may be due to inactive coverage, incorrect member information, or payer system unavailability."
		d.Resolution = []string{
			"Verify patient insurance information and member ID",
			"Contact the payer to confirm active coverage for the date of service",
		}
	default:
		if ps.AutomationStatus != order.AutomationBlocked && ps.AuthStatus != order.StatusQuery {
			return nil
		}
		d.Impact = "Authorization workflow cannot continue"
		if ps.IssueType != "" {
			d.Title = "Issue Detected: " + ps.IssueType
			d.Explanation = "The authorization process has been blocked due to: " + ps.IssueType +
				". This issue must be resolved before proceeding with the authorization submission."
		} else {
			d.Title = "Automation Workflow Blocked"
			d.Explanation = "The automated prior authorization workflow has been paused due to a blocking issue that requires manual review."
		}
		d.Resolution = []string{
			"Review the order details and documentation for completeness",
			"Upload or request any missing documentation needed for authorization",
		}
	}
	return d
}

var icdDescriptions = map[string]string{
	"C79.51":  "Secondary malignant neoplasm of bone (bone metastases)",
	"C90.00":  "Multiple myeloma, not having achieved remission",
	"D47.2":   "Monoclonal gammopathy of undetermined significance (MGUS)",
	"G43.909": "Migraine, unspecified, not intractable, without status migrainosus",
	"M81.0":   "Age-related osteoporosis without current pathological fracture",
	"Z79.83":  "Long term (current) use of bisphosphonates",
	"R07.9":   "Chest pain, unspecified",
}

// ICDDescription looks up an ICD-10 code's description.
func ICDDescription(code string) string {
	if d, ok := icdDescriptions[code]; ok {
		return d
	}
	return "Clinical description for " + code
}
