package pastatus

import (
	"strings"

	"github.com/radpa/radpa/internal/domain/order"
)

// Step statuses.
const (
	StepCompleted   = "Completed"
	StepInProgress  = "In Progress"
	StepBlocked     = "Blocked"
	StepSkipped     = "Skipped"
	StepPending     = "Pending"
	StepNotRequired = "Not Required"
	StepFailed      = "Failed"
	StepActive      = "Active"
)

// Step ids in workflow order.
const (
	StepOrderIntake             = "order-intake"
	StepEligibilityVerification = "eligibility-verification"
	StepPayerPolicy             = "payer-policy"
	StepAuthCheck               = "auth-check"
	StepClinicalValidation      = "clinical-validation"
	StepSubmissionPrep          = "submission-prep"
	StepAuthSubmission          = "auth-submission"
	StepMonitoring              = "monitoring"
)

// Step is one stage of the eight-step authorization workflow.
type Step struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Status       string   `json:"status"`
	Description  string   `json:"description"`
	Details      []string `json:"details"`
	LinkToIssues bool     `json:"linkToIssues,omitempty"`
}

// StepStatus is the id/status projection of a Step.
type StepStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

var skippedDetails = []string{"Step skipped because eligibility verification failed"}

// flags holds the predicates every step rule reads.
type flags struct {
	nar               bool
	eligibilityFailed bool
	authOnFile        bool
	clinicalBlocked   bool
	paOrdered         bool
	paSubmitted       bool
	needsPreparation  bool
	automation        string
}

func deriveFlags(o *order.Order) flags {
	s := o.PAStatus.AuthStatus
	f := flags{
		nar:               s == order.StatusNAR,
		eligibilityFailed: s == order.StatusEligibilityFailed,
		authOnFile:        s == order.StatusAuthOnFile,
		clinicalBlocked:   s == order.StatusQuery,
		paOrdered:         (s == order.StatusPAOrdered || s == order.StatusAuthRequired) && !o.PAStatus.PAFiled,
		paSubmitted:       IsPAFiled(o),
		automation:        o.PAStatus.AutomationStatus,
	}
	f.needsPreparation = o.EligibilityVerification.PriorAuthRequired &&
		!f.authOnFile && !f.clinicalBlocked && !f.eligibilityFailed
	return f
}

// WorkflowSteps computes the eight workflow steps from scratch.
func WorkflowSteps(o *order.Order) []Step {
	f := deriveFlags(o)
	return []Step{
		orderIntakeStep(o),
		eligibilityStep(o, f),
		payerPolicyStep(o, f),
		authCheckStep(f),
		clinicalValidationStep(o, f),
		submissionPrepStep(f),
		authSubmissionStep(f),
		monitoringStep(f),
	}
}

func StepStatuses(steps []Step) []StepStatus {
	out := make([]StepStatus, len(steps))
	for i, s := range steps {
		out[i] = StepStatus{ID: s.ID, Status: s.Status}
	}
	return out
}

func orderIntakeStep(o *order.Order) Step {
	return Step{
		ID:          StepOrderIntake,
		Name:        "Order Intake & Context Establishment",
		Status:      StepCompleted,
		Description: "Radiology order received and validated",
		Details: []string{
			"Imaging type identified: " + o.Order.ImagingType,
			"CPT code(s) extracted: " + strings.Join(o.Order.CPTCodes, ", "),
			"Date of service captured: " + USDate(o.Order.DateOfService),
			"Ordering provider identified: " + o.Order.OrderingProvider.Name,
		},
	}
}

func eligibilityStep(o *order.Order, f flags) Step {
	st := Step{ID: StepEligibilityVerification, Name: "Eligibility Verification"}
	if f.eligibilityFailed {
		st.Status = StepFailed
		st.Description = "Patient eligibility verification failed"
		st.Details = []string{
			"Eligibility could not be verified with the payer",
			"Downstream authorization steps were not executed",
		}
		return st
	}
	coverage := "Not Covered"
	if o.EligibilityVerification.Covered {
		coverage = "Covered"
	}
	st.Status = StepCompleted
	st.Description = "Patient eligibility verified for the requested service"
	st.Details = []string{
		"Plan active for date of service: " + o.Payer.Status,
		"Member matched successfully: " + o.Patient.MemberID,
		"Provider network status confirmed: " + o.Order.OrderingProvider.NetworkStatus,
		"Service coverage verified: " + coverage,
	}
	return st
}

func payerPolicyStep(o *order.Order, f flags) Step {
	st := Step{ID: StepPayerPolicy, Name: "Payer Policy Evaluation"}
	if f.eligibilityFailed {
		st.Status = StepSkipped
		st.Description = "Payer policy evaluation skipped due to eligibility failure"
		st.Details = skippedDetails
		return st
	}
	ev := o.EligibilityVerification
	st.Status = StepCompleted
	st.Description = "Payer policy evaluated for requested CPT code(s)"
	st.Details = []string{
		"Prior authorization requirement determined: " + pick(ev.PriorAuthRequired, "Required", "Not Required"),
		"Service coverage confirmed: " + pick(ev.Covered, "Yes", "No"),
		"Referral requirement checked: " + pick(ev.ReferralRequired, "Required", "Not Required"),
	}
	return st
}

func authCheckStep(f flags) Step {
	st := Step{ID: StepAuthCheck, Name: "Existing Authorization Check"}
	switch {
	case f.eligibilityFailed:
		st.Status = StepSkipped
		st.Description = "Authorization check skipped due to eligibility failure"
		st.Details = skippedDetails
	case f.nar:
		st.Status = StepNotRequired
		st.Description = "Authorization check not applicable for NAR cases"
		st.Details = []string{"Step not required because prior authorization not required"}
	default:
		st.Status = StepCompleted
		st.Description = "Checked for existing authorization with payer"
		if f.authOnFile {
			st.Details = []string{
				"Existing authorization verified with payer",
				"Valid authorization found on file",
				"No additional authorization submission required",
			}
		} else {
			st.Details = []string{
				"No existing authorization found for this service",
				"Proceeding with authorization validation",
			}
		}
	}
	return st
}

func clinicalValidationStep(o *order.Order, f flags) Step {
	st := Step{ID: StepClinicalValidation, Name: "Clinical Readiness Validation", LinkToIssues: f.clinicalBlocked}
	switch {
	case f.eligibilityFailed:
		st.Status = StepSkipped
		st.Description = "Clinical validation skipped"
		st.Details = skippedDetails
	case f.authOnFile:
		st.Status = StepNotRequired
		st.Description = "Clinical validation not required"
		st.Details = []string{"Step not required because valid authorization already on file"}
	case f.nar:
		st.Status = StepNotRequired
		st.Description = "Clinical validation not required"
		st.Details = []string{"Step not required because prior authorization not required"}
	case f.clinicalBlocked:
		issue := o.PAStatus.IssueType
		if issue == "" {
			issue = o.PAStatus.AuthStatus
		}
		missing := "Documentation gap identified"
		if docs := MissingDocuments(o); len(docs) > 0 {
			names := make([]string, len(docs))
			for i, d := range docs {
				names[i] = d.Name
			}
			missing = "Missing documents: " + strings.Join(names, ", ")
		}
		st.Status = StepBlocked
		st.Description = "Clinical documentation validation blocked"
		st.Details = []string{
			"Issue detected: " + issue,
			missing,
			"See Issues tab for detailed resolution steps",
		}
	default:
		st.Status = StepCompleted
		st.Description = "Clinical documentation validated for authorization submission"
		st.Details = []string{
			"Clinical notes availability verified",
			"Supporting imaging documentation validated",
			"Diagnosis code alignment confirmed",
			"All required documentation present",
		}
	}
	return st
}

func submissionPrepStep(f flags) Step {
	st := Step{ID: StepSubmissionPrep, Name: "Authorization Submission Preparation"}
	switch {
	case f.eligibilityFailed:
		st.Status = StepSkipped
		st.Description = "Submission preparation skipped due to eligibility failure"
		st.Details = skippedDetails
	case f.nar:
		st.Status = StepNotRequired
		st.Description = "Authorization submission not required"
		st.Details = []string{"Payer policy indicates no authorization required for this service"}
	case f.authOnFile:
		st.Status = StepNotRequired
		st.Description = "Submission preparation not required - authorization already on file"
		st.Details = []string{"Valid authorization already exists with payer"}
	case f.clinicalBlocked:
		st.Status = StepBlocked
		st.Description = "Submission preparation blocked pending clinical validation"
		st.Details = []string{"Submission cannot be prepared until clinical documentation is complete"}
	case f.paSubmitted, f.automation == order.AutomationInProgress, f.paOrdered:
		st.Status = StepCompleted
		st.Description = "Authorization request prepared for submission"
		st.Details = []string{
			"Required clinical documentation compiled",
			"Supporting imaging reports assembled",
			"Authorization request payload prepared",
			"Payer-specific submission requirements applied",
		}
	case f.needsPreparation:
		st.Status = StepInProgress
		st.Description = "Authorization request prepared for submission"
		st.Details = []string{
			"Gathering required clinical documentation",
			"Compiling supporting imaging reports",
			"Preparing payer-specific submission requirements",
		}
	default:
		st.Status = StepNotRequired
		st.Description = "Authorization request prepared for submission"
		st.Details = []string{"Submission preparation not applicable for this case"}
	}
	return st
}

func authSubmissionStep(f flags) Step {
	st := Step{ID: StepAuthSubmission, Name: "Authorization Submission"}
	switch {
	case f.eligibilityFailed:
		st.Status = StepSkipped
		st.Description = "Authorization submission skipped due to eligibility failure"
		st.Details = skippedDetails
	case f.nar:
		st.Status = StepNotRequired
		st.Description = "Authorization submission not required"
		st.Details = []string{"No authorization required per payer policy"}
	case f.authOnFile:
		st.Status = StepNotRequired
		st.Description = "Authorization submission not required"
		st.Details = []string{"Valid authorization already exists - no submission needed"}
	case f.clinicalBlocked:
		st.Status = StepBlocked
		st.Description = "Authorization submission blocked pending documentation"
		st.Details = []string{"Submission blocked until clinical documentation requirements are met"}
	case f.paSubmitted:
		st.Status = StepInProgress
		st.Description = "Authorization submitted to payer"
		st.Details = []string{
			"Authorization request transmitted to payer",
			"Submission method applied per payer requirements",
			"Awaiting payer determination",
		}
	case f.paOrdered:
		st.Status = StepPending
		st.Description = "Ready to submit authorization to payer"
		st.Details = []string{
			"All required documentation has been gathered",
			"Authorization request is ready for submission",
			"System will automatically submit to payer portal",
			"Submission can be initiated immediately",
		}
	case f.automation == order.AutomationCompleted:
		st.Status = StepNotRequired
		st.Description = "Authorization submission not required for this case"
		st.Details = []string{"Authorization not required for this service"}
	default:
		st.Status = StepPending
		st.Description = "Authorization submission pending"
		st.Details = []string{"Authorization submission will proceed once preparation is complete"}
	}
	return st
}

// monitoringStep is Skipped, not Blocked, on eligibility failure so every
// step after the failed one reads as skipped.
func monitoringStep(f flags) Step {
	st := Step{ID: StepMonitoring, Name: "Post-Submission Monitoring"}
	switch {
	case f.eligibilityFailed:
		st.Status = StepSkipped
		st.Description = "Monitoring skipped due to eligibility failure"
		st.Details = skippedDetails
	case f.paSubmitted:
		st.Status = StepActive
		st.Description = "Monitoring authorization status for payer response"
		st.Details = []string{
			"Awaiting payer determination",
			"System will automatically check for updates",
			"Next action will be triggered based on payer response",
		}
	case f.nar:
		st.Status = StepNotRequired
		st.Description = "Monitoring not required"
		st.Details = []string{"No authorization required - monitoring not applicable"}
	case f.authOnFile:
		st.Status = StepNotRequired
		st.Description = "Monitoring not required"
		st.Details = []string{"Authorization already verified - monitoring not required"}
	case f.automation == order.AutomationCompleted:
		st.Status = StepNotRequired
		st.Description = "Monitoring not required"
		st.Details = []string{"Workflow completed - no monitoring required"}
	case f.clinicalBlocked:
		st.Status = StepBlocked
		st.Description = "Monitoring blocked pending authorization submission"
		st.Details = []string{"Monitoring cannot begin until authorization is submitted"}
	default:
		st.Status = StepPending
		st.Description = "Monitoring will begin after submission"
		st.Details = []string{"Monitoring will begin once authorization is submitted"}
	}
	return st
}

// VisibleSteps returns the steps shown without expanding. Orders numbered
// 1 to 4 show the first four steps unless showAdditional is set; later
// orders always show all of them.
func VisibleSteps(o *order.Order, steps []Step, showAdditional bool) []Step {
	if AutoExpand(o) || showAdditional || len(steps) <= 4 {
		return steps
	}
	return steps[:4]
}

// AutoExpand reports whether the workflow opens fully expanded.
func AutoExpand(o *order.Order) bool {
	return order.Number(o.OrderID) >= 5
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}
