package pastatus

import (
	"testing"

	"github.com/radpa/radpa/internal/domain/order"
)

func TestIssue(t *testing.T) {
	tests := []struct {
		id    string
		title string
	}{
		{"RAD-006", "Required Clinical Documentation Missing"},
		{"RAD-007", "Supporting Imaging Documentation Missing"},
		{"RAD-008", "Patient Eligibility Verification Failed"},
		{"RAD-010", "Diagnosis Code Does Not Meet Requirements"},
	}
	for _, tt := range tests {
		d := Issue(datasetOrder(t, tt.id))
		if d == nil {
			t.Fatalf("%s: expected issue", tt.id)
		}
		if d.Title != tt.title {
			t.Errorf("%s: got %q, want %q", tt.id, d.Title, tt.title)
		}
		if d.Severity != SeverityBlocking || len(d.Resolution) != 2 {
			t.Errorf("%s: unexpected card %+v", tt.id, d)
		}
	}
}

func TestIssue_MissingImagingTypes(t *testing.T) {
	d := Issue(datasetOrder(t, "RAD-007"))
	want := "Supporting imaging studies required by payer policy were not found. Missing documents include: Mammogram Report, Ultrasound Report."
	if d.Explanation != want {
		t.Errorf("got %q", d.Explanation)
	}

	bare := withStatus(order.StatusSupportingImagingMissing, order.AutomationBlocked, "", false)
	d = Issue(bare)
	if d.Explanation != "Supporting imaging studies required by payer policy were not found. Missing documents include: prior imaging reports." {
		t.Errorf("got %q", d.Explanation)
	}
}

func TestIssue_GenericBlocked(t *testing.T) {
	d := Issue(withStatus(order.StatusQuery, order.AutomationBlocked, "Payer Question", false))
	if d.Title != "Issue Detected: Payer Question" || d.Impact != "Authorization workflow cannot continue" {
		t.Errorf("unexpected card %+v", d)
	}

	d = Issue(withStatus(order.StatusAuthRequired, order.AutomationBlocked, "", false))
	if d.Title != "Automation Workflow Blocked" {
		t.Errorf("unexpected title %q", d.Title)
	}
}

func TestIssue_None(t *testing.T) {
	for _, id := range []string{"RAD-001", "RAD-003", "RAD-005"} {
		if d := Issue(datasetOrder(t, id)); d != nil {
			t.Errorf("%s: expected no issue, got %+v", id, d)
		}
	}
}

func TestICDDescription(t *testing.T) {
	if got := ICDDescription("C90.00"); got != "Multiple myeloma, not having achieved remission" {
		t.Errorf("got %q", got)
	}
	if got := ICDDescription("Z00.0"); got != "Clinical description for Z00.0" {
		t.Errorf("got %q", got)
	}
}

func TestMissingDocuments(t *testing.T) {
	if n := len(MissingDocuments(datasetOrder(t, "RAD-007"))); n != 2 {
		t.Errorf("expected 2 missing documents, got %d", n)
	}
	if n := len(MissingDocuments(datasetOrder(t, "RAD-001"))); n != 0 {
		t.Errorf("expected none, got %d", n)
	}
}
