package pastatus

import (
	"github.com/radpa/radpa/internal/domain/order"
)

// Actions lists which footer buttons are offered.
type Actions struct {
	GoBack       bool `json:"goBack"`
	ViewIssues   bool `json:"viewIssues"`
	FilePA       bool `json:"filePA"`
	MarkComplete bool `json:"markComplete"`
}

// FooterActions computes the footer buttons. A completed case only offers
// GoBack.
func FooterActions(o *order.Order, caseComplete bool) Actions {
	a := Actions{GoBack: true}
	if caseComplete {
		return a
	}
	s := o.PAStatus.AuthStatus
	a.ViewIssues = IsQueryFamily(s) || s == order.StatusEligibilityFailed ||
		o.PAStatus.AutomationStatus == order.AutomationBlocked
	a.FilePA = CanFilePA(o)
	a.MarkComplete = IsPAFiled(o)
	return a
}

// CanFilePA reports whether a fresh filing may start, ignoring case
// completion.
func CanFilePA(o *order.Order) bool {
	s := o.PAStatus.AuthStatus
	return (s == order.StatusAuthRequired || s == order.StatusPAOrdered) && !o.PAStatus.PAFiled
}

// Tab ids.
const (
	TabAuthorization  = "authorization"
	TabDocuments      = "documents"
	TabWorkflow       = "workflow"
	TabAuthLetters    = "auth-letters"
	TabBusinessOffice = "business-office"
	TabFiledPA        = "filed-pa"
	TabIssues         = "issues"
)

type Tab struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

func Tabs(o *order.Order, submissionExists bool) []Tab {
	tabs := []Tab{
		{TabAuthorization, "Authorization"},
		{TabDocuments, "Documents"},
		{TabWorkflow, "Workflow"},
		{TabAuthLetters, "Auth Letters"},
		{TabBusinessOffice, "Business Office"},
	}
	if IsPAFiled(o) || submissionExists {
		tabs = append(tabs, Tab{TabFiledPA, "Filed PA"})
	}
	if o.PAStatus.AutomationStatus == order.AutomationBlocked || o.PAStatus.AuthStatus == order.StatusQuery {
		tabs = append(tabs, Tab{TabIssues, "Issues"})
	}
	return tabs
}

// ShowAuthorizationDetails reports whether the on-file authorization card
// is shown.
func ShowAuthorizationDetails(o *order.Order) bool {
	return o.PAStatus.AuthStatus == order.StatusAuthOnFile
}

// ShowSubmissionSection hides the submission card for NAR, unfiled Auth
// Required, documentation queries and eligibility failures.
func ShowSubmissionSection(o *order.Order) bool {
	s := o.PAStatus.AuthStatus
	if s == order.StatusNAR || s == order.StatusEligibilityFailed || IsQueryFamily(s) {
		return false
	}
	return s != order.StatusAuthRequired || o.PAStatus.PAFiled
}

func FiledPAScreenshot(o *order.Order) string {
	if o.OrderID == "RAD-008" || o.OrderID == "RAD-009" {
		return "/documents/Filed_PA.pdf"
	}
	return "/documents/NAR_SS.png"
}

var narGrids = map[string]string{
	"Aetna": "/documents/nar-grid-aetna.pdf",
	"BCBS":  "/documents/nar-grid-bcbs.pdf",
	"Cigna": "/documents/nar-grid-cigna.pdf",
}

// NARGridDocument returns the payer's NAR grid, defaulting to Aetna.
func NARGridDocument(payer string) string {
	if doc, ok := narGrids[payer]; ok {
		return doc
	}
	return narGrids["Aetna"]
}

// AuthLetter is a payer authorization letter on file.
type AuthLetter struct {
	Title string `json:"title"`
	Date  string `json:"date"`
	URL   string `json:"url"`
}

// AuthLetters returns the letters shown for an order. Only the first four
// orders carry one.
func AuthLetters(o *order.Order) []AuthLetter {
	n := order.Number(o.OrderID)
	if n < 1 || n > 4 {
		return []AuthLetter{}
	}
	return []AuthLetter{{
		Title: "Authorization Letter",
		Date:  "2025-12-11",
		URL:   "/documents/auth-letter-aetna.pdf",
	}}
}

func MissingDocuments(o *order.Order) []order.Document {
	var out []order.Document
	for _, d := range o.Documents {
		if d.Status == order.DocumentNotAvailable {
			out = append(out, d)
		}
	}
	return out
}

// TimelineEntry is one row of the order quick-look timeline.
type TimelineEntry struct {
	Step        string `json:"step"`
	Status      string `json:"status"`
	Description string `json:"description"`
	Timestamp   string `json:"timestamp"`
}

// Timeline statuses.
const (
	TimelineCompleted = "completed"
	TimelinePending   = "pending"
	TimelineFailed    = "failed"
	TimelineBlocked   = "blocked"
)

// Timeline is the six-row summary shown when previewing an order from the
// list.
func Timeline(o *order.Order) []TimelineEntry {
	ps := o.PAStatus
	ev := o.EligibilityVerification
	dos := o.Order.DateOfService

	elig := TimelineEntry{"Eligibility Verification", TimelineCompleted, "Coverage verified - " + o.Payer.Status, dos}
	if !ev.Covered {
		elig.Status = TimelineFailed
		elig.Description = "Coverage verification failed"
	}

	docs := TimelineEntry{"Document Collection", TimelineCompleted, "All documents collected", dos}
	if ps.AutomationStatus == order.AutomationBlocked {
		issue := ps.IssueType
		if issue == "" {
			issue = ps.AuthStatus
		}
		docs.Status = TimelineBlocked
		docs.Description = "Missing requirements: " + issue
	}

	sub := TimelineEntry{"PA Submission", TimelinePending, "Awaiting submission", dos}
	switch ps.AuthStatus {
	case order.StatusPASubmitted:
		sub.Status, sub.Description = TimelineCompleted, "PA submitted to payer"
	case order.StatusAuthOnFile:
		sub.Status, sub.Description = TimelineCompleted, "Authorization on file"
	case order.StatusNAR:
		sub.Status, sub.Description = TimelineCompleted, "Not requiring authorization"
	case order.StatusPAOrdered:
		sub.Description = "Ready to file PA"
	}

	decision := TimelineEntry{"Authorization Decision", TimelinePending, "Awaiting payer decision", ""}
	switch ps.AuthStatus {
	case order.StatusAuthOnFile:
		decision.Status, decision.Description = TimelineCompleted, "Authorization approved"
	case order.StatusNAR:
		decision.Status, decision.Description = TimelineCompleted, "No authorization required (NAR)"
	}

	return []TimelineEntry{
		{"Order Received", TimelineCompleted, "Order created and received in system", dos},
		elig,
		{"PA Required Check", TimelineCompleted, pick(ev.PriorAuthRequired, "Prior authorization required", "No prior authorization needed"), dos},
		docs,
		sub,
		decision,
	}
}
