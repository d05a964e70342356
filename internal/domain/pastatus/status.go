// Package pastatus derives every user-visible prior-authorization status
// from an order snapshot. All functions are pure; callers recompute on each
// read.
package pastatus

import (
	"strings"
	"time"

	"github.com/radpa/radpa/internal/domain/order"
)

// Badge tones.
const (
	ToneTeal   = "teal"
	ToneBlue   = "blue"
	ToneYellow = "yellow"
	ToneOrange = "orange"
	TonePurple = "purple"
	ToneRed    = "red"
	ToneGray   = "gray"
)

// Submission statuses.
const (
	SubmissionNotRequired        = "Not Required"
	SubmissionApproved           = "Approved"
	SubmissionPendingPayerReview = "Pending Payer Review"
	SubmissionNotYetSubmitted    = "Not Yet Submitted"
	SubmissionPendingSubmission  = "Pending Submission"
	SubmissionPending            = "Pending"
)

// Badge is the authorization status card.
type Badge struct {
	Label  string `json:"label"`
	Detail string `json:"detail"`
	Icon   string `json:"icon"`
	Tone   string `json:"tone"`
}

// ImagingService renders "{imagingType} (CPT {codes})".
func ImagingService(o *order.Order) string {
	return o.Order.ImagingType + " (CPT " + strings.Join(o.Order.CPTCodes, ", ") + ")"
}

// IsPAFiled reports whether a PA has gone to the payer.
func IsPAFiled(o *order.Order) bool {
	return o.PAStatus.AuthStatus == order.StatusPASubmitted || o.PAStatus.PAFiled
}

// IsDocumentationIssue reports the three pre-submission documentation statuses.
func IsDocumentationIssue(status string) bool {
	switch status {
	case order.StatusClinicalMissing, order.StatusSupportingImagingMissing, order.StatusInvalidDxCode:
		return true
	}
	return false
}

// IsQueryFamily reports Query and the documentation statuses.
func IsQueryFamily(status string) bool {
	return status == order.StatusQuery || IsDocumentationIssue(status)
}

func AuthBadge(o *order.Order) Badge {
	svc := ImagingService(o)
	ps := o.PAStatus
	switch ps.AuthStatus {
	case order.StatusNAR:
		return Badge{"No Authorization Required", "No prior authorization required for " + svc, "check-circle", ToneTeal}
	case order.StatusAuthOnFile:
		return Badge{"Authorization on File", "Valid authorization exists for " + svc, "shield-check", ToneBlue}
	case order.StatusAuthRequired:
		if ps.PAFiled {
			return submittedBadge(svc)
		}
		return Badge{"Auth Required - PA to be Filed", "Prior authorization required for " + svc + " and needs to be filed", "alert-circle", ToneOrange}
	case order.StatusPAOrdered:
		return Badge{"PA Ordered - Not Yet Filed", "Prior authorization for " + svc + " ordered but not yet submitted", "file-text", TonePurple}
	case order.StatusPASubmitted:
		return submittedBadge(svc)
	case order.StatusClinicalMissing, order.StatusSupportingImagingMissing, order.StatusInvalidDxCode:
		return Badge{"Authorization Required", "Prior authorization needed - documentation pending", "alert-circle", ToneOrange}
	case order.StatusQuery:
		detail := ps.IssueType
		if detail == "" {
			detail = "Additional information required"
		}
		return Badge{"Query", detail, "help-circle", ToneOrange}
	case order.StatusEligibilityFailed:
		return Badge{"Blocked", "Authorization process blocked due to eligibility issue", "x-circle", ToneRed}
	}
	return Badge{ps.AuthStatus, "Authorization status", "info", ToneGray}
}

func submittedBadge(svc string) Badge {
	return Badge{"PA Submitted", "Authorization request for " + svc + " submitted to payer", "clock", ToneYellow}
}

// SubmissionStatus follows a fixed precedence; a filed flag outranks every
// status except NAR and Auth on File.
func SubmissionStatus(o *order.Order) string {
	s := o.PAStatus.AuthStatus
	switch {
	case s == order.StatusNAR:
		return SubmissionNotRequired
	case s == order.StatusAuthOnFile:
		return SubmissionApproved
	case IsPAFiled(o):
		return SubmissionPendingPayerReview
	case s == order.StatusAuthRequired, s == order.StatusPAOrdered:
		return SubmissionNotYetSubmitted
	case s == order.StatusEligibilityFailed:
		return SubmissionNotRequired
	case IsQueryFamily(s):
		return SubmissionPendingSubmission
	}
	return SubmissionPending
}

func PayerResponse(o *order.Order) string {
	svc := ImagingService(o)
	payer := o.Payer.Name
	ps := o.PAStatus
	switch {
	case ps.AuthStatus == order.StatusNAR:
		return "Per " + payer + " policy, " + svc + " does not require prior authorization"
	case ps.AuthStatus == order.StatusAuthOnFile:
		return "Authorization approved by " + payer + " for " + svc
	case IsPAFiled(o):
		return "Pending " + payer + " review for " + svc
	case ps.AuthStatus == order.StatusAuthRequired:
		return "Prior authorization required by " + payer + " for " + svc + " and needs to be filed"
	case ps.AuthStatus == order.StatusPAOrdered:
		return "Authorization for " + svc + " has been ordered and is ready to be submitted to " + payer
	case ps.AuthStatus == order.StatusEligibilityFailed:
		return "Authorization for " + svc + " cannot be processed due to eligibility failure"
	case ps.AuthStatus == order.StatusQuery:
		switch ps.IssueType {
		case order.StatusClinicalMissing:
			return payer + " has requested additional clinical documentation for " + svc
		case order.StatusSupportingImagingMissing:
			return payer + " has requested supporting imaging documentation for " + svc
		case order.StatusInvalidDxCode:
			return payer + " has requested diagnosis code clarification for " + svc
		}
		return payer + " has requested additional information for " + svc
	case ps.AuthStatus == order.StatusClinicalMissing:
		return "Awaiting clinical documentation before submitting " + svc + " authorization"
	case ps.AuthStatus == order.StatusSupportingImagingMissing:
		return "Awaiting supporting imaging documentation before submitting " + svc + " authorization"
	case ps.AuthStatus == order.StatusInvalidDxCode:
		return "Awaiting diagnosis code correction before submitting " + svc + " authorization"
	}
	return "No response from payer yet for " + svc
}

func NextAction(o *order.Order) string {
	ps := o.PAStatus
	switch {
	case ps.AuthStatus == order.StatusNAR, ps.AuthStatus == order.StatusAuthOnFile:
		return "No further action required"
	case IsPAFiled(o):
		return "System is monitoring for payer response"
	case ps.AuthStatus == order.StatusAuthRequired, ps.AuthStatus == order.StatusPAOrdered:
		return "System is preparing to file authorization request with payer"
	case ps.AuthStatus == order.StatusEligibilityFailed:
		return "System cannot proceed until eligibility is resolved"
	case ps.AuthStatus == order.StatusQuery:
		switch ps.IssueType {
		case order.StatusClinicalMissing:
			return "Awaiting clinical documentation"
		case order.StatusSupportingImagingMissing:
			return "Awaiting supporting imaging documentation"
		case order.StatusInvalidDxCode:
			return "Awaiting diagnosis code correction"
		}
		return "Awaiting additional documentation"
	case ps.AuthStatus == order.StatusClinicalMissing:
		return "Awaiting clinical documentation before submission"
	case ps.AuthStatus == order.StatusSupportingImagingMissing:
		return "Awaiting supporting imaging documentation before submission"
	case ps.AuthStatus == order.StatusInvalidDxCode:
		return "Awaiting diagnosis code correction before submission"
	}
	return "System is preparing authorization request"
}

// USDate renders a YYYY-MM-DD date as M/D/YYYY. Unparseable input is
// returned unchanged.
func USDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("1/2/2006")
}
