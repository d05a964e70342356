// Package dynamics assembles the patient dynamics pages: authorization,
// workflow, issues, documents, auth letters and the filed PA record. Views
// are recomputed from the overlaid order and the per-order state on every
// request.
package dynamics

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/rs/zerolog"

	"github.com/radpa/radpa/internal/domain/order"
	"github.com/radpa/radpa/internal/domain/orderstate"
	"github.com/radpa/radpa/internal/domain/pafiling"
	"github.com/radpa/radpa/internal/domain/pastatus"
)

// ErrNoFiledPA is returned by FiledPA when the order has neither a stored
// submission nor a filed status.
var ErrNoFiledPA = errors.New("no filed PA for this order")

// ErrActionNotAllowed is returned when an action is requested that the
// order's current views do not offer.
var ErrActionNotAllowed = errors.New("action not available for this order")

// filedPAAge is how long before now a default filed record claims to have
// been submitted.
const filedPAAge = 48 * time.Hour

type OrderSource interface {
	GetByMRN(ctx context.Context, mrn string) (*order.Order, error)
}

type Service struct {
	orders OrderSource
	store  *orderstate.Store
	logger zerolog.Logger
}

func NewService(orders OrderSource, store *orderstate.Store, logger zerolog.Logger) *Service {
	return &Service{orders: orders, store: store, logger: logger}
}

// Header is the order summary shown above every dynamics page.
type Header struct {
	OrderID          string `json:"orderId"`
	PatientName      string `json:"patientName"`
	MRN              string `json:"mrn"`
	DOB              string `json:"dob"`
	Payer            string `json:"payer"`
	ImagingType      string `json:"imagingType"`
	DateOfService    string `json:"dateOfService"`
	AuthStatus       string `json:"authStatus"`
	AutomationStatus string `json:"automationStatus"`
}

func header(o *order.Order) Header {
	return Header{
		OrderID:          o.OrderID,
		PatientName:      o.Patient.Name,
		MRN:              o.Patient.MRN,
		DOB:              o.Patient.DOB,
		Payer:            o.Payer.Name,
		ImagingType:      o.Order.ImagingType,
		DateOfService:    o.Order.DateOfService,
		AuthStatus:       o.PAStatus.AuthStatus,
		AutomationStatus: o.PAStatus.AutomationStatus,
	}
}

// load resolves the order and its case completion flag.
func (s *Service) load(ctx context.Context, mrn string) (*order.Order, bool, error) {
	o, err := s.orders.GetByMRN(ctx, mrn)
	if err != nil {
		return nil, false, err
	}
	complete, err := s.store.IsCaseComplete(ctx, o.OrderID)
	if err != nil {
		return nil, false, fmt.Errorf("load case status: %w", err)
	}
	return o, complete, nil
}

type Layout struct {
	Header       Header         `json:"header"`
	Tabs         []pastatus.Tab `json:"tabs"`
	NARGrid      string         `json:"narGrid"`
	CaseComplete bool           `json:"caseComplete"`
}

func (s *Service) Layout(ctx context.Context, mrn string) (*Layout, error) {
	o, complete, err := s.load(ctx, mrn)
	if err != nil {
		return nil, err
	}
	exists, err := s.store.HasSubmission(ctx, o.OrderID)
	if err != nil {
		return nil, fmt.Errorf("check submission: %w", err)
	}
	return &Layout{
		Header:       header(o),
		Tabs:         pastatus.Tabs(o, exists),
		NARGrid:      pastatus.NARGridDocument(o.Payer.Name),
		CaseComplete: complete,
	}, nil
}

type Submission struct {
	Status              string `json:"status"`
	Screenshot          string `json:"screenshot"`
	AuthorizationNumber string `json:"authorizationNumber,omitempty"`
}

type Authorization struct {
	Header         Header           `json:"header"`
	ImagingService string           `json:"imagingService"`
	Badge          pastatus.Badge   `json:"badge"`
	ShowDetails    bool             `json:"showDetails"`
	Submission     *Submission      `json:"submission,omitempty"`
	PayerResponse  string           `json:"payerResponse"`
	NextAction     string           `json:"nextAction"`
	Actions        pastatus.Actions `json:"actions"`
}

// Authorization builds the authorization page. A filed order gets its
// authorization number on first view.
func (s *Service) Authorization(ctx context.Context, mrn string) (*Authorization, error) {
	o, complete, err := s.load(ctx, mrn)
	if err != nil {
		return nil, err
	}
	v := &Authorization{
		Header:         header(o),
		ImagingService: pastatus.ImagingService(o),
		Badge:          pastatus.AuthBadge(o),
		ShowDetails:    pastatus.ShowAuthorizationDetails(o),
		PayerResponse:  pastatus.PayerResponse(o),
		NextAction:     pastatus.NextAction(o),
		Actions:        pastatus.FooterActions(o, complete),
	}
	if pastatus.ShowSubmissionSection(o) {
		sub := &Submission{
			Status:     pastatus.SubmissionStatus(o),
			Screenshot: pastatus.FiledPAScreenshot(o),
		}
		// Read only. The number is created by the wizard submit or the
		// filed PA view; until then the client shows a placeholder.
		if pastatus.IsPAFiled(o) {
			sub.AuthorizationNumber, err = s.store.AuthNumber(ctx, o.OrderID)
			if err != nil && !errors.Is(err, orderstate.ErrNotFound) {
				return nil, fmt.Errorf("load auth number: %w", err)
			}
		}
		v.Submission = sub
	}
	return v, nil
}

type Workflow struct {
	Header         Header                `json:"header"`
	Steps          []pastatus.Step       `json:"steps"`
	Statuses       []pastatus.StepStatus `json:"statuses"`
	Visible        []pastatus.Step       `json:"visible"`
	AutoExpand     bool                  `json:"autoExpand"`
	ActionRequired string                `json:"actionRequired,omitempty"` // step id flagged "Action Required"
	CanReset       bool                  `json:"canReset"`
	Actions        pastatus.Actions      `json:"actions"`
}

// Workflow builds the workflow page. showAdditional reveals the trailing
// steps for orders that collapse them.
func (s *Service) Workflow(ctx context.Context, mrn string, showAdditional bool) (*Workflow, error) {
	o, complete, err := s.load(ctx, mrn)
	if err != nil {
		return nil, err
	}
	exists, err := s.store.HasSubmission(ctx, o.OrderID)
	if err != nil {
		return nil, fmt.Errorf("check submission: %w", err)
	}
	steps := pastatus.WorkflowSteps(o)
	v := &Workflow{
		Header:     header(o),
		Steps:      steps,
		Statuses:   pastatus.StepStatuses(steps),
		Visible:    pastatus.VisibleSteps(o, steps, showAdditional),
		AutoExpand: pastatus.AutoExpand(o),
		CanReset:   o.PAStatus.AuthStatus == order.StatusPASubmitted || exists,
		Actions:    pastatus.FooterActions(o, complete),
	}
	if pastatus.CanFilePA(o) {
		v.ActionRequired = pastatus.StepAuthSubmission
	}
	return v, nil
}

type Issues struct {
	Header            Header                              `json:"header"`
	Issue             *pastatus.IssueDetails              `json:"issue"`
	MissingDocuments  []order.Document                    `json:"missingDocuments"`
	ProcessingRequest *orderstate.ProcessingRequestRecord `json:"processingRequest,omitempty"`
	RPATrigger        *orderstate.RPATrigger              `json:"rpaTrigger,omitempty"`
	CanAct            bool                                `json:"canAct"`
	Actions           pastatus.Actions                    `json:"actions"`
}

func (s *Service) Issues(ctx context.Context, mrn string) (*Issues, error) {
	o, complete, err := s.load(ctx, mrn)
	if err != nil {
		return nil, err
	}
	pr, trig, err := s.pending(ctx, o.OrderID)
	if err != nil {
		return nil, err
	}
	missing := pastatus.MissingDocuments(o)
	if missing == nil {
		missing = []order.Document{}
	}
	return &Issues{
		Header:            header(o),
		Issue:             pastatus.Issue(o),
		MissingDocuments:  missing,
		ProcessingRequest: pr,
		RPATrigger:        trig,
		CanAct:            canAct(o, pr, trig),
		Actions:           pastatus.FooterActions(o, complete),
	}, nil
}

// pending loads the processing request and RPA trigger recorded for the
// order; either may be nil.
func (s *Service) pending(ctx context.Context, orderID string) (*orderstate.ProcessingRequestRecord, *orderstate.RPATrigger, error) {
	pr, err := s.store.ProcessingRequest(ctx, orderID)
	if err != nil && !errors.Is(err, orderstate.ErrNotFound) {
		return nil, nil, fmt.Errorf("load processing request: %w", err)
	}
	trig, err := s.store.RPATrigger(ctx, orderID)
	if err != nil && !errors.Is(err, orderstate.ErrNotFound) {
		return nil, nil, fmt.Errorf("load RPA trigger: %w", err)
	}
	return pr, trig, nil
}

// canAct reports whether upload and request are offered: the order is
// blocked or in query, and nothing has been recorded yet.
func canAct(o *order.Order, pr *orderstate.ProcessingRequestRecord, trig *orderstate.RPATrigger) bool {
	actionable := o.PAStatus.AutomationStatus == order.AutomationBlocked || o.PAStatus.AuthStatus == order.StatusQuery
	return actionable && pr == nil && trig == nil
}

// Upload describes a file handed over from the Issues page.
type Upload struct {
	FileName string `json:"fileName" validate:"required"`
	FileSize int64  `json:"fileSize" validate:"gte=0"`
	FileType string `json:"fileType"`
}

// RecordUpload stores an upload processing request. A missing file type
// falls back to the file extension, then "Unknown".
func (s *Service) RecordUpload(ctx context.Context, mrn string, u Upload) (*orderstate.ProcessingRequestRecord, error) {
	fileType := u.FileType
	if fileType == "" {
		if ext := path.Ext(u.FileName); len(ext) > 1 {
			fileType = ext[1:]
		}
	}
	if fileType == "" {
		fileType = "Unknown"
	}
	return s.recordRequest(ctx, mrn, orderstate.ProcessingRequestRecord{
		Type:     orderstate.RequestUpload,
		FileName: u.FileName,
		FileSize: u.FileSize,
		FileType: fileType,
	})
}

// RecordRequest stores a request-from-provider processing request.
func (s *Service) RecordRequest(ctx context.Context, mrn string) (*orderstate.ProcessingRequestRecord, error) {
	return s.recordRequest(ctx, mrn, orderstate.ProcessingRequestRecord{Type: orderstate.RequestRequest})
}

func (s *Service) recordRequest(ctx context.Context, mrn string, pr orderstate.ProcessingRequestRecord) (*orderstate.ProcessingRequestRecord, error) {
	o, err := s.orders.GetByMRN(ctx, mrn)
	if err != nil {
		return nil, err
	}
	existing, trig, err := s.pending(ctx, o.OrderID)
	if err != nil {
		return nil, err
	}
	if !canAct(o, existing, trig) {
		return nil, ErrActionNotAllowed
	}
	pr.Timestamp = orderstate.Timestamp(s.store.Now())
	if err := s.store.SaveProcessingRequest(ctx, o.OrderID, pr); err != nil {
		return nil, fmt.Errorf("save processing request: %w", err)
	}
	s.logger.Info().Str("order_id", o.OrderID).Str("type", pr.Type).Msg("processing request recorded")
	return &pr, nil
}

func (s *Service) ClearProcessingRequest(ctx context.Context, mrn string) error {
	o, err := s.orders.GetByMRN(ctx, mrn)
	if err != nil {
		return err
	}
	return s.store.ClearProcessingRequest(ctx, o.OrderID)
}

func (s *Service) ClearRPATrigger(ctx context.Context, mrn string) error {
	o, err := s.orders.GetByMRN(ctx, mrn)
	if err != nil {
		return err
	}
	return s.store.ClearRPATrigger(ctx, o.OrderID)
}

type Documents struct {
	Header    Header           `json:"header"`
	Documents []order.Document `json:"documents"`
	Actions   pastatus.Actions `json:"actions"`
}

func (s *Service) Documents(ctx context.Context, mrn string) (*Documents, error) {
	o, complete, err := s.load(ctx, mrn)
	if err != nil {
		return nil, err
	}
	docs := o.Documents
	if docs == nil {
		docs = []order.Document{}
	}
	return &Documents{Header: header(o), Documents: docs, Actions: pastatus.FooterActions(o, complete)}, nil
}

type AuthLetters struct {
	Header  Header                `json:"header"`
	Letters []pastatus.AuthLetter `json:"letters"`
	Actions pastatus.Actions      `json:"actions"`
}

func (s *Service) AuthLetters(ctx context.Context, mrn string) (*AuthLetters, error) {
	o, complete, err := s.load(ctx, mrn)
	if err != nil {
		return nil, err
	}
	return &AuthLetters{Header: header(o), Letters: pastatus.AuthLetters(o), Actions: pastatus.FooterActions(o, complete)}, nil
}

type FiledPA struct {
	Header     Header                `json:"header"`
	Submission orderstate.Submission `json:"submission"`
	Stored     bool                  `json:"stored"`
	Actions    pastatus.Actions      `json:"actions"`
}

// FiledPA returns the stored submission. A filed order without one gets a
// default record dated two days back.
func (s *Service) FiledPA(ctx context.Context, mrn string) (*FiledPA, error) {
	o, complete, err := s.load(ctx, mrn)
	if err != nil {
		return nil, err
	}
	v := &FiledPA{Header: header(o), Actions: pastatus.FooterActions(o, complete)}
	sub, err := s.store.Submission(ctx, o.OrderID)
	switch {
	case err == nil:
		v.Submission = *sub
		v.Stored = true
		return v, nil
	case !errors.Is(err, orderstate.ErrNotFound):
		return nil, fmt.Errorf("load submission: %w", err)
	}
	if !pastatus.IsPAFiled(o) {
		return nil, ErrNoFiledPA
	}
	num, err := s.store.EnsureAuthNumber(ctx, o.OrderID)
	if err != nil {
		return nil, fmt.Errorf("ensure auth number: %w", err)
	}
	v.Submission = orderstate.Submission{
		OrderID:             o.OrderID,
		SubmittedAt:         orderstate.Timestamp(s.store.Now().Add(-filedPAAge)),
		FormData:            pafiling.FiledDefaultForm(o),
		AuthorizationNumber: num,
	}
	return v, nil
}

type Overview struct {
	Header      Header                        `json:"header"`
	Patient     order.Patient                 `json:"patient"`
	Payer       order.Payer                   `json:"payer"`
	Order       order.Details                 `json:"order"`
	Eligibility order.EligibilityVerification `json:"eligibility"`
	Badge       pastatus.Badge                `json:"badge"`
	NextAction  string                        `json:"nextAction"`
	Timeline    []pastatus.TimelineEntry      `json:"timeline"`
}

func (s *Service) Overview(ctx context.Context, mrn string) (*Overview, error) {
	o, err := s.orders.GetByMRN(ctx, mrn)
	if err != nil {
		return nil, err
	}
	return &Overview{
		Header:      header(o),
		Patient:     o.Patient,
		Payer:       o.Payer,
		Order:       o.Order,
		Eligibility: o.EligibilityVerification,
		Badge:       pastatus.AuthBadge(o),
		NextAction:  pastatus.NextAction(o),
		Timeline:    pastatus.Timeline(o),
	}, nil
}

// MarkComplete closes a filed case. The footer then only offers going back.
func (s *Service) MarkComplete(ctx context.Context, mrn string) error {
	o, err := s.orders.GetByMRN(ctx, mrn)
	if err != nil {
		return err
	}
	if !pastatus.IsPAFiled(o) {
		return ErrActionNotAllowed
	}
	if err := s.store.MarkCaseComplete(ctx, o.OrderID); err != nil {
		return fmt.Errorf("mark case complete: %w", err)
	}
	s.logger.Info().Str("order_id", o.OrderID).Msg("case marked complete")
	return nil
}

// ResetSubmission discards the stored submission, auth number and case
// completion so the order reverts to its dataset state.
func (s *Service) ResetSubmission(ctx context.Context, mrn string) error {
	o, err := s.orders.GetByMRN(ctx, mrn)
	if err != nil {
		return err
	}
	if err := s.store.ResetSubmission(ctx, o.OrderID); err != nil {
		return fmt.Errorf("reset submission: %w", err)
	}
	s.logger.Info().Str("order_id", o.OrderID).Msg("PA submission reset")
	return nil
}
