package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when no order matches a lookup.
var ErrNotFound = errors.New("order not found")

// SubmissionSource reports the attachments of a stored PA submission.
// found is false when the order has no submission. A non-nil, empty
// attachments slice means the submission explicitly carried no documents.
type SubmissionSource interface {
	SubmittedAttachments(ctx context.Context, orderID string) (attachments []Document, found bool, err error)
}

type Service struct {
	dataset     Dataset
	submissions SubmissionSource
}

func NewService(dataset Dataset, submissions SubmissionSource) *Service {
	return &Service{dataset: dataset, submissions: submissions}
}

// List returns every order with the submission overlay applied. A non-empty
// query keeps orders whose patient name or MRN contains it, ignoring case.
func (s *Service) List(ctx context.Context, query string) ([]Order, error) {
	orders, err := s.dataset.Orders(ctx)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}

	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if q != "" &&
			!strings.Contains(strings.ToLower(o.Patient.Name), q) &&
			!strings.Contains(strings.ToLower(o.Patient.MRN), q) {
			continue
		}
		o, err = s.overlay(ctx, o)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// overlay applies a stored submission. It runs on every read and is never
// cached.
func (s *Service) overlay(ctx context.Context, o Order) (Order, error) {
	if s.submissions == nil {
		return o, nil
	}
	attachments, found, err := s.submissions.SubmittedAttachments(ctx, o.OrderID)
	if err != nil {
		return o, fmt.Errorf("overlay %s: %w", o.OrderID, err)
	}
	if !found {
		return o, nil
	}
	return ApplySubmission(o, attachments), nil
}

// ApplySubmission marks o as filed. attachments replace the documents unless
// nil.
func ApplySubmission(o Order, attachments []Document) Order {
	o.PAStatus.AuthStatus = StatusAuthRequired
	o.PAStatus.AutomationStatus = AutomationInProgress
	o.PAStatus.PAFiled = true
	if attachments != nil {
		o.Documents = append([]Document{}, attachments...)
	}
	return o
}

func (s *Service) GetByMRN(ctx context.Context, mrn string) (*Order, error) {
	return s.find(ctx, func(o Order) bool { return o.Patient.MRN == mrn })
}

func (s *Service) GetByID(ctx context.Context, orderID string) (*Order, error) {
	return s.find(ctx, func(o Order) bool { return o.OrderID == orderID })
}

// Original returns the dataset record without any overlay.
func (s *Service) Original(ctx context.Context, mrn string) (*Order, error) {
	orders, err := s.dataset.Orders(ctx)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	for i := range orders {
		if orders[i].Patient.MRN == mrn {
			return &orders[i], nil
		}
	}
	return nil, ErrNotFound
}

func (s *Service) find(ctx context.Context, match func(Order) bool) (*Order, error) {
	orders, err := s.dataset.Orders(ctx)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	for _, o := range orders {
		if !match(o) {
			continue
		}
		o, err = s.overlay(ctx, o)
		if err != nil {
			return nil, err
		}
		return &o, nil
	}
	return nil, ErrNotFound
}

func (s *Service) TableRows(ctx context.Context, query string) ([]TableRow, error) {
	orders, err := s.List(ctx, query)
	if err != nil {
		return nil, err
	}
	rows := make([]TableRow, len(orders))
	for i, o := range orders {
		rows[i] = TableRow{
			OrderID:          o.OrderID,
			PatientName:      o.Patient.Name,
			MRN:              o.Patient.MRN,
			ImagingType:      o.Order.ImagingType,
			CPTCodes:         o.Order.CPTCodes,
			Payer:            o.Payer.Name,
			DateOfService:    o.Order.DateOfService,
			AuthStatus:       o.PAStatus.AuthStatus,
			AutomationStatus: o.PAStatus.AutomationStatus,
			Action:           "View",
		}
	}
	return rows, nil
}

// Stats computes the processing statistics over the overlaid order list.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	orders, err := s.List(ctx, "")
	if err != nil {
		return nil, err
	}
	return ComputeStats(orders), nil
}

func ComputeStats(orders []Order) *Stats {
	st := &Stats{Total: len(orders)}
	for _, o := range orders {
		switch o.PAStatus.AuthStatus {
		case StatusPASubmitted, StatusAuthOnFile:
			st.PAFiled++
		case StatusNAR:
			st.NAR++
		case StatusPAOrdered:
			st.PAOrdered++
		}
		switch o.PAStatus.AutomationStatus {
		case AutomationBlocked:
			st.Blocked++
		case AutomationInProgress:
			st.InProgress++
		}
		if o.PAStatus.AutomationStatus != AutomationCompleted {
			st.OrdersRemaining++
		}
	}
	return st
}

func (s *Service) Eligibility(ctx context.Context, mrn string) (*Eligibility, error) {
	o, err := s.GetByMRN(ctx, mrn)
	if err != nil {
		return nil, err
	}
	fin := o.EligibilityVerification.Financials
	return &Eligibility{
		OrderID:                 o.OrderID,
		Patient:                 o.Patient,
		Payer:                   o.Payer,
		Order:                   o.Order,
		EligibilityVerification: o.EligibilityVerification,
		DeductibleRemaining:     fin.Deductible.Remaining(),
		OutOfPocketRemaining:    fin.OutOfPocket.Remaining(),
	}, nil
}
