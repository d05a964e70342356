// Package businessoffice manages the business office notes of an order and
// forwards them to the oncology EMR.
package businessoffice

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/radpa/radpa/internal/domain/order"
	"github.com/radpa/radpa/internal/domain/orderstate"
	"github.com/radpa/radpa/internal/domain/pastatus"
)

var (
	// ErrNoTemplates is returned by RefreshTemplates when the dataset carries
	// no entries for the order.
	ErrNoTemplates = errors.New("no template data available")
	// ErrEntryNotFound is returned for an out-of-range entry or case index.
	ErrEntryNotFound = errors.New("business office entry not found")
)

// Default auth case values.
const (
	DefaultCaseRadio  = "AuthMate-Pending"
	DefaultCaseTitle  = "Authmate Case"
	DefaultCaseStatus = order.CasePending
)

type OrderSource interface {
	GetByMRN(ctx context.Context, mrn string) (*order.Order, error)
}

type Service struct {
	orders OrderSource
	store  *orderstate.Store
	now    func() time.Time
	logger zerolog.Logger
}

func NewService(orders OrderSource, store *orderstate.Store, logger zerolog.Logger) *Service {
	return &Service{orders: orders, store: store, now: store.Now, logger: logger}
}

// Entries returns the saved notes, else the dataset entries, else a single
// template entry.
func (s *Service) Entries(ctx context.Context, mrn string) (*order.Order, []order.BusinessOfficeEntry, error) {
	o, err := s.orders.GetByMRN(ctx, mrn)
	if err != nil {
		return nil, nil, err
	}
	entries, err := s.entries(ctx, o)
	if err != nil {
		return nil, nil, err
	}
	return o, entries, nil
}

func (s *Service) entries(ctx context.Context, o *order.Order) ([]order.BusinessOfficeEntry, error) {
	saved, err := s.store.BONotes(ctx, o.OrderID)
	if err == nil {
		return nonNil(saved), nil
	}
	if !errors.Is(err, orderstate.ErrNotFound) {
		return nil, fmt.Errorf("load business office notes: %w", err)
	}
	if o.BusinessOffice != nil && o.BusinessOffice.Entries != nil {
		return nonNil(o.BusinessOffice.Entries), nil
	}
	return []order.BusinessOfficeEntry{s.templateEntry(o)}, nil
}

func (s *Service) templateEntry(o *order.Order) order.BusinessOfficeEntry {
	now := s.now()
	return order.BusinessOfficeEntry{
		Date: now.Format("01/02/2006"),
		DetailsText: fmt.Sprintf("Details: Date: %s, Initials: , As per Insurance %s- %s (%s),\n\nPrior Auth Questions:\n\n",
			now.Format("1/2/2006"), o.Payer.Name, o.Payer.Status, pastatus.USDate(o.Payer.EffectiveDate)),
		AuthCases: []order.AuthCase{},
	}
}

// Save replaces the order's notes.
func (s *Service) Save(ctx context.Context, mrn string, entries []order.BusinessOfficeEntry) ([]order.BusinessOfficeEntry, error) {
	o, err := s.orders.GetByMRN(ctx, mrn)
	if err != nil {
		return nil, err
	}
	entries = nonNil(entries)
	if err := s.store.SaveBONotes(ctx, o.OrderID, entries); err != nil {
		return nil, fmt.Errorf("save business office notes: %w", err)
	}
	s.logger.Info().Str("order_id", o.OrderID).Int("entries", len(entries)).Msg("business office notes saved")
	return entries, nil
}

// RefreshTemplates restores the dataset entries, discarding saved edits.
func (s *Service) RefreshTemplates(ctx context.Context, mrn string) ([]order.BusinessOfficeEntry, error) {
	o, err := s.orders.GetByMRN(ctx, mrn)
	if err != nil {
		return nil, err
	}
	if o.BusinessOffice == nil || o.BusinessOffice.Entries == nil {
		return nil, ErrNoTemplates
	}
	entries := nonNil(o.BusinessOffice.Entries)
	if err := s.store.SaveBONotes(ctx, o.OrderID, entries); err != nil {
		return nil, fmt.Errorf("save business office notes: %w", err)
	}
	return entries, nil
}

// AddEntry prepends an empty entry dated today.
func (s *Service) AddEntry(ctx context.Context, mrn string) ([]order.BusinessOfficeEntry, error) {
	return s.update(ctx, mrn, func(entries []order.BusinessOfficeEntry) ([]order.BusinessOfficeEntry, error) {
		entry := order.BusinessOfficeEntry{Date: s.now().Format("01/02/2006"), AuthCases: []order.AuthCase{}}
		return append([]order.BusinessOfficeEntry{entry}, entries...), nil
	})
}

// AddAuthCase appends a pending case to the entry at idx.
func (s *Service) AddAuthCase(ctx context.Context, mrn string, idx int) ([]order.BusinessOfficeEntry, error) {
	return s.update(ctx, mrn, func(entries []order.BusinessOfficeEntry) ([]order.BusinessOfficeEntry, error) {
		if idx < 0 || idx >= len(entries) {
			return nil, ErrEntryNotFound
		}
		entries[idx].AuthCases = append(entries[idx].AuthCases, order.AuthCase{
			ID:                strconv.FormatInt(s.now().UnixMilli(), 10),
			RadioButtonStatus: DefaultCaseRadio,
			Title:             DefaultCaseTitle,
			Status:            DefaultCaseStatus,
		})
		return entries, nil
	})
}

// DeleteAuthCase removes the case at caseIdx from the entry at idx.
func (s *Service) DeleteAuthCase(ctx context.Context, mrn string, idx, caseIdx int) ([]order.BusinessOfficeEntry, error) {
	return s.update(ctx, mrn, func(entries []order.BusinessOfficeEntry) ([]order.BusinessOfficeEntry, error) {
		if idx < 0 || idx >= len(entries) {
			return nil, ErrEntryNotFound
		}
		cases := entries[idx].AuthCases
		if caseIdx < 0 || caseIdx >= len(cases) {
			return nil, ErrEntryNotFound
		}
		entries[idx].AuthCases = append(cases[:caseIdx:caseIdx], cases[caseIdx+1:]...)
		return entries, nil
	})
}

func (s *Service) update(ctx context.Context, mrn string, fn func([]order.BusinessOfficeEntry) ([]order.BusinessOfficeEntry, error)) ([]order.BusinessOfficeEntry, error) {
	o, entries, err := s.Entries(ctx, mrn)
	if err != nil {
		return nil, err
	}
	entries, err = fn(cloneEntries(entries))
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveBONotes(ctx, o.OrderID, entries); err != nil {
		return nil, fmt.Errorf("save business office notes: %w", err)
	}
	return entries, nil
}

// TriggerRPA sends the current notes to the EMR. The note is appended to
// the global log, stored for the order, and the trigger is recorded.
func (s *Service) TriggerRPA(ctx context.Context, mrn string) (*orderstate.EMRNote, error) {
	o, entries, err := s.Entries(ctx, mrn)
	if err != nil {
		return nil, err
	}
	note := BuildEMRNote(o, entries, s.now())
	if err := s.store.AppendEMRNote(ctx, o.OrderID, note); err != nil {
		return nil, fmt.Errorf("append EMR note: %w", err)
	}
	trigger := orderstate.RPATrigger{
		Timestamp:    note.Timestamp,
		ProviderName: o.Order.OrderingProvider.Name,
		ProviderNPI:  o.Order.OrderingProvider.NPI,
	}
	if err := s.store.SaveRPATrigger(ctx, o.OrderID, trigger); err != nil {
		return nil, fmt.Errorf("record RPA trigger: %w", err)
	}
	s.logger.Info().Str("order_id", o.OrderID).Int("auth_cases", len(note.AuthCases)).Msg("RPA triggered")
	return &note, nil
}

// BuildEMRNote flattens the business office entries into an EMR note.
func BuildEMRNote(o *order.Order, entries []order.BusinessOfficeEntry, now time.Time) orderstate.EMRNote {
	details := make([]string, len(entries))
	var values []string
	cases := []order.AuthCase{}
	for i, e := range entries {
		details[i] = e.DetailsText
		for _, ac := range e.AuthCases {
			values = append(values, ac.RadioButtonStatus+": "+ac.Title+" - "+ac.Status)
			cases = append(cases, ac)
		}
	}
	return orderstate.EMRNote{
		PatientMRN:    o.Patient.MRN,
		PatientName:   o.Patient.Name,
		DateOfService: pastatus.USDate(o.Order.DateOfService),
		Insurance:     o.Payer.Name,
		AuthDetails:   strings.Join(details, "\n\n---\n\n"),
		BOValue:       strings.Join(values, "; "),
		AuthCases:     cases,
		Timestamp:     orderstate.Timestamp(now),
	}
}

func nonNil(entries []order.BusinessOfficeEntry) []order.BusinessOfficeEntry {
	if entries == nil {
		return []order.BusinessOfficeEntry{}
	}
	for i := range entries {
		if entries[i].AuthCases == nil {
			entries[i].AuthCases = []order.AuthCase{}
		}
	}
	return entries
}

func cloneEntries(entries []order.BusinessOfficeEntry) []order.BusinessOfficeEntry {
	out := make([]order.BusinessOfficeEntry, len(entries))
	for i, e := range entries {
		e.AuthCases = append([]order.AuthCase{}, e.AuthCases...)
		out[i] = e
	}
	return out
}
