package orderstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/radpa/radpa/internal/domain/order"
)

// Store layers typed, JSON-encoded accessors over a Repository.
type Store struct {
	repo   Repository
	now    func() time.Time
	logger zerolog.Logger
}

type Option func(*Store)

// WithClock overrides the time source used for timestamps and
// authorization numbers.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func NewStore(repo Repository, opts ...Option) *Store {
	s := &Store{repo: repo, now: time.Now, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store's clock reading.
func (s *Store) Now() time.Time {
	return s.now()
}

// Timestamp formats t the way stored records carry times.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

func (s *Store) getJSON(ctx context.Context, orderID string, ns Namespace, v interface{}) error {
	raw, err := s.repo.Get(ctx, orderID, ns)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode %s: %w", ns.Key(orderID), err)
	}
	return nil
}

func (s *Store) setJSON(ctx context.Context, orderID string, ns Namespace, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ns.Key(orderID), err)
	}
	if err := s.repo.Set(ctx, orderID, ns, string(data)); err != nil {
		return err
	}
	s.logger.Debug().Str("key", ns.Key(orderID)).Msg("order state written")
	return nil
}

// -- PA submission --

func (s *Store) Submission(ctx context.Context, orderID string) (*Submission, error) {
	var sub Submission
	if err := s.getJSON(ctx, orderID, PASubmission, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *Store) HasSubmission(ctx context.Context, orderID string) (bool, error) {
	_, err := s.repo.Get(ctx, orderID, PASubmission)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) SaveSubmission(ctx context.Context, sub Submission) error {
	return s.setJSON(ctx, sub.OrderID, PASubmission, sub)
}

// SubmittedAttachments lets the order service overlay stored submissions.
func (s *Store) SubmittedAttachments(ctx context.Context, orderID string) ([]order.Document, bool, error) {
	sub, err := s.Submission(ctx, orderID)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return sub.FormData.Attachments, true, nil
}

// -- Authorization number --

func (s *Store) AuthNumber(ctx context.Context, orderID string) (string, error) {
	return s.repo.Get(ctx, orderID, AuthNumber)
}

// EnsureAuthNumber returns the stored authorization number, generating
// AUTH-<unix millis> on first use.
func (s *Store) EnsureAuthNumber(ctx context.Context, orderID string) (string, error) {
	n, err := s.repo.Get(ctx, orderID, AuthNumber)
	if err == nil && n != "" {
		return n, nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", err
	}
	n = "AUTH-" + strconv.FormatInt(s.now().UnixMilli(), 10)
	if err := s.repo.Set(ctx, orderID, AuthNumber, n); err != nil {
		return "", err
	}
	s.logger.Info().Str("order_id", orderID).Str("auth_number", n).Msg("authorization number generated")
	return n, nil
}

// -- Case completion --

func (s *Store) IsCaseComplete(ctx context.Context, orderID string) (bool, error) {
	v, err := s.repo.Get(ctx, orderID, CaseComplete)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == "true", nil
}

func (s *Store) MarkCaseComplete(ctx context.Context, orderID string) error {
	return s.repo.Set(ctx, orderID, CaseComplete, "true")
}

// ResetSubmission clears the submission, its authorization number and the
// completion flag.
func (s *Store) ResetSubmission(ctx context.Context, orderID string) error {
	return s.repo.Clear(ctx, orderID, PASubmission, AuthNumber, CaseComplete)
}

// -- Issues page --

func (s *Store) ProcessingRequest(ctx context.Context, orderID string) (*ProcessingRequestRecord, error) {
	var pr ProcessingRequestRecord
	if err := s.getJSON(ctx, orderID, ProcessingRequest, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

func (s *Store) SaveProcessingRequest(ctx context.Context, orderID string, pr ProcessingRequestRecord) error {
	return s.setJSON(ctx, orderID, ProcessingRequest, pr)
}

func (s *Store) ClearProcessingRequest(ctx context.Context, orderID string) error {
	return s.repo.Clear(ctx, orderID, ProcessingRequest)
}

func (s *Store) RPATrigger(ctx context.Context, orderID string) (*RPATrigger, error) {
	var t RPATrigger
	if err := s.getJSON(ctx, orderID, RPATriggered, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) SaveRPATrigger(ctx context.Context, orderID string, t RPATrigger) error {
	return s.setJSON(ctx, orderID, RPATriggered, t)
}

func (s *Store) ClearRPATrigger(ctx context.Context, orderID string) error {
	return s.repo.Clear(ctx, orderID, RPATriggered)
}

// -- Business office --

func (s *Store) BONotes(ctx context.Context, orderID string) ([]order.BusinessOfficeEntry, error) {
	var entries []order.BusinessOfficeEntry
	if err := s.getJSON(ctx, orderID, BONotes, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) SaveBONotes(ctx context.Context, orderID string, entries []order.BusinessOfficeEntry) error {
	return s.setJSON(ctx, orderID, BONotes, entries)
}

func (s *Store) EMRNote(ctx context.Context, orderID string) (*EMRNote, error) {
	var n EMRNote
	if err := s.getJSON(ctx, orderID, OncoEMRNote, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// EMRNotes returns the global note log, oldest first.
func (s *Store) EMRNotes(ctx context.Context) ([]EMRNote, error) {
	var notes []EMRNote
	err := s.getJSON(ctx, "", OncoEMRNotes, &notes)
	if errors.Is(err, ErrNotFound) {
		return []EMRNote{}, nil
	}
	if err != nil {
		return nil, err
	}
	return notes, nil
}

// AppendEMRNote appends to the global log and stores the note for the order.
// The append is read-modify-write; concurrent appends may lose one.
func (s *Store) AppendEMRNote(ctx context.Context, orderID string, n EMRNote) error {
	notes, err := s.EMRNotes(ctx)
	if err != nil {
		return err
	}
	notes = append(notes, n)
	if err := s.setJSON(ctx, "", OncoEMRNotes, notes); err != nil {
		return err
	}
	return s.setJSON(ctx, orderID, OncoEMRNote, n)
}

// Dump returns every per-order value stored for orderID, keyed by full key.
func (s *Store) Dump(ctx context.Context, orderID string) (map[string]string, error) {
	out := make(map[string]string)
	for _, ns := range PerOrder {
		v, err := s.repo.Get(ctx, orderID, ns)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[ns.Key(orderID)] = v
	}
	return out, nil
}

// StrayKeys returns per-order keys stored under one of aliases rather than
// orderID, e.g. processing requests an older client keyed by MRN.
func (s *Store) StrayKeys(ctx context.Context, orderID string, aliases ...string) ([]string, error) {
	var out []string
	for _, ns := range PerOrder {
		ids, err := s.repo.IDs(ctx, ns)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if id == orderID {
				continue
			}
			for _, a := range aliases {
				if id == a {
					out = append(out, ns.Key(id))
					break
				}
			}
		}
	}
	return out, nil
}

// ClearAll removes every per-order value for orderID.
func (s *Store) ClearAll(ctx context.Context, orderID string) error {
	return s.repo.Clear(ctx, orderID)
}
