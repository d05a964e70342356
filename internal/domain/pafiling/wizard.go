// Package pafiling runs the prior-authorization filing wizard: a loading
// screen, the PA form, a preview and the submission that persists the
// filing.
package pafiling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/radpa/radpa/internal/domain/order"
	"github.com/radpa/radpa/internal/domain/orderstate"
)

type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateForm    State = "form"
	StatePreview State = "preview"
	StateSuccess State = "success"
)

// EntryMode selects where a wizard opens.
type EntryMode string

const (
	ModeFresh         EntryMode = "fresh"
	ModeResumeForm    EntryMode = "resumeForm"
	ModeResumePreview EntryMode = "resumePreview"
)

func (m EntryMode) Valid() bool {
	switch m {
	case ModeFresh, ModeResumeForm, ModeResumePreview:
		return true
	}
	return false
}

// RedirectFiledPA is returned when a successful filing is closed.
const RedirectFiledPA = "filed-pa"

var (
	ErrInvalidTransition = errors.New("invalid filing wizard transition")
	ErrFilingNotAllowed  = errors.New("PA filing is not available for this order")
	ErrSessionNotFound   = errors.New("filing session not found")
	ErrFormRequired      = errors.New("form data is required")
)

// ValidationError reports a PA form that failed its constraints.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "invalid PA form: " + e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// StateStore persists a completed filing.
type StateStore interface {
	EnsureAuthNumber(ctx context.Context, orderID string) (string, error)
	SaveSubmission(ctx context.Context, sub orderstate.Submission) error
}

// Snapshot is the externally visible wizard state.
type Snapshot struct {
	ID                  string               `json:"id"`
	OrderID             string               `json:"orderId"`
	MRN                 string               `json:"mrn"`
	Mode                EntryMode            `json:"mode"`
	State               State                `json:"state"`
	Progress            *Progress            `json:"progress,omitempty"`
	FormData            *orderstate.FormData `json:"formData,omitempty"`
	AuthorizationNumber string               `json:"authorizationNumber,omitempty"`
	Redirect            string               `json:"redirect,omitempty"`
}

// Wizard is a single filing session for one order.
type Wizard struct {
	mu         sync.Mutex
	id         string
	orderID    string
	order      order.Order
	mode       EntryMode
	state      State
	form       *orderstate.FormData
	authNumber string
	progress   Progress
	redirect   string
	cancel     context.CancelFunc
	done       chan struct{}

	store    StateStore
	validate *validator.Validate
	now      func() time.Time
	scale    float64
	logger   zerolog.Logger
}

func (w *Wizard) ID() string { return w.id }

// start opens the wizard in the given mode. It must be called once, on an
// idle wizard.
func (w *Wizard) start(mode EntryMode, form *orderstate.FormData) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateIdle {
		return ErrInvalidTransition
	}
	w.mode = mode

	switch mode {
	case ModeFresh:
		w.beginLoading()
	case ModeResumeForm:
		if form != nil {
			w.form = copyForm(form)
		} else {
			w.form = w.defaultForm()
		}
		w.state = StateForm
	case ModeResumePreview:
		if form == nil {
			return ErrFormRequired
		}
		if err := w.validateForm(form); err != nil {
			return err
		}
		w.form = copyForm(form)
		w.state = StatePreview
	default:
		return fmt.Errorf("unknown entry mode %q: %w", mode, ErrInvalidTransition)
	}
	w.logger.Info().Str("mode", string(mode)).Str("state", string(w.state)).Msg("filing wizard started")
	return nil
}

// beginLoading must hold mu.
func (w *Wizard) beginLoading() {
	w.state = StateLoading
	w.progress = newProgress()
	w.done = make(chan struct{})

	if w.scale == 0 {
		w.progress.Current = len(LoadingSteps) - 1
		w.progress.Completed = len(LoadingSteps)
		w.finishLoading()
		close(w.done)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	go func() {
		defer close(w.done)
		err := runLoading(ctx, w.scale, func(current, completed int) {
			w.mu.Lock()
			w.progress.Current = current
			w.progress.Completed = completed
			w.mu.Unlock()
		})
		if err != nil {
			return
		}
		w.mu.Lock()
		if w.state == StateLoading {
			w.finishLoading()
		}
		w.mu.Unlock()
	}()
}

// finishLoading must hold mu.
func (w *Wizard) finishLoading() {
	if w.form == nil {
		w.form = w.defaultForm()
	}
	w.state = StateForm
	w.logger.Debug().Msg("filing wizard loading complete")
}

// Loaded returns a channel closed once the loading sequence stops, or nil
// if the wizard never loaded.
func (w *Wizard) Loaded() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done
}

// LoadingComplete ends the loading screen early and opens the form.
func (w *Wizard) LoadingComplete() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateLoading {
		return ErrInvalidTransition
	}
	w.stopLoading()
	w.progress.Completed = len(LoadingSteps)
	w.finishLoading()
	return nil
}

// Continue validates form and moves to the preview. The preview shows
// exactly the snapshot taken here.
func (w *Wizard) Continue(form orderstate.FormData) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateForm {
		return ErrInvalidTransition
	}
	if err := w.validateForm(&form); err != nil {
		return err
	}
	w.form = copyForm(&form)
	w.state = StatePreview
	return nil
}

func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StatePreview {
		return ErrInvalidTransition
	}
	w.state = StateForm
	return nil
}

// Submit persists the previewed form. The authorization number is reused
// when the order already has one.
func (w *Wizard) Submit(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StatePreview {
		return ErrInvalidTransition
	}

	authNumber, err := w.store.EnsureAuthNumber(ctx, w.order.OrderID)
	if err != nil {
		return fmt.Errorf("ensure auth number: %w", err)
	}
	sub := orderstate.Submission{
		OrderID:             w.order.OrderID,
		SubmittedAt:         orderstate.Timestamp(w.now()),
		FormData:            *copyForm(w.form),
		AuthorizationNumber: authNumber,
	}
	if err := w.store.SaveSubmission(ctx, sub); err != nil {
		return fmt.Errorf("save submission: %w", err)
	}

	w.order = order.ApplySubmission(w.order, w.form.Attachments)
	w.authNumber = authNumber
	w.state = StateSuccess
	w.logger.Info().Str("auth_number", authNumber).Msg("PA submitted")
	return nil
}

// Close dismisses the form or the success screen. Closing after success
// returns RedirectFiledPA.
func (w *Wizard) Close() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.state {
	case StateForm:
		w.redirect = ""
	case StateSuccess:
		w.redirect = RedirectFiledPA
	default:
		return "", ErrInvalidTransition
	}
	w.state = StateIdle
	return w.redirect, nil
}

// Cancel abandons the wizard from any state. A submission already saved
// stays saved.
func (w *Wizard) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLoading()
	w.state = StateIdle
}

// stopLoading must hold mu.
func (w *Wizard) stopLoading() {
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}

func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Order returns the wizard's order, with the submission applied once
// filed.
func (w *Wizard) Order() order.Order {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.order.Clone()
}

func (w *Wizard) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := Snapshot{
		ID:                  w.id,
		OrderID:             w.order.OrderID,
		MRN:                 w.order.Patient.MRN,
		Mode:                w.mode,
		State:               w.state,
		AuthorizationNumber: w.authNumber,
		Redirect:            w.redirect,
	}
	if w.state == StateLoading {
		p := w.progress
		p.Steps = append([]string(nil), w.progress.Steps...)
		s.Progress = &p
	}
	if w.form != nil {
		s.FormData = copyForm(w.form)
	}
	return s
}

func (w *Wizard) defaultForm() *orderstate.FormData {
	f := DefaultForm(&w.order)
	return &f
}

func (w *Wizard) validateForm(f *orderstate.FormData) error {
	if err := w.validate.Struct(f); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

func copyForm(f *orderstate.FormData) *orderstate.FormData {
	c := *f
	c.Diagnoses = append([]orderstate.Diagnosis(nil), f.Diagnoses...)
	c.Procedures = append([]orderstate.Procedure(nil), f.Procedures...)
	if f.Attachments != nil {
		c.Attachments = append([]order.Document{}, f.Attachments...)
	}
	return &c
}
