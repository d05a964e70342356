package pafiling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/radpa/radpa/internal/domain/order"
	"github.com/radpa/radpa/internal/domain/orderstate"
	"github.com/radpa/radpa/internal/domain/pastatus"
)

// OrderSource resolves a patient MRN to its current order.
type OrderSource interface {
	GetByMRN(ctx context.Context, mrn string) (*order.Order, error)
}

// Store is the state the manager reads and writes.
type Store interface {
	StateStore
	IsCaseComplete(ctx context.Context, orderID string) (bool, error)
}

// Manager tracks the filing sessions. Each order has at most one live
// wizard; starting another cancels the previous one.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Wizard
	byOrder  map[string]string

	orders   OrderSource
	store    Store
	validate *validator.Validate
	scale    float64
	now      func() time.Time
	logger   zerolog.Logger
}

type Option func(*Manager)

// WithLoadingScale multiplies every loading delay; 0 skips the loading
// screen.
func WithLoadingScale(scale float64) Option {
	return func(m *Manager) { m.scale = scale }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(orders OrderSource, store Store, validate *validator.Validate, logger zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*Wizard),
		byOrder:  make(map[string]string),
		orders:   orders,
		store:    store,
		validate: validate,
		scale:    1,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start opens a wizard for the patient's order. A fresh start requires the
// File PA action to be available.
func (m *Manager) Start(ctx context.Context, mrn string, mode EntryMode, form *orderstate.FormData) (*Wizard, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown entry mode %q: %w", mode, ErrInvalidTransition)
	}
	o, err := m.orders.GetByMRN(ctx, mrn)
	if err != nil {
		return nil, err
	}
	if mode == ModeFresh {
		complete, err := m.store.IsCaseComplete(ctx, o.OrderID)
		if err != nil {
			return nil, fmt.Errorf("check case complete: %w", err)
		}
		if !pastatus.FooterActions(o, complete).FilePA {
			return nil, ErrFilingNotAllowed
		}
	}

	id := uuid.New().String()
	w := &Wizard{
		id:       id,
		orderID:  o.OrderID,
		order:    o.Clone(),
		state:    StateIdle,
		store:    m.store,
		validate: m.validate,
		now:      m.now,
		scale:    m.scale,
		logger:   m.logger.With().Str("session_id", id).Str("order_id", o.OrderID).Logger(),
	}
	if err := w.start(mode, form); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if prev, ok := m.sessions[m.byOrder[o.OrderID]]; ok {
		prev.Cancel()
		delete(m.sessions, prev.id)
		m.logger.Debug().Str("session_id", prev.id).Str("order_id", o.OrderID).Msg("filing wizard replaced")
	}
	m.sessions[id] = w
	m.byOrder[o.OrderID] = id
	m.mu.Unlock()
	return w, nil
}

func (m *Manager) Get(id string) (*Wizard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return w, nil
}

// Close dismisses the wizard and forgets the session.
func (m *Manager) Close(id string) (Snapshot, error) {
	w, err := m.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	if _, err := w.Close(); err != nil {
		return Snapshot{}, err
	}
	m.forget(w)
	return w.Snapshot(), nil
}

// Cancel abandons the wizard from any state and forgets the session.
func (m *Manager) Cancel(id string) error {
	w, err := m.Get(id)
	if err != nil {
		return err
	}
	w.Cancel()
	m.forget(w)
	return nil
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown cancels every live wizard.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, w := range m.sessions {
		w.Cancel()
		delete(m.sessions, id)
	}
	m.byOrder = make(map[string]string)
}

func (m *Manager) forget(w *Wizard) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, w.id)
	if m.byOrder[w.orderID] == w.id {
		delete(m.byOrder, w.orderID)
	}
}
