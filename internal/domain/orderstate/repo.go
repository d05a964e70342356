package orderstate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/radpa/radpa/internal/platform/kvstore"
)

// ErrNotFound is returned when no value is stored under a key.
var ErrNotFound = errors.New("order state not found")

// Namespace is a key prefix. A value's key is the namespace followed by the
// order id, except for OncoEMRNotes which is a single global key.
type Namespace string

const (
	PASubmission      Namespace = "pa-submission-"
	AuthNumber        Namespace = "auth-number-"
	CaseComplete      Namespace = "case-complete-"
	ProcessingRequest Namespace = "processing_request_"
	RPATriggered      Namespace = "rpa-triggered-"
	BONotes           Namespace = "bo-notes-"
	OncoEMRNote       Namespace = "oncoemr-note-"
	OncoEMRNotes      Namespace = "oncoemr-notes"
)

// PerOrder lists every namespace keyed by order id.
var PerOrder = []Namespace{
	PASubmission, AuthNumber, CaseComplete, ProcessingRequest,
	RPATriggered, BONotes, OncoEMRNote,
}

func (n Namespace) Key(orderID string) string {
	if n == OncoEMRNotes {
		return string(n)
	}
	return string(n) + orderID
}

// Repository isolates every string-keyed state read and write.
type Repository interface {
	Get(ctx context.Context, orderID string, ns Namespace) (string, error)
	Set(ctx context.Context, orderID string, ns Namespace, value string) error
	Clear(ctx context.Context, orderID string, ns ...Namespace) error
	IDs(ctx context.Context, ns Namespace) ([]string, error)
}

// KVRepository implements Repository over a kvstore backend.
type KVRepository struct {
	kv kvstore.Store
}

func NewKVRepository(kv kvstore.Store) *KVRepository {
	return &KVRepository{kv: kv}
}

func (r *KVRepository) Get(ctx context.Context, orderID string, ns Namespace) (string, error) {
	v, err := r.kv.Get(ctx, ns.Key(orderID))
	if errors.Is(err, kvstore.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", ns.Key(orderID), err)
	}
	return v, nil
}

func (r *KVRepository) Set(ctx context.Context, orderID string, ns Namespace, value string) error {
	if err := r.kv.Set(ctx, ns.Key(orderID), value); err != nil {
		return fmt.Errorf("set %s: %w", ns.Key(orderID), err)
	}
	return nil
}

// Clear removes the given namespaces for orderID; with none given it removes
// every per-order namespace.
func (r *KVRepository) Clear(ctx context.Context, orderID string, ns ...Namespace) error {
	if len(ns) == 0 {
		ns = PerOrder
	}
	keys := make([]string, len(ns))
	for i, n := range ns {
		keys[i] = n.Key(orderID)
	}
	if err := r.kv.Del(ctx, keys...); err != nil {
		return fmt.Errorf("clear %s: %w", orderID, err)
	}
	return nil
}

// IDs lists the ids that have a value stored under ns.
func (r *KVRepository) IDs(ctx context.Context, ns Namespace) ([]string, error) {
	keys, err := r.kv.Keys(ctx, string(ns))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", ns, err)
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, string(ns)))
	}
	return ids, nil
}
