package order

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed data/orders.json
var embeddedOrders []byte

// Dataset is the read-only source of order records.
type Dataset interface {
	Orders(ctx context.Context) ([]Order, error)
}

type datasetFile struct {
	RadiologyPAOrders []Order `json:"radiologyPAOrders"`
}

// StaticDataset serves a dataset parsed once at construction. Each call to
// Orders returns deep copies, so callers may mutate freely.
type StaticDataset struct {
	orders []Order
}

// NewEmbeddedDataset parses the dataset compiled into the binary.
func NewEmbeddedDataset() (*StaticDataset, error) {
	return ParseDataset(embeddedOrders)
}

// NewFileDataset parses a dataset override from disk.
func NewFileDataset(path string) (*StaticDataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return ParseDataset(data)
}

// ParseDataset decodes a {"radiologyPAOrders": [...]} document.
func ParseDataset(data []byte) (*StaticDataset, error) {
	var f datasetFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	seen := make(map[string]bool, len(f.RadiologyPAOrders))
	for _, o := range f.RadiologyPAOrders {
		if o.OrderID == "" {
			return nil, fmt.Errorf("decode dataset: order without orderId")
		}
		if seen[o.OrderID] {
			return nil, fmt.Errorf("decode dataset: duplicate orderId %s", o.OrderID)
		}
		seen[o.OrderID] = true
	}
	return &StaticDataset{orders: f.RadiologyPAOrders}, nil
}

// NewStaticDataset wraps orders already in memory.
func NewStaticDataset(orders ...Order) *StaticDataset {
	return &StaticDataset{orders: orders}
}

func (d *StaticDataset) Orders(_ context.Context) ([]Order, error) {
	out := make([]Order, len(d.orders))
	for i, o := range d.orders {
		out[i] = o.Clone()
	}
	return out, nil
}
