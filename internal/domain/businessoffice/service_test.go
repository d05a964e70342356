package businessoffice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/radpa/radpa/internal/domain/order"
	"github.com/radpa/radpa/internal/domain/orderstate"
	"github.com/radpa/radpa/internal/platform/kvstore"
)

var testNow = time.Date(2025, 12, 9, 14, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *orderstate.Store) {
	t.Helper()
	ds, err := order.NewEmbeddedDataset()
	if err != nil {
		t.Fatalf("load dataset: %v", err)
	}
	store := orderstate.NewStore(orderstate.NewKVRepository(kvstore.NewMemory()),
		orderstate.WithClock(func() time.Time { return testNow }))
	return NewService(order.NewService(ds, store), store, zerolog.Nop()), store
}

func TestEntries_DatasetEntries(t *testing.T) {
	svc, _ := newTestService(t)
	o, entries, err := svc.Entries(context.Background(), "MRN100204")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.OrderID != "RAD-004" {
		t.Errorf("expected RAD-004, got %s", o.OrderID)
	}
	if len(entries) != 1 || entries[0].Date != "12/11/2025" || len(entries[0].AuthCases) != 1 {
		t.Errorf("unexpected dataset entries %+v", entries)
	}
}

func TestEntries_Template(t *testing.T) {
	svc, _ := newTestService(t)
	_, entries, err := svc.Entries(context.Background(), "MRN100206")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one template entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Date != "12/09/2025" {
		t.Errorf("unexpected date %q", e.Date)
	}
	want := "Details: Date: 12/9/2025, Initials: , As per Insurance Cigna- Active (1/1/2025),\n\nPrior Auth Questions:\n\n"
	if e.DetailsText != want {
		t.Errorf("unexpected details\n got: %q\nwant: %q", e.DetailsText, want)
	}
	if e.AuthCases == nil || len(e.AuthCases) != 0 {
		t.Errorf("expected empty auth cases, got %+v", e.AuthCases)
	}
}

func TestEntries_SavedWins(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	saved := []order.BusinessOfficeEntry{{Date: "12/01/2025", DetailsText: "edited"}}
	if _, err := svc.Save(ctx, "MRN100204", saved); err != nil {
		t.Fatalf("save: %v", err)
	}
	_, entries, _ := svc.Entries(ctx, "MRN100204")
	if len(entries) != 1 || entries[0].DetailsText != "edited" {
		t.Errorf("expected saved entries, got %+v", entries)
	}
	if entries[0].AuthCases == nil {
		t.Error("auth cases should decode as empty, not nil")
	}
}

func TestEntries_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	if _, _, err := svc.Entries(context.Background(), "MRN000000"); !errors.Is(err, order.ErrNotFound) {
		t.Errorf("expected order.ErrNotFound, got %v", err)
	}
}

func TestRefreshTemplates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	svc.Save(ctx, "MRN100204", []order.BusinessOfficeEntry{{DetailsText: "edited"}})
	entries, err := svc.RefreshTemplates(ctx, "MRN100204")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(entries) != 1 || entries[0].Date != "12/11/2025" {
		t.Errorf("expected dataset entries, got %+v", entries)
	}
	_, current, _ := svc.Entries(ctx, "MRN100204")
	if current[0].DetailsText == "edited" {
		t.Error("refresh did not replace saved notes")
	}

	if _, err := svc.RefreshTemplates(ctx, "MRN100206"); !errors.Is(err, ErrNoTemplates) {
		t.Errorf("expected ErrNoTemplates, got %v", err)
	}
}

func TestAddEntry_Prepends(t *testing.T) {
	svc, _ := newTestService(t)
	entries, err := svc.AddEntry(context.Background(), "MRN100204")
	if err != nil {
		t.Fatalf("add entry: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Date != "12/09/2025" || entries[0].DetailsText != "" || len(entries[0].AuthCases) != 0 {
		t.Errorf("unexpected new entry %+v", entries[0])
	}
	if entries[1].Date != "12/11/2025" {
		t.Errorf("existing entry moved: %+v", entries[1])
	}
}

func TestAuthCases(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	entries, err := svc.AddAuthCase(ctx, "MRN100204", 0)
	if err != nil {
		t.Fatalf("add case: %v", err)
	}
	cases := entries[0].AuthCases
	if len(cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(cases))
	}
	want := order.AuthCase{ID: "1765288800000", RadioButtonStatus: "AuthMate-Pending", Title: "Authmate Case", Status: "Pending"}
	if cases[1] != want {
		t.Errorf("got %+v, want %+v", cases[1], want)
	}

	entries, err = svc.DeleteAuthCase(ctx, "MRN100204", 0, 0)
	if err != nil {
		t.Fatalf("delete case: %v", err)
	}
	if len(entries[0].AuthCases) != 1 || entries[0].AuthCases[0].ID != want.ID {
		t.Errorf("expected only the new case left, got %+v", entries[0].AuthCases)
	}

	if _, err := svc.AddAuthCase(ctx, "MRN100204", 3); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("expected ErrEntryNotFound, got %v", err)
	}
	if _, err := svc.DeleteAuthCase(ctx, "MRN100204", 0, 9); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestTriggerRPA(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	svc.AddEntry(ctx, "MRN100204")
	_, entries, _ := svc.Entries(ctx, "MRN100204")
	entries[0].DetailsText = "Follow-up call"
	svc.Save(ctx, "MRN100204", entries)

	note, err := svc.TriggerRPA(ctx, "MRN100204")
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if note.PatientMRN != "MRN100204" || note.PatientName != "Calvin Okafor" || note.Insurance != "Aetna" {
		t.Errorf("unexpected header %+v", note)
	}
	if note.DateOfService != "12/20/2025" {
		t.Errorf("unexpected date of service %q", note.DateOfService)
	}
	wantDetails := "Follow-up call\n\n---\n\n" + entries[1].DetailsText
	if note.AuthDetails != wantDetails {
		t.Errorf("unexpected auth details %q", note.AuthDetails)
	}
	if note.BOValue != "AuthMate-Pending: Authmate Case - Pending" {
		t.Errorf("unexpected bo value %q", note.BOValue)
	}
	if len(note.AuthCases) != 1 || note.Timestamp != "2025-12-09T14:00:00.000Z" {
		t.Errorf("unexpected cases/timestamp %+v", note)
	}

	all, _ := store.EMRNotes(ctx)
	if len(all) != 1 {
		t.Errorf("expected one logged note, got %d", len(all))
	}
	if _, err := store.EMRNote(ctx, "RAD-004"); err != nil {
		t.Errorf("per-order note missing: %v", err)
	}
	trig, err := store.RPATrigger(ctx, "RAD-004")
	if err != nil {
		t.Fatalf("trigger not recorded: %v", err)
	}
	if trig.ProviderName != "Dr. Alan Whitfield" || trig.ProviderNPI != "1427730855" {
		t.Errorf("unexpected trigger %+v", trig)
	}

	svc.TriggerRPA(ctx, "MRN100206")
	all, _ = store.EMRNotes(ctx)
	if len(all) != 2 || all[1].PatientMRN != "MRN100206" {
		t.Errorf("expected notes appended in order, got %+v", all)
	}
}

func TestBuildEMRNote_NoCases(t *testing.T) {
	o := &order.Order{Patient: order.Patient{MRN: "M1"}}
	note := BuildEMRNote(o, []order.BusinessOfficeEntry{{DetailsText: "a"}, {DetailsText: "b"}}, testNow)
	if note.AuthDetails != "a\n\n---\n\nb" || note.BOValue != "" {
		t.Errorf("unexpected note %+v", note)
	}
	if note.AuthCases == nil {
		t.Error("auth cases should be empty, not nil")
	}
}
