package orderstate

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radpa/radpa/internal/domain/order"
	"github.com/radpa/radpa/internal/platform/kvstore"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *kvstore.Memory) {
	t.Helper()
	kv := kvstore.NewMemory()
	return NewStore(NewKVRepository(kv), WithClock(func() time.Time { return fixedNow })), kv
}

// failingKV fails every call.
type failingKV struct{ kvstore.Memory }

func (f *failingKV) Get(context.Context, string) (string, error) { return "", errors.New("down") }
func (f *failingKV) Set(context.Context, string, string) error   { return errors.New("down") }
func (f *failingKV) Del(context.Context, ...string) error        { return errors.New("down") }

func TestNamespace_Key(t *testing.T) {
	assert.Equal(t, "pa-submission-RAD-004", PASubmission.Key("RAD-004"))
	assert.Equal(t, "processing_request_RAD-006", ProcessingRequest.Key("RAD-006"))
	assert.Equal(t, "oncoemr-notes", OncoEMRNotes.Key("RAD-006"))
}

func TestStore_Submission_RoundTrip(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	_, err := s.Submission(ctx, "RAD-004")
	assert.ErrorIs(t, err, ErrNotFound)
	has, err := s.HasSubmission(ctx, "RAD-004")
	require.NoError(t, err)
	assert.False(t, has)

	sub := Submission{
		OrderID:     "RAD-004",
		SubmittedAt: Timestamp(fixedNow),
		FormData: FormData{
			Diagnoses:   []Diagnosis{{ICDCode: "G43.909"}},
			Procedures:  []Procedure{{Code: "70553", ServiceQuantity: "1"}},
			FromDate:    "2025-03-20",
			Attachments: []order.Document{{ID: "DOC-1", Name: "Clinical Note"}},
		},
		AuthorizationNumber: "AUTH-1",
	}
	require.NoError(t, s.SaveSubmission(ctx, sub))

	raw, err := kv.Get(ctx, "pa-submission-RAD-004")
	require.NoError(t, err)
	assert.Contains(t, raw, `"submittedAt":"2025-03-14T09:30:00.000Z"`)

	got, err := s.Submission(ctx, "RAD-004")
	require.NoError(t, err)
	assert.Equal(t, sub, *got)

	docs, found, err := s.SubmittedAttachments(ctx, "RAD-004")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, docs, 1)
}

func TestStore_SubmittedAttachments_Missing(t *testing.T) {
	s, _ := newTestStore(t)
	docs, found, err := s.SubmittedAttachments(context.Background(), "RAD-001")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, docs)
}

func TestStore_SubmittedAttachments_Corrupt(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, "pa-submission-RAD-004", "{not json"))

	_, _, err := s.SubmittedAttachments(ctx, "RAD-004")
	assert.Error(t, err)
}

func TestStore_SatisfiesSubmissionSource(t *testing.T) {
	var _ order.SubmissionSource = (*Store)(nil)
}

func TestStore_EnsureAuthNumber_Idempotent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	first, err := s.EnsureAuthNumber(ctx, "RAD-009")
	require.NoError(t, err)
	assert.Equal(t, "AUTH-"+strconv.FormatInt(fixedNow.UnixMilli(), 10), first)

	s.now = func() time.Time { return fixedNow.Add(time.Hour) }
	second, err := s.EnsureAuthNumber(ctx, "RAD-009")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	stored, err := s.AuthNumber(ctx, "RAD-009")
	require.NoError(t, err)
	assert.Equal(t, first, stored)
}

func TestStore_CaseComplete(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	done, err := s.IsCaseComplete(ctx, "RAD-003")
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, s.MarkCaseComplete(ctx, "RAD-003"))
	done, err = s.IsCaseComplete(ctx, "RAD-003")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestStore_ResetSubmission(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSubmission(ctx, Submission{OrderID: "RAD-005"}))
	_, err := s.EnsureAuthNumber(ctx, "RAD-005")
	require.NoError(t, err)
	require.NoError(t, s.MarkCaseComplete(ctx, "RAD-005"))
	require.NoError(t, s.SaveBONotes(ctx, "RAD-005", []order.BusinessOfficeEntry{{Date: "03/14/2025"}}))

	require.NoError(t, s.ResetSubmission(ctx, "RAD-005"))

	has, _ := s.HasSubmission(ctx, "RAD-005")
	assert.False(t, has)
	_, err = s.AuthNumber(ctx, "RAD-005")
	assert.ErrorIs(t, err, ErrNotFound)
	done, _ := s.IsCaseComplete(ctx, "RAD-005")
	assert.False(t, done)

	notes, err := s.BONotes(ctx, "RAD-005")
	require.NoError(t, err)
	assert.Len(t, notes, 1, "business office notes survive a submission reset")
}

func TestStore_ProcessingRequest(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	pr := ProcessingRequestRecord{Type: RequestUpload, Timestamp: Timestamp(fixedNow), FileName: "notes.pdf", FileSize: 1024, FileType: "application/pdf"}
	require.NoError(t, s.SaveProcessingRequest(ctx, "RAD-006", pr))

	got, err := s.ProcessingRequest(ctx, "RAD-006")
	require.NoError(t, err)
	assert.Equal(t, pr, *got)

	require.NoError(t, s.ClearProcessingRequest(ctx, "RAD-006"))
	_, err = s.ProcessingRequest(ctx, "RAD-006")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_RPATrigger(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	trig := RPATrigger{Timestamp: Timestamp(fixedNow), ProviderName: "Dr. Chen", ProviderNPI: "1234567890"}
	require.NoError(t, s.SaveRPATrigger(ctx, "RAD-007", trig))
	got, err := s.RPATrigger(ctx, "RAD-007")
	require.NoError(t, err)
	assert.Equal(t, trig, *got)

	require.NoError(t, s.ClearRPATrigger(ctx, "RAD-007"))
	_, err = s.RPATrigger(ctx, "RAD-007")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_EMRNotes_Append(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	notes, err := s.EMRNotes(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)

	require.NoError(t, s.AppendEMRNote(ctx, "RAD-004", EMRNote{PatientMRN: "MRN100204"}))
	require.NoError(t, s.AppendEMRNote(ctx, "RAD-006", EMRNote{PatientMRN: "MRN100206"}))

	notes, err = s.EMRNotes(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "MRN100204", notes[0].PatientMRN)
	assert.Equal(t, "MRN100206", notes[1].PatientMRN)

	n, err := s.EMRNote(ctx, "RAD-006")
	require.NoError(t, err)
	assert.Equal(t, "MRN100206", n.PatientMRN)
}

func TestStore_DumpAndClearAll(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.MarkCaseComplete(ctx, "RAD-002"))
	require.NoError(t, s.SaveProcessingRequest(ctx, "RAD-002", ProcessingRequestRecord{Type: RequestRequest}))

	dump, err := s.Dump(ctx, "RAD-002")
	require.NoError(t, err)
	assert.Len(t, dump, 2)
	assert.Equal(t, "true", dump["case-complete-RAD-002"])

	require.NoError(t, s.ClearAll(ctx, "RAD-002"))
	dump, err = s.Dump(ctx, "RAD-002")
	require.NoError(t, err)
	assert.Empty(t, dump)
}

func TestStore_StrayKeys(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "processing_request_MRN100206", `{"type":"request"}`))
	require.NoError(t, kv.Set(ctx, "bo-notes-MRN100206", `[]`))
	require.NoError(t, kv.Set(ctx, "processing_request_MRN100207", `{"type":"request"}`))
	require.NoError(t, s.SaveProcessingRequest(ctx, "RAD-006", ProcessingRequestRecord{Type: RequestUpload}))

	stray, err := s.StrayKeys(ctx, "RAD-006", "MRN100206")
	require.NoError(t, err)
	assert.Equal(t, []string{"processing_request_MRN100206", "bo-notes-MRN100206"}, stray)

	stray, err = s.StrayKeys(ctx, "RAD-001", "MRN100201")
	require.NoError(t, err)
	assert.Empty(t, stray)
}

func TestStore_BackendErrors(t *testing.T) {
	s := NewStore(NewKVRepository(&failingKV{}))
	ctx := context.Background()

	_, err := s.EnsureAuthNumber(ctx, "RAD-001")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	_, err = s.IsCaseComplete(ctx, "RAD-001")
	assert.Error(t, err)

	_, _, err = s.SubmittedAttachments(ctx, "RAD-001")
	assert.Error(t, err)

	assert.Error(t, s.ResetSubmission(ctx, "RAD-001"))
}
