package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spidr/estimate-form/pkg/clients/logsink"
	"github.com/spidr/estimate-form/pkg/models"
)

type fakeTimers struct {
	mu      sync.Mutex
	delays  []time.Duration
	pending []func()
}

func (f *fakeTimers) AfterFunc(d time.Duration, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delays = append(f.delays, d)
	f.pending = append(f.pending, fn)
}

func (f *fakeTimers) fire() {
	f.mu.Lock()
	pending := f.pending
	f.pending = nil
	f.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

type fakeSink struct {
	records []models.SubmittedRecord
	err     error
}

func (f *fakeSink) Record(_ context.Context, r models.SubmittedRecord) error {
	f.records = append(f.records, r)
	return f.err
}

type sinkFunc func(ctx context.Context, r models.SubmittedRecord) error

func (f sinkFunc) Record(ctx context.Context, r models.SubmittedRecord) error {
	return f(ctx, r)
}

func newTestSession(sink logsink.Client, requirePIN bool) (*Session, *fakeTimers) {
	timers := &fakeTimers{}
	s := NewSession(sink, SessionOptions{
		RequirePIN: requirePIN,
		AfterFunc:  timers.AfterFunc,
	})
	return s, timers
}

func TestChangeNormalizesFields(t *testing.T) {
	s, _ := newTestSession(&fakeSink{}, false)

	require.NoError(t, s.Change(models.FieldContact, "5551234567abc"))
	require.NoError(t, s.Change(models.FieldSpidrPin, "123456789012345678"))
	require.NoError(t, s.Change(models.FieldEstimate, "abc"))
	require.NoError(t, s.Change(models.FieldFirstName, "Ada"))

	got := s.Snapshot().Record
	want := models.FormRecord{
		FirstName: "Ada",
		Contact:   "(555) 123-4567",
		SpidrPin:  "1234-5678-9012-3456",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestChangeIsPartialUpdate(t *testing.T) {
	s, _ := newTestSession(&fakeSink{}, false)

	require.NoError(t, s.Change(models.FieldEmail, "ada@example.com"))
	require.NoError(t, s.Change(models.FieldLastName, "Lovelace"))
	require.NoError(t, s.Change(models.FieldLastName, "Byron"))

	got := s.Snapshot().Record
	assert.Equal(t, "ada@example.com", got.Email)
	assert.Equal(t, "Byron", got.LastName)
}

func TestChangeRejectsUnknownField(t *testing.T) {
	s, _ := newTestSession(&fakeSink{}, false)

	err := s.Change("favoriteColor", "blue")
	assert.ErrorIs(t, err, ErrUnknownField)
	assert.Equal(t, models.FormRecord{}, s.Snapshot().Record)
}

func TestChangeAtRejectsOutOfOrderEdits(t *testing.T) {
	s, _ := newTestSession(&fakeSink{}, false)

	require.NoError(t, s.ChangeAt(2, models.FieldContact, "55"))
	err := s.ChangeAt(1, models.FieldContact, "5")
	assert.ErrorIs(t, err, ErrStaleChange)
	assert.ErrorIs(t, s.ChangeAt(2, models.FieldContact, "555"), ErrStaleChange)

	view := s.Snapshot()
	assert.Equal(t, "(55", view.Record.Contact)
	assert.Equal(t, uint64(2), view.Seq)

	require.NoError(t, s.ChangeAt(3, models.FieldContact, "555"))
	assert.Equal(t, "(555", s.Snapshot().Record.Contact)
}

func TestChangeAtUnknownFieldKeepsSeq(t *testing.T) {
	s, _ := newTestSession(&fakeSink{}, false)

	assert.ErrorIs(t, s.ChangeAt(5, "favoriteColor", "blue"), ErrUnknownField)
	assert.Zero(t, s.Snapshot().Seq)
	assert.NoError(t, s.ChangeAt(1, models.FieldFirstName, "Ada"))
}

func TestSeqSurvivesSubmit(t *testing.T) {
	s, _ := newTestSession(&fakeSink{}, false)
	require.NoError(t, s.ChangeAt(4, models.FieldFirstName, "Ada"))

	_, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(4), s.Snapshot().Seq)
	assert.ErrorIs(t, s.ChangeAt(3, models.FieldFirstName, "late"), ErrStaleChange)
	assert.Empty(t, s.Snapshot().Record.FirstName)
}

func TestSubmitLogsResetsAndClearsNotice(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s, timers := newTestSession(logsink.NewClient(zap.New(core)), false)

	require.NoError(t, s.Change(models.FieldFirstName, "Ada"))
	require.NoError(t, s.Change(models.FieldEstimate, "1234.5"))

	record, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "$1,234.50", record.Estimate)
	assert.Equal(t, "Ada", record.FirstName)

	entries := logs.FilterMessage(logsink.Message).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "$1,234.50", entries[0].ContextMap()["estimate"])

	view := s.Snapshot()
	assert.True(t, view.Submitted)
	assert.Equal(t, models.FormRecord{}, view.Record)

	require.Equal(t, []time.Duration{DefaultNoticeDuration}, timers.delays)
	timers.fire()
	assert.False(t, s.Snapshot().Submitted)
}

func TestDoubleSubmitArmsTwoTimers(t *testing.T) {
	sink := &fakeSink{}
	s, timers := newTestSession(sink, false)

	_, err := s.Submit(context.Background())
	require.NoError(t, err)
	_, err = s.Submit(context.Background())
	require.NoError(t, err)

	assert.Len(t, sink.records, 2)
	assert.Len(t, timers.delays, 2)

	timers.fire()
	assert.False(t, s.Snapshot().Submitted)
}

func TestSubmitWithoutPINWhenRequired(t *testing.T) {
	sink := &fakeSink{}
	s, timers := newTestSession(sink, true)
	require.NoError(t, s.Change(models.FieldFirstName, "Ada"))

	_, err := s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrPINRequired)
	assert.Empty(t, sink.records)
	assert.Empty(t, timers.delays)
	assert.Equal(t, "Ada", s.Snapshot().Record.FirstName)
	assert.False(t, s.Snapshot().Submitted)

	require.NoError(t, s.Change(models.FieldSpidrPin, "1234"))
	_, err = s.Submit(context.Background())
	assert.NoError(t, err)
}

func TestSubmitSinkFailureStillResets(t *testing.T) {
	sinkErr := errors.New("sink down")
	s, timers := newTestSession(&fakeSink{err: sinkErr}, false)
	require.NoError(t, s.Change(models.FieldEmail, "a@b.c"))

	record, err := s.Submit(context.Background())
	assert.ErrorIs(t, err, sinkErr)
	assert.Equal(t, "a@b.c", record.Email)
	assert.True(t, s.Snapshot().Submitted)
	assert.Equal(t, models.FormRecord{}, s.Snapshot().Record)
	assert.Len(t, timers.delays, 1)
}

func TestSubmitWithCancelledContextStillLogs(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s, timers := newTestSession(logsink.NewClient(zap.New(core)), false)
	require.NoError(t, s.Change(models.FieldFirstName, "Ada"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	record, err := s.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ada", record.FirstName)

	entries := logs.FilterMessage(logsink.Message).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Ada", entries[0].ContextMap()["firstName"])
	assert.True(t, s.Snapshot().Submitted)
	assert.Equal(t, models.FormRecord{}, s.Snapshot().Record)
	assert.Len(t, timers.delays, 1)
}

func TestSinkRunsOutsideSessionLock(t *testing.T) {
	var s *Session
	var seen models.FormView
	sink := sinkFunc(func(ctx context.Context, r models.SubmittedRecord) error {
		// Re-entering the session would deadlock if the lock were still held
		seen = s.Snapshot()
		return ctx.Err()
	})
	s, _ = newTestSession(sink, false)
	require.NoError(t, s.Change(models.FieldEmail, "a@b.c"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		record, err := s.Submit(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, "a@b.c", record.Email)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("submit blocked while the sink read the session")
	}
	assert.True(t, seen.Submitted)
	assert.Equal(t, models.FormRecord{}, seen.Record)
}

func TestTogglePINTwiceRestoresMask(t *testing.T) {
	s, _ := newTestSession(&fakeSink{}, false)
	require.NoError(t, s.Change(models.FieldSpidrPin, "1234"))

	before := s.Snapshot()
	assert.Equal(t, "password", before.PinInputType)
	assert.Equal(t, "Show", before.PinToggle)

	assert.True(t, s.TogglePIN())
	shown := s.Snapshot()
	assert.Equal(t, "text", shown.PinInputType)
	assert.Equal(t, "Hide", shown.PinToggle)

	assert.False(t, s.TogglePIN())
	after := s.Snapshot()
	assert.Equal(t, before, after)
	assert.Equal(t, "1234", after.Record.SpidrPin)
}

func TestPINVisibilitySurvivesSubmit(t *testing.T) {
	s, _ := newTestSession(&fakeSink{}, false)
	s.TogglePIN()

	_, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Snapshot().PinVisible)
}

func TestNoticeClearsWithRealTimer(t *testing.T) {
	s := NewSession(&fakeSink{}, SessionOptions{NoticeDuration: 20 * time.Millisecond})

	_, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Snapshot().Submitted)

	assert.Eventually(t, func() bool {
		return !s.Snapshot().Submitted
	}, time.Second, 5*time.Millisecond)
}

func TestProcessSubmissionAppliesEveryField(t *testing.T) {
	sink := &fakeSink{}
	s, _ := newTestSession(sink, true)

	record, err := ProcessSubmission(context.Background(), s, models.RawSubmission{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Contact:   "555.123.4567",
		Email:     "ada@example.com",
		Estimate:  "99.999",
		SpidrPin:  "1111222233334444",
	})
	require.NoError(t, err)

	want := models.SubmittedRecord{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Contact:   "(555) 123-4567",
		Email:     "ada@example.com",
		Estimate:  "$100.00",
		SpidrPin:  "1111-2222-3333-4444",
	}
	if diff := cmp.Diff(want, record); diff != "" {
		t.Fatalf("submitted record mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, sink.records, 1)
}
