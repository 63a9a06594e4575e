package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spidr/estimate-form/pkg/clients/logsink"
	"github.com/spidr/estimate-form/pkg/models"
	"github.com/spidr/estimate-form/pkg/utils"
)

// DefaultNoticeDuration is how long the success notice stays up after a submit
const DefaultNoticeDuration = 3 * time.Second

var (
	ErrUnknownField = errors.New("unknown form field")
	ErrPINRequired  = errors.New("spidr PIN is required")
	ErrStaleChange  = errors.New("stale form change")
)

// SessionOptions tunes a form session
type SessionOptions struct {
	// NoticeDuration defaults to DefaultNoticeDuration
	NoticeDuration time.Duration
	// RequirePIN rejects submits with an empty PIN
	RequirePIN bool
	// AfterFunc schedules the notice reset; defaults to time.AfterFunc
	AfterFunc func(d time.Duration, f func())
	Logger    *zap.Logger
}

// Session holds one visitor's form state: the record being edited, the
// transient submitted flag and the PIN visibility toggle.
type Session struct {
	mu         sync.Mutex
	record     models.FormRecord
	submitted  bool
	pinVisible bool
	lastSeq    uint64

	sink           logsink.Client
	logger         *zap.Logger
	noticeDuration time.Duration
	requirePIN     bool
	afterFunc      func(d time.Duration, f func())
}

// NewSession creates an empty form session that logs submissions to sink
func NewSession(sink logsink.Client, opts SessionOptions) *Session {
	s := &Session{
		sink:           sink,
		logger:         opts.Logger,
		noticeDuration: opts.NoticeDuration,
		requirePIN:     opts.RequirePIN,
		afterFunc:      opts.AfterFunc,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.noticeDuration <= 0 {
		s.noticeDuration = DefaultNoticeDuration
	}
	if s.afterFunc == nil {
		s.afterFunc = func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		}
	}
	return s
}

// Change applies one keystroke's worth of input to a field. Phone and PIN
// are reformatted, the estimate is parsed, everything else is stored as typed.
func (s *Session) Change(field, raw string) error {
	if !models.IsField(field) {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(field, raw)
	return nil
}

// ChangeAt is Change for clients that number their edits. A seq at or below
// the last applied one arrived out of order and is rejected with
// ErrStaleChange, leaving the record untouched.
func (s *Session) ChangeAt(seq uint64, field, raw string) error {
	if !models.IsField(field) {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.lastSeq {
		return fmt.Errorf("%w: %d after %d", ErrStaleChange, seq, s.lastSeq)
	}
	s.lastSeq = seq
	s.apply(field, raw)
	return nil
}

// apply must be called with mu held
func (s *Session) apply(field, raw string) {
	value := utils.Normalize(field, raw)
	switch field {
	case models.FieldFirstName:
		s.record.FirstName = value
	case models.FieldLastName:
		s.record.LastName = value
	case models.FieldContact:
		s.record.Contact = value
	case models.FieldEmail:
		s.record.Email = value
	case models.FieldEstimate:
		s.record.Estimate = utils.ParseEstimate(raw)
	case models.FieldSpidrPin:
		s.record.SpidrPin = value
	}
}

// Submit logs the current record, clears the form and raises the submitted
// flag until the notice duration elapses. Every submit arms its own timer.
// The record is captured and the form reset under the lock; the sink is
// called after it is released and always sees the captured record, even if
// ctx is cancelled. A sink failure is returned but the form stays reset.
func (s *Session) Submit(ctx context.Context) (models.SubmittedRecord, error) {
	s.mu.Lock()
	if s.requirePIN && s.record.SpidrPin == "" {
		s.mu.Unlock()
		return models.SubmittedRecord{}, ErrPINRequired
	}

	submitted := project(s.record)
	s.submitted = true
	s.record = models.FormRecord{}
	s.mu.Unlock()

	sinkErr := s.sink.Record(context.WithoutCancel(ctx), submitted)
	s.afterFunc(s.noticeDuration, s.clearSubmitted)

	if sinkErr != nil {
		s.logger.Warn("Error logging form submission", zap.Error(sinkErr))
		return submitted, fmt.Errorf("error logging submission: %w", sinkErr)
	}
	return submitted, nil
}

func (s *Session) clearSubmitted() {
	s.mu.Lock()
	s.submitted = false
	s.mu.Unlock()
}

// TogglePIN flips whether the PIN is shown in plain text
func (s *Session) TogglePIN() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pinVisible = !s.pinVisible
	return s.pinVisible
}

// Snapshot returns the current state for rendering
func (s *Session) Snapshot() models.FormView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := models.FormView{
		Record:       s.record,
		Submitted:    s.submitted,
		PinVisible:   s.pinVisible,
		PinInputType: "password",
		PinToggle:    "Show",
		Seq:          s.lastSeq,
	}
	if s.pinVisible {
		view.PinInputType = "text"
		view.PinToggle = "Hide"
	}
	return view
}

func project(r models.FormRecord) models.SubmittedRecord {
	return models.SubmittedRecord{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Contact:   r.Contact,
		Email:     r.Email,
		Estimate:  utils.FormatUSD(r.Estimate),
		SpidrPin:  r.SpidrPin,
	}
}
