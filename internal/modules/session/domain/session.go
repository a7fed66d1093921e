package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	apperrors "deepwork/internal/platform/errors"
)

const SchemaVersion = 1

const (
	MaxTitleLength            = 200
	MaxReasonLength           = 500
	MaxScheduledMinutes       = 480
	DefaultInterruptThreshold = 4
)

type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusActive      Status = "active"
	StatusPaused      Status = "paused"
	StatusCompleted   Status = "completed"
	StatusInterrupted Status = "interrupted"
	StatusAbandoned   Status = "abandoned"
	StatusOverdue     Status = "overdue"
)

// Statuses lists every status a session can hold.
var Statuses = []Status{
	StatusScheduled,
	StatusActive,
	StatusPaused,
	StatusCompleted,
	StatusInterrupted,
	StatusAbandoned,
	StatusOverdue,
}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusInterrupted, StatusAbandoned, StatusOverdue:
		return true
	default:
		return false
	}
}

// Running reports whether the session has been started and not yet closed.
func (s Status) Running() bool {
	return s == StatusActive || s == StatusPaused
}

// HoldsFocus reports whether a session in this status blocks creating another.
func (s Status) HoldsFocus() bool {
	return s == StatusScheduled || s.Running()
}

type Op string

const (
	OpStart    Op = "start"
	OpPause    Op = "pause"
	OpResume   Op = "resume"
	OpComplete Op = "complete"
	OpAbandon  Op = "abandon"
	OpOverdue  Op = "mark overdue"
)

type Pause struct {
	ID        string
	Reason    string
	PausedAt  time.Time
	ResumedAt *time.Time
}

func (p Pause) Open() bool {
	return p.ResumedAt == nil
}

type Session struct {
	ID                      string
	Title                   string
	Goal                    string
	ScheduledMinutes        int
	Status                  Status
	CreatedAt               time.Time
	StartTime               *time.Time
	PauseCount              int
	PauseLog                []Pause
	CumulativePausedSeconds int64
	CompletedAt             *time.Time
	ActualDurationMinutes   *int
}

// NewSession validates the creation input and returns a scheduled session.
func NewSession(id, title, goal string, minutes int, now time.Time) (Session, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Session{}, &apperrors.ArgumentError{Field: "title", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return Session{}, &apperrors.ArgumentError{Field: "title", Reason: "must be at most 200 characters"}
	}
	if minutes <= 0 {
		return Session{}, &apperrors.ArgumentError{Field: "scheduled_duration_minutes", Reason: "must be positive"}
	}
	if minutes > MaxScheduledMinutes {
		return Session{}, &apperrors.ArgumentError{Field: "scheduled_duration_minutes", Reason: "must be at most 480"}
	}
	return Session{
		ID:               id,
		Title:            title,
		Goal:             strings.TrimSpace(goal),
		ScheduledMinutes: minutes,
		Status:           StatusScheduled,
		CreatedAt:        now,
	}, nil
}

// NormalizeReason trims a pause reason and checks its bounds.
func NormalizeReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", apperrors.ErrEmptyReason
	}
	if utf8.RuneCountInString(reason) > MaxReasonLength {
		return "", &apperrors.ArgumentError{Field: "reason", Reason: "must be at most 500 characters"}
	}
	return reason, nil
}

func (s *Session) Start(now time.Time) error {
	if s.Status != StatusScheduled {
		return s.rejected(OpStart)
	}
	started := now
	s.StartTime = &started
	s.Status = StatusActive
	return nil
}

// Pause opens a new pause interval. reason must already be normalized.
func (s *Session) Pause(pauseID, reason string, now time.Time) error {
	if s.Status != StatusActive {
		return s.rejected(OpPause)
	}
	s.PauseLog = append(s.PauseLog, Pause{ID: pauseID, Reason: reason, PausedAt: now})
	s.PauseCount++
	s.Status = StatusPaused
	return nil
}

func (s *Session) Resume(now time.Time) error {
	if s.Status != StatusPaused {
		return s.rejected(OpResume)
	}
	s.closeOpenPause(now)
	s.Status = StatusActive
	return nil
}

// Complete closes out a running session. It ends interrupted once the pause
// count reaches threshold.
func (s *Session) Complete(now time.Time, threshold int) error {
	if !s.Status.Running() {
		return s.rejected(OpComplete)
	}
	final := StatusCompleted
	if s.PauseCount >= threshold {
		final = StatusInterrupted
	}
	s.closeOut(now, final)
	return nil
}

func (s *Session) Abandon(now time.Time) error {
	if !s.Status.Running() {
		return s.rejected(OpAbandon)
	}
	s.closeOut(now, StatusAbandoned)
	return nil
}

// MarkOverdue retires a session that was never started. No duration is
// recorded since no work happened.
func (s *Session) MarkOverdue(now time.Time) error {
	if s.Status != StatusScheduled {
		return s.rejected(OpOverdue)
	}
	closed := now
	s.CompletedAt = &closed
	s.Status = StatusOverdue
	return nil
}

// LastActivity is the latest of the start time and every pause or resume
// timestamp. Sessions never started report their creation time.
func (s Session) LastActivity() time.Time {
	if s.StartTime == nil {
		return s.CreatedAt
	}
	last := *s.StartTime
	for _, p := range s.PauseLog {
		if p.PausedAt.After(last) {
			last = p.PausedAt
		}
		if p.ResumedAt != nil && p.ResumedAt.After(last) {
			last = *p.ResumedAt
		}
	}
	return last
}

// OpenPause returns the unresumed pause entry, if any.
func (s Session) OpenPause() (Pause, bool) {
	if len(s.PauseLog) == 0 {
		return Pause{}, false
	}
	last := s.PauseLog[len(s.PauseLog)-1]
	return last, last.Open()
}

// Clone returns a deep copy that shares no pointers with s.
func (s Session) Clone() Session {
	out := s
	out.StartTime = cloneTime(s.StartTime)
	out.CompletedAt = cloneTime(s.CompletedAt)
	if s.ActualDurationMinutes != nil {
		v := *s.ActualDurationMinutes
		out.ActualDurationMinutes = &v
	}
	if s.PauseLog != nil {
		out.PauseLog = make([]Pause, len(s.PauseLog))
		for i, p := range s.PauseLog {
			p.ResumedAt = cloneTime(p.ResumedAt)
			out.PauseLog[i] = p
		}
	}
	return out
}

func (s *Session) closeOut(now time.Time, final Status) {
	s.closeOpenPause(now)
	closed := now
	s.CompletedAt = &closed
	worked := now.Sub(*s.StartTime) - time.Duration(s.CumulativePausedSeconds)*time.Second
	minutes := int(worked / time.Minute)
	if minutes < 0 {
		minutes = 0
	}
	s.ActualDurationMinutes = &minutes
	s.Status = final
}

func (s *Session) closeOpenPause(now time.Time) {
	n := len(s.PauseLog)
	if n == 0 || !s.PauseLog[n-1].Open() {
		return
	}
	resumed := now
	s.PauseLog[n-1].ResumedAt = &resumed
	if secs := int64(now.Sub(s.PauseLog[n-1].PausedAt) / time.Second); secs > 0 {
		s.CumulativePausedSeconds += secs
	}
}

func (s *Session) rejected(op Op) error {
	return &apperrors.TransitionError{SessionID: s.ID, Status: string(s.Status), Op: string(op)}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
