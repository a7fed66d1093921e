package domain

import "time"

// Policy holds the configurable windows the sweeper applies.
type Policy struct {
	OverdueGrace       time.Duration
	InactivityTimeout  time.Duration
	InterruptThreshold int
}

func DefaultPolicy() Policy {
	return Policy{
		OverdueGrace:       24 * time.Hour,
		InactivityTimeout:  2 * time.Hour,
		InterruptThreshold: DefaultInterruptThreshold,
	}
}

// Verdict is the sweep outcome for a single session.
type Verdict int

const (
	VerdictKeep Verdict = iota
	VerdictOverdue
	VerdictAbandoned
)

func (v Verdict) String() string {
	switch v {
	case VerdictOverdue:
		return string(StatusOverdue)
	case VerdictAbandoned:
		return string(StatusAbandoned)
	default:
		return "keep"
	}
}

// Evaluate decides whether s is stale at now. Both windows are exclusive.
func (p Policy) Evaluate(s Session, now time.Time) Verdict {
	switch {
	case s.Status == StatusScheduled:
		if now.Sub(s.CreatedAt) > p.OverdueGrace {
			return VerdictOverdue
		}
	case s.Status.Running():
		if now.Sub(s.LastActivity()) > p.InactivityTimeout {
			return VerdictAbandoned
		}
	}
	return VerdictKeep
}

// Apply performs the transition named by v on s.
func (v Verdict) Apply(s *Session, now time.Time) error {
	switch v {
	case VerdictOverdue:
		return s.MarkOverdue(now)
	case VerdictAbandoned:
		return s.Abandon(now)
	default:
		return nil
	}
}
