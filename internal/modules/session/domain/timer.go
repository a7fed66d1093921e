package domain

import "time"

// Timer is the countdown view of a running session. Elapsed counts wall-clock
// time since start, paused intervals included; Worked excludes them.
type Timer struct {
	ElapsedSeconds   int64
	RemainingSeconds int64
	Overtime         bool
	WorkedSeconds    int64
}

// TimerAt derives the countdown for s at now. ok is false unless the session
// is active or paused.
func TimerAt(s Session, now time.Time) (t Timer, ok bool) {
	if !s.Status.Running() || s.StartTime == nil {
		return Timer{}, false
	}
	elapsed := int64(now.Sub(*s.StartTime) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := int64(s.ScheduledMinutes)*60 - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return Timer{
		ElapsedSeconds:   elapsed,
		RemainingSeconds: remaining,
		Overtime:         remaining == 0,
		WorkedSeconds:    WorkedSeconds(s, now),
	}, true
}

// WorkedSeconds is the time spent outside pauses up to now, or up to
// completion for closed sessions. An open pause counts as paused until now.
func WorkedSeconds(s Session, now time.Time) int64 {
	if s.StartTime == nil {
		return 0
	}
	end := now
	if s.CompletedAt != nil {
		end = *s.CompletedAt
	}
	paused := s.CumulativePausedSeconds
	if open, ok := s.OpenPause(); ok {
		if secs := int64(end.Sub(open.PausedAt) / time.Second); secs > 0 {
			paused += secs
		}
	}
	worked := int64(end.Sub(*s.StartTime)/time.Second) - paused
	if worked < 0 {
		return 0
	}
	return worked
}
