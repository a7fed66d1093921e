package domain_test

import (
	"testing"
	"time"

	"deepwork/internal/modules/session/domain"
)

func TestPolicyEvaluate(t *testing.T) {
	t.Parallel()
	policy := domain.Policy{OverdueGrace: time.Hour, InactivityTimeout: 30 * time.Minute, InterruptThreshold: 4}

	sched := scheduled(t)
	if got := policy.Evaluate(sched, t0.Add(time.Hour)); got != domain.VerdictKeep {
		t.Fatalf("grace boundary must not be overdue, got %s", got)
	}
	if got := policy.Evaluate(sched, t0.Add(time.Hour+time.Second)); got != domain.VerdictOverdue {
		t.Fatalf("expected overdue, got %s", got)
	}

	run := started(t)
	_ = run.Pause("p", "lunch", t0.Add(10*time.Minute))
	if got := policy.Evaluate(run, t0.Add(40*time.Minute)); got != domain.VerdictKeep {
		t.Fatalf("inactivity boundary must not abandon, got %s", got)
	}
	if got := policy.Evaluate(run, t0.Add(41*time.Minute)); got != domain.VerdictAbandoned {
		t.Fatalf("expected abandoned, got %s", got)
	}

	done := started(t)
	_ = done.Complete(t0.Add(time.Minute), 4)
	if got := policy.Evaluate(done, t0.Add(1000*time.Hour)); got != domain.VerdictKeep {
		t.Fatalf("terminal sessions are never stale, got %s", got)
	}
}

func TestVerdictApply(t *testing.T) {
	t.Parallel()
	s := started(t)
	if err := domain.VerdictAbandoned.Apply(&s, t0.Add(3*time.Hour)); err != nil {
		t.Fatalf("apply abandoned: %v", err)
	}
	if s.Status != domain.StatusAbandoned {
		t.Fatalf("status = %s", s.Status)
	}
	if err := domain.VerdictKeep.Apply(&s, t0.Add(4*time.Hour)); err != nil {
		t.Fatalf("keep must be a no-op: %v", err)
	}
	if err := domain.VerdictAbandoned.Apply(&s, t0.Add(5*time.Hour)); err == nil {
		t.Fatalf("abandoning a terminal session must fail")
	}
}
