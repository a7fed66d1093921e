package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"goa.design/clue/log"

	"deepwork/internal/modules/session/domain"
	sessionout "deepwork/internal/modules/session/port/out"
	"deepwork/internal/platform/clock"
)

const DefaultSweepInterval = time.Minute

// errNotStale aborts an Update whose session is no longer stale once locked.
var errNotStale = errors.New("session no longer stale")

// SweepReport summarizes one pass over the store.
type SweepReport struct {
	Scanned   int
	Overdue   int
	Abandoned int
	Failed    int
}

func (r SweepReport) Reclassified() int {
	return r.Overdue + r.Abandoned
}

// Sweeper retires scheduled sessions past their grace window and running
// sessions idle past the inactivity timeout.
type Sweeper struct {
	clock    clock.Clock
	store    sessionout.SessionStore
	policy   domain.Policy
	interval time.Duration
	inst     instruments
}

func NewSweeper(clock clock.Clock, store sessionout.SessionStore, policy domain.Policy, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		clock:    clock,
		store:    store,
		policy:   policy,
		interval: interval,
		inst:     newInstruments(),
	}
}

// SweepOnce evaluates every non-terminal session. Each reclassification is
// its own Update; a failing session is logged and left for the next pass.
func (w *Sweeper) SweepOnce(ctx context.Context) (SweepReport, error) {
	ctx, span := w.inst.tracer.Start(ctx, "session.sweep")
	defer span.End()

	sessions, err := w.store.ListAll(ctx)
	if err != nil {
		span.RecordError(err)
		return SweepReport{}, err
	}

	var report SweepReport
	for _, snapshot := range sessions {
		if snapshot.Status.Terminal() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++
		if w.policy.Evaluate(snapshot, w.clock.Now()) == domain.VerdictKeep {
			continue
		}

		var verdict domain.Verdict
		_, err := w.store.Update(context.WithoutCancel(ctx), snapshot.ID, func(session *domain.Session) error {
			now := w.clock.Now()
			verdict = w.policy.Evaluate(*session, now)
			if verdict == domain.VerdictKeep {
				return errNotStale
			}
			return verdict.Apply(session, now)
		})
		switch {
		case errors.Is(err, errNotStale):
			continue
		case err != nil:
			report.Failed++
			log.Error(ctx, err, log.KV{K: "msg", V: "sweep update failed"}, log.KV{K: "session_id", V: snapshot.ID})
			continue
		}

		switch verdict {
		case domain.VerdictOverdue:
			report.Overdue++
		case domain.VerdictAbandoned:
			report.Abandoned++
		}
		w.inst.reclassified.Add(ctx, 1, metric.WithAttributes(attribute.String("status", verdict.String())))
		log.Info(ctx,
			log.KV{K: "msg", V: "session reclassified"},
			log.KV{K: "session_id", V: snapshot.ID},
			log.KV{K: "status", V: verdict.String()},
		)
	}

	span.SetAttributes(
		attribute.Int("sweep.scanned", report.Scanned),
		attribute.Int("sweep.reclassified", report.Reclassified()),
		attribute.Int("sweep.failed", report.Failed),
	)
	return report, nil
}

// Run sweeps immediately and then on every tick until ctx is done. A pass in
// progress finishes its current session before Run returns.
func (w *Sweeper) Run(ctx context.Context) error {
	w.tick(ctx)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Sweeper) tick(ctx context.Context) {
	report, err := w.SweepOnce(ctx)
	if err != nil && ctx.Err() == nil {
		log.Error(ctx, err, log.KV{K: "msg", V: "sweep failed"})
		return
	}
	if report.Reclassified() > 0 || report.Failed > 0 {
		log.Print(ctx,
			log.KV{K: "msg", V: "sweep finished"},
			log.KV{K: "scanned", V: report.Scanned},
			log.KV{K: "overdue", V: report.Overdue},
			log.KV{K: "abandoned", V: report.Abandoned},
			log.KV{K: "failed", V: report.Failed},
		)
	}
}
