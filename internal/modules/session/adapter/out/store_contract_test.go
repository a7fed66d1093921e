package out_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"goa.design/clue/log"

	sessionadapter "deepwork/internal/modules/session/adapter/out"
	"deepwork/internal/modules/session/domain"
	sessionout "deepwork/internal/modules/session/port/out"
	"deepwork/internal/modules/session/service"
	"deepwork/internal/platform/clock"
	apperrors "deepwork/internal/platform/errors"
	"deepwork/internal/platform/logging"
)

var created = time.Date(2026, 4, 7, 8, 30, 0, 0, time.UTC)

func storeFactories() map[string]func(t *testing.T) sessionout.SessionStore {
	return map[string]func(t *testing.T) sessionout.SessionStore{
		"memory": func(*testing.T) sessionout.SessionStore {
			return sessionadapter.NewMemoryStore()
		},
		"sqlite": func(t *testing.T) sessionout.SessionStore {
			store, err := sessionadapter.NewSQLiteStore(filepath.Join(t.TempDir(), "deepwork.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })
			return store
		},
		"vault": func(t *testing.T) sessionout.SessionStore {
			return sessionadapter.NewVaultStore(t.TempDir())
		},
	}
}

func newSession(t *testing.T, id string, at time.Time) domain.Session {
	t.Helper()
	s, err := domain.NewSession(id, "Refactor parser", "split lexer", 50, at)
	require.NoError(t, err)
	return s
}

func TestStoreContract(t *testing.T) {
	t.Parallel()
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			t.Run("create and get round trip", func(t *testing.T) {
				store := factory(t)
				ctx := context.Background()
				s := newSession(t, "sess-a", created)
				require.NoError(t, store.Create(ctx, s))

				got, err := store.Get(ctx, "sess-a")
				require.NoError(t, err)
				assert.Equal(t, "Refactor parser", got.Title)
				assert.Equal(t, "split lexer", got.Goal)
				assert.Equal(t, 50, got.ScheduledMinutes)
				assert.Equal(t, domain.StatusScheduled, got.Status)
				assert.True(t, got.CreatedAt.Equal(created))
				assert.Nil(t, got.StartTime)
				assert.Nil(t, got.CompletedAt)
				assert.Nil(t, got.ActualDurationMinutes)
			})

			t.Run("duplicate create conflicts", func(t *testing.T) {
				store := factory(t)
				ctx := context.Background()
				require.NoError(t, store.Create(ctx, newSession(t, "sess-a", created)))
				err := store.Create(ctx, newSession(t, "sess-a", created))
				assert.ErrorIs(t, err, apperrors.ErrConflict)
			})

			t.Run("unknown ids are not found", func(t *testing.T) {
				store := factory(t)
				ctx := context.Background()
				_, err := store.Get(ctx, "missing")
				assert.ErrorIs(t, err, apperrors.ErrNotFound)
				_, err = store.Update(ctx, "missing", func(*domain.Session) error { return nil })
				assert.ErrorIs(t, err, apperrors.ErrNotFound)
			})

			t.Run("update persists transitions and pause log", func(t *testing.T) {
				store := factory(t)
				ctx := context.Background()
				require.NoError(t, store.Create(ctx, newSession(t, "sess-a", created)))

				_, err := store.Update(ctx, "sess-a", func(s *domain.Session) error {
					if err := s.Start(created.Add(time.Minute)); err != nil {
						return err
					}
					return s.Pause("p-1", "standup", created.Add(10*time.Minute))
				})
				require.NoError(t, err)
				_, err = store.Update(ctx, "sess-a", func(s *domain.Session) error {
					return s.Resume(created.Add(25 * time.Minute))
				})
				require.NoError(t, err)
				updated, err := store.Update(ctx, "sess-a", func(s *domain.Session) error {
					return s.Complete(created.Add(61*time.Minute), domain.DefaultInterruptThreshold)
				})
				require.NoError(t, err)
				assert.Equal(t, domain.StatusCompleted, updated.Status)

				got, err := store.Get(ctx, "sess-a")
				require.NoError(t, err)
				assert.Equal(t, domain.StatusCompleted, got.Status)
				require.NotNil(t, got.StartTime)
				assert.True(t, got.StartTime.Equal(created.Add(time.Minute)))
				require.Len(t, got.PauseLog, 1)
				assert.Equal(t, "p-1", got.PauseLog[0].ID)
				assert.Equal(t, "standup", got.PauseLog[0].Reason)
				require.NotNil(t, got.PauseLog[0].ResumedAt)
				assert.True(t, got.PauseLog[0].ResumedAt.Equal(created.Add(25*time.Minute)))
				assert.Equal(t, 1, got.PauseCount)
				assert.Equal(t, int64(900), got.CumulativePausedSeconds)
				require.NotNil(t, got.ActualDurationMinutes)
				assert.Equal(t, 45, *got.ActualDurationMinutes)
			})

			t.Run("failed mutation is not committed", func(t *testing.T) {
				store := factory(t)
				ctx := context.Background()
				require.NoError(t, store.Create(ctx, newSession(t, "sess-a", created)))
				boom := errors.New("boom")
				_, err := store.Update(ctx, "sess-a", func(s *domain.Session) error {
					s.Status = domain.StatusActive
					s.PauseCount = 9
					return boom
				})
				assert.ErrorIs(t, err, boom)

				got, err := store.Get(ctx, "sess-a")
				require.NoError(t, err)
				assert.Equal(t, domain.StatusScheduled, got.Status)
				assert.Equal(t, 0, got.PauseCount)
			})

			t.Run("concurrent updates on one id serialize", func(t *testing.T) {
				store := factory(t)
				ctx := context.Background()
				s := newSession(t, "sess-a", created)
				require.NoError(t, s.Start(created))
				require.NoError(t, store.Create(ctx, s))

				const workers = 16
				var wg sync.WaitGroup
				for i := 0; i < workers; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						_, err := store.Update(ctx, "sess-a", func(s *domain.Session) error {
							s.CumulativePausedSeconds++
							return nil
						})
						assert.NoError(t, err)
					}()
				}
				wg.Wait()

				got, err := store.Get(ctx, "sess-a")
				require.NoError(t, err)
				assert.Equal(t, int64(workers), got.CumulativePausedSeconds)
			})

			t.Run("list all returns every session", func(t *testing.T) {
				store := factory(t)
				ctx := context.Background()
				require.NoError(t, store.Create(ctx, newSession(t, "sess-a", created)))
				b := newSession(t, "sess-b", created.Add(time.Hour))
				require.NoError(t, b.Start(created.Add(2*time.Hour)))
				require.NoError(t, b.Pause("p-1", "lunch", created.Add(3*time.Hour)))
				require.NoError(t, store.Create(ctx, b))

				all, err := store.ListAll(ctx)
				require.NoError(t, err)
				require.Len(t, all, 2)
				byID := map[string]domain.Session{}
				for _, s := range all {
					byID[s.ID] = s
				}
				assert.Equal(t, domain.StatusScheduled, byID["sess-a"].Status)
				assert.Equal(t, domain.StatusPaused, byID["sess-b"].Status)
				require.Len(t, byID["sess-b"].PauseLog, 1)
				assert.Nil(t, byID["sess-b"].PauseLog[0].ResumedAt)
			})
		})
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	t.Parallel()
	store := sessionadapter.NewMemoryStore()
	ctx := context.Background()
	s := newSession(t, "sess-a", created)
	require.NoError(t, s.Start(created))
	require.NoError(t, store.Create(ctx, s))

	got, err := store.Get(ctx, "sess-a")
	require.NoError(t, err)
	*got.StartTime = created.Add(time.Hour)
	got.Status = domain.StatusAbandoned

	again, err := store.Get(ctx, "sess-a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, again.Status)
	assert.True(t, again.StartTime.Equal(created))
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "deepwork.db")
	ctx := context.Background()

	store, err := sessionadapter.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Create(ctx, newSession(t, "sess-a", created)))
	require.NoError(t, store.Close())

	reopened, err := sessionadapter.NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Get(ctx, "sess-a")
	require.NoError(t, err)
	assert.Equal(t, "Refactor parser", got.Title)
}

func TestVaultStoreKeepsUserNotesAndReindexes(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	ctx := context.Background()
	store := sessionadapter.NewVaultStore(root)
	require.NoError(t, store.Create(ctx, newSession(t, "sess-a", created)))

	matches, err := filepath.Glob(filepath.Join(root, "sessions", "2026", "04", "07", "*.md"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.True(t, strings.HasPrefix(filepath.Base(matches[0]), "083000-refactor-parser-"))

	raw, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(matches[0], append(raw, []byte("\nNotes: lexer first.\n")...), 0o644))

	_, err = store.Update(ctx, "sess-a", func(s *domain.Session) error {
		return s.Start(created.Add(5 * time.Minute))
	})
	require.NoError(t, err)

	raw, err = os.ReadFile(matches[0])
	require.NoError(t, err)
	content := string(raw)
	assert.Contains(t, content, "Notes: lexer first.")
	assert.Contains(t, content, "- Status: active")
	assert.Contains(t, content, "status: active")

	fresh := sessionadapter.NewVaultStore(root)
	got, err := fresh.Get(ctx, "sess-a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, got.Status)
	all, err := fresh.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestVaultStoreSkipsForeignAndCorruptNotes(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	logs := &bytes.Buffer{}
	ctx := logging.Context(context.Background(), logging.Options{Format: "text", Output: logs})

	require.NoError(t, sessionadapter.NewVaultStore(root).Create(ctx, newSession(t, "stale-1", created)))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sessions", "README.md"), []byte("my notes\n"), 0o644))
	dayDir := filepath.Join(root, "sessions", "2026", "04", "07")
	require.NoError(t, os.WriteFile(filepath.Join(dayDir, "broken.md"), []byte("---\nid: [unterminated\n---\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dayDir, "no-id.md"), []byte("---\ntitle: loose\n---\nbody\n"), 0o644))

	store := sessionadapter.NewVaultStore(root)
	got, err := store.Get(ctx, "stale-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusScheduled, got.Status)

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	clk := clock.NewManual(created.Add(48 * time.Hour))
	report, err := service.NewSweeper(clk, store, domain.DefaultPolicy(), time.Minute).SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.Overdue)
	assert.Equal(t, 0, report.Failed)

	swept, err := store.Get(ctx, "stale-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOverdue, swept.Status)

	log.FlushAndDisableBuffering(ctx)
	assert.Contains(t, logs.String(), "README.md")
	assert.Contains(t, logs.String(), "broken.md")
	assert.Contains(t, logs.String(), "no-id.md")
}
