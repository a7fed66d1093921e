package out

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"goa.design/clue/log"

	"deepwork/internal/modules/session/domain"
	sessionout "deepwork/internal/modules/session/port/out"
	apperrors "deepwork/internal/platform/errors"
	"deepwork/internal/platform/lock"
	"deepwork/internal/platform/markdown"
	"deepwork/internal/platform/slug"
)

var summaryBlock = markdown.Block{
	Start: "<!-- deepwork:summary:start -->",
	End:   "<!-- deepwork:summary:end -->",
}

type noteMeta struct {
	SchemaVersion           int         `yaml:"schema_version"`
	ID                      string      `yaml:"id"`
	Title                   string      `yaml:"title"`
	Goal                    string      `yaml:"goal,omitempty"`
	ScheduledMinutes        int         `yaml:"scheduled_duration_minutes"`
	Status                  string      `yaml:"status"`
	CreatedAt               time.Time   `yaml:"created_at"`
	StartTime               *time.Time  `yaml:"start_time,omitempty"`
	PauseCount              int         `yaml:"pause_count"`
	CumulativePausedSeconds int64       `yaml:"cumulative_paused_seconds"`
	CompletedAt             *time.Time  `yaml:"completed_at,omitempty"`
	ActualDurationMinutes   *int        `yaml:"actual_duration_minutes,omitempty"`
	Pauses                  []notePause `yaml:"pauses,omitempty"`
}

type notePause struct {
	ID        string     `yaml:"id"`
	Reason    string     `yaml:"reason"`
	PausedAt  time.Time  `yaml:"paused_at"`
	ResumedAt *time.Time `yaml:"resumed_at,omitempty"`
}

// VaultStore keeps one Markdown note per session under
// <root>/sessions/<yyyy>/<mm>/<dd>/. Frontmatter carries the record; the body
// holds a generated summary block and whatever the user writes around it.
type VaultStore struct {
	root  string
	locks *lock.Keyed

	mu      sync.Mutex
	index   map[string]string
	indexed bool
}

var _ sessionout.SessionStore = (*VaultStore)(nil)

func NewVaultStore(root string) *VaultStore {
	return &VaultStore{root: root, locks: lock.NewKeyed(), index: map[string]string{}}
}

func (s *VaultStore) Create(ctx context.Context, session domain.Session) error {
	unlock := s.locks.Lock(session.ID)
	defer unlock()

	if _, err := s.pathFor(ctx, session.ID); err == nil {
		return fmt.Errorf("%w: session %s already exists", apperrors.ErrConflict, session.ID)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}

	created := session.CreatedAt
	dir := filepath.Join(s.root, "sessions", created.Format("2006"), created.Format("01"), created.Format("02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	name := fmt.Sprintf("%s-%s-%s.md", created.Format("150405"), slug.Make(session.Title), shortID(session.ID))
	path := filepath.Join(dir, name)

	body := fmt.Sprintf("# %s\n\n", session.Title)
	if session.Goal != "" {
		body += fmt.Sprintf("## Goal\n\n%s\n\n", session.Goal)
	}
	if err := writeNote(path, session, body); err != nil {
		return err
	}

	s.mu.Lock()
	s.index[session.ID] = path
	s.mu.Unlock()
	return nil
}

func (s *VaultStore) Get(ctx context.Context, id string) (domain.Session, error) {
	path, err := s.pathFor(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	session, _, err := readNote(path)
	return session, err
}

func (s *VaultStore) Update(ctx context.Context, id string, mutate func(*domain.Session) error) (domain.Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	path, err := s.pathFor(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	session, body, err := readNote(path)
	if err != nil {
		return domain.Session{}, err
	}
	if err := mutate(&session); err != nil {
		return domain.Session{}, err
	}
	if err := writeNote(path, session, body); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

func (s *VaultStore) ListAll(ctx context.Context) ([]domain.Session, error) {
	if err := s.ensureIndex(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	paths := make([]string, 0, len(s.index))
	for _, path := range s.index {
		paths = append(paths, path)
	}
	s.mu.Unlock()
	sort.Strings(paths)

	sessions := make([]domain.Session, 0, len(paths))
	for _, path := range paths {
		session, _, err := readNote(path)
		if err != nil {
			skipNote(ctx, path, err)
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (s *VaultStore) pathFor(ctx context.Context, id string) (string, error) {
	if err := s.ensureIndex(ctx); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	path, ok := s.index[id]
	if !ok {
		return "", notFound(id)
	}
	return path, nil
}

// ensureIndex walks the vault once to map session ids to note paths. Notes
// that do not decode as sessions are skipped.
func (s *VaultStore) ensureIndex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexed {
		return nil
	}
	dir := filepath.Join(s.root, "sessions")
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		session, _, err := readNote(path)
		if err != nil {
			skipNote(ctx, path, err)
			return nil
		}
		s.index[session.ID] = path
		return nil
	})
	if err != nil {
		return fmt.Errorf("index session notes: %w", err)
	}
	s.indexed = true
	return nil
}

func skipNote(ctx context.Context, path string, err error) {
	log.Warn(ctx,
		log.KV{K: "msg", V: "skipping unreadable session note"},
		log.KV{K: "path", V: path},
		log.KV{K: "err", V: err.Error()},
	)
}

func readNote(path string) (domain.Session, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Session{}, "", fmt.Errorf("read session note: %w", err)
	}
	meta := noteMeta{}
	body, err := markdown.Decode(string(raw), &meta)
	if err != nil {
		return domain.Session{}, "", fmt.Errorf("decode %s: %w", path, err)
	}
	if meta.ID == "" {
		return domain.Session{}, "", fmt.Errorf("decode %s: missing session id", path)
	}
	return meta.toDomain(), body, nil
}

// writeNote renders the note to a temp file in the same directory and
// renames it over the target.
func writeNote(path string, session domain.Session, body string) error {
	body = summaryBlock.Replace(body, renderSummary(session))
	rendered, err := markdown.Render(metaFromDomain(session), body)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp note: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(rendered); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp note: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp note: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace session note: %w", err)
	}
	return nil
}

func renderSummary(session domain.Session) string {
	lines := []string{
		fmt.Sprintf("- Status: %s", session.Status),
		fmt.Sprintf("- Scheduled: %d minutes", session.ScheduledMinutes),
	}
	if session.StartTime != nil {
		lines = append(lines, fmt.Sprintf("- Started: %s", session.StartTime.Format(time.RFC3339)))
	}
	if session.CompletedAt != nil {
		lines = append(lines, fmt.Sprintf("- Closed: %s", session.CompletedAt.Format(time.RFC3339)))
	}
	if session.ActualDurationMinutes != nil {
		lines = append(lines, fmt.Sprintf("- Worked: %d minutes", *session.ActualDurationMinutes))
	}
	if len(session.PauseLog) > 0 {
		lines = append(lines, "", "### Pauses", "")
		for _, p := range session.PauseLog {
			line := fmt.Sprintf("- %s %s", p.PausedAt.Format("15:04:05"), p.Reason)
			if p.ResumedAt != nil {
				line += fmt.Sprintf(" (resumed %s)", p.ResumedAt.Format("15:04:05"))
			}
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func metaFromDomain(session domain.Session) noteMeta {
	meta := noteMeta{
		SchemaVersion:           domain.SchemaVersion,
		ID:                      session.ID,
		Title:                   session.Title,
		Goal:                    session.Goal,
		ScheduledMinutes:        session.ScheduledMinutes,
		Status:                  string(session.Status),
		CreatedAt:               session.CreatedAt,
		StartTime:               session.StartTime,
		PauseCount:              session.PauseCount,
		CumulativePausedSeconds: session.CumulativePausedSeconds,
		CompletedAt:             session.CompletedAt,
		ActualDurationMinutes:   session.ActualDurationMinutes,
	}
	for _, p := range session.PauseLog {
		meta.Pauses = append(meta.Pauses, notePause{ID: p.ID, Reason: p.Reason, PausedAt: p.PausedAt, ResumedAt: p.ResumedAt})
	}
	return meta
}

func (m noteMeta) toDomain() domain.Session {
	session := domain.Session{
		ID:                      m.ID,
		Title:                   m.Title,
		Goal:                    m.Goal,
		ScheduledMinutes:        m.ScheduledMinutes,
		Status:                  domain.Status(m.Status),
		CreatedAt:               m.CreatedAt,
		StartTime:               m.StartTime,
		PauseCount:              m.PauseCount,
		CumulativePausedSeconds: m.CumulativePausedSeconds,
		CompletedAt:             m.CompletedAt,
		ActualDurationMinutes:   m.ActualDurationMinutes,
	}
	for _, p := range m.Pauses {
		session.PauseLog = append(session.PauseLog, domain.Pause{ID: p.ID, Reason: p.Reason, PausedAt: p.PausedAt, ResumedAt: p.ResumedAt})
	}
	return session
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "x"
	}
	return id
}
