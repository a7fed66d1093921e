package dto

import "time"

type CreateInput struct {
	Title            string `json:"title"`
	Goal             string `json:"goal,omitempty"`
	ScheduledMinutes int    `json:"scheduled_duration_minutes"`
}

type PauseInput struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}

type PauseOutput struct {
	ID        string     `json:"id"`
	Reason    string     `json:"reason"`
	PausedAt  time.Time  `json:"paused_at"`
	ResumedAt *time.Time `json:"resumed_at,omitempty"`
}

type TimerOutput struct {
	ElapsedSeconds   int64 `json:"elapsed_seconds"`
	RemainingSeconds int64 `json:"remaining_seconds"`
	Overtime         bool  `json:"is_overtime"`
	WorkedSeconds    int64 `json:"worked_seconds"`
}

// SessionOutput is the full snapshot returned by every session call. Timer is
// set only for active and paused sessions and is computed at response time.
type SessionOutput struct {
	ID                      string        `json:"id"`
	Title                   string        `json:"title"`
	Goal                    string        `json:"goal,omitempty"`
	ScheduledMinutes        int           `json:"scheduled_duration_minutes"`
	Status                  string        `json:"status"`
	CreatedAt               time.Time     `json:"created_at"`
	StartTime               *time.Time    `json:"start_time,omitempty"`
	PauseCount              int           `json:"pause_count"`
	PauseLog                []PauseOutput `json:"pause_log"`
	CumulativePausedSeconds int64         `json:"cumulative_paused_seconds"`
	CompletedAt             *time.Time    `json:"completed_at,omitempty"`
	ActualDurationMinutes   *int          `json:"actual_duration_minutes,omitempty"`
	LastActivityAt          time.Time     `json:"last_activity_at"`
	Timer                   *TimerOutput  `json:"timer,omitempty"`
}

// HistoryItem is the compact row shown in history listings.
type HistoryItem struct {
	ID                    string     `json:"id"`
	Title                 string     `json:"title"`
	ScheduledMinutes      int        `json:"scheduled_duration_minutes"`
	Status                string     `json:"status"`
	PauseCount            int        `json:"pause_count"`
	StartTime             *time.Time `json:"start_time,omitempty"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
	ActualDurationMinutes *int       `json:"actual_duration_minutes,omitempty"`
}

func (o SessionOutput) Item() HistoryItem {
	return HistoryItem{
		ID:                    o.ID,
		Title:                 o.Title,
		ScheduledMinutes:      o.ScheduledMinutes,
		Status:                o.Status,
		PauseCount:            o.PauseCount,
		StartTime:             o.StartTime,
		CompletedAt:           o.CompletedAt,
		ActualDurationMinutes: o.ActualDurationMinutes,
	}
}

type SweepOutput struct {
	Scanned   int `json:"scanned"`
	Overdue   int `json:"overdue"`
	Abandoned int `json:"abandoned"`
	Failed    int `json:"failed"`
}
