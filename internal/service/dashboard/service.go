package dashboard

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sonic/internal/model"
)

// HistoryDays is how far back the activity histogram reaches. The window
// is inclusive on both ends, so the histogram carries HistoryDays+1 entries.
const HistoryDays = 90

// ContactSource lists contacts filtered by pipeline status.
type ContactSource interface {
	FetchContacts(ctx context.Context, statuses []model.ContactStatus) ([]model.Contact, error)
}

// ActivitySource lists every email row's creation metadata.
type ActivitySource interface {
	ListActivity(ctx context.Context) ([]model.Email, error)
}

// DayEntry is one histogram bucket, keyed by UTC calendar date.
type DayEntry struct {
	Date      string `json:"date"`
	Backlog   int    `json:"backlog"`
	Scheduled int    `json:"scheduled"`
	Completed int    `json:"completed"`
}

// UniversityTotal carries the per-school counter with its display name.
type UniversityTotal struct {
	University  model.University `json:"university"`
	DisplayName string           `json:"displayName"`
	Count       int              `json:"count"`
}

// Snapshot is the aggregated dashboard payload.
type Snapshot struct {
	Backlog      int               `json:"backlog"`
	Scheduled    int               `json:"scheduled"`
	Completed    int               `json:"completed"`
	Universities []UniversityTotal `json:"universities"`
	History      []DayEntry        `json:"history"`
}

type Service struct {
	contacts ContactSource
	activity ActivitySource
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(contacts ContactSource, activity ActivitySource, logger *zap.Logger) *Service {
	return &Service{
		contacts: contacts,
		activity: activity,
		logger:   logger,
		now:      time.Now,
	}
}

// Snapshot aggregates backlog contacts and email activity into the
// dashboard counters, per-university totals and the daily histogram.
// A university value outside the known set is an error, not a silently
// dropped row.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	backlog, err := s.contacts.FetchContacts(ctx, []model.ContactStatus{model.ContactStatusEmail})
	if err != nil {
		s.logger.Error("failed to fetch backlog contacts", zap.Error(err))
		return nil, err
	}
	emails, err := s.activity.ListActivity(ctx)
	if err != nil {
		s.logger.Error("failed to list email activity", zap.Error(err))
		return nil, err
	}

	snap := &Snapshot{
		Backlog: len(backlog),
		History: emptyHistory(s.now().UTC()),
	}
	byDate := make(map[string]*DayEntry, len(snap.History))
	for i := range snap.History {
		byDate[snap.History[i].Date] = &snap.History[i]
	}

	perSchool := make(map[model.University]int, len(model.Universities))
	for _, c := range backlog {
		if !c.University.Known() {
			return nil, fmt.Errorf("contact %s has unknown university %q", c.Email, c.University)
		}
		perSchool[c.University]++
		if entry, ok := byDate[dateKey(c.CreatedAt)]; ok {
			entry.Backlog++
		}
	}

	for _, e := range emails {
		if !e.University.Known() {
			return nil, fmt.Errorf("email %d has unknown university %q", e.ID, e.University)
		}
		perSchool[e.University]++
		entry, ok := byDate[dateKey(e.CreatedAt)]
		switch e.Status {
		case model.EmailStatusPending:
			snap.Scheduled++
			if ok {
				entry.Scheduled++
			}
		case model.EmailStatusCompleted:
			snap.Completed++
			if ok {
				entry.Completed++
			}
		}
	}

	for _, u := range model.Universities {
		name, err := u.DisplayName()
		if err != nil {
			return nil, err
		}
		snap.Universities = append(snap.Universities, UniversityTotal{
			University:  u,
			DisplayName: name,
			Count:       perSchool[u],
		})
	}
	return snap, nil
}

// emptyHistory builds the zero-filled window ending today.
func emptyHistory(now time.Time) []DayEntry {
	start := now.AddDate(0, 0, -HistoryDays)
	entries := make([]DayEntry, 0, HistoryDays+1)
	for d := 0; d <= HistoryDays; d++ {
		entries = append(entries, DayEntry{Date: dateKey(start.AddDate(0, 0, d))})
	}
	return entries
}

func dateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
