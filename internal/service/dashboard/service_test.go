package dashboard

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"sonic/internal/model"
)

type fakeContacts struct {
	contacts []model.Contact
	statuses []model.ContactStatus
}

func (f *fakeContacts) FetchContacts(ctx context.Context, statuses []model.ContactStatus) ([]model.Contact, error) {
	f.statuses = statuses
	return f.contacts, nil
}

type fakeActivity struct {
	emails []model.Email
}

func (f *fakeActivity) ListActivity(ctx context.Context) ([]model.Email, error) {
	return f.emails, nil
}

func newService(contacts *fakeContacts, activity *fakeActivity, now time.Time) *Service {
	svc := NewService(contacts, activity, zap.NewNop())
	svc.now = func() time.Time { return now }
	return svc
}

func TestEmptySnapshotHasFullZeroHistory(t *testing.T) {
	now := time.Date(2024, 5, 20, 15, 30, 0, 0, time.UTC)
	svc := newService(&fakeContacts{}, &fakeActivity{}, now)

	snap, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(snap.History) != HistoryDays+1 {
		t.Fatalf("history has %d entries, want %d", len(snap.History), HistoryDays+1)
	}
	if snap.History[0].Date != "2024-02-20" {
		t.Errorf("window starts %s, want 2024-02-20", snap.History[0].Date)
	}
	if snap.History[len(snap.History)-1].Date != "2024-05-20" {
		t.Errorf("window ends %s, want today", snap.History[len(snap.History)-1].Date)
	}
	for _, entry := range snap.History {
		if entry.Backlog != 0 || entry.Scheduled != 0 || entry.Completed != 0 {
			t.Fatalf("entry %s not zero-filled: %+v", entry.Date, entry)
		}
	}
	if snap.Backlog != 0 || snap.Scheduled != 0 || snap.Completed != 0 {
		t.Errorf("counters not zero: %+v", snap)
	}
	if len(snap.Universities) != len(model.Universities) {
		t.Errorf("got %d university totals, want %d", len(snap.Universities), len(model.Universities))
	}
}

func TestSnapshotBucketsByUTCDate(t *testing.T) {
	now := time.Date(2024, 5, 20, 8, 0, 0, 0, time.UTC)
	est := time.FixedZone("EST", -5*3600)
	sendAt := now.Add(time.Hour)

	contacts := &fakeContacts{contacts: []model.Contact{
		{Email: "a@uwaterloo.ca", University: model.UniversityWaterloo, Status: model.ContactStatusEmail,
			CreatedAt: time.Date(2024, 5, 19, 22, 30, 0, 0, est)}, // 2024-05-20 UTC
	}}
	activity := &fakeActivity{emails: []model.Email{
		{ID: 1, University: model.UniversityToronto, Status: model.EmailStatusPending,
			CreatedAt: now, SendAt: &sendAt, TriggerID: "t1"},
		{ID: 2, University: model.UniversityWaterloo, Status: model.EmailStatusCompleted,
			CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		{ID: 3, University: model.UniversityQueens, Status: model.EmailStatusCompleted,
			CreatedAt: time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)}, // outside the window
	}}
	svc := newService(contacts, activity, now)

	snap, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if snap.Backlog != 1 || snap.Scheduled != 1 || snap.Completed != 2 {
		t.Errorf("counters = %d/%d/%d, want 1/1/2", snap.Backlog, snap.Scheduled, snap.Completed)
	}

	last := snap.History[len(snap.History)-1]
	if last.Date != "2024-05-20" || last.Backlog != 1 || last.Scheduled != 1 {
		t.Errorf("today's bucket = %+v, want backlog 1 scheduled 1", last)
	}
	var may1 DayEntry
	for _, entry := range snap.History {
		if entry.Date == "2024-05-01" {
			may1 = entry
		}
	}
	if may1.Completed != 1 {
		t.Errorf("2024-05-01 completed = %d, want 1", may1.Completed)
	}

	// The old row still counts toward totals and universities, just not
	// the histogram.
	bySchool := map[model.University]int{}
	for _, u := range snap.Universities {
		bySchool[u.University] = u.Count
	}
	if bySchool[model.UniversityWaterloo] != 2 || bySchool[model.UniversityQueens] != 1 {
		t.Errorf("university totals = %v", bySchool)
	}

	if len(contacts.statuses) != 1 || contacts.statuses[0] != model.ContactStatusEmail {
		t.Errorf("backlog query used statuses %v, want [Email]", contacts.statuses)
	}
}

func TestSnapshotRejectsUnknownUniversity(t *testing.T) {
	now := time.Date(2024, 5, 20, 8, 0, 0, 0, time.UTC)
	activity := &fakeActivity{emails: []model.Email{
		{ID: 7, University: model.University("Hogwarts"), Status: model.EmailStatusCompleted, CreatedAt: now},
	}}
	svc := newService(&fakeContacts{}, activity, now)

	if _, err := svc.Snapshot(context.Background()); err == nil {
		t.Fatal("expected an error for an unrecognized university")
	}
}
