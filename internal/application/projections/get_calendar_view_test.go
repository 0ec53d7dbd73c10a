package projections

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/utamadigital/30-hari-new/internal/adapters/storage"
	calendarStore "github.com/utamadigital/30-hari-new/internal/adapters/storage/calendar"
	"github.com/utamadigital/30-hari-new/internal/application/events"
	"github.com/utamadigital/30-hari-new/internal/application/orchestrators"
	"github.com/utamadigital/30-hari-new/internal/domain/access"
	"github.com/utamadigital/30-hari-new/internal/domain/calendar"
	"github.com/utamadigital/30-hari-new/internal/domain/progress"
)

// failingRunner implements CalendarSessionRunner and always fails.
type failingRunner struct{ err error }

// WithSession implements CalendarSessionRunner.
func (f failingRunner) WithSession(context.Context, string, func(*orchestrators.CalendarSession) error) ([]events.Event, error) {
	return nil, f.err
}

func snapshot(tier access.Tier, c access.Category, done ...int) orchestrators.SessionSnapshot {
	set := progress.NewCompletionSet(done...)
	unlocked := 0
	if tier != "" && access.LimitsFor(tier).Allows(c) {
		unlocked = access.LimitsFor(tier).UnlockedDays
	}
	label := orchestrators.HeaderUnactivated
	if tier != "" {
		label = tier.Label()
	}
	return orchestrators.SessionSnapshot{
		Tier:        tier,
		HeaderLabel: label,
		AgeGroupID:  "5-6",
		Category:    c,
		StartDate:   calendar.Date{Year: 2026, Month: time.October, Day: 15},
		Today:       calendar.Date{Year: 2026, Month: time.October, Day: 17},
		Completion:  set,
		Summary:     progress.Summarize(set, unlocked),
		NextOpenDay: progress.NextOpenDay(set, unlocked),
	}
}

// TestBuildCalendarView_Basic tests tile flags under BASIC.
func TestBuildCalendarView_Basic(t *testing.T) {
	view := BuildCalendarView(snapshot(access.TierBasic, access.CategoryIslami, 2, 9))

	if len(view.Days) != 60 {
		t.Fatalf("expected 60 days, got %d", len(view.Days))
	}
	if !view.Days[6].Unlocked || view.Days[7].Unlocked {
		t.Error("expected days 1-7 unlocked and day 8 locked")
	}
	if !view.Days[8].Completed {
		t.Error("locked completions must still be shown as completed")
	}
	if view.CompletedCount != 1 || view.UnlockedDayCount != 7 || view.ProgressPercent != 14 {
		t.Errorf("unexpected summary %d/%d %d%%", view.CompletedCount, view.UnlockedDayCount, view.ProgressPercent)
	}
	if view.NextOpenDay != 1 {
		t.Errorf("expected next open day 1, got %d", view.NextOpenDay)
	}
}

// TestBuildCalendarView_Dates tests date mapping and the today marker.
func TestBuildCalendarView_Dates(t *testing.T) {
	view := BuildCalendarView(snapshot(access.TierFull, access.CategoryBonus))

	if view.Days[0].Date != "2026-10-15" || view.Days[59].Date != "2026-12-13" {
		t.Errorf("unexpected dates %s..%s", view.Days[0].Date, view.Days[59].Date)
	}
	for _, d := range view.Days {
		if d.IsToday != (d.Day == 3) {
			t.Errorf("day %d: IsToday = %v", d.Day, d.IsToday)
		}
	}
	if view.Days[0].DateLabel != "15 Okt" {
		t.Errorf("unexpected label %q", view.Days[0].DateLabel)
	}
	if view.StartDateLabel != "Kam, 15 Oktober 2026" {
		t.Errorf("unexpected start label %q", view.StartDateLabel)
	}
}

// TestBuildCalendarView_Pills tests age and category options.
func TestBuildCalendarView_Pills(t *testing.T) {
	view := BuildCalendarView(snapshot(access.TierProgram30, access.CategoryUmum))

	if len(view.AgeGroups) != 3 || !view.AgeGroups[1].Selected {
		t.Errorf("unexpected age groups %+v", view.AgeGroups)
	}
	want := map[string][2]bool{ // selected, unlocked
		"islami": {false, true},
		"umum":   {true, true},
		"bonus":  {false, false},
	}
	for _, c := range view.Categories {
		w := want[c.ID]
		if c.Selected != w[0] || c.Unlocked != w[1] {
			t.Errorf("category %s: selected=%v unlocked=%v", c.ID, c.Selected, c.Unlocked)
		}
	}
	if view.Days[0].Plan.Focus != "Fokus: kognitif & pengetahuan" {
		t.Errorf("unexpected focus %q", view.Days[0].Plan.Focus)
	}
	if len(view.Days[0].Plan.Resources) != 2 {
		t.Errorf("expected 2 resources, got %d", len(view.Days[0].Plan.Resources))
	}
}

// TestBuildCalendarView_Unactivated tests the view before a code is entered.
func TestBuildCalendarView_Unactivated(t *testing.T) {
	view := BuildCalendarView(snapshot("", access.CategoryIslami))
	if view.Activated || view.HeaderLabel != "Belum aktivasi (masukkan kode)" {
		t.Errorf("unexpected header %q activated=%v", view.HeaderLabel, view.Activated)
	}
	for _, d := range view.Days {
		if d.Unlocked {
			t.Fatalf("day %d must be locked", d.Day)
		}
	}
	for _, c := range view.Categories {
		if c.Unlocked {
			t.Errorf("category %s must be locked", c.ID)
		}
	}
}

// TestQueryGetCalendarView tests the projection through a registry.
func TestQueryGetCalendarView(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	reg := orchestrators.NewSessionRegistry(orchestrators.SessionRegistryDeps{
		NewStore: func(id string) calendarStore.Store { return calendarStore.NewKVStore(storage.NewMemoryKV(), id) },
		Now:      func() time.Time { return now },
		Location: time.UTC,
	})
	reg.WithSession(ctx, "v1", func(s *orchestrators.CalendarSession) error {
		s.SubmitCode(ctx, orchestrators.SubmitCodeInput{Code: "FULL60"})
		s.ToggleCompletion(ctx, 1)
		return nil
	})

	view, err := QueryGetCalendarView(ctx, GetCalendarViewQuery{VisitorID: "v1"}, GetCalendarViewDeps{Sessions: reg})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Tier != "FULL" || view.CompletedCount != 1 || !view.Days[0].IsToday {
		t.Errorf("unexpected view tier=%s completed=%d today=%v", view.Tier, view.CompletedCount, view.Days[0].IsToday)
	}
}

// TestQueryGetCalendarView_Error tests error propagation.
func TestQueryGetCalendarView_Error(t *testing.T) {
	boom := errors.New("boom")
	_, err := QueryGetCalendarView(context.Background(), GetCalendarViewQuery{VisitorID: "v1"}, GetCalendarViewDeps{Sessions: failingRunner{err: boom}})
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}
