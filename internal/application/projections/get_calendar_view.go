package projections

import (
	"context"

	"github.com/utamadigital/30-hari-new/internal/application/events"
	"github.com/utamadigital/30-hari-new/internal/application/orchestrators"
	"github.com/utamadigital/30-hari-new/internal/domain/access"
	"github.com/utamadigital/30-hari-new/internal/domain/curriculum"
	"github.com/utamadigital/30-hari-new/internal/domain/progress"
)

// CalendarSessionRunner defines the registry interface needed by the calendar view projection.
type CalendarSessionRunner interface {
	WithSession(ctx context.Context, visitorID string, fn func(s *orchestrators.CalendarSession) error) ([]events.Event, error)
}

// GetCalendarViewQuery carries input for the calendar view projection.
type GetCalendarViewQuery struct {
	VisitorID string
}

// GetCalendarViewDeps holds dependencies for the calendar view projection.
type GetCalendarViewDeps struct {
	Sessions CalendarSessionRunner
}

// CalendarView is everything the calendar page renders.
type CalendarView struct {
	HeaderLabel      string           `json:"header_label"`
	Activated        bool             `json:"activated"`
	Tier             string           `json:"tier,omitempty"`
	Code             string           `json:"code,omitempty"`
	CodeError        string           `json:"code_error,omitempty"`
	AgeGroups        []AgeGroupOption `json:"age_groups"`
	Categories       []CategoryOption `json:"categories"`
	SelectedAgeGroup string           `json:"selected_age_group"`
	SelectedCategory string           `json:"selected_category"`
	StartDate        string           `json:"start_date"`
	StartDateLabel   string           `json:"start_date_label"`
	UnlockedDayCount int              `json:"unlocked_day_count"`
	CompletedCount   int              `json:"completed_count"`
	ProgressPercent  int              `json:"progress_percent"`
	LastCompletedDay int              `json:"last_completed_day"`
	NextOpenDay      int              `json:"next_open_day"`
	Days             []DayView        `json:"days"`
}

// AgeGroupOption is one age pill.
type AgeGroupOption struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Hint     string `json:"hint"`
	Selected bool   `json:"selected"`
}

// CategoryOption is one category pill. Locked categories are shown but not selectable.
type CategoryOption struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
	Unlocked bool   `json:"unlocked"`
}

// DayView is one calendar tile.
type DayView struct {
	Day       int         `json:"day"`
	Date      string      `json:"date"`
	DateLabel string      `json:"date_label"`
	IsToday   bool        `json:"is_today"`
	Unlocked  bool        `json:"unlocked"`
	Completed bool        `json:"completed"`
	Plan      DayPlanView `json:"plan"`
}

// DayPlanView is the content of a day. Locked days still carry a title, rendered blurred.
type DayPlanView struct {
	Title     string         `json:"title"`
	Subtitle  string         `json:"subtitle"`
	Focus     string         `json:"focus"`
	Resources []ResourceView `json:"resources"`
}

// ResourceView is one resource hint.
type ResourceView struct {
	Label string `json:"label"`
	Note  string `json:"note"`
}

// QueryGetCalendarView builds the calendar view of one visitor.
// PRE: VisitorID is non-empty
// POST: Days holds exactly 60 entries in ascending order
func QueryGetCalendarView(ctx context.Context, query GetCalendarViewQuery, deps GetCalendarViewDeps) (CalendarView, error) {
	var snap orchestrators.SessionSnapshot
	_, err := deps.Sessions.WithSession(ctx, query.VisitorID, func(s *orchestrators.CalendarSession) error {
		snap = s.Snapshot()
		return nil
	})
	if err != nil {
		return CalendarView{}, err
	}
	return BuildCalendarView(snap), nil
}

// BuildCalendarView derives the view from a session snapshot.
// INVARIANT: snap is not mutated
func BuildCalendarView(snap orchestrators.SessionSnapshot) CalendarView {
	limits := access.NoLimits()
	if snap.Tier != "" {
		limits = access.LimitsFor(snap.Tier)
	}

	view := CalendarView{
		HeaderLabel:      snap.HeaderLabel,
		Activated:        snap.Tier != "",
		Tier:             string(snap.Tier),
		Code:             snap.Code,
		CodeError:        snap.CodeError,
		SelectedAgeGroup: snap.AgeGroupID,
		SelectedCategory: string(snap.Category),
		StartDate:        snap.StartDate.String(),
		StartDateLabel:   snap.StartDate.FormatLong(),
		UnlockedDayCount: snap.Summary.UnlockedDayCount,
		CompletedCount:   snap.Summary.CompletedCount,
		ProgressPercent:  snap.Summary.ProgressPercent,
		LastCompletedDay: snap.Summary.LastCompletedDay,
		NextOpenDay:      snap.NextOpenDay,
		Days:             make([]DayView, 0, progress.TotalDays),
	}

	for _, g := range curriculum.AgeGroups() {
		view.AgeGroups = append(view.AgeGroups, AgeGroupOption{
			ID: g.ID, Label: g.Label, Hint: g.Hint, Selected: g.ID == snap.AgeGroupID,
		})
	}
	for _, c := range access.Categories() {
		view.Categories = append(view.Categories, CategoryOption{
			ID: string(c), Label: c.Label(), Selected: c == snap.Category, Unlocked: limits.Allows(c),
		})
	}

	for day := progress.FirstDay; day <= progress.TotalDays; day++ {
		date := snap.StartDate.ForDay(day)
		view.Days = append(view.Days, DayView{
			Day:       day,
			Date:      date.String(),
			DateLabel: date.FormatShort(),
			IsToday:   date == snap.Today,
			Unlocked:  day <= snap.Summary.UnlockedDayCount,
			Completed: snap.Completion.Has(day),
			Plan:      PlanView(curriculum.PlanFor(day, snap.AgeGroupID, snap.Category)),
		})
	}
	return view
}

// PlanView converts a resolved day plan into its view form.
func PlanView(p curriculum.DayPlan) DayPlanView {
	out := DayPlanView{Title: p.Title, Subtitle: p.Subtitle, Focus: p.Focus}
	for _, r := range p.Resources {
		out.Resources = append(out.Resources, ResourceView{Label: r.Label, Note: r.Note})
	}
	return out
}
