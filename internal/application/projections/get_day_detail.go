package projections

import (
	"context"
	"slices"

	"github.com/utamadigital/30-hari-new/internal/application/events"
	"github.com/utamadigital/30-hari-new/internal/application/orchestrators"
	"github.com/utamadigital/30-hari-new/internal/domain/access"
	"github.com/utamadigital/30-hari-new/internal/domain/curriculum"
	"github.com/utamadigital/30-hari-new/internal/domain/progress"
)

// GetDayDetailQuery carries input for the day detail projection.
type GetDayDetailQuery struct {
	VisitorID string
	Day       int
}

// GetDayDetailDeps holds dependencies for the day detail projection.
type GetDayDetailDeps struct {
	Sessions CalendarSessionRunner
}

// DayDetail is the result of selecting one calendar day.
type DayDetail struct {
	Day              int             `json:"day"`
	Date             string          `json:"date,omitempty"`
	DateLabel        string          `json:"date_label,omitempty"`
	Open             bool            `json:"open"`
	Completed        bool            `json:"completed"`
	LockReason       string          `json:"lock_reason,omitempty"`
	Message          string          `json:"message,omitempty"`
	SuggestedTier    string          `json:"suggested_tier,omitempty"`
	ShowPackageSheet bool            `json:"show_package_sheet"`
	Packages         []PackageOption `json:"packages,omitempty"`
	Plan             *DayPlanView    `json:"plan,omitempty"`
}

// PackageOption is one entry of the package sheet.
type PackageOption struct {
	Tier      string `json:"tier"`
	Name      string `json:"name"`
	Label     string `json:"label"`
	Days      int    `json:"days"`
	Current   bool   `json:"current"`
	Suggested bool   `json:"suggested"`
}

// QueryGetDayDetail selects a day in the visitor's session and describes the outcome.
// PRE: VisitorID is non-empty
// POST: Plan is set only for open days; Packages only when the package sheet was requested
func QueryGetDayDetail(ctx context.Context, query GetDayDetailQuery, deps GetDayDetailDeps) (DayDetail, error) {
	var (
		out       orchestrators.DayOutcome
		snap      orchestrators.SessionSnapshot
		completed bool
	)
	evs, err := deps.Sessions.WithSession(ctx, query.VisitorID, func(s *orchestrators.CalendarSession) error {
		out = s.SelectDay(query.Day)
		completed = s.IsDayCompleted(query.Day)
		snap = s.Snapshot()
		return nil
	})
	if err != nil {
		return DayDetail{}, err
	}
	sheet := slices.ContainsFunc(evs, func(e events.Event) bool {
		return e.Kind == events.KindPackageSheetRequested
	})
	return BuildDayDetail(snap, out, completed, sheet), nil
}

// BuildDayDetail derives the detail view of one day outcome.
// INVARIANT: snap is not mutated
func BuildDayDetail(snap orchestrators.SessionSnapshot, out orchestrators.DayOutcome, completed, sheet bool) DayDetail {
	d := DayDetail{
		Day:              out.Day,
		Open:             out.Open(),
		Completed:        completed,
		Message:          out.Message,
		SuggestedTier:    string(out.SuggestedTier),
		ShowPackageSheet: sheet,
	}
	if !d.Open {
		d.LockReason = string(out.Kind)
	}
	if progress.ValidDay(out.Day) {
		date := snap.StartDate.ForDay(out.Day)
		d.Date = date.String()
		d.DateLabel = date.FormatLong()
	}
	if d.Open {
		plan := PlanView(curriculum.PlanFor(out.Day, snap.AgeGroupID, snap.Category))
		d.Plan = &plan
	}
	if sheet {
		d.Packages = PackageSheet(snap.Tier, out.SuggestedTier)
	}
	return d
}

// PackageSheet lists every package, marking the active and the suggested one.
func PackageSheet(current, suggested access.Tier) []PackageOption {
	var out []PackageOption
	for _, t := range access.Tiers() {
		out = append(out, PackageOption{
			Tier:      string(t),
			Name:      t.DisplayName(),
			Label:     t.Label(),
			Days:      access.LimitsFor(t).UnlockedDays,
			Current:   t == current,
			Suggested: t == suggested,
		})
	}
	return out
}
