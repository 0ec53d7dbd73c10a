package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/utamadigital/30-hari-new/internal/adapters/email"
	"github.com/utamadigital/30-hari-new/internal/application/orchestrators"
	"github.com/utamadigital/30-hari-new/internal/application/projections"
	"github.com/utamadigital/30-hari-new/internal/domain/access"
	"github.com/utamadigital/30-hari-new/internal/domain/calendar"
	"github.com/utamadigital/30-hari-new/internal/domain/curriculum"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type codeRequest struct {
	Code string `json:"code" validate:"max=64"`
}

type codeResponse struct {
	Accepted  bool                     `json:"accepted"`
	Tier      string                   `json:"tier,omitempty"`
	CodeError string                   `json:"code_error,omitempty"`
	View      projections.CalendarView `json:"view"`
}

type selectionRequest struct {
	AgeGroupID string `json:"age_group_id"`
	Category   string `json:"category"`
}

type startDateRequest struct {
	StartDate string `json:"start_date" validate:"required"`
}

type toggleResponse struct {
	Day             int  `json:"day"`
	Completed       bool `json:"completed"`
	CompletedCount  int  `json:"completed_count"`
	ProgressPercent int  `json:"progress_percent"`
}

type reportRequest struct {
	Email     string `json:"email"`
	ChildName string `json:"child_name"`
}

type reportResponse struct {
	MessageID string `json:"message_id"`
}

// isBadInput reports whether err stems from a rejected value rather than a server fault.
func isBadInput(err error) bool {
	return errors.Is(err, orchestrators.ErrUnknownAgeGroup) ||
		errors.Is(err, access.ErrUnknownCategory) ||
		errors.Is(err, calendar.ErrInvalidDate)
}

// applySelection changes the age group and/or category. Empty values are left unchanged.
// POST: Both values are checked before either is applied, so a rejected request changes nothing
func applySelection(ctx context.Context, s *orchestrators.CalendarSession, ageGroupID, category string) error {
	if ageGroupID != "" {
		if _, ok := curriculum.FindAgeGroup(ageGroupID); !ok {
			return orchestrators.ErrUnknownAgeGroup
		}
	}
	var c access.Category
	if category != "" {
		parsed, err := access.ParseCategory(category)
		if err != nil {
			return err
		}
		c = parsed
	}

	if ageGroupID != "" {
		if err := s.ChangeAgeGroup(ctx, ageGroupID); err != nil {
			return err
		}
	}
	if category != "" {
		if _, err := s.ChangeCategory(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// applyStartDate parses a YYYY-MM-DD value and moves Day 1 to it.
func applyStartDate(ctx context.Context, s *orchestrators.CalendarSession, raw string) error {
	d, err := calendar.ParseISO(raw)
	if err != nil {
		return err
	}
	return s.ChangeStartDate(ctx, d)
}

// sendReport runs the progress report orchestrator for the caller.
// POST: On failure returns the HTTP status and a client-safe message
func (a *app) sendReport(r *http.Request, visitor, to, childName string) (email.SendResult, int, string) {
	if a.sender == nil {
		return email.SendResult{}, http.StatusServiceUnavailable, "email is not configured"
	}
	ctx, cancel := orchestrators.WithReportTimeout(r.Context())
	defer cancel()

	res, err := orchestrators.ExecuteSendProgressReport(ctx, orchestrators.SendProgressReportInput{
		VisitorID: visitor,
		Email:     to,
		ChildName: childName,
	}, orchestrators.SendProgressReportDeps{
		Sessions: a.sessions,
		Sender:   a.sender,
		From:     a.from,
		ReplyTo:  a.replyTo,
		Logger:   a.log,
	})
	var verrs validator.ValidationErrors
	switch {
	case err == nil:
		return res, http.StatusOK, ""
	case errors.As(err, &verrs):
		return res, http.StatusBadRequest, "invalid email address"
	case errors.Is(err, orchestrators.ErrNotActivated):
		return res, http.StatusConflict, "calendar is not activated"
	default:
		a.log.Warn("progress_report_failed", zap.String("visitor_id", visitor), zap.Error(err))
		return res, http.StatusBadGateway, "could not send report"
	}
}

// handleGetCalendar returns the full calendar view.
func (a *app) handleGetCalendar(w http.ResponseWriter, r *http.Request) {
	id, ok := visitorID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing visitor")
		return
	}
	view, err := projections.QueryGetCalendarView(r.Context(), projections.GetCalendarViewQuery{VisitorID: id},
		projections.GetCalendarViewDeps{Sessions: a.sessions})
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handlePostCode activates a tier from an access code.
// An unknown code is not an HTTP error: the session keeps the message in code_error.
func (a *app) handlePostCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := strictDecode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "code is too long")
		return
	}
	var resp codeResponse
	_, ok := a.withSession(w, r, func(s *orchestrators.CalendarSession) error {
		res := s.SubmitCode(r.Context(), orchestrators.SubmitCodeInput{Code: req.Code})
		resp = codeResponse{
			Accepted:  res.Accepted,
			Tier:      string(res.Tier),
			CodeError: res.CodeError,
			View:      projections.BuildCalendarView(s.Snapshot()),
		}
		return nil
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePostDismissCode clears the invalid-code message.
func (a *app) handlePostDismissCode(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.withSession(w, r, func(s *orchestrators.CalendarSession) error {
		s.ClearCodeError()
		return nil
	}); ok {
		w.WriteHeader(http.StatusNoContent)
	}
}

// handlePostReset drops the active tier.
func (a *app) handlePostReset(w http.ResponseWriter, r *http.Request) {
	a.mutateView(w, r, func(s *orchestrators.CalendarSession) error {
		s.ResetAccess(r.Context())
		return nil
	})
}

// handlePostSelection changes age group and/or category.
func (a *app) handlePostSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := strictDecode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	a.mutateView(w, r, func(s *orchestrators.CalendarSession) error {
		return applySelection(r.Context(), s, req.AgeGroupID, req.Category)
	})
}

// handlePostStartDate moves Day 1.
func (a *app) handlePostStartDate(w http.ResponseWriter, r *http.Request) {
	var req startDateRequest
	if err := strictDecode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "start_date is required")
		return
	}
	a.mutateView(w, r, func(s *orchestrators.CalendarSession) error {
		return applyStartDate(r.Context(), s, req.StartDate)
	})
}

// mutateView runs fn and answers with the resulting calendar view.
// Rejected input answers 400 with the session unchanged.
func (a *app) mutateView(w http.ResponseWriter, r *http.Request, fn func(s *orchestrators.CalendarSession) error) {
	id, ok := visitorID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing visitor")
		return
	}
	var view projections.CalendarView
	_, err := a.sessions.WithSession(r.Context(), id, func(s *orchestrators.CalendarSession) error {
		if err := fn(s); err != nil {
			return err
		}
		view = projections.BuildCalendarView(s.Snapshot())
		return nil
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, view)
	case isBadInput(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		a.internalError(w, r, err)
	}
}

// handleGetDay selects a day and returns its detail or lock reason.
func (a *app) handleGetDay(w http.ResponseWriter, r *http.Request) {
	day, err := pathDay(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, ok := visitorID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing visitor")
		return
	}
	detail, err := projections.QueryGetDayDetail(r.Context(), projections.GetDayDetailQuery{VisitorID: id, Day: day},
		projections.GetDayDetailDeps{Sessions: a.sessions})
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// handlePostToggle flips a day's done state.
func (a *app) handlePostToggle(w http.ResponseWriter, r *http.Request) {
	day, err := pathDay(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var (
		toggled bool
		resp    toggleResponse
	)
	_, ok := a.withSession(w, r, func(s *orchestrators.CalendarSession) error {
		toggled = s.ToggleCompletion(r.Context(), day)
		sum := s.Summary()
		resp = toggleResponse{
			Day:             day,
			Completed:       s.IsDayCompleted(day),
			CompletedCount:  sum.CompletedCount,
			ProgressPercent: sum.ProgressPercent,
		}
		return nil
	})
	if !ok {
		return
	}
	if !toggled {
		writeError(w, http.StatusConflict, "day is locked")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePostReport emails the caller's progress report.
func (a *app) handlePostReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := strictDecode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	id, ok := visitorID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing visitor")
		return
	}
	res, status, msg := a.sendReport(r, id, req.Email, req.ChildName)
	if status != http.StatusOK {
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{MessageID: res.MessageID})
}
