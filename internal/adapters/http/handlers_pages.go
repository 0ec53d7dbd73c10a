package web

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/utamadigital/30-hari-new/internal/application/orchestrators"
	"github.com/utamadigital/30-hari-new/internal/application/projections"
)

// reportNotices maps the ?report= flash value to the text shown above the report form.
var reportNotices = map[string]string{
	"sent":     "Laporan progres sudah dikirim ke email kamu.",
	"invalid":  "Alamat email tidak valid.",
	"inactive": "Aktifkan kalender dulu sebelum mengirim laporan.",
	"failed":   "Laporan belum bisa dikirim. Coba lagi nanti ya.",
}

type calendarPage struct {
	View          projections.CalendarView
	ReportNotice  string
	ReportEnabled bool
}

type dayPage struct {
	View   projections.CalendarView
	Detail projections.DayDetail
}

// handleCalendarPage renders the 60-day grid.
func (a *app) handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	id, ok := visitorID(r)
	if !ok {
		http.Error(w, "missing visitor", http.StatusBadRequest)
		return
	}
	view, err := projections.QueryGetCalendarView(r.Context(), projections.GetCalendarViewQuery{VisitorID: id},
		projections.GetCalendarViewDeps{Sessions: a.sessions})
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	a.renderTemplate(w, r, "kalender.html", calendarPage{
		View:          view,
		ReportNotice:  reportNotices[r.URL.Query().Get("report")],
		ReportEnabled: a.sender != nil,
	})
}

// handleDayPage renders one day, or its lock notice and package sheet.
func (a *app) handleDayPage(w http.ResponseWriter, r *http.Request) {
	day, err := pathDay(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id, ok := visitorID(r)
	if !ok {
		http.Error(w, "missing visitor", http.StatusBadRequest)
		return
	}
	detail, err := projections.QueryGetDayDetail(r.Context(), projections.GetDayDetailQuery{VisitorID: id, Day: day},
		projections.GetDayDetailDeps{Sessions: a.sessions})
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	view, err := projections.QueryGetCalendarView(r.Context(), projections.GetCalendarViewQuery{VisitorID: id},
		projections.GetCalendarViewDeps{Sessions: a.sessions})
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	a.renderTemplate(w, r, "day.html", dayPage{View: view, Detail: detail})
}

// formMutation runs fn for a form post and redirects back to target.
// Rejected input answers 400; the browser shows the plain message.
func (a *app) formMutation(w http.ResponseWriter, r *http.Request, target string, fn func(s *orchestrators.CalendarSession) error) {
	id, ok := visitorID(r)
	if !ok {
		http.Error(w, "missing visitor", http.StatusBadRequest)
		return
	}
	_, err := a.sessions.WithSession(r.Context(), id, fn)
	switch {
	case err == nil:
		http.Redirect(w, r, target, http.StatusSeeOther)
	case isBadInput(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		a.internalError(w, r, err)
	}
}

func (a *app) handleFormCode(w http.ResponseWriter, r *http.Request) {
	code := r.FormValue("code")
	if len(code) > 64 {
		http.Error(w, "code is too long", http.StatusBadRequest)
		return
	}
	a.formMutation(w, r, "/kalender", func(s *orchestrators.CalendarSession) error {
		s.SubmitCode(r.Context(), orchestrators.SubmitCodeInput{Code: code})
		return nil
	})
}

func (a *app) handleFormDismissCode(w http.ResponseWriter, r *http.Request) {
	a.formMutation(w, r, "/kalender", func(s *orchestrators.CalendarSession) error {
		s.ClearCodeError()
		return nil
	})
}

func (a *app) handleFormReset(w http.ResponseWriter, r *http.Request) {
	a.formMutation(w, r, "/kalender", func(s *orchestrators.CalendarSession) error {
		s.ResetAccess(r.Context())
		return nil
	})
}

func (a *app) handleFormSelection(w http.ResponseWriter, r *http.Request) {
	ageGroupID, category := r.FormValue("age_group_id"), r.FormValue("category")
	a.formMutation(w, r, "/kalender", func(s *orchestrators.CalendarSession) error {
		return applySelection(r.Context(), s, ageGroupID, category)
	})
}

func (a *app) handleFormStartDate(w http.ResponseWriter, r *http.Request) {
	raw := r.FormValue("start_date")
	a.formMutation(w, r, "/kalender", func(s *orchestrators.CalendarSession) error {
		return applyStartDate(r.Context(), s, raw)
	})
}

// handleFormToggle flips a day and returns to its page. Locked days are left unchanged.
func (a *app) handleFormToggle(w http.ResponseWriter, r *http.Request) {
	day, err := pathDay(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	a.formMutation(w, r, "/kalender/days/"+strconv.Itoa(day), func(s *orchestrators.CalendarSession) error {
		s.ToggleCompletion(r.Context(), day)
		return nil
	})
}

// handleFormReport sends the progress report and flashes the outcome through ?report=.
func (a *app) handleFormReport(w http.ResponseWriter, r *http.Request) {
	id, ok := visitorID(r)
	if !ok {
		http.Error(w, "missing visitor", http.StatusBadRequest)
		return
	}
	_, status, _ := a.sendReport(r, id, r.FormValue("email"), r.FormValue("child_name"))
	flash := "failed"
	switch status {
	case http.StatusOK:
		flash = "sent"
	case http.StatusBadRequest:
		flash = "invalid"
	case http.StatusConflict:
		flash = "inactive"
	}
	http.Redirect(w, r, "/kalender?"+url.Values{"report": {flash}}.Encode()+"#laporan", http.StatusSeeOther)
}
