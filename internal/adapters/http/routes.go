package web

import "net/http"

// registerRoutes binds every calendar route. Form routes live under /kalender, JSON under /api/kalender.
func (a *app) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/kalender", http.StatusSeeOther)
	})
	mux.HandleFunc("GET /healthz", handleHealth)

	// HTML page and form posts
	mux.HandleFunc("GET /kalender", a.handleCalendarPage)
	mux.HandleFunc("GET /kalender/days/{day}", a.handleDayPage)
	mux.HandleFunc("POST /kalender/code", a.handleFormCode)
	mux.HandleFunc("POST /kalender/code/dismiss", a.handleFormDismissCode)
	mux.HandleFunc("POST /kalender/reset", a.handleFormReset)
	mux.HandleFunc("POST /kalender/selection", a.handleFormSelection)
	mux.HandleFunc("POST /kalender/start-date", a.handleFormStartDate)
	mux.HandleFunc("POST /kalender/days/{day}/toggle", a.handleFormToggle)
	mux.HandleFunc("POST /kalender/report", a.handleFormReport)

	// JSON API
	mux.HandleFunc("GET /api/kalender", a.handleGetCalendar)
	mux.HandleFunc("POST /api/kalender/code", a.handlePostCode)
	mux.HandleFunc("POST /api/kalender/code/dismiss", a.handlePostDismissCode)
	mux.HandleFunc("POST /api/kalender/reset", a.handlePostReset)
	mux.HandleFunc("POST /api/kalender/selection", a.handlePostSelection)
	mux.HandleFunc("POST /api/kalender/start-date", a.handlePostStartDate)
	mux.HandleFunc("GET /api/kalender/days/{day}", a.handleGetDay)
	mux.HandleFunc("POST /api/kalender/days/{day}/toggle", a.handlePostToggle)
	mux.HandleFunc("POST /api/kalender/report", a.handlePostReport)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}
