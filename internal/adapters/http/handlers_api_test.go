package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/utamadigital/30-hari-new/internal/adapters/email"
	"github.com/utamadigital/30-hari-new/internal/adapters/http/middleware"
	"github.com/utamadigital/30-hari-new/internal/adapters/storage"
	calendarStore "github.com/utamadigital/30-hari-new/internal/adapters/storage/calendar"
	"github.com/utamadigital/30-hari-new/internal/application/orchestrators"
	"github.com/utamadigital/30-hari-new/internal/application/projections"
)

var testNow = time.Date(2026, 10, 15, 8, 30, 0, 0, time.UTC)

// testServer is a fully wired handler over in-memory storage.
type testServer struct {
	handler http.Handler
	sender  *email.NoopSender
	kv      *storage.MemoryKV
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerOn(t, storage.NewMemoryKV())
}

// newTestServerOn mounts fresh sessions over an existing store.
func newTestServerOn(t *testing.T, kv *storage.MemoryKV) *testServer {
	t.Helper()
	sender := email.NewNoopSender(nil)
	reg := orchestrators.NewSessionRegistry(orchestrators.SessionRegistryDeps{
		NewStore: func(id string) calendarStore.Store { return calendarStore.NewKVStore(kv, id) },
		Now:      func() time.Time { return testNow },
		Location: time.UTC,
	})
	handler, stop := NewMux(Deps{
		Sessions:           reg,
		Sender:             sender,
		From:               "Kalender <halo@example.com>",
		CSRFKey:            bytes.Repeat([]byte("k"), 32),
		RateLimitPerSecond: 10000,
	})
	t.Cleanup(stop)
	return &testServer{handler: handler, sender: sender, kv: kv}
}

// visitor is one browser with a fixed visitor cookie.
type visitor struct {
	srv *testServer
	id  string
}

func (s *testServer) visitor() *visitor {
	return &visitor{srv: s, id: uuid.NewString()}
}

func (v *visitor) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: middleware.VisitorCookieName, Value: v.id})
	rr := httptest.NewRecorder()
	v.srv.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode %T: %v (body %q)", out, err, rr.Body.String())
	}
	return out
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d (body %q)", rr.Code, want, rr.Body.String())
	}
}

// TestAPI_GetCalendar_Unactivated tests the first visit.
func TestAPI_GetCalendar_Unactivated(t *testing.T) {
	srv := newTestServer(t)
	rr := srv.visitor().do(t, "GET", "/api/kalender", nil)
	expectStatus(t, rr, http.StatusOK)

	view := decode[projections.CalendarView](t, rr)
	if view.Activated || view.HeaderLabel != orchestrators.HeaderUnactivated {
		t.Errorf("expected unactivated header, got %+v", view.HeaderLabel)
	}
	if len(view.Days) != 60 || view.UnlockedDayCount != 0 {
		t.Errorf("expected 60 locked days, got %d days and %d unlocked", len(view.Days), view.UnlockedDayCount)
	}
	if view.StartDate != "2026-10-15" || !view.Days[0].IsToday {
		t.Errorf("expected start date today, got %s", view.StartDate)
	}
}

// TestAPI_NewVisitorGetsCookie tests that a request without cookie is assigned a visitor.
func TestAPI_NewVisitorGetsCookie(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest("GET", "/api/kalender", nil)
	rr := httptest.NewRecorder()
	srv.handler.ServeHTTP(rr, req)
	expectStatus(t, rr, http.StatusOK)

	found := false
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.VisitorCookieName {
			found = true
		}
	}
	if !found {
		t.Error("expected a visitor cookie")
	}
}

// TestAPI_ActivationAndToggle tests the PROGRAM_30 flow end to end.
func TestAPI_ActivationAndToggle(t *testing.T) {
	v := newTestServer(t).visitor()

	rr := v.do(t, "POST", "/api/kalender/code", map[string]string{"code": "  prog30 "})
	expectStatus(t, rr, http.StatusOK)
	res := decode[codeResponse](t, rr)
	if !res.Accepted || res.Tier != "PROGRAM_30" || res.View.UnlockedDayCount != 30 {
		t.Fatalf("unexpected activation %+v", res)
	}
	if res.View.Code != "prog30" {
		t.Errorf("expected the trimmed code to be kept, got %q", res.View.Code)
	}

	rr = v.do(t, "POST", "/api/kalender/days/5/toggle", nil)
	expectStatus(t, rr, http.StatusOK)
	toggle := decode[toggleResponse](t, rr)
	if !toggle.Completed || toggle.CompletedCount != 1 || toggle.ProgressPercent != 3 {
		t.Errorf("unexpected toggle %+v", toggle)
	}

	rr = v.do(t, "POST", "/api/kalender/days/31/toggle", nil)
	expectStatus(t, rr, http.StatusConflict)

	rr = v.do(t, "GET", "/api/kalender/days/31", nil)
	expectStatus(t, rr, http.StatusOK)
	detail := decode[projections.DayDetail](t, rr)
	if detail.Open || detail.LockReason != string(orchestrators.LockUpgradeRequired) || detail.SuggestedTier != "FULL" {
		t.Errorf("unexpected day 31 %+v", detail)
	}
	if !detail.ShowPackageSheet {
		t.Error("expected the package sheet for an upgrade lock")
	}

	rr = v.do(t, "GET", "/api/kalender/days/5", nil)
	detail = decode[projections.DayDetail](t, rr)
	if !detail.Open || !detail.Completed || detail.Plan == nil {
		t.Errorf("unexpected day 5 %+v", detail)
	}
}

// TestAPI_InvalidCode tests the code error lifecycle.
func TestAPI_InvalidCode(t *testing.T) {
	v := newTestServer(t).visitor()

	rr := v.do(t, "POST", "/api/kalender/code", map[string]string{"code": "NOPE"})
	expectStatus(t, rr, http.StatusOK)
	res := decode[codeResponse](t, rr)
	if res.Accepted || res.CodeError != orchestrators.MsgInvalidCode {
		t.Fatalf("unexpected result %+v", res)
	}

	expectStatus(t, v.do(t, "POST", "/api/kalender/code/dismiss", nil), http.StatusNoContent)
	view := decode[projections.CalendarView](t, v.do(t, "GET", "/api/kalender", nil))
	if view.CodeError != "" {
		t.Errorf("expected code error cleared, got %q", view.CodeError)
	}

	rr = v.do(t, "POST", "/api/kalender/code", map[string]string{"code": strings.Repeat("A", 65)})
	expectStatus(t, rr, http.StatusBadRequest)
}

// TestAPI_RejectsUnknownFields tests strict JSON decoding.
func TestAPI_RejectsUnknownFields(t *testing.T) {
	v := newTestServer(t).visitor()
	expectStatus(t, v.do(t, "POST", "/api/kalender/code", `{"code":"FULL60","tier":"FULL"}`), http.StatusBadRequest)
	expectStatus(t, v.do(t, "POST", "/api/kalender/selection", `{"age":"5-6"}`), http.StatusBadRequest)
	expectStatus(t, v.do(t, "POST", "/api/kalender/start-date", `not json`), http.StatusBadRequest)
}

// TestAPI_Selection tests category and age changes, including fallback and bad input.
func TestAPI_Selection(t *testing.T) {
	v := newTestServer(t).visitor()
	v.do(t, "POST", "/api/kalender/code", map[string]string{"code": "BASIC7"})

	rr := v.do(t, "POST", "/api/kalender/selection", selectionRequest{AgeGroupID: "7-8", Category: "umum"})
	expectStatus(t, rr, http.StatusOK)
	view := decode[projections.CalendarView](t, rr)
	if view.SelectedAgeGroup != "7-8" {
		t.Errorf("expected age 7-8, got %s", view.SelectedAgeGroup)
	}
	if view.SelectedCategory != "islami" {
		t.Errorf("expected BASIC to fall back to islami, got %s", view.SelectedCategory)
	}

	expectStatus(t, v.do(t, "POST", "/api/kalender/selection", selectionRequest{Category: "sains"}), http.StatusBadRequest)
	expectStatus(t, v.do(t, "POST", "/api/kalender/selection", selectionRequest{AgeGroupID: "9-10"}), http.StatusBadRequest)

	view = decode[projections.CalendarView](t, v.do(t, "GET", "/api/kalender", nil))
	if view.SelectedAgeGroup != "7-8" {
		t.Errorf("rejected selection must not change state, got %s", view.SelectedAgeGroup)
	}
}

// TestAPI_SelectionRejectedAsAWhole tests that a bad category also discards the age group in the same request.
func TestAPI_SelectionRejectedAsAWhole(t *testing.T) {
	v := newTestServer(t).visitor()

	rr := v.do(t, "POST", "/api/kalender/selection", selectionRequest{AgeGroupID: "3-4", Category: "nope"})
	expectStatus(t, rr, http.StatusBadRequest)

	view := decode[projections.CalendarView](t, v.do(t, "GET", "/api/kalender", nil))
	if view.SelectedAgeGroup != "5-6" {
		t.Errorf("expected age group to stay 5-6, got %s", view.SelectedAgeGroup)
	}

	rr = v.do(t, "POST", "/api/kalender/selection", selectionRequest{AgeGroupID: "9-10", Category: "islami"})
	expectStatus(t, rr, http.StatusBadRequest)
	view = decode[projections.CalendarView](t, v.do(t, "GET", "/api/kalender", nil))
	if view.SelectedAgeGroup != "5-6" || view.SelectedCategory != "islami" {
		t.Errorf("unexpected state age=%s category=%s", view.SelectedAgeGroup, view.SelectedCategory)
	}
}

// TestAPI_StartDate tests moving Day 1.
func TestAPI_StartDate(t *testing.T) {
	v := newTestServer(t).visitor()

	rr := v.do(t, "POST", "/api/kalender/start-date", startDateRequest{StartDate: "2026-11-01"})
	expectStatus(t, rr, http.StatusOK)
	view := decode[projections.CalendarView](t, rr)
	if view.StartDate != "2026-11-01" || view.Days[59].Date != "2026-12-30" {
		t.Errorf("unexpected dates %s .. %s", view.StartDate, view.Days[59].Date)
	}

	expectStatus(t, v.do(t, "POST", "/api/kalender/start-date", startDateRequest{StartDate: "2026-02-30"}), http.StatusBadRequest)
	expectStatus(t, v.do(t, "POST", "/api/kalender/start-date", startDateRequest{}), http.StatusBadRequest)
}

// TestAPI_Reset tests that reset drops the tier but keeps the visitor's other state.
func TestAPI_Reset(t *testing.T) {
	v := newTestServer(t).visitor()
	v.do(t, "POST", "/api/kalender/code", map[string]string{"code": "FULL60"})
	v.do(t, "POST", "/api/kalender/days/1/toggle", nil)

	rr := v.do(t, "POST", "/api/kalender/reset", nil)
	expectStatus(t, rr, http.StatusOK)
	view := decode[projections.CalendarView](t, rr)
	if view.Activated || view.UnlockedDayCount != 0 {
		t.Errorf("expected reset view, got %+v", view.HeaderLabel)
	}
	if !view.Days[0].Completed {
		t.Error("reset must keep completion records")
	}
}

// TestAPI_BadDayPath tests that a non-numeric day is rejected.
func TestAPI_BadDayPath(t *testing.T) {
	v := newTestServer(t).visitor()
	expectStatus(t, v.do(t, "GET", "/api/kalender/days/abc", nil), http.StatusBadRequest)
	expectStatus(t, v.do(t, "POST", "/api/kalender/days/abc/toggle", nil), http.StatusBadRequest)

	detail := decode[projections.DayDetail](t, v.do(t, "GET", "/api/kalender/days/0", nil))
	if detail.LockReason != string(orchestrators.LockOutOfRange) {
		t.Errorf("expected out_of_range, got %+v", detail)
	}
}

// TestAPI_VisitorsAreIsolated tests that two cookies see separate calendars.
func TestAPI_VisitorsAreIsolated(t *testing.T) {
	srv := newTestServer(t)
	a, b := srv.visitor(), srv.visitor()
	a.do(t, "POST", "/api/kalender/code", map[string]string{"code": "FULL60"})

	view := decode[projections.CalendarView](t, b.do(t, "GET", "/api/kalender", nil))
	if view.Activated {
		t.Error("second visitor must not see the first visitor's tier")
	}
}

// TestAPI_Report tests the progress report endpoint.
func TestAPI_Report(t *testing.T) {
	srv := newTestServer(t)
	v := srv.visitor()

	rr := v.do(t, "POST", "/api/kalender/report", reportRequest{Email: "ibu@example.com"})
	expectStatus(t, rr, http.StatusConflict)

	v.do(t, "POST", "/api/kalender/code", map[string]string{"code": "BASIC7"})
	v.do(t, "POST", "/api/kalender/days/1/toggle", nil)

	expectStatus(t, v.do(t, "POST", "/api/kalender/report", reportRequest{Email: "not-an-email"}), http.StatusBadRequest)

	rr = v.do(t, "POST", "/api/kalender/report", reportRequest{Email: "ibu@example.com", ChildName: "Aisyah"})
	expectStatus(t, rr, http.StatusOK)
	if res := decode[reportResponse](t, rr); res.MessageID == "" {
		t.Error("expected a message id")
	}
	sent := srv.sender.Sent()
	if len(sent) != 1 || sent[0].To[0] != "ibu@example.com" {
		t.Fatalf("unexpected sends %+v", sent)
	}
	if !strings.Contains(sent[0].Text, "Aisyah") {
		t.Error("expected the child name in the report")
	}
}

// TestAPI_StatePersistsAcrossSessions tests that state survives an unmounted session.
func TestAPI_StatePersistsAcrossSessions(t *testing.T) {
	srv := newTestServer(t)
	v := srv.visitor()
	v.do(t, "POST", "/api/kalender/code", map[string]string{"code": "FULL60"})
	v.do(t, "POST", "/api/kalender/days/60/toggle", nil)

	// A second server over the same storage mounts fresh sessions.
	other := newTestServerOn(t, srv.kv)

	view := decode[projections.CalendarView](t, (&visitor{srv: other, id: v.id}).do(t, "GET", "/api/kalender", nil))
	if view.Tier != "FULL" || !view.Days[59].Completed {
		t.Errorf("expected restored FULL with day 60 done, got tier %q", view.Tier)
	}
}

// TestHealth tests the liveness endpoint.
func TestHealth(t *testing.T) {
	rr := newTestServer(t).visitor().do(t, "GET", "/healthz", nil)
	expectStatus(t, rr, http.StatusOK)
	if rr.Body.String() != "ok" {
		t.Errorf("body = %q", rr.Body.String())
	}
}
