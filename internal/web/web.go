package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"sync"
	"time"

	"deskcal/internal/app"
	"deskcal/internal/config"
	"deskcal/internal/grid"
	"deskcal/internal/ics"
	appLog "deskcal/internal/log"
	"deskcal/internal/model"
	"deskcal/internal/nav"
)

//go:embed templates/calendar.html
var templateFS embed.FS

var calendarTmpl = template.Must(template.ParseFS(templateFS, "templates/calendar.html"))

// Server exposes the calendar over HTTP: a JSON API, an HTML month page and
// an ICS feed.
//
// Every controller call happens under mu, so requests are applied one at a
// time and a mutation is saved before its response is written.
type Server struct {
	cfg  *config.Config
	ctrl *app.Controller
	mu   *sync.Mutex
	mux  *http.ServeMux
	now  func() time.Time
}

// NewServer constructs a Server. mu must be shared with any other goroutine
// touching ctrl (e.g. the scheduled export).
func NewServer(cfg *config.Config, ctrl *app.Controller, mu *sync.Mutex) *Server {
	s := &Server{
		cfg:  cfg,
		ctrl: ctrl,
		mu:   mu,
		mux:  http.NewServeMux(),
		now:  time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler, wrapped with basic auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// 빈 사용자명 또는 비밀번호는 비활성화로 취급한다.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware guards every path except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="deskcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Run serves on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/month", s.handleMonth)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/calendar", s.handleCalendarPage)
	s.mux.HandleFunc("/calendar.ics", s.handleICS)
	s.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/calendar", http.StatusFound)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// cellDTO is the JSON view of a grid cell.
type cellDTO struct {
	Row   int    `json:"row"`
	Col   int    `json:"col"`
	Day   int    `json:"day,omitempty"`
	Date  string `json:"date,omitempty"`
	Label string `json:"label,omitempty"`
	More  int    `json:"more,omitempty"`
	Today bool   `json:"today,omitempty"`
}

// monthResponse is the JSON response shape for /api/month.
type monthResponse struct {
	Title        string    `json:"title"`
	Year         int       `json:"year"`
	Month        int       `json:"month"`
	FirstWeekday int       `json:"first_weekday"`
	DaysInMonth  int       `json:"days_in_month"`
	Weekdays     []string  `json:"weekdays"`
	Cells        []cellDTO `json:"cells"`
}

func toMonthResponse(g grid.Grid) monthResponse {
	resp := monthResponse{
		Title:        g.Title(),
		Year:         g.Year,
		Month:        int(g.Month),
		FirstWeekday: g.FirstWeekday,
		DaysInMonth:  g.DaysInMonth,
		Weekdays:     grid.WeekdayNames[:],
		Cells:        make([]cellDTO, 0, grid.Cells),
	}
	for _, c := range g.Cells {
		dto := cellDTO{Row: c.Row, Col: c.Col}
		if !c.Blank() {
			dto.Day = c.Day
			dto.Date = c.Date.String()
			dto.Label = c.Label
			dto.More = c.More
			dto.Today = c.Today
		}
		resp.Cells = append(resp.Cells, dto)
	}
	return resp
}

// monthFromQuery reads ?year=&month=, defaulting to the current month.
func (s *Server) monthFromQuery(r *http.Request) (nav.State, error) {
	cur := nav.At(s.now())
	q := r.URL.Query()
	year := parseIntDefault(q.Get("year"), cur.Year)
	month := parseIntDefault(q.Get("month"), int(cur.Month))
	return nav.New(year, time.Month(month))
}

// handleMonth returns the grid model for a month.
//
// GET /api/month?year=2025&month=3
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	st, err := s.monthFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	g, err := s.ctrl.Month(st.Year, st.Month)
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toMonthResponse(g))
}

type eventRequest struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// handleEvents lists, adds and removes events.
//
//	GET    /api/events[?date=YYYY-MM-DD]
//	POST   /api/events            {"date": "...", "name": "..."}
//	DELETE /api/events?date=...&name=...
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listEvents(w, r)
	case http.MethodPost:
		s.addEvent(w, r)
	case http.MethodDelete:
		s.removeEvent(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("date")

	var events []model.Event
	if raw == "" {
		s.mu.Lock()
		events = s.ctrl.Events()
		s.mu.Unlock()
	} else {
		d, err := model.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.mu.Lock()
		events = s.ctrl.EventsOn(d)
		s.mu.Unlock()
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) addEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64*1024)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	d, err := model.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	_, err = s.ctrl.AddEvent(d, req.Name)
	s.mu.Unlock()

	switch {
	case errors.Is(err, model.ErrEmptyName):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		// The event is kept in memory; only persistence failed.
		writeError(w, http.StatusInternalServerError, "event added but not saved")
		return
	}
	writeJSON(w, http.StatusCreated, model.Event{Date: d, Name: req.Name})
}

func (s *Server) removeEvent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	d, err := model.ParseDate(q.Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	_, removed, err := s.ctrl.RemoveEvent(d, q.Get("name"))
	s.mu.Unlock()

	if err != nil {
		writeError(w, http.StatusInternalServerError, "event removed but not saved")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

type navLink struct {
	Year  int
	Month int
}

func linkTo(st nav.State) navLink {
	return navLink{Year: st.Year, Month: int(st.Month)}
}

type calendarPage struct {
	Title     string
	Weekdays  [grid.Cols]string
	Rows      [][]grid.Cell
	PrevMonth navLink
	NextMonth navLink
	PrevYear  navLink
	NextYear  navLink
}

// handleCalendarPage renders the month as HTML. The root element carries
// data-ready="true" for the headless snapshot capture.
func (s *Server) handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	st, err := s.monthFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	g, err := s.ctrl.Month(st.Year, st.Month)
	s.mu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	page := calendarPage{
		Title:     g.Title(),
		Weekdays:  grid.WeekdayNames,
		PrevMonth: linkTo(st.PreviousMonth()),
		NextMonth: linkTo(st.NextMonth()),
		PrevYear:  linkTo(st.PreviousYear()),
		NextYear:  linkTo(st.NextYear()),
	}
	for row := 0; row < grid.Rows; row++ {
		page.Rows = append(page.Rows, g.Cells[row*grid.Cols:(row+1)*grid.Cols])
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := calendarTmpl.Execute(w, page); err != nil {
		appLog.Error("calendar template failed", err)
	}
}

// handleICS serves the whole store as an iCalendar feed.
func (s *Server) handleICS(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	events := s.ctrl.Events()
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="deskcal.ics"`)
	_, _ = w.Write([]byte(ics.Export(events, s.now())))
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
