package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"monthcal/internal/bucket"
	"monthcal/internal/calendar"
	"monthcal/internal/config"
	"monthcal/internal/event"
	"monthcal/internal/grid"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
	"monthcal/internal/palette"
)

// Server exposes the month grid and day buckets as JSON.
type Server struct {
	cfg    *config.Config
	store  bucket.EventStore
	cal    calendar.Calendar
	colors *palette.Cache
	now    func() time.Time
	router *mux.Router
}

// Options wires the collaborators of a Server.
type Options struct {
	Config   *config.Config
	Store    bucket.EventStore
	Calendar calendar.Calendar
	Colors   *palette.Cache
	// Now is used when a request has no date; defaults to time.Now.
	Now func() time.Time
}

// NewServer constructs a new Server.
func NewServer(opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Colors == nil {
		opts.Colors = palette.NewCache(opts.Config.ColorSeed)
	}
	s := &Server{
		cfg:    opts.Config,
		store:  opts.Store,
		cal:    opts.Calendar,
		colors: opts.Colors,
		now:    opts.Now,
		router: mux.NewRouter(),
	}
	s.pinSourceColors()
	s.registerRoutes()
	return s
}

// Handler returns the router, wrapped in basic auth when configured.
func (s *Server) Handler() http.Handler {
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", s.cfg.Listen)
		return s.basicAuthMiddleware(s.router)
	}
	return s.router
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
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
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/month", s.handleMonth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/events", s.handleEvents).Methods(http.MethodGet)
}

// pinSourceColors applies colors configured per ICS source; the rest are
// assigned randomly on first use.
func (s *Server) pinSourceColors() {
	for _, src := range s.cfg.ICS {
		if src.Color == "" {
			continue
		}
		c, err := palette.Parse(src.Color)
		if err != nil {
			appLog.Error("invalid source color; using random", err, "id", src.SourceID(), "color", src.Color)
			continue
		}
		s.colors.Set(src.SourceID(), c)
	}
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password disables auth.
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
			w.Header().Set("WWW-Authenticate", `Basic realm="monthcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleMonth returns the grid for a month with per-day segments.
//
// GET /api/month?date=2025-10&calendars=work,home
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	ref, err := s.parseReference(q.Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter := parseFilter(q.Get("calendars"))
	cfg := s.cfg.CalendarConfig()

	g := grid.Generate(ref, cfg, s.cal)
	if g.Empty() {
		writeError(w, http.StatusUnprocessableEntity, "cannot render this month")
		return
	}

	// One fetch over the whole grid; the month buckets are a subset of it.
	gridStart, gridEnd := g.Range(s.cal)
	events, err := s.store.FetchEvents(ctx, gridStart, gridEnd, filter)
	if err != nil {
		appLog.Error("api month: fetch failed", err)
		writeError(w, http.StatusBadGateway, "failed to load events")
		return
	}
	buckets, err := bucket.BucketMonth(events, ref, s.cal)
	if err != nil {
		appLog.Error("api month: bucket failed", err)
		writeError(w, http.StatusUnprocessableEntity, "cannot render this month")
		return
	}
	segments := bucket.Segments(g.Dates, events, s.cal)
	placed := event.Build(segments, events, s.colorOf, nil)

	resp := monthResponse{
		Year:      g.Year,
		Month:     int(g.Month),
		WeekStart: strings.ToLower(cfg.FirstDayOfWeek.String()),
		Timezone:  s.cal.Location().String(),
		Offset:    g.Offset(),
		Days:      make([]dayDTO, 0, len(g.Dates)),
	}
	for i, day := range g.Dates {
		dto := dayDTO{
			Date:     day.Format(time.DateOnly),
			InMonth:  g.InMonth(i),
			Starting: idsOf(buckets[day]),
			Segments: make([]segmentDTO, 0, len(placed[day])),
		}
		for _, p := range placed[day] {
			dto.Segments = append(dto.Segments, toSegmentDTO(p))
		}
		resp.Days = append(resp.Days, dto)
	}

	appLog.Debug("api month",
		"month", g.FirstOfMonth().Format("2006-01"),
		"events", len(events),
		"bucketed", buckets.Len(),
	)
	writeJSON(w, http.StatusOK, resp)
}

// handleEvents returns raw events intersecting [start, end).
//
// GET /api/events?start=2025-10-01&end=2025-11-01&calendars=work
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	loc := s.cal.Location()

	start, err := time.ParseInLocation(time.DateOnly, q.Get("start"), loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start must be YYYY-MM-DD")
		return
	}
	end, err := time.ParseInLocation(time.DateOnly, q.Get("end"), loc)
	if err != nil || !end.After(start) {
		writeError(w, http.StatusBadRequest, "end must be YYYY-MM-DD after start")
		return
	}

	events, err := s.store.FetchEvents(r.Context(), start, end, parseFilter(q.Get("calendars")))
	if err != nil {
		appLog.Error("api events: fetch failed", err)
		writeError(w, http.StatusBadGateway, "failed to load events")
		return
	}

	out := make([]eventDTO, 0, len(events))
	for _, ev := range events {
		out = append(out, eventDTO{
			ID:       ev.ID,
			SourceID: ev.SourceID,
			Title:    ev.Title,
			Location: ev.Location,
			AllDay:   ev.AllDay,
			Start:    ev.Start,
			End:      ev.End,
			Color:    s.colorOf(ev).Hex(),
		})
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: out})
}

func (s *Server) colorOf(ev *model.SourceEvent) palette.Color {
	key := ev.ColorSeed
	if key == "" {
		key = ev.SourceID
	}
	return s.colors.Get(key)
}

// parseReference accepts YYYY-MM or YYYY-MM-DD; empty means today.
func (s *Server) parseReference(v string) (time.Time, error) {
	loc := s.cal.Location()
	if v == "" {
		return s.now().In(loc), nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, v, loc); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01", v, loc); err == nil {
		return t, nil
	}
	return time.Time{}, errors.New("date must be YYYY-MM or YYYY-MM-DD")
}

func parseFilter(v string) bucket.Filter {
	var f bucket.Filter
	for _, id := range strings.Split(v, ",") {
		if id = strings.TrimSpace(id); id != "" {
			f.SourceIDs = append(f.SourceIDs, id)
		}
	}
	return f
}

func idsOf(events []*model.SourceEvent) []string {
	ids := make([]string, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}
	return ids
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
