package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"time"

	"github.com/Masterminds/sprig"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/predictmaint/predictmaint/internal/dashboard/models"
	"github.com/predictmaint/predictmaint/internal/dashboard/views"
)

//go:embed templates/*.html static/*
var assets embed.FS

const (
	requestTimeout = 10 * time.Second
	healthTimeout  = 5 * time.Second
	statusKey      = "api-status"
)

// Backend is the prediction API as the dashboard consumes it.
type Backend interface {
	Predict(ctx context.Context, req models.PredictRequest) (*models.PredictResponse, error)
	History(ctx context.Context) ([]models.PredictionHistory, error)
	Stats(ctx context.Context) (*models.Stats, error)
	Machines(ctx context.Context) ([]models.MachineInfo, error)
	MachinePredictions(ctx context.Context, machineID string) ([]models.PredictionHistory, error)
	Health(ctx context.Context) (*models.Health, error)
	ExportHistory(ctx context.Context) (*models.HistoryArchive, error)
}

type Options struct {
	// StatsInterval is how often connected browsers get a fresh snapshot.
	StatsInterval time.Duration
	// StatusTTL bounds how stale the sidebar's API badge may be.
	StatusTTL time.Duration
}

type Server struct {
	mux      *http.ServeMux
	tmpl     *template.Template
	api      Backend
	hub      *hub
	status   *cache.Cache
	interval time.Duration
	now      func() time.Time
}

func New(api Backend, opts Options) *Server {
	if opts.StatsInterval <= 0 {
		opts.StatsInterval = 10 * time.Second
	}
	if opts.StatusTTL <= 0 {
		opts.StatusTTL = 15 * time.Second
	}

	funcMap := sprig.FuncMap()
	local := template.FuncMap{
		"oneDecimal": views.OneDecimal,
		"lastValue":  views.LastValue,
		"percent":    views.Percent,
		"latest":     views.LatestLabel,
		"fmtTime":    func(t models.Timestamp) string { return views.FormatTime(t.Time) },
		"optTime": func(t *models.Timestamp) string {
			if t == nil {
				return "N/A"
			}
			return views.FormatTime(t.Time)
		},
		"machineURL": machineURL,
	}
	for k, v := range local {
		funcMap[k] = v
	}

	tmpl := template.Must(template.New("base").Funcs(funcMap).ParseFS(assets, "templates/*.html"))

	s := &Server{
		mux:      http.NewServeMux(),
		tmpl:     tmpl,
		api:      api,
		hub:      newHub(),
		status:   cache.New(opts.StatusTTL, 2*opts.StatusTTL),
		interval: opts.StatsInterval,
		now:      time.Now,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	static, _ := fs.Sub(assets, "static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)
	s.mux.HandleFunc("GET /api/stats", s.handleAPIStats)

	s.mux.HandleFunc("GET /{$}", s.handleDashboard)
	s.mux.HandleFunc("GET /dashboard", s.handleDashboard)
	s.mux.HandleFunc("GET /history", s.handleHistory)
	s.mux.HandleFunc("POST /history/export", s.handleExport)
	s.mux.HandleFunc("GET /machines", s.handleMachines)
	s.mux.HandleFunc("GET /machine/{id}", s.handleMachine)
	s.mux.HandleFunc("GET /predict", s.handlePredictForm)
	s.mux.HandleFunc("POST /predict", s.handlePredict)

	s.mux.HandleFunc("GET /fragments/dashboard", s.fragmentDashboard)
	s.mux.HandleFunc("GET /fragments/history", s.fragmentHistory)
	s.mux.HandleFunc("GET /fragments/machines", s.fragmentMachines)
	s.mux.HandleFunc("GET /fragments/machine/{id}", s.fragmentMachine)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Run pushes a stats snapshot to every connected browser each interval
// until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	go s.hub.run(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if s.hub.size() == 0 {
				continue
			}
			snap, err := s.snapshot(ctx)
			if err != nil {
				log.Debug().Err(err).Msg("stats snapshot skipped")
				continue
			}
			s.hub.publish(message{Type: "update", Data: snap})
		}
	}
}

// loadDashboard fetches stats and history concurrently and waits for both.
func (s *Server) loadDashboard(ctx context.Context) (*models.Stats, []models.PredictionHistory, error) {
	var (
		stats   *models.Stats
		history []models.PredictionHistory
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = s.api.Stats(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = s.api.History(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return stats, views.Recent(history, views.RecentLimit), nil
}

func (s *Server) snapshot(ctx context.Context) (*models.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	stats, recent, err := s.loadDashboard(ctx)
	if err != nil {
		return nil, err
	}
	return &models.Snapshot{Stats: stats, Recent: recent, Timestamp: s.now().Unix()}, nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	status := "offline"
	if h, err := s.api.Health(ctx); err == nil && h != nil {
		status = "online"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("api stats")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": views.MsgDashboardFailed})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// apiStatus feeds the sidebar badge. Results are cached so page loads do not
// each ping the backend.
func (s *Server) apiStatus(ctx context.Context) string {
	if v, ok := s.status.Get(statusKey); ok {
		return v.(string)
	}

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	status := "offline"
	if h, err := s.api.Health(ctx); err == nil && h != nil {
		status = "online"
	}
	if ctx.Err() == nil {
		s.status.SetDefault(statusKey, status)
	}
	return status
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("render")
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write json")
	}
}

func machineURL(id string) string {
	return "/machine/" + url.PathEscape(id)
}
