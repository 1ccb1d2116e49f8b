package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"

	"github.com/predictmaint/predictmaint/internal/dashboard/models"
	"github.com/predictmaint/predictmaint/internal/dashboard/views"
)

// shell is the page frame. Data pages render a spinner into it and load
// their content from Fragment; the predict page renders inline.
type shell struct {
	Title    string
	Active   string
	Status   string
	Fragment string
	Error    string
	Notice   *notice
	Predict  *predictView
}

type notice struct {
	Kind string
	Text string
	Link string
}

type dashboardView struct {
	Stats  *models.Stats
	Recent []models.PredictionHistory
}

type historyView struct {
	Query string
	Items []models.PredictionHistory
	Empty string
}

type machineView struct {
	ID    string
	Items []models.PredictionHistory
	Stats views.MachineStats
	Empty string
}

type predictForm struct {
	MachineID   string
	Temperature string
	Humidity    string
}

type predictView struct {
	Form   predictForm
	Result *models.PredictResponse
	Error  string
}

func (s *Server) page(r *http.Request, active, title, fragment, errMsg string) shell {
	return shell{
		Title:    title,
		Active:   active,
		Status:   s.apiStatus(r.Context()),
		Fragment: fragment,
		Error:    errMsg,
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.render(w, "layout", s.page(r, "dashboard", "Dashboard", "/fragments/dashboard", views.MsgDashboardFailed))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	fragment := "/fragments/history"
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		fragment += "?q=" + url.QueryEscape(q)
	}
	s.render(w, "layout", s.page(r, "history", "History", fragment, views.MsgHistoryFailed))
}

func (s *Server) handleMachines(w http.ResponseWriter, r *http.Request) {
	s.render(w, "layout", s.page(r, "machines", "Machines", "/fragments/machines", views.MsgMachinesFailed))
}

func (s *Server) handleMachine(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.render(w, "layout", s.page(r, "machines", "Machine "+id, "/fragments/machine/"+url.PathEscape(id), views.MsgMachineFailed))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	p := s.page(r, "history", "History", "/fragments/history", views.MsgHistoryFailed)
	out, err := s.api.ExportHistory(ctx)
	if err != nil {
		log.Error().Err(err).Msg("export history")
		p.Notice = &notice{Kind: "error", Text: views.MsgExportFailed}
	} else {
		p.Notice = &notice{
			Kind: "success",
			Text: fmt.Sprintf("Exported %d predictions", out.Count),
			Link: out.ReportURL,
		}
	}
	s.render(w, "layout", p)
}

func (s *Server) handlePredictForm(w http.ResponseWriter, r *http.Request) {
	p := s.page(r, "predict", "New Prediction", "", "")
	p.Predict = &predictView{}
	s.render(w, "layout", p)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	view := &predictView{Form: predictForm{
		MachineID:   r.PostFormValue("machineId"),
		Temperature: r.PostFormValue("temperature"),
		Humidity:    r.PostFormValue("humidity"),
	}}

	if req, err := view.Form.request(); err != nil {
		view.Error = err.Error()
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		resp, err := s.api.Predict(ctx, req)
		if err != nil {
			log.Error().Err(err).Str("machine_id", req.MachineID).Msg("predict")
			view.Error = views.MsgPredictFailed
		} else {
			view.Result = resp
			s.status.SetDefault(statusKey, "online")
		}
	}

	p := s.page(r, "predict", "New Prediction", "", "")
	p.Predict = view
	s.render(w, "layout", p)
}

// request coerces the form strings into numbers. Bad input never reaches
// the backend.
func (f predictForm) request() (models.PredictRequest, error) {
	id := strings.TrimSpace(f.MachineID)
	if id == "" {
		return models.PredictRequest{}, errors.New("machine ID is required")
	}
	temperature, err := number("temperature", f.Temperature)
	if err != nil {
		return models.PredictRequest{}, err
	}
	humidity, err := number("humidity", f.Humidity)
	if err != nil {
		return models.PredictRequest{}, err
	}
	if humidity < 0 || humidity > 100 {
		return models.PredictRequest{}, errors.New("humidity must be between 0 and 100")
	}
	return models.PredictRequest{MachineID: id, Temperature: temperature, Humidity: humidity}, nil
}

func number(field, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", field)
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s must be a number", field)
	}
	return v, nil
}

func (s *Server) fragmentDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	stats, recent, err := s.loadDashboard(ctx)
	if err != nil {
		s.fail(w, r, views.MsgDashboardFailed, err)
		return
	}
	s.render(w, "dashboard", dashboardView{Stats: stats, Recent: recent})
}

func (s *Server) fragmentHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	items, err := s.api.History(ctx)
	if err != nil {
		s.fail(w, r, views.MsgHistoryFailed, err)
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	s.render(w, "history", historyView{
		Query: q,
		Items: views.FilterByMachine(views.Reverse(items), q),
		Empty: views.EmptyHistoryMessage(q),
	})
}

func (s *Server) fragmentMachines(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	items, err := s.api.Machines(ctx)
	if err != nil {
		s.fail(w, r, views.MsgMachinesFailed, err)
		return
	}
	s.render(w, "machines", items)
}

func (s *Server) fragmentMachine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	id := r.PathValue("id")
	items, err := s.api.MachinePredictions(ctx, id)
	if err != nil {
		s.fail(w, r, views.MsgMachineFailed, err)
		return
	}
	items = views.Reverse(items)
	s.render(w, "machine", machineView{
		ID:    id,
		Items: items,
		Stats: views.SummarizeMachine(items),
		Empty: views.MsgNoMachineHistory,
	})
}

// fail renders the error banner with a 200 so the page swaps it in like any
// other fragment.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	log.Error().Err(err).Str("path", r.URL.Path).Msg(msg)
	s.render(w, "error-banner", msg)
}
