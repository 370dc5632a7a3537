package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/TobiSchelling/Pulse/internal/database"
	"github.com/TobiSchelling/Pulse/internal/pipeline"
	"github.com/TobiSchelling/Pulse/internal/window"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

const maxQuestionBytes = 16 << 10

// Narrator builds contexts and narratives for a period.
type Narrator interface {
	BuildContext(ctx context.Context, period window.Period, today time.Time) (*pipeline.Context, error)
	ProgressSummary(ctx context.Context, period window.Period, today time.Time) (*pipeline.Answer, error)
	Ask(ctx context.Context, question string, period window.Period, today time.Time) (*pipeline.Answer, error)
}

// StatusReporter reports per-source table availability.
type StatusReporter interface {
	Status(ctx context.Context) ([]database.SourceStatus, error)
}

// Server is the HTTP server for contexts and summaries.
type Server struct {
	narrator Narrator
	status   StatusReporter
	pages    map[string]*template.Template
	mux      *http.ServeMux
	log      *zap.Logger
	now      func() time.Time
}

// New creates a new Server.
func New(narrator Narrator, status StatusReporter, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"join":     strings.Join,
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// For each page template, clone the base and parse the page into the clone.
	// This gives each page its own {{define "content"}} and {{define "title"}}.
	pageNames := []string{"index.html", "summary.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		narrator: narrator,
		status:   status,
		pages:    pages,
		mux:      http.NewServeMux(),
		log:      logger,
		now:      window.Today,
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /summary", s.handleSummary)
	s.mux.HandleFunc("GET /api/context", s.handleContext)
	s.mux.HandleFunc("POST /api/ask", s.handleAsk)
}

// periodOr parses the period query value, falling back to def when empty.
func periodOr(raw string, def window.Period) (window.Period, error) {
	if raw == "" {
		return def, nil
	}
	return window.ParsePeriod(raw)
}

func displayRange(period window.Period, today time.Time) string {
	start, end := window.DateRange(period, today)
	return window.FormatRange(start, end.AddDate(0, 0, -1))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.status.Status(r.Context())
	if err != nil {
		s.log.Error("reading source status", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, "index.html", map[string]any{
		"Sources": statuses,
		"Periods": window.Periods,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	period, err := periodOr(r.URL.Query().Get("period"), window.LastMonth)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	today := s.now()
	ans, err := s.narrator.ProgressSummary(r.Context(), period, today)
	if err != nil {
		s.log.Error("building summary", zap.String("period", string(period)), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, "summary.html", map[string]any{
		"Period":   period,
		"Range":    displayRange(period, today),
		"Summary":  ans.Text,
		"Fallback": ans.Fallback,
		"Gaps":     ans.Context.Payload.DataGaps,
		"Periods":  window.Periods,
	})
}

type contextResponse struct {
	RunID   string `json:"run_id"`
	Payload any    `json:"payload"`
	Text    string `json:"text"`
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	period, err := periodOr(r.URL.Query().Get("period"), window.LastMonth)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	c, err := s.narrator.BuildContext(r.Context(), period, s.now())
	if err != nil {
		s.log.Error("building context", zap.String("period", string(period)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("building context failed"))
		return
	}
	writeJSON(w, http.StatusOK, contextResponse{RunID: c.RunID, Payload: c.Payload, Text: c.Text})
}

type askRequest struct {
	Question string `json:"question"`
	Period   string `json:"period"`
}

type askResponse struct {
	Answer   string `json:"answer"`
	Fallback bool   `json:"fallback"`
	RunID    string `json:"run_id"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQuestionBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	period, err := periodOr(req.Period, window.Last12Months)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ans, err := s.narrator.Ask(r.Context(), req.Question, period, s.now())
	if err != nil {
		s.log.Error("answering question", zap.String("period", string(period)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("answering question failed"))
		return
	}
	writeJSON(w, http.StatusOK, askResponse{Answer: ans.Text, Fallback: ans.Fallback, RunID: ans.Context.RunID})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.log.Error("template not found", zap.String("template", name))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		s.log.Error("rendering template", zap.String("template", name), zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port and shuts it down when ctx
// is cancelled.
func Serve(ctx context.Context, srv *Server, port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		srv.log.Info("server listening", zap.String("addr", "http://"+addr))
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		return nil
	}
}
