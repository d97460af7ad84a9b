package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/queue"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/jobs", srv.handleJobs)
	mux.HandleFunc("/api/jobs/", srv.handleJobItem)
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/queue", srv.handleQueue)
	mux.HandleFunc("/api/queue/clear", srv.handleQueueClear)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil || s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// jobView is the wire representation of a job.
type jobView struct {
	ID           string            `json:"id"`
	Status       queue.Status      `json:"status"`
	InputPath    string            `json:"input_path"`
	ModelName    string            `json:"model_name"`
	Options      queue.Options     `json:"options"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Artifacts    map[string]string `json:"artifacts,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// resultView is the wire representation of a finished job's transcript.
type resultView struct {
	ID          string            `json:"id"`
	Text        string            `json:"text"`
	DialectText string            `json:"dialect_text,omitempty"`
	Segments    []queue.Segment   `json:"segments"`
	Artifacts   map[string]string `json:"artifacts"`
}

func toJobView(job *queue.Job) jobView {
	return jobView{
		ID:           job.ID,
		Status:       job.Status,
		InputPath:    job.InputPath,
		ModelName:    job.ModelName,
		Options:      job.Options,
		ErrorMessage: job.ErrorMessage,
		Artifacts:    job.Artifacts,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
		job, err := s.daemon.Submit(r.Context(), req)
		if err != nil {
			if job != nil {
				// Created but not enqueued; report the failed record.
				s.writeJSON(w, http.StatusServiceUnavailable, toJobView(job))
				return
			}
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeJSON(w, http.StatusCreated, toJobView(job))
	case http.MethodGet:
		s.handleQueue(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleJobItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	parts := strings.SplitN(rest, "/", 2)
	jobID := parts[0]
	if jobID == "" {
		s.writeError(w, http.StatusNotFound, "job id required")
		return
	}
	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	job, err := s.daemon.store.GetByID(r.Context(), jobID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("job %s not found", jobID))
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		s.writeJSON(w, http.StatusOK, toJobView(job))
	case action == "result" && r.Method == http.MethodGet:
		if job.Status != queue.StatusFinished {
			s.writeError(w, http.StatusConflict,
				fmt.Sprintf("job %s is %s, result available once finished", jobID, job.Status))
			return
		}
		s.writeJSON(w, http.StatusOK, resultView{
			ID:          job.ID,
			Text:        job.Text,
			DialectText: job.DialectText,
			Segments:    job.Segments,
			Artifacts:   job.Artifacts,
		})
	case action == "artifact" && r.Method == http.MethodGet:
		format := strings.TrimSpace(r.URL.Query().Get("format"))
		if format == "" {
			format = queue.FormatText
		}
		path, ok := job.Artifacts[format]
		if !ok {
			s.writeError(w, http.StatusNotFound,
				fmt.Sprintf("job %s has no %s artifact", jobID, format))
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"format": format, "path": path})
	case action == "retry" && r.Method == http.MethodPost:
		retried, err := s.daemon.Retry(r.Context(), jobID)
		if err != nil {
			if retried != nil {
				s.writeJSON(w, http.StatusServiceUnavailable, toJobView(retried))
				return
			}
			s.writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, toJobView(retried))
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var statuses []queue.Status
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		for _, value := range strings.Split(raw, ",") {
			status, ok := queue.ParseStatus(value)
			if !ok {
				s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", value))
				return
			}
			statuses = append(statuses, status)
		}
	}
	jobs, err := s.daemon.store.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]jobView, len(jobs))
	for i, job := range jobs {
		views[i] = toJobView(job)
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *apiServer) handleQueueClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	scope := strings.TrimSpace(r.URL.Query().Get("scope"))
	var (
		removed int64
		err     error
	)
	switch scope {
	case "finished":
		removed, err = s.daemon.store.ClearFinished(r.Context())
	case "failed":
		removed, err = s.daemon.store.ClearFailed(r.Context())
	case "", "all":
		removed, err = s.daemon.store.Clear(r.Context())
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown scope %q", scope))
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("response encode failed", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
