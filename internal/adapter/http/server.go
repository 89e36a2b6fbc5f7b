// Package http exposes the operational surface: health, metrics, and a job
// registry snapshot. The chat platform integration lives outside this module.
package http

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mediabot/internal/domain"
	"mediabot/internal/infrastructure/logger"
	"mediabot/internal/port"
	"mediabot/internal/service"
)

type Server struct {
	queue    *service.Queue
	registry port.JobRegistry
	started  time.Time
	router   *mux.Router
}

func NewServer(queue *service.Queue, registry port.JobRegistry) *Server {
	s := &Server{
		queue:    queue,
		registry: registry,
		started:  time.Now(),
		router:   mux.NewRouter(),
	}

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/jobs", s.handleJobs).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type healthResponse struct {
	Status       string             `json:"status"`
	Uptime       string             `json:"uptime"`
	NumGoroutine int                `json:"numGoroutine"`
	Queue        service.QueueStats `json:"queue"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       "healthy",
		Uptime:       time.Since(s.started).Round(time.Second).String(),
		NumGoroutine: runtime.NumGoroutine(),
		Queue:        s.queue.Stats(),
	})
}

type jobView struct {
	ID           string    `json:"id"`
	UserRef      string    `json:"userRef"`
	Op           string    `json:"op"`
	State        string    `json:"state"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	Deadline     time.Time `json:"deadline"`
	CompletedAt  string    `json:"completedAt,omitempty"`
}

func (s *Server) handleJobs(w http.ResponseWriter, _ *http.Request) {
	jobs, err := s.registry.Snapshot(100)
	if err != nil {
		logger.Error.Printf("jobs snapshot: %v", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}

	views := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, viewOf(j))
	}
	writeJSON(w, http.StatusOK, views)
}

func viewOf(j *domain.Job) jobView {
	v := jobView{
		ID:           j.ID,
		UserRef:      j.UserRef,
		Op:           string(j.Op.Kind),
		State:        string(j.State),
		ErrorMessage: j.ErrorMessage,
		CreatedAt:    j.CreatedAt,
		Deadline:     j.Deadline,
	}
	if j.CompletedAt.Valid {
		v.CompletedAt = j.CompletedAt.Time.Format(time.RFC3339)
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error.Printf("encode response: %v", err)
	}
}
