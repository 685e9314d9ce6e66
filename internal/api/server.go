package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/example/research-reporter/internal/models"
	"github.com/example/research-reporter/internal/orchestrator"
)

// Server exposes the research stages and the task store over HTTP.
type Server struct {
	Orch *orchestrator.Orchestrator
	// BaseContext is the parent of async task runs; they outlive the request.
	BaseContext context.Context
}

func NewServer(orch *orchestrator.Orchestrator) *Server {
	return &Server{Orch: orch, BaseContext: context.Background()}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /research/plan", s.handlePlan)
	mux.HandleFunc("POST /research/report", s.handleReport)

	mux.HandleFunc("GET /tasks", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, s.Orch.ListTasks())
	})
	mux.HandleFunc("POST /tasks", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		if !decodePrompt(w, r, &req, &req.Prompt) {
			return
		}
		respondJSON(w, http.StatusCreated, s.Orch.CreateTask(req.Prompt))
	})
	mux.HandleFunc("GET /tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		t, ok := s.Orch.GetTask(r.PathValue("id"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		respondJSON(w, http.StatusOK, t)
	})

	mux.HandleFunc("POST /tasks/plan/{id}", func(w http.ResponseWriter, r *http.Request) {
		res, err := s.Orch.Plan(r.Context(), r.PathValue("id"))
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, statusForKind(res.ErrorKind), res)
	})
	mux.HandleFunc("POST /tasks/report/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := s.Orch.ReportAsync(s.BaseContext, r.PathValue("id")); err != nil {
			respondError(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("POST /tasks/start/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := s.Orch.StartAsync(s.BaseContext, r.PathValue("id")); err != nil {
			respondError(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /tasks/events/{id}", s.handleEvents)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if !decodePrompt(w, r, &req, &req.Prompt) {
		return
	}
	res := s.Orch.Planner.CreatePlan(r.Context(), req.Prompt)
	respondJSON(w, statusForKind(res.ErrorKind), res)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string               `json:"prompt"`
		Plan   *models.ResearchPlan `json:"plan"`
	}
	if !decodePrompt(w, r, &req, &req.Prompt) {
		return
	}
	if req.Plan == nil {
		http.Error(w, "plan is required", http.StatusBadRequest)
		return
	}
	res := s.Orch.Reporter.GenerateReport(r.Context(), req.Prompt, req.Plan)
	respondJSON(w, statusForKind(res.ErrorKind), res)
}

// handleEvents streams task events as SSE until the client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	// Subscribe before the snapshot so no event falls between the two.
	ch, unsubscribe := s.Orch.Subscribe(id)
	defer unsubscribe()
	t, ok := s.Orch.GetTask(id)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	initial, _ := json.Marshal(orchestrator.Event{Event: "task_status", TaskID: id, Payload: map[string]any{"status": t.Status}})
	writeSSE(w, initial)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case b, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(w, b)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, data []byte) {
	w.Write([]byte("data: "))
	w.Write(data)
	w.Write([]byte("\n\n"))
}

// decodePrompt decodes the body into dst and requires a non-blank prompt.
func decodePrompt(w http.ResponseWriter, r *http.Request, dst any, prompt *string) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	if strings.TrimSpace(*prompt) == "" {
		http.Error(w, "prompt is required", http.StatusBadRequest)
		return false
	}
	return true
}

// statusForKind maps a result error kind to an HTTP status.
func statusForKind(kind models.ErrorKind) int {
	switch kind {
	case "":
		return http.StatusOK
	case models.ErrorConfig:
		return http.StatusServiceUnavailable
	case models.ErrorQuota:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrTaskNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, orchestrator.ErrNoPlan), errors.Is(err, orchestrator.ErrTaskBusy):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
