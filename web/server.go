// ABOUTME: JSON API server over the CRM service
// ABOUTME: Routes with chi; maps conflict, not-found and validation errors to HTTP statuses
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-graphviz"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harperreed/salesdesk/crm"
	"github.com/harperreed/salesdesk/models"
	"github.com/harperreed/salesdesk/viz"
)

type Server struct {
	svc       *crm.Service
	logger    *zap.Logger
	generator *viz.GraphGenerator
}

func NewServer(svc *crm.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{svc: svc, logger: logger, generator: viz.NewGraphGenerator(svc)}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logRequests)

	r.Route("/api", func(api chi.Router) {
		api.Get("/contacts", s.handleListContacts)
		api.Post("/contacts", s.handleCreateContact)
		api.Get("/contacts/{id}", s.handleGetContact)
		api.Put("/contacts/{id}", s.handleUpdateContact)
		api.Get("/contacts/{id}/tasks", s.handleContactTasks)

		api.Get("/deals", s.handleListDeals)
		api.Post("/deals", s.handleCreateDeal)
		api.Get("/deals/{id}", s.handleGetDeal)
		api.Put("/deals/{id}", s.handleUpdateDeal)
		api.Post("/deals/{id}/move", s.handleMoveDeal)
		api.Get("/deals/{id}/tasks", s.handleDealTasks)

		api.Get("/tasks", s.handleListTasks)
		api.Post("/tasks", s.handleCreateTask)
		api.Post("/tasks/{id}/status", s.handleTaskStatus)

		api.Get("/inquiries", s.handleListInquiries)
		api.Post("/inquiries/triage", s.handleTriage)
		api.Get("/inquiries/suggestions", s.handleListSuggestions)
		api.Post("/inquiries/{id}/apply", s.handleApplySuggestion)
		api.Delete("/inquiries/{id}/suggestion", s.handleDismissSuggestion)
		api.Post("/inquiries/{id}/status", s.handleInquiryStatus)

		api.Post("/enrich/deals", s.handleEnrichDeals)

		api.Get("/pipeline", s.handlePipeline)
		api.Get("/board", s.handleBoard)
		api.Get("/report", s.handleReport)
		api.Get("/graph/pipeline.svg", s.handlePipelineGraph)
	})

	return r
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := s.svc.ListContacts(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contacts)
}

func (s *Server) handleGetContact(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	contact, err := s.svc.GetContact(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	var in crm.ContactInput
	if !decode(w, r, &in) {
		return
	}
	contact, err := s.svc.SaveContact(r.Context(), in, uuid.Nil)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, contact)
}

func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in crm.ContactInput
	if !decode(w, r, &in) {
		return
	}
	contact, err := s.svc.SaveContact(r.Context(), in, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

func (s *Server) handleContactTasks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	tasks, err := s.svc.TasksFor(r.Context(), models.ContactRef{ID: id})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleListDeals(w http.ResponseWriter, r *http.Request) {
	deals, err := s.svc.ListDeals(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if raw := r.URL.Query().Get("stage"); raw != "" {
		stage, err := models.ParseStage(raw)
		if err != nil {
			s.writeError(w, err)
			return
		}
		filtered := []models.Deal{}
		for _, d := range deals {
			if d.Stage == stage {
				filtered = append(filtered, d)
			}
		}
		deals = filtered
	}
	writeJSON(w, http.StatusOK, deals)
}

func (s *Server) handleGetDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	deal, err := s.svc.GetDeal(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deal)
}

func (s *Server) handleCreateDeal(w http.ResponseWriter, r *http.Request) {
	var in crm.DealInput
	if !decode(w, r, &in) {
		return
	}
	deal, err := s.svc.CreateDeal(r.Context(), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, deal)
}

func (s *Server) handleUpdateDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in crm.DealInput
	if !decode(w, r, &in) {
		return
	}
	deal, err := s.svc.UpdateDeal(r.Context(), id, in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deal)
}

type moveRequest struct {
	Stage string `json:"stage"`
}

func (s *Server) handleMoveDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if !decode(w, r, &req) {
		return
	}
	deal, err := s.svc.MoveDeal(r.Context(), id, req.Stage)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deal)
}

func (s *Server) handleDealTasks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	tasks, err := s.svc.TasksFor(r.Context(), models.DealRef{ID: id})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.svc.ListTasks(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var in crm.TaskInput
	if !decode(w, r, &in) {
		return
	}
	task, err := s.svc.CreateTask(r.Context(), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !decode(w, r, &req) {
		return
	}
	task, err := s.svc.UpdateTaskStatus(r.Context(), id, req.Status)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleListInquiries(w http.ResponseWriter, r *http.Request) {
	inquiries, err := s.svc.ListInquiries(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inquiries)
}

type batchRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

func (s *Server) handleEnrichDeals(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	ids := req.IDs
	if len(ids) == 0 {
		deals, err := s.svc.ListDeals(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		for _, d := range deals {
			ids = append(ids, d.ID)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"outcomes": s.svc.ScoreDeals(r.Context(), ids)})
}

func (s *Server) handleTriage(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	ids := req.IDs
	if len(ids) == 0 {
		inquiries, err := s.svc.ListInquiries(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		for _, q := range inquiries {
			if q.Status == models.InquiryNew {
				ids = append(ids, q.ID)
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"outcomes": s.svc.TriageInquiries(r.Context(), ids)})
}

func (s *Server) handleListSuggestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.PendingSuggestions())
}

type applyRequest struct {
	// Status overrides the suggested status when set.
	Status models.InquiryStatus `json:"status,omitempty"`
}

func (s *Server) handleApplySuggestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req applyRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	status := req.Status
	if status == "" {
		sg, ok := s.svc.PendingSuggestion(id)
		if !ok {
			s.writeError(w, models.NotFound("suggestion", id))
			return
		}
		status = sg.Analysis.SuggestedStatus
	}
	q, err := s.svc.ApplyInquirySuggestion(r.Context(), id, status)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleDismissSuggestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if !s.svc.DismissSuggestion(id) {
		s.writeError(w, models.NotFound("suggestion", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInquiryStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !decode(w, r, &req) {
		return
	}
	q, err := s.svc.SetInquiryStatus(r.Context(), id, models.InquiryStatus(req.Status))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handlePipeline(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.PipelineSummary(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	board, err := s.svc.Board(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Report(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handlePipelineGraph(w http.ResponseWriter, r *http.Request) {
	svg, err := s.generator.GeneratePipelineGraph(r.Context(), graphviz.SVG)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write([]byte(svg))
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return false
	}
	return true
}

// decodeOptional accepts an empty body, sized or chunked, as the zero value.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var conflict *models.ConflictError
	var invalid *models.ValidationError
	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error(), "existing": conflict.Existing})
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error(), "field": invalid.Field})
	default:
		s.logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
