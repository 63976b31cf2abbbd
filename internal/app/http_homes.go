package app

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"buildwise/api/internal/export"
	"buildwise/api/internal/rbac"
)

func (s *HTTPServer) homeRoutes(r chi.Router) {
	r.Use(s.withSession)
	r.Get("/", s.handleListHomes)
	r.Post("/", s.handleCreateHome)

	r.Route("/{homeId}", func(r chi.Router) {
		r.Get("/", s.handleGetHome)
		r.Put("/", s.handleUpdateHome)

		r.Post("/trades", s.handleAddTrade)
		r.Route("/trades/{bidId}", func(r chi.Router) {
			r.Put("/", s.handleUpdateTrade)
			r.Patch("/", s.handleUpdateTrade)
			r.Post("/tasks", s.handleAddTask)
			r.Patch("/tasks/{taskId}", s.handleUpdateTask)
			r.Put("/tasks/{taskId}", s.handleUpdateTask)
			r.Post("/quality-checks", s.handleAddQualityCheck)
			r.Patch("/quality-checks/{checkId}", s.handleUpdateQualityCheck)
			r.Post("/invoices", s.handleAddInvoice)
			r.Patch("/invoices/{invoiceId}", s.handleUpdateInvoice)
			r.Post("/costs", s.handleAddCost)
			r.Post("/attachments", s.handleAddAttachment)
		})

		r.Post("/documents", s.handleAddDocument)
		r.Patch("/documents/{docId}", s.handleUpdateDocument)
		r.Delete("/documents/{docId}", s.handleDeleteDocument)

		r.Post("/schedules", s.handleAddSchedule)
		r.Post("/assign-client", s.handleAssignClient)
		r.Post("/monitors", s.handleAddMonitor)

		r.Get("/messages", s.handleListMessages)
		r.Post("/messages", s.handlePostMessage)
		r.Get("/report", s.handleReport)
	})
}

func (s *HTTPServer) handleListHomes(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.allow(w, r, rbac.ActionRead); !ok {
		return
	}
	homes, err := s.service.ListHomes(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, homes)
}

func (s *HTTPServer) handleCreateHome(w http.ResponseWriter, r *http.Request) {
	session, ok := s.allow(w, r, rbac.ActionStructure)
	if !ok {
		return
	}
	var body CreateHomeInput
	if !decodeOrReject(w, r, &body) {
		return
	}
	h, err := s.service.CreateHome(r.Context(), body, session.Actor())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h)
}

func (s *HTTPServer) handleGetHome(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.allow(w, r, rbac.ActionRead); !ok {
		return
	}
	h, err := s.service.GetHome(r.Context(), chi.URLParam(r, "homeId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *HTTPServer) handleUpdateHome(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.allow(w, r, rbac.ActionStructure); !ok {
		return
	}
	var body UpdateHomeInput
	if !decodeOrReject(w, r, &body) {
		return
	}
	h, err := s.service.UpdateHome(r.Context(), chi.URLParam(r, "homeId"), body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *HTTPServer) handleAddTrade(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.allow(w, r, rbac.ActionStructure); !ok {
		return
	}
	var body TradeInput
	if !decodeOrReject(w, r, &body) {
		return
	}
	h, trade, err := s.service.AddTrade(r.Context(), chi.URLParam(r, "homeId"), body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"home": h, "bid": trade})
}

func (s *HTTPServer) handleUpdateTrade(w http.ResponseWriter, r *http.Request) {
	session, ok := s.allow(w, r, rbac.ActionStructure)
	if !ok {
		return
	}
	var body TradeUpdateInput
	if !decodeOrReject(w, r, &body) {
		return
	}
	h, err := s.service.UpdateTrade(r.Context(), chi.URLParam(r, "homeId"), chi.URLParam(r, "bidId"), body, session.Actor())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *HTTPServer) handleAddTask(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.allow(w, r, rbac.ActionContribute); !ok {
		return
	}
	var body TaskInput
	if !decodeOrReject(w, r, &body) {
		return
	}
	h, task, err := s.service.AddTask(r.Context(), chi.URLParam(r, "homeId"), chi.URLParam(r, "bidId"), body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"home": h, "task": task})
}

func (s *HTTPServer) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	session, ok := s.allow(w, r, rbac.ActionContribute)
	if !ok {
		return
	}
	var body TaskUpdateInput
	if !decodeOrReject(w, r, &body) {
		return
	}
	h, err := s.service.UpdateTask(r.Context(), chi.URLParam(r, "homeId"), chi.URLParam(r, "bidId"), chi.URLParam(r, "taskId"), body, session.Actor())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *HTTPServer) handleAddQualityCheck(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.allow(w, r, rbac.ActionContribute); !ok {
		return
	}
	var body QualityCheckInput
	if !decodeOrReject(w, r, &body) {
		return
	}
	h, qc, err := s.service.AddQualityCheck(r.Context(), chi.URLParam(r, "homeId"), chi.URLParam(r, "bidId"), body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"home": h, "qualityCheck": qc})
}

func (s *HTTPServer) handleUpdateQualityCheck(w http.ResponseWriter, r *http.Request) {
	session, ok := s.allow(w, r, rbac.ActionContribute)
	if !ok {
		return
	}
	var body QualityCheckUpdateInput
	if !decodeOrReject(w, r, &body) {
		return
	}
	h, err := s.service.UpdateQualityCheck(r.Context(), chi.URLParam(r, "homeId"), chi.URLParam(r, "bidId"), chi.URLParam(r, "checkId"), body, session.Actor())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *HTTPServer) handleAddInvoice(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.allow(w, r, rbac.ActionStructure); !ok {
		return
	}
	var body InvoiceInput
	if !decodeOrReject(w, r, &body) {
		return
	}
	h, inv, err := s.service.AddInvoice(r.Context(), chi.URLParam(r, "homeId"), chi.URLParam(r, "bidId"), body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"home": h, "invoice": inv})
}

func (s *HTTPServer) handleUpdateInvoice(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.allow(w, r, rbac.ActionContribute); !ok {
		return
	}
	var body InvoiceUpdateInput
	if !decodeOrReject(w, r, &body) {
		return
	}
	h, err := s.service.UpdateInvoice(r.Context(), chi.URLParam(r, "homeId"), chi.URLParam(r, "bidId"), chi.URLParam(r, "invoiceId"), body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *HTTPServer) handleAddCost(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.allow(w, r, rbac.ActionContribute); !ok {
		return
	}
	var body CostInput
	if !decodeOrReject(w, r, &body) {
		return
	}
	h, cost, err := s.service.AddCost(r.Context(), chi.URLParam(r, "homeId"), chi.URLParam(r, "bidId"), body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"home": h, "cost": cost})
}

func (s *HTTPServer) handleAddAttachment(w http.ResponseWriter, r *http.Request) {
	session, ok := s.allow(w, r, rbac.ActionContribute)
	if !ok {
		return
	}
	var body DocumentInput
	if !decodeOrReject(w, r, &body) {
		return
	}
	h, doc, err := s.service.AddTradeAttachment(r.Context(), chi.URLParam(r, "homeId"), chi.URLParam(r, "bidId"), body, session.Actor())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"home": h, "document": doc})
}

func (s *HTTPServer) handleAddDocument(w http.ResponseWriter, r *http.Request) {
	session, ok := s.allow(w, r, rbac.ActionContribute)
	if !ok {
		return
	}
	var body DocumentInput
	if !decodeOrReject(w, r, &body) {
		return
	}
	h, doc, err := s.service.AddDocument(r.Context(), chi.URLParam(r, "homeId"), body, session.Actor())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"home": h, "document": doc})
}

func (s *HTTPServer) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.allow(w, r, rbac.ActionContribute); !ok {
		return
	}
	var body DocumentUpdateInput
	if !decodeOrReject(w, r, &body) {
		return
	}
	h, err := s.service.UpdateDocument(r.Context(), chi.URLParam(r, "homeId"), chi.URLParam(r, "docId"), body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *HTTPServer) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.allow(w, r, rbac.ActionStructure); !ok {
		return
	}
	h, err := s.service.DeleteDocument(r.Context(), chi.URLParam(r, "homeId"), chi.URLParam(r, "docId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"home": h})
}

func (s *HTTPServer) handleAddSchedule(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.allow(w, r, rbac.ActionContribute); !ok {
		return
	}
	var body ScheduleInput
	if !decodeOrReject(w, r, &body) {
		return
	}
	h, schedule, err := s.service.AddSchedule(r.Context(), chi.URLParam(r, "homeId"), body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"home": h, "schedule": schedule})
}

func (s *HTTPServer) handleAssignClient(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.allow(w, r, rbac.ActionStructure); !ok {
		return
	}
	var body AssignPersonInput
	if !decodeOrReject(w, r, &body) {
		return
	}
	h, err := s.service.AssignClient(r.Context(), chi.URLParam(r, "homeId"), body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *HTTPServer) handleAddMonitor(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.allow(w, r, rbac.ActionStructure); !ok {
		return
	}
	var body AssignPersonInput
	if !decodeOrReject(w, r, &body) {
		return
	}
	h, err := s.service.AddMonitor(r.Context(), chi.URLParam(r, "homeId"), body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *HTTPServer) handleListMessages(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.allow(w, r, rbac.ActionRead); !ok {
		return
	}
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	messages, err := s.service.ListMessages(r.Context(), chi.URLParam(r, "homeId"), MessageQuery{
		TradeID: query.Get("tradeId"),
		TaskID:  query.Get("taskId"),
		Limit:   limit,
		Before:  query.Get("before"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (s *HTTPServer) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	session, ok := s.allow(w, r, rbac.ActionContribute)
	if !ok {
		return
	}
	var body MessageInput
	if !decodeOrReject(w, r, &body) {
		return
	}
	message, err := s.service.PostMessage(r.Context(), chi.URLParam(r, "homeId"), body, session.Actor())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": message})
}

func (s *HTTPServer) handleReport(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.allow(w, r, rbac.ActionRead); !ok {
		return
	}
	format, ok := export.ParseFormat(strings.ToLower(r.URL.Query().Get("format")))
	if !ok {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "format must be one of: html pdf docx", nil)
		return
	}
	result, err := s.service.Report(r.Context(), chi.URLParam(r, "homeId"), format)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}
