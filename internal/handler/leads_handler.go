package handler

import (
	"net/http"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Leads — GET /v1/leads?status=&source=
// ============================================================

func listLeadsHandler(leadSvc *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/leads")
		defer span.End()

		if leadSvc == nil {
			unavailable(w, "lead")
			return
		}
		actor, ok := actorFromContext(ctx)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		q := r.URL.Query()
		leads, err := leadSvc.List(ctx, actor, service.LeadFilter{
			Status: q.Get("status"),
			Source: q.Get("source"),
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, leads)
	}
}

// ============================================================
// Leads — POST /v1/leads
// ============================================================

func createLeadHandler(leadSvc *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/leads")
		defer span.End()

		if leadSvc == nil {
			unavailable(w, "lead")
			return
		}
		actor, ok := actorFromContext(ctx)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		var req domain.CreateLeadRequest
		if !decodeBody(w, r, &req) {
			return
		}

		lead, err := leadSvc.Create(ctx, actor, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, lead)
	}
}

// ============================================================
// Leads — GET /v1/leads/pipeline
// ============================================================

func pipelineHandler(leadSvc *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/leads/pipeline")
		defer span.End()

		if leadSvc == nil {
			unavailable(w, "lead")
			return
		}
		actor, ok := actorFromContext(ctx)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		columns, err := leadSvc.Pipeline(ctx, actor)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, columns)
	}
}

// ============================================================
// Leads — PUT /v1/leads/{leadID}/status
// ============================================================

func updateLeadStatusHandler(leadSvc *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/leads/{leadID}/status")
		defer span.End()

		if leadSvc == nil {
			unavailable(w, "lead")
			return
		}
		actor, ok := actorFromContext(ctx)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		var req domain.UpdateLeadStatusRequest
		if !decodeBody(w, r, &req) {
			return
		}

		lead, err := leadSvc.UpdateStatus(ctx, actor, chi.URLParam(r, "leadID"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, lead)
	}
}

// ============================================================
// Site — GET /v1/site/voice-logs
// ============================================================

func listVoiceLogsHandler(voiceSvc *service.VoiceLogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/site/voice-logs")
		defer span.End()

		if voiceSvc == nil {
			unavailable(w, "voice log")
			return
		}
		actor, ok := actorFromContext(ctx)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		logs, err := voiceSvc.List(ctx, actor)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, logs)
	}
}

// ============================================================
// Site — POST /v1/site/voice-logs
// ============================================================

func recordVoiceLogHandler(voiceSvc *service.VoiceLogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/site/voice-logs")
		defer span.End()

		if voiceSvc == nil {
			unavailable(w, "voice log")
			return
		}
		actor, ok := actorFromContext(ctx)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		var req domain.CreateVoiceLogRequest
		if !decodeBody(w, r, &req) {
			return
		}

		entry, err := voiceSvc.Record(ctx, actor, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, entry)
	}
}
