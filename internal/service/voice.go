package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var voiceTracer = otel.Tracer("service/voice")

const maxVoiceSeconds = 600

// VoiceLogService records metadata of field voice notes. Audio itself is
// not handled here.
type VoiceLogService struct {
	store  port.DocumentStore
	logger *zap.Logger
	now    func() time.Time
}

// NewVoiceLogService creates a new voice log service.
func NewVoiceLogService(store port.DocumentStore, logger *zap.Logger) *VoiceLogService {
	return &VoiceLogService{store: store, logger: logger, now: time.Now}
}

// ============================================================
// Record — POST /v1/site/voice-logs
// ============================================================

// Record stores a voice log. Logs with a transcript are processed, the
// rest stay queued.
func (s *VoiceLogService) Record(ctx context.Context, actor domain.Profile, req *domain.CreateVoiceLogRequest) (*domain.VoiceLog, error) {
	ctx, span := voiceTracer.Start(ctx, "VoiceLogService.Record")
	defer span.End()

	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	if req.DurationSeconds <= 0 || req.DurationSeconds > maxVoiceSeconds {
		return nil, &domain.ErrValidation{Field: "durationSeconds", Message: fmt.Sprintf("must be between 1 and %d", maxVoiceSeconds)}
	}
	transcript, err := cleanText("transcript", req.Transcript, 2000, false)
	if err != nil {
		return nil, err
	}
	var intent domain.VoiceIntent
	switch v := domain.VoiceIntent(req.Intent); v {
	case "", domain.IntentAddLead, domain.IntentUpdateStatus, domain.IntentLogVisit:
		intent = v
	default:
		return nil, &domain.ErrValidation{Field: "intent", Message: "unknown intent"}
	}

	status := domain.VoiceQueued
	if transcript != "" {
		status = domain.VoiceProcessed
	}
	vl := domain.VoiceLog{
		ID:              uuid.NewString(),
		TenantID:        actor.TenantID,
		UserID:          actor.UID,
		Timestamp:       timestamp(s.now()),
		DurationSeconds: req.DurationSeconds,
		Status:          status,
		Transcript:      transcript,
		Intent:          intent,
	}

	if err := s.store.SetMerge(ctx, port.CollectionVoiceLogs, vl.ID, map[string]any{
		"id":              vl.ID,
		"tenantId":        vl.TenantID,
		"userId":          vl.UserID,
		"timestamp":       vl.Timestamp,
		"durationSeconds": vl.DurationSeconds,
		"status":          string(vl.Status),
		"transcript":      vl.Transcript,
		"intent":          string(vl.Intent),
	}); err != nil {
		return nil, fmt.Errorf("record voice log: %w", err)
	}

	s.logger.Info("voice log recorded",
		zap.String("tenant_id", vl.TenantID),
		zap.String("user_id", vl.UserID),
		zap.Int("duration_seconds", vl.DurationSeconds),
	)
	return &vl, nil
}

// ============================================================
// List — GET /v1/site/voice-logs
// ============================================================

// List returns the actor's own voice logs, newest first. Owners see the
// whole tenant.
func (s *VoiceLogService) List(ctx context.Context, actor domain.Profile) ([]domain.VoiceLog, error) {
	ctx, span := voiceTracer.Start(ctx, "VoiceLogService.List")
	defer span.End()

	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	filter := map[string]string{"tenantId": actor.TenantID}
	if actor.Role == domain.RoleAgent {
		filter["userId"] = actor.UID
	}

	docs, err := s.store.List(ctx, port.CollectionVoiceLogs, filter)
	if err != nil {
		return nil, fmt.Errorf("list voice logs: %w", err)
	}
	logs := make([]domain.VoiceLog, 0, len(docs))
	for _, d := range docs {
		var vl domain.VoiceLog
		if err := json.Unmarshal(d.Data, &vl); err != nil {
			continue
		}
		logs = append(logs, vl)
	}
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].Timestamp > logs[j].Timestamp })
	return logs, nil
}
