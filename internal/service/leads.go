package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var leadTracer = otel.Tracer("service/leads")

// LeadService manages the leads and pipeline of a tenant. Agents only see
// leads assigned to them or unassigned ones.
type LeadService struct {
	store    port.DocumentStore
	dialCode string
	logger   *zap.Logger
	now      func() time.Time
}

// NewLeadService creates a new lead service.
func NewLeadService(store port.DocumentStore, dialCode string, logger *zap.Logger) *LeadService {
	return &LeadService{store: store, dialCode: dialCode, logger: logger, now: time.Now}
}

// LeadFilter narrows List.
type LeadFilter struct {
	Status string
	Source string
}

// ============================================================
// List — GET /v1/leads
// ============================================================

// List returns the actor's visible leads, newest first.
func (s *LeadService) List(ctx context.Context, actor domain.Profile, f LeadFilter) ([]domain.Lead, error) {
	ctx, span := leadTracer.Start(ctx, "LeadService.List")
	defer span.End()

	if err := requireTenant(actor); err != nil {
		return nil, err
	}

	filter := map[string]string{"tenantId": actor.TenantID}
	if f.Status != "" {
		status, ok := domain.ParseLeadStatus(f.Status)
		if !ok {
			return nil, &domain.ErrValidation{Field: "status", Message: "unknown pipeline status"}
		}
		filter["status"] = string(status)
	}
	if f.Source != "" {
		filter["source"] = f.Source
	}

	docs, err := s.store.List(ctx, port.CollectionLeads, filter)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}

	leads := make([]domain.Lead, 0, len(docs))
	for _, d := range docs {
		var l domain.Lead
		if err := json.Unmarshal(d.Data, &l); err != nil {
			s.logger.Warn("leads: skipping unreadable lead", zap.String("lead_id", d.Key), zap.Error(err))
			continue
		}
		if l.ID == "" {
			l.ID = d.Key
		}
		if !visibleTo(actor, l) {
			continue
		}
		leads = append(leads, l)
	}
	sort.SliceStable(leads, func(i, j int) bool { return leads[i].CreatedAt > leads[j].CreatedAt })
	span.SetAttributes(attribute.Int("leads.count", len(leads)))
	return leads, nil
}

func visibleTo(actor domain.Profile, l domain.Lead) bool {
	if actor.Role != domain.RoleAgent {
		return true
	}
	return l.AssignedTo == "" || l.AssignedTo == actor.UID
}

// ============================================================
// Create — POST /v1/leads
// ============================================================

func (s *LeadService) Create(ctx context.Context, actor domain.Profile, req *domain.CreateLeadRequest) (*domain.Lead, error) {
	ctx, span := leadTracer.Start(ctx, "LeadService.Create")
	defer span.End()

	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	name, err := cleanText("name", req.Name, maxNameLen, true)
	if err != nil {
		return nil, err
	}
	phone, err := domain.NormalizePhone(req.Phone, s.dialCode)
	if err != nil {
		return nil, err
	}
	campaign, err := cleanText("campaign", req.Campaign, 80, false)
	if err != nil {
		return nil, err
	}
	budget, err := cleanText("budget", req.Budget, 40, false)
	if err != nil {
		return nil, err
	}
	requirements, err := cleanText("requirements", req.Requirements, 500, false)
	if err != nil {
		return nil, err
	}
	tags := make([]string, 0, len(req.Tags))
	for _, t := range req.Tags {
		tag, err := cleanText("tags", t, 30, false)
		if err != nil {
			return nil, err
		}
		if tag != "" {
			tags = append(tags, tag)
		}
	}

	assignee := strings.TrimSpace(req.AssignedTo)
	if actor.Role == domain.RoleAgent {
		assignee = actor.UID
	}

	now := timestamp(s.now())
	lead := domain.Lead{
		ID:           uuid.NewString(),
		TenantID:     actor.TenantID,
		Name:         name,
		Phone:        phone,
		Status:       domain.LeadNew,
		Source:       parseLeadSource(req.Source),
		Campaign:     campaign,
		Budget:       budget,
		Requirements: requirements,
		Unread:       true,
		Tags:         tags,
		AssignedTo:   assignee,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.RunBatch(ctx, []port.Write{{
		Op: port.OpSet, Collection: port.CollectionLeads, Key: lead.ID, Data: leadFields(lead),
	}}); err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}

	s.logger.Info("lead created",
		zap.String("tenant_id", actor.TenantID),
		zap.String("lead_id", lead.ID),
		zap.String("created_by", actor.UID),
	)
	return &lead, nil
}

// ============================================================
// UpdateStatus — PUT /v1/leads/{id}/status
// ============================================================

// UpdateStatus moves a lead to another pipeline column and marks it read.
func (s *LeadService) UpdateStatus(ctx context.Context, actor domain.Profile, leadID string, req *domain.UpdateLeadStatusRequest) (*domain.Lead, error) {
	ctx, span := leadTracer.Start(ctx, "LeadService.UpdateStatus")
	defer span.End()

	status, ok := domain.ParseLeadStatus(req.Status)
	if !ok {
		return nil, &domain.ErrValidation{Field: "status", Message: "unknown pipeline status"}
	}

	raw, err := s.store.Get(ctx, port.CollectionLeads, leadID)
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	if raw == nil {
		return nil, &domain.ErrNotFound{Resource: "lead", ID: leadID}
	}
	var lead domain.Lead
	if err := json.Unmarshal(raw, &lead); err != nil {
		return nil, fmt.Errorf("decode lead: %w", err)
	}
	if lead.TenantID != actor.TenantID || !visibleTo(actor, lead) {
		return nil, &domain.ErrNotFound{Resource: "lead", ID: leadID}
	}

	now := timestamp(s.now())
	if err := s.store.SetMerge(ctx, port.CollectionLeads, leadID, map[string]any{
		"status":    string(status),
		"unread":    false,
		"updatedAt": now,
	}); err != nil {
		return nil, fmt.Errorf("update lead: %w", err)
	}

	lead.ID = leadID
	lead.Status = status
	lead.Unread = false
	lead.UpdatedAt = now
	return &lead, nil
}

// ============================================================
// Pipeline — GET /v1/leads/pipeline
// ============================================================

// Pipeline groups the visible leads into the fixed column order.
func (s *LeadService) Pipeline(ctx context.Context, actor domain.Profile) ([]domain.PipelineColumn, error) {
	leads, err := s.List(ctx, actor, LeadFilter{})
	if err != nil {
		return nil, err
	}
	return BuildPipeline(leads), nil
}

// BuildPipeline returns one column per pipeline status, in display order.
// Leads with an unknown status land in the first column.
func BuildPipeline(leads []domain.Lead) []domain.PipelineColumn {
	index := make(map[domain.LeadStatus]int, len(domain.PipelineColumns))
	cols := make([]domain.PipelineColumn, len(domain.PipelineColumns))
	for i, st := range domain.PipelineColumns {
		index[st] = i
		cols[i] = domain.PipelineColumn{Status: st, Leads: []domain.Lead{}}
	}
	for _, l := range leads {
		i, ok := index[l.Status]
		if !ok {
			i = 0
		}
		cols[i].Leads = append(cols[i].Leads, l)
		cols[i].Count++
	}
	return cols
}

func parseLeadSource(s string) domain.LeadSource {
	for _, src := range []domain.LeadSource{domain.SourceFacebook, domain.SourceInstagram, domain.SourceGoogle, domain.SourceReferral} {
		if strings.EqualFold(string(src), strings.TrimSpace(s)) {
			return src
		}
	}
	return domain.SourceReferral
}

func leadFields(l domain.Lead) map[string]any {
	return map[string]any{
		"id":           l.ID,
		"tenantId":     l.TenantID,
		"name":         l.Name,
		"phone":        l.Phone,
		"status":       string(l.Status),
		"source":       string(l.Source),
		"campaign":     l.Campaign,
		"budget":       l.Budget,
		"requirements": l.Requirements,
		"unread":       l.Unread,
		"tags":         l.Tags,
		"assignedTo":   l.AssignedTo,
		"createdAt":    l.CreatedAt,
		"updatedAt":    l.UpdatedAt,
	}
}
