package domain

import "strings"

// LeadStatus is a pipeline column.
type LeadStatus string

const (
	LeadNew            LeadStatus = "New"
	LeadFollowUp       LeadStatus = "Follow-up"
	LeadVisitScheduled LeadStatus = "Visit Scheduled"
	LeadNegotiation    LeadStatus = "Negotiation"
	LeadClosed         LeadStatus = "Closed"
)

// PipelineColumns is the display order of the pipeline board.
var PipelineColumns = []LeadStatus{
	LeadNew,
	LeadFollowUp,
	LeadVisitScheduled,
	LeadNegotiation,
	LeadClosed,
}

// ParseLeadStatus accepts a column name case-insensitively.
func ParseLeadStatus(s string) (LeadStatus, bool) {
	for _, c := range PipelineColumns {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, true
		}
	}
	return "", false
}

// LeadSource is the channel a lead came from.
type LeadSource string

const (
	SourceFacebook  LeadSource = "Facebook"
	SourceInstagram LeadSource = "Instagram"
	SourceGoogle    LeadSource = "Google"
	SourceReferral  LeadSource = "Referral"
)

// Lead is a sales prospect owned by a tenant.
type Lead struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenantId"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone"`
	Status       LeadStatus `json:"status"`
	Source       LeadSource `json:"source,omitempty"`
	Campaign     string     `json:"campaign,omitempty"`
	Budget       string     `json:"budget,omitempty"`
	Requirements string     `json:"requirements,omitempty"`
	Unread       bool       `json:"unread"`
	Tags         []string   `json:"tags,omitempty"`
	AssignedTo   string     `json:"assignedTo,omitempty"`
	CreatedAt    string     `json:"createdAt"`
	UpdatedAt    string     `json:"updatedAt,omitempty"`
}

// PipelineColumn is one column of the pipeline board.
type PipelineColumn struct {
	Status LeadStatus `json:"status"`
	Count  int        `json:"count"`
	Leads  []Lead     `json:"leads"`
}

// CreateLeadRequest is the body of POST /v1/leads.
type CreateLeadRequest struct {
	Name         string   `json:"name"`
	Phone        string   `json:"phone"`
	Source       string   `json:"source"`
	Campaign     string   `json:"campaign"`
	Budget       string   `json:"budget"`
	Requirements string   `json:"requirements"`
	Tags         []string `json:"tags"`
	AssignedTo   string   `json:"assignedTo"`
}

// UpdateLeadStatusRequest is the body of PUT /v1/leads/{id}/status.
type UpdateLeadStatusRequest struct {
	Status string `json:"status"`
}

// VoiceLogStatus tracks processing of a recorded voice note.
type VoiceLogStatus string

const (
	VoiceQueued    VoiceLogStatus = "queued"
	VoiceProcessed VoiceLogStatus = "processed"
)

// VoiceIntent is what a processed voice note asked for.
type VoiceIntent string

const (
	IntentAddLead      VoiceIntent = "add_lead"
	IntentUpdateStatus VoiceIntent = "update_status"
	IntentLogVisit     VoiceIntent = "log_visit"
)

// VoiceLog is metadata about a field voice recording.
type VoiceLog struct {
	ID              string         `json:"id"`
	TenantID        string         `json:"tenantId"`
	UserID          string         `json:"userId"`
	Timestamp       string         `json:"timestamp"`
	DurationSeconds int            `json:"durationSeconds"`
	Status          VoiceLogStatus `json:"status"`
	Transcript      string         `json:"transcript,omitempty"`
	Intent          VoiceIntent    `json:"intent,omitempty"`
}

// CreateVoiceLogRequest is the body of POST /v1/site/voice-logs.
type CreateVoiceLogRequest struct {
	DurationSeconds int    `json:"durationSeconds"`
	Transcript      string `json:"transcript"`
	Intent          string `json:"intent"`
}
