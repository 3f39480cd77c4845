package dto

import (
	"time"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// CreateRequestPayload is the submission body. Anonymous callers may post it
// without a token.
type CreateRequestPayload struct {
	Description string  `json:"description" validate:"required"`
	Location    *string `json:"location" validate:"omitempty,max=100"`
	ContactInfo *string `json:"contact_info" validate:"omitempty,max=100"`
}

// UpdateStatusPayload carries a lifecycle transition.
type UpdateStatusPayload struct {
	Status string `json:"status" validate:"required,oneof=pending in_progress completed"`
}

// RequestResponse is the wire shape of a maintenance request.
type RequestResponse struct {
	ID          string                 `json:"id"`
	OwnerID     *string                `json:"owner_id,omitempty"`
	Description string                 `json:"description"`
	Location    *string                `json:"location"`
	ContactInfo *string                `json:"contact_info"`
	Category    domain.RequestCategory `json:"category"`
	Priority    domain.RequestPriority `json:"priority"`
	Status      domain.RequestStatus   `json:"status"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// NewRequestResponse maps a domain record.
func NewRequestResponse(req *domain.MaintenanceRequest) RequestResponse {
	return RequestResponse{
		ID:          req.ID,
		OwnerID:     req.OwnerID,
		Description: req.Description,
		Location:    req.Location,
		ContactInfo: req.ContactInfo,
		Category:    req.Category,
		Priority:    req.Priority,
		Status:      req.Status,
		CreatedAt:   req.CreatedAt,
		UpdatedAt:   req.UpdatedAt,
	}
}

// NewRequestResponses maps a slice of domain records.
func NewRequestResponses(reqs []domain.MaintenanceRequest) []RequestResponse {
	items := make([]RequestResponse, 0, len(reqs))
	for i := range reqs {
		items = append(items, NewRequestResponse(&reqs[i]))
	}
	return items
}

// StatsResponse aggregates request counts.
type StatsResponse struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"by_status"`
	ByCategory map[string]int64 `json:"by_category"`
	ByPriority map[string]int64 `json:"by_priority"`
}
