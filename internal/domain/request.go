package domain

import "time"

// RequestStatus enumerates lifecycle states for maintenance requests.
type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "pending"
	RequestStatusInProgress RequestStatus = "in_progress"
	RequestStatusCompleted  RequestStatus = "completed"
)

// RequestCategory is assigned by the classifier. CategoryPending marks a
// record the classification pipeline has not finished with yet.
type RequestCategory string

const (
	CategoryPending    RequestCategory = "pending"
	CategoryElectrical RequestCategory = "electrical"
	CategoryPlumbing   RequestCategory = "plumbing"
	CategoryHVAC       RequestCategory = "hvac"
	CategoryStructural RequestCategory = "structural"
	CategoryOther      RequestCategory = "other"
)

// RequestPriority is assigned by the classifier alongside the category.
type RequestPriority string

const (
	PriorityPending RequestPriority = "pending"
	PriorityUrgent  RequestPriority = "urgent"
	PriorityHigh    RequestPriority = "high"
	PriorityMedium  RequestPriority = "medium"
	PriorityLow     RequestPriority = "low"
)

// MaintenanceRequest is the aggregate for building maintenance work.
// OwnerID is nil for anonymous submissions.
type MaintenanceRequest struct {
	ID          string
	OwnerID     *string
	Description string
	Location    *string
	ContactInfo *string
	Category    RequestCategory
	Priority    RequestPriority
	Status      RequestStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Classified reports whether the classifier has populated category/priority.
// The pair flips together; checking one would do, but both are checked so a
// half-written record is never treated as classified.
func (r *MaintenanceRequest) Classified() bool {
	return r.Category != CategoryPending && r.Priority != PriorityPending
}

// OwnedBy reports whether the request belongs to the given user id.
// Anonymous records belong to nobody.
func (r *MaintenanceRequest) OwnedBy(userID string) bool {
	return r.OwnerID != nil && *r.OwnerID == userID
}

// statusRank orders statuses for the monotonic transition rule.
var statusRank = map[RequestStatus]int{
	RequestStatusPending:    0,
	RequestStatusInProgress: 1,
	RequestStatusCompleted:  2,
}

// CanTransition reports whether moving from current to next respects the
// monotonic ordering pending -> in_progress -> completed. Skipping forward
// (pending -> completed) is allowed; moving backward never is. Transitions to
// the same status are rejected as no-ops.
func CanTransition(current, next RequestStatus) bool {
	currentRank, ok := statusRank[current]
	if !ok {
		return false
	}
	nextRank, ok := statusRank[next]
	if !ok {
		return false
	}
	return nextRank > currentRank
}

// ValidStatus reports whether s is a known request status.
func ValidStatus(s RequestStatus) bool {
	_, ok := statusRank[s]
	return ok
}

// ValidCategory reports whether c is a category the classifier may assign.
// CategoryPending is excluded: the classifier never writes the interim value.
func ValidCategory(c RequestCategory) bool {
	switch c {
	case CategoryElectrical, CategoryPlumbing, CategoryHVAC, CategoryStructural, CategoryOther:
		return true
	}
	return false
}

// ValidPriority reports whether p is a priority the classifier may assign.
func ValidPriority(p RequestPriority) bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}
