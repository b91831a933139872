package domain

import "time"

// ComplaintStatus enumerates lifecycle states for complaints.
type ComplaintStatus string

const (
	ComplaintStatusPending    ComplaintStatus = "PENDING"
	ComplaintStatusInProgress ComplaintStatus = "IN_PROGRESS"
	ComplaintStatusResolved   ComplaintStatus = "RESOLVED"
	ComplaintStatusRejected   ComplaintStatus = "REJECTED"
)

// MaxDescriptionLength bounds complaint descriptions.
const MaxDescriptionLength = 1000

// ComplaintCategory classifies a complaint into a fixed set.
type ComplaintCategory string

const (
	CategoryInfrastructure ComplaintCategory = "infrastructure"
	CategoryRoads          ComplaintCategory = "roads"
	CategoryWater          ComplaintCategory = "water"
	CategoryElectricity    ComplaintCategory = "electricity"
	CategoryWaste          ComplaintCategory = "waste"
	CategorySafety         ComplaintCategory = "safety"
	CategoryHealth         ComplaintCategory = "health"
	CategoryEducation      ComplaintCategory = "education"
	CategoryParks          ComplaintCategory = "parks"
	CategoryNoise          ComplaintCategory = "noise"
	CategoryAir            ComplaintCategory = "air"
	CategoryTraffic        ComplaintCategory = "traffic"
	CategoryHousing        ComplaintCategory = "housing"
	CategoryBusiness       ComplaintCategory = "business"
	CategoryOther          ComplaintCategory = "other"
)

var knownCategories = map[ComplaintCategory]struct{}{
	CategoryInfrastructure: {},
	CategoryRoads:          {},
	CategoryWater:          {},
	CategoryElectricity:    {},
	CategoryWaste:          {},
	CategorySafety:         {},
	CategoryHealth:         {},
	CategoryEducation:      {},
	CategoryParks:          {},
	CategoryNoise:          {},
	CategoryAir:            {},
	CategoryTraffic:        {},
	CategoryHousing:        {},
	CategoryBusiness:       {},
	CategoryOther:          {},
}

// Valid reports whether the category belongs to the fixed set.
func (c ComplaintCategory) Valid() bool {
	_, ok := knownCategories[c]
	return ok
}

var allowedTransitions = map[ComplaintStatus][]ComplaintStatus{
	ComplaintStatusPending:    {ComplaintStatusInProgress, ComplaintStatusResolved, ComplaintStatusRejected},
	ComplaintStatusInProgress: {ComplaintStatusResolved, ComplaintStatusRejected},
	ComplaintStatusResolved:   {},
	ComplaintStatusRejected:   {},
}

// KnownStatus reports whether s is one of the lifecycle states.
func KnownStatus(s ComplaintStatus) bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransition reports whether next is a valid successor of current.
// A same-status transition is not an edge; callers treat it as a no-op.
func CanTransition(current, next ComplaintStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status has no outgoing transitions.
func Terminal(s ComplaintStatus) bool {
	return len(allowedTransitions[s]) == 0 && KnownStatus(s)
}

// Complaint is the aggregate for citizen-submitted issue reports.
type Complaint struct {
	ID           string
	Reference    string
	OwnerID      string
	Title        string
	Description  string
	Category     ComplaintCategory
	Location     string
	Status       ComplaintStatus
	Response     *string
	ResponseRead bool
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasResponse reports whether an admin response is attached.
func (c *Complaint) HasResponse() bool {
	return c.Response != nil && *c.Response != ""
}

// Deletable reports whether the owner may still remove the complaint.
func (c *Complaint) Deletable() bool {
	return c.Status == ComplaintStatusPending || c.Status == ComplaintStatusInProgress
}
