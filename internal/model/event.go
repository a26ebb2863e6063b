package model

import (
	"fmt"
	"strings"
	"time"
)

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventUpcoming  EventStatus = "upcoming"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

// ParseEventStatus converts a raw string into an EventStatus.
func ParseEventStatus(s string) (EventStatus, error) {
	switch st := EventStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case EventUpcoming, EventCompleted, EventCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown event status %q", s)
}

// Category groups events by cause.
type Category string

const (
	CategoryEnvironment   Category = "Environment"
	CategoryEducation     Category = "Education"
	CategoryHealth        Category = "Health"
	CategoryCommunity     Category = "Community"
	CategoryAnimalWelfare Category = "Animal Welfare"
)

var categories = []Category{
	CategoryEnvironment,
	CategoryEducation,
	CategoryHealth,
	CategoryCommunity,
	CategoryAnimalWelfare,
}

// ParseCategory matches s case-insensitively against the known categories
// and returns the canonical spelling.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range categories {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Event is a volunteering opportunity with a fixed number of seats.
//
// Fields:
//
//	Capacity        – seats available, always positive.
//	RegisteredCount – seats taken by non-cancelled registrations;
//	                  0 <= RegisteredCount <= Capacity.
//	CreatedBy       – the ngo_admin that published the event.
type Event struct {
	ID              uint64      `json:"id"`               // events.id
	Title           string      `json:"title"`            // events.title
	Description     string      `json:"description"`      // events.description
	Category        Category    `json:"category"`         // events.category
	Location        string      `json:"location"`         // events.location
	StartsAt        time.Time   `json:"starts_at"`        // events.starts_at
	Capacity        int         `json:"capacity"`         // events.capacity
	RegisteredCount int         `json:"registered_count"` // events.registered_count
	Status          EventStatus `json:"status"`           // events.status
	CreatedBy       uint64      `json:"created_by"`       // events.created_by
	CreatedAt       time.Time   `json:"created_at"`       // events.created_at
}

// SeatsLeft reports how many seats can still be reserved.
func (e Event) SeatsLeft() int {
	if left := e.Capacity - e.RegisteredCount; left > 0 {
		return left
	}
	return 0
}
