package stock_coverage

import "strings"

// Status classifies a product by coverage.
type Status string

const (
	StatusCritical   Status = "CRITICAL"
	StatusLow        Status = "LOW"
	StatusAdequate   Status = "ADEQUATE"
	StatusExcess     Status = "EXCESS"
	StatusNoMovement Status = "NO_MOVEMENT"
)

// Priority is the replenishment urgency attached to a Status.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Availability classifies the free balance (balance minus reserved).
type Availability string

const (
	AvailabilityAvailable       Availability = "AVAILABLE"
	AvailabilityLowStock        Availability = "LOW_STOCK"
	AvailabilityOutOfStock      Availability = "OUT_OF_STOCK"
	AvailabilityHighReservation Availability = "HIGH_RESERVATION"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusCritical, StatusLow, StatusAdequate, StatusExcess, StatusNoMovement}

// Priorities lists every priority from most to least urgent.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

var statusLabels = map[Status]string{
	StatusCritical:   "Crítico",
	StatusLow:        "Baixo",
	StatusAdequate:   "Adequado",
	StatusExcess:     "Excesso",
	StatusNoMovement: "Sem movimento",
}

var priorityLabels = map[Priority]string{
	PriorityHigh:   "Alta",
	PriorityMedium: "Média",
	PriorityLow:    "Baixa",
}

var availabilityLabels = map[Availability]string{
	AvailabilityAvailable:       "Disponível",
	AvailabilityLowStock:        "Baixo Estoque",
	AvailabilityOutOfStock:      "Sem Estoque",
	AvailabilityHighReservation: "Alta Reserva",
}

// Label returns the dashboard label of the status.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// Label returns the dashboard label of the priority.
func (p Priority) Label() string {
	if label, ok := priorityLabels[p]; ok {
		return label
	}
	return string(p)
}

// Label returns the dashboard label of the availability.
func (a Availability) Label() string {
	if label, ok := availabilityLabels[a]; ok {
		return label
	}
	return string(a)
}

// ParseStatus accepts a status code or its label, case-insensitive.
func ParseStatus(value string) (Status, bool) {
	for status, label := range statusLabels {
		if matches(value, string(status), label) {
			return status, true
		}
	}
	return "", false
}

// ParsePriority accepts a priority code or its label, case-insensitive.
func ParsePriority(value string) (Priority, bool) {
	for priority, label := range priorityLabels {
		if matches(value, string(priority), label) {
			return priority, true
		}
	}
	return "", false
}

// ParseAvailability accepts an availability code or its label, case-insensitive.
func ParseAvailability(value string) (Availability, bool) {
	for availability, label := range availabilityLabels {
		if matches(value, string(availability), label) {
			return availability, true
		}
	}
	return "", false
}

func matches(value, code, label string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	return strings.EqualFold(value, code) ||
		strings.EqualFold(value, label) ||
		strings.EqualFold(strings.ReplaceAll(value, " ", "_"), code)
}
