package model

// Priority orders entries by importance for tier routing. Only high and
// critical entries are admitted into the volatile tier.
type Priority int32

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// DefaultCategory tags entries stored without an explicit category.
const DefaultCategory = "general"

// CategoryCritical forces volatile-tier admission regardless of priority.
const CategoryCritical = "critical"

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "normal"
	}
}

func ParsePriority(s string) Priority {
	switch s {
	case "low":
		return PriorityLow
	case "high":
		return PriorityHigh
	case "critical":
		return PriorityCritical
	default:
		return PriorityNormal
	}
}
