package model

import "time"

type MetadataType string

const (
	MetadataTypeCategory    MetadataType = "CATEGORY"
	MetadataTypeProblemType MetadataType = "PROBLEM_TYPE"
)

func (t MetadataType) Valid() bool {
	return t == MetadataTypeCategory || t == MetadataTypeProblemType
}

// Metadata is a registry entry for problem taxonomy. Keys are unique per type.
type Metadata struct {
	ID          string       `json:"id"`
	Type        MetadataType `json:"type"`
	Key         string       `json:"key"`
	Label       string       `json:"label"`
	Description *string      `json:"description,omitempty"`
	IsActive    bool         `json:"is_active"`
	Order       int          `json:"order"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type SavedProblem struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProblemID string    `json:"problem_id"`
	SavedAt   time.Time `json:"saved_at"`
	Problem   *Problem  `json:"problem,omitempty"`
}
