package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Checklist is a stored generation artifact. Payload holds the checklist
// JSON exactly as it was validated.
type Checklist struct {
	WorkProduct string
	RunID       string
	Payload     []byte
	CreatedAt   time.Time
}

// Context is a stored work-product context used to enrich generation.
type Context struct {
	WorkProduct string
	Payload     []byte
	CreatedAt   time.Time
}

// Evaluation is one rubric score for one evaluated unit.
type Evaluation struct {
	ID          string
	Level       string // "question", "checklist" or "requirement"
	WorkProduct string
	Subject     string // checklist item title or requirement ID
	Rubric      string
	Score       int
	Notes       string
	CreatedAt   time.Time
}

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Run records one invocation of the generation pipeline.
type Run struct {
	ID         string
	Status     string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}
