// Package documents tracks the lifecycle of uploaded documents in memory.
// The registry is the synchronization point between conversion tasks, which
// advance a document's status, and page requests, which wait on it.
package documents

import (
	"time"

	"github.com/google/uuid"
)

// Status is a document's position in the conversion lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConverting Status = "converting"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
)

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusError
}

// transitions lists the statuses reachable from each non-terminal status.
var transitions = map[Status][]Status{
	StatusPending:    {StatusConverting, StatusError},
	StatusConverting: {StatusReady, StatusError},
}

func (s Status) canTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Strategy selects when page artifacts are produced.
type Strategy string

const (
	// StrategyEager converts and splits every page before upload responds.
	StrategyEager Strategy = "eager"

	// StrategyLazy converts in the background and renders pages on request.
	StrategyLazy Strategy = "lazy"
)

// Format is the per-page artifact kind served to clients.
type Format string

const (
	FormatPNG Format = "png"
	FormatPDF Format = "pdf"
)

// Document is the registry record for one upload.
type Document struct {
	ID         uuid.UUID `json:"doc_id"`
	Filename   string    `json:"filename"`
	Strategy   Strategy  `json:"strategy"`
	Format     Format    `json:"format"`
	Status     Status    `json:"status"`
	TotalPages int       `json:"total_pages"`

	// Estimated is true while TotalPages is a pre-conversion estimate.
	Estimated bool      `json:"estimated"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateCommand registers a new document in the pending state.
type CreateCommand struct {
	ID         uuid.UUID
	Filename   string
	Strategy   Strategy
	Format     Format
	TotalPages int
	Estimated  bool
}
