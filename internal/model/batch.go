package model

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a batch item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// BatchItem is one queued image and, once done, its encoded result.
type BatchItem struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Position  int       `json:"position"` // 1-based queue position
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Rotate    float64   `json:"rotate"` // rotation applied on the last run
	Source    []byte    `json:"-"`
	Output    []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemEvent describes one observed status transition of a batch item.
type ItemEvent struct {
	ItemID   uuid.UUID `json:"item_id"`
	Name     string    `json:"name"`
	Position int       `json:"position"`
	Status   Status    `json:"status"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

// RunRequest asks the batch worker to process the queue.
type RunRequest struct {
	ID          uuid.UUID `json:"id"`
	RequestedAt time.Time `json:"requested_at"`
}
