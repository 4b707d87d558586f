// Package notify delivers document progress events to connected clients.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/tally/internal/documents"
)

// Event reports a document status change. Terminal is set once per run,
// on the event that carries the final status.
type Event struct {
	DocumentID     uuid.UUID                 `json:"id"`
	RequesterID    string                    `json:"-"`
	TenantID       string                    `json:"tenant_id"`
	Status         documents.Status          `json:"status"`
	Progress       int                       `json:"progress"`
	Terminal       bool                      `json:"terminal"`
	PageCount      *int                      `json:"page_count,omitempty"`
	BalanceDate    *string                   `json:"balance_date,omitempty"`
	CompanyInfo    *documents.CompanyInfo    `json:"company_info,omitempty"`
	Validation     *documents.Validation     `json:"validation,omitempty"`
	ProcessingTime *documents.ProcessingTime `json:"processing_time,omitempty"`
	ErrorMessage   string                    `json:"error_message,omitempty"`
	Timestamp      time.Time                 `json:"timestamp"`
}

// Sink receives events. Notify never blocks on delivery and never fails
// the caller.
type Sink interface {
	Notify(ctx context.Context, e Event)
}

// Discard is a Sink that drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Notify(context.Context, Event) {}
