// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"lechuga_bot_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Diagnosis Domain Events
// =============================================================================

// DiagnosisMatched is published when both classifiers agree and a report
// has been sent to the user.
type DiagnosisMatched struct {
	BaseEvent
	UserID    int64     `json:"userId"`
	ChatID    int64     `json:"chatId"`
	AttemptID uuid.UUID `json:"attemptId"`
	Label     string    `json:"label"`
}

func (e DiagnosisMatched) EventName() string { return "diagnosis.matched" }

// DiagnosisMismatched is published when the two classifiers disagree.
type DiagnosisMismatched struct {
	BaseEvent
	UserID       int64     `json:"userId"`
	ChatID       int64     `json:"chatId"`
	AttemptID    uuid.UUID `json:"attemptId"`
	ImageLabel   string    `json:"imageLabel"`
	TabularLabel string    `json:"tabularLabel"`
}

func (e DiagnosisMismatched) EventName() string { return "diagnosis.mismatched" }

// DiagnosisFailed is published when an attempt ends on an error path.
type DiagnosisFailed struct {
	BaseEvent
	UserID    int64     `json:"userId"`
	AttemptID uuid.UUID `json:"attemptId"`
	Stage     string    `json:"stage"`
	Reason    string    `json:"reason"`
	// Capability marks failures caused by an unavailable model or renderer,
	// which warrant an operator alert.
	Capability bool `json:"capability"`
}

func (e DiagnosisFailed) EventName() string { return "diagnosis.failed" }

// ReportGenerated is published after a report document was delivered,
// so the archival pipeline can pick up the local file.
type ReportGenerated struct {
	BaseEvent
	UserID     int64     `json:"userId"`
	AttemptID  uuid.UUID `json:"attemptId"`
	ReportPath string    `json:"reportPath"`
}

func (e ReportGenerated) EventName() string { return "diagnosis.report_generated" }
