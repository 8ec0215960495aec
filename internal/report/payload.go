// Package report renders the final diagnosis document from a structured
// payload and formats the treatment summary sent alongside it.
package report

import (
	"time"

	"github.com/google/uuid"
)

// QA is one answered survey question as shown in the report.
type QA struct {
	Ordinal  int
	Question string
	Answer   string
}

// TreatmentEntry is one recommended treatment row.
type TreatmentEntry struct {
	Title       string
	Description string
}

// LabelBlock is one classifier's verdict: the winning label and the full
// probability distribution.
type LabelBlock struct {
	Source       string
	Label        string
	Confidence   float64
	Distribution map[string]float64
}

// Payload is everything the renderer needs to produce a report document.
type Payload struct {
	AttemptID   uuid.UUID
	UserID      int64
	DisplayName string

	Image   LabelBlock
	Tabular LabelBlock

	QA       []QA
	Location string

	Treatments       []TreatmentEntry
	ExampleImagePath string

	GeneratedAt time.Time
}
