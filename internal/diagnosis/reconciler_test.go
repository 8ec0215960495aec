package diagnosis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"lechuga_bot_backend/internal/diagnosis/repository"
	"lechuga_bot_backend/internal/events"
	"lechuga_bot_backend/internal/labels"
	"lechuga_bot_backend/internal/report"
	"lechuga_bot_backend/internal/tabular"
)

type fakeBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *fakeBus) Publish(ctx context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *fakeBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *fakeBus) Subscribe(eventName string, handler events.Handler) {}

func (b *fakeBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.EventName())
	}
	return out
}

type fakeRecordStore struct {
	count         int
	countErr      error
	treatments    []repository.Treatment
	treatmentsErr error
	lookups       []string
}

func (s *fakeRecordStore) IncrementDiagnosisCount(ctx context.Context, userID int64) (int, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	s.count++
	return s.count, nil
}

func (s *fakeRecordStore) TreatmentsByDiseaseAndLocation(ctx context.Context, disease string, locationCode, limit int) ([]repository.Treatment, error) {
	s.lookups = append(s.lookups, disease)
	if s.treatmentsErr != nil {
		return nil, s.treatmentsErr
	}
	if limit > 0 && len(s.treatments) > limit {
		return s.treatments[:limit], nil
	}
	return s.treatments, nil
}

type fakeRenderer struct {
	path    string
	err     error
	payload report.Payload
	calls   int
}

func (r *fakeRenderer) Render(ctx context.Context, payload report.Payload) (string, error) {
	r.calls++
	r.payload = payload
	return r.path, r.err
}

type fakeDocumentSender struct {
	fakeMessenger
	docs     []string
	captions []string
	docErr   error
}

func (s *fakeDocumentSender) SendDocument(ctx context.Context, chatID int64, filePath, caption string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docErr != nil {
		return s.docErr
	}
	s.docs = append(s.docs, filePath)
	s.captions = append(s.captions, caption)
	return nil
}

type fakeFormatter struct{}

func (fakeFormatter) Format(ctx context.Context, label string, treatments []report.TreatmentEntry) string {
	return "caption for " + label
}

type diagnosisConfig struct {
	treatmentLimit int
	examplesDir    string
	uploadsDir     string
}

func (c diagnosisConfig) GetDebounceWindow() time.Duration     { return 0 }
func (c diagnosisConfig) GetUploadsDir() string                { return c.uploadsDir }
func (c diagnosisConfig) GetReportsDir() string                { return "" }
func (c diagnosisConfig) GetExampleImagesDir() string          { return c.examplesDir }
func (c diagnosisConfig) GetTreatmentLimit() int               { return c.treatmentLimit }
func (c diagnosisConfig) GetLabelSynonymsPath() string         { return "" }
func (c diagnosisConfig) GetRetryReminderDelay() time.Duration { return 0 }
func (c diagnosisConfig) GetArchivePublicURL() string          { return "" }

func completedSession(imageLabel string) Session {
	return Session{
		UserID:      1,
		ChatID:      100,
		DisplayName: "Ana",
		AttemptID:   uuid.New(),
		Verdict: &ImageVerdict{
			Label:        imageLabel,
			Distribution: map[string]float64{imageLabel: 0.9},
		},
		State:         StateComplete,
		Answers:       map[int]string{2: "No", 1: "Sí"},
		QuestionTexts: map[int]string{1: "Q1", 2: "Q2"},
		Location:      LocationHydroponic,
		StartedAt:     time.Now().UTC(),
	}
}

func newReconcilerFixture(records *fakeRecordStore, renderer *fakeRenderer) (*Reconciler, *fakeDocumentSender, *fakeBus) {
	sender := &fakeDocumentSender{}
	bus := &fakeBus{}
	r := NewReconciler(
		labels.NewTaxonomy(),
		records,
		renderer,
		sender,
		fakeFormatter{},
		bus,
		diagnosisConfig{treatmentLimit: 4},
		testLogger(),
	)
	return r, sender, bus
}

func TestReconcileMatchSendsReportAndPublishesEvents(t *testing.T) {
	records := &fakeRecordStore{treatments: []repository.Treatment{
		{Title: "Fungicida", Description: "Aplicar cada 7 días"},
	}}
	renderer := &fakeRenderer{path: "/tmp/report.pdf"}
	r, sender, bus := newReconcilerFixture(records, renderer)

	outcome, err := r.Reconcile(context.Background(), completedSession("Botrytis"), tabular.Verdict{Label: "0", Confidence: 0.8})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if outcome != OutcomeMatch {
		t.Fatalf("expected match, got %v", outcome)
	}
	if records.count != 1 {
		t.Fatalf("expected diagnosis counter increment, got %d", records.count)
	}
	if len(sender.docs) != 1 || sender.docs[0] != "/tmp/report.pdf" {
		t.Fatalf("expected report document sent, got %v", sender.docs)
	}
	if sender.captions[0] != "caption for Botrytis" {
		t.Fatalf("unexpected caption %q", sender.captions[0])
	}

	names := bus.names()
	if len(names) != 2 || names[0] != "diagnosis.matched" || names[1] != "diagnosis.report_generated" {
		t.Fatalf("unexpected events %v", names)
	}
}

func TestReconcileMatchPayloadOrdersQAByOrdinal(t *testing.T) {
	records := &fakeRecordStore{treatments: []repository.Treatment{{Title: "T", Description: "D"}}}
	renderer := &fakeRenderer{path: "/tmp/r.pdf"}
	r, _, _ := newReconcilerFixture(records, renderer)

	if _, err := r.Reconcile(context.Background(), completedSession("Botrytis"), tabular.Verdict{Label: "botritis"}); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	qa := renderer.payload.QA
	if len(qa) != 2 || qa[0].Ordinal != 1 || qa[1].Ordinal != 2 {
		t.Fatalf("QA not ordered by ordinal: %+v", qa)
	}
	if qa[0].Question != "Q1" || qa[0].Answer != "Sí" {
		t.Fatalf("unexpected QA row: %+v", qa[0])
	}
	if renderer.payload.Location != "hidroponia" {
		t.Fatalf("unexpected location %q", renderer.payload.Location)
	}
}

func TestReconcileMismatchSendsRetryPromptWithBothLabels(t *testing.T) {
	records := &fakeRecordStore{}
	renderer := &fakeRenderer{}
	r, sender, bus := newReconcilerFixture(records, renderer)

	outcome, err := r.Reconcile(context.Background(), completedSession("Botrytis"), tabular.Verdict{Label: "1"})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if outcome != OutcomeMismatch {
		t.Fatalf("expected mismatch, got %v", outcome)
	}
	if renderer.calls != 0 {
		t.Fatal("mismatch must not render a report")
	}
	if records.count != 0 {
		t.Fatal("mismatch must not increment the diagnosis counter")
	}

	sender.mu.Lock()
	msgs := sender.messages
	sender.mu.Unlock()
	if len(msgs) != 1 || !strings.Contains(msgs[0], "Botrytis") || !strings.Contains(msgs[0], "Healthy") {
		t.Fatalf("expected retry prompt naming both labels, got %v", msgs)
	}

	names := bus.names()
	if len(names) != 1 || names[0] != "diagnosis.mismatched" {
		t.Fatalf("unexpected events %v", names)
	}
}

func TestReconcileMatchesThroughSynonyms(t *testing.T) {
	records := &fakeRecordStore{treatments: []repository.Treatment{{Title: "T", Description: "D"}}}
	renderer := &fakeRenderer{path: "/tmp/r.pdf"}
	r, _, _ := newReconcilerFixture(records, renderer)

	// "2" and "xantomonas" both canonicalize to Xanthomonas.
	sess := completedSession("2")
	outcome, err := r.Reconcile(context.Background(), sess, tabular.Verdict{Label: "xantomonas"})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if outcome != OutcomeMatch {
		t.Fatalf("expected synonym labels to match, got %v", outcome)
	}
}

func TestReconcileHealthySkipsTreatmentLookup(t *testing.T) {
	records := &fakeRecordStore{}
	renderer := &fakeRenderer{path: "/tmp/r.pdf"}
	r, _, _ := newReconcilerFixture(records, renderer)

	if _, err := r.Reconcile(context.Background(), completedSession("Healthy"), tabular.Verdict{Label: "sana"}); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(records.lookups) != 0 {
		t.Fatalf("healthy verdict must not query treatments, got %v", records.lookups)
	}
	if len(renderer.payload.Treatments) != 1 || renderer.payload.Treatments[0].Title != "Planta sana" {
		t.Fatalf("unexpected healthy treatments: %+v", renderer.payload.Treatments)
	}
}

func TestReconcileTreatmentLookupFailureDegradesToPlaceholder(t *testing.T) {
	records := &fakeRecordStore{treatmentsErr: errors.New("db down")}
	renderer := &fakeRenderer{path: "/tmp/r.pdf"}
	r, sender, _ := newReconcilerFixture(records, renderer)

	outcome, err := r.Reconcile(context.Background(), completedSession("Botrytis"), tabular.Verdict{Label: "0"})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if outcome != OutcomeMatch {
		t.Fatalf("treatment failure must not abort the attempt, got %v", outcome)
	}
	if len(sender.docs) != 1 {
		t.Fatal("report must still be delivered")
	}
	got := renderer.payload.Treatments
	if len(got) != 1 || got[0].Description != noTreatmentsPlaceholder {
		t.Fatalf("expected placeholder treatment, got %+v", got)
	}
}

func TestReconcileCounterFailureDoesNotAbort(t *testing.T) {
	records := &fakeRecordStore{
		countErr:   errors.New("db down"),
		treatments: []repository.Treatment{{Title: "T", Description: "D"}},
	}
	renderer := &fakeRenderer{path: "/tmp/r.pdf"}
	r, sender, _ := newReconcilerFixture(records, renderer)

	outcome, err := r.Reconcile(context.Background(), completedSession("Botrytis"), tabular.Verdict{Label: "0"})
	if err != nil || outcome != OutcomeMatch {
		t.Fatalf("counter failure must not abort, got outcome=%v err=%v", outcome, err)
	}
	if len(sender.docs) != 1 {
		t.Fatal("report must still be delivered")
	}
}

func TestReconcileRendererFailureIsError(t *testing.T) {
	records := &fakeRecordStore{treatments: []repository.Treatment{{Title: "T", Description: "D"}}}
	renderer := &fakeRenderer{err: errors.New("gotenberg down")}
	r, sender, bus := newReconcilerFixture(records, renderer)

	outcome, err := r.Reconcile(context.Background(), completedSession("Botrytis"), tabular.Verdict{Label: "0"})
	if err == nil || outcome != OutcomeError {
		t.Fatalf("expected renderer failure to error, got outcome=%v err=%v", outcome, err)
	}
	if len(sender.docs) != 0 {
		t.Fatal("no document must be sent when rendering fails")
	}
	if len(bus.names()) != 0 {
		t.Fatalf("no success events on failure, got %v", bus.names())
	}
}

func TestReconcileMissingImageVerdictIsError(t *testing.T) {
	r, _, _ := newReconcilerFixture(&fakeRecordStore{}, &fakeRenderer{})

	sess := completedSession("Botrytis")
	sess.Verdict = nil
	outcome, err := r.Reconcile(context.Background(), sess, tabular.Verdict{Label: "0"})
	if err == nil || outcome != OutcomeError {
		t.Fatalf("expected error without image verdict, got outcome=%v err=%v", outcome, err)
	}
}
