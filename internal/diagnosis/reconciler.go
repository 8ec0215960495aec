package diagnosis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"lechuga_bot_backend/internal/diagnosis/repository"
	"lechuga_bot_backend/internal/events"
	"lechuga_bot_backend/internal/labels"
	"lechuga_bot_backend/internal/report"
	"lechuga_bot_backend/internal/tabular"
	"lechuga_bot_backend/platform/apperr"
	"lechuga_bot_backend/platform/config"
	"lechuga_bot_backend/platform/logger"
)

// Outcome is the terminal result of a diagnosis attempt.
type Outcome string

const (
	OutcomeMatch    Outcome = "match"
	OutcomeMismatch Outcome = "mismatch"
	OutcomeError    Outcome = "error"
)

// RecordStore is the persistence surface the reconciler needs.
type RecordStore interface {
	IncrementDiagnosisCount(ctx context.Context, userID int64) (int, error)
	TreatmentsByDiseaseAndLocation(ctx context.Context, disease string, locationCode, limit int) ([]repository.Treatment, error)
}

// Renderer produces the report document and returns its local path.
type Renderer interface {
	Render(ctx context.Context, payload report.Payload) (string, error)
}

// DocumentSender extends Messenger with document delivery.
type DocumentSender interface {
	Messenger
	SendDocument(ctx context.Context, chatID int64, filePath, caption string) error
}

// TreatmentFormatter turns treatment rows into the chat caption sent with
// the report. Implementations may call an LLM; failures fall back locally.
type TreatmentFormatter interface {
	Format(ctx context.Context, label string, treatments []report.TreatmentEntry) string
}

const noTreatmentsPlaceholder = "Sin tratamientos registrados para este caso. Consulta a un agrónomo."

// Reconciler compares the image and tabular verdicts and drives the terminal
// action: report on agreement, retry prompt on disagreement.
type Reconciler struct {
	taxonomy  *labels.Taxonomy
	records   RecordStore
	renderer  Renderer
	msg       DocumentSender
	formatter TreatmentFormatter
	bus       events.Bus
	cfg       config.DiagnosisConfig
	log       *logger.Logger
}

// NewReconciler creates a reconciler.
func NewReconciler(
	taxonomy *labels.Taxonomy,
	records RecordStore,
	renderer Renderer,
	msg DocumentSender,
	formatter TreatmentFormatter,
	bus events.Bus,
	cfg config.DiagnosisConfig,
	log *logger.Logger,
) *Reconciler {
	return &Reconciler{
		taxonomy:  taxonomy,
		records:   records,
		renderer:  renderer,
		msg:       msg,
		formatter: formatter,
		bus:       bus,
		cfg:       cfg,
		log:       log,
	}
}

// Reconcile compares both verdicts for a completed session and performs the
// terminal action. The caller finalizes the session afterwards regardless of
// the outcome.
func (r *Reconciler) Reconcile(ctx context.Context, sess Session, tab tabular.Verdict) (Outcome, error) {
	if sess.Verdict == nil {
		return OutcomeError, apperr.Internal("session has no image verdict").WithOp("diagnosis.Reconcile")
	}

	imageLabel := r.taxonomy.Canonical(sess.Verdict.Label)
	tabularLabel := r.taxonomy.Canonical(tab.Label)

	if imageLabel != tabularLabel {
		return r.mismatch(ctx, sess, imageLabel, tabularLabel)
	}
	return r.match(ctx, sess, tab, imageLabel)
}

func (r *Reconciler) mismatch(ctx context.Context, sess Session, imageLabel, tabularLabel string) (Outcome, error) {
	text := fmt.Sprintf(
		"Los dos análisis no coinciden:\n\n📷 Imagen: %s\n📋 Cuestionario: %s\n\nPor favor intenta de nuevo con una foto más clara de tu lechuga.",
		imageLabel, tabularLabel,
	)
	if err := r.msg.SendMessage(ctx, sess.ChatID, text); err != nil {
		r.log.Error("failed to send mismatch notice", "user_id", sess.UserID, "error", err)
	}

	r.bus.Publish(ctx, events.DiagnosisMismatched{
		BaseEvent:    events.NewBaseEvent(),
		UserID:       sess.UserID,
		ChatID:       sess.ChatID,
		AttemptID:    sess.AttemptID,
		ImageLabel:   imageLabel,
		TabularLabel: tabularLabel,
	})

	r.log.DiagnosisOutcome(sess.UserID, sess.AttemptID.String(), string(OutcomeMismatch))
	return OutcomeMismatch, nil
}

func (r *Reconciler) match(ctx context.Context, sess Session, tab tabular.Verdict, label string) (Outcome, error) {
	if _, err := r.records.IncrementDiagnosisCount(ctx, sess.UserID); err != nil {
		// Counter persistence must not abort a successful diagnosis.
		r.log.Error("failed to increment diagnosis count", "user_id", sess.UserID, "error", err)
	}

	payload := r.buildPayload(ctx, sess, tab, label)

	reportPath, err := r.renderer.Render(ctx, payload)
	if err != nil {
		return OutcomeError, apperr.Wrap(apperr.KindCapability, "report renderer failed", err).WithOp("diagnosis.match")
	}

	caption := r.formatter.Format(ctx, label, payload.Treatments)
	if err := r.msg.SendDocument(ctx, sess.ChatID, reportPath, caption); err != nil {
		return OutcomeError, fmt.Errorf("send report: %w", err)
	}

	r.bus.Publish(ctx, events.DiagnosisMatched{
		BaseEvent: events.NewBaseEvent(),
		UserID:    sess.UserID,
		ChatID:    sess.ChatID,
		AttemptID: sess.AttemptID,
		Label:     label,
	})
	r.bus.Publish(ctx, events.ReportGenerated{
		BaseEvent:  events.NewBaseEvent(),
		UserID:     sess.UserID,
		AttemptID:  sess.AttemptID,
		ReportPath: reportPath,
	})

	r.log.DiagnosisOutcome(sess.UserID, sess.AttemptID.String(), string(OutcomeMatch))
	return OutcomeMatch, nil
}

func (r *Reconciler) buildPayload(ctx context.Context, sess Session, tab tabular.Verdict, label string) report.Payload {
	qa := make([]report.QA, 0, len(sess.Answers))
	for ordinal, answer := range sess.Answers {
		qa = append(qa, report.QA{
			Ordinal:  ordinal,
			Question: sess.QuestionTexts[ordinal],
			Answer:   answer,
		})
	}
	sort.Slice(qa, func(i, j int) bool { return qa[i].Ordinal < qa[j].Ordinal })

	return report.Payload{
		AttemptID:   sess.AttemptID,
		UserID:      sess.UserID,
		DisplayName: sess.DisplayName,
		Image: report.LabelBlock{
			Source:       "Análisis de imagen",
			Label:        label,
			Distribution: sess.Verdict.Distribution,
		},
		Tabular: report.LabelBlock{
			Source:       "Cuestionario",
			Label:        label,
			Confidence:   tab.Confidence,
			Distribution: tab.Distribution,
		},
		QA:               qa,
		Location:         sess.Location.String(),
		Treatments:       r.lookupTreatments(ctx, label, sess.Location),
		ExampleImagePath: r.exampleImage(label),
		GeneratedAt:      sess.StartedAt,
	}
}

// lookupTreatments fetches up to the configured limit of treatments for the
// diagnosed label at the chosen location. Lookup failures and empty results
// degrade to a placeholder entry; they never abort the attempt.
func (r *Reconciler) lookupTreatments(ctx context.Context, label string, location Location) []report.TreatmentEntry {
	if label == labels.Healthy {
		return []report.TreatmentEntry{{
			Title:       "Planta sana",
			Description: "No se requiere tratamiento. Continúa con el manejo habitual del cultivo.",
		}}
	}

	rows, err := r.records.TreatmentsByDiseaseAndLocation(ctx, label, location.Code(), r.cfg.GetTreatmentLimit())
	if err != nil {
		r.log.Error("treatment lookup failed", "label", label, "location", location.Code(), "error", err)
		rows = nil
	}
	if len(rows) == 0 {
		return []report.TreatmentEntry{{Title: "Sin tratamientos", Description: noTreatmentsPlaceholder}}
	}

	entries := make([]report.TreatmentEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, report.TreatmentEntry{Title: row.Title, Description: row.Description})
	}
	return entries
}

// exampleImage resolves the illustrative reference photo for a label, or ""
// when none ships with the deployment.
func (r *Reconciler) exampleImage(label string) string {
	path := filepath.Join(r.cfg.GetExampleImagesDir(), label+".jpg")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
