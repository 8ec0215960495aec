package diagnosis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"lechuga_bot_backend/internal/diagnosis/repository"
	"lechuga_bot_backend/internal/events"
	"lechuga_bot_backend/internal/messaging"
	"lechuga_bot_backend/internal/tabular"
	"lechuga_bot_backend/platform/apperr"
	"lechuga_bot_backend/platform/config"
	"lechuga_bot_backend/platform/logger"
	"lechuga_bot_backend/platform/phone"

	"github.com/google/uuid"
)

// Channel is the full messaging surface the orchestrator needs.
type Channel interface {
	DocumentSender
	AnswerCallback(ctx context.Context, callbackID string) error
	DownloadFile(ctx context.Context, fileID, destPath string) error
}

// UserStore is the user-record surface the orchestrator needs.
type UserStore interface {
	EnsureUser(ctx context.Context, userID int64, displayName string) (repository.User, error)
	AcceptTerms(ctx context.Context, userID int64) error
	UpdatePhone(ctx context.Context, userID int64, phoneNumber string) error
}

// PresenceStore tracks daily greetings and the most recent attempt per user.
type PresenceStore interface {
	AlreadyGreetedToday(ctx context.Context, userID int64) (bool, error)
	MarkGreeted(ctx context.Context, userID int64) error
	RecordAttempt(ctx context.Context, userID int64, attemptID string) error
}

// ImageAnalysis is the outcome of the image side of an attempt. Exactly one
// of Verdict and Rejection is set.
type ImageAnalysis struct {
	Verdict *ImageVerdict
	// Rejection carries the user-facing gate rejection message when the
	// photo did not show a real lettuce.
	Rejection string
}

// ImageAnalyzer is the image side of an attempt: the subject gate plus the
// CNN classifier, already normalized into the session verdict shape.
type ImageAnalyzer interface {
	Analyze(ctx context.Context, imagePath string) (ImageAnalysis, error)
}

// attemptTimeout bounds one full classification attempt, survey excluded.
const attemptTimeout = 3 * time.Minute

const (
	termsCallbackData = "terms:accept"

	msgTermsPrompt   = "Antes de empezar necesito que aceptes los términos y condiciones del servicio. Tus fotos se usan únicamente para el diagnóstico y se eliminan al terminar."
	msgTermsThanks   = "¡Gracias! Ya puedes enviarme una foto de tu lechuga para comenzar el diagnóstico."
	msgStart         = "Envíame una foto clara de tu lechuga y te ayudaré a diagnosticarla. 🥬"
	msgOnlyLatest    = "Recibí varias fotos; usaré solamente la más reciente para el diagnóstico."
	msgNotSubject    = "La imagen no parece mostrar una lechuga. Envíame una foto de tu planta, por favor."
	msgNotReal       = "La imagen muestra una lechuga que no parece una planta real (dibujo o pantalla). Envíame una foto de tu cultivo."
	msgInputError    = "No pude usar esa foto. Intenta con otra imagen, por favor."
	msgUnavailable   = "El servicio de diagnóstico no está disponible en este momento. Intenta de nuevo más tarde."
	msgLocationRetry = "No reconocí esa ubicación. Responde 1 para hidroponía o 2 para sustrato, o usa los botones."
)

// Orchestrator routes inbound updates and drives each diagnosis attempt
// through gate, classifier, survey, tabular model, and reconciler, with
// unconditional cleanup on every terminal path.
type Orchestrator struct {
	store      *Store
	scheduler  *Scheduler
	engine     *Engine
	analyzer   ImageAnalyzer
	tab        *tabular.Adapter
	reconciler *Reconciler
	users      UserStore
	presence   PresenceStore
	channel    Channel
	bus        events.Bus
	cfg        config.DiagnosisConfig
	log        *logger.Logger
}

// NewOrchestrator wires the diagnosis pipeline. The debounce scheduler is
// created here so its fire callback can reach back into the orchestrator.
func NewOrchestrator(
	window time.Duration,
	store *Store,
	engine *Engine,
	analyzer ImageAnalyzer,
	tab *tabular.Adapter,
	reconciler *Reconciler,
	users UserStore,
	presence PresenceStore,
	channel Channel,
	bus events.Bus,
	cfg config.DiagnosisConfig,
	log *logger.Logger,
) *Orchestrator {
	o := &Orchestrator{
		store:      store,
		engine:     engine,
		analyzer:   analyzer,
		tab:        tab,
		reconciler: reconciler,
		users:      users,
		presence:   presence,
		channel:    channel,
		bus:        bus,
		cfg:        cfg,
		log:        log,
	}
	o.scheduler = NewScheduler(window, o.runAttempt, log)
	return o
}

// HandleUpdate implements messaging.UpdateHandler.
func (o *Orchestrator) HandleUpdate(ctx context.Context, update *messaging.Update) error {
	switch {
	case update.CallbackQuery != nil:
		return o.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		return o.handleMessage(ctx, update.Message)
	default:
		return nil
	}
}

func (o *Orchestrator) handleMessage(ctx context.Context, msg *messaging.Message) error {
	if msg.From == nil {
		return nil
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID
	displayName := msg.From.DisplayName()

	user, err := o.users.EnsureUser(ctx, userID, displayName)
	if err != nil {
		return fmt.Errorf("ensure user %d: %w", userID, err)
	}

	o.greetIfFirstToday(ctx, userID, chatID, displayName)

	if user.TermsAcceptedAt == nil {
		return o.sendTermsPrompt(ctx, chatID)
	}

	if fileID := msg.LargestPhoto(); fileID != "" {
		o.scheduler.OnPhoto(userID, chatID, displayName, fileID)
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch {
	case text == "/start":
		return o.channel.SendMessage(ctx, chatID, msgStart)
	case strings.HasPrefix(text, "/telefono"):
		return o.handlePhoneCommand(ctx, userID, chatID, text)
	case text != "":
		return o.handleTextAnswer(ctx, userID, text)
	}
	return nil
}

func (o *Orchestrator) handleCallback(ctx context.Context, cb *messaging.CallbackQuery) error {
	if err := o.channel.AnswerCallback(ctx, cb.ID); err != nil {
		o.log.Warn("failed to answer callback", "error", err)
	}

	userID := cb.From.ID
	data := cb.Data

	switch {
	case data == termsCallbackData:
		return o.acceptTerms(ctx, userID, cb)
	case strings.HasPrefix(data, answerCallbackPrefix):
		ordinal, answer, ok := parseAnswerCallback(data)
		if !ok {
			return nil
		}
		if err := o.engine.HandleAnswer(ctx, userID, ordinal, answer); err != nil {
			o.failSurveyPhase(ctx, userID, err)
		}
		return nil
	case strings.HasPrefix(data, locationCallbackPrefix):
		o.handleLocationChoice(ctx, userID, strings.TrimPrefix(data, locationCallbackPrefix))
		return nil
	default:
		return nil
	}
}

func (o *Orchestrator) acceptTerms(ctx context.Context, userID int64, cb *messaging.CallbackQuery) error {
	if err := o.users.AcceptTerms(ctx, userID); err != nil {
		return fmt.Errorf("accept terms for %d: %w", userID, err)
	}
	chatID := userID
	if cb.Message != nil {
		chatID = cb.Message.Chat.ID
	}
	return o.channel.SendMessage(ctx, chatID, msgTermsThanks)
}

func (o *Orchestrator) sendTermsPrompt(ctx context.Context, chatID int64) error {
	rows := [][]messaging.Button{{{Text: "Acepto", Data: termsCallbackData}}}
	_, err := o.channel.SendButtons(ctx, chatID, msgTermsPrompt, rows)
	return err
}

func (o *Orchestrator) greetIfFirstToday(ctx context.Context, userID, chatID int64, displayName string) {
	greeted, err := o.presence.AlreadyGreetedToday(ctx, userID)
	if err != nil {
		o.log.Warn("greeting lookup failed", "user_id", userID, "error", err)
		return
	}
	if greeted {
		return
	}
	if err := o.presence.MarkGreeted(ctx, userID); err != nil {
		o.log.Warn("failed to mark greeting", "user_id", userID, "error", err)
	}
	if err := o.channel.SendMessage(ctx, chatID, fmt.Sprintf("¡Hola %s! 🥬", displayName)); err != nil {
		o.log.Warn("failed to send greeting", "user_id", userID, "error", err)
	}
}

func (o *Orchestrator) handlePhoneCommand(ctx context.Context, userID, chatID int64, text string) error {
	raw := strings.TrimSpace(strings.TrimPrefix(text, "/telefono"))
	if raw == "" {
		return o.channel.SendMessage(ctx, chatID, "Envíalo como /telefono 3001234567.")
	}
	normalized := phone.NormalizeE164(raw)
	if err := o.users.UpdatePhone(ctx, userID, normalized); err != nil {
		return fmt.Errorf("update phone for %d: %w", userID, err)
	}
	return o.channel.SendMessage(ctx, chatID, "Número de contacto guardado. ✅")
}

// handleTextAnswer lets users type their answer instead of pressing a button.
func (o *Orchestrator) handleTextAnswer(ctx context.Context, userID int64, text string) error {
	sess, ok := o.store.Snapshot(userID)
	if !ok {
		return nil
	}
	switch sess.State {
	case StateAwaitingQuestion:
		if err := o.engine.HandleAnswer(ctx, userID, sess.Question, text); err != nil {
			o.failSurveyPhase(ctx, userID, err)
		}
	case StateAwaitingLocation:
		o.handleLocationChoice(ctx, userID, locationFromText(text))
	}
	return nil
}

// handleLocationChoice feeds a location answer to the survey and runs the
// tabular phase once the survey completes. An unrecognized choice re-prompts
// instead of ending the attempt.
func (o *Orchestrator) handleLocationChoice(ctx context.Context, userID int64, choice string) {
	complete, err := o.engine.HandleLocation(ctx, userID, choice)
	switch {
	case apperr.Is(err, apperr.KindInput):
		if sess, ok := o.store.Snapshot(userID); ok {
			if sendErr := o.channel.SendMessage(ctx, sess.ChatID, msgLocationRetry); sendErr != nil {
				o.log.Warn("failed to send location retry prompt", "user_id", userID, "error", sendErr)
			}
		}
	case err != nil:
		o.failSurveyPhase(ctx, userID, err)
	case complete:
		o.runTabularPhase(ctx, userID)
	}
}

// failSurveyPhase ends an attempt whose survey phase failed: one user
// message, a failure event, unconditional cleanup.
func (o *Orchestrator) failSurveyPhase(ctx context.Context, userID int64, err error) {
	o.log.Error("survey phase failed", "user_id", userID, "error", err)
	if sess, ok := o.store.Snapshot(userID); ok {
		o.notifyError(ctx, sess.ChatID, err)
	}
	o.publishFailure(ctx, userID, "survey", err)
	o.finalize(userID)
}

func locationFromText(text string) string {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "1", "hidroponia", "hidroponía":
		return "1"
	case "2", "sustrato":
		return "2"
	default:
		return text
	}
}

// runAttempt is the debounce fire callback: download the coalesced photo,
// gate it, classify it, and start the survey. Every failure path cleans up
// its artifacts before returning.
func (o *Orchestrator) runAttempt(userID int64, upload Upload) {
	ctx, cancel := context.WithTimeout(context.Background(), attemptTimeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			o.log.Error("panic during diagnosis attempt", "user_id", userID, "panic", rec)
			o.finalize(userID)
		}
	}()

	if upload.Count > 1 {
		if err := o.channel.SendMessage(ctx, upload.ChatID, msgOnlyLatest); err != nil {
			o.log.Warn("failed to send coalescing notice", "user_id", userID, "error", err)
		}
	}

	imagePath := filepath.Join(o.cfg.GetUploadsDir(), fmt.Sprintf("%d_diagnosis.jpg", userID))
	if err := o.channel.DownloadFile(ctx, upload.FileID, imagePath); err != nil {
		o.log.Error("photo download failed", "user_id", userID, "error", err)
		o.abortAttempt(ctx, userID, upload.ChatID, imagePath, "download", apperr.Wrap(apperr.KindInput, "photo download failed", err))
		return
	}

	analysis, err := o.analyzer.Analyze(ctx, imagePath)
	if err != nil {
		o.abortAttempt(ctx, userID, upload.ChatID, imagePath, "image", err)
		return
	}
	if analysis.Rejection != "" {
		// Gate rejection: one message, no session, no lingering artifacts.
		if err := o.channel.SendMessage(ctx, upload.ChatID, analysis.Rejection); err != nil {
			o.log.Warn("failed to send rejection", "user_id", userID, "error", err)
		}
		removeIfExists(imagePath, o.log)
		return
	}

	verdict := analysis.Verdict
	verdict.ImagePath = imagePath

	if err := o.channel.SendMessage(ctx, upload.ChatID, verdict.RawText); err != nil {
		o.log.Warn("failed to send image verdict", "user_id", userID, "error", err)
	}

	sess := o.store.Create(userID, upload.ChatID, upload.DisplayName, verdict)
	if err := o.presence.RecordAttempt(ctx, userID, sess.AttemptID.String()); err != nil {
		o.log.Warn("failed to record attempt", "user_id", userID, "error", err)
	}

	if err := o.engine.Start(ctx, userID); err != nil {
		o.log.Error("survey start failed", "user_id", userID, "error", err)
		o.notifyError(ctx, upload.ChatID, err)
		o.publishFailure(ctx, userID, "survey", err)
		o.finalize(userID)
	}
}

// runTabularPhase runs after the survey completes: tabular prediction,
// reconciliation, finalization. Finalization is unconditional.
func (o *Orchestrator) runTabularPhase(ctx context.Context, userID int64) {
	defer o.finalize(userID)

	sess, ok := o.store.Snapshot(userID)
	if !ok || sess.State != StateComplete {
		return
	}

	verdict, err := o.tab.Predict(ctx, sess.Answers)
	if err != nil {
		o.log.Error("tabular prediction failed", "user_id", userID, "error", err)
		o.notifyError(ctx, sess.ChatID, err)
		o.publishFailure(ctx, userID, "tabular", err)
		return
	}

	if _, err := o.reconciler.Reconcile(ctx, sess, verdict); err != nil {
		o.log.Error("reconciliation failed", "user_id", userID, "error", err)
		o.notifyError(ctx, sess.ChatID, err)
		o.publishFailure(ctx, userID, "reconcile", err)
	}
}

// abortAttempt ends an attempt that failed before a session existed.
func (o *Orchestrator) abortAttempt(ctx context.Context, userID, chatID int64, imagePath, stage string, err error) {
	o.notifyError(ctx, chatID, err)
	o.publishFailure(ctx, userID, stage, err)
	removeIfExists(imagePath, o.log)
}

// finalize is the single cleanup path for every terminal outcome. It is
// idempotent: a second call for the same user is a no-op.
func (o *Orchestrator) finalize(userID int64) {
	sess := o.store.Delete(userID)
	if sess != nil && sess.Verdict != nil {
		removeIfExists(sess.Verdict.ImagePath, o.log)
	}
	o.scheduler.Cancel(userID)
}

func (o *Orchestrator) notifyError(ctx context.Context, chatID int64, err error) {
	var text string
	switch apperr.GetKind(err) {
	case apperr.KindInput:
		text = msgInputError
	default:
		text = msgUnavailable
	}
	if sendErr := o.channel.SendMessage(ctx, chatID, text); sendErr != nil {
		o.log.Error("failed to notify user of error", "chat_id", chatID, "error", sendErr)
	}
}

func (o *Orchestrator) publishFailure(ctx context.Context, userID int64, stage string, err error) {
	attemptID := uuid.Nil
	if sess, ok := o.store.Snapshot(userID); ok {
		attemptID = sess.AttemptID
	}
	o.bus.Publish(ctx, events.DiagnosisFailed{
		BaseEvent:  events.NewBaseEvent(),
		UserID:     userID,
		AttemptID:  attemptID,
		Stage:      stage,
		Reason:     err.Error(),
		Capability: apperr.Is(err, apperr.KindCapability),
	})
}

func parseAnswerCallback(data string) (int, string, bool) {
	rest := strings.TrimPrefix(data, answerCallbackPrefix)
	sep := strings.IndexByte(rest, ':')
	if sep <= 0 {
		return 0, "", false
	}
	ordinal, err := strconv.Atoi(rest[:sep])
	if err != nil || ordinal < 1 {
		return 0, "", false
	}
	return ordinal, rest[sep+1:], true
}

func removeIfExists(path string, log *logger.Logger) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn("failed to remove artifact", "path", path, "error", err)
	}
}
