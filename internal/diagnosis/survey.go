package diagnosis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"lechuga_bot_backend/internal/diagnosis/repository"
	"lechuga_bot_backend/internal/messaging"
	"lechuga_bot_backend/platform/apperr"
	"lechuga_bot_backend/platform/logger"
	"lechuga_bot_backend/platform/sanitize"
)

// QuestionBank provides ordinal access to the diagnostic questions.
type QuestionBank interface {
	QuestionCount(ctx context.Context) (int, error)
	QuestionByOrdinal(ctx context.Context, ordinal int) (repository.Question, error)
}

// Messenger is the outbound messaging surface the survey needs.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendButtons(ctx context.Context, chatID int64, text string, rows [][]messaging.Button) (int64, error)
	EditMessage(ctx context.Context, chatID, messageID int64, text string, rows [][]messaging.Button) error
}

// Callback data prefixes for survey keyboards.
const (
	answerCallbackPrefix   = "ans:"
	locationCallbackPrefix = "loc:"
)

// Engine drives the question sequence for one attempt: ask each question in
// order, skip questions with no answer options, then ask the cultivation
// location.
type Engine struct {
	store     *Store
	questions QuestionBank
	msg       Messenger
	log       *logger.Logger
}

// NewEngine creates a survey dialogue engine.
func NewEngine(store *Store, questions QuestionBank, msg Messenger, log *logger.Logger) *Engine {
	return &Engine{store: store, questions: questions, msg: msg, log: log}
}

// Start begins the survey for a freshly created session. With an empty
// question bank the location prompt is sent directly.
func (e *Engine) Start(ctx context.Context, userID int64) error {
	count, err := e.questions.QuestionCount(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindCapability, "question bank unavailable", err).WithOp("survey.Start")
	}

	e.store.Update(userID, func(s *Session) {
		s.QuestionCount = count
	})

	return e.askFrom(ctx, userID, 1)
}

// askFrom asks the first question at or after ordinal n that has answer
// options. Questions with an empty option set are skipped without recording
// an answer. Past the last question the location prompt is sent.
func (e *Engine) askFrom(ctx context.Context, userID int64, n int) error {
	sess, ok := e.store.Snapshot(userID)
	if !ok {
		return nil
	}

	for ; n <= sess.QuestionCount; n++ {
		question, err := e.questions.QuestionByOrdinal(ctx, n)
		if err != nil {
			return apperr.Wrap(apperr.KindCapability, "question bank unavailable", err).WithOp("survey.askFrom")
		}
		if len(question.Options) == 0 {
			e.log.Warn("question has no options, skipping", "ordinal", n)
			continue
		}
		return e.ask(ctx, sess.ChatID, userID, n, question)
	}

	return e.askLocation(ctx, sess.ChatID, userID)
}

func (e *Engine) ask(ctx context.Context, chatID, userID int64, n int, question repository.Question) error {
	sanitized := sanitize.DisplayText(question.Text)
	total := questionTotal(e.store, userID)
	text := fmt.Sprintf("Pregunta %d de %d\n%s\n\n%s", n, total, progressBar(n, total), sanitized)

	rows := make([][]messaging.Button, 0, len(question.Options))
	for _, opt := range question.Options {
		rows = append(rows, []messaging.Button{{
			Text: opt,
			Data: fmt.Sprintf("%s%d:%s", answerCallbackPrefix, n, opt),
		}})
	}

	messageID, err := e.msg.SendButtons(ctx, chatID, text, rows)
	if err != nil {
		return fmt.Errorf("send question %d: %w", n, err)
	}

	e.store.Update(userID, func(s *Session) {
		s.State = StateAwaitingQuestion
		s.Question = n
		s.PendingQuestionText = sanitized
		s.PendingMessageID = messageID
	})
	return nil
}

func (e *Engine) askLocation(ctx context.Context, chatID, userID int64) error {
	rows := [][]messaging.Button{
		{{Text: "Hidroponía", Data: locationCallbackPrefix + "1"}},
		{{Text: "Sustrato", Data: locationCallbackPrefix + "2"}},
	}

	messageID, err := e.msg.SendButtons(ctx, chatID, "¿Dónde está cultivada tu lechuga?", rows)
	if err != nil {
		return fmt.Errorf("send location prompt: %w", err)
	}

	e.store.Update(userID, func(s *Session) {
		s.State = StateAwaitingLocation
		s.Question = 0
		s.PendingQuestionText = ""
		s.PendingMessageID = messageID
	})
	return nil
}

// HandleAnswer records an answer to the pending question and advances.
// Stale answers (wrong ordinal, wrong state) are ignored.
func (e *Engine) HandleAnswer(ctx context.Context, userID int64, ordinal int, answer string) error {
	sess, ok := e.store.Snapshot(userID)
	if !ok || sess.State != StateAwaitingQuestion || sess.Question != ordinal {
		return nil
	}

	e.store.Update(userID, func(s *Session) {
		s.Answers[ordinal] = answer
		s.QuestionTexts[ordinal] = s.PendingQuestionText
	})

	// Freeze the answered question so its keyboard cannot be pressed twice.
	if sess.PendingMessageID != 0 {
		frozen := fmt.Sprintf("%s\n\nRespuesta: %s", sess.PendingQuestionText, answer)
		if err := e.msg.EditMessage(ctx, sess.ChatID, sess.PendingMessageID, frozen, nil); err != nil {
			e.log.Warn("failed to freeze answered question", "user_id", userID, "error", err)
		}
	}

	return e.askFrom(ctx, userID, ordinal+1)
}

// HandleLocation records the cultivation location choice and completes the
// survey. Returns true when the survey reached Complete.
func (e *Engine) HandleLocation(ctx context.Context, userID int64, choice string) (bool, error) {
	sess, ok := e.store.Snapshot(userID)
	if !ok || sess.State != StateAwaitingLocation {
		return false, nil
	}

	location, err := parseLocation(choice)
	if err != nil {
		return false, err
	}

	e.store.Update(userID, func(s *Session) {
		s.Location = location
		s.State = StateComplete
	})

	if sess.PendingMessageID != 0 {
		frozen := fmt.Sprintf("¿Dónde está cultivada tu lechuga?\n\nRespuesta: %s", location)
		if err := e.msg.EditMessage(ctx, sess.ChatID, sess.PendingMessageID, frozen, nil); err != nil {
			e.log.Warn("failed to freeze location prompt", "user_id", userID, "error", err)
		}
	}

	return true, nil
}

func parseLocation(choice string) (Location, error) {
	switch strings.TrimSpace(choice) {
	case "1":
		return LocationHydroponic, nil
	case "2":
		return LocationSubstrate, nil
	default:
		return LocationUnset, apperr.Input("unrecognized location choice " + strconv.Quote(choice))
	}
}

func questionTotal(store *Store, userID int64) int {
	if sess, ok := store.Snapshot(userID); ok {
		return sess.QuestionCount
	}
	return 0
}

// progressBar renders answered questions as filled markers, pending ones as
// empty. The current question counts as pending.
func progressBar(current, total int) string {
	var b strings.Builder
	for i := 1; i <= total; i++ {
		if i < current {
			b.WriteString("●")
		} else {
			b.WriteString("○")
		}
	}
	return b.String()
}
