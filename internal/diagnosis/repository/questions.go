package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lechuga_bot_backend/platform/apperr"
)

const questionNotFoundMessage = "question not found"

// QuestionCount returns the number of questions in the bank.
func (r *Repo) QuestionCount(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM diagnostic_questions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return count, nil
}

// QuestionByOrdinal retrieves the question at a 1-indexed position.
func (r *Repo) QuestionByOrdinal(ctx context.Context, ordinal int) (Question, error) {
	query := `
        SELECT ordinal, text, options
        FROM diagnostic_questions
        WHERE ordinal = $1`

	var q Question
	if err := r.pool.QueryRow(ctx, query, ordinal).Scan(&q.Ordinal, &q.Text, &q.Options); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Question{}, apperr.NotFound(questionNotFoundMessage)
		}
		return Question{}, fmt.Errorf("get question %d: %w", ordinal, err)
	}
	return q, nil
}
