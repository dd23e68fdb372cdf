package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"mark-engine/api/internal/marking/types"
)

// AttemptRepo is the append-only grading history. Attempts are never updated;
// a retry is a new attempt.
type AttemptRepo interface {
	Append(ctx context.Context, res types.MarkingResult) (types.Attempt, error)
	List(ctx context.Context, questionLegacyID string) ([]types.Attempt, error)
}

// Schema creates the attempts table when missing.
const Schema = `
create table if not exists question_attempts (
  id                 uuid primary key,
  question_legacy_id text        not null,
  user_mark          double precision not null,
  mark_max           integer     not null,
  result_json        jsonb       not null,
  created_at         timestamptz not null default now()
);
create index if not exists question_attempts_question_idx
  on question_attempts (question_legacy_id, created_at);`

type PGAttemptRepo struct{ DB *sql.DB }

func NewPGAttemptRepo(db *sql.DB) *PGAttemptRepo { return &PGAttemptRepo{DB: db} }

func (r *PGAttemptRepo) Migrate(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, Schema)
	return err
}

func newAttempt(res types.MarkingResult) (types.Attempt, error) {
	if strings.TrimSpace(res.QuestionLegacyID) == "" {
		return types.Attempt{}, fmt.Errorf("attempt: questionLegacyId is empty")
	}
	return types.Attempt{
		ID:               uuid.NewString(),
		QuestionLegacyID: res.QuestionLegacyID,
		CreatedAt:        time.Now().UTC(),
		Result:           res,
	}, nil
}

func (r *PGAttemptRepo) Append(ctx context.Context, res types.MarkingResult) (types.Attempt, error) {
	a, err := newAttempt(res)
	if err != nil {
		return types.Attempt{}, err
	}
	js, err := json.Marshal(res)
	if err != nil {
		return types.Attempt{}, fmt.Errorf("attempt: %w", err)
	}
	const q = `
insert into question_attempts (id, question_legacy_id, user_mark, mark_max, result_json, created_at)
values ($1,$2,$3,$4,$5,$6)`
	if _, err := r.DB.ExecContext(ctx, q, a.ID, a.QuestionLegacyID, res.UserMark, res.MarkMax, js, a.CreatedAt); err != nil {
		return types.Attempt{}, err
	}
	return a, nil
}

// List returns attempts oldest first.
func (r *PGAttemptRepo) List(ctx context.Context, questionLegacyID string) ([]types.Attempt, error) {
	const q = `
select id, question_legacy_id, result_json, created_at
from question_attempts
where question_legacy_id = $1
order by created_at asc, id asc`
	rows, err := r.DB.QueryContext(ctx, q, questionLegacyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]types.Attempt, 0)
	for rows.Next() {
		var (
			a  types.Attempt
			js []byte
		)
		if err := rows.Scan(&a.ID, &a.QuestionLegacyID, &js, &a.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(js, &a.Result); err != nil {
			return nil, fmt.Errorf("attempt %s: bad result_json: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
