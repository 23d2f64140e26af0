package store

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"paddy-doctor/api/internal/diagnose"
	"paddy-doctor/api/internal/pipeline"
)

var ErrNotFound = sql.ErrNoRows

// SubmissionRepo: журнал отправок. Хранит только метаданные: ни картинку,
// ни результат классификации, и никогда не используется как кэш.
type SubmissionRepo struct{ DB *sql.DB }

func NewSubmissionRepo(db *sql.DB) *SubmissionRepo { return &SubmissionRepo{DB: db} }

type Submission struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	Engine        string    `json:"engine"`
	Model         string    `json:"model"`
	PromptVersion string    `json:"prompt_version"`
	ImageHash     string    `json:"image_sha256"`
	MIME          string    `json:"mime"`
	State         string    `json:"state"`
	ErrorKind     string    `json:"error_kind,omitempty"`
	DurationMS    int64     `json:"duration_ms"`
}

const schema = `
create table if not exists submissions (
  id             uuid primary key,
  created_at     timestamptz not null default now(),
  engine         text not null default '',
  model          text not null default '',
  prompt_version text not null default '',
  image_hash     text not null default '',
  mime           text not null default '',
  state          text not null,
  error_kind     text not null default '',
  duration_ms    bigint not null default 0
);
create index if not exists submissions_created_at_idx on submissions (created_at);`

func (r *SubmissionRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, schema)
	return err
}

// FromOutcome maps a finished pipeline run to its audit row.
func FromOutcome(o *pipeline.Outcome) Submission {
	return Submission{
		ID:            o.ID,
		CreatedAt:     o.StartedAt,
		Engine:        o.Engine,
		Model:         o.Model,
		PromptVersion: o.PromptVersion,
		ImageHash:     o.ImageHash(),
		MIME:          o.Request.MIME,
		State:         string(o.State),
		ErrorKind:     diagnose.ErrorKind(o.Err),
		DurationMS:    o.Duration.Milliseconds(),
	}
}

// Record implements pipeline.Recorder.
func (r *SubmissionRepo) Record(ctx context.Context, o *pipeline.Outcome) error {
	if !o.State.Terminal() {
		return errors.New("submission is not finished")
	}
	return r.Insert(ctx, FromOutcome(o))
}

func (r *SubmissionRepo) Insert(ctx context.Context, s Submission) error {
	const q = `
insert into submissions (
  id, created_at, engine, model, prompt_version,
  image_hash, mime, state, error_kind, duration_ms
) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := r.DB.ExecContext(ctx, q,
		s.ID, s.CreatedAt, s.Engine, s.Model, s.PromptVersion,
		s.ImageHash, s.MIME, s.State, s.ErrorKind, s.DurationMS,
	)
	return err
}

// Get returns ErrNotFound for unknown ids, including ones that are not a uuid.
func (r *SubmissionRepo) Get(ctx context.Context, id string) (*Submission, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	const q = `
select id, created_at, engine, model, prompt_version,
       image_hash, mime, state, error_kind, duration_ms
from submissions
where id = $1`
	var s Submission
	err = r.DB.QueryRowContext(ctx, q, u.String()).Scan(
		&s.ID, &s.CreatedAt, &s.Engine, &s.Model, &s.PromptVersion,
		&s.ImageHash, &s.MIME, &s.State, &s.ErrorKind, &s.DurationMS,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CountByState: сводка для /v1/stats.
func (r *SubmissionRepo) CountByState(ctx context.Context, since time.Time) (map[string]int64, error) {
	const q = `select state, count(*) from submissions where created_at >= $1 group by state`
	rows, err := r.DB.QueryContext(ctx, q, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var (
			state string
			n     int64
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		out[state] = n
	}
	return out, rows.Err()
}

// PurgeOlderThan удаляет старые записи, чтобы не раздувать БД.
func (r *SubmissionRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	const q = `delete from submissions where created_at < $1`
	res, err := r.DB.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}

// RunRetention периодически чистит журнал; блокируется до отмены ctx.
func (r *SubmissionRepo) RunRetention(ctx context.Context, every, olderThan time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		n, err := r.PurgeOlderThan(ctx, olderThan)
		if err != nil {
			log.Printf("purge submissions: %v", err)
		} else if n > 0 {
			log.Printf("purged %d submissions older than %v", n, olderThan)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
