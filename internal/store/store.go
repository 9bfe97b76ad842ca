package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Training sample sources.
const (
	SourceDefault = "default"
	SourceAPI     = "api"
	SourceImport  = "import"
)

// TrainingSample is one labeled phrase in the classifier corpus
type TrainingSample struct {
	ID        int64     `json:"id,omitempty"`
	Text      string    `json:"text"`
	Label     string    `json:"label"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Utterance is one interpreted voice utterance from a session
type Utterance struct {
	ID                   int64     `json:"id,omitempty"`
	SessionID            string    `json:"session_id"`
	Raw                  string    `json:"raw"`
	Intent               string    `json:"intent"`
	Confidence           float64   `json:"confidence"`
	Action               string    `json:"action"`
	Expression           *string   `json:"expression"`
	ExpressionConfidence float64   `json:"expression_confidence"`
	CreatedAt            time.Time `json:"created_at,omitempty"`
}

func (s *Store) InsertTrainingSample(ctx context.Context, ts TrainingSample) (int64, error) {
	source := ts.Source
	if source == "" {
		source = SourceAPI
	}
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO training_samples (text, label, source)
		VALUES ($1, $2, $3)
		ON CONFLICT (text, label) DO UPDATE SET source = training_samples.source
		RETURNING id
	`, ts.Text, ts.Label, source).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert training sample: %w", err)
	}
	return id, nil
}

// InsertTrainingSamples inserts a batch in one round trip. Duplicate
// (text, label) pairs are kept once.
func (s *Store) InsertTrainingSamples(ctx context.Context, samples []TrainingSample, source string) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, ts := range samples {
		batch.Queue(`
			INSERT INTO training_samples (text, label, source)
			VALUES ($1, $2, $3)
			ON CONFLICT (text, label) DO NOTHING
		`, ts.Text, ts.Label, source)
	}
	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range samples {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("insert training samples: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func (s *Store) ListTrainingSamples(ctx context.Context) ([]TrainingSample, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, text, label, source, created_at
		FROM training_samples
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list training samples: %w", err)
	}
	defer rows.Close()

	var samples []TrainingSample
	for rows.Next() {
		var ts TrainingSample
		if err := rows.Scan(&ts.ID, &ts.Text, &ts.Label, &ts.Source, &ts.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan training sample: %w", err)
		}
		samples = append(samples, ts)
	}
	return samples, rows.Err()
}

func (s *Store) GetTrainingSample(ctx context.Context, id int64) (*TrainingSample, error) {
	var ts TrainingSample
	err := s.db.QueryRow(ctx, `
		SELECT id, text, label, source, created_at
		FROM training_samples
		WHERE id = $1
	`, id).Scan(&ts.ID, &ts.Text, &ts.Label, &ts.Source, &ts.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get training sample: %w", err)
	}
	return &ts, nil
}

func (s *Store) DeleteTrainingSample(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM training_samples WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete training sample: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) CountTrainingSamples(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM training_samples`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count training samples: %w", err)
	}
	return count, nil
}

func (s *Store) InsertUtterance(ctx context.Context, u Utterance) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO utterances (session_id, raw, intent, confidence, action, expression, expression_confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, u.SessionID, u.Raw, u.Intent, u.Confidence, u.Action, u.Expression, u.ExpressionConfidence)
	if err != nil {
		return fmt.Errorf("insert utterance: %w", err)
	}
	return nil
}

func (s *Store) ListUtterances(ctx context.Context, sessionID string, limit int) ([]Utterance, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, session_id, raw, intent, confidence, action, expression, expression_confidence, created_at
		FROM utterances
		WHERE ($1 = '' OR session_id = $1)
		ORDER BY id DESC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list utterances: %w", err)
	}
	defer rows.Close()

	var utterances []Utterance
	for rows.Next() {
		var u Utterance
		if err := rows.Scan(&u.ID, &u.SessionID, &u.Raw, &u.Intent, &u.Confidence,
			&u.Action, &u.Expression, &u.ExpressionConfidence, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan utterance: %w", err)
		}
		utterances = append(utterances, u)
	}
	return utterances, rows.Err()
}
