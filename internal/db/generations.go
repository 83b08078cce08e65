package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DefaultListLimit caps ListGenerations when no limit is given.
const DefaultListLimit = 20

// GenerationInput is one generated document to record.
type GenerationInput struct {
	UserID         string
	GenerationType string
	CompanyName    string
	JobTitle       string
	Content        string
	Score          *float64
	Payload        any
}

// Generation is a stored generation record.
type Generation struct {
	ID             uuid.UUID       `json:"id"`
	UserID         string          `json:"user_id"`
	GenerationType string          `json:"generation_type"`
	CompanyName    string          `json:"company_name"`
	JobTitle       string          `json:"job_title"`
	Content        string          `json:"content"`
	Score          *float64        `json:"score,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// SaveGeneration stores a generation and returns its ID.
func (db *DB) SaveGeneration(ctx context.Context, in GenerationInput) (uuid.UUID, error) {
	if in.UserID == "" || in.GenerationType == "" {
		return uuid.Nil, fmt.Errorf("user id and generation type are required")
	}
	payload, err := encodePayload(in.Payload)
	if err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	_, err = db.pool.Exec(ctx,
		`INSERT INTO generations (id, user_id, generation_type, company_name, job_title, content, score, payload)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, in.UserID, in.GenerationType, in.CompanyName, in.JobTitle, in.Content, in.Score, payload,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to save generation: %w", err)
	}
	return id, nil
}

// GetGeneration loads one generation. A missing record returns nil, nil.
func (db *DB) GetGeneration(ctx context.Context, id uuid.UUID) (*Generation, error) {
	var g Generation
	err := db.pool.QueryRow(ctx,
		`SELECT id, user_id, generation_type, company_name, job_title, content, score, payload, created_at
		 FROM generations WHERE id = $1`,
		id,
	).Scan(&g.ID, &g.UserID, &g.GenerationType, &g.CompanyName, &g.JobTitle, &g.Content, &g.Score, &g.Payload, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get generation: %w", err)
	}
	return &g, nil
}

// ListGenerations returns a user's most recent generations.
func (db *DB) ListGenerations(ctx context.Context, userID string, limit int) ([]Generation, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, user_id, generation_type, company_name, job_title, content, score, payload, created_at
		 FROM generations WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	defer rows.Close()

	var out []Generation
	for rows.Next() {
		var g Generation
		if err := rows.Scan(&g.ID, &g.UserID, &g.GenerationType, &g.CompanyName, &g.JobTitle, &g.Content, &g.Score, &g.Payload, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan generation: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	return out, nil
}

func encodePayload(payload any) ([]byte, error) {
	if payload == nil {
		return nil, nil
	}
	if raw, ok := payload.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generation payload: %w", err)
	}
	return data, nil
}
