package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// User is a stored account with the data the generators need.
type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	GitHubUsername string    `json:"github_username,omitempty"`
	GitHubToken    string    `json:"-"`
	ResumeText     string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// HasGitHub reports whether the user linked a GitHub account.
func (u *User) HasGitHub() bool {
	return u != nil && u.GitHubToken != ""
}

// HasResume reports whether the user uploaded a resume.
func (u *User) HasResume() bool {
	return u != nil && strings.TrimSpace(u.ResumeText) != ""
}

// CreateUser inserts a user and returns it with a fresh ID.
func (db *DB) CreateUser(ctx context.Context, name, email string) (*User, error) {
	u := &User{ID: uuid.NewString(), Name: name, Email: email}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO users (id, name, email) VALUES ($1, $2, $3)
		 RETURNING created_at, updated_at`,
		u.ID, name, email,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// GetUser loads a user by ID. A missing user returns nil, nil.
func (db *DB) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	var ghUser, ghToken, resume *string
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, email, github_username, github_token, resume_text, created_at, updated_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Name, &u.Email, &ghUser, &ghToken, &resume, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.GitHubUsername = deref(ghUser)
	u.GitHubToken = deref(ghToken)
	u.ResumeText = deref(resume)
	return &u, nil
}

// SetResumeText stores the extracted text of the user's resume.
func (db *DB) SetResumeText(ctx context.Context, userID, text string) error {
	return db.updateUser(ctx, "resume_text", userID, text)
}

// SetGitHub links a GitHub account to the user.
func (db *DB) SetGitHub(ctx context.Context, userID, username, token string) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE users SET github_username = $2, github_token = $3, updated_at = NOW() WHERE id = $1`,
		userID, nullIfEmpty(username), nullIfEmpty(token),
	)
	if err != nil {
		return fmt.Errorf("failed to link github: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

func (db *DB) updateUser(ctx context.Context, column, userID, value string) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE users SET `+column+` = $2, updated_at = NOW() WHERE id = $1`,
		userID, value,
	)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
