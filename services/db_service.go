package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/umassos/openwhisk/models"

	_ "github.com/lib/pq"
)

// Sentinel errors used by the catalog resolver to classify fetch failures.
var (
	// ErrActionNotFound: no catalog document for the requested
	// (namespace, name, revision).
	ErrActionNotFound = errors.New("action not found")
	// ErrActionMismatch: a document exists but could not be read as an
	// action (corrupt row, schema skew).
	ErrActionMismatch = errors.New("action document mismatch")
)

type DBService struct {
	db *sql.DB
}

func NewDBService(host string, port int, user, password, dbname string) (*DBService, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &DBService{db: db}, nil
}

func (s *DBService) Close() error {
	return s.db.Close()
}

// InitSchema creates tables if they don't exist
func (s *DBService) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS actions (
		id BIGSERIAL PRIMARY KEY,
		namespace VARCHAR(255) NOT NULL,
		name VARCHAR(255) NOT NULL,
		revision VARCHAR(64) NOT NULL,
		runtime VARCHAR(50) NOT NULL DEFAULT '',
		code_key TEXT NOT NULL DEFAULT '',
		memory_mb INTEGER NOT NULL DEFAULT 256,
		timeout_ms INTEGER NOT NULL DEFAULT 60000,
		annotations JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (namespace, name, revision)
	);

	CREATE INDEX IF NOT EXISTS idx_actions_namespace_name ON actions(namespace, name, created_at DESC);

	CREATE TABLE IF NOT EXISTS activations (
		id BIGSERIAL PRIMARY KEY,
		activation_id VARCHAR(64) NOT NULL UNIQUE,
		transaction_id VARCHAR(64),
		namespace VARCHAR(255) NOT NULL,
		subject VARCHAR(255) NOT NULL,
		action_name VARCHAR(512) NOT NULL,
		status VARCHAR(30) NOT NULL,
		response JSONB,
		logs JSONB,
		start_at TIMESTAMPTZ NOT NULL,
		end_at TIMESTAMPTZ NOT NULL,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_activations_namespace ON activations(namespace, start_at DESC);

	CREATE TABLE IF NOT EXISTS namespace_blacklist (
		namespace VARCHAR(255) PRIMARY KEY,
		reason TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// GetAction fetches one catalog entry. An empty revision selects the newest
// entry for (namespace, name); a concrete revision selects exactly that
// immutable document. Row-shape problems surface as ErrActionMismatch so the
// resolver can tell catalog corruption apart from connectivity failures.
func (s *DBService) GetAction(ctx context.Context, namespace, name, revision string) (*models.Action, error) {
	query := `
		SELECT id, namespace, name, revision, runtime, code_key, memory_mb, timeout_ms, annotations, created_at
		FROM actions WHERE namespace = $1 AND name = $2
	`
	args := []interface{}{namespace, name}
	if revision == "" {
		query += ` ORDER BY created_at DESC LIMIT 1`
	} else {
		query += ` AND revision = $3`
		args = append(args, revision)
	}

	action := &models.Action{}
	var annotationsJSON []byte
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&action.ID, &action.Namespace, &action.Name, &action.Revision,
		&action.Runtime, &action.CodeKey, &action.MemoryMB, &action.TimeoutMs,
		&annotationsJSON, &action.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrActionNotFound
	}
	if err != nil {
		if strings.Contains(err.Error(), "Scan error") {
			return nil, fmt.Errorf("%w: %v", ErrActionMismatch, err)
		}
		return nil, err
	}

	if annotationsJSON != nil {
		if err := json.Unmarshal(annotationsJSON, &action.Annotations); err != nil {
			return nil, fmt.Errorf("%w: unreadable annotations: %v", ErrActionMismatch, err)
		}
	}

	return action, nil
}

// InsertActivation durably persists one terminal activation record. The
// insert is idempotent on activation_id since the feed is at-least-once.
func (s *DBService) InsertActivation(ctx context.Context, act *models.Activation) error {
	responseJSON, _ := json.Marshal(act.Response)
	logsJSON, _ := json.Marshal(act.Logs)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activations (activation_id, transaction_id, namespace, subject, action_name, status, response, logs, start_at, end_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (activation_id) DO NOTHING
	`, act.ActivationID, act.TransactionID, act.Namespace, act.Subject, act.ActionName,
		act.Response.Status, responseJSON, logsJSON, act.Start, act.End, act.DurationMs)

	return err
}

// Record implements ActivationRecorder for the completion reporter.
func (s *DBService) Record(ctx context.Context, act *models.Activation) error {
	return s.InsertActivation(ctx, act)
}

// GetActivation retrieves an activation record by its activation id.
func (s *DBService) GetActivation(ctx context.Context, activationID string) (*models.Activation, error) {
	act := &models.Activation{}
	var responseJSON, logsJSON []byte
	var transactionID sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT activation_id, transaction_id, namespace, subject, action_name, response, logs, start_at, end_at, duration_ms
		FROM activations WHERE activation_id = $1
	`, activationID).Scan(&act.ActivationID, &transactionID, &act.Namespace, &act.Subject,
		&act.ActionName, &responseJSON, &logsJSON, &act.Start, &act.End, &act.DurationMs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if transactionID.Valid {
		act.TransactionID = transactionID.String
	}
	if responseJSON != nil {
		json.Unmarshal(responseJSON, &act.Response)
	}
	if logsJSON != nil {
		json.Unmarshal(logsJSON, &act.Logs)
	}

	return act, nil
}

// ListActivations returns recent activation records for a namespace.
func (s *DBService) ListActivations(ctx context.Context, namespace string, limit int) ([]models.Activation, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT activation_id, transaction_id, namespace, subject, action_name, response, start_at, end_at, duration_ms
		FROM activations
		WHERE namespace = $1
		ORDER BY start_at DESC
		LIMIT $2
	`, namespace, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activations []models.Activation
	for rows.Next() {
		var act models.Activation
		var responseJSON []byte
		var transactionID sql.NullString

		err := rows.Scan(&act.ActivationID, &transactionID, &act.Namespace, &act.Subject,
			&act.ActionName, &responseJSON, &act.Start, &act.End, &act.DurationMs)
		if err != nil {
			return nil, err
		}

		if transactionID.Valid {
			act.TransactionID = transactionID.String
		}
		if responseJSON != nil {
			json.Unmarshal(responseJSON, &act.Response)
		}

		activations = append(activations, act)
	}

	return activations, rows.Err()
}

// ListBlacklistedNamespaces returns every blacklisted namespace.
func (s *DBService) ListBlacklistedNamespaces(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT namespace FROM namespace_blacklist`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var namespaces []string
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			return nil, err
		}
		namespaces = append(namespaces, ns)
	}

	return namespaces, rows.Err()
}

// AddBlacklistedNamespace inserts a namespace into the blacklist.
func (s *DBService) AddBlacklistedNamespace(ctx context.Context, namespace, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO namespace_blacklist (namespace, reason)
		VALUES ($1, $2)
		ON CONFLICT (namespace) DO UPDATE SET reason = $2
	`, namespace, reason)
	return err
}

// RemoveBlacklistedNamespace deletes a namespace from the blacklist.
func (s *DBService) RemoveBlacklistedNamespace(ctx context.Context, namespace string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM namespace_blacklist WHERE namespace = $1`, namespace)
	return err
}
