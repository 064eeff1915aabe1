// Package store manages chat persistence backed by SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/brickchat/backend/internal/model"
	"github.com/brickchat/backend/pkg/metrics"
)

// Store manages chat persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the chat database and verifies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureThread creates the thread if it does not exist yet. Reusing an
// existing thread id is not an error.
func (s *Store) EnsureThread(ctx context.Context, threadID, userID string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO chat_threads (thread_id, user_id, created_at, updated_at)
         VALUES (?, ?, ?, ?)`,
		threadID, userID, now, now,
	)
	if err != nil {
		return fmt.Errorf("ensure thread: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		metrics.RecordThread()
	}
	return nil
}

// SaveMessage persists one message and touches the parent thread. Content is
// unicode-normalized at write time. Returns the new message id.
func (s *Store) SaveMessage(ctx context.Context, threadID, userID string, role model.Role, content, agentEndpoint string, metadata map[string]any) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate message id: %w", err)
	}

	var metaJSON sql.NullString
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err != nil {
			return "", fmt.Errorf("marshal message metadata: %w", err)
		}
		metaJSON = sql.NullString{String: string(b), Valid: true}
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin save tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO chat_messages (
            message_id, thread_id, user_id, message_role,
            message_content, agent_endpoint, metadata, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), threadID, userID, string(role),
		NormalizeUnicode(content), agentEndpoint, metaJSON, now,
	)
	if err != nil {
		return "", fmt.Errorf("insert message: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE chat_threads SET updated_at = ? WHERE thread_id = ?`,
		now, threadID,
	); err != nil {
		return "", fmt.Errorf("touch thread: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit save tx: %w", err)
	}

	metrics.RecordMessage(string(role))
	return id.String(), nil
}

// ThreadMessages returns all messages of a thread in chronological order,
// with any recorded feedback attached.
func (s *Store) ThreadMessages(ctx context.Context, threadID string) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.message_id, m.thread_id, m.user_id, m.message_role,
                m.message_content, m.agent_endpoint, m.metadata, m.created_at,
                f.feedback_type
         FROM chat_messages m
         LEFT JOIN message_feedback f
           ON f.message_id = m.message_id AND f.thread_id = m.thread_id
         WHERE m.thread_id = ?
         ORDER BY m.created_at ASC`,
		threadID,
	)
	if err != nil {
		return nil, fmt.Errorf("query thread messages: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var (
			m         model.Message
			role      string
			endpoint  sql.NullString
			metaJSON  sql.NullString
			createdAt string
			feedback  sql.NullString
		)
		if err := rows.Scan(&m.MessageID, &m.ThreadID, &m.UserID, &role,
			&m.Content, &endpoint, &metaJSON, &createdAt, &feedback); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = model.Role(role)
		m.AgentEndpoint = endpoint.String
		m.FeedbackType = feedback.String
		if metaJSON.Valid {
			if err := json.Unmarshal([]byte(metaJSON.String), &m.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal message metadata: %w", err)
			}
		}
		m.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse message timestamp: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// UserThreads returns the user's threads, most recently active first, each
// with its latest message and the first user message for display as a title.
func (s *Store) UserThreads(ctx context.Context, userID string) ([]model.ThreadSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.thread_id, t.created_at, t.updated_at,
                (SELECT m.message_content FROM chat_messages m
                 WHERE m.thread_id = t.thread_id
                 ORDER BY m.created_at DESC LIMIT 1),
                (SELECT m.created_at FROM chat_messages m
                 WHERE m.thread_id = t.thread_id
                 ORDER BY m.created_at DESC LIMIT 1),
                (SELECT m.message_role FROM chat_messages m
                 WHERE m.thread_id = t.thread_id
                 ORDER BY m.created_at DESC LIMIT 1),
                (SELECT m.agent_endpoint FROM chat_messages m
                 WHERE m.thread_id = t.thread_id
                 ORDER BY m.created_at DESC LIMIT 1),
                (SELECT m.message_content FROM chat_messages m
                 WHERE m.thread_id = t.thread_id AND m.message_role = 'user'
                 ORDER BY m.created_at ASC LIMIT 1)
         FROM chat_threads t
         WHERE t.user_id = ?
         ORDER BY t.updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query user threads: %w", err)
	}
	defer rows.Close()

	var threads []model.ThreadSummary
	for rows.Next() {
		var (
			t                    model.ThreadSummary
			createdAt, updatedAt string
			lastMsg, lastTime    sql.NullString
			lastRole, endpoint   sql.NullString
			firstUser            sql.NullString
		)
		if err := rows.Scan(&t.ThreadID, &createdAt, &updatedAt,
			&lastMsg, &lastTime, &lastRole, &endpoint, &firstUser); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		if t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse thread timestamp: %w", err)
		}
		if t.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
			return nil, fmt.Errorf("parse thread timestamp: %w", err)
		}
		t.LastMessage = lastMsg.String
		t.LastMessageRole = lastRole.String
		t.AgentEndpoint = endpoint.String
		t.FirstUserMessage = firstUser.String
		if lastTime.Valid {
			ts, err := time.Parse(time.RFC3339Nano, lastTime.String)
			if err != nil {
				return nil, fmt.Errorf("parse message timestamp: %w", err)
			}
			t.LastMessageTime = &ts
		}
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

// UpdateFeedback records thumb feedback on a message. feedbackType "none"
// removes any previously recorded feedback; "up" and "down" upsert.
func (s *Store) UpdateFeedback(ctx context.Context, userID, messageID, threadID, feedbackType string) error {
	if feedbackType == "none" {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM message_feedback
             WHERE user_id = ? AND message_id = ? AND thread_id = ?`,
			userID, messageID, threadID,
		)
		if err != nil {
			return fmt.Errorf("delete feedback: %w", err)
		}
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO message_feedback (user_id, message_id, thread_id, feedback_type, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(user_id, message_id, thread_id)
         DO UPDATE SET feedback_type = excluded.feedback_type, updated_at = excluded.updated_at`,
		userID, messageID, threadID, feedbackType, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert feedback: %w", err)
	}
	return nil
}
