package message

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrThreadNotFound = errors.New("thread not found")
	ErrNotParticipant = errors.New("not a thread participant")
	ErrEmptyBody      = errors.New("message body is empty")
)

// Thread ties one request to one firm. A creator sees a thread per firm that
// redeemed their request.
type Thread struct {
	ID            string     `json:"id"`
	RequestID     string     `json:"request_id"`
	FirmID        string     `json:"firm_id"`
	FirmName      string     `json:"firm_name,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	LastMessage   *Message   `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

type Message struct {
	ID        string     `json:"id"`
	ThreadID  string     `json:"thread_id"`
	SenderID  int64      `json:"sender_id"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"created_at"`
	SeenAt    *time.Time `json:"seen_at,omitempty"`
}

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// ListThreads returns the creator's threads, newest activity first, each with
// its latest message inlined.
func (s *Service) ListThreads(ctx context.Context, userID int64) ([]Thread, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.request_id, t.firm_id, COALESCE(f.name, ''), t.created_at,
		       m.id, m.sender_id, m.body, m.created_at, m.seen_at
		FROM threads t
		JOIN furniture_requests r ON r.id = t.request_id
		LEFT JOIN firms f ON f.id = t.firm_id
		LEFT JOIN LATERAL (
			SELECT id, sender_id, body, created_at, seen_at
			FROM messages
			WHERE thread_id = t.id
			ORDER BY created_at DESC
			LIMIT 1
		) m ON true
		WHERE r.creator_id = $1
		ORDER BY COALESCE(m.created_at, t.created_at) DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query threads: %w", err)
	}
	defer rows.Close()

	threads := make([]Thread, 0)
	for rows.Next() {
		var t Thread
		var msgID sql.NullString
		var senderID sql.NullInt64
		var body sql.NullString
		var createdAt, seenAt sql.NullTime
		if err := rows.Scan(&t.ID, &t.RequestID, &t.FirmID, &t.FirmName, &t.CreatedAt,
			&msgID, &senderID, &body, &createdAt, &seenAt); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		if msgID.Valid {
			m := Message{
				ID:        msgID.String,
				ThreadID:  t.ID,
				SenderID:  senderID.Int64,
				Body:      body.String,
				CreatedAt: createdAt.Time,
			}
			if seenAt.Valid {
				m.SeenAt = &seenAt.Time
			}
			t.LastMessage = &m
			t.LastMessageAt = &m.CreatedAt
		}
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threads: %w", err)
	}
	return threads, nil
}

// ListMessages returns a thread's messages oldest first.
func (s *Service) ListMessages(ctx context.Context, userID int64, threadID string) ([]Message, error) {
	if err := s.checkParticipant(ctx, userID, threadID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, thread_id, sender_id, body, created_at, seen_at
		FROM messages
		WHERE thread_id = $1
		ORDER BY created_at
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	out := make([]Message, 0)
	for rows.Next() {
		var m Message
		var seenAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.SenderID, &m.Body, &m.CreatedAt, &seenAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if seenAt.Valid {
			m.SeenAt = &seenAt.Time
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}

func (s *Service) Post(ctx context.Context, userID int64, threadID, body string) (*Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}
	if err := s.checkParticipant(ctx, userID, threadID); err != nil {
		return nil, err
	}

	var m Message
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO messages (id, thread_id, sender_id, body, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, thread_id, sender_id, body, created_at
	`, uuid.NewString(), threadID, userID, body)
	if err := row.Scan(&m.ID, &m.ThreadID, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return &m, nil
}

// MarkSeen stamps every unseen message from the other party.
func (s *Service) MarkSeen(ctx context.Context, userID int64, threadID string) error {
	if err := s.checkParticipant(ctx, userID, threadID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE messages
		SET seen_at = now()
		WHERE thread_id = $1 AND sender_id <> $2 AND seen_at IS NULL
	`, threadID, userID)
	if err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	return nil
}

// checkParticipant admits the request creator and members of the thread's
// firm.
func (s *Service) checkParticipant(ctx context.Context, userID int64, threadID string) error {
	var ok bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1
			FROM threads t
			JOIN furniture_requests r ON r.id = t.request_id
			WHERE t.id = $1
			  AND (r.creator_id = $2
			       OR EXISTS(SELECT 1 FROM firm_members fm WHERE fm.firm_id = t.firm_id AND fm.user_id = $2))
		)
	`, threadID, userID).Scan(&ok)
	if err != nil {
		return fmt.Errorf("check participant: %w", err)
	}
	if !ok {
		var exists bool
		if err := s.db.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM threads WHERE id = $1)
		`, threadID).Scan(&exists); err != nil {
			return fmt.Errorf("check thread: %w", err)
		}
		if !exists {
			return ErrThreadNotFound
		}
		return ErrNotParticipant
	}
	return nil
}
