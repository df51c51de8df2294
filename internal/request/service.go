package request

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"mobiq/internal/questionnaire"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("request not found")
	ErrForbidden         = errors.New("request belongs to another user")
	ErrHomeNotFound      = errors.New("home not found")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrNoAnswers         = errors.New("questionnaire session has no answers")
)

type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusOpen     Status = "OPEN"
	StatusRedeemed Status = "REDEEMED"
	StatusQuoted   Status = "QUOTED"
	StatusAccepted Status = "ACCEPTED"
	StatusDeclined Status = "DECLINED"
	StatusExpired  Status = "EXPIRED"
)

// allowedTransitions is the request lifecycle. Terminal states have no
// outgoing edges.
var allowedTransitions = map[Status][]Status{
	StatusDraft:    {StatusOpen},
	StatusOpen:     {StatusRedeemed, StatusExpired},
	StatusRedeemed: {StatusQuoted, StatusExpired},
	StatusQuoted:   {StatusAccepted, StatusDeclined, StatusExpired},
}

type CategoryLine struct {
	CategoryID string `json:"category_id"`
	Name       string `json:"name,omitempty"`
	Quantity   int    `json:"quantity"`
}

type Answer struct {
	InstanceID string                    `json:"instance_id"`
	QuestionID string                    `json:"question_id"`
	CategoryID string                    `json:"category_id"`
	Value      questionnaire.AnswerValue `json:"value"`
}

type FurnitureRequest struct {
	ID         string         `json:"id"`
	CreatorID  int64          `json:"creator_id"`
	HomeID     string         `json:"home_id"`
	HomeName   string         `json:"home_name,omitempty"`
	Status     Status         `json:"status"`
	Lang       string         `json:"lang"`
	Categories []CategoryLine `json:"categories,omitempty"`
	Answers    []Answer       `json:"answers,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty"`
}

// answerSource hands over a finished questionnaire session's answers.
type answerSource interface {
	ExportAnswers(userID int64, sessionID string) (*questionnaire.Export, error)
	Discard(userID int64, sessionID string) error
}

type Service struct {
	db      *sql.DB
	answers answerSource
	openTTL time.Duration
}

func NewService(db *sql.DB, answers answerSource, openTTL time.Duration) *Service {
	if openTTL <= 0 {
		openTTL = 30 * 24 * time.Hour
	}
	return &Service{db: db, answers: answers, openTTL: openTTL}
}

// CreateFromSession persists a completed wizard session as a draft request.
// The request row, its category lines and every answer land in one
// transaction; the in-memory session is discarded only after commit.
func (s *Service) CreateFromSession(ctx context.Context, userID int64, sessionID string) (*FurnitureRequest, error) {
	export, err := s.answers.ExportAnswers(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if len(export.Answers) == 0 {
		return nil, ErrNoAnswers
	}
	if err := s.checkHomeOwner(ctx, userID, export.HomeID); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id := uuid.NewString()
	var created FurnitureRequest
	row := tx.QueryRowContext(ctx, `
		INSERT INTO furniture_requests (id, creator_id, home_id, status, lang, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING id, creator_id, home_id, status, lang, created_at, updated_at
	`, id, userID, export.HomeID, StatusDraft, export.Lang)
	if err := row.Scan(&created.ID, &created.CreatorID, &created.HomeID, &created.Status, &created.Lang, &created.CreatedAt, &created.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert request: %w", err)
	}

	for i, c := range export.Categories {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO request_category_lines (request_id, category_id, quantity, position)
			VALUES ($1, $2, $3, $4)
		`, id, c.CategoryID, c.Quantity, i); err != nil {
			return nil, fmt.Errorf("insert category line: %w", err)
		}
		created.Categories = append(created.Categories, CategoryLine{CategoryID: c.CategoryID, Quantity: c.Quantity})
	}

	for _, a := range export.Answers {
		raw, err := json.Marshal(a.Value)
		if err != nil {
			return nil, fmt.Errorf("encode answer %s/%s: %w", a.InstanceID, a.QuestionID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO request_answers (id, request_id, instance_id, question_id, category_id, value, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())
		`, uuid.NewString(), id, a.InstanceID, a.QuestionID, a.CategoryID, raw); err != nil {
			return nil, fmt.Errorf("insert answer: %w", err)
		}
		created.Answers = append(created.Answers, Answer{
			InstanceID: a.InstanceID,
			QuestionID: a.QuestionID,
			CategoryID: a.CategoryID,
			Value:      a.Value,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create: %w", err)
	}

	_ = s.answers.Discard(userID, sessionID)
	return &created, nil
}

func (s *Service) ListByCreator(ctx context.Context, userID int64) ([]FurnitureRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.creator_id, r.home_id, COALESCE(h.name, ''), r.status, r.lang,
		       r.created_at, r.updated_at, r.expires_at
		FROM furniture_requests r
		LEFT JOIN homes h ON h.id = r.home_id
		WHERE r.creator_id = $1
		ORDER BY r.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	out := make([]FurnitureRequest, 0)
	for rows.Next() {
		var r FurnitureRequest
		var expires sql.NullTime
		if err := rows.Scan(&r.ID, &r.CreatorID, &r.HomeID, &r.HomeName, &r.Status, &r.Lang, &r.CreatedAt, &r.UpdatedAt, &expires); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		if expires.Valid {
			r.ExpiresAt = &expires.Time
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	lines, err := s.categoryLinesByCreator(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Categories = lines[out[i].ID]
	}
	return out, nil
}

// Get returns the full request with category lines and answers. Only the
// creator may read it here; firm-side reads go through assignments.
func (s *Service) Get(ctx context.Context, userID int64, id string) (*FurnitureRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT r.id, r.creator_id, r.home_id, COALESCE(h.name, ''), r.status, r.lang,
		       r.created_at, r.updated_at, r.expires_at
		FROM furniture_requests r
		LEFT JOIN homes h ON h.id = r.home_id
		WHERE r.id = $1
	`, id)

	var r FurnitureRequest
	var expires sql.NullTime
	if err := row.Scan(&r.ID, &r.CreatorID, &r.HomeID, &r.HomeName, &r.Status, &r.Lang, &r.CreatedAt, &r.UpdatedAt, &expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query request: %w", err)
	}
	if r.CreatorID != userID {
		return nil, ErrForbidden
	}
	if expires.Valid {
		r.ExpiresAt = &expires.Time
	}

	lineRows, err := s.db.QueryContext(ctx, `
		SELECT l.category_id, COALESCE(c.name, ''), l.quantity
		FROM request_category_lines l
		LEFT JOIN request_categories c ON c.id = l.category_id AND c.lang = $2
		WHERE l.request_id = $1
		ORDER BY l.position
	`, id, r.Lang)
	if err != nil {
		return nil, fmt.Errorf("query category lines: %w", err)
	}
	defer lineRows.Close()
	for lineRows.Next() {
		var l CategoryLine
		if err := lineRows.Scan(&l.CategoryID, &l.Name, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scan category line: %w", err)
		}
		r.Categories = append(r.Categories, l)
	}
	if err := lineRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category lines: %w", err)
	}

	answerRows, err := s.db.QueryContext(ctx, `
		SELECT instance_id, question_id, category_id, value
		FROM request_answers
		WHERE request_id = $1
		ORDER BY instance_id, question_id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer answerRows.Close()
	for answerRows.Next() {
		var a Answer
		var raw []byte
		if err := answerRows.Scan(&a.InstanceID, &a.QuestionID, &a.CategoryID, &raw); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		if err := json.Unmarshal(raw, &a.Value); err != nil {
			return nil, fmt.Errorf("decode answer %s/%s: %w", a.InstanceID, a.QuestionID, err)
		}
		r.Answers = append(r.Answers, a)
	}
	if err := answerRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers: %w", err)
	}
	return &r, nil
}

// Publish moves a draft to OPEN and stamps the expiry window.
func (s *Service) Publish(ctx context.Context, userID int64, id string) (*FurnitureRequest, error) {
	return s.transition(ctx, userID, id, StatusOpen, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE furniture_requests SET expires_at = $2 WHERE id = $1
		`, id, time.Now().Add(s.openTTL))
		return err
	})
}

// UpdateStatus applies one creator-side lifecycle transition.
func (s *Service) UpdateStatus(ctx context.Context, userID int64, id string, next Status) (*FurnitureRequest, error) {
	return s.transition(ctx, userID, id, next, nil)
}

func (s *Service) transition(ctx context.Context, userID int64, id string, next Status, extra func(tx *sql.Tx) error) (*FurnitureRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transition tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var creatorID int64
	var current Status
	row := tx.QueryRowContext(ctx, `
		SELECT creator_id, status FROM furniture_requests WHERE id = $1 FOR UPDATE
	`, id)
	if err := row.Scan(&creatorID, &current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock request: %w", err)
	}
	if creatorID != userID {
		return nil, ErrForbidden
	}
	if !transitionAllowed(current, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE furniture_requests SET status = $2, updated_at = now() WHERE id = $1
	`, id, next); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if extra != nil {
		if err := extra(tx); err != nil {
			return nil, fmt.Errorf("transition side effect: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}
	return s.Get(ctx, userID, id)
}

func transitionAllowed(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s *Service) checkHomeOwner(ctx context.Context, userID int64, homeID string) error {
	if strings.TrimSpace(homeID) == "" {
		return ErrHomeNotFound
	}
	var ownerID int64
	err := s.db.QueryRowContext(ctx, `
		SELECT owner_id FROM homes WHERE id = $1 AND deleted_at IS NULL
	`, homeID).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrHomeNotFound
	}
	if err != nil {
		return fmt.Errorf("query home owner: %w", err)
	}
	if ownerID != userID {
		return ErrForbidden
	}
	return nil
}

func (s *Service) categoryLinesByCreator(ctx context.Context, userID int64) (map[string][]CategoryLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.request_id, l.category_id, COALESCE(c.name, ''), l.quantity
		FROM request_category_lines l
		JOIN furniture_requests r ON r.id = l.request_id
		LEFT JOIN request_categories c ON c.id = l.category_id AND c.lang = r.lang
		WHERE r.creator_id = $1
		ORDER BY l.request_id, l.position
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query category lines: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]CategoryLine)
	for rows.Next() {
		var requestID string
		var l CategoryLine
		if err := rows.Scan(&requestID, &l.CategoryID, &l.Name, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scan category line: %w", err)
		}
		out[requestID] = append(out[requestID], l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category lines: %w", err)
	}
	return out, nil
}
