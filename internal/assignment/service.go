package assignment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound       = errors.New("assignment not found")
	ErrForbidden      = errors.New("assignment belongs to another user's request")
	ErrAlreadyDecided = errors.New("assignment already accepted or declined")
)

// Assignment is a firm's offer against a published request.
type Assignment struct {
	ID         string     `json:"id"`
	RequestID  string     `json:"request_id"`
	FirmID     string     `json:"firm_id"`
	FirmName   string     `json:"firm_name,omitempty"`
	PriceCents *int64     `json:"price_cents,omitempty"`
	Currency   string     `json:"currency,omitempty"`
	Note       *string    `json:"note,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	DeclinedAt *time.Time `json:"declined_at,omitempty"`
}

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

const assignmentColumns = `
	a.id, a.request_id, a.firm_id, COALESCE(f.name, ''),
	a.price_cents, a.currency, a.note, a.created_at, a.accepted_at, a.declined_at
`

// ListByRequest returns a request's offers to its creator.
func (s *Service) ListByRequest(ctx context.Context, userID int64, requestID string) ([]Assignment, error) {
	var creatorID int64
	err := s.db.QueryRowContext(ctx, `
		SELECT creator_id FROM furniture_requests WHERE id = $1
	`, requestID).Scan(&creatorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query request creator: %w", err)
	}
	if creatorID != userID {
		return nil, ErrForbidden
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+assignmentColumns+`
		FROM request_assignments a
		LEFT JOIN firms f ON f.id = a.firm_id
		WHERE a.request_id = $1
		ORDER BY a.created_at DESC
	`, requestID)
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

// ListByCreator returns every offer across the creator's requests.
func (s *Service) ListByCreator(ctx context.Context, userID int64) ([]Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+assignmentColumns+`
		FROM request_assignments a
		JOIN furniture_requests r ON r.id = a.request_id
		LEFT JOIN firms f ON f.id = a.firm_id
		WHERE r.creator_id = $1
		ORDER BY a.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

// Accept stamps the offer accepted and moves the parent request to ACCEPTED.
func (s *Service) Accept(ctx context.Context, userID int64, id string) (*Assignment, error) {
	return s.decide(ctx, userID, id, true)
}

// Decline stamps the offer declined. The parent request stays open to other
// offers.
func (s *Service) Decline(ctx context.Context, userID int64, id string) (*Assignment, error) {
	return s.decide(ctx, userID, id, false)
}

func (s *Service) decide(ctx context.Context, userID int64, id string, accept bool) (*Assignment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin decide tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var requestID string
	var creatorID int64
	var acceptedAt, declinedAt sql.NullTime
	row := tx.QueryRowContext(ctx, `
		SELECT a.request_id, r.creator_id, a.accepted_at, a.declined_at
		FROM request_assignments a
		JOIN furniture_requests r ON r.id = a.request_id
		WHERE a.id = $1
		FOR UPDATE OF a
	`, id)
	if err := row.Scan(&requestID, &creatorID, &acceptedAt, &declinedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock assignment: %w", err)
	}
	if creatorID != userID {
		return nil, ErrForbidden
	}
	if acceptedAt.Valid || declinedAt.Valid {
		return nil, ErrAlreadyDecided
	}

	column := "declined_at"
	if accept {
		column = "accepted_at"
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE request_assignments SET `+column+` = now() WHERE id = $1
	`, id); err != nil {
		return nil, fmt.Errorf("stamp assignment: %w", err)
	}

	if accept {
		if _, err := tx.ExecContext(ctx, `
			UPDATE furniture_requests
			SET status = 'ACCEPTED', updated_at = now()
			WHERE id = $1 AND status IN ('REDEEMED', 'QUOTED')
		`, requestID); err != nil {
			return nil, fmt.Errorf("update request status: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit decide: %w", err)
	}
	return s.get(ctx, id)
}

func (s *Service) get(ctx context.Context, id string) (*Assignment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+assignmentColumns+`
		FROM request_assignments a
		LEFT JOIN firms f ON f.id = a.firm_id
		WHERE a.id = $1
	`, id)
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query assignment: %w", err)
	}
	return a, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAssignment(row rowScanner) (*Assignment, error) {
	var a Assignment
	var price sql.NullInt64
	var currency, note sql.NullString
	var acceptedAt, declinedAt sql.NullTime
	if err := row.Scan(&a.ID, &a.RequestID, &a.FirmID, &a.FirmName, &price, &currency, &note, &a.CreatedAt, &acceptedAt, &declinedAt); err != nil {
		return nil, err
	}
	if price.Valid {
		a.PriceCents = &price.Int64
	}
	if currency.Valid {
		a.Currency = currency.String
	}
	if note.Valid {
		a.Note = &note.String
	}
	if acceptedAt.Valid {
		a.AcceptedAt = &acceptedAt.Time
	}
	if declinedAt.Valid {
		a.DeclinedAt = &declinedAt.Time
	}
	return &a, nil
}

func collect(rows *sql.Rows) ([]Assignment, error) {
	out := make([]Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}
	return out, nil
}
