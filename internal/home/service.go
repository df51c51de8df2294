package home

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
	ErrNotFound     = errors.New("home not found")
	ErrForbidden    = errors.New("home belongs to another user")
	ErrInvalidInput = errors.New("invalid input")
)

type Home struct {
	ID        string    `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	County    *string   `json:"county,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type HomeInput struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	County  string `json:"county"`
	Notes   string `json:"notes"`
}

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

func (in *HomeInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	in.City = strings.TrimSpace(in.City)
	in.County = strings.TrimSpace(in.County)
	in.Notes = strings.TrimSpace(in.Notes)
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.Address == "" {
		return fmt.Errorf("%w: address is required", ErrInvalidInput)
	}
	if in.City == "" {
		return fmt.Errorf("%w: city is required", ErrInvalidInput)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, ownerID int64, in HomeInput) (*Home, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO homes (id, owner_id, name, address, city, county, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING id, owner_id, name, address, city, county, notes, created_at, updated_at
	`, uuid.NewString(), ownerID, in.Name, in.Address, in.City, nullable(in.County), nullable(in.Notes))

	h, err := scanHome(row)
	if err != nil {
		return nil, fmt.Errorf("insert home: %w", err)
	}
	return h, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerID int64) ([]Home, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, address, city, county, notes, created_at, updated_at
		FROM homes
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query homes: %w", err)
	}
	defer rows.Close()

	homes := make([]Home, 0)
	for rows.Next() {
		h, err := scanHome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan home: %w", err)
		}
		homes = append(homes, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate homes: %w", err)
	}
	return homes, nil
}

func (s *Service) Get(ctx context.Context, ownerID int64, id string) (*Home, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, address, city, county, notes, created_at, updated_at
		FROM homes
		WHERE id = $1 AND deleted_at IS NULL
	`, id)

	h, err := scanHome(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query home: %w", err)
	}
	if h.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return h, nil
}

func (s *Service) Update(ctx context.Context, ownerID int64, id string, in HomeInput) (*Home, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE homes
		SET name = $1, address = $2, city = $3, county = $4, notes = $5, updated_at = now()
		WHERE id = $6 AND owner_id = $7 AND deleted_at IS NULL
		RETURNING id, owner_id, name, address, city, county, notes, created_at, updated_at
	`, in.Name, in.Address, in.City, nullable(in.County), nullable(in.Notes), id, ownerID)

	h, err := scanHome(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update home: %w", err)
	}
	return h, nil
}

// Delete soft-deletes; requests already created against the home keep their
// reference.
func (s *Service) Delete(ctx context.Context, ownerID int64, id string) error {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE homes
		SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL
	`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete home: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanHome(row rowScanner) (*Home, error) {
	var h Home
	var county, notes sql.NullString
	if err := row.Scan(&h.ID, &h.OwnerID, &h.Name, &h.Address, &h.City, &county, &notes, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, err
	}
	if county.Valid {
		h.County = &county.String
	}
	if notes.Valid {
		h.Notes = &notes.String
	}
	return &h, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
