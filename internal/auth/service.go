package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrCodeExpired        = errors.New("verification code expired")
	ErrUserNotFound       = errors.New("user not found")
)

// Roles mirror the profile roles of the marketplace.
const (
	RoleHomeowner    = "HOMEOWNER"
	RoleArchitect    = "ARCHITECT"
	RoleFirmCEO      = "FIRM_CEO"
	RoleFirmEmployee = "FIRM_EMPLOYEE"
	RoleAdmin        = "ADMIN"
)

type Service struct {
	db         *sql.DB
	sessionTTL time.Duration
	codeTTL    time.Duration
	bcryptCost int
	mailer     VerificationMailer
}

type ServiceConfig struct {
	SessionTTL time.Duration
	CodeTTL    time.Duration
	BcryptCost int
	Mailer     VerificationMailer
}

type User struct {
	ID            int64      `json:"id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	Phone         *string    `json:"phone,omitempty"`
	Role          string     `json:"role"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Role      string
}

func NewService(db *sql.DB, cfg ServiceConfig) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 15 * time.Minute
	}
	if cfg.BcryptCost <= 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		db:         db,
		sessionTTL: cfg.SessionTTL,
		codeTTL:    cfg.CodeTTL,
		bcryptCost: cfg.BcryptCost,
		mailer:     cfg.Mailer,
	}
}

func normalizeRole(v string) string {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case RoleArchitect:
		return RoleArchitect
	case RoleFirmCEO:
		return RoleFirmCEO
	case RoleFirmEmployee:
		return RoleFirmEmployee
	case "":
		return RoleHomeowner
	case RoleHomeowner:
		return RoleHomeowner
	default:
		return ""
	}
}

// Register creates an account and queues a verification code. Admin accounts
// are never self-registered.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Phone = strings.TrimSpace(in.Phone)

	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	if len(in.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	role := normalizeRole(in.Role)
	if role == "" {
		return nil, fmt.Errorf("%w: unknown role", ErrInvalidInput)
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND deleted_at IS NULL)
	`, in.Email).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (
			email, password_hash, first_name, last_name, phone, role, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING id, email, first_name, last_name, phone, role, email_verified_at, created_at, last_login_at
	`, in.Email, string(hash), in.FirstName, in.LastName, nullableString(in.Phone), role)

	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	if err := s.issueVerificationCode(ctx, user.ID, user.Email); err != nil {
		// Account creation already happened; the code can be re-requested.
		log.Printf("auth: send verification code to %s: %v", user.Email, err)
	}
	return user, nil
}

// RequestVerification re-issues a verification code for an unverified
// account. The response never reveals whether the email exists.
func (s *Service) RequestVerification(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	var userID int64
	var verifiedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email_verified_at FROM users
		WHERE email = $1 AND deleted_at IS NULL
	`, email).Scan(&userID, &verifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if verifiedAt.Valid {
		return nil
	}
	return s.issueVerificationCode(ctx, userID, email)
}

// VerifyEmail consumes a pending code and marks the account verified.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return ErrInvalidCode
	}

	var expiresAt time.Time
	var userID int64
	err := s.db.QueryRowContext(ctx, `
		SELECT v.user_id, v.expires_at
		FROM email_verifications v
		JOIN users u ON u.id = v.user_id
		WHERE u.email = $1
		  AND v.code_hash = $2
		  AND v.consumed_at IS NULL
		ORDER BY v.created_at DESC
		LIMIT 1
	`, email, hashCode(email, code)).Scan(&userID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrInvalidCode
	}
	if err != nil {
		return fmt.Errorf("lookup verification: %w", err)
	}
	if time.Now().After(expiresAt) {
		return ErrCodeExpired
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin verify tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		UPDATE email_verifications
		SET consumed_at = now()
		WHERE user_id = $1 AND consumed_at IS NULL
	`, userID); err != nil {
		return fmt.Errorf("consume verification: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE users
		SET email_verified_at = COALESCE(email_verified_at, now())
		WHERE id = $1
	`, userID); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit verify: %w", err)
	}
	return nil
}

// AuthenticatePassword checks credentials and records the login time.
func (s *Service) AuthenticatePassword(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name, phone, role, email_verified_at, created_at, last_login_at, password_hash
		FROM users
		WHERE email = $1 AND deleted_at IS NULL
	`, email)

	var u User
	var phone sql.NullString
	var verifiedAt, lastLogin sql.NullTime
	var passwordHash string
	if err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &phone, &u.Role, &verifiedAt, &u.CreatedAt, &lastLogin, &passwordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if phone.Valid {
		u.Phone = &phone.String
	}
	u.EmailVerified = verifiedAt.Valid
	if lastLogin.Valid {
		u.LastLoginAt = &lastLogin.Time
	}

	if _, err := s.db.ExecContext(ctx, `
		UPDATE users SET last_login_at = now() WHERE id = $1
	`, u.ID); err != nil {
		log.Printf("auth: update last_login_at for user %d: %v", u.ID, err)
	}
	return &u, nil
}

func (s *Service) CreateSession(ctx context.Context, userID int64, ipAddress, userAgent string) (string, time.Time, error) {
	token, err := generateToken(32)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate session token: %w", err)
	}
	expiresAt := time.Now().Add(s.sessionTTL)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO auth_sessions (
			user_id, session_token_hash, expires_at, ip_address, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, now())
	`, userID, hashToken(token), expiresAt, nullableString(ipAddress), nullableString(userAgent))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("insert session: %w", err)
	}
	return token, expiresAt, nil
}

func (s *Service) GetSessionUser(ctx context.Context, token string) (*User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrUnauthorized
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.email, u.first_name, u.last_name, u.phone, u.role, u.email_verified_at, u.created_at, u.last_login_at
		FROM auth_sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.session_token_hash = $1
		  AND s.revoked_at IS NULL
		  AND s.expires_at > now()
		  AND u.deleted_at IS NULL
		LIMIT 1
	`, hashToken(token))

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("query session user: %w", err)
	}
	return user, nil
}

func (s *Service) RevokeSession(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE auth_sessions
		SET revoked_at = now()
		WHERE session_token_hash = $1
		  AND revoked_at IS NULL
	`, hashToken(token))
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *Service) issueVerificationCode(ctx context.Context, userID int64, email string) error {
	code, err := generateCode(6)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO email_verifications (user_id, code_hash, expires_at, created_at)
		VALUES ($1, $2, $3, now())
	`, userID, hashCode(email, code), time.Now().Add(s.codeTTL))
	if err != nil {
		return fmt.Errorf("insert verification: %w", err)
	}
	if s.mailer == nil {
		log.Printf("auth: no mailer configured, verification code for %s not sent", email)
		return nil
	}
	return s.mailer.SendVerificationCode(ctx, email, code)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	var phone sql.NullString
	var verifiedAt, lastLogin sql.NullTime
	if err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &phone, &u.Role, &verifiedAt, &u.CreatedAt, &lastLogin); err != nil {
		return nil, err
	}
	if phone.Valid {
		u.Phone = &phone.String
	}
	u.EmailVerified = verifiedAt.Valid
	if lastLogin.Valid {
		u.LastLoginAt = &lastLogin.Time
	}
	return &u, nil
}

func nullableString(s string) interface{} {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}

func generateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func generateCode(digits int) (string, error) {
	if digits <= 0 {
		digits = 6
	}
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

func hashCode(email, code string) string {
	seed := strings.ToLower(strings.TrimSpace(email)) + ":" + strings.TrimSpace(code)
	h := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(h[:])
}
