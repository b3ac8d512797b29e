package services

import (
	"context"
	cryptorand "crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/roomrent/backend/internal/models"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"
)

type AuthService struct {
	db        *sql.DB
	redis     *redis.Client
	validator *validator.Validate
}

// LoginRequest represents the login request payload
// @Description Login request structure
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"user@example.com"` // Account email
	Password string `json:"password" validate:"required,min=6" example:"password123"`   // Account password
}

// RegisterRequest represents the registration request payload
// @Description Registration request structure
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email" example:"user@example.com"`      // Account email
	Password string `json:"password" validate:"required,min=6" example:"password123"`        // Account password
	FullName string `json:"fullName" validate:"required,min=2" example:"Ada Obi"`            // Display name
	Role     string `json:"role" validate:"required,oneof=seeker provider" example:"seeker"` // seeker or provider
}

// AuthResponse represents the authentication response
// @Description Authentication response structure
type AuthResponse struct {
	Token   string          `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."` // JWT token
	Account *models.Account `json:"account"`                                                 // Account information
}

func NewAuthService(db *sql.DB, redisClient *redis.Client) *AuthService {
	return &AuthService{
		db:        db,
		redis:     redisClient,
		validator: validator.New(),
	}
}

func (s *AuthService) sendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	SendErrorResponse(w, message, statusCode, validationErr)
}

// DecodeJSONBody reads exactly one JSON object into dst
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("request body must only contain a single JSON object")
	}
	return nil
}

// Register handles account registration
// @Summary Register a new account
// @Description Register a seeker or provider account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration request"
// @Success 200 {object} AuthResponse "Registration successful"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 409 {object} ErrorResponse "Email already exists"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /auth/register [post]
func (s *AuthService) Register(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Registration attempt from IP: %s", r.RemoteAddr)

	var req RegisterRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		log.Printf("[AUTH] Registration failed - invalid request: %v", err)
		s.sendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		log.Printf("[AUTH] Registration validation failed: %v", err)
		s.sendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		s.sendErrorResponse(w, "Validation failed", http.StatusBadRequest, nil)
		return
	}

	hashedPassword, err := hashPassword(req.Password)
	if err != nil {
		log.Printf("[AUTH] Password hashing failed for %s: %v", req.Email, err)
		s.sendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}

	now := time.Now().UTC()
	account := &models.Account{
		ID:              uuid.NewString(),
		Email:           strings.ToLower(req.Email),
		FullName:        req.FullName,
		Role:            role,
		IsAccountActive: true,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	_, err = s.db.ExecContext(r.Context(), `
		INSERT INTO accounts (id, email, password, full_name, role, wallet_balance, penalty_amount,
			is_account_active, total_paid_amount, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, 0, true, 0, 1, $6, $6)`,
		account.ID, account.Email, hashedPassword, account.FullName, account.Role, now)
	if isUniqueViolation(err) {
		log.Printf("[AUTH] Email already registered: %s", account.Email)
		s.sendErrorResponse(w, "Email Already Exists", http.StatusConflict, nil)
		return
	}
	if err != nil {
		log.Printf("[AUTH] Account creation failed for %s: %v", account.Email, err)
		s.sendErrorResponse(w, "Failed to create account", http.StatusInternalServerError, nil)
		return
	}

	token, err := generateJWT(account.ID, account.Role)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for account %s: %v", account.ID, err)
		s.sendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] Registration successful for account %s (%s)", account.ID, account.Role)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AuthResponse{Token: token, Account: account})
}

// EnsureOwner returns the id of the platform owner account with email,
// creating it when missing. Owners cannot register through the API.
func (s *AuthService) EnsureOwner(ctx context.Context, email, password, fullName string) (string, error) {
	email = strings.ToLower(email)

	var (
		id   string
		role models.Role
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, role FROM accounts WHERE email = $1`, email).Scan(&id, &role)
	switch {
	case err == nil:
		if role != models.RoleOwner {
			return "", fmt.Errorf("account %s already exists with role %s", email, role)
		}
		return id, nil
	case !errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("failed to look up owner: %w", err)
	}

	if password == "" {
		return "", errors.New("owner password is required to create the owner account")
	}
	hashedPassword, err := hashPassword(password)
	if err != nil {
		return "", err
	}

	id = uuid.NewString()
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, password, full_name, role, wallet_balance, penalty_amount,
			is_account_active, total_paid_amount, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, 0, true, 0, 1, $6, $6)`,
		id, email, hashedPassword, fullName, models.RoleOwner, now); err != nil {
		return "", fmt.Errorf("failed to create owner: %w", err)
	}

	log.Printf("[AUTH] Owner account %s created for %s", id, email)
	return id, nil
}

// Login handles account authentication
// @Summary Login
// @Description Authenticate with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} AuthResponse "Login successful"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Login attempt from IP: %s", r.RemoteAddr)

	var req LoginRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		log.Printf("[AUTH] Login failed - invalid request: %v", err)
		s.sendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		log.Printf("[AUTH] Login validation failed: %v", err)
		s.sendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	var hashedPassword string
	row := s.db.QueryRowContext(r.Context(),
		`SELECT password, `+accountColumns+` FROM accounts WHERE email = $1`, strings.ToLower(req.Email))
	account, err := scanAccount(prefixedScanner{row: row, prefix: []any{&hashedPassword}})
	if err != nil {
		log.Printf("[AUTH] Account not found for email: %s", req.Email)
		s.sendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	if !verifyPassword(req.Password, hashedPassword) {
		log.Printf("[AUTH] Invalid password for account: %s", account.ID)
		s.sendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	token, err := generateJWT(account.ID, account.Role)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for account %s: %v", account.ID, err)
		s.sendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] Login successful for account %s", account.ID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AuthResponse{Token: token, Account: account})
}

// Logout handles account logout
// @Summary Logout
// @Description Logout and blacklist the bearer token
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string "Logout successful"
// @Router /auth/logout [post]
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("Authorization")
	if token != "" && len(token) > 7 {
		token = token[7:] // Remove "Bearer " prefix

		if s.redis != nil {
			key := fmt.Sprintf("blacklist:%s", token)
			// Blacklist token until its expiration
			expiry := time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
			if err := s.redis.Set(r.Context(), key, "1", expiry).Err(); err != nil {
				log.Printf("[AUTH] Failed to blacklist token: %v", err)
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Logout successful"})
}

// IsBlacklisted reports whether token was revoked by Logout
func (s *AuthService) IsBlacklisted(ctx context.Context, token string) bool {
	if s.redis == nil {
		return false
	}
	n, err := s.redis.Exists(ctx, fmt.Sprintf("blacklist:%s", token)).Result()
	if err != nil {
		log.Printf("[AUTH] Blacklist lookup failed: %v", err)
		return false
	}
	return n > 0
}

// GetUserAccount retrieves the authenticated account
// @Summary Get account details
// @Description Get the authenticated account including its dues and standing
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Account "Account details"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Account not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /auth/account [get]
func (s *AuthService) GetUserAccount(w http.ResponseWriter, r *http.Request) {
	session := models.SessionFrom(r.Context())
	if !session.Authenticated() {
		log.Printf("[AUTH] Unauthorized account request - no session in context")
		s.sendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	row := s.db.QueryRowContext(r.Context(), `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, session.AccountID)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[AUTH] Account not found for ID: %s", session.AccountID)
			s.sendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
		} else {
			log.Printf("[AUTH] Failed to fetch account %s: %v", session.AccountID, err)
			s.sendErrorResponse(w, "Failed to fetch account", http.StatusInternalServerError, nil)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(account)
}

// prefixedScanner scans leading columns into prefix before handing the rest to a row scanner
type prefixedScanner struct {
	row    rowScanner
	prefix []any
}

func (p prefixedScanner) Scan(dest ...any) error {
	return p.row.Scan(append(p.prefix, dest...)...)
}

// Claims carried in session tokens
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func generateJWT(accountID string, role models.Role) (string, error) {
	claims := Claims{
		UserID: accountID,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(viper.GetString("jwt.secret_key")))
}

// ParseToken validates a session token and returns the session it carries
func ParseToken(tokenString string) (*models.Session, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(viper.GetString("jwt.secret_key")), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == "" {
		return nil, errors.New("invalid token")
	}

	role, err := models.ParseRole(claims.Role)
	if err != nil {
		return nil, err
	}
	return &models.Session{AccountID: claims.UserID, Role: role}, nil
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, viper.GetInt("argon2.salt_length"))
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func verifyPassword(password, hashedPassword string) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return string(hash) == string(computedHash)
}
