// Package service holds the application services: authentication and the
// migration engine.
package service

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/atelier-hq/atelier/internal/config"
	"github.com/atelier-hq/atelier/internal/domain"
	"github.com/atelier-hq/atelier/internal/domain/record"
	"github.com/atelier-hq/atelier/internal/port/database"
)

const (
	tokenAudience = "atelier"
	tokenIssuer   = "atelier-migration"
)

// TokenClaims is the payload of a signed access token.
type TokenClaims struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	IsAdmin  bool   `json:"is_admin"`
	IssuedAt int64  `json:"iat"`
	Expiry   int64  `json:"exp"`
	Audience string `json:"aud"`
	Issuer   string `json:"iss"`
}

// AuthService authenticates staff accounts and signs access tokens.
type AuthService struct {
	staff  database.StaffStore
	cfg    *config.Auth
	secret []byte
	now    func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(staff database.StaffStore, cfg *config.Auth) *AuthService {
	return &AuthService{
		staff:  staff,
		cfg:    cfg,
		secret: []byte(cfg.TokenSecret),
		now:    time.Now,
	}
}

// Login verifies credentials and returns a signed access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (token string, expiresIn int, err error) {
	st, err := s.staff.StaffByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", 0, errors.New("invalid credentials")
		}
		return "", 0, fmt.Errorf("get staff: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(st.PasswordHash), []byte(password)); err != nil {
		return "", 0, errors.New("invalid credentials")
	}

	token, err = s.signToken(st)
	if err != nil {
		return "", 0, fmt.Errorf("sign token: %w", err)
	}
	return token, int(s.cfg.TokenTTL.Seconds()), nil
}

// ValidateAccessToken verifies a signed token and resolves its holder in the
// store, so a demoted or deleted account stops being accepted immediately.
func (s *AuthService) ValidateAccessToken(ctx context.Context, tokenStr string) (*record.Staff, error) {
	claims, err := s.verifyToken(tokenStr)
	if err != nil {
		return nil, err
	}

	st, err := s.staff.StaffByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("resolve token holder: %w", err)
	}
	return st, nil
}

// ResolveLegacySession resolves a legacy session token to its holder via the
// token's SHA-256 hash. Expired or unknown sessions are unauthorized.
func (s *AuthService) ResolveLegacySession(ctx context.Context, rawToken string) (*record.Staff, error) {
	st, err := s.staff.StaffBySessionHash(ctx, hashSHA256(rawToken))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	return st, nil
}

// CreateStaff creates a staff account with a bcrypt-hashed password.
func (s *AuthService) CreateStaff(ctx context.Context, email, name, password string, isAdmin bool) (*record.Staff, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return s.staff.CreateStaff(ctx, email, name, string(hash), isAdmin)
}

// CreateLegacySession mints a legacy session token for a staff account and
// stores its hash. Returns the raw token; it is shown once and never stored.
func (s *AuthService) CreateLegacySession(ctx context.Context, email string, ttl time.Duration) (string, error) {
	st, err := s.staff.StaffByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("get staff: %w", err)
	}

	raw, err := generateRandomToken(32)
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}

	if err := s.staff.CreateStaffSession(ctx, st.ID, hashSHA256(raw), s.now().Add(ttl)); err != nil {
		return "", err
	}
	return raw, nil
}

// ListStaff lists all operator accounts.
func (s *AuthService) ListStaff(ctx context.Context) ([]record.Staff, error) {
	return s.staff.ListStaff(ctx)
}

// ResetPassword replaces a staff account's password.
func (s *AuthService) ResetPassword(ctx context.Context, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.staff.UpdateStaffPassword(ctx, email, string(hash))
}

// --- Token implementation (HS256 with stdlib) ---

// tokenHeader is the fixed base64url-encoded header for HS256.
var tokenHeader = base64URLEncode([]byte(`{"alg":"HS256","typ":"JWT"}`))

func (s *AuthService) signToken(st *record.Staff) (string, error) {
	now := s.now()
	claims := TokenClaims{
		Email:    st.Email,
		Name:     st.Name,
		IsAdmin:  st.IsAdmin,
		IssuedAt: now.Unix(),
		Expiry:   now.Add(s.cfg.TokenTTL).Unix(),
		Audience: tokenAudience,
		Issuer:   tokenIssuer,
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}

	payloadB64 := base64URLEncode(payload)
	signingInput := tokenHeader + "." + payloadB64

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(signingInput))
	sig := base64URLEncode(mac.Sum(nil))

	return signingInput + "." + sig, nil
}

func (s *AuthService) verifyToken(tokenStr string) (*TokenClaims, error) {
	parts := strings.SplitN(tokenStr, ".", 3)
	if len(parts) != 3 {
		return nil, errors.New("malformed token")
	}

	signingInput := parts[0] + "." + parts[1]
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(signingInput))
	expectedSig := base64URLEncode(mac.Sum(nil))

	if !hmac.Equal([]byte(parts[2]), []byte(expectedSig)) {
		return nil, errors.New("invalid signature")
	}

	payload, err := base64URLDecode(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	var claims TokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("unmarshal claims: %w", err)
	}

	if s.now().Unix() > claims.Expiry {
		return nil, errors.New("token expired")
	}
	if claims.Audience != tokenAudience {
		return nil, errors.New("invalid token audience")
	}
	if claims.Issuer != tokenIssuer {
		return nil, errors.New("invalid token issuer")
	}

	return &claims, nil
}

// --- Helpers ---

func base64URLEncode(data []byte) string {
	return strings.TrimRight(base64.URLEncoding.EncodeToString(data), "=")
}

func base64URLDecode(s string) ([]byte, error) {
	// Add padding back
	switch len(s) % 4 {
	case 2:
		s += "=="
	case 3:
		s += "="
	}
	return base64.URLEncoding.DecodeString(s)
}

func hashSHA256(data string) string {
	h := sha256.Sum256([]byte(data))
	return hex.EncodeToString(h[:])
}

func generateRandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
