package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/subgate/subgate/internal/config"
	"github.com/subgate/subgate/internal/model"
)

var (
	ErrMissingCredential   = errors.New("missing credential")
	ErrMalformedCredential = errors.New("malformed credential")
	ErrUnsupportedScheme   = errors.New("unsupported authentication scheme")
	ErrUnknownIdentity     = errors.New("unknown or inactive identity")
	ErrInvalidCredential   = errors.New("invalid credential")
)

// CredentialStore is the slice of the store the gates read and write.
type CredentialStore interface {
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error)
	UpdateAdminLastLogin(ctx context.Context, id string, at time.Time) error
}

// ProductIdentity is the result of a successful API key check.
type ProductIdentity struct {
	ProductID string
}

// AdminIdentity is the result of a successful admin credential check.
type AdminIdentity struct {
	AdminID string
	Role    model.AdminRole
	Email   string
}

// AuthService verifies product API keys and admin Basic credentials.
type AuthService struct {
	store  CredentialStore
	hasher Hasher
	logger *slog.Logger
	now    func() time.Time

	decoyOnce sync.Once
	decoyHash string
}

func NewAuthService(store CredentialStore, hasher Hasher, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		store:  store,
		hasher: hasher,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// AuthenticateAPIKey resolves a raw X-API-Key value to its product. The
// product record is never modified.
func (s *AuthService) AuthenticateAPIKey(ctx context.Context, rawKey string) (*ProductIdentity, error) {
	rawKey = strings.TrimSpace(rawKey)
	if rawKey == "" {
		return nil, ErrMissingCredential
	}

	productID, ok := ProductIDFromKey(rawKey)
	if !ok {
		s.logger.Debug("api key rejected", "reason", "no product prefix")
		return nil, ErrMalformedCredential
	}

	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			s.logger.Debug("api key rejected", "reason", "unknown product", "product_id", productID)
			return nil, ErrUnknownIdentity
		}
		return nil, fmt.Errorf("look up product: %w", err)
	}
	if !product.IsActive {
		s.logger.Debug("api key rejected", "reason", "inactive product", "product_id", productID)
		return nil, ErrUnknownIdentity
	}

	if !s.hasher.Verify(rawKey, product.APIKeyHash) {
		s.logger.Debug("api key rejected", "reason", "hash mismatch", "product_id", productID)
		return nil, ErrInvalidCredential
	}

	return &ProductIdentity{ProductID: product.ID}, nil
}

// AuthenticateAdmin resolves an Authorization header carrying Basic
// credentials to an admin. On success the admin's last login time is
// recorded; a failure of that write is logged and does not fail the login.
func (s *AuthService) AuthenticateAdmin(ctx context.Context, header string) (*AdminIdentity, error) {
	email, password, err := parseBasicAuth(header)
	if err != nil {
		return nil, err
	}

	admin, err := s.store.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			s.burnComparison(password)
			s.logger.Debug("admin login rejected", "reason", "unknown email")
			return nil, ErrInvalidCredential
		}
		return nil, fmt.Errorf("look up admin: %w", err)
	}
	if !admin.IsActive {
		s.burnComparison(password)
		s.logger.Debug("admin login rejected", "reason", "inactive admin", "admin_id", admin.ID)
		return nil, ErrInvalidCredential
	}
	if !s.hasher.Verify(password, admin.PasswordHash) {
		s.logger.Debug("admin login rejected", "reason", "password mismatch", "admin_id", admin.ID)
		return nil, ErrInvalidCredential
	}

	if err := s.store.UpdateAdminLastLogin(ctx, admin.ID, s.now()); err != nil {
		s.logger.Warn("failed to record admin login", "admin_id", admin.ID, "error", err)
	}

	return &AdminIdentity{AdminID: admin.ID, Role: admin.Role, Email: admin.Email}, nil
}

// burnComparison runs one hash comparison so that unknown and inactive
// admins take as long to reject as a wrong password.
func (s *AuthService) burnComparison(password string) {
	s.decoyOnce.Do(func() {
		h, err := s.hasher.Hash("subgate-decoy-password")
		if err == nil {
			s.decoyHash = h
		}
	})
	if s.decoyHash != "" {
		s.hasher.Verify(password, s.decoyHash)
	}
}

// parseBasicAuth extracts the email and password from a Basic
// Authorization header value.
func parseBasicAuth(header string) (email, password string, err error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", "", ErrMissingCredential
	}

	scheme, payload, _ := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, "Basic") {
		return "", "", ErrUnsupportedScheme
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return "", "", ErrMalformedCredential
	}

	email, password, ok := strings.Cut(string(decoded), ":")
	if !ok || email == "" || password == "" {
		return "", "", ErrMalformedCredential
	}
	return email, password, nil
}
