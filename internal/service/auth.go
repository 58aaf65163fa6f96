package service

import (
	"context"
	"crypto/subtle"
	"fmt"

	"microearn/internal/model"
	"microearn/pkg/auth"
	"microearn/pkg/logger"

	"go.uber.org/zap"
)

const DefaultOTPCode = "1234"

type TokenIssuer interface {
	Issue(subject, role string) (string, error)
}

type SessionStarter interface {
	Login(ctx context.Context, phone, name string) (*model.User, error)
	Logout(ctx context.Context, userID string) error
}

type AuthConfig struct {
	OTPCode   string
	AdminCode string
}

// AuthService runs the mock OTP login. No SMS is ever sent; every phone
// accepts the configured code.
type AuthService struct {
	ledger SessionStarter
	tokens TokenIssuer
	cfg    AuthConfig
}

func NewAuthService(ledger SessionStarter, tokens TokenIssuer, cfg AuthConfig) *AuthService {
	if cfg.OTPCode == "" {
		cfg.OTPCode = DefaultOTPCode
	}
	return &AuthService{
		ledger: ledger,
		tokens: tokens,
		cfg:    cfg,
	}
}

func (s *AuthService) RequestOTP(_ context.Context, phone, name string) error {
	logger.Logger().Info("mock otp issued",
		zap.String("phone", phone),
		zap.String("name", name))
	return nil
}

func (s *AuthService) VerifyOTP(ctx context.Context, phone, name, code string) (*model.User, string, error) {
	if !equal(code, s.cfg.OTPCode) {
		return nil, "", ErrInvalidOTP
	}

	user, err := s.ledger.Login(ctx, phone, name)
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(user.ID, auth.RoleUser)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}
	return user, token, nil
}

func (s *AuthService) AdminLogin(_ context.Context, code string) (string, error) {
	if s.cfg.AdminCode == "" || !equal(code, s.cfg.AdminCode) {
		return "", ErrInvalidAdminCode
	}

	token, err := s.tokens.Issue(auth.RoleAdmin, auth.RoleAdmin)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return token, nil
}

func (s *AuthService) Logout(ctx context.Context, userID string) error {
	return s.ledger.Logout(ctx, userID)
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
