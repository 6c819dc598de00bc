package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/madrasa/internal/app/models"
	"github.com/yigit/madrasa/internal/app/models/dto"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
	"github.com/yigit/madrasa/internal/pkg/auth"
)

// RefreshTokenStore is the persistence of refresh tokens.
type RefreshTokenStore interface {
	TokenRevoker
	CreateToken(ctx context.Context, token string, accountID int64, expiryDate time.Time) error
	GetTokenOwner(ctx context.Context, token string) (int64, error)
	RotateToken(ctx context.Context, oldToken, newToken string, expiryDate time.Time) (int64, error)
	RevokeToken(ctx context.Context, token string) error
}

// ParticipantLookup resolves a participant to its directory entry.
type ParticipantLookup interface {
	Lookup(ctx context.Context, p models.Participant) (*models.DirectoryEntry, error)
}

// AuthService logs accounts in and keeps their sessions alive
type AuthService struct {
	accounts   AccountStore
	tokens     RefreshTokenStore
	directory  ParticipantLookup
	jwtService *auth.JWTService
	logger     zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	accounts AccountStore,
	tokens RefreshTokenStore,
	directory ParticipantLookup,
	jwtService *auth.JWTService,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		accounts:   accounts,
		tokens:     tokens,
		directory:  directory,
		jwtService: jwtService,
		logger:     logger,
	}
}

// Login checks the credentials of an active account and issues a token pair.
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", apperrors.ErrValidationFailed)
	}

	account, err := s.accounts.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(account.PasswordHash, req.Password) {
		s.logger.Info().Str("email", auth.MaskEmail(account.Email)).Msg("Login rejected: wrong password")
		return nil, apperrors.ErrInvalidCredentials
	}
	if !account.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	pair, err := s.jwtService.GenerateTokenPair(account)
	if err != nil {
		return nil, fmt.Errorf("error generating tokens: %w", err)
	}
	if err := s.tokens.CreateToken(ctx, pair.RefreshToken, account.ID, s.jwtService.GetRefreshTokenExpiry()); err != nil {
		return nil, fmt.Errorf("error storing refresh token: %w", err)
	}
	if err := s.accounts.UpdateLastLogin(ctx, account.ID); err != nil {
		s.logger.Warn().Err(err).Int64("accountID", account.ID).Msg("Could not record last login")
	}

	s.logger.Info().Int64("accountID", account.ID).Str("role", string(account.Role)).Msg("Login successful")
	return authResponse(account, pair), nil
}

// Refresh exchanges a refresh token for a new pair. The old token is revoked in
// the same transaction, so it works only once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponse, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, apperrors.ErrTokenInvalid
	}

	accountID, err := s.tokens.GetTokenOwner(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, apperrors.ErrTokenInvalid
		}
		return nil, err
	}
	if !account.IsActive {
		if err := s.tokens.RevokeAllAccountTokens(ctx, account.ID); err != nil {
			s.logger.Warn().Err(err).Int64("accountID", account.ID).Msg("Could not revoke tokens of disabled account")
		}
		return nil, apperrors.ErrAccountDisabled
	}

	pair, err := s.jwtService.GenerateTokenPair(account)
	if err != nil {
		return nil, fmt.Errorf("error generating tokens: %w", err)
	}
	owner, err := s.tokens.RotateToken(ctx, refreshToken, pair.RefreshToken, s.jwtService.GetRefreshTokenExpiry())
	if err != nil {
		return nil, err
	}
	if owner != account.ID {
		return nil, apperrors.ErrTokenInvalid
	}
	return authResponse(account, pair), nil
}

// Logout revokes one refresh token.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return apperrors.ErrTokenInvalid
	}
	return s.tokens.RevokeToken(ctx, refreshToken)
}

// Me describes the caller.
func (s *AuthService) Me(ctx context.Context, accountID int64) (*dto.MeResponse, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	resp := &dto.MeResponse{
		Account:     account,
		Participant: account.Participant(),
		DisplayName: account.Email,
	}
	if s.directory != nil {
		entry, err := s.directory.Lookup(ctx, resp.Participant)
		switch {
		case err == nil && entry.Name != "":
			resp.DisplayName = entry.Name
		case err != nil && !errors.Is(err, apperrors.ErrUnknownRecipient):
			s.logger.Warn().Err(err).Int64("accountID", accountID).Msg("Could not resolve display name")
		}
	}
	return resp, nil
}

func authResponse(account *models.UserAccount, pair auth.TokenPair) *dto.AuthResponse {
	return &dto.AuthResponse{
		Token: dto.TokenResponse{
			AccessToken:           pair.AccessToken,
			TokenType:             "Bearer",
			ExpiresIn:             int64(pair.ExpiresIn),
			RefreshToken:          pair.RefreshToken,
			RefreshTokenExpiresIn: int64(pair.RefreshExpiresIn),
		},
		Account:     account,
		Participant: account.Participant(),
	}
}
