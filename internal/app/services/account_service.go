package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/yigit/madrasa/internal/app/models"
	"github.com/yigit/madrasa/internal/app/models/dto"
	"github.com/yigit/madrasa/internal/db"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
	"github.com/yigit/madrasa/internal/pkg/auth"
	"github.com/yigit/madrasa/internal/pkg/cache"
	"github.com/yigit/madrasa/internal/pkg/email"
	"github.com/yigit/madrasa/internal/pkg/listing"
	"github.com/yigit/madrasa/internal/pkg/validation"
)

// AccountStore is the persistence of user accounts.
type AccountStore interface {
	Store[models.UserAccount]
	WithTx(ctx context.Context, fn db.TransactionFn) error
	CreateWithHash(ctx context.Context, q db.Querier, account *models.UserAccount) (int64, error)
	ExistsForPerson(ctx context.Context, q db.Querier, role models.Role, personID int64) (bool, error)
	PersonContact(ctx context.Context, q db.Querier, role models.Role, personID int64) (name, email string, err error)
	FindByEmail(ctx context.Context, email string) (*models.UserAccount, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	SetActive(ctx context.Context, id int64, active bool) error
	UpdateLastLogin(ctx context.Context, id int64) error
}

// TokenRevoker revokes the refresh tokens of an account.
type TokenRevoker interface {
	RevokeAllAccountTokens(ctx context.Context, accountID int64) error
}

// PasswordPolicy supplies the configured minimum password length.
type PasswordPolicy interface {
	Int(ctx context.Context, section, key string) int
}

// AccountService manages logins for staff, teachers, students and guardians.
type AccountService interface {
	List(ctx context.Context, q listing.Query) (listing.Page[*models.UserAccount], error)
	Get(ctx context.Context, id int64) (*models.UserAccount, error)
	Delete(ctx context.Context, id int64) error
	Schema() listing.Schema

	Create(ctx context.Context, req dto.CreateAccountRequest) (*dto.AccountCreatedResponse, error)
	Update(ctx context.Context, id int64, req dto.UpdateAccountRequest) (*models.UserAccount, error)
	SetStatus(ctx context.Context, id int64, active bool) (*models.UserAccount, error)
	ResetPassword(ctx context.Context, id int64) (*dto.AccountCreatedResponse, error)
	BulkCreate(ctx context.Context, req dto.BulkCreateAccountsRequest) (*dto.BulkCreateAccountsResponse, error)
}

type accountServiceImpl struct {
	ResourceService[models.UserAccount]
	store    AccountStore
	tokens   TokenRevoker
	policy   PasswordPolicy
	mailer   email.EmailService
	loginURL string
	cache    *cache.QueryCache
	logger   zerolog.Logger
}

// NewAccountService creates a new AccountService
func NewAccountService(
	store AccountStore,
	schema listing.Schema,
	tokens TokenRevoker,
	policy PasswordPolicy,
	mailer email.EmailService,
	loginURL string,
	queryCache *cache.QueryCache,
	logger zerolog.Logger,
) AccountService {
	return &accountServiceImpl{
		ResourceService: NewResourceService[models.UserAccount](store, queryCache, ResourceConfig[models.UserAccount]{
			Name:       ResUserAccounts,
			Schema:     schema,
			SetID:      func(a *models.UserAccount, id int64) { a.ID = id },
			Dependents: []string{ResDirectory},
		}, logger),
		store:    store,
		tokens:   tokens,
		policy:   policy,
		mailer:   mailer,
		loginURL: loginURL,
		cache:    queryCache,
		logger:   logger,
	}
}

func (s *accountServiceImpl) minPasswordLength(ctx context.Context) int {
	if s.policy != nil {
		if n := s.policy.Int(ctx, models.SettingsSecurity, "minPasswordLength"); n > 0 {
			return n
		}
	}
	return validation.PasswordMinLength
}

// newPassword returns the hash of password, or of a generated one which is
// then also returned in plain text for the single response that shows it.
func (s *accountServiceImpl) newPassword(ctx context.Context, password string) (hash, generated string, err error) {
	minLen := s.minPasswordLength(ctx)
	if password == "" {
		length := auth.TemporaryPasswordLength
		if minLen > length {
			length = minLen
		}
		if generated, err = auth.GenerateTemporaryPassword(length); err != nil {
			return "", "", fmt.Errorf("error generating password: %w", err)
		}
		password = generated
	} else if err := auth.ValidatePassword(password, minLen); err != nil {
		return "", "", apperrors.NewValidationError(err.Error(), map[string]interface{}{"password": err.Error()})
	}

	if hash, err = auth.HashPassword(password); err != nil {
		return "", "", fmt.Errorf("error hashing password: %w", err)
	}
	return hash, generated, nil
}

// checkPerson enforces that person-backed roles point at an existing person
// and staff roles point at none.
func checkPerson(role models.Role, personID *int64) (*int64, error) {
	if !role.Valid() {
		return nil, fieldErrors{"role": fmt.Sprintf("unknown role %q", role)}.err()
	}
	if role.IsStaff() {
		return nil, nil
	}
	if personID == nil || *personID <= 0 {
		return nil, fieldErrors{"personId": fmt.Sprintf("is required for role %s", role)}.err()
	}
	return personID, nil
}

// Create adds one account. The generated password, if any, is only in the response.
func (s *accountServiceImpl) Create(ctx context.Context, req dto.CreateAccountRequest) (*dto.AccountCreatedResponse, error) {
	personID, err := checkPerson(req.Role, req.PersonID)
	if err != nil {
		return nil, err
	}
	hash, generated, err := s.newPassword(ctx, req.Password)
	if err != nil {
		return nil, err
	}

	account := &models.UserAccount{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         req.Role,
		IsActive:     true,
		PersonID:     personID,
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if personID != nil {
			if _, _, err := s.store.PersonContact(ctx, tx, req.Role, *personID); err != nil {
				return err
			}
		}
		id, err := s.store.CreateWithHash(ctx, tx, account)
		if err != nil {
			return err
		}
		account.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, ResUserAccounts, ResDirectory)
	s.logger.Info().Int64("accountID", account.ID).Str("role", string(account.Role)).
		Str("email", auth.MaskEmail(account.Email)).Msg("User account created")
	s.notifyAccount(account)

	created, err := s.store.GetByID(ctx, account.ID)
	if err != nil {
		created = account
	}
	return &dto.AccountCreatedResponse{Account: created, InitialPassword: generated}, nil
}

// Update replaces email, role, person and active flag.
func (s *accountServiceImpl) Update(ctx context.Context, id int64, req dto.UpdateAccountRequest) (*models.UserAccount, error) {
	personID, err := checkPerson(req.Role, req.PersonID)
	if err != nil {
		return nil, err
	}
	account, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	account.Email = strings.ToLower(strings.TrimSpace(req.Email))
	account.Role = req.Role
	account.PersonID = personID
	account.IsActive = req.IsActive
	if err := s.store.Update(ctx, account); err != nil {
		return nil, err
	}
	if !account.IsActive {
		s.revokeTokens(ctx, id)
	}
	s.cache.Invalidate(ctx, ResUserAccounts, ResDirectory)
	return s.store.GetByID(ctx, id)
}

// SetStatus enables or disables an account. Disabling also ends its sessions.
func (s *accountServiceImpl) SetStatus(ctx context.Context, id int64, active bool) (*models.UserAccount, error) {
	if err := s.store.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	if !active {
		s.revokeTokens(ctx, id)
	}
	s.cache.Invalidate(ctx, ResUserAccounts, ResDirectory)
	s.logger.Info().Int64("accountID", id).Bool("active", active).Msg("User account status changed")
	return s.store.GetByID(ctx, id)
}

// ResetPassword sets a new temporary password and revokes the refresh tokens.
func (s *accountServiceImpl) ResetPassword(ctx context.Context, id int64) (*dto.AccountCreatedResponse, error) {
	account, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	hash, generated, err := s.newPassword(ctx, "")
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdatePassword(ctx, id, hash); err != nil {
		return nil, err
	}
	s.revokeTokens(ctx, id)
	s.logger.Info().Int64("accountID", id).Msg("Password reset")
	return &dto.AccountCreatedResponse{Account: account, InitialPassword: generated}, nil
}

// BulkCreate creates an account for every listed person. Each person runs in
// its own transaction; the response reports every item.
func (s *accountServiceImpl) BulkCreate(ctx context.Context, req dto.BulkCreateAccountsRequest) (*dto.BulkCreateAccountsResponse, error) {
	if req.Role.IsStaff() || !req.Role.Valid() {
		return nil, fieldErrors{"role": "bulk creation is for teachers, students and guardians"}.err()
	}

	resp := &dto.BulkCreateAccountsResponse{Items: make([]dto.BulkItemResult, 0, len(req.PersonIDs))}
	seen := make(map[int64]bool, len(req.PersonIDs))
	var created []*models.UserAccount

	for _, personID := range req.PersonIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if seen[personID] {
			resp.Add(dto.BulkItemResult{PersonID: personID, Status: dto.BulkSkipped, Error: "listed more than once"})
			continue
		}
		seen[personID] = true

		item, account := s.createForPerson(ctx, req.Role, personID)
		resp.Add(item)
		if account != nil {
			created = append(created, account)
		}
	}

	if resp.Created > 0 {
		s.cache.Invalidate(ctx, ResUserAccounts, ResDirectory)
	}
	s.logger.Info().Str("role", string(req.Role)).
		Int("created", resp.Created).Int("skipped", resp.Skipped).Int("failed", resp.Failed).
		Msg("Bulk account creation finished")
	for _, account := range created {
		s.notifyAccount(account)
	}
	return resp, nil
}

var errNoEmail = errors.New("person has no email address")

func (s *accountServiceImpl) createForPerson(ctx context.Context, role models.Role, personID int64) (dto.BulkItemResult, *models.UserAccount) {
	item := dto.BulkItemResult{PersonID: personID}
	hash, generated, err := s.newPassword(ctx, "")
	if err != nil {
		item.Status, item.Error = dto.BulkFailed, "could not generate a password"
		return item, nil
	}

	var account *models.UserAccount
	skipped := false
	err = s.store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		exists, err := s.store.ExistsForPerson(ctx, tx, role, personID)
		if err != nil {
			return err
		}
		if exists {
			skipped = true
			return nil
		}

		_, address, err := s.store.PersonContact(ctx, tx, role, personID)
		if err != nil {
			return err
		}
		if address == "" {
			return errNoEmail
		}

		account = &models.UserAccount{
			Email:        strings.ToLower(address),
			PasswordHash: hash,
			Role:         role,
			IsActive:     true,
			PersonID:     &personID,
		}
		id, err := s.store.CreateWithHash(ctx, tx, account)
		if err != nil {
			return err
		}
		account.ID = id
		return nil
	})

	switch {
	case err == nil && skipped:
		item.Status, item.Error = dto.BulkSkipped, "already has an account"
		return item, nil
	case errors.Is(err, apperrors.ErrAccountExists):
		item.Status, item.Error = dto.BulkSkipped, "already has an account"
		return item, nil
	case err != nil:
		item.Status, item.Error = dto.BulkFailed, bulkErrorMessage(err)
		s.logger.Warn().Err(err).Int64("personID", personID).Msg("Bulk account item failed")
		return item, nil
	}

	item.Status = dto.BulkCreated
	item.AccountID = account.ID
	item.Email = account.Email
	item.InitialPassword = generated
	return item, account
}

// bulkErrorMessage keeps internal details out of the per-item result.
func bulkErrorMessage(err error) string {
	switch {
	case errors.Is(err, errNoEmail):
		return errNoEmail.Error()
	case errors.Is(err, apperrors.ErrResourceNotFound):
		return "person not found"
	case errors.Is(err, apperrors.ErrEmailAlreadyExists):
		return "email address is already used by another account"
	}
	return "could not create account"
}

func (s *accountServiceImpl) revokeTokens(ctx context.Context, id int64) {
	if s.tokens == nil {
		return
	}
	if err := s.tokens.RevokeAllAccountTokens(ctx, id); err != nil {
		s.logger.Warn().Err(err).Int64("accountID", id).Msg("Could not revoke refresh tokens")
	}
}

// notifyAccount tells the owner an account exists. The password is never mailed.
func (s *accountServiceImpl) notifyAccount(account *models.UserAccount) {
	if s.mailer == nil || !s.mailer.Enabled() {
		return
	}
	go func() {
		if err := s.mailer.SendAccountNotice(account.Email, string(account.Role), s.loginURL); err != nil {
			s.logger.Warn().Err(err).Int64("accountID", account.ID).Msg("Could not send account notice")
		}
	}()
}
