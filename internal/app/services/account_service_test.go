package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/madrasa/internal/app/models"
	"github.com/yigit/madrasa/internal/app/models/dto"
	"github.com/yigit/madrasa/internal/db"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
	"github.com/yigit/madrasa/internal/pkg/auth"
	"github.com/yigit/madrasa/internal/pkg/listing"
)

type person struct {
	name  string
	email string
}

type fakeAccountStore struct {
	*memStore[models.UserAccount]
	people     map[models.Role]map[int64]person
	lastLogins int
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{
		memStore: newMemStore(
			func(a *models.UserAccount) int64 { return a.ID },
			func(a *models.UserAccount, id int64) { a.ID = id },
		),
		people: map[models.Role]map[int64]person{
			models.RoleStudent: {
				1: {"Yusuf El Amrani", "yusuf@example.nl"},
				2: {"Maryam Jansen", ""},
				3: {"Ibrahim Visser", "ibrahim@example.nl"},
			},
			models.RoleGuardian: {
				7: {"Fatima de Vries", "fatima@example.nl"},
			},
		},
	}
}

func (s *fakeAccountStore) WithTx(ctx context.Context, fn db.TransactionFn) error {
	return fn(ctx, nil)
}

func (s *fakeAccountStore) CreateWithHash(ctx context.Context, _ db.Querier, a *models.UserAccount) (int64, error) {
	if _, err := s.FindByEmail(ctx, a.Email); err == nil {
		return 0, apperrors.ErrEmailAlreadyExists
	}
	return s.Create(ctx, a)
}

func (s *fakeAccountStore) ExistsForPerson(_ context.Context, _ db.Querier, role models.Role, personID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.items {
		if a.Role == role && a.PersonID != nil && *a.PersonID == personID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeAccountStore) PersonContact(_ context.Context, _ db.Querier, role models.Role, personID int64) (string, string, error) {
	p, ok := s.people[role][personID]
	if !ok {
		return "", "", apperrors.NewResourceNotFoundError("person not found")
	}
	return p.name, p.email, nil
}

func (s *fakeAccountStore) FindByEmail(_ context.Context, email string) (*models.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.items {
		if strings.EqualFold(a.Email, email) {
			found := a
			return &found, nil
		}
	}
	return nil, apperrors.NewResourceNotFoundError("account not found")
}

func (s *fakeAccountStore) UpdatePassword(_ context.Context, id int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.items[id]
	if !ok {
		return apperrors.NewResourceNotFoundError("account not found")
	}
	a.PasswordHash = hash
	s.items[id] = a
	return nil
}

func (s *fakeAccountStore) SetActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.items[id]
	if !ok {
		return apperrors.NewResourceNotFoundError("account not found")
	}
	a.IsActive = active
	s.items[id] = a
	return nil
}

func (s *fakeAccountStore) UpdateLastLogin(context.Context, int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLogins++
	return nil
}

type fakeTokens struct {
	mu      sync.Mutex
	owners  map[string]int64
	revoked []int64
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{owners: map[string]int64{}}
}

func (t *fakeTokens) RevokeAllAccountTokens(_ context.Context, accountID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.revoked = append(t.revoked, accountID)
	for token, owner := range t.owners {
		if owner == accountID {
			delete(t.owners, token)
		}
	}
	return nil
}

func (t *fakeTokens) CreateToken(_ context.Context, token string, accountID int64, _ time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.owners[token] = accountID
	return nil
}

func (t *fakeTokens) GetTokenOwner(_ context.Context, token string) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	owner, ok := t.owners[token]
	if !ok {
		return 0, apperrors.ErrTokenInvalid
	}
	return owner, nil
}

func (t *fakeTokens) RotateToken(_ context.Context, oldToken, newToken string, _ time.Time) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	owner, ok := t.owners[oldToken]
	if !ok {
		return 0, apperrors.ErrTokenRevoked
	}
	delete(t.owners, oldToken)
	t.owners[newToken] = owner
	return owner, nil
}

func (t *fakeTokens) RevokeToken(_ context.Context, token string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.owners, token)
	return nil
}

type fixedPolicy int

func (p fixedPolicy) Int(context.Context, string, string) int { return int(p) }

func newTestAccountService(store *fakeAccountStore, tokens *fakeTokens, policy PasswordPolicy) AccountService {
	return NewAccountService(store, listing.Schema{}, tokens, policy, nil, "", newTestCache(), zerolog.Nop())
}

func int64Ptr(v int64) *int64 { return &v }

func TestAccountCreate_GeneratedPasswordIsHashedOnly(t *testing.T) {
	store := newFakeAccountStore()
	svc := newTestAccountService(store, newFakeTokens(), fixedPolicy(16))

	resp, err := svc.Create(context.Background(), dto.CreateAccountRequest{
		Email: "  Fatima@Example.nl ", Role: models.RoleGuardian, PersonID: int64Ptr(7),
	})
	require.NoError(t, err)

	require.Len(t, resp.InitialPassword, 16)
	assert.NoError(t, auth.ValidatePassword(resp.InitialPassword, 16))
	assert.Equal(t, "fatima@example.nl", resp.Account.Email)

	stored, err := store.GetByID(context.Background(), resp.Account.ID)
	require.NoError(t, err)
	assert.NotEqual(t, resp.InitialPassword, stored.PasswordHash)
	assert.True(t, auth.CheckPassword(stored.PasswordHash, resp.InitialPassword))
}

func TestAccountCreate_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  dto.CreateAccountRequest
		err  error
	}{
		{"guardian without person", dto.CreateAccountRequest{Email: "a@b.nl", Role: models.RoleGuardian}, apperrors.ErrValidationFailed},
		{"unknown person", dto.CreateAccountRequest{Email: "a@b.nl", Role: models.RoleStudent, PersonID: int64Ptr(99)}, apperrors.ErrResourceNotFound},
		{"weak password", dto.CreateAccountRequest{Email: "a@b.nl", Role: models.RoleAdmin, Password: "short"}, apperrors.ErrValidationFailed},
		{"unknown role", dto.CreateAccountRequest{Email: "a@b.nl", Role: "janitor"}, apperrors.ErrValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeAccountStore()
			svc := newTestAccountService(store, newFakeTokens(), nil)

			_, err := svc.Create(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.err)
			assert.Zero(t, store.inserts)
		})
	}
}

func TestAccountCreate_StaffIgnoresPerson(t *testing.T) {
	store := newFakeAccountStore()
	svc := newTestAccountService(store, newFakeTokens(), nil)

	resp, err := svc.Create(context.Background(), dto.CreateAccountRequest{
		Email: "office@example.nl", Role: models.RoleSecretariat, PersonID: int64Ptr(7), Password: "Kantoor-2025!x",
	})
	require.NoError(t, err)
	assert.Nil(t, resp.Account.PersonID)
	assert.Empty(t, resp.InitialPassword, "a chosen password is never echoed")
	assert.Equal(t, models.Participant{ID: resp.Account.ID, Role: models.RoleSecretariat}, resp.Account.Participant())
}

func TestAccountBulkCreate_ReportsEveryItem(t *testing.T) {
	store := newFakeAccountStore()
	svc := newTestAccountService(store, newFakeTokens(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, dto.CreateAccountRequest{Email: "ibrahim@example.nl", Role: models.RoleStudent, PersonID: int64Ptr(3)})
	require.NoError(t, err)

	resp, err := svc.BulkCreate(ctx, dto.BulkCreateAccountsRequest{
		Role:      models.RoleStudent,
		PersonIDs: []int64{1, 2, 3, 42, 1},
	})
	require.NoError(t, err)

	require.Len(t, resp.Items, 5)
	assert.Equal(t, 1, resp.Created)
	assert.Equal(t, 2, resp.Skipped)
	assert.Equal(t, 2, resp.Failed)

	want := []struct {
		status string
		error  string
	}{
		{dto.BulkCreated, ""},
		{dto.BulkFailed, "person has no email address"},
		{dto.BulkSkipped, "already has an account"},
		{dto.BulkFailed, "person not found"},
		{dto.BulkSkipped, "listed more than once"},
	}
	for i, w := range want {
		assert.Equal(t, w.status, resp.Items[i].Status, "item %d", i)
		assert.Equal(t, w.error, resp.Items[i].Error, "item %d", i)
	}

	created := resp.Items[0]
	assert.Equal(t, "yusuf@example.nl", created.Email)
	assert.NoError(t, auth.ValidatePassword(created.InitialPassword, 8))
	account, err := store.FindByEmail(ctx, created.Email)
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(account.PasswordHash, created.InitialPassword))
	assert.Empty(t, resp.Items[2].InitialPassword)
}

func TestAccountBulkCreate_RejectsStaffRoles(t *testing.T) {
	svc := newTestAccountService(newFakeAccountStore(), newFakeTokens(), nil)

	_, err := svc.BulkCreate(context.Background(), dto.BulkCreateAccountsRequest{
		Role: models.RoleAdmin, PersonIDs: []int64{1},
	})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestAccountSetStatus_DisablingRevokesTokens(t *testing.T) {
	store := newFakeAccountStore()
	tokens := newFakeTokens()
	svc := newTestAccountService(store, tokens, nil)
	ctx := context.Background()

	resp, err := svc.Create(ctx, dto.CreateAccountRequest{Email: "fatima@example.nl", Role: models.RoleGuardian, PersonID: int64Ptr(7)})
	require.NoError(t, err)

	account, err := svc.SetStatus(ctx, resp.Account.ID, false)
	require.NoError(t, err)
	assert.False(t, account.IsActive)
	assert.Equal(t, []int64{resp.Account.ID}, tokens.revoked)

	_, err = svc.SetStatus(ctx, resp.Account.ID, true)
	require.NoError(t, err)
	assert.Len(t, tokens.revoked, 1, "enabling does not revoke")
}

func TestAccountResetPassword(t *testing.T) {
	store := newFakeAccountStore()
	tokens := newFakeTokens()
	svc := newTestAccountService(store, tokens, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, dto.CreateAccountRequest{Email: "fatima@example.nl", Role: models.RoleGuardian, PersonID: int64Ptr(7)})
	require.NoError(t, err)

	reset, err := svc.ResetPassword(ctx, created.Account.ID)
	require.NoError(t, err)
	assert.NotEqual(t, created.InitialPassword, reset.InitialPassword)

	stored, err := store.GetByID(ctx, created.Account.ID)
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(stored.PasswordHash, reset.InitialPassword))
	assert.False(t, auth.CheckPassword(stored.PasswordHash, created.InitialPassword))
	assert.Equal(t, []int64{created.Account.ID}, tokens.revoked)
}
