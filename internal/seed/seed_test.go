package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appModels "github.com/yigit/madrasa/internal/app/models"
	"github.com/yigit/madrasa/internal/db"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
	"github.com/yigit/madrasa/internal/pkg/auth"
)

type fakeAdmins struct {
	byEmail map[string]*appModels.UserAccount
	created []*appModels.UserAccount
	findErr error
}

func (f *fakeAdmins) FindByEmail(_ context.Context, email string) (*appModels.UserAccount, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if a, ok := f.byEmail[email]; ok {
		return a, nil
	}
	return nil, apperrors.NewResourceNotFoundError("user account not found")
}

func (f *fakeAdmins) CreateWithHash(_ context.Context, _ db.Querier, a *appModels.UserAccount) (int64, error) {
	f.created = append(f.created, a)
	return int64(len(f.created)), nil
}

func TestCreateDefaultAdmin(t *testing.T) {
	ctx := context.Background()
	lgr := zerolog.Nop()

	t.Run("not configured", func(t *testing.T) {
		store := &fakeAdmins{}
		require.NoError(t, CreateDefaultAdmin(ctx, store, nil, "", "", lgr))
		require.NoError(t, CreateDefaultAdmin(ctx, store, nil, "admin@madrasa.nl", "", lgr))
		assert.Empty(t, store.created)
	})

	t.Run("creates active admin with hashed password", func(t *testing.T) {
		store := &fakeAdmins{}
		require.NoError(t, CreateDefaultAdmin(ctx, store, nil, " admin@madrasa.nl ", "Bismillah2025", lgr))
		require.Len(t, store.created, 1)
		admin := store.created[0]
		assert.Equal(t, "admin@madrasa.nl", admin.Email)
		assert.Equal(t, appModels.RoleAdmin, admin.Role)
		assert.True(t, admin.IsActive)
		assert.NotEqual(t, "Bismillah2025", admin.PasswordHash)
		assert.True(t, auth.CheckPassword(admin.PasswordHash, "Bismillah2025"))
	})

	t.Run("existing account untouched", func(t *testing.T) {
		store := &fakeAdmins{byEmail: map[string]*appModels.UserAccount{
			"admin@madrasa.nl": {ID: 1, Email: "admin@madrasa.nl", Role: appModels.RoleAdmin},
		}}
		require.NoError(t, CreateDefaultAdmin(ctx, store, nil, "admin@madrasa.nl", "Bismillah2025", lgr))
		assert.Empty(t, store.created)
	})

	t.Run("weak password rejected", func(t *testing.T) {
		store := &fakeAdmins{}
		err := CreateDefaultAdmin(ctx, store, nil, "admin@madrasa.nl", "admin", lgr)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrWeakPassword)
		assert.Empty(t, store.created)
	})

	t.Run("lookup failure", func(t *testing.T) {
		store := &fakeAdmins{findErr: errors.New("connection refused")}
		assert.Error(t, CreateDefaultAdmin(ctx, store, nil, "admin@madrasa.nl", "Bismillah2025", lgr))
	})
}
