package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/madrasa/internal/app/models"
)

func newTestJWT(exp time.Duration) *JWTService {
	return NewJWTService(JWTConfig{
		SecretKey:       "test-secret-key-with-enough-length",
		AccessTokenExp:  exp,
		RefreshTokenExp: time.Hour,
		TokenIssuer:     "madrasa.test",
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	personID := int64(42)
	tests := []struct {
		name    string
		account models.UserAccount
		want    models.Participant
	}{
		{
			name:    "teacher uses person id",
			account: models.UserAccount{ID: 7, Email: "t@madrasa.nl", Role: models.RoleTeacher, PersonID: &personID},
			want:    models.Participant{ID: 42, Role: models.RoleTeacher},
		},
		{
			name:    "secretariat uses account id",
			account: models.UserAccount{ID: 3, Email: "s@madrasa.nl", Role: models.RoleSecretariat},
			want:    models.Participant{ID: 3, Role: models.RoleSecretariat},
		},
	}
	svc := newTestJWT(time.Minute)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, err := svc.GenerateTokenPair(&tt.account)
			require.NoError(t, err)
			assert.NotEmpty(t, pair.RefreshToken)
			assert.Equal(t, 60, pair.ExpiresIn)

			claims, err := svc.ValidateAndExtractClaims(pair.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, tt.account.ID, claims.AccountID)
			assert.Equal(t, tt.want, claims.Participant())
		})
	}
}

func TestValidateToken_Errors(t *testing.T) {
	svc := newTestJWT(-time.Minute)
	pair, err := svc.GenerateTokenPair(&models.UserAccount{ID: 1, Email: "a@b.nl", Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = svc.ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)

	other := NewJWTService(JWTConfig{SecretKey: "another-secret", AccessTokenExp: time.Minute, TokenIssuer: "madrasa.test"})
	fresh, err := other.GenerateTokenPair(&models.UserAccount{ID: 1, Email: "a@b.nl", Role: models.RoleAdmin})
	require.NoError(t, err)
	_, err = newTestJWT(time.Minute).ValidateToken(fresh.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer a.b.c", "a.b.c", false},
		{"a.b.c", "a.b.c", false},
		{`"Bearer a.b.c"`, "a.b.c", false},
		{"", "", true},
		{"Basic dXNlcg==", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, err := ExtractBearerToken(tt.header)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateTemporaryPassword(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		pw, err := GenerateTemporaryPassword(TemporaryPasswordLength)
		require.NoError(t, err)
		assert.Len(t, pw, TemporaryPasswordLength)
		assert.NoError(t, ValidatePassword(pw, 8))
		assert.False(t, seen[pw], "passwords repeat")
		seen[pw] = true
	}

	short, err := GenerateTemporaryPassword(3)
	require.NoError(t, err)
	assert.Len(t, short, 8)
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("Bismillah2025", 8))
	assert.ErrorIs(t, ValidatePassword("Ab1", 8), ErrWeakPassword)
	assert.ErrorIs(t, ValidatePassword("alllowercase1", 8), ErrWeakPassword)
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Geheim123")
	require.NoError(t, err)
	assert.NotEqual(t, "Geheim123", hash)
	assert.True(t, CheckPassword(hash, "Geheim123"))
	assert.False(t, CheckPassword(hash, "geheim123"))
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "s***@madrasa.nl", MaskEmail("secretariaat@madrasa.nl"))
	assert.Equal(t, "***@x.nl", MaskEmail("a@x.nl"))
}
