package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/uni-obs/curricula-api/internal/models"
	appErrors "github.com/uni-obs/curricula-api/pkg/errors"
)

type mockAuthUsers struct {
	byUsername map[string]*models.User
	lastLogin  *time.Time
}

func (m *mockAuthUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if u, ok := m.byUsername[username]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range m.byUsername {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUsers) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLogin = &ts
	return nil
}

func (m *mockAuthUsers) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	for _, u := range m.byUsername {
		if u.ID == id {
			u.PasswordHash = passwordHash
		}
	}
	return nil
}

type mockAuthTokens struct {
	tokens  map[string]*models.RefreshToken
	revoked []string
	audits  []models.AuditLog
}

func (m *mockAuthTokens) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.tokens == nil {
		m.tokens = make(map[string]*models.RefreshToken)
	}
	m.tokens[token.Token] = token
	return nil
}

func (m *mockAuthTokens) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.tokens[token]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthTokens) RevokeRefreshToken(ctx context.Context, token string) error {
	m.revoked = append(m.revoked, token)
	delete(m.tokens, token)
	return nil
}

func (m *mockAuthTokens) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	for k, t := range m.tokens {
		if t.UserID == userID {
			m.revoked = append(m.revoked, k)
			delete(m.tokens, k)
		}
	}
	return nil
}

func (m *mockAuthTokens) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	m.audits = append(m.audits, *entry)
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *mockAuthUsers, *mockAuthTokens) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	users := &mockAuthUsers{byUsername: map[string]*models.User{
		"jdoe": {ID: "u1", Username: "jdoe", PasswordHash: string(hash), FullName: "J. Doe", Role: models.RoleLecturer, Active: true},
	}}
	tokens := &mockAuthTokens{}
	svc := NewAuthService(users, tokens, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "curricula-api-test",
	})
	return svc, users, tokens
}

func TestLoginIssuesTokens(t *testing.T) {
	svc, users, tokens := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "jdoe", Password: "correct-horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "jdoe", resp.User.Username)
	assert.NotNil(t, users.lastLogin)
	require.Len(t, tokens.audits, 1)
	assert.Equal(t, models.AuditActionLogin, tokens.audits[0].Action)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleLecturer, claims.Role)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "jdoe", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	svc, users, _ := newAuthFixture(t)
	users.byUsername["jdoe"].Active = false

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "jdoe", Password: "correct-horse"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _, tokens := newAuthFixture(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{Username: "jdoe", Password: "correct-horse"})
	require.NoError(t, err)

	resp, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, resp.RefreshToken)
	assert.Contains(t, tokens.revoked, login.RefreshToken, "used refresh token must be revoked")

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	svc, users, tokens := newAuthFixture(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{Username: "jdoe", Password: "correct-horse"})
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{
		OldPassword: "correct-horse",
		NewPassword: "new-password",
	})
	require.NoError(t, err)
	assert.Contains(t, tokens.revoked, login.RefreshToken)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users.byUsername["jdoe"].PasswordHash), []byte("new-password")))
}
