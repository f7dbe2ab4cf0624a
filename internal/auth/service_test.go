package auth_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avery/hireflow/internal/auth"
	"github.com/avery/hireflow/internal/database/models"
	"github.com/avery/hireflow/internal/membership"
	"github.com/avery/hireflow/internal/testutil"
)

func newAuthService(t *testing.T) (*auth.Service, *testutil.TestSetup) {
	t.Helper()
	tc := testutil.NewTestContext(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ledger := membership.NewService(tc.DB, logger)
	return auth.NewService(tc.DB, tc.JWTService, ledger), tc
}

func TestRegister(t *testing.T) {
	svc, tc := newAuthService(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	resp, err := svc.Register(ctx, auth.RegisterInput{
		Email:       "founder@example.com",
		Password:    "supersecret",
		Name:        "Founder",
		CompanyName: "Acme Recruiting",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	// Registration creates the company and the admin membership atomically.
	require.NotNil(t, resp.Membership)
	assert.Equal(t, models.RoleAdmin, resp.Membership.Role)
	assert.Equal(t, models.MembershipActive, resp.Membership.Status)
	require.NotNil(t, resp.Membership.Company)
	assert.Equal(t, "Acme Recruiting", resp.Membership.Company.Name)

	// The token is scoped to the new company.
	claims, err := tc.JWTService.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.Membership.CompanyID, claims.CompanyID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	// Duplicate email is refused.
	_, err = svc.Register(ctx, auth.RegisterInput{
		Email:    "founder@example.com",
		Password: "supersecret",
		Name:     "Imposter",
	})
	assert.ErrorIs(t, err, auth.ErrUserExists)
}

func TestLogin(t *testing.T) {
	svc, tc := newAuthService(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	// Fixture admin uses the testutil password.
	resp, err := svc.Login(ctx, auth.LoginInput{
		Email:    tc.Admin.Email,
		Password: "testpassword123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	require.NotNil(t, resp.Membership)
	assert.Equal(t, tc.Company.ID, resp.Membership.CompanyID)

	_, err = svc.Login(ctx, auth.LoginInput{
		Email:    tc.Admin.Email,
		Password: "wrong",
	})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = svc.Login(ctx, auth.LoginInput{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLoginWithoutMembership(t *testing.T) {
	svc, tc := newAuthService(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	user := testutil.CreateTestUser(t, tc.DB, "solo@example.com")

	resp, err := svc.Login(ctx, auth.LoginInput{
		Email:    user.Email,
		Password: "testpassword123",
	})
	require.NoError(t, err)
	assert.Nil(t, resp.Membership)

	// The issued token carries a nil company.
	claims, err := tc.JWTService.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, claims.CompanyID)
}
