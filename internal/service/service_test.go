package service

import (
	"testing"
	"time"

	"github.com/cardledger/internal/config"
	"github.com/cardledger/internal/database"
	"github.com/cardledger/internal/models"
	"github.com/cardledger/internal/repository"
	"github.com/cardledger/internal/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db         *gorm.DB
	users      *repository.UserRepository
	store      *session.MemoryStore
	auth       *AuthService
	categories *CategoryService
	usages     *UsageService
	clock      time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	env := &testEnv{
		db:    db,
		users: repository.NewUserRepository(db),
		store: session.NewMemoryStore(),
		clock: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}

	policy := session.Policy{
		Inactivity:    7 * 24 * time.Hour,
		EphemeralIdle: 24 * time.Hour,
		TokenLifetime: 30 * 24 * time.Hour,
	}
	jwtCfg := config.JWTConfig{Secret: "test-secret", ExpireHours: 720, Issuer: "cardledger"}

	env.auth = NewAuthService(env.users, env.store, policy, jwtCfg)
	env.auth.now = func() time.Time { return env.clock }

	env.categories = NewCategoryService(repository.NewCategoryRepository(db))
	env.usages = NewUsageService(repository.NewUsageRepository(db), env.categories, time.UTC, 20)
	return env
}

// seedUser inserts a user directly, skipping the slow password hash
func (e *testEnv) seedUser(t *testing.T, username string, categories ...string) *models.User {
	t.Helper()
	user := &models.User{Username: username, PasswordHash: "unused"}
	require.NoError(t, e.users.CreateAccount(user, categories))
	return user
}

func (e *testEnv) addUsage(t *testing.T, userID uint, usedAt, amount string) *models.Usage {
	t.Helper()
	req := &UsageRequest{UsedAt: usedAt, Purpose: "업무"}
	if amount != "" {
		req.Amount = decimal.NewNullDecimal(decimal.RequireFromString(amount))
	}
	usage, err := e.usages.Create(userID, req)
	require.NoError(t, err)
	return usage
}

func strPtr(s string) *string { return &s }

func uintPtr(v uint) *uint { return &v }
