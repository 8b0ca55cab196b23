// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/models"
)

// NewDB returns a migrated in-memory store private to the test. A single
// connection serialises transactions the way row locks do in postgres.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, gdb.AutoMigrate(models.All()...))
	return gdb
}

func Logger() *zap.Logger { return zap.NewNop() }

// StallReadsAfterUpdate delays every query issued after the first UPDATE by
// d, simulating a store that turns slow right after a write commits. The
// returned func switches the delay off again.
func StallReadsAfterUpdate(t *testing.T, gdb *gorm.DB, d time.Duration) (release func()) {
	t.Helper()

	var armed atomic.Bool
	require.NoError(t, gdb.Callback().Update().After("gorm:update").
		Register("testutil:arm_stall", func(*gorm.DB) { armed.Store(true) }))
	require.NoError(t, gdb.Callback().Query().Before("gorm:query").
		Register("testutil:stall", func(*gorm.DB) {
			if armed.Load() {
				time.Sleep(d)
			}
		}))
	return func() { armed.Store(false) }
}

// Tasker creates a tasker with a pending application and all levels
// unverified. opts may adjust the record before insert.
func Tasker(t *testing.T, gdb *gorm.DB, opts ...func(*models.User)) *models.User {
	t.Helper()
	u := &models.User{
		Name:                    "Tasker " + uuid.NewString()[:8],
		Email:                   uuid.NewString() + "@tasker.test",
		Phone:                   "0812" + uuid.NewString()[:8],
		Role:                    models.RoleUser,
		IsTasker:                true,
		TaskerApplicationStatus: models.ApplicationPending,
	}
	for _, o := range opts {
		o(u)
	}
	require.NoError(t, gdb.Create(u).Error)
	return u
}

// Client creates a non-tasker user.
func Client(t *testing.T, gdb *gorm.DB, opts ...func(*models.User)) *models.User {
	t.Helper()
	u := &models.User{
		Name:  "Client " + uuid.NewString()[:8],
		Email: uuid.NewString() + "@client.test",
		Role:  models.RoleUser,
	}
	for _, o := range opts {
		o(u)
	}
	require.NoError(t, gdb.Create(u).Error)
	return u
}

// Withdrawal creates a pending withdrawal for userID.
func Withdrawal(t *testing.T, gdb *gorm.DB, userID uuid.UUID, amount int64) *models.Withdrawal {
	t.Helper()
	w := &models.Withdrawal{
		UserID:        userID,
		Amount:        amount,
		BankName:      "BCA",
		AccountName:   "Test Account",
		AccountNumber: "1234567890",
	}
	require.NoError(t, gdb.Create(w).Error)
	return w
}

// Reload reads the current row for u.
func Reload(t *testing.T, gdb *gorm.DB, id uuid.UUID) *models.User {
	t.Helper()
	var u models.User
	require.NoError(t, gdb.WithContext(context.Background()).First(&u, "id = ?", id).Error)
	return &u
}
