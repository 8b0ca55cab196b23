package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/models"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/testutil"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want apperr.Kind
	}{
		{gorm.ErrRecordNotFound, apperr.KindNotFound},
		{fmt.Errorf("select: %w", context.DeadlineExceeded), apperr.KindTimeout},
		{context.Canceled, apperr.KindUnavailable},
		{&pgconn.PgError{Code: "23505"}, apperr.KindConflict},
		{gorm.ErrDuplicatedKey, apperr.KindConflict},
		{driver.ErrBadConn, apperr.KindUnavailable},
		{apperr.PreconditionFailed("insufficient wallet balance"), apperr.KindPreconditionFailed},
		{errors.New("syntax error"), apperr.KindInternal},
	}
	for _, tc := range cases {
		got := Classify(tc.err)
		assert.Equal(t, tc.want, apperr.KindOf(got), "%v", tc.err)
	}
	assert.NoError(t, Classify(nil))
}

func TestBounded(t *testing.T) {
	ctx, cancel := Bounded(context.Background(), 0)
	defer cancel()
	_, ok := ctx.Deadline()
	assert.False(t, ok)

	ctx2, cancel2 := Bounded(context.Background(), time.Second)
	defer cancel2()
	_, ok = ctx2.Deadline()
	assert.True(t, ok)
}

func TestDetached_OutlivesExpiredParent(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-parent.Done()

	ctx, cancelDetached := Detached(parent, time.Second)
	defer cancelDetached()
	assert.NoError(t, ctx.Err())
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 500*time.Millisecond)
}

func TestNormalizeLegacyStatuses(t *testing.T) {
	gdb := testutil.NewDB(t)
	ctx := context.Background()
	u := testutil.Tasker(t, gdb)
	w := testutil.Withdrawal(t, gdb, u.ID, 1000)

	// Raw SQL bypasses the Valuer, as older writers did.
	require.NoError(t, gdb.Exec(
		"UPDATE users SET tasker_application_status = ?, verification_level3_status = ?, role = ? WHERE id = ?",
		"approved", "VERIFIED", "admin", u.ID).Error)
	require.NoError(t, gdb.Exec("UPDATE withdrawals SET status = ? WHERE id = ?", "pending", w.ID).Error)

	n, err := NormalizeLegacyStatuses(ctx, gdb)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	var app, lvl3, role string
	require.NoError(t, gdb.Raw(
		"SELECT tasker_application_status, verification_level3_status, role FROM users WHERE id = ?", u.ID).
		Row().Scan(&app, &lvl3, &role))
	assert.Equal(t, "Approved", app)
	assert.Equal(t, "Verified", lvl3)
	assert.Equal(t, "ADMIN", role)

	var st string
	require.NoError(t, gdb.Raw("SELECT status FROM withdrawals WHERE id = ?", w.ID).Row().Scan(&st))
	assert.Equal(t, string(models.WithdrawalPending), st)

	n, err = NormalizeLegacyStatuses(ctx, gdb)
	require.NoError(t, err)
	assert.Zero(t, n)
}
