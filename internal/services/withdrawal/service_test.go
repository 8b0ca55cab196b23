package withdrawal

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/models"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/services/audit"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/services/payout"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/testutil"
)

type countingRail struct {
	calls atomic.Int32
	err   error
}

func (r *countingRail) Disburse(_ context.Context, d payout.Disbursement) (payout.Receipt, error) {
	n := r.calls.Add(1)
	if r.err != nil {
		return payout.Receipt{}, r.err
	}
	return payout.Receipt{Reference: fmt.Sprintf("REF-%s-%d", d.WithdrawalID.String()[:8], n)}, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (n *recordingNotifier) StatusChanged(_ context.Context, _ uuid.UUID, title, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.titles = append(n.titles, title)
}

func setup(t *testing.T) (*Service, *gorm.DB, *countingRail, *recordingNotifier) {
	t.Helper()
	gdb := testutil.NewDB(t)
	rail := &countingRail{}
	notifier := &recordingNotifier{}
	svc := NewService(gdb, rail, notifier, 5*time.Second, testutil.Logger())
	return svc, gdb, rail, notifier
}

func funded(balance int64) func(*models.User) {
	return func(u *models.User) { u.WalletBalance = balance }
}

func TestApprove_DebitsWalletAndStoresReference(t *testing.T) {
	svc, gdb, rail, notifier := setup(t)
	ctx := context.Background()
	u := testutil.Client(t, gdb, funded(100_000))
	w := testutil.Withdrawal(t, gdb, u.ID, 40_000)
	admin := uuid.New()

	res, err := svc.Approve(ctx, w.ID, admin)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, models.WithdrawalApproved, res.Withdrawal.Status)
	require.NotNil(t, res.Withdrawal.Reference)
	assert.NotEmpty(t, *res.Withdrawal.Reference)
	require.NotNil(t, res.Withdrawal.ApprovedBy)
	assert.Equal(t, admin, *res.Withdrawal.ApprovedBy)
	assert.Equal(t, int32(1), rail.calls.Load())

	assert.Equal(t, int64(60_000), testutil.Reload(t, gdb, u.ID).WalletBalance)

	var ledger []models.WalletTransaction
	require.NoError(t, gdb.Where("user_id = ?", u.ID).Find(&ledger).Error)
	require.Len(t, ledger, 1)
	assert.Equal(t, models.WalletTrxDebit, ledger[0].Type)
	assert.Equal(t, int64(40_000), ledger[0].Amount)

	events, err := audit.List(ctx, gdb, models.EntityWithdrawal, w.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Pending", events[0].FromValue)
	assert.Equal(t, "Approved", events[0].ToValue)
	assert.Equal(t, admin, events[0].ActorID)

	assert.Equal(t, []string{"Withdrawal approved"}, notifier.titles)
}

func TestApprove_AlreadyApprovedIsNoop(t *testing.T) {
	svc, gdb, rail, _ := setup(t)
	ctx := context.Background()
	u := testutil.Client(t, gdb, funded(50_000))
	w := testutil.Withdrawal(t, gdb, u.ID, 10_000)

	first, err := svc.Approve(ctx, w.ID, uuid.New())
	require.NoError(t, err)

	second, err := svc.Approve(ctx, w.ID, uuid.New())
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.Equal(t, *first.Withdrawal.Reference, *second.Withdrawal.Reference)
	assert.Equal(t, int32(1), rail.calls.Load())
	assert.Equal(t, int64(40_000), testutil.Reload(t, gdb, u.ID).WalletBalance)
}

func TestApprove_InsufficientBalanceRollsBack(t *testing.T) {
	svc, gdb, rail, _ := setup(t)
	ctx := context.Background()
	u := testutil.Client(t, gdb, funded(5_000))
	w := testutil.Withdrawal(t, gdb, u.ID, 10_000)

	_, err := svc.Approve(ctx, w.ID, uuid.New())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindPreconditionFailed))
	assert.Equal(t, int32(0), rail.calls.Load())

	got, err := svc.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalPending, got.Status)
	assert.Nil(t, got.Reference)
	assert.Equal(t, int64(5_000), testutil.Reload(t, gdb, u.ID).WalletBalance)
}

func TestApprove_RailFailureRollsBack(t *testing.T) {
	svc, gdb, rail, notifier := setup(t)
	ctx := context.Background()
	rail.err = apperr.New(apperr.KindUnavailable, "payment rail unreachable")
	u := testutil.Client(t, gdb, funded(20_000))
	w := testutil.Withdrawal(t, gdb, u.ID, 10_000)

	_, err := svc.Approve(ctx, w.ID, uuid.New())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUnavailable))

	got, err := svc.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalPending, got.Status)
	assert.Equal(t, int64(20_000), testutil.Reload(t, gdb, u.ID).WalletBalance)

	var ledger int64
	require.NoError(t, gdb.Model(&models.WalletTransaction{}).Where("user_id = ?", u.ID).Count(&ledger).Error)
	assert.Zero(t, ledger)

	events, err := audit.List(ctx, gdb, models.EntityWithdrawal, w.ID)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Empty(t, notifier.titles)
}

func TestApprove_ConcurrentCallsPayOutOnce(t *testing.T) {
	svc, gdb, rail, _ := setup(t)
	u := testutil.Client(t, gdb, funded(100_000))
	w := testutil.Withdrawal(t, gdb, u.ID, 30_000)

	const callers = 2
	var (
		wg      sync.WaitGroup
		results [callers]*Result
		errs    [callers]error
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = svc.Approve(context.Background(), w.ID, uuid.New())
		}(i)
	}
	close(start)
	wg.Wait()

	changed := 0
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			assert.True(t, apperr.Is(errs[i], apperr.KindConflict), "unexpected error: %v", errs[i])
			continue
		}
		if results[i].Changed {
			changed++
		}
	}
	assert.Equal(t, 1, changed)
	assert.Equal(t, int32(1), rail.calls.Load())
	assert.Equal(t, int64(70_000), testutil.Reload(t, gdb, u.ID).WalletBalance)
}

func TestApprove_RejectedIsPreconditionFailed(t *testing.T) {
	svc, gdb, rail, _ := setup(t)
	ctx := context.Background()
	u := testutil.Client(t, gdb, funded(50_000))
	w := testutil.Withdrawal(t, gdb, u.ID, 10_000)

	_, err := svc.Reject(ctx, w.ID, "", uuid.New())
	require.NoError(t, err)

	_, err = svc.Approve(ctx, w.ID, uuid.New())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindPreconditionFailed))
	assert.Equal(t, int32(0), rail.calls.Load())
}

func TestApprove_NotFound(t *testing.T) {
	svc, _, _, _ := setup(t)

	_, err := svc.Approve(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestReject_RetainsRecordWithReason(t *testing.T) {
	svc, gdb, _, notifier := setup(t)
	ctx := context.Background()
	u := testutil.Client(t, gdb, funded(50_000))
	w := testutil.Withdrawal(t, gdb, u.ID, 10_000)
	admin := uuid.New()

	res, err := svc.Reject(ctx, w.ID, "bank account name mismatch", admin)
	require.NoError(t, err)
	assert.True(t, res.Changed)

	got, err := svc.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalRejected, got.Status)
	assert.Equal(t, "bank account name mismatch", got.RejectionReason)
	require.NotNil(t, got.RejectedBy)
	assert.Equal(t, admin, *got.RejectedBy)
	assert.Equal(t, int64(50_000), testutil.Reload(t, gdb, u.ID).WalletBalance)

	events, err := audit.List(ctx, gdb, models.EntityWithdrawal, w.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Rejected", events[0].ToValue)
	assert.Equal(t, "bank account name mismatch", events[0].Reason)
	assert.Equal(t, []string{"Withdrawal rejected"}, notifier.titles)
}

func TestReject_DefaultReasonAndIdempotence(t *testing.T) {
	svc, gdb, _, _ := setup(t)
	ctx := context.Background()
	u := testutil.Client(t, gdb)
	w := testutil.Withdrawal(t, gdb, u.ID, 10_000)

	_, err := svc.Reject(ctx, w.ID, "", uuid.New())
	require.NoError(t, err)

	again, err := svc.Reject(ctx, w.ID, "other", uuid.New())
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Equal(t, DefaultRejectionReason, again.Withdrawal.RejectionReason)
}

func TestReject_ApprovedIsPreconditionFailed(t *testing.T) {
	svc, gdb, _, _ := setup(t)
	ctx := context.Background()
	u := testutil.Client(t, gdb, funded(50_000))
	w := testutil.Withdrawal(t, gdb, u.ID, 10_000)

	_, err := svc.Approve(ctx, w.ID, uuid.New())
	require.NoError(t, err)

	_, err = svc.Reject(ctx, w.ID, "", uuid.New())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindPreconditionFailed))
}

func TestList_FiltersByStatus(t *testing.T) {
	svc, gdb, _, _ := setup(t)
	ctx := context.Background()
	u := testutil.Client(t, gdb, funded(50_000))
	pending := testutil.Withdrawal(t, gdb, u.ID, 1_000)
	rejected := testutil.Withdrawal(t, gdb, u.ID, 2_000)
	_, err := svc.Reject(ctx, rejected.ID, "", uuid.New())
	require.NoError(t, err)

	items, total, err := svc.List(ctx, ListFilter{Status: models.WithdrawalPending, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, pending.ID, items[0].ID)
	require.NotNil(t, items[0].User)
	assert.Equal(t, u.ID, items[0].User.ID)

	_, total, err = svc.List(ctx, ListFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestApprove_SlowReadAfterCommitStillSucceeds(t *testing.T) {
	svc, gdb, rail, notifier := setup(t)
	u := testutil.Client(t, gdb, funded(50_000))
	w := testutil.Withdrawal(t, gdb, u.ID, 20_000)
	admin := uuid.New()
	svc.Timeout = 100 * time.Millisecond
	release := testutil.StallReadsAfterUpdate(t, gdb, 200*time.Millisecond)

	res, err := svc.Approve(context.Background(), w.ID, admin)
	release()
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, models.WithdrawalApproved, res.Withdrawal.Status)
	require.NotNil(t, res.Withdrawal.Reference)
	assert.NotEmpty(t, *res.Withdrawal.Reference)
	assert.Equal(t, int32(1), rail.calls.Load())
	assert.Equal(t, []string{"Withdrawal approved"}, notifier.titles)

	var stored models.Withdrawal
	require.NoError(t, gdb.First(&stored, "id = ?", w.ID).Error)
	assert.Equal(t, models.WithdrawalApproved, stored.Status)
	assert.Equal(t, *res.Withdrawal.Reference, *stored.Reference)
}

func TestReject_SlowReadAfterCommitStillSucceeds(t *testing.T) {
	svc, gdb, _, _ := setup(t)
	u := testutil.Client(t, gdb)
	w := testutil.Withdrawal(t, gdb, u.ID, 20_000)
	svc.Timeout = 100 * time.Millisecond
	release := testutil.StallReadsAfterUpdate(t, gdb, 200*time.Millisecond)

	res, err := svc.Reject(context.Background(), w.ID, "bank details mismatch", uuid.New())
	release()
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, models.WithdrawalRejected, res.Withdrawal.Status)
	assert.Equal(t, "bank details mismatch", res.Withdrawal.RejectionReason)
}
