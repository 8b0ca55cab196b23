package tasker

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/models"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/services/audit"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/testutil"
)

func TestApproveApplication_StampsReviewer(t *testing.T) {
	svc, gdb, notifier := setup(t)
	ctx := context.Background()
	tk := testutil.Tasker(t, gdb)
	admin := uuid.New()

	res, err := svc.ApproveApplication(ctx, tk.ID, admin)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, models.ApplicationApproved, res.User.TaskerApplicationStatus)
	require.NotNil(t, res.User.ApplicationReviewedBy)
	assert.Equal(t, admin, *res.User.ApplicationReviewedBy)
	assert.NotNil(t, res.User.ApplicationReviewedAt)

	events, err := audit.List(ctx, gdb, models.EntityUser, tk.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "tasker_application_status", events[0].Field)
	assert.Equal(t, admin, events[0].ActorID)
	assert.Equal(t, []string{"Application approved"}, notifier.titles())
}

func TestApproveApplication_AlreadyApprovedIsNoop(t *testing.T) {
	svc, gdb, notifier := setup(t)
	tk := testutil.Tasker(t, gdb, approvedApp)

	res, err := svc.ApproveApplication(context.Background(), tk.ID, uuid.New())
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Zero(t, countEvents(t, gdb, tk.ID))
	assert.Empty(t, notifier.titles())
}

func TestApproveApplication_Preconditions(t *testing.T) {
	svc, gdb, _ := setup(t)
	ctx := context.Background()

	cases := map[string]func(*models.User){
		"rejected":  func(u *models.User) { u.TaskerApplicationStatus = models.ApplicationRejected },
		"suspended": func(u *models.User) { u.TaskerApplicationStatus = models.ApplicationSuspended; u.IsSuspended = true },
		"pending but account suspended": func(u *models.User) { u.IsSuspended = true },
	}
	for name, opt := range cases {
		t.Run(name, func(t *testing.T) {
			tk := testutil.Tasker(t, gdb, opt)
			_, err := svc.ApproveApplication(ctx, tk.ID, uuid.New())
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindPreconditionFailed), "got %v", err)
			assert.Zero(t, countEvents(t, gdb, tk.ID))
		})
	}
}

func TestApproveApplication_NotFound(t *testing.T) {
	svc, gdb, _ := setup(t)
	ctx := context.Background()

	_, err := svc.ApproveApplication(ctx, uuid.New(), uuid.New())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	client := testutil.Client(t, gdb)
	_, err = svc.ApproveApplication(ctx, client.ID, uuid.New())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestRejectApplication(t *testing.T) {
	svc, gdb, notifier := setup(t)
	ctx := context.Background()
	tk := testutil.Tasker(t, gdb)

	res, err := svc.RejectApplication(ctx, tk.ID, "", uuid.New())
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, models.ApplicationRejected, res.User.TaskerApplicationStatus)
	assert.Equal(t, DefaultRejectionReason, res.User.RejectionReason)
	assert.NotNil(t, res.User.ApplicationReviewedAt)

	again, err := svc.RejectApplication(ctx, tk.ID, "another reason", uuid.New())
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Equal(t, DefaultRejectionReason, again.User.RejectionReason)

	_, err = svc.ApproveApplication(ctx, tk.ID, uuid.New())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindPreconditionFailed))

	assert.Equal(t, []string{"Application rejected"}, notifier.titles())
}

func TestRejectApplication_ApprovedIsPreconditionFailed(t *testing.T) {
	svc, gdb, _ := setup(t)
	tk := testutil.Tasker(t, gdb, approvedApp)

	_, err := svc.RejectApplication(context.Background(), tk.ID, "", uuid.New())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindPreconditionFailed))
}

func TestApproveApplication_ConcurrentCallsChangeOnce(t *testing.T) {
	svc, gdb, notifier := setup(t)
	tk := testutil.Tasker(t, gdb)

	const callers = 5
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		changed int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.ApproveApplication(context.Background(), tk.ID, uuid.New())
			if !assert.NoError(t, err) {
				return
			}
			if res.Changed {
				mu.Lock()
				changed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, changed)
	assert.Equal(t, int64(1), countEvents(t, gdb, tk.ID))
	assert.Len(t, notifier.titles(), 1)
}

func TestApproveAndRejectRace_OneWins(t *testing.T) {
	svc, gdb, _ := setup(t)
	tk := testutil.Tasker(t, gdb)

	var (
		wg         sync.WaitGroup
		approveErr error
		rejectErr  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, approveErr = svc.ApproveApplication(context.Background(), tk.ID, uuid.New())
	}()
	go func() {
		defer wg.Done()
		_, rejectErr = svc.RejectApplication(context.Background(), tk.ID, "", uuid.New())
	}()
	wg.Wait()

	errs := []error{approveErr, rejectErr}
	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.True(t,
			apperr.Is(err, apperr.KindConflict) || apperr.Is(err, apperr.KindPreconditionFailed),
			"unexpected error: %v", err)
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, int64(1), countEvents(t, gdb, tk.ID))

	final := testutil.Reload(t, gdb, tk.ID).TaskerApplicationStatus
	if approveErr == nil {
		assert.Equal(t, models.ApplicationApproved, final)
	} else {
		assert.Equal(t, models.ApplicationRejected, final)
	}
}
