package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/models"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/testutil"
)

func frozenDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb := testutil.NewDB(t)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	gdb.Config.NowFunc = func() time.Time { return at }
	return gdb
}

func record(t *testing.T, gdb *gorm.DB, e Entry) {
	t.Helper()
	require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error { return Record(tx, e) }))
}

func TestRecord_NumbersEventsPerEntity(t *testing.T) {
	gdb := frozenDB(t)
	user, other, admin := uuid.New(), uuid.New(), uuid.New()

	record(t, gdb, Entry{EntityType: models.EntityUser, EntityID: user, Field: "is_suspended", From: "false", To: "true", ActorID: admin})
	record(t, gdb, Entry{EntityType: models.EntityUser, EntityID: other, Field: "is_suspended", From: "false", To: "true", ActorID: admin})
	record(t, gdb, Entry{EntityType: models.EntityUser, EntityID: user, Field: "is_suspended", From: "true", To: "false", ActorID: admin})

	events, err := List(context.Background(), gdb, models.EntityUser, user)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(1), events[0].Seq)
	assert.Equal(t, "true", events[0].ToValue)
	assert.Equal(t, int64(2), events[1].Seq)
	assert.Equal(t, "false", events[1].ToValue)
	assert.True(t, events[0].CreatedAt.Equal(events[1].CreatedAt))

	events, err = List(context.Background(), gdb, models.EntityUser, other)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(1), events[0].Seq)
}

func TestList_OrdersBySeqWhenTimestampsTie(t *testing.T) {
	gdb := frozenDB(t)
	id, admin := uuid.New(), uuid.New()

	// Inserted out of order on purpose; both share one timestamp.
	for _, ev := range []models.StatusEvent{
		{EntityType: models.EntityWithdrawal, EntityID: id, Seq: 2, Field: "status", FromValue: "Pending", ToValue: "Approved", ActorID: admin},
		{EntityType: models.EntityWithdrawal, EntityID: id, Seq: 1, Field: "note", FromValue: "", ToValue: "checked", ActorID: admin},
	} {
		require.NoError(t, gdb.Create(&ev).Error)
	}

	events, err := List(context.Background(), gdb, models.EntityWithdrawal, id)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, []int64{1, 2}, []int64{events[0].Seq, events[1].Seq})
}

func TestRecord_StoresDetails(t *testing.T) {
	gdb := testutil.NewDB(t)
	id := uuid.New()

	record(t, gdb, Entry{
		EntityType: models.EntityWithdrawal,
		EntityID:   id,
		Field:      "status",
		From:       "Pending",
		To:         "Rejected",
		Reason:     "bank details mismatch",
		ActorID:    uuid.New(),
		Details:    map[string]any{"amount": 20000},
	})

	events, err := List(context.Background(), gdb, models.EntityWithdrawal, id)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "bank details mismatch", events[0].Reason)
	assert.JSONEq(t, `{"amount":20000}`, string(events[0].Details))
}
