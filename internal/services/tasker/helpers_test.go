package tasker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/models"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/testutil"
)

type notice struct {
	userID uuid.UUID
	title  string
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notice
}

func (n *recordingNotifier) StatusChanged(_ context.Context, userID uuid.UUID, title, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{userID: userID, title: title})
}

func (n *recordingNotifier) titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.notices))
	for _, x := range n.notices {
		out = append(out, x.title)
	}
	return out
}

func setup(t *testing.T) (*Service, *gorm.DB, *recordingNotifier) {
	t.Helper()
	gdb := testutil.NewDB(t)
	n := &recordingNotifier{}
	return NewService(gdb, n, 5*time.Second, testutil.Logger()), gdb, n
}

func approvedApp(u *models.User) { u.TaskerApplicationStatus = models.ApplicationApproved }

func withLevels(levels ...models.VerificationStatus) func(*models.User) {
	return func(u *models.User) {
		ptrs := []*models.VerificationStatus{
			&u.VerificationLevel1Status, &u.VerificationLevel2Status, &u.VerificationLevel3Status,
			&u.VerificationLevel4Status, &u.VerificationLevel5Status,
		}
		for i, l := range levels {
			*ptrs[i] = l
		}
	}
}

func countEvents(t *testing.T, gdb *gorm.DB, id uuid.UUID) int64 {
	t.Helper()
	var n int64
	if err := gdb.Model(&models.StatusEvent{}).Where("entity_id = ?", id).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}
