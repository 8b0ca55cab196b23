package readmodel

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/db"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/models"
)

type Reader struct {
	DB      *gorm.DB
	Timeout time.Duration
}

func NewReader(gdb *gorm.DB, timeout time.Duration) *Reader {
	return &Reader{DB: gdb, Timeout: timeout}
}

type Page struct {
	Page  int
	Limit int
}

func (p Page) offset() int { return (p.Page - 1) * p.Limit }

type TaskerFilter struct {
	Status    models.ApplicationStatus
	Overall   models.OverallStatus
	Suspended *bool
	Query     string
	Page
}

type ClientFilter struct {
	Suspended *bool
	Query     string
	Page
}

const (
	level5Verified = "verification_level5_status = 'Verified'"
	anyRejected    = "(verification_level1_status = 'Rejected' OR verification_level2_status = 'Rejected' OR " +
		"verification_level3_status = 'Rejected' OR verification_level4_status = 'Rejected' OR " +
		"verification_level5_status = 'Rejected')"
)

// overallScope is the SQL form of tasker.OverallStatus.
func overallScope(o models.OverallStatus) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		switch o {
		case models.OverallApproved:
			return q.Where(level5Verified)
		case models.OverallRejected:
			return q.Where("NOT (" + level5Verified + ")").Where(anyRejected)
		case models.OverallPending:
			return q.Where("NOT (" + level5Verified + ")").Where("NOT " + anyRejected)
		}
		return q
	}
}

// likeEscaper makes user input match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func searchScope(term string) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			return q
		}
		like := "%" + likeEscaper.Replace(term) + "%"
		return q.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\' OR phone LIKE ? ESCAPE '\')`,
			like, like, like)
	}
}

func suspendedScope(s *bool) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if s == nil {
			return q
		}
		return q.Where("is_suspended = ?", *s)
	}
}

// ListTaskers returns a page of tasker views, newest first.
func (r *Reader) ListTaskers(ctx context.Context, f TaskerFilter) ([]UserView, int64, error) {
	ctx, cancel := db.Bounded(ctx, r.Timeout)
	defer cancel()

	q := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("is_tasker = ?", true).
		Scopes(overallScope(f.Overall), searchScope(f.Query), suspendedScope(f.Suspended))
	if f.Status != "" {
		q = q.Where("tasker_application_status = ?", f.Status)
	}
	return r.page(q, f.Page)
}

// ListClients returns a page of client views, newest first.
func (r *Reader) ListClients(ctx context.Context, f ClientFilter) ([]UserView, int64, error) {
	ctx, cancel := db.Bounded(ctx, r.Timeout)
	defer cancel()

	q := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("is_tasker = ?", false).
		Scopes(searchScope(f.Query), suspendedScope(f.Suspended))
	return r.page(q, f.Page)
}

func (r *Reader) page(q *gorm.DB, p Page) ([]UserView, int64, error) {
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, db.Classify(err)
	}
	var users []models.User
	if err := q.Order("created_at DESC").Limit(p.Limit).Offset(p.offset()).Find(&users).Error; err != nil {
		return nil, 0, db.Classify(err)
	}
	return BuildUserViews(users), total, nil
}

// GetUser returns the view of one user.
func (r *Reader) GetUser(ctx context.Context, id uuid.UUID) (*UserView, error) {
	ctx, cancel := db.Bounded(ctx, r.Timeout)
	defer cancel()

	var u models.User
	if err := r.DB.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, db.Classify(err)
	}
	v := BuildUserView(&u)
	return &v, nil
}

type Stats struct {
	Clients             int64 `json:"clients"`
	Taskers             int64 `json:"taskers"`
	PendingApplications int64 `json:"pending_applications"`
	ApprovedTaskers     int64 `json:"approved_taskers"`
	VerifiedTaskers     int64 `json:"verified_taskers"`
	SuspendedUsers      int64 `json:"suspended_users"`
	PendingWithdrawals  int64 `json:"pending_withdrawals"`
	PendingPayoutAmount int64 `json:"pending_payout_amount"`
}

// Stats runs the dashboard counters in parallel.
func (r *Reader) Stats(ctx context.Context) (*Stats, error) {
	ctx, cancel := db.Bounded(ctx, r.Timeout)
	defer cancel()

	var st Stats
	g, ctx := errgroup.WithContext(ctx)

	users := func() *gorm.DB { return r.DB.WithContext(ctx).Model(&models.User{}) }
	count := func(dst *int64, q func() *gorm.DB) {
		g.Go(func() error { return q().Count(dst).Error })
	}

	count(&st.Clients, func() *gorm.DB { return users().Where("is_tasker = ?", false) })
	count(&st.Taskers, func() *gorm.DB { return users().Where("is_tasker = ?", true) })
	count(&st.PendingApplications, func() *gorm.DB {
		return users().Where("is_tasker = ? AND tasker_application_status = ?", true, models.ApplicationPending)
	})
	count(&st.ApprovedTaskers, func() *gorm.DB {
		return users().Where("is_tasker = ? AND tasker_application_status = ?", true, models.ApplicationApproved)
	})
	count(&st.VerifiedTaskers, func() *gorm.DB {
		return users().Where("is_tasker = ?", true).Scopes(overallScope(models.OverallApproved))
	})
	count(&st.SuspendedUsers, func() *gorm.DB { return users().Where("is_suspended = ?", true) })
	count(&st.PendingWithdrawals, func() *gorm.DB {
		return r.DB.WithContext(ctx).Model(&models.Withdrawal{}).Where("status = ?", models.WithdrawalPending)
	})
	g.Go(func() error {
		return r.DB.WithContext(ctx).Model(&models.Withdrawal{}).
			Where("status = ?", models.WithdrawalPending).
			Select("COALESCE(SUM(amount), 0)").
			Scan(&st.PendingPayoutAmount).Error
	})

	if err := g.Wait(); err != nil {
		return nil, db.Classify(err)
	}
	return &st, nil
}
