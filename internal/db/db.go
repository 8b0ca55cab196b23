package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/models"
)

// Connect opens the postgres store and routes GORM's own logging through zap.
func Connect(dsn string, log *zap.Logger) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: NewGormLogger(log),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return gdb, nil
}

func NewGormLogger(log *zap.Logger) logger.Interface {
	return logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
}

// Migrate creates or updates every table and then rewrites legacy status
// spellings to their canonical form.
func Migrate(ctx context.Context, gdb *gorm.DB) error {
	if err := gdb.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return err
	}
	_, err := NormalizeLegacyStatuses(ctx, gdb)
	return err
}

type statusColumn struct {
	table  string
	column string
	values []string
}

func statusColumns() []statusColumn {
	var cols []statusColumn

	roles := []string{string(models.RoleUser), string(models.RoleAdmin), string(models.RoleSuperAdmin)}
	cols = append(cols, statusColumn{"users", "role", roles})

	apps := []string{
		string(models.ApplicationPending), string(models.ApplicationApproved),
		string(models.ApplicationSuspended), string(models.ApplicationRejected),
	}
	cols = append(cols,
		statusColumn{"users", "tasker_application_status", apps},
		statusColumn{"users", "suspended_prior_status", apps},
	)

	levels := []string{
		string(models.VerificationUnverified), string(models.VerificationPending),
		string(models.VerificationVerified), string(models.VerificationRejected),
	}
	for n := 1; n <= models.NumLevels; n++ {
		col, _ := models.LevelColumn(n)
		cols = append(cols, statusColumn{"users", col, levels})
	}

	cols = append(cols, statusColumn{"withdrawals", "status", []string{
		string(models.WithdrawalPending), string(models.WithdrawalApproved), string(models.WithdrawalRejected),
	}})
	return cols
}

// NormalizeLegacyStatuses rewrites every status column whose value differs from
// a canonical value only by case. Conditional updates compare canonical
// strings, so this has to run once before rows written by older clients can
// transition.
func NormalizeLegacyStatuses(ctx context.Context, gdb *gorm.DB) (int64, error) {
	var total int64
	err := gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, c := range statusColumns() {
			for _, v := range c.values {
				res := tx.Table(c.table).
					Where("LOWER("+c.column+") = LOWER(?) AND "+c.column+" <> ?", v, v).
					Update(c.column, v)
				if res.Error != nil {
					return res.Error
				}
				total += res.RowsAffected
			}
		}
		return nil
	})
	return total, err
}

// Bounded derives the context every store operation runs under.
func Bounded(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// Detached is Bounded over a context that survives the caller's deadline.
// Work that follows a commit runs under it.
func Detached(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return Bounded(context.WithoutCancel(ctx), timeout)
}

// Classify converts a store error into the apperr taxonomy. Errors that are
// already classified pass through untouched.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Wrap(apperr.KindNotFound, "record not found", err)
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return apperr.Wrap(apperr.KindTimeout, "data store timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return apperr.Wrap(apperr.KindUnavailable, "request cancelled", err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperr.Wrap(apperr.KindConflict, "duplicate value", err)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Wrap(apperr.KindConflict, "duplicate value", err)
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connErr) || errors.As(err, &netErr) || errors.Is(err, driver.ErrBadConn) {
		return apperr.Wrap(apperr.KindUnavailable, "data store unavailable", err)
	}

	return apperr.Internal(err)
}
