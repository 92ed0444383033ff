package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return gormDB, mock
}

func TestTransitionStatus_ZeroRowsIsConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewShiftRepo(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "shifts" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.TransitionStatus(context.Background(), "shift-1", "completed", "approved", "admin-1", time.Now())
	assert.ErrorIs(t, err, ErrStatusChanged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionStatus_OneRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewShiftRepo(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "shifts" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.TransitionStatus(context.Background(), "shift-1", "completed", "approved", "admin-1", time.Now())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionStatus_DriverErrorPropagates(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewShiftRepo(db)

	driverErr := errors.New("connection reset")
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "shifts" SET`)).WillReturnError(driverErr)

	err := repo.TransitionStatus(context.Background(), "shift-1", "completed", "approved", "admin-1", time.Now())
	assert.ErrorIs(t, err, driverErr)
	assert.NotErrorIs(t, err, ErrStatusChanged)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505", ConstraintName: "uk_correction_pending"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("other")))
}

func TestIsConcurrencyConflict(t *testing.T) {
	assert.True(t, IsConcurrencyConflict(ErrStatusChanged))
	assert.True(t, IsConcurrencyConflict(&pgconn.PgError{Code: "40P01"}))
	assert.True(t, IsConcurrencyConflict(&pgconn.PgError{Code: "40001"}))
	assert.False(t, IsConcurrencyConflict(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsConcurrencyConflict(gorm.ErrRecordNotFound))
}
