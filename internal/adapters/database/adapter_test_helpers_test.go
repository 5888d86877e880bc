package database_test

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/infrastructure/clients/postgres"
)

func setupMockDB(t *testing.T) (*postgres.Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return postgres.NewClientFromDB(db), mock
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
