package health

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckBasic(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	checker := NewHealthChecker(mock)

	mock.ExpectPing()
	status := checker.CheckBasic(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "healthy", status.Database.Status)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	status = checker.CheckBasic(context.Background())
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "unhealthy", status.Database.Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512.0 MB", formatBytes(512*1024*1024))
	assert.Equal(t, "2.0 GB", formatBytes(2*1024*1024*1024))
}
