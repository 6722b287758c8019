package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenSQLiteMemory(t *testing.T) {
	svc, err := Open(Config{Driver: DriverSQLite, DSN: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	defer svc.Close()

	assert.Equal(t, DriverSQLite, svc.Driver())
	assert.NoError(t, svc.Ping(context.Background()))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "mysql", DSN: "x"}, zap.NewNop())
	assert.EqualError(t, err, `unsupported database driver "mysql"`)
}
