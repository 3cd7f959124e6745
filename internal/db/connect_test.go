package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRejectsBadDSN(t *testing.T) {
	ctx := context.Background()

	_, err := Connect(ctx, "")
	assert.ErrorIs(t, err, ErrNoDSN)

	_, err = Connect(ctx, "postgres://user@localhost:notaport/db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse database url")
}

func TestConnectReportsUnreachableServer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool, err := Connect(ctx, "postgres://user@127.0.0.1:1/db?connect_timeout=1")
	assert.Nil(t, pool)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping database")
}
