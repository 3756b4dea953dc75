// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	dbi "github.com/qolzam/inkwell/internal/database/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildConnectionString(t *testing.T) {
	t.Parallel()

	got := buildConnectionString(&dbi.PostgreSQLConfig{
		Host:           "localhost",
		Port:           5432,
		Username:       "postgres",
		Password:       "secret",
		ConnectTimeout: 5,
	}, "inkwell")
	assert.Equal(t, "host=localhost port=5432 dbname=inkwell user=postgres password=secret sslmode=disable connect_timeout=5", got)

	got = buildConnectionString(&dbi.PostgreSQLConfig{DSN: "postgres://u:p@db/x?sslmode=require", Host: "ignored"}, "inkwell")
	assert.Equal(t, "postgres://u:p@db/x?sslmode=require", got)
}

func TestTxFromContext_Empty(t *testing.T) {
	t.Parallel()
	assert.Nil(t, TxFromContext(context.Background()))
}

func TestClient_InTransaction(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("Skipping test: POSTGRES_TEST_DSN not set")
	}
	ctx := context.Background()

	client, err := NewClient(ctx, &dbi.PostgreSQLConfig{DSN: dsn}, "")
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Ping(ctx))

	boom := errors.New("boom")
	err = client.InTransaction(ctx, func(txCtx context.Context) error {
		require.NotNil(t, TxFromContext(txCtx))
		return client.InTransaction(txCtx, func(inner context.Context) error {
			assert.Same(t, TxFromContext(txCtx), TxFromContext(inner))
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)
}
