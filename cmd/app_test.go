package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitApp_SQLite(t *testing.T) {
	sqliteConfig(t)
	cfg.Server.Port = 8080
	cfg.Server.RatePerSecond = 10
	cfg.Server.RateBurst = 20
	cfg.Generator.LatencyMaxMS = 0
	cfg.Keywords.Provider = "static"

	env, err := initApp(context.Background(), "serve")
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.store)
	assert.NotNil(t, env.sessions)

	// The schema is ready: a claim round-trips.
	sess := env.sessions.Get("user-1")
	result, err := sess.ClaimPayment(context.Background(), 99, "")
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestInitApp_RejectsBadMode(t *testing.T) {
	sqliteConfig(t)
	_, err := initApp(context.Background(), "bogus")
	assert.Error(t, err)
}

func TestInitStore_UnknownDriver(t *testing.T) {
	sqliteConfig(t)
	cfg.Store.Driver = "mysql"

	_, err := initStore(context.Background())
	assert.Error(t, err)
}
