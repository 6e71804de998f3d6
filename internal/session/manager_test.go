package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentforge/contentforge/internal/model"
)

func newTestManager(ttl time.Duration) (*Manager, *fakeResolver) {
	res := &fakeResolver{premium: map[string]bool{}}
	deps := Deps{
		Generator: &fakeGenerator{},
		Keywords:  &fakeKeywords{},
		Resolver:  res,
		Claims:    &fakeClaims{},
	}
	return NewManager(deps, ttl), res
}

func TestManager_SameIdentitySameSession(t *testing.T) {
	m, _ := newTestManager(time.Hour)

	a := m.Get("user-1")
	require.NoError(t, a.SetPlatform(model.PlatformInstagram))

	b := m.Get("user-1")
	assert.Same(t, a, b)
	assert.Equal(t, model.PlatformInstagram, b.Snapshot().Platform)
}

func TestManager_AnonymousSessionsAreIsolated(t *testing.T) {
	m, _ := newTestManager(time.Hour)

	a := m.Get("")
	require.NoError(t, a.SetPlatform(model.PlatformInstagram))

	b := m.Get("")
	assert.NotSame(t, a, b)
	assert.Equal(t, model.PlatformYouTube, b.Snapshot().Platform)
	assert.Equal(t, 0, m.Len(), "anonymous sessions must not be retained")
}

func TestManager_EvictsIdleSessions(t *testing.T) {
	m, _ := newTestManager(time.Minute)
	base := time.Now()
	m.now = func() time.Time { return base }

	old := m.Get("user-1")
	_, err := old.ClaimPayment(context.Background(), 99, "INR")
	require.NoError(t, err)
	require.True(t, old.Snapshot().Premium)

	base = base.Add(2 * time.Minute)
	fresh := m.Get("user-1")
	assert.NotSame(t, old, fresh)
	assert.False(t, fresh.Snapshot().Premium, "trust-on-claim grant must not outlive the session")
	assert.Equal(t, 1, m.Len())
}

func TestManager_DefaultTTL(t *testing.T) {
	m, _ := newTestManager(0)
	assert.Equal(t, DefaultSessionTTL, m.ttl)
}
