//go:build integration

package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore_RoundTrip(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx := context.Background()

	store, err := NewRedisStore(ctx, url, time.Minute)
	require.NoError(t, err)
	defer store.Close()

	state := newState("integration-" + time.Now().Format("150405.000"))
	state.Summary = "Mild anemia"
	state.QAs = append(state.QAs, QA{Question: "Is this serious?", Answer: "No", AskedAt: time.Now().UTC()})
	require.NoError(t, store.Put(ctx, state))
	defer store.Delete(ctx, state.ID)

	got, err := store.Get(ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mild anemia", got.Summary)
	require.Len(t, got.QAs, 1)
	assert.Equal(t, "Is this serious?", got.QAs[0].Question)

	require.NoError(t, store.Delete(ctx, state.ID))
	_, err = store.Get(ctx, state.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
