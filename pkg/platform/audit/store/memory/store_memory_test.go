package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "vatfiler/pkg/domain"
	audit "vatfiler/pkg/platform/audit"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	alice, bob := id.NewAccountID(), id.NewAccountID()

	for _, e := range []audit.Event{
		{AccountID: alice, Action: audit.EventAccountCreated},
		{AccountID: bob, Action: audit.EventAccountCreated},
		{Action: audit.EventAuthFailed, Email: "nobody@example.com"},
		{AccountID: alice, Action: audit.EventSessionCreated},
	} {
		require.NoError(t, store.Append(ctx, e))
	}

	events, err := store.ListByAccount(ctx, alice)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, audit.EventAccountCreated, events[0].Action)
	assert.Equal(t, audit.EventSessionCreated, events[1].Action)

	recent, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, audit.EventSessionCreated, recent[0].Action, "newest first")
	assert.Equal(t, audit.EventAuthFailed, recent[1].Action)

	all, err := store.ListRecent(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	store.Clear()
	all, err = store.ListRecent(ctx, 100)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestInMemoryStoreDropsOldest(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(WithCapacity(2))
	for _, action := range []audit.AuditEvent{audit.EventAccountCreated, audit.EventSessionCreated, audit.EventSessionRevoked} {
		require.NoError(t, store.Append(ctx, audit.Event{Action: action}))
	}

	recent, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, audit.EventSessionRevoked, recent[0].Action)
	assert.Equal(t, audit.EventSessionCreated, recent[1].Action)
}
