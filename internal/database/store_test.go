package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kmtrend/pagerelay/internal/database"
)

func newTestStore(t *testing.T) database.Store {
	t.Helper()

	db, err := database.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	return database.NewStore(db, nil)
}

func inbound(pageID, partnerID, text, mid string) *database.Message {
	return &database.Message{
		PageID:            pageID,
		PartnerID:         partnerID,
		Direction:         database.DirectionInbound,
		Content:           text,
		ProviderMessageID: database.NullString(mid),
	}
}

func TestSaveMessage_AssignsIDAndTimestamp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	msg := inbound("P1", "U1", "hello", "M1")
	require.NoError(t, store.SaveMessage(ctx, msg))
	require.NotZero(t, msg.ID)
	require.False(t, msg.CreatedAt.IsZero())
}

func TestSaveMessage_DuplicateProviderMessageID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMessage(ctx, inbound("P1", "U1", "hello", "M1")))

	err := store.SaveMessage(ctx, inbound("P1", "U1", "hello", "M1"))
	require.ErrorIs(t, err, database.ErrDuplicateMessage)

	messages, err := store.ListRecentMessages(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)
}

func TestSaveMessage_OutboundRowsDoNotCollide(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Outbound messages carry no provider ID; the partial unique index must
	// not treat their NULLs as duplicates.
	for range 2 {
		err := store.SaveMessage(ctx, &database.Message{
			PageID:    "P1",
			PartnerID: "U1",
			Direction: database.DirectionOutbound,
			Content:   "reply",
		})
		require.NoError(t, err)
	}

	messages, err := store.ListRecentMessages(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
}

func TestSaveMessage_Validation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	testCases := []struct {
		name    string
		message *database.Message
	}{
		{name: "nil message", message: nil},
		{name: "missing page", message: inbound("", "U1", "hi", "M1")},
		{name: "missing partner", message: inbound("P1", "", "hi", "M1")},
		{name: "empty content", message: inbound("P1", "U1", "", "M1")},
		{
			name: "invalid direction",
			message: &database.Message{
				PageID: "P1", PartnerID: "U1", Direction: "sideways", Content: "hi",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := store.SaveMessage(ctx, tc.message)
			require.Error(t, err)
			require.False(t, errors.Is(err, database.ErrDuplicateMessage))
		})
	}
}

func TestMessageExistsByProviderID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	exists, err := store.MessageExistsByProviderID(ctx, "M1")
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, store.SaveMessage(ctx, inbound("P1", "U1", "hello", "M1")))

	exists, err = store.MessageExistsByProviderID(ctx, "M1")
	require.NoError(t, err)
	require.True(t, exists)

	// Empty IDs are never "seen".
	exists, err = store.MessageExistsByProviderID(ctx, "")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestListRecentMessages_OrderAndFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMessage(ctx, inbound("P1", "U1", "first", "M1")))
	require.NoError(t, store.SaveMessage(ctx, inbound("P2", "U2", "second", "M2")))
	require.NoError(t, store.SaveMessage(ctx, inbound("P1", "U1", "third", "M3")))

	messages, err := store.ListRecentMessages(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	require.Equal(t, "third", messages[0].Content)
	require.Equal(t, "first", messages[2].Content)

	messages, err = store.ListRecentMessages(ctx, "P1", 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	for _, m := range messages {
		require.Equal(t, "P1", m.PageID)
	}

	messages, err = store.ListRecentMessages(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, "third", messages[0].Content)
}

func TestListConversation_ChronologicalAndIsolated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMessage(ctx, inbound("P1", "U1", "hello", "M1")))
	require.NoError(t, store.SaveMessage(ctx, &database.Message{
		PageID: "P1", PartnerID: "U1", Direction: database.DirectionOutbound, Content: "hi there",
	}))
	require.NoError(t, store.SaveMessage(ctx, inbound("P1", "U2", "other thread", "M2")))

	thread, err := store.ListConversation(ctx, "P1", "U1")
	require.NoError(t, err)
	require.Len(t, thread, 2)
	require.Equal(t, database.DirectionInbound, thread[0].Direction)
	require.Equal(t, database.DirectionOutbound, thread[1].Direction)
	require.False(t, thread[1].CreatedAt.Before(thread[0].CreatedAt))

	_, err = store.ListConversation(ctx, "P1", "")
	require.Error(t, err)
}

func TestUpsertCustomer_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertCustomer(ctx, &database.Customer{PartnerID: "U1"}))
	require.NoError(t, store.UpsertCustomer(ctx, &database.Customer{PartnerID: "U1"}))
	require.NoError(t, store.UpsertCustomer(ctx, &database.Customer{PartnerID: "U2"}))

	customers, err := store.ListCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 2)
	for _, c := range customers {
		require.Equal(t, "facebook", c.Platform)
		require.False(t, c.FirstSeenAt.IsZero())
	}
}

func TestRunSQLMaintenance(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMessage(ctx, inbound("P1", "U1", "hello", "M1")))
	require.NoError(t, store.RunSQLMaintenance(ctx))
}
