// Package relay implements inbound webhook ingestion and outbound reply
// dispatch: the pipeline between the provider's webhook and its send API.
package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/kmtrend/pagerelay/internal/database"
)

// Ingestor turns webhook payloads into conversation log entries and hands
// text messages off to the dispatcher.
type Ingestor struct {
	store      database.Store
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewIngestor creates an ingestor backed by store, forwarding to dispatcher.
func NewIngestor(store database.Store, dispatcher *Dispatcher, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Ingestor{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger.With("component", "ingestor"),
	}
}

// Ingest processes every messaging event in payload. It never returns an
// error: by the time it runs, the webhook has already been acknowledged, so
// all failures are terminal for their own event and surface only in logs.
func (i *Ingestor) Ingest(ctx context.Context, payload *Payload) {
	if payload == nil {
		return
	}

	for _, entry := range payload.Entry {
		if entry.ID == "" {
			i.logger.DebugContext(ctx, "Skipping entry without page ID")
			continue
		}
		for _, event := range entry.Messaging {
			i.ingestEvent(ctx, entry.ID, event)
		}
	}
}

func (i *Ingestor) ingestEvent(ctx context.Context, pageID string, event MessagingEvent) {
	if event.Sender == nil || event.Sender.ID == "" {
		i.logger.DebugContext(ctx, "Skipping event without sender", "page_id", pageID)
		return
	}
	if event.Message == nil || event.Message.Text == "" {
		// Read receipts, delivery confirmations etc. carry no text and are
		// intentionally ignored.
		i.logger.DebugContext(ctx, "Skipping event without text",
			"page_id", pageID, "partner_id", event.Sender.ID)
		return
	}

	partnerID := event.Sender.ID
	mid := event.Message.MID

	if mid != "" {
		exists, err := i.store.MessageExistsByProviderID(ctx, mid)
		if err != nil {
			// The unique index still backstops the insert below.
			i.logger.WarnContext(ctx, "Idempotency pre-check failed, relying on constraint",
				"provider_message_id", mid, "error", err)
		} else if exists {
			i.logger.InfoContext(ctx, "Duplicate redelivery skipped",
				"page_id", pageID, "provider_message_id", mid)
			return
		}
	}

	message := &database.Message{
		PageID:            pageID,
		PartnerID:         partnerID,
		Direction:         database.DirectionInbound,
		Content:           event.Message.Text,
		ProviderMessageID: database.NullString(mid),
	}

	if err := i.store.SaveMessage(ctx, message); err != nil {
		if errors.Is(err, database.ErrDuplicateMessage) {
			i.logger.InfoContext(ctx, "Duplicate redelivery lost insert race, skipped",
				"page_id", pageID, "provider_message_id", mid)
			return
		}
		// Not a duplicate skip: the event is effectively lost even though the
		// webhook was acked.
		i.logger.ErrorContext(ctx, "Failed to persist inbound message, event lost",
			"page_id", pageID, "partner_id", partnerID, "provider_message_id", mid, "error", err)
		return
	}

	if err := i.store.UpsertCustomer(ctx, &database.Customer{PartnerID: partnerID}); err != nil {
		i.logger.WarnContext(ctx, "Failed to upsert customer",
			"partner_id", partnerID, "error", err)
	}

	result := i.dispatcher.Dispatch(ctx, pageID, partnerID, event.Message.Text)
	i.logger.InfoContext(ctx, "Inbound message handled",
		"page_id", pageID, "partner_id", partnerID,
		"message_id", message.ID, "dispatch", result)
}
