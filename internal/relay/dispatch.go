package relay

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/kmtrend/pagerelay/internal/database"
	"github.com/kmtrend/pagerelay/internal/registry"
)

// Sender delivers a text message to a conversation partner on the provider.
type Sender interface {
	SendText(ctx context.Context, accessToken, recipientID, text string) error
}

// DispatchResult names the outcome of a dispatch attempt, so that a skipped
// reply is an observable result rather than a silent early return.
type DispatchResult string

const (
	// DispatchSent means the reply was delivered and persisted.
	DispatchSent DispatchResult = "sent"
	// DispatchNoCredential means the page has no registered access token.
	// This is a configuration gap, not a runtime failure.
	DispatchNoCredential DispatchResult = "no_credential"
	// DispatchSendFailed means the provider call failed; no outbound row was
	// written and the gap stays visible in the conversation log.
	DispatchSendFailed DispatchResult = "send_failed"
	// DispatchStoreFailed means the reply went out but could not be persisted.
	DispatchStoreFailed DispatchResult = "store_failed"
)

// Dispatcher composes and sends the automated reply for an inbound message.
type Dispatcher struct {
	store    database.Store
	registry *registry.Registry
	sender   Sender
	template string
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher. template is the canned reply; a literal
// "{text}" placeholder is replaced with the inbound text.
func NewDispatcher(store database.Store, reg *registry.Registry, sender Sender, template string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dispatcher{
		store:    store,
		registry: reg,
		sender:   sender,
		template: template,
		logger:   logger.With("component", "dispatcher"),
	}
}

// Dispatch looks up the page credential, sends the reply, and appends the
// outbound message on success. Failures are logged and reflected in the
// result; they never propagate to the webhook response, which has already
// been decided by the time dispatch runs.
func (d *Dispatcher) Dispatch(ctx context.Context, pageID, partnerID, inboundText string) DispatchResult {
	token, ok := d.registry.Lookup(pageID)
	if !ok {
		d.logger.WarnContext(ctx, "No credential registered for page, reply skipped",
			"page_id", pageID, "partner_id", partnerID)
		return DispatchNoCredential
	}

	reply := d.ComposeReply(inboundText)

	if err := d.sender.SendText(ctx, token, partnerID, reply); err != nil {
		d.logger.ErrorContext(ctx, "Provider send failed, reply not delivered",
			"page_id", pageID, "partner_id", partnerID, "error", err)
		return DispatchSendFailed
	}

	outbound := &database.Message{
		PageID:    pageID,
		PartnerID: partnerID,
		Direction: database.DirectionOutbound,
		Content:   reply,
	}
	if err := d.store.SaveMessage(ctx, outbound); err != nil {
		d.logger.ErrorContext(ctx, "Reply delivered but not persisted",
			"page_id", pageID, "partner_id", partnerID, "error", err)
		return DispatchStoreFailed
	}

	d.logger.DebugContext(ctx, "Reply dispatched",
		"page_id", pageID, "partner_id", partnerID, "message_id", outbound.ID)
	return DispatchSent
}

// ComposeReply deterministically derives the reply text from the inbound text.
func (d *Dispatcher) ComposeReply(inboundText string) string {
	return strings.ReplaceAll(d.template, "{text}", inboundText)
}
