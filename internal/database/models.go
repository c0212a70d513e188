package database

import (
	"database/sql"
	"time"
)

// Direction tells which side of a conversation a message belongs to.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Message is one entry in the append-only conversation log. Rows are created
// once and never mutated or deleted.
//
// ProviderMessageID is set only for inbound messages; a partial unique index
// on it enforces idempotent ingestion under the provider's at-least-once
// delivery.
type Message struct {
	ID        uint      `db:"id"`
	PageID    string    `db:"page_id"`
	PartnerID string    `db:"partner_id"`
	Direction Direction `db:"direction"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`

	ProviderMessageID sql.NullString `db:"provider_message_id"`
}

// Customer is a conversation partner seen on some page. Rows are upserted on
// first inbound message and never deleted.
type Customer struct {
	PartnerID   string    `db:"partner_id"`
	DisplayName string    `db:"display_name"`
	Platform    string    `db:"platform"`
	FirstSeenAt time.Time `db:"first_seen_at"`
}
