package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrDuplicateMessage is returned by SaveMessage when an inbound message with
// the same provider message ID is already stored. Callers treat it as
// "already handled", not as a failure.
var ErrDuplicateMessage = errors.New("duplicate provider message")

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Store defines the interface for conversation log persistence.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveMessage appends a message to the conversation log, assigning its ID
	// and CreatedAt. Returns ErrDuplicateMessage when the provider message ID
	// uniqueness constraint rejects the row.
	SaveMessage(ctx context.Context, message *Message) error

	// MessageExistsByProviderID reports whether an inbound message with the
	// given provider message ID is already stored.
	MessageExistsByProviderID(ctx context.Context, providerMessageID string) (bool, error)

	// ListRecentMessages retrieves the most recent 'limit' messages, newest
	// first. An empty pageID means all pages.
	ListRecentMessages(ctx context.Context, pageID string, limit int) ([]Message, error)

	// ListConversation retrieves the full thread for one conversation partner,
	// oldest first. An empty pageID means all pages.
	ListConversation(ctx context.Context, pageID, partnerID string) ([]Message, error)

	// UpsertCustomer records a conversation partner, ignoring the write if the
	// partner is already known.
	UpsertCustomer(ctx context.Context, customer *Customer) error

	// ListCustomers retrieves all known conversation partners, newest first.
	ListCustomers(ctx context.Context) ([]Customer, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) SaveMessage(ctx context.Context, message *Message) error {
	if message == nil {
		return fmt.Errorf("cannot save nil message")
	}
	if message.PageID == "" {
		return fmt.Errorf("message must have a non-empty page_id")
	}
	if message.PartnerID == "" {
		return fmt.Errorf("message must have a non-empty partner_id")
	}
	if message.Content == "" {
		return fmt.Errorf("message must have non-empty content")
	}
	if message.Direction != DirectionInbound && message.Direction != DirectionOutbound {
		return fmt.Errorf("message has invalid direction %q", message.Direction)
	}

	message.CreatedAt = time.Now().UTC()

	query := `
        INSERT INTO messages (page_id, partner_id, direction, content, provider_message_id, created_at)
        VALUES (:page_id, :partner_id, :direction, :content, :provider_message_id, :created_at);
    `

	result, err := s.db.NamedExecContext(ctx, query, message)
	if err != nil {
		if isUniqueViolation(err) {
			s.logger.DebugContext(ctx, "Duplicate provider message rejected by constraint",
				"page_id", message.PageID, "provider_message_id", message.ProviderMessageID.String)
			return ErrDuplicateMessage
		}
		s.logger.ErrorContext(ctx, "Error saving message",
			"page_id", message.PageID, "partner_id", message.PartnerID, "error", err)
		return fmt.Errorf("failed to save message (page %s, partner %s): %w",
			message.PageID, message.PartnerID, err)
	}

	if id, idErr := result.LastInsertId(); idErr == nil {
		//nolint:gosec // sqlite rowids stay well within uint range here
		message.ID = uint(id)
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after saving message",
			"page_id", message.PageID, "partner_id", message.PartnerID, "error", idErr)
	}

	s.logger.DebugContext(ctx, "Message saved",
		"message_id", message.ID, "page_id", message.PageID,
		"partner_id", message.PartnerID, "direction", message.Direction)
	return nil
}

func (s *sqlxStore) MessageExistsByProviderID(ctx context.Context, providerMessageID string) (bool, error) {
	if providerMessageID == "" {
		return false, nil
	}

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM messages WHERE provider_message_id = ?);`

	if err := s.db.GetContext(ctx, &exists, query, providerMessageID); err != nil {
		s.logger.ErrorContext(ctx, "Error checking for existing provider message",
			"provider_message_id", providerMessageID, "error", err)
		return false, fmt.Errorf("failed to check provider message %s: %w", providerMessageID, err)
	}

	return exists, nil
}

func (s *sqlxStore) ListRecentMessages(ctx context.Context, pageID string, limit int) ([]Message, error) {
	limit = clampLimit(limit)

	query := `
        SELECT id, page_id, partner_id, direction, content, provider_message_id, created_at
        FROM messages
    `
	args := []any{}
	if pageID != "" {
		query += ` WHERE page_id = ?`
		args = append(args, pageID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?;`
	args = append(args, limit)

	var messages []Message
	if err := s.db.SelectContext(ctx, &messages, query, args...); err != nil {
		s.logger.ErrorContext(ctx, "Error listing recent messages", "page_id", pageID, "limit", limit, "error", err)
		return nil, fmt.Errorf("failed to list recent messages: %w", err)
	}

	s.logger.DebugContext(ctx, "Listed recent messages", "page_id", pageID, "count", len(messages))
	return messages, nil
}

func (s *sqlxStore) ListConversation(ctx context.Context, pageID, partnerID string) ([]Message, error) {
	if partnerID == "" {
		return nil, fmt.Errorf("partner_id cannot be empty")
	}

	query := `
        SELECT id, page_id, partner_id, direction, content, provider_message_id, created_at
        FROM messages
        WHERE partner_id = ?
    `
	args := []any{partnerID}
	if pageID != "" {
		query += ` AND page_id = ?`
		args = append(args, pageID)
	}
	query += ` ORDER BY created_at ASC, id ASC;`

	var messages []Message
	if err := s.db.SelectContext(ctx, &messages, query, args...); err != nil {
		s.logger.ErrorContext(ctx, "Error listing conversation",
			"page_id", pageID, "partner_id", partnerID, "error", err)
		return nil, fmt.Errorf("failed to list conversation for partner %s: %w", partnerID, err)
	}

	return messages, nil
}

func (s *sqlxStore) UpsertCustomer(ctx context.Context, customer *Customer) error {
	if customer == nil {
		return fmt.Errorf("cannot upsert nil customer")
	}
	if customer.PartnerID == "" {
		return fmt.Errorf("customer must have a non-empty partner_id")
	}
	if customer.Platform == "" {
		customer.Platform = "facebook"
	}
	if customer.FirstSeenAt.IsZero() {
		customer.FirstSeenAt = time.Now().UTC()
	}

	query := `
        INSERT INTO customers (partner_id, display_name, platform, first_seen_at)
        VALUES (:partner_id, :display_name, :platform, :first_seen_at)
        ON CONFLICT (partner_id) DO NOTHING;
    `

	if _, err := s.db.NamedExecContext(ctx, query, customer); err != nil {
		s.logger.ErrorContext(ctx, "Error upserting customer", "partner_id", customer.PartnerID, "error", err)
		return fmt.Errorf("failed to upsert customer %s: %w", customer.PartnerID, err)
	}

	return nil
}

func (s *sqlxStore) ListCustomers(ctx context.Context) ([]Customer, error) {
	var customers []Customer
	query := `
        SELECT partner_id, display_name, platform, first_seen_at
        FROM customers
        ORDER BY first_seen_at DESC, partner_id ASC;
    `

	if err := s.db.SelectContext(ctx, &customers, query); err != nil {
		s.logger.ErrorContext(ctx, "Error listing customers", "error", err)
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	return customers, nil
}

// RunSQLMaintenance executes VACUUM and PRAGMA optimize on the database.
// SQLite requires VACUUM to run outside a transaction.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			s.logger.WarnContext(ctx, "VACUUM timed out or was cancelled", "error", err)
			return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
		}
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		s.logger.WarnContext(ctx, "PRAGMA optimize failed", "error", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance completed.")
	return nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}

// isUniqueViolation reports whether err is a SQLite unique or primary key
// constraint failure.
func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return false
}

// NullString wraps a possibly-empty string for nullable columns.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
