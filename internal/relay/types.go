package relay

// Payload mirrors the provider's webhook envelope. Every nested level is
// optional on the wire: unrelated event kinds (read receipts, deliveries)
// simply leave Message nil, and absence is a normal branch, not an error.
type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups the messaging events for one page.
type Entry struct {
	ID        string           `json:"id"`
	Time      int64            `json:"time"`
	Messaging []MessagingEvent `json:"messaging"`
}

// MessagingEvent is a single event within an entry.
type MessagingEvent struct {
	Sender    *Participant `json:"sender"`
	Recipient *Participant `json:"recipient"`
	Timestamp int64        `json:"timestamp"`
	Message   *TextMessage `json:"message"`
}

// Participant identifies one side of a conversation on the provider.
type Participant struct {
	ID string `json:"id"`
}

// TextMessage carries the text body and the provider-assigned message ID
// used for deduplication.
type TextMessage struct {
	MID  string `json:"mid"`
	Text string `json:"text"`
}
