package journal

import "time"

// Entry represents one completed batch of the history loop
type Entry struct {
	BatchNo     int       `json:"batch_no"`
	MessageSize *int      `json:"message_size,omitempty"`
	OldestDT    string    `json:"oldest_dt"`
	NextCursor  string    `json:"next_cursor"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Journal defines the interface for the optional batch history record
type Journal interface {
	// Record stores or updates the entry for its batch number.
	Record(e *Entry) error

	// Entries returns all recorded batches in batch order.
	Entries() ([]*Entry, error)

	// Close releases the underlying store.
	Close() error
}
