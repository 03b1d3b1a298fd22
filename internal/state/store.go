package state

// Progress represents the durable pagination progress of the history loop
type Progress struct {
	// Cursor is the opaque pagination token returned by the workflow.
	// Empty means start of history. Legacy state files written with a
	// JSON null cursor load as empty.
	Cursor string `json:"cursor"`

	// BatchNo counts successfully processed batches, not attempts.
	BatchNo int `json:"batch_no"`

	// Finished is set once the loop has permanently stopped.
	Finished bool `json:"finished"`
}

// Store defines the interface for progress persistence
type Store interface {
	// Load returns the persisted progress, or the zero state if no
	// usable record exists. It never fails.
	Load() *Progress

	// Save overwrites the persisted progress in full.
	Save(p *Progress) error
}
