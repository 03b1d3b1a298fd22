package journal

import (
	"path/filepath"
	"testing"
	"time"
)

func intp(n int) *int { return &n }

func openTestJournal(t *testing.T) *SQLiteJournal {
	t.Helper()
	j, err := NewSQLiteJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAndEntries(t *testing.T) {
	j := openTestJournal(t)

	first := &Entry{
		BatchNo:     1,
		MessageSize: intp(5),
		OldestDT:    "2025-09-24 02:54:14",
		NextCursor:  "tok-1",
		FetchedAt:   time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}
	second := &Entry{
		BatchNo:    2,
		OldestDT:   "2025-09-20 11:00:00",
		NextCursor: "",
		FetchedAt:  time.Date(2026, 8, 1, 10, 1, 0, 0, time.UTC),
	}

	if err := j.Record(first); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := j.Record(second); err != nil {
		t.Fatalf("record: %v", err)
	}

	entries, err := j.Entries()
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}

	if entries[0].BatchNo != 1 || entries[1].BatchNo != 2 {
		t.Errorf("batch order = %d,%d, want 1,2", entries[0].BatchNo, entries[1].BatchNo)
	}
	if entries[0].MessageSize == nil || *entries[0].MessageSize != 5 {
		t.Errorf("message_size = %v, want 5", entries[0].MessageSize)
	}
	if entries[1].MessageSize != nil {
		t.Errorf("message_size = %v, want nil for unreported size", entries[1].MessageSize)
	}
	if entries[0].NextCursor != "tok-1" || entries[1].NextCursor != "" {
		t.Errorf("cursors = %q,%q", entries[0].NextCursor, entries[1].NextCursor)
	}
}

func TestRecord_UpsertsSameBatch(t *testing.T) {
	j := openTestJournal(t)

	if err := j.Record(&Entry{BatchNo: 1, OldestDT: "2025-09-24 02:54:14", NextCursor: "a"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := j.Record(&Entry{BatchNo: 1, OldestDT: "2025-09-24 02:54:14", NextCursor: "b"}); err != nil {
		t.Fatalf("record: %v", err)
	}

	entries, err := j.Entries()
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len = %d, want 1 after upsert", len(entries))
	}
	if entries[0].NextCursor != "b" {
		t.Errorf("next_cursor = %q, want b", entries[0].NextCursor)
	}
}

func TestRecord_DefaultsFetchedAt(t *testing.T) {
	j := openTestJournal(t)

	e := &Entry{BatchNo: 1, OldestDT: "2025-09-24 02:54:14", NextCursor: "a"}
	if err := j.Record(e); err != nil {
		t.Fatalf("record: %v", err)
	}

	entries, err := j.Entries()
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if entries[0].FetchedAt.IsZero() {
		t.Error("fetched_at should default to now")
	}
}
