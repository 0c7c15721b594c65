package certstore

import (
	"testing"
)

func TestMemStoreAddAndDeduplicate(t *testing.T) {
	// WHY: The first record per fingerprint must win (INSERT OR IGNORE
	// semantics), matching the SQLite primary key behavior.
	t.Parallel()

	store := NewMemStore()
	rec := newRecord(t, 1)
	if err := store.Add(rec); err != nil {
		t.Fatalf("Add: %v", err)
	}

	dup := newRecord(t, 1)
	dup.Source = "elsewhere/copy.pem"
	if err := store.Add(dup); err != nil {
		t.Fatalf("Add duplicate: %v", err)
	}

	if store.Len() != 1 {
		t.Fatalf("Len = %d, want 1", store.Len())
	}
	if got := store.Get(rec.Fingerprint); got.Source != rec.Source {
		t.Errorf("duplicate replaced original: source = %q", got.Source)
	}
}

func TestMemStoreAddDoesNotMutateCaller(t *testing.T) {
	// WHY: Add stores a stamped copy; a caller reusing one record across
	// stores must not inherit the first store's timestamp.
	t.Parallel()

	rec := newRecord(t, 1)
	store := NewMemStore()
	if err := store.Add(rec); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if !rec.ScannedAt.IsZero() {
		t.Error("caller's record was stamped")
	}
	if store.Get(rec.Fingerprint).ScannedAt.IsZero() {
		t.Error("stored record not stamped")
	}

	// Mutating the caller's record afterwards must not reach the store.
	rec.Verdict = "changed"
	if store.Get(rec.Fingerprint).Verdict != "ok" {
		t.Error("stored record aliases the caller's value")
	}
}

func TestMemStoreAddRejectsBadRecords(t *testing.T) {
	t.Parallel()

	store := NewMemStore()
	if err := store.Add(nil); err == nil {
		t.Error("nil record accepted")
	}
	if err := store.Add(&Record{}); err == nil {
		t.Error("record without fingerprint accepted")
	}
}

func TestMemStoreAllIsSorted(t *testing.T) {
	// WHY: Output ordering must be stable across runs even though the
	// backing map iterates randomly.
	t.Parallel()

	store := NewMemStore()
	for _, n := range []int{3, 1, 2} {
		if err := store.Add(newRecord(t, n)); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	all := store.All()
	if len(all) != 3 {
		t.Fatalf("All returned %d records, want 3", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Source > all[i].Source {
			t.Errorf("All not sorted: %q before %q", all[i-1].Source, all[i].Source)
		}
	}
}

func TestMemStoreSummarize(t *testing.T) {
	// WHY: The scan summary drives the CLI output; counts must partition
	// records by verdict without double counting.
	t.Parallel()

	store := NewMemStore()
	if err := store.Add(newRecord(t, 1)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.Add(newRecord(t, 2)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.Add(newRejectRecord(t, 3, "failed parsing Certificate")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.Add(newRejectRecord(t, 4, "failed parsing extensions", "failed parsing extensions")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.Add(newRejectRecord(t, 5, "failed parsing extensions")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	summary := store.Summarize()
	if summary.Total != 5 {
		t.Errorf("Total = %d, want 5", summary.Total)
	}
	if summary.Valid != 2 {
		t.Errorf("Valid = %d, want 2", summary.Valid)
	}
	if summary.Invalid != 3 {
		t.Errorf("Invalid = %d, want 3", summary.Invalid)
	}
	if summary.ByVerdict["failed parsing extensions"] != 2 {
		t.Errorf("ByVerdict[extensions] = %d, want 2", summary.ByVerdict["failed parsing extensions"])
	}
	if summary.ByVerdict["failed parsing Certificate"] != 1 {
		t.Errorf("ByVerdict[certificate] = %d, want 1", summary.ByVerdict["failed parsing Certificate"])
	}

	invalid := store.Invalid()
	if len(invalid) != 3 {
		t.Errorf("Invalid() returned %d records, want 3", len(invalid))
	}
	for _, rec := range invalid {
		if rec.Valid() {
			t.Errorf("Invalid() returned valid record %s", rec.Fingerprint)
		}
	}
}

func TestMemStoreReset(t *testing.T) {
	t.Parallel()

	store := NewMemStore()
	if err := store.Add(newRecord(t, 1)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	store.Reset()
	if store.Len() != 0 {
		t.Errorf("Len after Reset = %d, want 0", store.Len())
	}
}
