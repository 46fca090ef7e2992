package testsupport

import (
	"path/filepath"
	"testing"

	"epochcap/internal/journal"
)

// MustOpenJournal opens a journal under the test's temp dir and closes it on
// cleanup.
func MustOpenJournal(t testing.TB) *journal.Store {
	t.Helper()

	store, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("journal open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
