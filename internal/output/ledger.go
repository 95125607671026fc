package output

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/timoparlison/febiscrawler/internal/crawler"
)

// Ledger derives the set of completed events from the archive itself: an
// event counts as done iff its finalized event.json exists. Deriving from
// the durable record avoids a second state file that could disagree with
// what is actually on disk.
type Ledger struct {
	fs   afero.Fs
	root string
}

// NewLedger builds a Ledger over the archive rooted at dir.
func NewLedger(fs afero.Fs, dir string) *Ledger {
	return &Ledger{fs: fs, root: dir}
}

// CompletedIDs returns every event id with a finalized record.
func (l *Ledger) CompletedIDs() (map[string]struct{}, error) {
	completed := make(map[string]struct{})
	entries, err := afero.ReadDir(l.fs, l.root)
	if err != nil {
		// A missing archive simply means nothing is completed yet.
		exists, serr := afero.DirExists(l.fs, l.root)
		if serr == nil && !exists {
			return completed, nil
		}
		return nil, fmt.Errorf("scan archive %s: %w", l.root, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		done, err := afero.Exists(l.fs, filepath.Join(l.root, entry.Name(), eventFilename))
		if err != nil {
			return nil, fmt.Errorf("probe event record %s: %w", entry.Name(), err)
		}
		if done {
			completed[entry.Name()] = struct{}{}
		}
	}
	return completed, nil
}

// IsCompleted reports whether one event has a finalized record.
func (l *Ledger) IsCompleted(eventID string) (bool, error) {
	done, err := afero.Exists(l.fs, filepath.Join(l.root, eventID, eventFilename))
	if err != nil {
		return false, fmt.Errorf("probe event record %s: %w", eventID, err)
	}
	return done, nil
}

// WriteState snapshots run diagnostics (completed ids, per-URL failed
// download counts). Read by humans, never by the skip check.
func (l *Ledger) WriteState(state crawler.MigrationState) error {
	sort.Strings(state.CompletedEvents)
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal migration state: %w", err)
	}
	if err := afero.WriteFile(l.fs, filepath.Join(l.root, stateFilename), payload, 0o640); err != nil {
		return fmt.Errorf("write migration state: %w", err)
	}
	return nil
}
