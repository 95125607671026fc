// Package output persists event records and the run index to the local
// archive, and derives the run ledger from them.
package output

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/timoparlison/febiscrawler/internal/crawler"
)

const (
	indexFilename = "events-index.json"
	eventFilename = "event.json"
	stateFilename = "migration-state.json"
)

// Writer lays out the archive under one root directory:
//
//	<root>/events-index.json
//	<root>/<event-id>/event.json
//	<root>/<event-id>/documents/...
//	<root>/<event-id>/images/hotel/...
//	<root>/<event-id>/images/<gallery-slug>/...
//
// Writing event.json is the durable completion marker the ledger reads.
type Writer struct {
	fs     afero.Fs
	root   string
	logger *zap.Logger
}

// NewWriter builds a Writer rooted at dir, creating it if needed.
func NewWriter(fs afero.Fs, dir string, logger *zap.Logger) (*Writer, error) {
	if err := fs.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", dir, err)
	}
	return &Writer{fs: fs, root: dir, logger: logger}, nil
}

// EventDir returns the archive directory for one event.
func (w *Writer) EventDir(eventID string) string {
	return filepath.Join(w.root, eventID)
}

// ProvisionEventDirs creates the event directory tree, including one
// directory per gallery, before any download task is queued.
func (w *Writer) ProvisionEventDirs(eventID string, gallerySlugs []string) (string, error) {
	root := w.EventDir(eventID)
	dirs := []string{
		root,
		filepath.Join(root, "documents"),
		filepath.Join(root, "images", "hotel"),
	}
	for _, gallerySlug := range gallerySlugs {
		dirs = append(dirs, filepath.Join(root, "images", gallerySlug))
	}
	for _, dir := range dirs {
		if err := w.fs.MkdirAll(dir, 0o750); err != nil {
			return "", fmt.Errorf("create event dir %s: %w", dir, err)
		}
	}
	return root, nil
}

// WriteIndex persists the discovered event list for the run.
func (w *Writer) WriteIndex(entries []crawler.IndexEntry) error {
	return w.writeJSON(filepath.Join(w.root, indexFilename), entries)
}

// WriteEvent persists the finalized event record. Must only be called
// after the event's assets have been downloaded: its presence marks the
// event completed.
func (w *Writer) WriteEvent(event *crawler.Event) error {
	target := filepath.Join(w.EventDir(event.ID), eventFilename)
	if err := w.fs.MkdirAll(w.EventDir(event.ID), 0o750); err != nil {
		return fmt.Errorf("create event dir: %w", err)
	}
	if err := w.writeJSON(target, event); err != nil {
		return err
	}
	w.logger.Info("event record written",
		zap.String("event_id", event.ID),
		zap.String("path", target),
	)
	return nil
}

// ReadEvent loads a previously written event record.
func (w *Writer) ReadEvent(eventID string) (*crawler.Event, error) {
	data, err := afero.ReadFile(w.fs, filepath.Join(w.EventDir(eventID), eventFilename))
	if err != nil {
		return nil, fmt.Errorf("read event record %s: %w", eventID, err)
	}
	var event crawler.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("decode event record %s: %w", eventID, err)
	}
	return &event, nil
}

func (w *Writer) writeJSON(path string, v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := afero.WriteFile(w.fs, path, payload, 0o640); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
