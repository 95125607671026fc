package output

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/timoparlison/febiscrawler/internal/crawler"
)

func newTestWriter(t *testing.T) (*Writer, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	w, err := NewWriter(fs, "/archive", zap.NewNop())
	require.NoError(t, err)
	return w, fs
}

func TestWriter_ProvisionEventDirs(t *testing.T) {
	t.Parallel()

	w, fs := newTestWriter(t)
	root, err := w.ProvisionEventDirs("2025-rhodes", []string{"gala-dinner", "city-tour"})
	require.NoError(t, err)
	assert.Equal(t, "/archive/2025-rhodes", root)

	for _, dir := range []string{
		"/archive/2025-rhodes/documents",
		"/archive/2025-rhodes/images/hotel",
		"/archive/2025-rhodes/images/gala-dinner",
		"/archive/2025-rhodes/images/city-tour",
	} {
		exists, err := afero.DirExists(fs, dir)
		require.NoError(t, err)
		assert.True(t, exists, dir)
	}
}

func TestWriter_EventRoundTrip(t *testing.T) {
	t.Parallel()

	w, _ := newTestWriter(t)
	event := &crawler.Event{
		ID:        "2024-nice",
		Title:     "GA 2024 Nice",
		EventType: "general-assembly",
		DateStart: "2024-09-18",
		CrawledAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Documents: []crawler.Document{{
			Title:     "Agenda",
			Filename:  "agenda.pdf",
			Category:  crawler.CategoryAgenda,
			LocalPath: "documents/agenda.pdf",
		}},
	}

	require.NoError(t, w.WriteEvent(event))
	got, err := w.ReadEvent("2024-nice")
	require.NoError(t, err)
	assert.Equal(t, event, got)
}

func TestWriter_ReadEventMissingFails(t *testing.T) {
	t.Parallel()

	w, _ := newTestWriter(t)
	_, err := w.ReadEvent("nope")
	require.Error(t, err)
}

func TestLedger_DerivesCompletionFromEventRecords(t *testing.T) {
	t.Parallel()

	w, fs := newTestWriter(t)
	ledger := NewLedger(fs, "/archive")

	// A provisioned directory without a record is not completed.
	_, err := w.ProvisionEventDirs("2025-rhodes", nil)
	require.NoError(t, err)

	require.NoError(t, w.WriteEvent(&crawler.Event{ID: "2024-nice"}))

	completed, err := ledger.CompletedIDs()
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"2024-nice": {}}, completed)

	done, err := ledger.IsCompleted("2024-nice")
	require.NoError(t, err)
	assert.True(t, done)

	done, err = ledger.IsCompleted("2025-rhodes")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestLedger_MissingArchiveMeansNothingCompleted(t *testing.T) {
	t.Parallel()

	ledger := NewLedger(afero.NewMemMapFs(), "/never-created")
	completed, err := ledger.CompletedIDs()
	require.NoError(t, err)
	assert.Empty(t, completed)
}

func TestLedger_WriteStateSortsCompletedEvents(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/archive", 0o750))
	ledger := NewLedger(fs, "/archive")

	err := ledger.WriteState(crawler.MigrationState{
		CompletedEvents: []string{"2025-rhodes", "2023-hamburg", "2024-nice"},
		LastRun:         time.Now(),
	})
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "/archive/migration-state.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), "2023-hamburg")
	assert.Less(t,
		strings.Index(string(data), "2023-hamburg"),
		strings.Index(string(data), "2024-nice"),
	)
}
