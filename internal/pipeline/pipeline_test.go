package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/timoparlison/febiscrawler/internal/crawler"
	"github.com/timoparlison/febiscrawler/internal/output"
	"github.com/timoparlison/febiscrawler/internal/transfer"
)

// fakeSession serves canned pages and records authentication.
type fakeSession struct {
	authErr   error
	authCalls int
	pages     map[string]string
}

func (s *fakeSession) Authenticate(_ context.Context, _ string) error {
	s.authCalls++
	return s.authErr
}

func (s *fakeSession) FetchPage(_ context.Context, url string) (string, error) {
	page, ok := s.pages[url]
	if !ok {
		return "", &crawler.NetworkError{URL: url, Status: http.StatusNotFound}
	}
	return page, nil
}

// fakeIndexParser returns a fixed entry list.
type fakeIndexParser struct {
	entries []crawler.IndexEntry
	err     error
}

func (p *fakeIndexParser) Parse(_ string) ([]crawler.IndexEntry, error) {
	return p.entries, p.err
}

// fakeEventParser builds one event per id with a single document whose URL
// comes from the page body.
type fakeEventParser struct {
	parseErr map[string]error
}

func (p *fakeEventParser) Parse(html, eventID, sourceURL string) (*crawler.Event, error) {
	if err := p.parseErr[eventID]; err != nil {
		return nil, err
	}
	return &crawler.Event{
		ID:        eventID,
		Title:     "GA " + eventID,
		EventType: "general-assembly",
		SourceURL: sourceURL,
		Documents: []crawler.Document{{
			Title:       "Agenda",
			Filename:    "agenda.pdf",
			Category:    crawler.CategoryAgenda,
			OriginalURL: strings.TrimSpace(html),
			LocalPath:   "documents/agenda.pdf",
		}},
	}, nil
}

type fixture struct {
	pipeline *Pipeline
	session  *fakeSession
	fs       afero.Fs
	ledger   *output.Ledger
	server   *httptest.Server
}

// newFixture wires a pipeline over an in-memory archive and a local asset
// server. Each event page body is the asset URL its parsed document points
// at; paths under /fail respond 500.
func newFixture(t *testing.T, entries []crawler.IndexEntry) *fixture {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/fail") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("asset-bytes"))
	}))
	t.Cleanup(server.Close)

	const indexURL = "https://site.test/index/"
	session := &fakeSession{pages: map[string]string{indexURL: "<index>"}}
	for _, entry := range entries {
		session.pages[entry.URL] = server.URL + "/assets/" + entry.ID + ".pdf"
	}

	fs := afero.NewMemMapFs()
	writer, err := output.NewWriter(fs, "/archive", zap.NewNop())
	require.NoError(t, err)
	ledger := output.NewLedger(fs, "/archive")

	p := New(Deps{
		Session:     session,
		IndexParser: &fakeIndexParser{entries: entries},
		EventParser: &fakeEventParser{},
		Records:     writer,
		Ledger:      ledger,
		Downloader:  transfer.NewDownloader(resty.New(), fs, 2, time.Millisecond, zap.NewNop()),
		Executor:    transfer.NewExecutor(3, 0, zap.NewNop()),
		IndexURL:    indexURL,
		EventURL: func(id string) string {
			return "https://site.test/index/" + id + "/"
		},
		Logger: zap.NewNop(),
	})
	p.now = func() time.Time { return time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC) }

	return &fixture{pipeline: p, session: session, fs: fs, ledger: ledger, server: server}
}

func twoEntries() []crawler.IndexEntry {
	return []crawler.IndexEntry{
		{ID: "2025-rhodes", Title: "GA 2025", URL: "https://site.test/index/2025-rhodes/"},
		{ID: "2024-nice", Title: "GA 2024", URL: "https://site.test/index/2024-nice/"},
	}
}

func TestRun_FreshRunProcessesAllEvents(t *testing.T) {
	t.Parallel()

	f := newFixture(t, twoEntries())
	summary, err := f.pipeline.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 0, summary.Skipped)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 1, f.session.authCalls)

	completed, err := f.ledger.CompletedIDs()
	require.NoError(t, err)
	assert.Len(t, completed, 2)

	data, err := afero.ReadFile(f.fs, "/archive/2025-rhodes/documents/agenda.pdf")
	require.NoError(t, err)
	assert.Equal(t, "asset-bytes", string(data))

	exists, err := afero.Exists(f.fs, "/archive/events-index.json")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRun_PartialResumeSkipsCompleted(t *testing.T) {
	t.Parallel()

	f := newFixture(t, twoEntries())

	// A prior run completed 2024-nice.
	require.NoError(t, afero.WriteFile(f.fs, "/archive/2024-nice/event.json", []byte(`{"id":"2024-nice"}`), 0o640))

	summary, err := f.pipeline.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 1, summary.Skipped)
}

func TestRun_ForceReprocessesCompleted(t *testing.T) {
	t.Parallel()

	f := newFixture(t, twoEntries())
	require.NoError(t, afero.WriteFile(f.fs, "/archive/2024-nice/event.json", []byte(`{"id":"2024-nice"}`), 0o640))

	summary, err := f.pipeline.Run(context.Background(), Options{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 0, summary.Skipped)
}

func TestRun_AuthFailureAbortsBeforeProcessing(t *testing.T) {
	t.Parallel()

	f := newFixture(t, twoEntries())
	f.session.authErr = &crawler.AuthError{Message: "wrong password"}

	_, err := f.pipeline.Run(context.Background(), Options{})
	var authErr *crawler.AuthError
	require.ErrorAs(t, err, &authErr)

	exists, serr := afero.Exists(f.fs, "/archive/events-index.json")
	require.NoError(t, serr)
	assert.False(t, exists, "nothing may be written when authentication fails")
}

func TestRun_FailedDownloadLeavesEventUncommitted(t *testing.T) {
	t.Parallel()

	f := newFixture(t, twoEntries())
	// 2025-rhodes's asset URL points at the failing path.
	f.session.pages["https://site.test/index/2025-rhodes/"] = f.server.URL + "/fail/asset.pdf"

	summary, err := f.pipeline.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)

	done, err := f.ledger.IsCompleted("2025-rhodes")
	require.NoError(t, err)
	assert.False(t, done, "a failed download must not commit the event")

	state, err := afero.ReadFile(f.fs, "/archive/migration-state.json")
	require.NoError(t, err)
	assert.Contains(t, string(state), "/fail/asset.pdf")
}

func TestRun_PerEventParseFailureIsIsolated(t *testing.T) {
	t.Parallel()

	f := newFixture(t, twoEntries())
	f.pipeline.deps.EventParser = &fakeEventParser{parseErr: map[string]error{
		"2025-rhodes": &crawler.ParseError{URL: "x", Message: "broken markup"},
	}}

	summary, err := f.pipeline.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
}

func TestRun_SingleEventSynthesizesMissingEntry(t *testing.T) {
	t.Parallel()

	f := newFixture(t, twoEntries())
	f.session.pages["https://site.test/index/2019-vienna/"] = f.server.URL + "/assets/2019-vienna.pdf"

	summary, err := f.pipeline.Run(context.Background(), Options{EventID: "2019-vienna"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	done, err := f.ledger.IsCompleted("2019-vienna")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestDiscover_ReportsCompletionWithoutSideEffects(t *testing.T) {
	t.Parallel()

	f := newFixture(t, twoEntries())
	require.NoError(t, afero.WriteFile(f.fs, "/archive/2024-nice/event.json", []byte(`{"id":"2024-nice"}`), 0o640))

	statuses, err := f.pipeline.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.False(t, statuses[0].Completed)
	assert.True(t, statuses[1].Completed)

	exists, err := afero.Exists(f.fs, "/archive/events-index.json")
	require.NoError(t, err)
	assert.False(t, exists)
}
