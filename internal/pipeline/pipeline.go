// Package pipeline sequences the crawl: authenticate, discover, filter by
// the run ledger, then process events one at a time.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/timoparlison/febiscrawler/internal/crawler"
	"github.com/timoparlison/febiscrawler/internal/slug"
	"github.com/timoparlison/febiscrawler/internal/transfer"
)

// Options select what a run processes.
type Options struct {
	// EventID restricts the run to a single event. Empty means all.
	EventID string
	// Force re-processes events the ledger already marks completed.
	Force bool
}

// Deps are the collaborators a Pipeline drives. All are required.
type Deps struct {
	Session     crawler.Session
	IndexParser crawler.IndexParser
	EventParser crawler.EventParser
	Records     crawler.RecordStore
	Ledger      crawler.Ledger
	Downloader  *transfer.Downloader
	Executor    *transfer.Executor
	IndexURL    string
	EventURL    func(eventID string) string
	Logger      *zap.Logger
}

// Pipeline runs the crawl end to end. Events are processed strictly
// sequentially; only asset transfers within one event run in parallel. The
// event record is written only after every asset download in its batch
// succeeded, so the ledger never marks a partially downloaded event.
type Pipeline struct {
	deps Deps
	now  func() time.Time
}

// New builds a Pipeline.
func New(deps Deps) *Pipeline {
	return &Pipeline{deps: deps, now: time.Now}
}

// EntryStatus pairs a discovered entry with its ledger state, for dry runs.
type EntryStatus struct {
	crawler.IndexEntry
	Completed bool
}

// Discover authenticates, fetches the index and reports each entry's
// completion status without side effects.
func (p *Pipeline) Discover(ctx context.Context) ([]EntryStatus, error) {
	entries, err := p.discover(ctx)
	if err != nil {
		return nil, err
	}
	completed, err := p.deps.Ledger.CompletedIDs()
	if err != nil {
		return nil, err
	}
	statuses := make([]EntryStatus, len(entries))
	for i, entry := range entries {
		_, done := completed[entry.ID]
		statuses[i] = EntryStatus{IndexEntry: entry, Completed: done}
	}
	return statuses, nil
}

// Run executes a full crawl. Authentication failure aborts the run before
// any event is touched; every later failure is isolated to its event.
func (p *Pipeline) Run(ctx context.Context, opts Options) (crawler.RunSummary, error) {
	summary := crawler.RunSummary{RunID: uuid.NewString()}
	log := p.deps.Logger.With(zap.String("run_id", summary.RunID))

	entries, err := p.discover(ctx)
	if err != nil {
		return summary, err
	}
	if err := p.deps.Records.WriteIndex(entries); err != nil {
		return summary, err
	}
	if opts.EventID != "" {
		entries = p.selectSingle(entries, opts.EventID)
	}

	completed, err := p.deps.Ledger.CompletedIDs()
	if err != nil {
		return summary, err
	}

	failedDownloads := make(map[string]int)
	log.Info("crawl starting",
		zap.Int("events", len(entries)),
		zap.Int("already_completed", len(completed)),
		zap.Bool("force", opts.Force),
	)
	for _, entry := range entries {
		if _, done := completed[entry.ID]; done && !opts.Force {
			log.Info("event already completed, skipping", zap.String("event_id", entry.ID))
			summary.Skipped++
			continue
		}
		failedURLs, err := p.processEvent(ctx, entry)
		for _, url := range failedURLs {
			failedDownloads[url]++
		}
		if err != nil {
			log.Error("event failed", zap.String("event_id", entry.ID), zap.Error(err))
			summary.Failed++
			continue
		}
		summary.Succeeded++
	}

	p.writeState(failedDownloads)
	log.Info("crawl finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

// discover authenticates the session and parses the index page.
func (p *Pipeline) discover(ctx context.Context) ([]crawler.IndexEntry, error) {
	if err := p.deps.Session.Authenticate(ctx, p.deps.IndexURL); err != nil {
		return nil, err
	}
	html, err := p.deps.Session.FetchPage(ctx, p.deps.IndexURL)
	if err != nil {
		return nil, err
	}
	return p.deps.IndexParser.Parse(html)
}

// selectSingle narrows to one event id, synthesizing an entry when the
// index does not list it (pages can exist without an index link).
func (p *Pipeline) selectSingle(entries []crawler.IndexEntry, eventID string) []crawler.IndexEntry {
	for _, entry := range entries {
		if entry.ID == eventID {
			return []crawler.IndexEntry{entry}
		}
	}
	return []crawler.IndexEntry{{
		ID:    eventID,
		Title: eventID,
		URL:   p.deps.EventURL(eventID),
	}}
}

// processEvent runs one event through fetch, parse, provisioning, batched
// download and record persistence. Any failed download leaves the event
// unrecorded so the next run retries it; the failed URLs are returned for
// the run state snapshot.
func (p *Pipeline) processEvent(ctx context.Context, entry crawler.IndexEntry) ([]string, error) {
	html, err := p.deps.Session.FetchPage(ctx, entry.URL)
	if err != nil {
		return nil, err
	}
	event, err := p.deps.EventParser.Parse(html, entry.ID, entry.URL)
	if err != nil {
		return nil, err
	}

	gallerySlugs := make([]string, len(event.Galleries))
	for i, gallery := range event.Galleries {
		gallerySlugs[i] = slug.Make(gallery.Title)
	}
	eventDir, err := p.deps.Records.ProvisionEventDirs(event.ID, gallerySlugs)
	if err != nil {
		return nil, err
	}

	tasks := buildDownloadTasks(event, eventDir)
	p.deps.Logger.Info("downloading event assets",
		zap.String("event_id", event.ID),
		zap.Int("tasks", len(tasks)),
	)
	outcomes := p.deps.Executor.RunAll(ctx, tasks, func(ctx context.Context, task crawler.TransferTask) error {
		return p.deps.Downloader.Download(ctx, task.URL, task.TargetPath)
	})

	var failedURLs []string
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			p.deps.Logger.Warn("asset download failed",
				zap.String("event_id", event.ID),
				zap.String("url", outcome.Task.URL),
				zap.Error(outcome.Err),
			)
			failedURLs = append(failedURLs, outcome.Task.URL)
		}
	}
	if len(failedURLs) > 0 {
		return failedURLs, fmt.Errorf("event %s: %d of %d downloads failed", event.ID, len(failedURLs), len(tasks))
	}

	if err := p.deps.Records.WriteEvent(event); err != nil {
		return nil, err
	}
	return nil, nil
}

// buildDownloadTasks maps every asset in the event's collections to exactly
// one task targeting its archive path.
func buildDownloadTasks(event *crawler.Event, eventDir string) []crawler.TransferTask {
	var tasks []crawler.TransferTask
	add := func(url, localPath string) {
		tasks = append(tasks, crawler.TransferTask{
			URL:        url,
			TargetPath: filepath.Join(eventDir, filepath.FromSlash(localPath)),
		})
	}
	for _, doc := range event.Documents {
		add(doc.OriginalURL, doc.LocalPath)
	}
	for _, img := range event.HotelImages {
		add(img.OriginalURL, img.LocalPath)
	}
	for _, gallery := range event.Galleries {
		for _, img := range gallery.Images {
			add(img.OriginalURL, img.LocalPath)
		}
	}
	return tasks
}

// writeState snapshots run diagnostics. A failure here is logged but never
// fails the run: the ledger derives from event records, not this file.
func (p *Pipeline) writeState(failedDownloads map[string]int) {
	completed, err := p.deps.Ledger.CompletedIDs()
	if err != nil {
		p.deps.Logger.Warn("could not derive completed set for state snapshot", zap.Error(err))
		return
	}
	ids := make([]string, 0, len(completed))
	for id := range completed {
		ids = append(ids, id)
	}
	state := crawler.MigrationState{
		CompletedEvents: ids,
		FailedDownloads: failedDownloads,
		LastRun:         p.now(),
	}
	if len(failedDownloads) == 0 {
		state.FailedDownloads = nil
	}
	if err := p.deps.Ledger.WriteState(state); err != nil {
		p.deps.Logger.Warn("could not write migration state", zap.Error(err))
	}
}
