// Package publish mirrors finalized local event records to remote storage
// and the remote database.
package publish

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/timoparlison/febiscrawler/internal/crawler"
	"github.com/timoparlison/febiscrawler/internal/slug"
	"github.com/timoparlison/febiscrawler/internal/storage"
	"github.com/timoparlison/febiscrawler/internal/transfer"
)

// ErrAlreadyPublished marks an event that already has a remote row and was
// not forced. Callers count it as skipped, not failed.
var ErrAlreadyPublished = errors.New("event already published")

// Publisher uploads an event's assets and inserts its rows with
// parent-before-child ordering. Rows are only written after every upload
// task has settled, so a row never references an upload still in flight.
type Publisher struct {
	records  crawler.RecordStore
	ledger   crawler.Ledger
	store    crawler.EventStore
	uploader *transfer.Uploader
	executor *transfer.Executor
	logger   *zap.Logger
}

// NewPublisher wires a Publisher from its collaborators.
func NewPublisher(records crawler.RecordStore, ledger crawler.Ledger, store crawler.EventStore, uploader *transfer.Uploader, executor *transfer.Executor, logger *zap.Logger) *Publisher {
	return &Publisher{
		records:  records,
		ledger:   ledger,
		store:    store,
		uploader: uploader,
		executor: executor,
		logger:   logger,
	}
}

// PublishAll publishes every completed event in the local archive. One
// failing event never stops the rest; the summary reports the split.
func (p *Publisher) PublishAll(ctx context.Context, force bool) (crawler.RunSummary, error) {
	completed, err := p.ledger.CompletedIDs()
	if err != nil {
		return crawler.RunSummary{}, err
	}
	ids := make([]string, 0, len(completed))
	for id := range completed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	summary := crawler.RunSummary{RunID: uuid.NewString()}
	p.logger.Info("publish run starting",
		zap.String("run_id", summary.RunID),
		zap.Int("events", len(ids)),
		zap.Bool("force", force),
	)
	for _, id := range ids {
		err := p.PublishEvent(ctx, id, force)
		switch {
		case errors.Is(err, ErrAlreadyPublished):
			summary.Skipped++
		case err != nil:
			summary.Failed++
			p.logger.Error("event publish failed", zap.String("event_id", id), zap.Error(err))
		default:
			summary.Succeeded++
		}
	}
	p.logger.Info("publish run finished",
		zap.String("run_id", summary.RunID),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

// PublishEvent publishes one event. With force, an existing remote event
// is deleted first and fully recreated; without it the event is skipped.
func (p *Publisher) PublishEvent(ctx context.Context, eventID string, force bool) error {
	event, err := p.records.ReadEvent(eventID)
	if err != nil {
		return err
	}

	existingID, exists, err := p.store.FindEventID(ctx, event.ID)
	if err != nil {
		return err
	}
	if exists {
		if !force {
			p.logger.Info("event already published, skipping",
				zap.String("event_id", event.ID),
				zap.String("remote_id", existingID),
			)
			return ErrAlreadyPublished
		}
		p.logger.Info("deleting existing remote event",
			zap.String("event_id", event.ID),
			zap.String("remote_id", existingID),
		)
		if err := p.store.DeleteEvent(ctx, existingID); err != nil {
			return err
		}
	}

	assetURLs, failed := p.uploadAssets(ctx, event)
	if failed > 0 {
		p.logger.Warn("some asset uploads failed, rows will carry null URLs",
			zap.String("event_id", event.ID),
			zap.Int("failed", failed),
		)
	}

	remoteID, err := p.store.InsertEvent(ctx, event)
	if err != nil {
		return err
	}
	if err := p.store.InsertDocuments(ctx, remoteID, event.Documents, assetURLs); err != nil {
		return err
	}
	if err := p.store.InsertVideos(ctx, remoteID, event.Videos); err != nil {
		return err
	}
	if err := p.store.InsertHotelImages(ctx, remoteID, event.HotelImages, assetURLs); err != nil {
		return err
	}
	for _, gallery := range event.Galleries {
		galleryID, err := p.store.InsertGallery(ctx, remoteID, gallery)
		if err != nil {
			return err
		}
		if err := p.store.InsertGalleryImages(ctx, galleryID, gallery.Images, assetURLs); err != nil {
			return err
		}
	}

	p.logger.Info("event published",
		zap.String("event_id", event.ID),
		zap.String("remote_id", remoteID),
		zap.Int("documents", len(event.Documents)),
		zap.Int("hotel_images", len(event.HotelImages)),
		zap.Int("gallery_images", event.ImageCount()),
	)
	return nil
}

// uploadAssets pushes every local asset of the event through the bounded
// executor and returns local-path to public-URL mappings for the ones that
// made it. Failed uploads are counted, not fatal.
func (p *Publisher) uploadAssets(ctx context.Context, event *crawler.Event) (map[string]string, int) {
	tasks := buildUploadTasks(event)
	if len(tasks) == 0 {
		return map[string]string{}, 0
	}

	eventDir := p.records.EventDir(event.ID)
	urls := make(map[string]string, len(tasks))
	var mu sync.Mutex

	outcomes := p.executor.RunAll(ctx, tasks, func(ctx context.Context, task crawler.TransferTask) error {
		localPath := filepath.Join(eventDir, filepath.FromSlash(task.URL))
		publicURL, err := p.uploader.Upload(ctx, localPath, task.TargetPath, storage.ContentTypeFor(task.TargetPath))
		if err != nil {
			return err
		}
		if publicURL != "" {
			mu.Lock()
			urls[task.URL] = publicURL
			mu.Unlock()
		}
		return nil
	})

	failed := 0
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			failed++
		}
	}
	return urls, failed
}

// buildUploadTasks maps each local asset path to its remote object path.
// Task URL carries the event-relative local path so outcomes key back to
// the record's LocalPath fields.
func buildUploadTasks(event *crawler.Event) []crawler.TransferTask {
	var tasks []crawler.TransferTask
	for _, doc := range event.Documents {
		tasks = append(tasks, crawler.TransferTask{
			URL:        doc.LocalPath,
			TargetPath: path.Join(event.ID, "documents", doc.Filename),
		})
	}
	for _, img := range event.HotelImages {
		tasks = append(tasks, crawler.TransferTask{
			URL:        img.LocalPath,
			TargetPath: path.Join(event.ID, "hotel", path.Base(filepath.ToSlash(img.LocalPath))),
		})
	}
	for _, gallery := range event.Galleries {
		gallerySlug := slug.Make(gallery.Title)
		for _, img := range gallery.Images {
			tasks = append(tasks, crawler.TransferTask{
				URL:        img.LocalPath,
				TargetPath: path.Join(event.ID, "galleries", gallerySlug, path.Base(filepath.ToSlash(img.LocalPath))),
			})
		}
	}
	return tasks
}

// Describe renders a one-line human summary of a publish run.
func Describe(s crawler.RunSummary) string {
	return fmt.Sprintf("run %s: %d published, %d failed, %d skipped", s.RunID, s.Succeeded, s.Failed, s.Skipped)
}
