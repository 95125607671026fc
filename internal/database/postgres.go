// Package database persists event rows and their child collections to the
// remote Postgres (Supabase) project.
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/timoparlison/febiscrawler/internal/crawler"
)

// PgxIface is the subset of pgxpool.Pool the store uses. pgxmock satisfies
// it in tests.
type PgxIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, batch *pgx.Batch) pgx.BatchResults
	Close()
}

// PostgresStore implements crawler.EventStore over a pgx pool.
type PostgresStore struct {
	pool   PgxIface
	logger *zap.Logger
}

// NewPostgresStore connects to the database and pings it.
func NewPostgresStore(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// NewPostgresStoreWithPool wraps an existing pool, used by tests.
func NewPostgresStoreWithPool(pool PgxIface, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger}
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// FindEventID looks up an event row by slug.
func (s *PostgresStore) FindEventID(ctx context.Context, slugValue string) (string, bool, error) {
	var id string
	err := s.pool.QueryRow(ctx, `SELECT id FROM events WHERE slug = $1`, slugValue).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &crawler.PersistenceError{Op: "select event", Message: slugValue, Err: err}
	}
	return id, true, nil
}

// DeleteEvent removes an event row; child rows cascade remotely.
func (s *PostgresStore) DeleteEvent(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id); err != nil {
		return &crawler.PersistenceError{Op: "delete event", Message: id, Err: err}
	}
	return nil
}

// InsertEvent writes the parent row and returns its generated id.
func (s *PostgresStore) InsertEvent(ctx context.Context, event *crawler.Event) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO events (
			title, slug, event_type, status,
			date_start, date_end, location_city, location_country,
			description, hotel_name, hotel_address, hotel_website
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		event.Title,
		event.ID,
		event.EventType,
		"draft",
		nullable(event.DateStart),
		nullable(event.DateEnd),
		nullable(event.LocationCity),
		nullable(event.LocationCountry),
		nullable(event.Description),
		nullable(event.HotelName),
		nullable(event.HotelAddress),
		nullable(event.HotelWebsite),
	).Scan(&id)
	if err != nil {
		return "", &crawler.PersistenceError{Op: "insert event", Message: event.ID, Err: err}
	}
	s.logger.Info("inserted event row",
		zap.String("slug", event.ID),
		zap.String("id", id),
	)
	return id, nil
}

// InsertDocuments batch-inserts document rows. fileURLs maps each
// document's local path to its uploaded public URL.
func (s *PostgresStore) InsertDocuments(ctx context.Context, eventID string, docs []crawler.Document, fileURLs map[string]string) error {
	if len(docs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, doc := range docs {
		batch.Queue(`
			INSERT INTO event_documents (event_id, title, filename, file_url, category, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			eventID, doc.Title, doc.Filename, fileURLs[doc.LocalPath], string(doc.Category), doc.SortOrder,
		)
	}
	return s.sendBatch(ctx, "insert documents", batch)
}

// InsertVideos batch-inserts video rows.
func (s *PostgresStore) InsertVideos(ctx context.Context, eventID string, videos []crawler.Video) error {
	if len(videos) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, video := range videos {
		batch.Queue(`
			INSERT INTO event_videos (event_id, title, youtube_url, sort_order)
			VALUES ($1, $2, $3, $4)`,
			eventID, video.Title, video.YouTubeURL, video.SortOrder,
		)
	}
	return s.sendBatch(ctx, "insert videos", batch)
}

// InsertHotelImages batch-inserts hotel image rows.
func (s *PostgresStore) InsertHotelImages(ctx context.Context, eventID string, images []crawler.HotelImage, imageURLs map[string]string) error {
	if len(images) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, img := range images {
		batch.Queue(`
			INSERT INTO event_hotel_images (event_id, image_url, sort_order)
			VALUES ($1, $2, $3)`,
			eventID, imageURLs[img.LocalPath], img.SortOrder,
		)
	}
	return s.sendBatch(ctx, "insert hotel images", batch)
}

// InsertGallery writes a gallery parent row and returns its id so image
// rows can reference it.
func (s *PostgresStore) InsertGallery(ctx context.Context, eventID string, gallery crawler.Gallery) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO event_galleries (event_id, title, sort_order)
		VALUES ($1, $2, $3)
		RETURNING id`,
		eventID, gallery.Title, gallery.SortOrder,
	).Scan(&id)
	if err != nil {
		return "", &crawler.PersistenceError{Op: "insert gallery", Message: gallery.Title, Err: err}
	}
	return id, nil
}

// InsertGalleryImages batch-inserts image rows for one gallery.
func (s *PostgresStore) InsertGalleryImages(ctx context.Context, galleryID string, images []crawler.GalleryImage, imageURLs map[string]string) error {
	if len(images) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, img := range images {
		batch.Queue(`
			INSERT INTO event_gallery_images (gallery_id, image_url, caption, sort_order)
			VALUES ($1, $2, $3, $4)`,
			galleryID, imageURLs[img.LocalPath], nullable(img.Caption), img.SortOrder,
		)
	}
	return s.sendBatch(ctx, "insert gallery images", batch)
}

// DeleteAllMembers clears a member table ahead of a forced re-migration.
func (s *PostgresStore) DeleteAllMembers(ctx context.Context, table string) error {
	if table != "team_members" && table != "board_members" {
		return &crawler.PersistenceError{Op: "delete members", Message: "unknown table " + table}
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM `+table); err != nil {
		return &crawler.PersistenceError{Op: "delete members", Message: table, Err: err}
	}
	return nil
}

// InsertTeamMembers batch-inserts staff rows. imageURLs maps source image
// URLs to uploaded public URLs.
func (s *PostgresStore) InsertTeamMembers(ctx context.Context, members []crawler.TeamMember, imageURLs map[string]string) error {
	if len(members) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range members {
		batch.Queue(`
			INSERT INTO team_members (name, role, phone, mobile, email, linkedin_url, image_url, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			m.Name, nullable(m.Role), nullable(m.Phone), nullable(m.Mobile),
			nullable(m.Email), nullable(m.LinkedInURL), nullable(imageURLs[m.ImageURL]), m.SortOrder,
		)
	}
	return s.sendBatch(ctx, "insert team members", batch)
}

// InsertBoardMembers batch-inserts board rows.
func (s *PostgresStore) InsertBoardMembers(ctx context.Context, members []crawler.BoardMember, imageURLs map[string]string) error {
	if len(members) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range members {
		batch.Queue(`
			INSERT INTO board_members (
				name, role, company, location, current_positions,
				profile, ambition, linkedin_url, image_url, sort_order
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			m.Name, nullable(m.Role), nullable(m.Company), nullable(m.Location),
			nullable(m.CurrentPositions), nullable(m.Profile), nullable(m.Ambition),
			nullable(m.LinkedInURL), nullable(imageURLs[m.ImageURL]), m.SortOrder,
		)
	}
	return s.sendBatch(ctx, "insert board members", batch)
}

func (s *PostgresStore) sendBatch(ctx context.Context, op string, batch *pgx.Batch) error {
	results := s.pool.SendBatch(ctx, batch)
	defer func() {
		if err := results.Close(); err != nil {
			s.logger.Warn("close batch results", zap.String("op", op), zap.Error(err))
		}
	}()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return &crawler.PersistenceError{Op: op, Message: fmt.Sprintf("row %d", i), Err: err}
		}
	}
	return nil
}

// nullable maps empty strings to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
