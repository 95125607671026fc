package crawler

import "context"

// Session is an authenticated HTTP context shared by all fetches in a run.
// Authenticate must complete before any concurrent use of FetchPage.
type Session interface {
	Authenticate(ctx context.Context, targetURL string) error
	FetchPage(ctx context.Context, url string) (string, error)
}

// IndexParser turns raw index-page markup into an ordered, deduplicated
// entry list.
type IndexParser interface {
	Parse(html string) ([]IndexEntry, error)
}

// EventParser turns raw event-page markup into a populated Event.
type EventParser interface {
	Parse(html, eventID, sourceURL string) (*Event, error)
}

// RecordStore writes finalized event records and the run index to durable
// storage. The presence of an event record is the completion marker the
// ledger derives from.
type RecordStore interface {
	WriteIndex(entries []IndexEntry) error
	WriteEvent(event *Event) error
	ReadEvent(eventID string) (*Event, error)
	ProvisionEventDirs(eventID string, gallerySlugs []string) (string, error)
	EventDir(eventID string) string
}

// Ledger answers which events a prior run has fully completed.
type Ledger interface {
	CompletedIDs() (map[string]struct{}, error)
	IsCompleted(eventID string) (bool, error)
	WriteState(state MigrationState) error
}

// BlobStore uploads one object to remote storage and returns its public URL.
type BlobStore interface {
	Upload(ctx context.Context, objectPath, contentType string, data []byte) (string, error)
}

// EventStore persists event rows and their child collections with
// parent-before-child ordering. Deleting an event cascades to children.
type EventStore interface {
	FindEventID(ctx context.Context, slug string) (string, bool, error)
	DeleteEvent(ctx context.Context, id string) error
	InsertEvent(ctx context.Context, event *Event) (string, error)
	InsertDocuments(ctx context.Context, eventID string, docs []Document, fileURLs map[string]string) error
	InsertVideos(ctx context.Context, eventID string, videos []Video) error
	InsertHotelImages(ctx context.Context, eventID string, images []HotelImage, imageURLs map[string]string) error
	InsertGallery(ctx context.Context, eventID string, gallery Gallery) (string, error)
	InsertGalleryImages(ctx context.Context, galleryID string, images []GalleryImage, imageURLs map[string]string) error
	DeleteAllMembers(ctx context.Context, table string) error
	InsertTeamMembers(ctx context.Context, members []TeamMember, imageURLs map[string]string) error
	InsertBoardMembers(ctx context.Context, members []BoardMember, imageURLs map[string]string) error
	Close()
}
