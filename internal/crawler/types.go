// Package crawler defines core types shared across subsystems.
package crawler

import "time"

// IndexEntry is one event discovered on the index page.
type IndexEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// DocumentCategory classifies a downloadable document.
type DocumentCategory string

// Document categories persisted in event records and remote rows.
const (
	CategoryConvocation  DocumentCategory = "convocation"
	CategoryInvitation   DocumentCategory = "invitation"
	CategoryAgenda       DocumentCategory = "agenda"
	CategoryProgram      DocumentCategory = "program"
	CategoryParticipants DocumentCategory = "participants"
	CategoryPresentation DocumentCategory = "presentation"
	CategoryReport       DocumentCategory = "report"
	CategorySurvey       DocumentCategory = "survey"
	CategorySponsoring   DocumentCategory = "sponsoring"
	CategoryCompliance   DocumentCategory = "compliance"
	CategoryMinutes      DocumentCategory = "minutes"
	CategoryOther        DocumentCategory = "other"
)

// Document is a downloadable file attached to an event.
type Document struct {
	Title           string           `json:"title"`
	Filename        string           `json:"filename"`
	Category        DocumentCategory `json:"category"`
	OriginalURL     string           `json:"originalUrl"`
	LocalPath       string           `json:"localPath"`
	SortOrder       int              `json:"sortOrder"`
	SizeDescription string           `json:"sizeDescription,omitempty"`
}

// HotelImage is one image from the hotel slider gallery.
type HotelImage struct {
	OriginalURL string `json:"originalUrl"`
	LocalPath   string `json:"localPath"`
	SortOrder   int    `json:"sortOrder"`
}

// GalleryImage is one image inside a photo gallery.
type GalleryImage struct {
	OriginalURL string `json:"originalUrl"`
	LocalPath   string `json:"localPath"`
	Caption     string `json:"caption,omitempty"`
	SortOrder   int    `json:"sortOrder"`
}

// Gallery is an ordered collection of images with a title.
type Gallery struct {
	Title     string         `json:"title"`
	SortOrder int            `json:"sortOrder"`
	Images    []GalleryImage `json:"images"`
}

// Video references an embedded YouTube video.
type Video struct {
	Title      string `json:"title"`
	YouTubeURL string `json:"youtubeUrl"`
	SortOrder  int    `json:"sortOrder"`
}

// Event is the structured record for one content unit. Asset collections
// keep insertion order; SortOrder is authoritative for presentation.
type Event struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	EventType       string       `json:"eventType"`
	DateStart       string       `json:"dateStart,omitempty"`
	DateEnd         string       `json:"dateEnd,omitempty"`
	LocationCity    string       `json:"locationCity,omitempty"`
	LocationCountry string       `json:"locationCountry,omitempty"`
	Description     string       `json:"description,omitempty"`
	SourceURL       string       `json:"sourceUrl"`
	CrawledAt       time.Time    `json:"crawledAt"`
	HotelName       string       `json:"hotelName,omitempty"`
	HotelAddress    string       `json:"hotelAddress,omitempty"`
	HotelWebsite    string       `json:"hotelWebsite,omitempty"`
	HotelImages     []HotelImage `json:"hotelImages,omitempty"`
	Documents       []Document   `json:"documents,omitempty"`
	Videos          []Video      `json:"videos,omitempty"`
	Galleries       []Gallery    `json:"galleries,omitempty"`
}

// ImageCount returns the total number of gallery images across all galleries.
func (e *Event) ImageCount() int {
	n := 0
	for _, g := range e.Galleries {
		n += len(g.Images)
	}
	return n
}

// TransferTask is one unit of work for the bounded executor. For downloads
// URL is remote and TargetPath local; for uploads URL is a local file path
// and TargetPath the remote object path.
type TransferTask struct {
	URL        string
	TargetPath string
}

// TransferOutcome pairs a task with its terminal result. Err is nil on
// success; on failure it carries the classified cause.
type TransferOutcome struct {
	Task TransferTask
	Err  error
}

// RunSummary aggregates per-run counters. It is the sole aggregate
// status surface of a migration run.
type RunSummary struct {
	RunID     string
	Succeeded int
	Failed    int
	Skipped   int
}

// MigrationState is a diagnostic snapshot written after a full run. The
// skip set is always derived from durable event records, never from here.
type MigrationState struct {
	CompletedEvents []string       `json:"completedEvents"`
	FailedDownloads map[string]int `json:"failedDownloads,omitempty"`
	LastRun         time.Time      `json:"lastRun"`
}

// TeamMember is one staff entry from the administration page.
type TeamMember struct {
	Name        string `json:"name"`
	Role        string `json:"role,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Mobile      string `json:"mobile,omitempty"`
	Email       string `json:"email,omitempty"`
	LinkedInURL string `json:"linkedinUrl,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	SortOrder   int    `json:"sortOrder"`
}

// BoardMember is one board entry from the board page.
type BoardMember struct {
	Name             string `json:"name"`
	Role             string `json:"role,omitempty"`
	Company          string `json:"company,omitempty"`
	Location         string `json:"location,omitempty"`
	CurrentPositions string `json:"currentPositions,omitempty"`
	Profile          string `json:"profile,omitempty"`
	Ambition         string `json:"ambition,omitempty"`
	LinkedInURL      string `json:"linkedinUrl,omitempty"`
	ImageURL         string `json:"imageUrl,omitempty"`
	SortOrder        int    `json:"sortOrder"`
}
