package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/timoparlison/febiscrawler/internal/crawler"
)

const eventPageHTML = `<html>
<head>
	<meta property="og:title" content="General Assembly 2025 Rhodes">
	<meta property="og:description" content="ATRIUM PLATINUM HOTEL ILIADOS STR, IXIA, GREECE, 85101 Rhodes">
</head>
<body>
<div id="content_area">
	<div class="j-module j-header"><h1>GA 2025</h1><h2>24.09.2025 - 26.09.2025</h2></div>

	<div class="j-module j-header"><h2>Hotel</h2></div>
	<div class="j-module j-text">
		<p><strong>Atrium Platinum Hotel</strong></p>
		<p>Iliados Str, Ixia</p>
		<p>85101 Rhodes, Greece</p>
		<p><a href="https://www.atrium.gr">www.atrium.gr</a></p>
	</div>
	<div class="j-module j-gallery">
		<div class="cc-m-gallery-container cc-m-gallery-slider">
			<ul>
				<li><a data-href="https://image.jimcdn.com/cdn-cgi/image/width=512,quality=80/app/cms/storage/hotel1.jpg"><img></a></li>
				<li><a data-href="https://image.jimcdn.com/app/cms/storage/hotel2.jpg"><img></a></li>
			</ul>
		</div>
	</div>

	<div class="j-module j-downloadDocument">
		<a class="cc-m-download-link" href="/app/download/123/Convocation%20GA%202025.pdf?t=1"></a>
		<span class="cc-m-download-title">Convocation GA 2025</span>
		<span class="cc-m-download-file-size">240.5 KB</span>
	</div>
	<div class="j-module j-downloadDocument">
		<a class="j-m-dowload" href="https://files.example.com/20250924%20Opening%20Remarks.pdf"></a>
		<span class="cc-m-download-title">Opening Remarks</span>
	</div>

	<div id="cc-matrix-100">
		<div class="j-module j-header"><h3>Welcome Address</h3></div>
		<iframe class="cc-m-video-youtu-container" data-src="https://www.youtube.com/embed/dQw4w9WgXcQ?rel=0"></iframe>
	</div>

	<div class="j-module j-header"><h3>Gala Dinner</h3></div>
	<div class="j-module j-gallery">
		<div class="cc-m-gallery-container">
			<a rel="lightbox[g1]" data-href="https://image.jimcdn.com/cdn-cgi/image/width=1024/app/cms/storage/dinner1.jpg"></a>
			<a rel="lightbox[g1]" data-href="https://image.jimcdn.com/app/cms/storage/dinner2.jpg"></a>
		</div>
	</div>
</div>
</body>
</html>`

func parseFixture(t *testing.T) *crawler.Event {
	t.Helper()
	p := NewEventParser("https://www.febis.org", zap.NewNop())
	p.now = func() time.Time { return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) }

	event, err := p.Parse(eventPageHTML, "2025-rhodes", "https://www.febis.org/members-login/general-assembly/2025-rhodes/")
	require.NoError(t, err)
	return event
}

func TestEventParser_Metadata(t *testing.T) {
	t.Parallel()

	event := parseFixture(t)
	assert.Equal(t, "2025-rhodes", event.ID)
	assert.Equal(t, "General Assembly 2025 Rhodes", event.Title)
	assert.Equal(t, "general-assembly", event.EventType)
	assert.Equal(t, "2025-09-24", event.DateStart)
	assert.Equal(t, "2025-09-26", event.DateEnd)
	assert.Equal(t, "IXIA", event.LocationCity)
	assert.Equal(t, "GREECE", event.LocationCountry)
	assert.Equal(t, time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC), event.CrawledAt)
}

func TestEventParser_HotelSection(t *testing.T) {
	t.Parallel()

	event := parseFixture(t)
	assert.Equal(t, "Atrium Platinum Hotel", event.HotelName)
	assert.Equal(t, "Iliados Str, Ixia, 85101 Rhodes, Greece", event.HotelAddress)
	assert.Equal(t, "https://www.atrium.gr", event.HotelWebsite)

	require.Len(t, event.HotelImages, 2)
	assert.Equal(t, "https://image.jimcdn.com/app/cms/storage/hotel1.jpg", event.HotelImages[0].OriginalURL)
	assert.Equal(t, "images/hotel/001.jpg", event.HotelImages[0].LocalPath)
	assert.Equal(t, "images/hotel/002.jpg", event.HotelImages[1].LocalPath)
	assert.Equal(t, 0, event.HotelImages[0].SortOrder)
}

func TestEventParser_Documents(t *testing.T) {
	t.Parallel()

	event := parseFixture(t)
	require.Len(t, event.Documents, 2)

	first := event.Documents[0]
	assert.Equal(t, "Convocation GA 2025", first.Title)
	assert.Equal(t, "convocation-ga-2025.pdf", first.Filename)
	assert.Equal(t, crawler.CategoryConvocation, first.Category)
	assert.Equal(t, "https://www.febis.org/app/download/123/Convocation%20GA%202025.pdf?t=1", first.OriginalURL)
	assert.Equal(t, "documents/convocation-ga-2025.pdf", first.LocalPath)
	assert.Equal(t, "240.5 KB", first.SizeDescription)

	second := event.Documents[1]
	assert.Equal(t, "https://files.example.com/20250924%20Opening%20Remarks.pdf", second.OriginalURL)
	assert.Equal(t, crawler.CategoryPresentation, second.Category, "dated prefix marks a presentation")
	assert.Equal(t, 1, second.SortOrder)
}

func TestEventParser_Videos(t *testing.T) {
	t.Parallel()

	event := parseFixture(t)
	require.Len(t, event.Videos, 1)
	assert.Equal(t, "Welcome Address", event.Videos[0].Title)
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", event.Videos[0].YouTubeURL)
}

func TestEventParser_GalleriesSkipHotelSlider(t *testing.T) {
	t.Parallel()

	event := parseFixture(t)
	require.Len(t, event.Galleries, 1)

	gallery := event.Galleries[0]
	assert.Equal(t, "Gala Dinner", gallery.Title)
	require.Len(t, gallery.Images, 2)
	assert.Equal(t, "https://image.jimcdn.com/app/cms/storage/dinner1.jpg", gallery.Images[0].OriginalURL)
	assert.Equal(t, "images/gala-dinner/001.jpg", gallery.Images[0].LocalPath)
	assert.Equal(t, "images/gala-dinner/002.jpg", gallery.Images[1].LocalPath)
	assert.Equal(t, 2, event.ImageCount())
}

func TestEventParser_MissingContentAreaIsParseError(t *testing.T) {
	t.Parallel()

	p := NewEventParser("https://www.febis.org", zap.NewNop())
	_, err := p.Parse("<html><body></body></html>", "x", "https://example.com/x")
	var parseErr *crawler.ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestClassifyDocument(t *testing.T) {
	t.Parallel()

	cases := []struct {
		title    string
		filename string
		want     crawler.DocumentCategory
	}{
		{"Convocation GA 2025", "convocation.pdf", crawler.CategoryConvocation},
		{"Invitation", "inv.pdf", crawler.CategoryInvitation},
		{"Agenda Day 1", "agenda.pdf", crawler.CategoryAgenda},
		{"Program", "program.pdf", crawler.CategoryProgram},
		{"List of Participants", "list.pdf", crawler.CategoryParticipants},
		{"Minutes GA 2024", "minutes.pdf", crawler.CategoryMinutes},
		{"Sponsoring Packages", "sponsor.pdf", crawler.CategorySponsoring},
		{"FEBIS Statutes", "statuts.pdf", crawler.CategoryCompliance},
		{"Treasurer Report", "report.pdf", crawler.CategoryReport},
		{"Satisfaction Survey", "survey.pdf", crawler.CategorySurvey},
		{"Keynote Presentation", "keynote.pdf", crawler.CategoryPresentation},
		{"", "20250924 opening.pdf", crawler.CategoryPresentation},
		{"Misc Notes", "notes.pdf", crawler.CategoryOther},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classifyDocument(tc.title, tc.filename), "title=%q filename=%q", tc.title, tc.filename)
	}
}

func TestResolveFullResolution(t *testing.T) {
	t.Parallel()

	resized := "https://image.jimcdn.com/cdn-cgi/image/width=2048,quality=85,format=auto/app/cms/storage/img.jpg"
	assert.Equal(t, "https://image.jimcdn.com/app/cms/storage/img.jpg", ResolveFullResolution(resized))

	plain := "https://image.jimcdn.com/app/cms/storage/img.jpg"
	assert.Equal(t, plain, ResolveFullResolution(plain))
}
