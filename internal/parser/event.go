package parser

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/timoparlison/febiscrawler/internal/crawler"
	"github.com/timoparlison/febiscrawler/internal/slug"
)

var (
	datePattern      = regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}`)
	youtubeIDPattern = regexp.MustCompile(`/embed/([a-zA-Z0-9_-]+)`)
	datedPrefix      = regexp.MustCompile(`^\d{8}\s`)
)

// EventParser interprets one event page into an Event record.
type EventParser struct {
	baseURL string
	now     func() time.Time
	logger  *zap.Logger
}

// NewEventParser builds an EventParser resolving relative links against
// baseURL.
func NewEventParser(baseURL string, logger *zap.Logger) *EventParser {
	return &EventParser{baseURL: baseURL, now: time.Now, logger: logger}
}

// Parse extracts the event record. Asset local paths are deterministic
// functions of the parse output, so re-runs regenerate identical paths.
func (p *EventParser) Parse(html, eventID, sourceURL string) (*crawler.Event, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &crawler.ParseError{URL: sourceURL, Message: err.Error()}
	}
	content := doc.Find("#content_area").First()
	if content.Length() == 0 {
		return nil, &crawler.ParseError{URL: sourceURL, Message: "no #content_area found"}
	}

	dateStart, dateEnd := parseDates(content)
	city, country := parseLocation(doc)
	hotel := parseHotelInfo(content)

	event := &crawler.Event{
		ID:              eventID,
		Title:           parseTitle(doc, content),
		EventType:       "general-assembly",
		DateStart:       dateStart,
		DateEnd:         dateEnd,
		LocationCity:    city,
		LocationCountry: country,
		SourceURL:       sourceURL,
		CrawledAt:       p.now().UTC(),
		HotelName:       hotel.name,
		HotelAddress:    hotel.address,
		HotelWebsite:    hotel.website,
		HotelImages:     parseHotelImages(content),
		Documents:       p.parseDocuments(content),
		Videos:          parseVideos(content),
		Galleries:       parseGalleries(content),
	}

	p.logger.Info("parsed event page",
		zap.String("event_id", eventID),
		zap.String("title", event.Title),
		zap.Int("documents", len(event.Documents)),
		zap.Int("videos", len(event.Videos)),
		zap.Int("galleries", len(event.Galleries)),
		zap.Int("gallery_images", event.ImageCount()),
		zap.Int("hotel_images", len(event.HotelImages)),
	)
	return event, nil
}

func parseTitle(doc *goquery.Document, content *goquery.Selection) string {
	if t := strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", "")); t != "" {
		return t
	}
	if t := strings.TrimSpace(content.Find(".j-header h1").First().Text()); t != "" {
		return t
	}
	return "Unknown"
}

// parseDates reads the date range from the first header h2, formatted like
// "24.09.2025 - 26.09.2025".
func parseDates(content *goquery.Selection) (string, string) {
	dateText := content.Find(".j-header h2").First().Text()
	matches := datePattern.FindAllString(dateText, -1)
	if len(matches) == 0 {
		return "", ""
	}
	start := toISODate(matches[0])
	end := ""
	if len(matches) > 1 {
		end = toISODate(matches[1])
	}
	return start, end
}

func toISODate(ddmmyyyy string) string {
	t, err := time.Parse("02.01.2006", ddmmyyyy)
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// parseLocation extracts city and country from og:description, which
// usually reads "HOTEL NAME ADDRESS, CITY, COUNTRY, ZIP ...".
func parseLocation(doc *goquery.Document) (string, string) {
	desc := doc.Find(`meta[property="og:description"]`).AttrOr("content", "")
	if desc == "" {
		return "", ""
	}
	parts := strings.Split(desc, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 3 {
		return "", ""
	}
	return parts[len(parts)-3], parts[len(parts)-2]
}

type hotelInfo struct {
	name    string
	address string
	website string
}

// parseHotelInfo locates the "Hotel" section heading and reads the text
// module that follows it.
func parseHotelInfo(content *goquery.Selection) hotelInfo {
	header := content.Find(".j-header h2").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(strings.ToLower(s.Text()), "hotel")
	}).First()
	if header.Length() == 0 {
		return hotelInfo{}
	}

	// Walk siblings of the hotel header's module until the j-text module
	// with the details, stopping at the next section heading.
	sibling := header.Closest(".j-module").Next()
	for sibling.Length() > 0 && !sibling.HasClass("j-text") {
		if sibling.Find("h2").Length() > 0 {
			return hotelInfo{}
		}
		sibling = sibling.Next()
	}
	if sibling.Length() == 0 || !sibling.HasClass("j-text") {
		return hotelInfo{}
	}

	paragraphs := sibling.Find("p")
	info := hotelInfo{
		name:    strings.TrimSpace(paragraphs.First().Find("strong").Text()),
		website: sibling.Find(`a[href^="http"]`).First().AttrOr("href", ""),
	}

	var addressParts []string
	paragraphs.Each(func(i int, par *goquery.Selection) {
		if i == 0 {
			return
		}
		text := strings.TrimSpace(par.Text())
		if text == "" || strings.Contains(strings.ToLower(text), "www.") {
			return
		}
		addressParts = append(addressParts, text)
	})
	info.address = strings.Join(addressParts, ", ")
	return info
}

// parseHotelImages reads the slider gallery near the hotel section. Local
// paths are 3-digit 1-based indexes under images/hotel/.
func parseHotelImages(content *goquery.Selection) []crawler.HotelImage {
	sliderGallery := content.Find(".cc-m-gallery-slider").First()
	if sliderGallery.Length() == 0 {
		return nil
	}

	var images []crawler.HotelImage
	sliderGallery.Find("ul > li > a[data-href]").Each(func(idx int, a *goquery.Selection) {
		images = append(images, crawler.HotelImage{
			OriginalURL: ResolveFullResolution(a.AttrOr("data-href", "")),
			LocalPath:   fmt.Sprintf("images/hotel/%03d.jpg", idx+1),
			SortOrder:   idx,
		})
	})
	return images
}

func (p *EventParser) parseDocuments(content *goquery.Selection) []crawler.Document {
	var docs []crawler.Document
	content.Find(".j-downloadDocument").Each(func(idx int, module *goquery.Selection) {
		link := module.Find("a.cc-m-download-link").First()
		if link.Length() == 0 {
			link = module.Find("a.j-m-dowload").First()
		}
		href := link.AttrOr("href", "")
		if href == "" {
			return
		}

		fullURL := href
		if !strings.HasPrefix(href, "http") {
			fullURL = p.baseURL + href
		}
		title := strings.TrimSpace(module.Find(".cc-m-download-title").Text())
		size := strings.TrimSpace(module.Find(".cc-m-download-file-size").Text())

		filename := decodeFilename(href)
		localFilename := slug.Make(stripExtension(filename)) + "." + extensionOf(filename)

		docs = append(docs, crawler.Document{
			Title:           title,
			Filename:        localFilename,
			Category:        classifyDocument(title, filename),
			OriginalURL:     fullURL,
			LocalPath:       "documents/" + localFilename,
			SortOrder:       idx,
			SizeDescription: size,
		})
	})
	return docs
}

// decodeFilename extracts the original filename from a download href.
func decodeFilename(href string) string {
	raw := href
	if i := strings.LastIndex(raw, "/"); i >= 0 {
		raw = raw[i+1:]
	}
	if i := strings.Index(raw, "?"); i >= 0 {
		raw = raw[:i]
	}
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func stripExtension(filename string) string {
	if i := strings.LastIndex(filename, "."); i > 0 {
		return filename[:i]
	}
	return filename
}

func extensionOf(filename string) string {
	if i := strings.LastIndex(filename, "."); i >= 0 && i < len(filename)-1 {
		return strings.ToLower(filename[i+1:])
	}
	return "pdf"
}

func classifyDocument(title, filename string) crawler.DocumentCategory {
	lower := strings.ToLower(title + " " + filename)
	switch {
	case strings.Contains(lower, "convocation"):
		return crawler.CategoryConvocation
	case strings.Contains(lower, "invitation"):
		return crawler.CategoryInvitation
	case strings.Contains(lower, "agenda"):
		return crawler.CategoryAgenda
	case strings.Contains(lower, "program") && !strings.Contains(lower, "presentation"):
		return crawler.CategoryProgram
	case strings.Contains(lower, "participant"):
		return crawler.CategoryParticipants
	case strings.Contains(lower, "minutes"):
		return crawler.CategoryMinutes
	case strings.Contains(lower, "sponsor"):
		return crawler.CategorySponsoring
	case strings.Contains(lower, "statut"), strings.Contains(lower, "compliance"):
		return crawler.CategoryCompliance
	case strings.Contains(lower, "treasurer"), strings.Contains(lower, "auditor"):
		return crawler.CategoryReport
	case strings.Contains(lower, "survey"), strings.Contains(lower, "satisfaction"):
		return crawler.CategorySurvey
	case strings.Contains(lower, "presentation"), datedPrefix.MatchString(filename):
		return crawler.CategoryPresentation
	default:
		return crawler.CategoryOther
	}
}

func parseVideos(content *goquery.Selection) []crawler.Video {
	var videos []crawler.Video
	content.Find("iframe.cc-m-video-youtu-container").Each(func(idx int, iframe *goquery.Selection) {
		src := iframe.AttrOr("data-src", "")
		if src == "" {
			src = iframe.AttrOr("src", "")
		}
		if src == "" {
			return
		}
		m := youtubeIDPattern.FindStringSubmatch(src)
		if m == nil {
			return
		}
		title := findVideoTitle(iframe)
		if title == "" {
			title = fmt.Sprintf("Video %d", idx+1)
		}
		videos = append(videos, crawler.Video{
			Title:      title,
			YouTubeURL: "https://www.youtube.com/watch?v=" + m[1],
			SortOrder:  len(videos),
		})
	})
	return videos
}

// findVideoTitle walks up to the containing matrix or grid column and
// looks for its h3 heading.
func findVideoTitle(iframe *goquery.Selection) string {
	title := ""
	iframe.Parents().EachWithBreak(func(_ int, parent *goquery.Selection) bool {
		id := parent.AttrOr("id", "")
		if strings.HasPrefix(id, "cc-matrix-") || parent.HasClass("cc-m-hgrid-column") {
			if h3 := parent.Find(".j-header h3").First(); h3.Length() > 0 {
				title = strings.TrimSpace(h3.Text())
				return false
			}
		}
		return true
	})
	return title
}

// parseGalleries collects photo galleries, skipping the slider gallery
// which holds the hotel images.
func parseGalleries(content *goquery.Selection) []crawler.Gallery {
	var galleries []crawler.Gallery
	content.Find(".j-gallery").Each(func(galleryIdx int, module *goquery.Selection) {
		container := module.Find(".cc-m-gallery-container").First()
		if container.Length() == 0 || container.HasClass("cc-m-gallery-slider") {
			return
		}

		title := findGalleryTitle(module)
		if title == "" {
			title = fmt.Sprintf("Gallery %d", galleryIdx+1)
		}
		gallerySlug := slug.Make(title)

		var images []crawler.GalleryImage
		container.Find(`a[rel^="lightbox"][data-href]`).Each(func(imgIdx int, a *goquery.Selection) {
			images = append(images, crawler.GalleryImage{
				OriginalURL: ResolveFullResolution(a.AttrOr("data-href", "")),
				LocalPath:   fmt.Sprintf("images/%s/%03d.jpg", gallerySlug, imgIdx+1),
				SortOrder:   imgIdx,
			})
		})
		if len(images) > 0 {
			galleries = append(galleries, crawler.Gallery{
				Title:     title,
				SortOrder: len(galleries),
				Images:    images,
			})
		}
	})
	return galleries
}

// findGalleryTitle walks backwards through siblings to the nearest h3,
// stopping at another gallery or a section heading.
func findGalleryTitle(module *goquery.Selection) string {
	sibling := module.Prev()
	for sibling.Length() > 0 {
		if h3 := sibling.Find(".j-header h3").First(); h3.Length() > 0 {
			return strings.TrimSpace(h3.Text())
		}
		if sibling.HasClass("j-gallery") || sibling.Find(".j-header h2").Length() > 0 {
			return ""
		}
		sibling = sibling.Prev()
	}
	return ""
}
