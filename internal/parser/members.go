package parser

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/timoparlison/febiscrawler/internal/crawler"
)

var teamRoleKeywords = map[string]string{
	"general manager": "general-manager",
	"office manager":  "office-manager",
	"legal counsel":   "legal-counsel",
	"secretariat":     "secretariat",
}

var teamSectionHeaders = map[string]struct{}{
	"Administration":      {},
	"Contact":             {},
	"Download FEBIS Logo": {},
}

// TeamParser reads staff entries from the administration page. The page
// alternates role headers, portrait modules and contact text; portraits
// precede the name header they belong to, so they queue until a name
// claims them.
type TeamParser struct {
	logger *zap.Logger
}

// NewTeamParser builds a TeamParser.
func NewTeamParser(logger *zap.Logger) *TeamParser {
	return &TeamParser{logger: logger}
}

// Parse extracts team members in page order.
func (p *TeamParser) Parse(html string) ([]crawler.TeamMember, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &crawler.ParseError{URL: "administration", Message: err.Error()}
	}
	content := doc.Find("#content_area").First()
	if content.Length() == 0 {
		return nil, &crawler.ParseError{URL: "administration", Message: "no #content_area found"}
	}
	matrix := content.Find(`[id^="cc-matrix"]`).First()
	if matrix.Length() == 0 {
		return nil, &crawler.ParseError{URL: "administration", Message: "no cc-matrix container found"}
	}

	st := &teamParseState{}
	matrix.Children().Each(func(_ int, module *goquery.Selection) {
		if !hasModuleClass(module) {
			return
		}
		p.consumeModule(module, st)
	})
	return st.members, nil
}

type teamParseState struct {
	members       []crawler.TeamMember
	currentRole   string
	pendingImages []string
}

func (st *teamParseState) claimImage() string {
	if len(st.pendingImages) == 0 {
		return ""
	}
	img := st.pendingImages[0]
	st.pendingImages = st.pendingImages[1:]
	return img
}

func (p *TeamParser) consumeModule(module *goquery.Selection, st *teamParseState) {
	switch {
	case module.HasClass("j-header"):
		p.consumeHeader(module, st)
	case module.HasClass("j-imageSubtitle"):
		if url := extractMemberImageURL(module); url != "" {
			st.pendingImages = append(st.pendingImages, url)
		}
	case module.HasClass("j-text") && st.currentRole != "" && len(st.members) > 0:
		parseContactInfo(module, &st.members[len(st.members)-1])
	case module.HasClass("j-hgrid"):
		p.consumeGrid(module, st)
	}
}

func (p *TeamParser) consumeHeader(module *goquery.Selection, st *teamParseState) {
	headerText := strings.TrimSpace(module.Find("h2, h3").First().Text())
	if headerText == "" {
		return
	}
	if role, ok := teamRoleKeywords[strings.ToLower(headerText)]; ok {
		st.currentRole = role
		return
	}
	if _, section := teamSectionHeaders[headerText]; section {
		st.currentRole = ""
		return
	}
	if st.currentRole == "" {
		return
	}
	st.members = append(st.members, crawler.TeamMember{
		Name:      headerText,
		Role:      st.currentRole,
		ImageURL:  st.claimImage(),
		SortOrder: len(st.members),
	})
}

// consumeGrid handles grid modules nesting portraits and name/contact pairs
// in columns.
func (p *TeamParser) consumeGrid(grid *goquery.Selection, st *teamParseState) {
	grid.ChildrenFiltered(".cc-m-hgrid-column").Each(func(_ int, column *goquery.Selection) {
		column.Find(".j-imageSubtitle").Each(func(_ int, imgModule *goquery.Selection) {
			if url := extractMemberImageURL(imgModule); url != "" {
				st.pendingImages = append(st.pendingImages, url)
			}
		})
		column.Find(".j-header").Each(func(_ int, header *goquery.Selection) {
			headerText := strings.TrimSpace(header.Find("h2, h3").First().Text())
			if headerText == "" || st.currentRole == "" {
				return
			}
			if _, section := teamSectionHeaders[headerText]; section {
				return
			}
			if _, role := teamRoleKeywords[strings.ToLower(headerText)]; role {
				return
			}
			st.members = append(st.members, crawler.TeamMember{
				Name:      headerText,
				Role:      st.currentRole,
				ImageURL:  st.claimImage(),
				SortOrder: len(st.members),
			})
		})
		column.Find(".j-text").Each(func(_ int, textModule *goquery.Selection) {
			if len(st.members) > 0 {
				parseContactInfo(textModule, &st.members[len(st.members)-1])
			}
		})
	})
}

func parseContactInfo(textModule *goquery.Selection, member *crawler.TeamMember) {
	textModule.Find("p").Each(func(_ int, par *goquery.Selection) {
		text := strings.TrimSpace(par.Text())
		lower := strings.ToLower(text)
		switch {
		case strings.HasPrefix(lower, "tel"):
			member.Phone = afterColon(text)
		case strings.HasPrefix(lower, "cell"):
			member.Mobile = afterColon(text)
		case strings.Contains(lower, "email") || par.Find(".__cf_email__").Length() > 0:
			if cf := par.Find(`.__cf_email__[data-cfemail]`).First(); cf.Length() > 0 {
				member.Email = DecodeCfEmail(cf.AttrOr("data-cfemail", ""))
			} else {
				member.Email = afterColon(text)
			}
		}
	})
}

func afterColon(text string) string {
	if i := strings.Index(text, ":"); i >= 0 {
		return strings.TrimSpace(text[i+1:])
	}
	return ""
}

// DecodeCfEmail decodes Cloudflare email obfuscation: the first byte is
// the XOR key, the rest are key-XORed characters.
func DecodeCfEmail(encoded string) string {
	if len(encoded) < 4 || len(encoded)%2 != 0 {
		return ""
	}
	key, err := strconv.ParseUint(encoded[:2], 16, 8)
	if err != nil {
		return ""
	}
	var b strings.Builder
	for i := 2; i < len(encoded); i += 2 {
		c, err := strconv.ParseUint(encoded[i:i+2], 16, 8)
		if err != nil {
			return ""
		}
		b.WriteByte(byte(c) ^ byte(key))
	}
	return b.String()
}

// extractMemberImageURL finds the best portrait URL inside a module:
// lightbox link first, then the last (largest) srcset entry, then src.
func extractMemberImageURL(module *goquery.Selection) string {
	if link := module.Find(`a[rel="lightbox"][data-href]`).First(); link.Length() > 0 {
		return ResolveFullResolution(link.AttrOr("data-href", ""))
	}
	img := module.Find("img").First()
	if img.Length() == 0 {
		return ""
	}
	if srcset := img.AttrOr("srcset", ""); srcset != "" {
		entries := strings.Split(srcset, ",")
		last := strings.TrimSpace(entries[len(entries)-1])
		if fields := strings.Fields(last); len(fields) > 0 {
			return ResolveFullResolution(fields[0])
		}
	}
	if src := img.AttrOr("src", ""); src != "" {
		return ResolveFullResolution(src)
	}
	return ""
}

func hasModuleClass(sel *goquery.Selection) bool {
	classes := strings.Fields(sel.AttrOr("class", ""))
	for _, cls := range classes {
		if strings.HasPrefix(cls, "j-") {
			return true
		}
	}
	return false
}

var boardRoleMapping = map[string]string{
	"president":           "president",
	"vice president":      "vice-president",
	"treasurer":           "treasurer",
	"board member":        "board-member",
	"deputy board member": "deputy-board-member",
}

// BoardParser reads board entries from the executive board page. Each
// member lives in a j-textWithImage module whose red h3 carries the role.
type BoardParser struct {
	logger *zap.Logger
}

// NewBoardParser builds a BoardParser.
func NewBoardParser(logger *zap.Logger) *BoardParser {
	return &BoardParser{logger: logger}
}

// Parse extracts board members in page order. Modules without a
// recognizable role or name are skipped.
func (p *BoardParser) Parse(html string) ([]crawler.BoardMember, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &crawler.ParseError{URL: "executive-board", Message: err.Error()}
	}
	content := doc.Find("#content_area").First()
	if content.Length() == 0 {
		return nil, &crawler.ParseError{URL: "executive-board", Message: "no #content_area found"}
	}

	var members []crawler.BoardMember
	content.Find(".j-textWithImage").Each(func(_ int, module *goquery.Selection) {
		if member, ok := p.parseModule(module, len(members)); ok {
			members = append(members, member)
		}
	})
	return members, nil
}

func (p *BoardParser) parseModule(module *goquery.Selection, sortOrder int) (crawler.BoardMember, bool) {
	textDiv := module.Find(".cc-m-textwithimage-inline-rte").First()
	if textDiv.Length() == 0 {
		return crawler.BoardMember{}, false
	}
	role := extractBoardRole(textDiv)
	if role == "" {
		return crawler.BoardMember{}, false
	}

	member := crawler.BoardMember{
		Role:      role,
		ImageURL:  extractMemberImageURL(module),
		SortOrder: sortOrder,
	}
	var positions, profileLines []string
	section := ""

	textDiv.Find("p").Each(func(_ int, par *goquery.Selection) {
		text := strings.TrimSpace(par.Text())
		if text == "" {
			return
		}
		if isRedText(par) {
			lower := strings.ToLower(text)
			switch {
			case strings.Contains(lower, "current"), strings.Contains(lower, "position"):
				section = "positions"
				return
			case strings.Contains(lower, "profile"):
				section = "profile"
				return
			case strings.Contains(lower, "ambition"):
				section = "ambition"
				return
			}
		}
		if strings.Contains(strings.ToLower(text), "click here") {
			return
		}
		switch section {
		case "":
			p.consumeIntroLine(par, text, &member)
		case "positions":
			positions = append(positions, text)
		case "profile":
			profileLines = append(profileLines, text)
		}
	})

	if member.Name == "" {
		return crawler.BoardMember{}, false
	}
	member.CurrentPositions = strings.Join(positions, "\n")
	member.Profile = strings.Join(profileLines, "\n")
	return member, true
}

// consumeIntroLine fills name, company and location from the paragraphs
// before the first section header. The name is bold 20px text, sometimes
// with the company after a line break.
func (p *BoardParser) consumeIntroLine(par *goquery.Selection, text string, member *crawler.BoardMember) {
	switch {
	case member.Name == "":
		bold := par.Find(`strong, b, [style*="font-weight: 700"]`).Length() > 0
		big := par.Find(`[style*="font-size: 20px"]`).Length() > 0
		if !bold || !big {
			return
		}
		html, err := par.Html()
		if err == nil && strings.Contains(html, "<br") {
			parts := strings.SplitN(html, "<br", 2)
			member.Name = htmlFragmentText(parts[0])
			if len(parts) > 1 {
				rest := parts[1]
				if i := strings.Index(rest, ">"); i >= 0 {
					rest = rest[i+1:]
				}
				member.Company = htmlFragmentText(rest)
			}
			return
		}
		member.Name = text
	case member.Company == "":
		member.Company = text
	case member.Location == "":
		member.Location = text
	}
}

func htmlFragmentText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.TrimSpace(doc.Text())
}

func extractBoardRole(textDiv *goquery.Selection) string {
	role := ""
	textDiv.Find("h3").EachWithBreak(func(_ int, h3 *goquery.Selection) bool {
		red := h3.Find(`[style*="color: #ff0000"], [style*="color: red"]`).First()
		if red.Length() == 0 {
			return true
		}
		if mapped, ok := boardRoleMapping[strings.ToLower(strings.TrimSpace(red.Text()))]; ok {
			role = mapped
			return false
		}
		return true
	})
	return role
}

func isRedText(par *goquery.Selection) bool {
	return par.Find(`[style*="color: #ff0000"], [style*="color: red"]`).Length() > 0
}
