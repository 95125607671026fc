package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/timoparlison/febiscrawler/internal/crawler"
)

func newTestIndexParser() *IndexParser {
	return NewIndexParser("https://www.febis.org", "/members-login/general-assembly", zap.NewNop())
}

func TestIndexParser_ExtractsEntriesInOrder(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<a href="/members-login/general-assembly/2025-rhodes/">GA 2025 Rhodes</a>
		<a href="/members-login/general-assembly/2024-nice/">GA 2024 Nice</a>
		<a href="/members-login/">Back</a>
		<a href="/about/executive-board/">Board</a>
	</body></html>`

	entries, err := newTestIndexParser().Parse(html)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "2025-rhodes", entries[0].ID)
	assert.Equal(t, "GA 2025 Rhodes", entries[0].Title)
	assert.Equal(t, "https://www.febis.org/members-login/general-assembly/2025-rhodes/", entries[0].URL)
	assert.Equal(t, "2024-nice", entries[1].ID)
}

func TestIndexParser_DeduplicatesKeepingFirst(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<a href="/members-login/general-assembly/2025-rhodes/">From the menu</a>
		<a href="/members-login/general-assembly/2025-rhodes/">From the body</a>
	</body></html>`

	entries, err := newTestIndexParser().Parse(html)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "From the menu", entries[0].Title)
}

func TestIndexParser_EmptyTitleFallsBackToID(t *testing.T) {
	t.Parallel()

	html := `<a href="/members-login/general-assembly/2023-hamburg/"><img src="x.jpg"></a>`

	entries, err := newTestIndexParser().Parse(html)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2023-hamburg", entries[0].Title)
}

func TestIndexParser_NoLinksIsParseError(t *testing.T) {
	t.Parallel()

	_, err := newTestIndexParser().Parse(`<html><body><p>maintenance</p></body></html>`)
	var parseErr *crawler.ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestIndexParser_AbsoluteLinksPassThrough(t *testing.T) {
	t.Parallel()

	html := `<a href="https://www.febis.org/members-login/general-assembly/2022-lisbon/">GA 2022</a>`

	entries, err := newTestIndexParser().Parse(html)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "https://www.febis.org/members-login/general-assembly/2022-lisbon/", entries[0].URL)
}
