package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// "anna@febis.org" XOR-encoded with key 0x42.
const cfEmailAnna = "42232c2c23022427202b316c2d3025"

const teamPageHTML = `<html><body>
<div id="content_area">
	<div id="cc-matrix-200">
		<div class="j-module j-header"><h2>General Manager</h2></div>
		<div class="j-module j-imageSubtitle">
			<a rel="lightbox" data-href="https://image.jimcdn.com/cdn-cgi/image/width=300/app/cms/storage/anna.jpg"><img></a>
		</div>
		<div class="j-module j-header"><h3>Anna Schmidt</h3></div>
		<div class="j-module j-text">
			<p>Tel: +49 30 1234 567</p>
			<p>Cell: +49 170 555 666</p>
			<p>Email: <a class="__cf_email__" data-cfemail="` + cfEmailAnna + `">[email protected]</a></p>
		</div>
		<div class="j-module j-header"><h2>Secretariat</h2></div>
		<div class="j-module j-header"><h3>Ben Weber</h3></div>
		<div class="j-module j-header"><h2>Contact</h2></div>
		<div class="j-module j-header"><h3>Not A Member</h3></div>
	</div>
</div>
</body></html>`

func TestTeamParser_ParsesRolesPortraitsAndContacts(t *testing.T) {
	t.Parallel()

	members, err := NewTeamParser(zap.NewNop()).Parse(teamPageHTML)
	require.NoError(t, err)
	require.Len(t, members, 2)

	anna := members[0]
	assert.Equal(t, "Anna Schmidt", anna.Name)
	assert.Equal(t, "general-manager", anna.Role)
	assert.Equal(t, "https://image.jimcdn.com/app/cms/storage/anna.jpg", anna.ImageURL)
	assert.Equal(t, "+49 30 1234 567", anna.Phone)
	assert.Equal(t, "+49 170 555 666", anna.Mobile)
	assert.Equal(t, "anna@febis.org", anna.Email)
	assert.Equal(t, 0, anna.SortOrder)

	ben := members[1]
	assert.Equal(t, "Ben Weber", ben.Name)
	assert.Equal(t, "secretariat", ben.Role)
	assert.Empty(t, ben.ImageURL)
}

func TestTeamParser_NoContentAreaIsParseError(t *testing.T) {
	t.Parallel()

	_, err := NewTeamParser(zap.NewNop()).Parse("<html><body></body></html>")
	require.Error(t, err)
}

func TestDecodeCfEmail(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "anna@febis.org", DecodeCfEmail(cfEmailAnna))
	assert.Empty(t, DecodeCfEmail(""))
	assert.Empty(t, DecodeCfEmail("zz"))
	assert.Empty(t, DecodeCfEmail("42абв"))
}

const boardPageHTML = `<html><body>
<div id="content_area">
	<div class="j-module j-textWithImage">
		<figure><img srcset="https://image.jimcdn.com/cdn-cgi/image/width=320/app/cms/storage/jean.jpg 320w, https://image.jimcdn.com/cdn-cgi/image/width=1024/app/cms/storage/jean.jpg 1024w"></figure>
		<div class="cc-m-textwithimage-inline-rte">
			<h3><span style="color: #ff0000;">President</span></h3>
			<p><span style="font-size: 20px;"><strong>Jean Dupont<br>Credit Safe SA</strong></span></p>
			<p>Paris, France</p>
			<p><span style="color: #ff0000;">Current positions:</span></p>
			<p>CEO, Credit Safe SA</p>
			<p>Chairman, Trade Data Forum</p>
			<p><span style="color: #ff0000;">Profile</span></p>
			<p>25 years in credit information.</p>
			<p>Click here for the LinkedIn profile</p>
		</div>
	</div>
	<div class="j-module j-textWithImage">
		<div class="cc-m-textwithimage-inline-rte">
			<h3><span style="color: #ff0000;">Decoration Only</span></h3>
			<p>No recognizable role, skipped.</p>
		</div>
	</div>
</div>
</body></html>`

func TestBoardParser_ParsesMemberSections(t *testing.T) {
	t.Parallel()

	members, err := NewBoardParser(zap.NewNop()).Parse(boardPageHTML)
	require.NoError(t, err)
	require.Len(t, members, 1)

	jean := members[0]
	assert.Equal(t, "Jean Dupont", jean.Name)
	assert.Equal(t, "president", jean.Role)
	assert.Equal(t, "Credit Safe SA", jean.Company)
	assert.Equal(t, "Paris, France", jean.Location)
	assert.Equal(t, "CEO, Credit Safe SA\nChairman, Trade Data Forum", jean.CurrentPositions)
	assert.Equal(t, "25 years in credit information.", jean.Profile)
	assert.Equal(t, "https://image.jimcdn.com/app/cms/storage/jean.jpg", jean.ImageURL)
	assert.Equal(t, 0, jean.SortOrder)
}
