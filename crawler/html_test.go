package crawler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractHTML_SemanticBlocks(t *testing.T) {
	page := `<html><head><title> Acme Roasters </title><script>var x = 1;</script></head>
<body>
  <nav><a href="/about">About</a><p>Menu text that should vanish</p></nav>
  <h1>Small batch coffee</h1>
  <p>We roast every Monday   in Portland.</p>
  <ul><li><p>Single origin beans</p></li></ul>
  <footer><p>Copyright Acme</p></footer>
</body></html>`

	ex, err := ExtractHTML("https://acme.test/", []byte(page))
	require.NoError(t, err)

	assert.Equal(t, "Acme Roasters", ex.Page.Title)
	assert.Equal(t, "Small batch coffee\n\nWe roast every Monday in Portland.\n\nSingle origin beans", ex.Page.Text)
	assert.NotContains(t, ex.Page.Text, "Menu text")
	assert.NotContains(t, ex.Page.Text, "Copyright")
	assert.Equal(t, []string{"/about"}, ex.Links)
}

func TestExtractHTML_TitleFallbacks(t *testing.T) {
	og := `<html><head><meta property="og:title" content="From OG"></head><body><h1>Heading</h1></body></html>`
	ex, err := ExtractHTML("u", []byte(og))
	require.NoError(t, err)
	assert.Equal(t, "From OG", ex.Page.Title)

	h1 := `<html><body><h1>Only Heading</h1></body></html>`
	ex, err = ExtractHTML("u", []byte(h1))
	require.NoError(t, err)
	assert.Equal(t, "Only Heading", ex.Page.Title)
}

func TestExtractHTML_WidensToGenericBlocks(t *testing.T) {
	page := `<html><body>
  <div class="hero"><div>Handcrafted furniture built to last for generations of family dinners</div></div>
  <section>Too short here</section>
  <td>one two three four five six seven eight nine ten eleven twelve</td>
</body></html>`

	ex, err := ExtractHTML("u", []byte(page))
	require.NoError(t, err)

	assert.Contains(t, ex.Page.Text, "Handcrafted furniture built to last for generations of family dinners")
	assert.NotContains(t, ex.Page.Text, "Too short here")
	assert.Equal(t, 1, strings.Count(ex.Page.Text, "Handcrafted"), "outer div must not repeat its leaf")
}

func TestExtractHTML_FallsBackToWindows(t *testing.T) {
	long := strings.Repeat("word ", 400)
	page := `<html><body>` + long + `</body></html>`

	ex, err := ExtractHTML("u", []byte(page))
	require.NoError(t, err)

	parts := strings.Split(ex.Page.Text, "\n\n")
	require.Greater(t, len(parts), 1)
	for _, part := range parts {
		assert.LessOrEqual(t, len([]rune(part)), windowSize)
	}
}

func TestExtractHTML_EmptyPage(t *testing.T) {
	ex, err := ExtractHTML("u", []byte(`<html><body><script>app()</script></body></html>`))
	require.NoError(t, err)
	assert.Empty(t, ex.Page.Text)
}

func TestWindows(t *testing.T) {
	assert.Nil(t, windows("", 10))
	assert.Equal(t, []string{"short"}, windows("short", 10))
	assert.Equal(t, []string{"aaaa bbbb", "cccc"}, windows("aaaa bbbb cccc", 10))
}
