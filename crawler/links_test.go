package crawler

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSameOriginLinks(t *testing.T) {
	root, err := url.Parse("https://acme.test/")
	require.NoError(t, err)
	base, err := url.Parse("https://acme.test/blog/")
	require.NoError(t, err)

	hrefs := []string{
		"/about",
		"/about#team",
		"post-1",
		"https://ACME.test/contact/",
		"https://acme.test/contact",
		"https://other.test/page",
		"http://acme.test/insecure",
		"/logo.PNG",
		"/brochure.pdf",
		"mailto:hello@acme.test",
		"javascript:void(0)",
		"#top",
		"/",
		"",
	}

	links := SameOriginLinks(root, base, hrefs)
	assert.Equal(t, []string{
		"https://acme.test/about",
		"https://acme.test/blog/post-1",
		"https://ACME.test/contact/",
	}, links)
}
