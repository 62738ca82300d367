package crawler

import (
	"net/url"
	"path"
	"strings"
)

var assetExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".svg": {}, ".webp": {}, ".ico": {},
	".pdf": {}, ".zip": {}, ".gz": {}, ".css": {}, ".js": {}, ".json": {}, ".xml": {},
	".mp3": {}, ".mp4": {}, ".mov": {}, ".webm": {}, ".woff": {}, ".woff2": {}, ".ttf": {},
}

// SameOriginLinks resolves hrefs against base and keeps http(s) links on the
// root's scheme and host that do not point at static assets. Fragments are
// stripped, duplicates removed and the root itself excluded. Order follows
// first appearance.
func SameOriginLinks(root *url.URL, base *url.URL, hrefs []string) []string {
	seen := map[string]struct{}{canonical(root): {}}
	var out []string

	for _, href := range hrefs {
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			continue
		}
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		u := base.ResolveReference(ref)
		if u.Scheme != "http" && u.Scheme != "https" {
			continue
		}
		if !strings.EqualFold(u.Host, root.Host) || u.Scheme != root.Scheme {
			continue
		}
		if _, ok := assetExtensions[strings.ToLower(path.Ext(u.Path))]; ok {
			continue
		}
		u.Fragment = ""
		u.RawFragment = ""

		key := canonical(u)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, u.String())
	}
	return out
}

// canonical is the dedup key: lowercase host, no fragment, no trailing slash.
func canonical(u *url.URL) string {
	c := *u
	c.Host = strings.ToLower(c.Host)
	c.Fragment = ""
	c.RawFragment = ""
	c.Path = strings.TrimSuffix(c.Path, "/")
	c.RawPath = ""
	return c.String()
}
