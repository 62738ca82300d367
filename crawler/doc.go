// Package crawler acquires page text from a tenant's website.
//
// A Crawler tries an ordered list of Extractors for each page. The default
// list asks an external reader service for a readability rendering first
// and falls back to fetching and parsing the HTML directly. A page that no
// strategy can fetch is reported as failed; a page that was fetched but
// held no text is reported as empty. Neither aborts the rest of the crawl.
//
// In deep mode the crawler follows same-origin links found on the root
// page, up to MaxPages in total, one page at a time under a polite rate
// limit.
//
// # Usage
//
//	c, err := crawler.New(
//	    crawler.WithReader("https://r.jina.ai", os.Getenv("READER_API_KEY")),
//	    crawler.WithPageCache(crawler.NewRedisPageCache(rdb, time.Hour)),
//	)
//	result, err := c.Crawl(ctx, "https://acme.test", crawler.Options{MaxPages: 5})
//	for _, page := range result.Pages {
//	    fmt.Println(page.URL, len(page.Text))
//	}
package crawler
