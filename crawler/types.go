package crawler

// MaxDeepPages bounds the pages visited by one deep crawl.
const MaxDeepPages = 15

// Status is the outcome of one page in a scan report.
type Status string

const (
	// StatusSuccess means text was extracted.
	StatusSuccess Status = "success"
	// StatusFailed means every strategy failed to fetch the page.
	StatusFailed Status = "failed"
	// StatusEmpty means the page was fetched but held no extractable text.
	StatusEmpty Status = "empty"
)

// Options controls a single crawl.
type Options struct {
	// MaxPages is the total number of pages to visit including the root.
	// Values below 1 mean 1; values above MaxDeepPages are capped.
	MaxPages int

	// Credential overrides the reader service token for this crawl.
	Credential string
}

// Deep reports whether the crawl follows links.
func (o Options) Deep() bool {
	return o.MaxPages > 1
}

func (o Options) pageLimit() int {
	switch {
	case o.MaxPages < 1:
		return 1
	case o.MaxPages > MaxDeepPages:
		return MaxDeepPages
	default:
		return o.MaxPages
	}
}

// Page is the extracted text of one URL. Text holds blocks separated by
// blank lines.
type Page struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// PageReport describes what happened to one URL.
type PageReport struct {
	URL         string `json:"url"`
	Status      Status `json:"status"`
	ChunksFound int    `json:"chunks_found"`
	Title       string `json:"title,omitempty"`
	Details     string `json:"details,omitempty"`
}

// Result holds the pages with text, in crawl order, and a report entry for
// every URL visited.
type Result struct {
	Pages  []Page       `json:"pages"`
	Report []PageReport `json:"report"`
}

// Extraction is what a strategy produced for one URL.
type Extraction struct {
	Page Page `json:"page"`

	// Links are absolute or relative hrefs discovered on the page.
	Links []string `json:"links,omitempty"`

	// FinalURL is where the fetch ended after redirects. Empty when the
	// strategy cannot tell.
	FinalURL string `json:"final_url,omitempty"`
}
