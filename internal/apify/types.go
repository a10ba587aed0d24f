package apify

// StartURL is a single crawl entry point in the actor input.
type StartURL struct {
	URL string `json:"url"`
}

// ProxyConfiguration toggles the service-side proxy pool.
type ProxyConfiguration struct {
	UseApifyProxy bool `json:"useApifyProxy"`
}

// RunInput is the website-content-crawler actor configuration. The fields are
// passed to the service opaquely; none of them change local behavior.
type RunInput struct {
	StartURLs                 []StartURL          `json:"startUrls"`
	MaxCrawlPages             int                 `json:"maxCrawlPages"`
	CrawlerType               string              `json:"crawlerType"`
	UseSitemaps               bool                `json:"useSitemaps"`
	IncludeURLGlobs           []string            `json:"includeUrlGlobs,omitempty"`
	ExcludeURLGlobs           []string            `json:"excludeUrlGlobs,omitempty"`
	RemoveElementsCSSSelector string              `json:"removeElementsCssSelector,omitempty"`
	ProxyConfiguration        *ProxyConfiguration `json:"proxyConfiguration,omitempty"`
	MaxRequestRetries         int                 `json:"maxRequestRetries,omitempty"`
	RequestHandlerTimeoutSecs int                 `json:"requestHandlerTimeoutSecs,omitempty"`
	Headless                  bool                `json:"headless,omitempty"`
	WaitUntil                 string              `json:"waitUntil,omitempty"`
}

// Run statuses reported by the service. A run is terminal once it reaches
// SUCCEEDED, FAILED, ABORTED, or TIMED-OUT.
const (
	RunStatusReady     = "READY"
	RunStatusRunning   = "RUNNING"
	RunStatusSucceeded = "SUCCEEDED"
	RunStatusFailed    = "FAILED"
	RunStatusAborted   = "ABORTED"
	RunStatusTimedOut  = "TIMED-OUT"
)

// Run describes an actor run on the service side.
type Run struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

// Terminal reports whether the run has finished, successfully or not.
func (r Run) Terminal() bool {
	switch r.Status {
	case RunStatusSucceeded, RunStatusFailed, RunStatusAborted, RunStatusTimedOut:
		return true
	default:
		return false
	}
}

// ItemMetadata carries the page metadata block of a dataset item.
type ItemMetadata struct {
	Title string `json:"title"`
}

// ItemCrawl carries the crawl diagnostics block of a dataset item.
type ItemCrawl struct {
	Depth          *int `json:"depth"`
	HTTPStatusCode *int `json:"httpStatusCode"`
}

// Item is one crawled page from the run's default dataset. All fields are
// optional on the wire.
type Item struct {
	URL      string       `json:"url"`
	Metadata ItemMetadata `json:"metadata"`
	Markdown string       `json:"markdown"`
	Text     string       `json:"text"`
	Crawl    ItemCrawl    `json:"crawl"`
}
