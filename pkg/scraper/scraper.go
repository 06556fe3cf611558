package scraper

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/xhad/docchat/internal/models"
	"github.com/xhad/docchat/pkg/logger"
	"golang.org/x/time/rate"
)

type ScraperConfig struct {
	BaseURL           string
	MaxDepth          int
	RateLimit         float64 // requests per second
	IgnorePatterns    []string
	AllowedExtensions []string
	Timeout           time.Duration
	OnProgress        func(url string)
}

// Scraper crawls pages on one host and returns them as HTML uploads.
type Scraper struct {
	config   ScraperConfig
	client   *http.Client
	visited  map[string]bool
	limiter  *rate.Limiter
	baseHost string
}

// Page chrome dropped before a page is handed to the extractor.
var noiseSelectors = []string{
	"nav",
	"aside",
	"form",
	"[role=navigation]",
	".cookie-banner",
	"#cookie-banner",
}

var contentSelectors = []string{
	"main",
	"article",
	".content",
	"#content",
	".documentation",
	"#documentation",
}

func NewWithConfig(config ScraperConfig) (*Scraper, error) {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxDepth == 0 {
		config.MaxDepth = 3
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}
	if len(config.AllowedExtensions) == 0 {
		config.AllowedExtensions = []string{".html", ".htm", "/", ""}
	}

	parsedURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid base url: %q has no host", config.BaseURL)
	}

	return &Scraper{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		visited:  make(map[string]bool),
		limiter:  rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		baseHost: parsedURL.Host,
	}, nil
}

func (s *Scraper) shouldProcessURL(urlStr string) bool {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return false
	}

	if parsedURL.Host != s.baseHost {
		return false
	}

	// An empty allowed extension only matches extensionless paths.
	path := strings.ToLower(parsedURL.Path)
	last := path[strings.LastIndex(path, "/")+1:]
	validExt := false
	for _, allowedExt := range s.config.AllowedExtensions {
		if allowedExt == "" {
			if !strings.Contains(last, ".") {
				validExt = true
				break
			}
			continue
		}
		if strings.HasSuffix(path, allowedExt) {
			validExt = true
			break
		}
	}
	if !validExt {
		return false
	}

	for _, pattern := range s.config.IgnorePatterns {
		if strings.Contains(urlStr, pattern) {
			return false
		}
	}

	return true
}

// mainContent returns the HTML of the page's main content area, or of the
// body when no content area is marked up.
func mainContent(doc *goquery.Document) (string, error) {
	doc.Find(strings.Join(noiseSelectors, ", ")).Remove()

	for _, selector := range contentSelectors {
		if selected := doc.Find(selector).First(); selected.Length() > 0 {
			return goquery.OuterHtml(selected)
		}
	}
	return doc.Find("body").Html()
}

// Scrape crawls from startURL and returns one upload per page visited.
// Failures on linked pages are logged and skipped; a failure on the start
// page is returned.
func (s *Scraper) Scrape(ctx context.Context, startURL string) ([]models.Upload, error) {
	var uploads []models.Upload
	err := s.scrapeRecursive(ctx, startURL, 0, &uploads)
	return uploads, err
}

func (s *Scraper) scrapeRecursive(ctx context.Context, urlStr string, depth int, uploads *[]models.Upload) error {
	if depth > s.config.MaxDepth || s.visited[urlStr] {
		return nil
	}

	if !s.shouldProcessURL(urlStr) {
		return nil
	}

	s.visited[urlStr] = true
	if s.config.OnProgress != nil {
		s.config.OnProgress(urlStr)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", urlStr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, urlStr)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", urlStr, err)
	}

	// Links are collected before noise removal strips the navigation.
	var links []string
	doc.Find("a[href]").Each(func(_ int, selection *goquery.Selection) {
		href, _ := selection.Attr("href")
		ref, err := url.Parse(href)
		if err != nil {
			logger.Debug("skipping link %q: %v", href, err)
			return
		}
		abs := resp.Request.URL.ResolveReference(ref)
		abs.Fragment = ""
		links = append(links, abs.String())
	})

	title := strings.TrimSpace(doc.Find("title").Text())
	content, err := mainContent(doc)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", urlStr, err)
	}

	var page strings.Builder
	page.WriteString("<html><body>")
	if title != "" {
		fmt.Fprintf(&page, "<h1>%s</h1>", html.EscapeString(title))
	}
	page.WriteString(content)
	page.WriteString("</body></html>")

	*uploads = append(*uploads, models.Upload{
		Name:        urlStr,
		ContentType: "text/html",
		Data:        []byte(page.String()),
	})
	logger.Debug("scraped %s (depth %d)", urlStr, depth)

	for _, link := range links {
		if err := s.scrapeRecursive(ctx, link, depth+1, uploads); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("error scraping %s: %v", link, err)
		}
	}

	return nil
}
