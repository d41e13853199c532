// Package archive turns an Archive.org directory listing page into download targets.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/lepinkainen/iadl/download"
	"golang.org/x/net/html"
)

var (
	// ErrFetch means the listing page could not be retrieved
	ErrFetch = errors.New("failed to fetch listing")

	// ErrParse means the page has no directory listing table
	ErrParse = errors.New("no directory listing found")
)

const (
	// UnnamedFile replaces a decoded file name that is empty or whitespace
	UnnamedFile = "UNNAMED"

	// UnknownArchive is used when the URL has no /download/<name> segment
	UnknownArchive = "unknown_archive"

	listingTableClass = "directory-listing-table"
)

// Resolver fetches and parses listing pages
type Resolver struct {
	client *http.Client
}

// NewResolver creates a resolver using client, or http.DefaultClient when nil
func NewResolver(client *http.Client) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &Resolver{client: client}
}

// Resolve downloads the listing at sourceURL and returns its files in page order
func (r *Resolver) Resolve(ctx context.Context, sourceURL string) ([]download.Target, error) {
	base, err := url.Parse(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL %q: %w", ErrFetch, sourceURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	req.Header.Set("User-Agent", download.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP error: %s", ErrFetch, resp.Status)
	}

	// Redirects change the base that relative hrefs resolve against
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL
	}

	return Parse(resp.Body, base)
}

// Parse extracts targets from a listing document. Relative links are resolved against base.
func Parse(r io.Reader, base *url.URL) ([]download.Target, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	table := findNode(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "table" && hasClass(n, listingTableClass)
	})
	if table == nil {
		return nil, ErrParse
	}

	targets := []download.Target{}
	walk(table, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "tr" {
			return
		}
		link := findNode(n, func(c *html.Node) bool {
			return c.Type == html.ElementNode && c.Data == "a"
		})
		if link == nil {
			return
		}

		href := attr(link, "href")
		if href == "" || isParentLink(href, textContent(link)) {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)

		targets = append(targets, download.Target{
			URL:      abs.String(),
			FileName: FileNameFromURL(abs),
		})
	})

	return targets, nil
}

// FileNameFromURL returns the percent-decoded last path segment of u, or
// UnnamedFile for directory-style links that end in a slash.
func FileNameFromURL(u *url.URL) string {
	p := u.EscapedPath()
	segment := p[strings.LastIndex(p, "/")+1:]

	name, err := url.PathUnescape(segment)
	if err != nil {
		name = segment
	}
	if strings.TrimSpace(name) == "" {
		return UnnamedFile
	}
	return name
}

// ArchiveName extracts the item identifier following /download/ in sourceURL
func ArchiveName(sourceURL string) string {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return UnknownArchive
	}

	parts := strings.Split(u.Path, "/")
	for i, part := range parts {
		if part == "download" && i+1 < len(parts) && strings.TrimSpace(parts[i+1]) != "" {
			return parts[i+1]
		}
	}
	return UnknownArchive
}

func isParentLink(href, text string) bool {
	if strings.Contains(strings.ToLower(text), "parent directory") {
		return true
	}
	trimmed := strings.TrimSuffix(href, "/")
	return trimmed == ".." || strings.HasSuffix(trimmed, "/..")
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func findNode(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, match); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	})
	return b.String()
}
