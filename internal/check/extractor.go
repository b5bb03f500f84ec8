package check

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Link is one outbound reference found in a page.
type Link struct {
	URL        string
	Text       string // anchor text, empty for non-anchor tags
	Tag        string
	Attribute  string
	IsInternal bool
}

// linkAttrs maps element names to the attribute that carries a reference.
var linkAttrs = map[string]string{
	"a":      "href",
	"link":   "href",
	"img":    "src",
	"script": "src",
	"iframe": "src",
	"video":  "src",
	"audio":  "src",
	"source": "src",
}

// ExtractLinks parses HTML and returns every reference it carries, in
// document order.
func ExtractLinks(r io.Reader, baseURL string) ([]Link, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url %q: %w", baseURL, err)
	}

	var links []Link
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if attr, ok := linkAttrs[n.Data]; ok {
				if val := getAttr(n, attr); val != "" {
					link := Link{
						URL:        val,
						Tag:        n.Data,
						Attribute:  attr,
						IsInternal: isInternal(val, base),
					}
					if n.Data == "a" {
						link.Text = collectText(n)
					}
					links = append(links, link)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func collectText(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(collectText(c))
	}
	return strings.TrimSpace(b.String())
}

// isInternal reports whether a reference stays within the site. Pure
// fragments and non-HTTP schemes count as internal so the external checker
// never touches them; Verifiable filters them out for the internal checker.
func isInternal(linkURL string, base *url.URL) bool {
	if strings.HasPrefix(linkURL, "#") ||
		strings.HasPrefix(linkURL, "mailto:") ||
		strings.HasPrefix(linkURL, "tel:") ||
		strings.HasPrefix(linkURL, "javascript:") {
		return true
	}
	u, err := url.Parse(linkURL)
	if err != nil {
		return false
	}
	if u.Scheme == "" || u.Host == "" {
		return true
	}
	return base != nil && u.Host == base.Host
}

// Verifiable reports whether a link is worth checking at all. Fragments,
// contact schemes, and inline data blobs are not.
func Verifiable(l Link) bool {
	if l.URL == "" || strings.HasPrefix(l.URL, "#") {
		return false
	}
	for _, scheme := range []string{"mailto:", "tel:", "javascript:", "data:"} {
		if strings.HasPrefix(l.URL, scheme) {
			return false
		}
	}
	return true
}
