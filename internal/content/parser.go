package content

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Node is one node of a structured rich-text document. Image nodes carry the
// image location in Attrs["src"].
type Node struct {
	Type    string                 `json:"type"`
	Text    string                 `json:"text,omitempty"`
	Attrs   map[string]interface{} `json:"attrs,omitempty"`
	Content []Node                 `json:"content,omitempty"`
}

var imgTagPattern = regexp.MustCompile(`(?i)<img[^>]+src=["']([^"']+)["']`)

// objectKeyPattern matches canonical object-store URLs of the form
// .../upload/{optional version}/{key with folders}.{extension}
var objectKeyPattern = regexp.MustCompile(`/upload/(?:v\d+/)?(.+)\.[a-zA-Z0-9]+$`)

// ExtractImageURLs returns every image URL embedded in a content document, in
// document order, duplicates included. The document is either a structured
// rich-text tree encoded as JSON or a raw HTML string. Unparseable input is
// treated as containing zero references.
func ExtractImageURLs(doc string) []string {
	trimmed := strings.TrimSpace(doc)
	if trimmed == "" {
		return nil
	}

	if strings.HasPrefix(trimmed, "{") {
		var root Node
		if err := json.Unmarshal([]byte(trimmed), &root); err == nil {
			return collectImageURLs(&root, nil)
		}
		// Fall through: a brace-prefixed document that is not valid JSON
		// may still carry img tags.
	}

	return extractFromHTML(trimmed)
}

func collectImageURLs(n *Node, urls []string) []string {
	if n.Type == "image" {
		if src, ok := n.Attrs["src"].(string); ok && src != "" {
			urls = append(urls, src)
		}
	}
	for i := range n.Content {
		urls = collectImageURLs(&n.Content[i], urls)
	}
	return urls
}

func extractFromHTML(html string) []string {
	matches := imgTagPattern.FindAllStringSubmatch(html, -1)
	if len(matches) == 0 {
		return nil
	}

	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		urls = append(urls, m[1])
	}
	return urls
}

// ExtractObjectKey extracts the bare object-store key from a canonical upload
// URL: no version prefix, no extension. Returns false when the URL does not
// match any known shape.
func ExtractObjectKey(rawURL string) (string, bool) {
	m := objectKeyPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ExtractObjectKeys maps every image URL in a document to its object-store
// key, dropping URLs that do not resolve to a key.
func ExtractObjectKeys(doc string) []string {
	var keys []string
	for _, u := range ExtractImageURLs(doc) {
		if key, ok := ExtractObjectKey(u); ok {
			keys = append(keys, key)
		}
	}
	return keys
}
