package content

import (
	"reflect"
	"testing"
)

func TestExtractImageURLs_StructuredTree(t *testing.T) {
	doc := `{
		"type": "doc",
		"content": [
			{"type": "paragraph", "content": [{"type": "text", "text": "hello"}]},
			{"type": "image", "attrs": {"src": "https://cdn.example.com/upload/v123/posts/a.png", "alt": "a"}},
			{"type": "paragraph", "content": [
				{"type": "image", "attrs": {"src": "https://cdn.example.com/upload/posts/b.jpg"}}
			]},
			{"type": "image", "attrs": {"src": "https://cdn.example.com/upload/v123/posts/a.png"}}
		]
	}`

	got := ExtractImageURLs(doc)
	want := []string{
		"https://cdn.example.com/upload/v123/posts/a.png",
		"https://cdn.example.com/upload/posts/b.jpg",
		"https://cdn.example.com/upload/v123/posts/a.png",
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExtractImageURLs_HTML(t *testing.T) {
	html := `<p>intro</p><img src="https://cdn.example.com/upload/x/y.png" alt="one">
		<IMG SRC='https://cdn.example.com/upload/z.gif'>`

	got := ExtractImageURLs(html)
	want := []string{
		"https://cdn.example.com/upload/x/y.png",
		"https://cdn.example.com/upload/z.gif",
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExtractImageURLs_MalformedInput(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"{not json at all",
		`{"type": 42}`,
		"<p>no images here</p>",
	}

	for _, doc := range cases {
		if got := ExtractImageURLs(doc); len(got) != 0 {
			t.Errorf("ExtractImageURLs(%q) = %v, want empty", doc, got)
		}
	}
}

func TestExtractImageURLs_ImageNodeWithoutSrc(t *testing.T) {
	doc := `{"type": "image", "attrs": {"alt": "missing src", "width": 300}}`
	if got := ExtractImageURLs(doc); len(got) != 0 {
		t.Fatalf("expected no URLs, got %v", got)
	}
}

func TestExtractObjectKey(t *testing.T) {
	tests := []struct {
		url string
		key string
		ok  bool
	}{
		{"https://cdn.example.com/upload/v1712345/posts/cover.png", "posts/cover", true},
		{"https://cdn.example.com/upload/posts/nested/dir/img.jpeg", "posts/nested/dir/img", true},
		{"https://cdn.example.com/upload/plain.gif", "plain", true},
		{"https://cdn.example.com/other/path.png", "", false},
		{"not a url", "", false},
		{"https://cdn.example.com/upload/noextension", "", false},
	}

	for _, tt := range tests {
		key, ok := ExtractObjectKey(tt.url)
		if ok != tt.ok || key != tt.key {
			t.Errorf("ExtractObjectKey(%q) = (%q, %v), want (%q, %v)", tt.url, key, ok, tt.key, tt.ok)
		}
	}
}

func TestExtractObjectKeys(t *testing.T) {
	doc := `{
		"type": "doc",
		"content": [
			{"type": "image", "attrs": {"src": "https://cdn.example.com/upload/v9/a/b.png"}},
			{"type": "image", "attrs": {"src": "https://elsewhere.example.com/c.png"}}
		]
	}`

	got := ExtractObjectKeys(doc)
	want := []string{"a/b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
