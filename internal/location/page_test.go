package location

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewPage(t *testing.T) {
	page, err := NewPage("http://localhost:8080/game/index.html?x=1#top")
	if err != nil {
		t.Fatal(err)
	}

	if got := page.Origin(); got != "http://localhost:8080" {
		t.Errorf("Origin() = %q", got)
	}
	if got := page.Pathname(); got != "/game/index.html" {
		t.Errorf("Pathname() = %q", got)
	}
	if got := page.Search(); got != "?x=1" {
		t.Errorf("Search() = %q", got)
	}
	if got := page.Hash(); got != "#top" {
		t.Errorf("Hash() = %q", got)
	}
}

func TestNewPage_EmptyPath(t *testing.T) {
	page, err := NewPage("https://example.com")
	if err != nil {
		t.Fatal(err)
	}
	if got := page.Href(); got != "https://example.com/" {
		t.Errorf("Href() = %q, want trailing slash", got)
	}
	if page.Search() != "" || page.Hash() != "" {
		t.Error("empty query and hash should read as empty strings")
	}
}

func TestNewPage_CanonicalOrigin(t *testing.T) {
	tests := []struct {
		raw, origin, href string
	}{
		{"http://LocalHost:80/p", "http://localhost", "http://localhost/p"},
		{"HTTPS://Example.COM:443/", "https://example.com", "https://example.com/"},
		{"http://example.com:443/", "http://example.com:443", "http://example.com:443/"},
		{"http://localhost:/x", "http://localhost", "http://localhost/x"},
		{"http://[::1]:80/", "http://[::1]", "http://[::1]/"},
	}
	for _, tt := range tests {
		page, err := NewPage(tt.raw)
		if err != nil {
			t.Fatalf("NewPage(%q) failed: %v", tt.raw, err)
		}
		if got := page.Origin(); got != tt.origin {
			t.Errorf("NewPage(%q).Origin() = %q, want %q", tt.raw, got, tt.origin)
		}
		if got := page.Href(); got != tt.href {
			t.Errorf("NewPage(%q).Href() = %q, want %q", tt.raw, got, tt.href)
		}
	}

	page, _ := NewPage("http://localhost/a")
	if err := page.PushState("http://LOCALHOST:80/b"); err != nil {
		t.Errorf("push to the same origin spelled differently failed: %v", err)
	}
}

func TestNewPage_RawFragment(t *testing.T) {
	page, err := NewPage("http://localhost/p?x=1#100%")
	if err != nil {
		t.Fatal(err)
	}
	if got := page.Hash(); got != "#100%" {
		t.Errorf("Hash() = %q, want #100%%", got)
	}
	if err := page.PushState("#50%"); err != nil {
		t.Fatal(err)
	}
	if got := page.Href(); got != "http://localhost/p?x=1#50%" {
		t.Errorf("Href() = %q", got)
	}
}

func TestNewPage_Invalid(t *testing.T) {
	for _, raw := range []string{"", "relative/path", "file:///tmp/x", "http://", "%zz"} {
		if _, err := NewPage(raw); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("NewPage(%q) error = %v, want ErrInvalidURL", raw, err)
		}
	}
}

func TestPage_PushState(t *testing.T) {
	page, _ := NewPage("http://localhost/app")

	if err := page.PushState("?a=1"); err != nil {
		t.Fatal(err)
	}
	if err := page.PushState("http://localhost/app#h"); err != nil {
		t.Fatal(err)
	}

	want := []string{"http://localhost/app", "http://localhost/app?a=1", "http://localhost/app#h"}
	if diff := cmp.Diff(want, page.History()); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}

	err := page.PushState("http://evil.example/")
	if !errors.Is(err, ErrCrossOrigin) {
		t.Errorf("cross-origin push error = %v, want ErrCrossOrigin", err)
	}
	if page.Href() != "http://localhost/app#h" {
		t.Errorf("rejected push changed the page: %s", page.Href())
	}
}

func TestPage_Navigate(t *testing.T) {
	page, _ := NewPage("http://localhost/app")
	page.PushState("?a=1")

	if err := page.Navigate("https://other.example/docs"); err != nil {
		t.Fatal(err)
	}
	if page.Href() != "https://other.example/docs" {
		t.Errorf("Href() = %q", page.Href())
	}
	if diff := cmp.Diff([]string{"https://other.example/docs"}, page.History()); diff != "" {
		t.Errorf("navigation should restart history (-want +got):\n%s", diff)
	}

	if err := page.Navigate("../up"); err != nil {
		t.Fatal(err)
	}
	if page.Href() != "https://other.example/up" {
		t.Errorf("relative navigation = %q", page.Href())
	}

	if err := page.Navigate("mailto:someone@example.com"); !errors.Is(err, ErrInvalidURL) {
		t.Errorf("Navigate(mailto) error = %v, want ErrInvalidURL", err)
	}
}
