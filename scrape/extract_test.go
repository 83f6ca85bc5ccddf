// ABOUTME: Tests for HTML text extraction: visible prose kept, script and
// ABOUTME: style regions dropped, whitespace collapsed.
package scrape

import (
	"strings"
	"testing"
)

func TestExtractText(t *testing.T) {
	html := `<html><head><title>ignored</title><style>body{color:red}</style></head>
<body>
<h1>Deep Sea Mining</h1>
<script>var tracking = "ignored";</script>
<p>Polymetallic   nodules lie on the    seabed.</p>
<noscript>enable javascript</noscript>
<p>Regulation remains contested.</p>
</body></html>`

	got := ExtractText(html)

	for _, want := range []string{"Deep Sea Mining", "Polymetallic nodules lie on the seabed.", "Regulation remains contested."} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	for _, banned := range []string{"tracking", "color:red", "enable javascript", "ignored"} {
		if strings.Contains(got, banned) {
			t.Errorf("output leaked non-content %q:\n%s", banned, got)
		}
	}
}

func TestExtractTextEmptyAndMalformed(t *testing.T) {
	if got := ExtractText(""); got != "" {
		t.Errorf("empty input = %q, want empty", got)
	}
	// Unclosed tags still yield the text seen so far.
	if got := ExtractText("<p>partial <b>bold"); !strings.Contains(got, "partial") || !strings.Contains(got, "bold") {
		t.Errorf("malformed input = %q", got)
	}
}

func TestExtractTextNestedSkips(t *testing.T) {
	html := `<div><script>outer <b>nope</b> text</script>kept</div>`
	got := ExtractText(html)
	if got != "kept" {
		t.Errorf("got %q, want %q", got, "kept")
	}
}
