package web

import (
	"bytes"
	"strings"
	"testing"
)

func TestFormatMiB(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{2 << 20, "2 MB"},
		{10 << 20, "10 MB"},
		{3 << 19, "1.5 MB"},
		{1234567, "1.18 MB"},
		{0, "0 MB"},
	}
	for _, tc := range cases {
		if got := FormatMiB(tc.in); got != tc.want {
			t.Fatalf("FormatMiB(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTemplatesRenderFailurePage(t *testing.T) {
	tpl := Templates()
	if tpl.Lookup("page.html") == nil {
		t.Fatal("page.html not parsed")
	}

	var buf bytes.Buffer
	data := map[string]any{
		"Title":     "Careers",
		"View":      "error",
		"Error":     "<b>boom</b>",
		"Recaptcha": map[string]any{},
	}
	if err := tpl.ExecuteTemplate(&buf, "page.html", data); err != nil {
		t.Fatalf("execute: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Something went wrong") || !strings.Contains(out, "&lt;b&gt;boom&lt;/b&gt;") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if strings.Contains(out, "<script") {
		t.Fatal("script tag rendered without an injected library")
	}
}
