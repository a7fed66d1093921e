package markdown_test

import (
	"strings"
	"testing"

	"deepwork/internal/platform/markdown"
)

type noteMeta struct {
	ID     string `yaml:"id"`
	Status string `yaml:"status"`
	Count  int    `yaml:"count"`
}

func TestRenderThenDecodeKeepsMetaAndBody(t *testing.T) {
	t.Parallel()
	rendered, err := markdown.Render(noteMeta{ID: "s-1", Status: "active", Count: 2}, "# Title\n")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(rendered, "---\nid: s-1\n") {
		t.Fatalf("unexpected rendering: %q", rendered)
	}
	var meta noteMeta
	body, err := markdown.Decode(rendered, &meta)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if meta.ID != "s-1" || meta.Status != "active" || meta.Count != 2 {
		t.Fatalf("unexpected meta %+v", meta)
	}
	if strings.TrimSpace(body) != "# Title" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestDecodeRejectsMissingFrontmatter(t *testing.T) {
	t.Parallel()
	if _, err := markdown.Decode("just text\n", &noteMeta{}); err == nil {
		t.Fatalf("expected error for note without frontmatter")
	}
	if _, _, err := markdown.Split("---\nid: x\n"); err == nil {
		t.Fatalf("expected error for unterminated frontmatter")
	}
}

func TestBlockReplacePreservesSurroundingText(t *testing.T) {
	t.Parallel()
	b := markdown.Block{Start: "<!-- s -->", End: "<!-- e -->"}
	first := b.Replace("my notes\n", "one")
	if first != "my notes\n\n<!-- s -->\none\n<!-- e -->\n" {
		t.Fatalf("unexpected append: %q", first)
	}
	second := b.Replace(first, "two")
	if !strings.Contains(second, "my notes") || !strings.Contains(second, "two") || strings.Contains(second, "one") {
		t.Fatalf("unexpected replace: %q", second)
	}
	if got := b.Replace("  ", "x"); got != "<!-- s -->\nx\n<!-- e -->\n" {
		t.Fatalf("unexpected empty-body block: %q", got)
	}
}
