package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const separator = "---\n"

// Split separates the YAML frontmatter from the note body. A note without
// frontmatter yields nil raw bytes and the whole content as body.
func Split(content string) ([]byte, string, error) {
	if !strings.HasPrefix(content, separator) {
		return nil, content, nil
	}
	rest := strings.TrimPrefix(content, separator)
	idx := strings.Index(rest, "\n---\n")
	if idx < 0 {
		return nil, "", fmt.Errorf("invalid frontmatter: missing closing separator")
	}
	return []byte(rest[:idx+1]), rest[idx+len("\n---\n"):], nil
}

// Decode unmarshals the frontmatter into out and returns the body.
func Decode(content string, out any) (string, error) {
	raw, body, err := Split(content)
	if err != nil {
		return "", err
	}
	if raw == nil {
		return "", fmt.Errorf("invalid frontmatter: missing opening separator")
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return "", fmt.Errorf("unmarshal frontmatter: %w", err)
	}
	return body, nil
}

func Render(meta any, body string) (string, error) {
	raw, err := yaml.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshal frontmatter: %w", err)
	}
	buf := bytes.Buffer{}
	buf.WriteString(separator)
	buf.Write(raw)
	buf.WriteString(separator)
	if !strings.HasPrefix(body, "\n") {
		buf.WriteString("\n")
	}
	buf.WriteString(body)
	return buf.String(), nil
}
