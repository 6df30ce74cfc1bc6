// Package frontmatter splits and assembles Markdown documents that open
// with a YAML front matter block delimited by "---" lines.
package frontmatter

import (
	"fmt"
	"strings"
)

const delim = "---"

// Split separates the YAML block from the body. A document that does not
// open with a delimiter is all body and found is false. A document that
// opens one without closing it is an error.
func Split(doc string) (yamlBlock, body string, found bool, err error) {
	if !strings.HasPrefix(doc, delim+"\n") && !strings.HasPrefix(doc, delim+"\r\n") {
		return "", doc, false, nil
	}

	start := len(delim)
	if start < len(doc) && doc[start] == '\r' {
		start++
	}
	if start < len(doc) && doc[start] == '\n' {
		start++
	}

	closeIdx := strings.Index(doc[start:], "\n"+delim)
	if closeIdx == -1 {
		return "", "", false, fmt.Errorf("missing closing front matter delimiter")
	}
	yamlBlock = doc[start : start+closeIdx]

	bodyStart := start + closeIdx + 1 + len(delim)
	for bodyStart < len(doc) && (doc[bodyStart] == '\n' || doc[bodyStart] == '\r') {
		bodyStart++
	}
	if bodyStart < len(doc) {
		body = doc[bodyStart:]
	}
	return yamlBlock, body, true, nil
}

// Render assembles a document from a marshaled YAML block and a body.
// The body is separated from the block by one blank line and always ends
// with a newline.
func Render(yamlBlock []byte, body string) []byte {
	var b strings.Builder
	b.WriteString(delim + "\n")
	b.Write(yamlBlock)
	b.WriteString(delim + "\n")
	if body != "" {
		b.WriteString("\n")
		b.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			b.WriteString("\n")
		}
	}
	return []byte(b.String())
}
