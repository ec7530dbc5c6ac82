package docpipe

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// extractODT returns the headings and paragraphs of content.xml separated by
// blank lines.
func extractODT(data []byte) (string, error) {
	rc, err := openZipEntry(data, "content.xml")
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var blocks []string
	var current strings.Builder
	depth := 0 // nesting of <text:p>/<text:h>
	nesting := 0

	decoder := xml.NewDecoder(rc)
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse content.xml: %w", err)
		}
		if nesting, err = trackDepth(tok, nesting); err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "h", "p":
				if depth == 0 {
					current.Reset()
				}
				depth++
			case "tab":
				if depth > 0 {
					current.WriteByte('\t')
				}
			case "line-break":
				if depth > 0 {
					current.WriteByte('\n')
				}
			case "s":
				if depth > 0 {
					current.WriteByte(' ')
				}
			}

		case xml.CharData:
			if depth > 0 {
				current.Write(t)
			}

		case xml.EndElement:
			if t.Name.Local != "h" && t.Name.Local != "p" || depth == 0 {
				continue
			}
			depth--
			if depth > 0 {
				continue
			}
			if text := strings.TrimSpace(current.String()); text != "" {
				blocks = append(blocks, text)
			}
		}
	}

	return strings.Join(blocks, "\n\n"), nil
}
