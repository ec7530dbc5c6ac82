package docpipe

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// extractDocx returns the raw text of word/document.xml, one paragraph per
// block separated by blank lines. Legacy .doc files are not ZIP archives and
// fail here.
func extractDocx(data []byte) (string, error) {
	rc, err := openZipEntry(data, "word/document.xml")
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var paragraphs []string
	var current strings.Builder
	inParagraph := false
	inText := false

	decoder := xml.NewDecoder(rc)
	depth := 0
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		if depth, err = trackDepth(tok, depth); err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				current.Reset()
			case "t":
				inText = inParagraph
			case "tab":
				if inParagraph {
					current.WriteByte('\t')
				}
			case "br", "cr":
				if inParagraph {
					current.WriteByte('\n')
				}
			}

		case xml.CharData:
			if inText {
				current.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if !inParagraph {
					continue
				}
				inParagraph = false
				if text := strings.TrimSpace(current.String()); text != "" {
					paragraphs = append(paragraphs, text)
				}
			}
		}
	}

	return strings.Join(paragraphs, "\n\n"), nil
}

// maxXMLDepth bounds element nesting in office XML parts.
const maxXMLDepth = 256

func trackDepth(tok xml.Token, depth int) (int, error) {
	switch tok.(type) {
	case xml.StartElement:
		depth++
		if depth > maxXMLDepth {
			return depth, fmt.Errorf("xml nesting depth exceeds %d", maxXMLDepth)
		}
	case xml.EndElement:
		depth--
	}
	return depth, nil
}

// openZipEntry opens the named member of an in-memory ZIP archive.
func openZipEntry(data []byte, name string) (io.ReadCloser, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("open %s: %w", name, err)
			}
			return rc, nil
		}
	}
	return nil, fmt.Errorf("%s not found in archive", name)
}
