package docpipe

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// extractText decodes data as UTF-8, honouring a UTF-8 or UTF-16 byte order
// mark. Invalid sequences become U+FFFD. It never fails.
func extractText(data []byte) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		return strings.TrimSpace(strings.ToValidUTF8(string(data), "�")), nil
	}
	return strings.TrimSpace(string(out)), nil
}
