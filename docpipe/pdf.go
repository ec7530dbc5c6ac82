package docpipe

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	xunicode "golang.org/x/text/encoding/unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// extractPDF returns one entry per PDF page, in page order. Pages without
// extractable text yield "" so that page numbering stays aligned.
func extractPDF(data []byte) (result, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return result{}, fmt.Errorf("pdfcpu read: %w", err)
	}

	pages := make([]string, 0, ctx.PageCount)
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		pages = append(pages, extractPageText(ctx, pageNr))
	}

	return result{
		pages:   pages,
		quality: measureQuality(pages, detectImageStreams(ctx)),
	}, nil
}

// extractPageText returns the text of one page, or "" when the content
// stream is missing or carries no text operators.
func extractPageText(ctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return textFromContentStream(data)
}

// detectImageStreams reports whether the PDF contains image XObjects.
func detectImageStreams(ctx *model.Context) bool {
	if ctx.Optimize != nil {
		for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
			if len(pdfcpu.ImageObjNrs(ctx, pageNr)) > 0 {
				return true
			}
		}
	}
	for _, entry := range ctx.Table {
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if subtype, found := sd.Find("Subtype"); found {
			if name, isName := subtype.(types.Name); isName && name == "Image" {
				return true
			}
		}
	}
	return false
}

// textFromContentStream scans a content stream token by token and collects
// the strings shown by Tj, TJ, ' and ". Operators may share a line.
func textFromContentStream(data []byte) string {
	var sb strings.Builder
	var shown []string // strings seen since the last operator

	sc := &pdfScanner{data: data}
	for {
		tok, ok := sc.next()
		if !ok {
			break
		}
		switch tok.kind {
		case tokString, tokArray:
			shown = append(shown, tok.text)
			continue
		case tokOperand:
			continue
		}
		switch tok.text {
		case "Tj", "TJ":
			writeShown(&sb, shown, false)
		case "'", `"`:
			writeShown(&sb, shown, true)
		case "Td", "TD", "Tm":
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		case "T*":
			sb.WriteByte('\n')
		case "ID":
			sc.skipInlineImage()
		}
		shown = shown[:0]
	}

	return collapseSpace(sb.String())
}

func writeShown(sb *strings.Builder, shown []string, newline bool) {
	if newline {
		sb.WriteByte('\n')
	}
	for _, text := range shown {
		sb.WriteString(text)
	}
}

type pdfTokenKind int

const (
	tokOperator pdfTokenKind = iota
	tokOperand               // numbers, names, booleans, dictionary brackets
	tokString                // literal or hex string, decoded
	tokArray                 // array, reduced to the text of its strings
)

type pdfToken struct {
	kind pdfTokenKind
	text string
}

// pdfScanner splits a content stream into the lexical tokens of the PDF
// syntax (ISO 32000-1, 7.2).
type pdfScanner struct {
	data []byte
	pos  int
}

func (s *pdfScanner) next() (pdfToken, bool) {
	s.skipSpace()
	if s.pos >= len(s.data) {
		return pdfToken{}, false
	}
	operand := pdfToken{kind: tokOperand}

	c := s.data[s.pos]
	switch {
	case c == '(':
		return pdfToken{kind: tokString, text: pdfText(decodePDFString(s.literal()))}, true
	case c == '<' && s.peek(1) == '<', c == '>' && s.peek(1) == '>':
		s.pos += 2
		return operand, true
	case c == '<':
		return pdfToken{kind: tokString, text: pdfText(decodePDFHex(s.hex()))}, true
	case c == '[':
		s.pos++
		return pdfToken{kind: tokArray, text: s.array()}, true
	case c == '/':
		s.pos++
		s.regular()
		return operand, true
	case isPDFDelim(c):
		s.pos++
		return operand, true
	}

	word := s.regular()
	if word == "" {
		s.pos++
		return operand, true
	}
	if _, err := strconv.ParseFloat(word, 64); err == nil {
		operand.text = word
		return operand, true
	}
	switch word {
	case "true", "false", "null":
		return operand, true
	}
	return pdfToken{kind: tokOperator, text: word}, true
}

func (s *pdfScanner) peek(n int) byte {
	if s.pos+n < len(s.data) {
		return s.data[s.pos+n]
	}
	return 0
}

func (s *pdfScanner) skipSpace() {
	for s.pos < len(s.data) {
		switch c := s.data[s.pos]; {
		case isPDFWhite(c):
			s.pos++
		case c == '%':
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
		default:
			return
		}
	}
}

func (s *pdfScanner) regular() string {
	start := s.pos
	for s.pos < len(s.data) && !isPDFWhite(s.data[s.pos]) && !isPDFDelim(s.data[s.pos]) {
		s.pos++
	}
	return string(s.data[start:s.pos])
}

// literal returns the raw bytes of a (...) string, balanced parentheses
// included, and leaves pos after the closing parenthesis.
func (s *pdfScanner) literal() []byte {
	start := s.pos + 1
	depth := 0
	for ; s.pos < len(s.data); s.pos++ {
		switch s.data[s.pos] {
		case '\\':
			s.pos++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				raw := s.data[start:s.pos]
				s.pos++
				return raw
			}
		}
	}
	return s.data[min(start, len(s.data)):]
}

func (s *pdfScanner) hex() []byte {
	s.pos++
	start := s.pos
	for s.pos < len(s.data) && s.data[s.pos] != '>' {
		s.pos++
	}
	raw := s.data[start:s.pos]
	if s.pos < len(s.data) {
		s.pos++
	}
	return raw
}

// array concatenates the strings of a TJ-style array. Kerning offsets of
// -200 or less (thousandths of an em) are read as word gaps.
func (s *pdfScanner) array() string {
	var sb strings.Builder
	for {
		s.skipSpace()
		if s.pos >= len(s.data) {
			break
		}
		if s.data[s.pos] == ']' {
			s.pos++
			break
		}
		tok, ok := s.next()
		if !ok {
			break
		}
		switch tok.kind {
		case tokString, tokArray:
			sb.WriteString(tok.text)
		case tokOperand:
			if v, err := strconv.ParseFloat(tok.text, 64); err == nil && v <= -200 {
				sb.WriteByte(' ')
			}
		}
	}
	return sb.String()
}

// skipInlineImage moves past the binary data of an inline image, up to and
// including the EI operator.
func (s *pdfScanner) skipInlineImage() {
	for i := s.pos; i+1 < len(s.data); i++ {
		if s.data[i] != 'E' || s.data[i+1] != 'I' {
			continue
		}
		before := i == 0 || isPDFWhite(s.data[i-1])
		after := i+2 == len(s.data) || isPDFWhite(s.data[i+2])
		if before && after {
			s.pos = i + 2
			return
		}
	}
	s.pos = len(s.data)
}

func isPDFWhite(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isPDFDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// decodePDFHex decodes the body of a <...> string. Whitespace is ignored and
// a missing final digit counts as 0.
func decodePDFHex(raw []byte) string {
	digits := make([]byte, 0, len(raw)+1)
	for _, c := range raw {
		if !isPDFWhite(c) {
			digits = append(digits, c)
		}
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, hex.DecodedLen(len(digits)))
	if _, err := hex.Decode(out, digits); err != nil {
		return ""
	}
	return string(out)
}

var utf16BE = xunicode.UTF16(xunicode.BigEndian, xunicode.ExpectBOM)

// pdfText turns the bytes of a decoded string into text: UTF-16BE when it
// starts with a byte order mark, UTF-8 when valid, Latin-1 otherwise.
func pdfText(raw string) string {
	if strings.HasPrefix(raw, "\xfe\xff") {
		if out, err := utf16BE.NewDecoder().String(raw); err == nil {
			return out
		}
	}
	if utf8.ValidString(raw) {
		return raw
	}
	runes := make([]rune, len(raw))
	for i := 0; i < len(raw); i++ {
		runes[i] = rune(raw[i])
	}
	return string(runes)
}

// decodePDFString handles the escape sequences of PDF literal strings.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			if raw[i] < '0' || raw[i] > '7' {
				sb.WriteByte(raw[i])
				continue
			}
			// Octal, up to three digits (\040 is a space).
			val := int(raw[i] - '0')
			for n := 1; n < 3 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
				i++
				val = val*8 + int(raw[i]-'0')
			}
			sb.WriteByte(byte(val))
		}
	}
	return sb.String()
}

// collapseSpace folds whitespace runs to a single space and drops
// non-printable runes.
func collapseSpace(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		case unicode.IsPrint(r):
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}
