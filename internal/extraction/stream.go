package extraction

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"
)

var literalString = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)`)

// parseContentStream interprets the text-showing operators of a PDF
// content stream. Only Tj, TJ, ', Td/TD, and T* matter for text layout;
// everything else is drawing state.
func parseContentStream(data []byte) string {
	var sb strings.Builder

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		switch {
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			writeStrings(&sb, line, false)
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			writeStrings(&sb, line, true)
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")):
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
		case bytes.Equal(line, []byte("T*")):
			sb.WriteByte('\n')
		}
	}

	return normalizeText(sb.String())
}

func writeStrings(sb *strings.Builder, line []byte, newline bool) {
	for _, match := range literalString.FindAllSubmatch(line, -1) {
		text := decodeLiteral(match[1])
		if text == "" {
			continue
		}
		if newline {
			sb.WriteByte('\n')
		}
		sb.WriteString(text)
	}
}

// decodeLiteral resolves PDF string escapes, including octal codes.
func decodeLiteral(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}

		i++
		switch c := raw[i]; c {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(c)
		default:
			if c < '0' || c > '7' {
				sb.WriteByte(c)
				continue
			}
			value := int(c - '0')
			for digits := 1; digits < 3 && i+1 < len(raw); digits++ {
				next := raw[i+1]
				if next < '0' || next > '7' {
					break
				}
				i++
				value = value*8 + int(next-'0')
			}
			sb.WriteByte(byte(value))
		}
	}
	return sb.String()
}

// normalizeText collapses horizontal whitespace runs while preserving
// line structure, and drops unprintable glyphs.
func normalizeText(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))

	for _, line := range lines {
		var sb strings.Builder
		space := false
		for _, r := range line {
			switch {
			case r == ' ' || r == '\t':
				space = sb.Len() > 0
			case garbageRune(r):
			case unicode.IsPrint(r):
				if space {
					sb.WriteByte(' ')
					space = false
				}
				sb.WriteRune(r)
			}
		}
		if sb.Len() > 0 {
			cleaned = append(cleaned, sb.String())
		}
	}

	return strings.Join(cleaned, "\n")
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	line = strings.TrimSpace(line)
	if len([]rune(line)) > 200 {
		line = string([]rune(line)[:200])
	}
	return line
}
