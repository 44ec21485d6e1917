package ygggo_db

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EscapeString makes a text value safe to embed inside a single-quoted SQL
// literal. Special characters are backslash-escaped following MySQL literal
// rules (quote, double quote, backslash, NUL, newline, carriage return,
// ctrl-Z) and surrounding whitespace is trimmed. A value with nothing to
// escape comes back unchanged.
//
// This feeds the inline-literal statement path only; parameterized APIs rely
// on driver escaping and never call it.
func EscapeString(s string) string {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, "\x00\n\r\\'\"\x1a") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case 0:
			b.WriteString(`\0`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '"':
			b.WriteString(`\"`)
		case 0x1a:
			b.WriteString(`\Z`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// escapeLiteral renders one value as a SQL literal fragment. nil renders as
// the unquoted NULL keyword, never as quoted text. Numbers render unquoted,
// bools as 1/0, text single-quoted after EscapeString.
func escapeLiteral(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if t {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(t)
	case int8:
		return strconv.FormatInt(int64(t), 10)
	case int16:
		return strconv.FormatInt(int64(t), 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint8:
		return strconv.FormatUint(uint64(t), 10)
	case uint16:
		return strconv.FormatUint(uint64(t), 10)
	case uint32:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case time.Time:
		return "'" + t.Format("2006-01-02 15:04:05") + "'"
	case []byte:
		return "'" + EscapeString(string(t)) + "'"
	case string:
		return "'" + EscapeString(t) + "'"
	default:
		return "'" + EscapeString(fmt.Sprint(t)) + "'"
	}
}

// escapeRow renders a full row as a parenthesized literal tuple.
func escapeRow(row []any) string {
	var b strings.Builder
	b.Grow(2 + len(row)*8)
	b.WriteByte('(')
	for i, v := range row {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(escapeLiteral(v))
	}
	b.WriteByte(')')
	return b.String()
}
