package value

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Print renders v in the econ profile: JSON-shaped with one tab per depth,
// double-quoted keys, and nil written as the bareword nil. The output
// re-parses to an equal tree.
func Print(v Value) string {
	var sb strings.Builder
	writeValue(&sb, v, 0, false)
	return sb.String()
}

// PrintJSON renders v in the strict JSON profile: null for nil and for
// non-finite numbers. The output is valid JSON for any evaluated tree.
func PrintJSON(v Value) string {
	var sb strings.Builder
	writeValue(&sb, v, 0, true)
	return sb.String()
}

// AppendJSON appends the strict-JSON form of v to dst.
func AppendJSON(dst []byte, v Value) []byte {
	var sb strings.Builder
	writeValue(&sb, v, 0, true)
	return append(dst, sb.String()...)
}

// FormatNum renders a number in the shortest decimal form that re-parses:
// no exponent, inf for positive infinity. NaN renders as nan, which does
// not re-parse as a number.
func FormatNum(f float64) string {
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	if math.IsNaN(f) {
		return "nan"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func writeValue(sb *strings.Builder, v Value, depth int, strict bool) {
	switch t := v.(type) {
	case nil, Nil:
		if strict {
			sb.WriteString("null")
		} else {
			sb.WriteString("nil")
		}
	case Num:
		f := float64(t)
		if strict && (math.IsInf(f, 0) || math.IsNaN(f)) {
			sb.WriteString("null")
			return
		}
		sb.WriteString(FormatNum(f))
	case Bool:
		if t {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case Str:
		writeString(sb, string(t), strict)
	case Arr:
		if len(t) == 0 {
			sb.WriteString("[]")
			return
		}
		sb.WriteString("[\n")
		for i, e := range t {
			indent(sb, depth+1)
			writeValue(sb, e, depth+1, strict)
			if i+1 < len(t) {
				sb.WriteByte(',')
			}
			sb.WriteByte('\n')
		}
		indent(sb, depth)
		sb.WriteByte(']')
	case *Object:
		if t.Len() == 0 {
			sb.WriteString("{}")
			return
		}
		sb.WriteString("{\n")
		i := 0
		t.Range(func(k string, e Value) bool {
			indent(sb, depth+1)
			writeString(sb, k, strict)
			sb.WriteString(": ")
			writeValue(sb, e, depth+1, strict)
			if i+1 < t.Len() {
				sb.WriteByte(',')
			}
			sb.WriteByte('\n')
			i++
			return true
		})
		indent(sb, depth)
		sb.WriteByte('}')
	}
}

// writeString quotes s. The strict profile uses JSON escaping; the econ
// profile escapes only '"' and '\', since a backslash in source escapes the
// next grapheme literally.
func writeString(sb *strings.Builder, s string, strict bool) {
	if strict {
		// encoding a string cannot fail; invalid UTF-8 becomes U+FFFD
		quoted, _ := json.Marshal(s)
		sb.Write(quoted)
		return
	}
	sb.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	sb.WriteByte('"')
}

func indent(sb *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		sb.WriteByte('\t')
	}
}
