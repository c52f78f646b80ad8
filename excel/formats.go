package excel

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// builtinFormats are the format codes predefined by the file format and
// never written as FORMAT records.
var builtinFormats = map[int]string{
	0:  "General",
	1:  "0",
	2:  "0.00",
	3:  "#,##0",
	4:  "#,##0.00",
	9:  "0%",
	10: "0.00%",
	11: "0.00E+00",
	12: "# ?/?",
	13: "# ??/??",
	14: "m/d/yy",
	15: "d-mmm-yy",
	16: "d-mmm",
	17: "mmm-yy",
	18: "h:mm AM/PM",
	19: "h:mm:ss AM/PM",
	20: "h:mm",
	21: "h:mm:ss",
	22: "m/d/yy h:mm",
	37: "#,##0;(#,##0)",
	38: "#,##0;[Red](#,##0)",
	39: "#,##0.00;(#,##0.00)",
	40: "#,##0.00;[Red](#,##0.00)",
	45: "mm:ss",
	46: "[h]:mm:ss",
	47: "mm:ss.0",
	48: "##0.0E+0",
	49: "@",
}

// FormatCatalog accumulates the style definitions observed in the stream:
// the extended-format records in arrival order (a cell's style index is a
// position in that order) and the format-code to format-string mapping.
// Entries accumulate monotonically and are never removed.
type FormatCatalog struct {
	xfFormatIndexes []int
	formatStrings   map[int]string
}

func NewFormatCatalog() *FormatCatalog {
	return &FormatCatalog{formatStrings: make(map[int]string)}
}

// AddExtendedFormat appends one extended-format definition; the style index
// it answers to is its arrival position.
func (c *FormatCatalog) AddExtendedFormat(formatIndex int) {
	c.xfFormatIndexes = append(c.xfFormatIndexes, formatIndex)
}

// AddFormatString registers the display pattern for a format code.
func (c *FormatCatalog) AddFormatString(index int, s string) {
	c.formatStrings[index] = s
}

// ResolveXF maps a cell's style index to its format code. ok is false when
// the index has no definition yet; callers drop the cell in that case.
func (c *FormatCatalog) ResolveXF(xfIndex int) (int, bool) {
	if xfIndex < 0 || xfIndex >= len(c.xfFormatIndexes) {
		return 0, false
	}
	return c.xfFormatIndexes[xfIndex], true
}

// FormatString returns the display pattern for a format code, falling back
// to the built-in table. Unknown codes yield "" and render as General.
func (c *FormatCatalog) FormatString(formatIndex int) string {
	if s, ok := c.formatStrings[formatIndex]; ok {
		return s
	}
	return builtinFormats[formatIndex]
}

var bracketedRE = regexp.MustCompile(`\[[^\]]*\]`)

var nonDateFormats = map[string]bool{
	"0.00E+00": true,
	"##0.0E+0": true,
	"General":  true,
	"GENERAL":  true,
	"general":  true,
	"@":        true,
}

var skipChars = map[rune]bool{
	'$': true, '-': true, '+': true, '/': true, '(': true, ')': true, ':': true, ' ': true,
}

// isDateFormatString decides whether a format pattern renders a date/time.
// Heuristic: strip quoted text, escapes and bracketed sections; a date
// format then contains y/m/d/h/s characters and no number placeholders.
func isDateFormatString(formatStr string) bool {
	state := 0
	var s strings.Builder
	for _, c := range formatStr {
		switch state {
		case 0:
			if c == '"' {
				state = 1
			} else if c == '\\' || c == '_' || c == '*' {
				state = 2
			} else if !skipChars[c] {
				s.WriteRune(c)
			}
		case 1:
			if c == '"' {
				state = 0
			}
		case 2:
			state = 0
		}
	}

	reduced := bracketedRE.ReplaceAllString(s.String(), "")
	if nonDateFormats[reduced] {
		return false
	}

	dateCount, numCount := 0, 0
	for _, c := range reduced {
		switch c {
		case 'y', 'Y', 'm', 'M', 'd', 'D', 'h', 'H', 's', 'S':
			dateCount++
		case '0', '#', '?':
			numCount++
		}
	}
	return dateCount > 0 && numCount == 0
}

// dataFormatter renders raw numeric cell values into display strings for a
// given locale and date system. It deliberately approximates the display
// formatting rather than replicating it feature for feature.
type dataFormatter struct {
	printer *message.Printer
}

func newDataFormatter(tag language.Tag) *dataFormatter {
	return &dataFormatter{printer: message.NewPrinter(tag)}
}

// FormatRawCellContents renders value using the display pattern for the
// given format code. An empty pattern, "General" and text patterns render
// the plain number; date patterns go through serial-date conversion.
func (f *dataFormatter) FormatRawCellContents(value float64, formatIndex int, formatString string, datemode int) string {
	fs := formatString
	if fs == "" {
		fs = builtinFormats[formatIndex]
	}
	if fs == "" || fs == "General" || fs == "@" {
		return formatGeneral(value)
	}

	if isDateFormatString(fs) {
		t, err := xlDateAsTime(value, datemode)
		if err != nil {
			return formatGeneral(value)
		}
		return t.Format(excelDateLayout(fs))
	}
	return f.formatNumber(value, fs)
}

func formatGeneral(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (f *dataFormatter) formatNumber(v float64, pattern string) string {
	// Only the first (positive) section of the pattern is applied.
	sect := pattern
	if i := strings.IndexByte(sect, ';'); i >= 0 {
		sect = sect[:i]
	}
	sect = bracketedRE.ReplaceAllString(sect, "")

	percent := strings.ContainsRune(sect, '%')
	if percent {
		v *= 100
	}

	decimals := 0
	if i := strings.IndexByte(sect, '.'); i >= 0 {
		for _, c := range sect[i+1:] {
			if c != '0' && c != '#' {
				break
			}
			decimals++
		}
	}

	var out string
	if strings.ContainsRune(sect, ',') {
		out = f.printer.Sprint(number.Decimal(v, number.Scale(decimals)))
	} else {
		out = strconv.FormatFloat(v, 'f', decimals, 64)
	}
	if percent {
		out += "%"
	}
	return out
}

// excelDateLayout translates an Excel date pattern to a Go time layout.
// Quoted literals are preserved, bracketed sections dropped; m is resolved
// to month or minute from its position relative to h and s tokens.
func excelDateLayout(pattern string) string {
	twelveHour := strings.Contains(pattern, "AM/PM") || strings.Contains(pattern, "A/P")

	var out strings.Builder
	lastWasHour := false
	runes := []rune(pattern)

	for i := 0; i < len(runes); {
		c := runes[i]
		switch {
		case c == '"':
			i++
			for i < len(runes) && runes[i] != '"' {
				out.WriteRune(runes[i])
				i++
			}
			i++
		case c == '\\' || c == '_' || c == '*':
			if i+1 < len(runes) {
				out.WriteRune(runes[i+1])
			}
			i += 2
		case c == '[':
			for i < len(runes) && runes[i] != ']' {
				i++
			}
			i++
		case c == 'A' || c == 'a':
			if strings.HasPrefix(string(runes[i:]), "AM/PM") {
				out.WriteString("PM")
				i += 5
			} else if strings.HasPrefix(string(runes[i:]), "A/P") {
				out.WriteString("PM")
				i += 3
			} else {
				i++
			}
		default:
			n := 1
			lower := toLowerRune(c)
			for i+n < len(runes) && toLowerRune(runes[i+n]) == lower {
				n++
			}
			out.WriteString(dateToken(lower, n, &lastWasHour, twelveHour, runes, i+n))
			i += n
		}
	}
	return out.String()
}

func toLowerRune(c rune) rune {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func dateToken(c rune, n int, lastWasHour *bool, twelveHour bool, runes []rune, next int) string {
	switch c {
	case 'y':
		*lastWasHour = false
		if n >= 4 {
			return "2006"
		}
		return "06"
	case 'm':
		minute := *lastWasHour || nextDateChar(runes, next) == 's'
		*lastWasHour = false
		if minute {
			if n >= 2 {
				return "04"
			}
			return "4"
		}
		switch {
		case n >= 4:
			return "January"
		case n == 3:
			return "Jan"
		case n == 2:
			return "01"
		default:
			return "1"
		}
	case 'd':
		*lastWasHour = false
		switch {
		case n >= 4:
			return "Monday"
		case n == 3:
			return "Mon"
		case n == 2:
			return "02"
		default:
			return "2"
		}
	case 'h':
		*lastWasHour = true
		if twelveHour {
			if n >= 2 {
				return "03"
			}
			return "3"
		}
		return "15"
	case 's':
		*lastWasHour = false
		if n >= 2 {
			return "05"
		}
		return "5"
	default:
		// Separators and literals keep the hour context for the m token.
		return strings.Repeat(string(c), n)
	}
}

// nextDateChar returns the next date-significant character after position i,
// skipping separators.
func nextDateChar(runes []rune, i int) rune {
	for ; i < len(runes); i++ {
		c := toLowerRune(runes[i])
		switch c {
		case 'y', 'm', 'd', 'h', 's':
			return c
		case ':', ' ', '.', '-', '/':
			continue
		default:
			return 0
		}
	}
	return 0
}
