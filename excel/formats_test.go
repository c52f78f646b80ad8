package excel

import (
	"testing"

	"golang.org/x/text/language"
)

func TestIsDateFormatString(t *testing.T) {
	tests := []struct {
		format   string
		expected bool
	}{
		{"m/d/yy", true},
		{"yyyy-mm-dd", true},
		{"h:mm:ss AM/PM", true},
		{"[h]:mm:ss", true},
		{"General", false},
		{"0.00", false},
		{"#,##0", false},
		{"0.00E+00", false},
		{"@", false},
		{"0%", false},
		{`"Year "yyyy`, true},
		{`0.0" m"`, false},
	}

	for _, test := range tests {
		result := isDateFormatString(test.format)
		if result != test.expected {
			t.Errorf("isDateFormatString(%q) = %v, expected %v", test.format, result, test.expected)
		}
	}
}

func TestFormatCatalogResolveXF(t *testing.T) {
	c := NewFormatCatalog()
	c.AddExtendedFormat(0)
	c.AddExtendedFormat(164)

	if idx, ok := c.ResolveXF(0); !ok || idx != 0 {
		t.Errorf("ResolveXF(0) = (%d, %v), expected (0, true)", idx, ok)
	}
	if idx, ok := c.ResolveXF(1); !ok || idx != 164 {
		t.Errorf("ResolveXF(1) = (%d, %v), expected (164, true)", idx, ok)
	}
	if _, ok := c.ResolveXF(2); ok {
		t.Error("ResolveXF(2) should fail for an index with no definition")
	}
	if _, ok := c.ResolveXF(-1); ok {
		t.Error("ResolveXF(-1) should fail")
	}
}

func TestFormatCatalogFormatString(t *testing.T) {
	c := NewFormatCatalog()
	c.AddFormatString(164, "0.000")

	if s := c.FormatString(164); s != "0.000" {
		t.Errorf("FormatString(164) = %q, expected %q", s, "0.000")
	}
	// built-in fallback
	if s := c.FormatString(2); s != "0.00" {
		t.Errorf("FormatString(2) = %q, expected %q", s, "0.00")
	}
	if s := c.FormatString(1000); s != "" {
		t.Errorf("FormatString(1000) = %q, expected empty", s)
	}
}

func TestFormatRawCellContents(t *testing.T) {
	f := newDataFormatter(language.AmericanEnglish)

	tests := []struct {
		name         string
		value        float64
		formatIndex  int
		formatString string
		datemode     int
		expected     string
	}{
		{"general integer", 42.0, 0, "", 0, "42"},
		{"general fraction", 3.14, 0, "General", 0, "3.14"},
		{"two decimals", 3.14159, 164, "0.00", 0, "3.14"},
		{"builtin two decimals", 7.0, 2, "", 0, "7.00"},
		{"percent", 0.5, 9, "0%", 0, "50%"},
		{"grouped", 1234.5, 4, "#,##0.00", 0, "1,234.50"},
		{"date iso", 36526.0, 164, "yyyy-mm-dd", 0, "2000-01-01"},
		{"date builtin", 36526.0, 14, "", 0, "1/1/00"},
		{"time", 0.5, 21, "h:mm:ss", 0, "12:00:00"},
		{"datetime", 36526.25, 22, "m/d/yy h:mm", 0, "1/1/00 06:00"},
		{"date out of range falls back", -5.0, 14, "m/d/yy", 0, "-5"},
		{"text format", 12.0, 49, "@", 0, "12"},
	}

	for _, test := range tests {
		result := f.FormatRawCellContents(test.value, test.formatIndex, test.formatString, test.datemode)
		if result != test.expected {
			t.Errorf("%s: FormatRawCellContents(%g, %d, %q) = %q, expected %q",
				test.name, test.value, test.formatIndex, test.formatString, result, test.expected)
		}
	}
}

func TestExcelDateLayout(t *testing.T) {
	tests := []struct {
		pattern  string
		expected string
	}{
		{"yyyy-mm-dd", "2006-01-02"},
		{"m/d/yy", "1/2/06"},
		{"h:mm:ss", "15:04:05"},
		{"h:mm AM/PM", "3:04 PM"},
		{"d-mmm-yy", "2-Jan-06"},
		{"mmmm d, yyyy", "January 2, 2006"},
		{"mm:ss", "04:05"},
	}

	for _, test := range tests {
		result := excelDateLayout(test.pattern)
		if result != test.expected {
			t.Errorf("excelDateLayout(%q) = %q, expected %q", test.pattern, result, test.expected)
		}
	}
}
