package excel

import (
	"testing"
	"time"
)

func TestXLDateAsTime(t *testing.T) {
	tests := []struct {
		xldate   float64
		datemode int
		expected time.Time
	}{
		{1.0, 0, time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)},
		{61.0, 0, time.Date(1900, 3, 1, 0, 0, 0, 0, time.UTC)},
		{36526.0, 0, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)},
		{0.5, 0, time.Date(1899, 12, 31, 12, 0, 0, 0, time.UTC)},
		{36526.25, 0, time.Date(2000, 1, 1, 6, 0, 0, 0, time.UTC)},
		{0.0, 1, time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)},
		{366.0, 1, time.Date(1905, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, test := range tests {
		result, err := xlDateAsTime(test.xldate, test.datemode)
		if err != nil {
			t.Errorf("xlDateAsTime(%g, %d) returned error: %v", test.xldate, test.datemode, err)
			continue
		}
		if !result.Equal(test.expected) {
			t.Errorf("xlDateAsTime(%g, %d) = %v, expected %v", test.xldate, test.datemode, result, test.expected)
		}
	}
}

func TestXLDateAsTimeErrors(t *testing.T) {
	tests := []struct {
		name     string
		xldate   float64
		datemode int
	}{
		{"negative", -1.0, 0},
		{"bad datemode", 1.0, 2},
		{"nonexistent 1900-02-29", 60.0, 0},
		{"too large 1900", 2958466.0, 0},
		{"too large 1904", 2958466.0 - 1462, 1},
	}

	for _, test := range tests {
		if _, err := xlDateAsTime(test.xldate, test.datemode); err == nil {
			t.Errorf("%s: xlDateAsTime(%g, %d) expected error, got none", test.name, test.xldate, test.datemode)
		}
	}
}
