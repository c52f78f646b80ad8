package excel

import (
	"log/slog"

	"golang.org/x/text/language"
)

// ReadConfiguration carries the options for one parse session.
//
// The zero value is usable: all sheets are read, no password is applied and
// numbers are rendered with the root locale.
type ReadConfiguration struct {
	// Locale affects how numeric and date cell values are rendered to
	// display strings. The zero Tag means language.Und (no localisation).
	Locale language.Tag

	// Password unlocks encrypted containers. Empty means unencrypted.
	Password string

	// Sheets is an allow-list of exact sheet names. Nil means all sheets
	// are included; an empty non-nil list excludes every sheet.
	Sheets []string

	// ReadLinkedWorkbooks and IgnoreMissingLinkedWorkbooks are accepted for
	// interface compatibility. Linked workbooks are not supported in low
	// footprint mode; setting either only produces a warning.
	ReadLinkedWorkbooks          bool
	IgnoreMissingLinkedWorkbooks bool

	// MetaDataFilter is accepted for interface compatibility. Metadata
	// filtering is not supported in low footprint mode; a non-empty filter
	// only produces a warning.
	MetaDataFilter map[string]string

	// Logger receives parse diagnostics. Nil means slog.Default().
	Logger *slog.Logger
}

func (c *ReadConfiguration) logger() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// sheetIncluded decides at discovery time whether a sheet takes part in cell
// reconstruction. With no allow-list every sheet is included; otherwise the
// name must match exactly.
func (c *ReadConfiguration) sheetIncluded(name string) bool {
	if c == nil || c.Sheets == nil {
		return true
	}
	for _, s := range c.Sheets {
		if s == name {
			return true
		}
	}
	return false
}
