package excel

import "strconv"

// Cell is one resolved spreadsheet cell. Cells are materialized only once
// their source record(s) are fully resolved and are never mutated afterwards.
type Cell struct {
	// FormattedValue is the already rendered display string.
	FormattedValue string

	// Comment is the cell comment, empty if none.
	Comment string

	// Formula is the formula text, empty for non-formula cells. Formula
	// text is not captured in low footprint mode, only cached results.
	Formula string

	// Address is the cell address in A1 notation, e.g. "B7".
	Address string

	// SheetName is the name of the sheet the cell belongs to.
	SheetName string
}

// Colname returns the column letters for a 0-based column index.
// Colname(0) is "A", Colname(25) is "Z", Colname(26) is "AA".
func Colname(colx int) string {
	if colx < 0 {
		return ""
	}

	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	name := ""
	for {
		quot := colx / 26
		rem := colx % 26
		name = string(alphabet[rem]) + name
		if quot == 0 {
			break
		}
		colx = quot - 1
	}
	return name
}

// CellAddressA1 renders a 0-based (row, column) pair in A1 notation:
// row 0, column 0 is "A1"; row 0, column 26 is "AA1".
func CellAddressA1(rowx, colx int) string {
	return Colname(colx) + strconv.Itoa(rowx+1)
}
