package excel

import "testing"

func testCell(value string) *Cell {
	return &Cell{FormattedValue: value}
}

func TestSheetRegistryCursor(t *testing.T) {
	r := NewSheetRegistry(nil)
	r.AddSheet("First", true)
	r.AddSheet("Second", true)

	if r.Current() != nil {
		t.Errorf("Current() before the first row boundary = %v, expected nil", r.Current())
	}

	r.AdvanceSheet(0)
	if cur := r.Current(); cur == nil || cur.Name != "First" {
		t.Fatalf("Current() after one advance = %v, expected First", cur)
	}

	r.AdvanceSheet(12)
	if r.Descriptor(0).CellCount != 12 {
		t.Errorf("First.CellCount = %d, expected 12", r.Descriptor(0).CellCount)
	}
	if cur := r.Current(); cur == nil || cur.Name != "Second" {
		t.Fatalf("Current() after two advances = %v, expected Second", cur)
	}
}

func TestSheetRegistryPut(t *testing.T) {
	r := NewSheetRegistry(nil)
	r.AddSheet("Data", true)
	r.AdvanceSheet(0)
	r.AppendRow(3)

	if !r.Put(0, 1, testCell("x")) {
		t.Error("Put(0, 1) = false, expected true")
	}
	if r.Put(0, 3, testCell("overflow")) {
		t.Error("Put past the declared row width succeeded, expected false")
	}
	if r.Put(1, 0, testCell("no row")) {
		t.Error("Put on an unallocated row succeeded, expected false")
	}

	if w, ok := r.RowWidth(0); !ok || w != 3 {
		t.Errorf("RowWidth(0) = %d, %v, expected 3, true", w, ok)
	}
}

func TestSheetRegistryExcludedSheetDropsRows(t *testing.T) {
	r := NewSheetRegistry(nil)
	r.AddSheet("Skipped", false)
	r.AdvanceSheet(0)
	r.AppendRow(2)

	if r.Put(0, 0, testCell("x")) {
		t.Error("Put on an excluded sheet succeeded, expected false")
	}
	if _, ok := r.RowWidth(0); ok {
		t.Error("RowWidth on an excluded sheet reported a row, expected none")
	}
}

func TestRowIteratorDrainsSheetsInOrder(t *testing.T) {
	r := NewSheetRegistry(nil)
	r.AddSheet("A", true)
	r.AddSheet("B", true)

	r.AdvanceSheet(0)
	r.AppendRow(1)
	r.Put(0, 0, testCell("a1"))

	r.AdvanceSheet(1)
	r.AppendRow(1)
	r.Put(0, 0, testCell("b1"))
	r.AppendRow(1)
	r.Put(1, 0, testCell("b2"))

	it := NewRowIterator(r)

	expected := []struct {
		sheet string
		value string
	}{
		{"A", "a1"},
		{"B", "b1"},
		{"B", "b2"},
	}
	for i, want := range expected {
		name := it.CurrentSheetName()
		row, ok := it.Next()
		if !ok {
			t.Fatalf("row %d: Next() = false, expected a row", i)
		}
		if name != want.sheet {
			t.Errorf("row %d: CurrentSheetName() = %q, expected %q", i, name, want.sheet)
		}
		if len(row) != 1 || row[0] == nil || row[0].FormattedValue != want.value {
			t.Errorf("row %d = %v, expected one cell %q", i, row, want.value)
		}
	}

	if _, ok := it.Next(); ok {
		t.Error("Next() after exhaustion = true, expected false")
	}
}

func TestRowIteratorTakesOwnership(t *testing.T) {
	r := NewSheetRegistry(nil)
	r.AddSheet("Only", true)
	r.AdvanceSheet(0)
	r.AppendRow(1)

	NewRowIterator(r)
	if r.caches[0] != nil {
		t.Error("registry still holds the cache after the iterator took it")
	}
}

func TestRowIteratorSkipsExcludedAndEmptySheets(t *testing.T) {
	r := NewSheetRegistry(nil)
	r.AddSheet("Empty", true) // included but never receives rows
	r.AddSheet("Hidden", false)
	r.AddSheet("Data", true)

	r.AdvanceSheet(0) // Empty
	r.AdvanceSheet(0) // Hidden
	r.AdvanceSheet(0) // Data
	r.AppendRow(1)
	r.Put(0, 0, testCell("v"))

	it := NewRowIterator(r)
	row, ok := it.Next()
	if !ok || len(row) != 1 || row[0].FormattedValue != "v" {
		t.Fatalf("Next() = %v, %v, expected the Data row", row, ok)
	}
	if name := it.CurrentSheetName(); name != "Data" {
		t.Errorf("CurrentSheetName() = %q, expected %q", name, "Data")
	}
}

// After the last included sheet is drained the iterator keeps reporting the
// last sheet it visited, even when later sheets were excluded.
func TestRowIteratorLastNameFallback(t *testing.T) {
	r := NewSheetRegistry(nil)
	r.AddSheet("A", true)
	r.AddSheet("B", false)

	r.AdvanceSheet(0)
	r.AppendRow(1)
	r.Put(0, 0, testCell("x"))

	it := NewRowIterator(r)
	if _, ok := it.Next(); !ok {
		t.Fatal("Next() = false, expected the single row")
	}
	if _, ok := it.Next(); ok {
		t.Fatal("Next() after exhaustion = true, expected false")
	}
	if name := it.CurrentSheetName(); name != "A" {
		t.Errorf("CurrentSheetName() after exhaustion = %q, expected %q", name, "A")
	}
}
