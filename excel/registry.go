package excel

import "log/slog"

// SheetDescriptor records what is known about one discovered sheet.
type SheetDescriptor struct {
	// Index is the 0-based discovery position.
	Index int

	// Name is the sheet name from the discovery record.
	Name string

	// Included reports whether the sheet takes part in cell
	// reconstruction, decided at discovery time from the allow-list.
	Included bool

	// CellCount is the running total of declared cells, diagnostic only.
	CellCount int64
}

// sheetCache holds the reconstructed rows of one included sheet. Each row is
// sized once, at its row-boundary record, and its slots are filled in place;
// slots that never resolve stay nil and represent genuinely blank cells.
type sheetCache struct {
	rows [][]*Cell
}

// SheetRegistry tracks the ordered list of discovered sheets and owns the
// per-sheet caches until the row iterator consumes them. The current-sheet
// cursor is explicit state, advanced by the row-number-zero sentinel, and is
// distinct from the discovery index.
type SheetRegistry struct {
	sheets []*SheetDescriptor
	caches []*sheetCache
	cursor int
	log    *slog.Logger
}

func NewSheetRegistry(log *slog.Logger) *SheetRegistry {
	if log == nil {
		log = slog.Default()
	}
	return &SheetRegistry{cursor: -1, log: log}
}

// AddSheet appends a sheet in discovery order. Only included sheets get a
// cache; excluded sheets keep discovery bookkeeping only.
func (r *SheetRegistry) AddSheet(name string, included bool) *SheetDescriptor {
	desc := &SheetDescriptor{Index: len(r.sheets), Name: name, Included: included}
	r.sheets = append(r.sheets, desc)
	if included {
		r.caches = append(r.caches, &sheetCache{})
	} else {
		r.caches = append(r.caches, nil)
	}
	return desc
}

// Len returns the number of discovered sheets.
func (r *SheetRegistry) Len() int { return len(r.sheets) }

// Descriptor returns the sheet at a discovery index, nil if out of range.
func (r *SheetRegistry) Descriptor(i int) *SheetDescriptor {
	if i < 0 || i >= len(r.sheets) {
		return nil
	}
	return r.sheets[i]
}

// Current returns the sheet under the cursor, nil before the first
// row-boundary record or when the cursor ran past the discovery list.
func (r *SheetRegistry) Current() *SheetDescriptor {
	return r.Descriptor(r.cursor)
}

// AdvanceSheet moves the cursor to the next sheet, recording the previous
// sheet's observed cell count as a diagnostic total.
func (r *SheetRegistry) AdvanceSheet(prevCellCount int64) {
	if cur := r.Current(); cur != nil {
		cur.CellCount = prevCellCount
	}
	r.cursor++
	if r.cursor >= len(r.sheets) {
		r.log.Warn("row records exceed discovered sheets; extra rows are dropped",
			"cursor", r.cursor, "sheets", len(r.sheets))
	}
}

// AppendRow allocates a row of the declared width on the current sheet's
// cache. Rows on excluded or unknown sheets are dispatched but not cached.
func (r *SheetRegistry) AppendRow(width int) {
	cur := r.Current()
	if cur == nil || !cur.Included {
		return
	}
	cache := r.caches[r.cursor]
	cache.rows = append(cache.rows, make([]*Cell, width))
}

// RowWidth returns the declared width of a cached row on the current sheet.
func (r *SheetRegistry) RowWidth(rowx int) (int, bool) {
	cur := r.Current()
	if cur == nil || !cur.Included {
		return 0, false
	}
	cache := r.caches[r.cursor]
	if rowx < 0 || rowx >= len(cache.rows) {
		return 0, false
	}
	return len(cache.rows[rowx]), true
}

// Put places a resolved cell into the current sheet's cache. It returns
// false when the slot does not exist; the caller logs and drops the cell.
func (r *SheetRegistry) Put(rowx, colx int, cell *Cell) bool {
	cur := r.Current()
	if cur == nil || !cur.Included {
		return false
	}
	cache := r.caches[r.cursor]
	if rowx < 0 || rowx >= len(cache.rows) {
		return false
	}
	row := cache.rows[rowx]
	if colx < 0 || colx >= len(row) {
		return false
	}
	row[colx] = cell
	return true
}

// take transfers ownership of a sheet's cache to the caller and releases the
// registry's reference, freeing the memory once the caller drops it.
func (r *SheetRegistry) take(i int) *sheetCache {
	if i < 0 || i >= len(r.caches) {
		return nil
	}
	c := r.caches[i]
	r.caches[i] = nil
	return c
}

// RowIterator drains the registry one row at a time across sheets in
// discovery order, releasing each sheet's cache once fully consumed. All
// data is already resident when iteration begins; Next never blocks.
type RowIterator struct {
	registry *SheetRegistry
	sheet    int
	row      int
	cache    *sheetCache
	lastName string
}

// NewRowIterator positions an iterator at the first included sheet.
func NewRowIterator(registry *SheetRegistry) *RowIterator {
	it := &RowIterator{registry: registry, sheet: -1}
	it.advanceSheet()
	return it
}

// advanceSheet takes ownership of the next included sheet's cache.
func (it *RowIterator) advanceSheet() {
	it.cache = nil
	it.row = 0
	for it.sheet+1 < it.registry.Len() {
		it.sheet++
		desc := it.registry.Descriptor(it.sheet)
		if !desc.Included {
			continue
		}
		it.cache = it.registry.take(it.sheet)
		it.lastName = desc.Name
		return
	}
	it.sheet = it.registry.Len()
}

// Next returns the next unconsumed row's cell slice, advancing the cursor.
// ok is false once every included sheet has been drained; that is the end
// marker, not an error. Unresolved slots in the returned row are nil.
func (it *RowIterator) Next() ([]*Cell, bool) {
	for it.cache != nil {
		if it.row < len(it.cache.rows) {
			row := it.cache.rows[it.row]
			it.row++
			if it.row == len(it.cache.rows) {
				// consumed: drop the cache and move on
				it.advanceSheet()
			}
			return row, true
		}
		// empty sheet cache
		it.advanceSheet()
	}
	return nil, false
}

// CurrentSheetName reports the sheet the iterator is positioned on. After
// exhaustion it keeps answering with the last known sheet's name, so
// trailing diagnostic queries still work.
func (it *RowIterator) CurrentSheetName() string {
	if it.cache != nil {
		if desc := it.registry.Descriptor(it.sheet); desc != nil {
			return desc.Name
		}
	}
	return it.lastName
}

// CurrentRow returns the 0-based row cursor within the current sheet.
func (it *RowIterator) CurrentRow() int {
	return it.row
}
