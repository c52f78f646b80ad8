package excel

import "log/slog"

// sharedStringTable is the deduplicated string table referenced by index
// from cell records. Exactly one is logically active at a time; a new
// table record replaces the prior reference.
type sharedStringTable struct {
	numUnique int
	strings   []string
}

// pendingFormula marks a formula cell whose cached result arrives in a
// following string record. At most one is outstanding; a new formula with a
// string result unconditionally replaces any prior pending entry.
type pendingFormula struct {
	row int
	col int
}

// CellReconstructionEngine consumes one structural record at a time and
// incrementally rebuilds the sheet/row/cell grid. No record aborts the
// stream on its own: malformed cells degrade to blanks, logged.
type CellReconstructionEngine struct {
	cfg       *ReadConfiguration
	registry  *SheetRegistry
	catalog   *FormatCatalog
	formatter *dataFormatter
	decoder   *stringDecoder
	log       *slog.Logger

	datemode     int
	sst          *sharedStringTable
	pending      *pendingFormula
	currentCells int64
}

func NewCellReconstructionEngine(cfg *ReadConfiguration, registry *SheetRegistry, catalog *FormatCatalog) *CellReconstructionEngine {
	if cfg == nil {
		cfg = &ReadConfiguration{}
	}
	return &CellReconstructionEngine{
		cfg:       cfg,
		registry:  registry,
		catalog:   catalog,
		formatter: newDataFormatter(cfg.Locale),
		decoder:   newStringDecoder(),
		log:       cfg.logger(),
	}
}

// ProcessRaw decodes one raw record and dispatches it. A malformed payload
// is logged and skipped; a single bad record never discards the stream.
func (e *CellReconstructionEngine) ProcessRaw(raw rawRecord) {
	rec, err := decodeRecord(raw, e.decoder)
	if err != nil {
		e.log.Warn("malformed record skipped", "sid", int(raw.sid), "err", err)
		return
	}
	if rec == nil {
		return
	}
	e.ProcessRecord(rec)
}

// ProcessRecord dispatches one decoded record to its handler.
func (e *CellReconstructionEngine) ProcessRecord(rec record) {
	switch r := rec.(type) {
	case bofRecord:
		if r.version != 0 && r.streamType == bofWorkbookGlobals {
			e.decoder.biffVersion = r.version
		}
	case boundSheetRecord:
		e.handleBoundSheet(r)
	case rowRecord:
		e.handleRow(r)
	case numberRecord:
		e.putNumber(r.row, r.col, r.value, r.xfIndex)
	case mulRKRecord:
		for _, c := range r.cells {
			e.putNumber(r.row, c.col, c.value, c.xfIndex)
		}
	case formulaRecord:
		e.handleFormula(r)
	case stringRecord:
		e.handleString(r)
	case labelRecord:
		e.putString(r.row, r.col, r.value)
	case labelSSTRecord:
		e.handleLabelSST(r)
	case sstRecord:
		e.sst = &sharedStringTable{numUnique: r.numUnique, strings: r.strings}
	case xfRecord:
		e.catalog.AddExtendedFormat(r.formatIndex)
	case formatRecord:
		e.catalog.AddFormatString(r.index, r.formatString)
	case dateModeRecord:
		e.datemode = r.mode
	case codePageRecord:
		e.decoder.codepage = r.codepage
	case eofRecord:
		// sheet substreams share one record flow; nothing to do
	}
}

// Finish records the trailing sheet's diagnostic cell count after the last
// record has been dispatched.
func (e *CellReconstructionEngine) Finish() {
	if cur := e.registry.Current(); cur != nil {
		cur.CellCount = e.currentCells
	}
}

func (e *CellReconstructionEngine) handleBoundSheet(r boundSheetRecord) {
	if r.sheetType != boundSheetWorksheet {
		return
	}
	included := e.cfg.sheetIncluded(r.name)
	e.registry.AddSheet(r.name, included)
	e.log.Debug("sheet discovered", "name", r.name, "included", included)
}

// handleRow starts a new row. Row number zero is the sentinel for "a new
// sheet's rows have begun": the stream lists every sheet's discovery record
// first and then streams the sheets' rows one sheet after another.
func (e *CellReconstructionEngine) handleRow(r rowRecord) {
	if r.row == 0 {
		e.registry.AdvanceSheet(e.currentCells)
		e.currentCells = 0
	}
	e.registry.AppendRow(r.lastCol)
	e.currentCells += int64(r.lastCol)
}

func (e *CellReconstructionEngine) includedCurrent() *SheetDescriptor {
	cur := e.registry.Current()
	if cur == nil || !cur.Included {
		return nil
	}
	return cur
}

// putNumber resolves a numeric value through the format catalog and places
// the rendered cell. An unresolved style index or an out-of-bounds column
// drops the cell and keeps the stream going.
func (e *CellReconstructionEngine) putNumber(row, col int, value float64, xfIndex int) {
	cur := e.includedCurrent()
	if cur == nil {
		return
	}

	width, ok := e.registry.RowWidth(row)
	if !ok || col >= width {
		e.log.Error("more cells in row than declared; cell dropped",
			"sheet", cur.Name, "row", row, "col", col, "width", width)
		return
	}

	formatIndex, ok := e.catalog.ResolveXF(xfIndex)
	if !ok {
		e.log.Error("unresolved extended format index; cell dropped",
			"sheet", cur.Name, "row", row, "col", col, "xf", xfIndex)
		return
	}

	rendered := e.formatter.FormatRawCellContents(value, formatIndex, e.catalog.FormatString(formatIndex), e.datemode)
	e.place(cur, row, col, rendered)
}

func (e *CellReconstructionEngine) putString(row, col int, value string) {
	cur := e.includedCurrent()
	if cur == nil {
		return
	}
	e.place(cur, row, col, value)
}

func (e *CellReconstructionEngine) place(cur *SheetDescriptor, row, col int, value string) {
	cell := &Cell{
		FormattedValue: value,
		Address:        CellAddressA1(row, col),
		SheetName:      cur.Name,
	}
	if !e.registry.Put(row, col, cell) {
		e.log.Error("cell outside declared row bounds; dropped",
			"sheet", cur.Name, "row", row, "col", col)
	}
}

func (e *CellReconstructionEngine) handleFormula(r formulaRecord) {
	if e.includedCurrent() == nil {
		return
	}
	if r.cachedString {
		// the literal result follows in a string record
		e.pending = &pendingFormula{row: r.row, col: r.col}
		return
	}
	e.putNumber(r.row, r.col, r.value, r.xfIndex)
}

// handleString materializes a pending formula's cached string result. A
// string record with nothing outstanding is ignored.
func (e *CellReconstructionEngine) handleString(r stringRecord) {
	if e.pending == nil {
		return
	}
	p := e.pending
	e.pending = nil
	e.putString(p.row, p.col, r.value)
}

func (e *CellReconstructionEngine) handleLabelSST(r labelSSTRecord) {
	cur := e.includedCurrent()
	if cur == nil {
		return
	}

	width, ok := e.registry.RowWidth(r.row)
	if !ok || r.col >= width {
		e.log.Error("more cells in row than declared; cell dropped",
			"sheet", cur.Name, "row", r.row, "col", r.col, "width", width)
		return
	}

	if e.sst == nil || r.sstIndex < 0 || r.sstIndex >= e.sst.numUnique || r.sstIndex >= len(e.sst.strings) {
		e.log.Error("invalid shared string index; cell dropped",
			"sheet", cur.Name, "row", r.row, "col", r.col, "index", r.sstIndex)
		return
	}
	e.place(cur, r.row, r.col, e.sst.strings[r.sstIndex])
}
