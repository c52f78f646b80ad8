// Package excel reconstructs a spreadsheet's logical cell grid from a flat
// stream of structural records with a low memory footprint: one forward
// pass builds only the minimal per-sheet row/cell cache, and a pull-based
// row iterator frees each sheet's cache as it is consumed.
package excel

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"log/slog"

	"github.com/richardlehane/mscfb"
)

// Format identifies the classified container kind after a parse.
type Format int

const (
	FormatUnsupported Format = -1
	FormatOldExcel    Format = 0
	FormatOOXML       Format = 1
)

// LowFootprintParser drives one parse session: it classifies the container,
// feeds structural records through the reconstruction engine and then hands
// out rows one at a time. Instances are single-threaded and not reentrant;
// use a fresh parser per workbook.
type LowFootprintParser struct {
	cfg      *ReadConfiguration
	log      *slog.Logger
	registry *SheetRegistry
	catalog  *FormatCatalog
	it       *RowIterator
	format   Format
	src      io.Closer
	closed   bool
}

// NewLowFootprintParser prepares a parse session. Unsupported configuration
// (linked workbooks, metadata filters) is warned about once here and then
// ignored.
func NewLowFootprintParser(cfg *ReadConfiguration) *LowFootprintParser {
	if cfg == nil {
		cfg = &ReadConfiguration{}
	}
	log := cfg.logger()

	if cfg.ReadLinkedWorkbooks || cfg.IgnoreMissingLinkedWorkbooks {
		log.Warn("linked workbooks are not supported in low footprint parsing mode")
	}
	if len(cfg.MetaDataFilter) > 0 {
		log.Warn("metadata filtering is not supported in low footprint parsing mode")
	}

	return &LowFootprintParser{
		cfg:    cfg,
		log:    log,
		format: FormatUnsupported,
	}
}

// Parse classifies and fully drains the given byte source. After a
// successful Parse the rows are available through GetNext. The source is
// remembered for Close when it is an io.Closer.
func (p *LowFootprintParser) Parse(in io.Reader) error {
	if c, ok := in.(io.Closer); ok {
		p.src = c
	}
	p.registry = NewSheetRegistry(p.log)
	p.catalog = NewFormatCatalog()
	p.format = FormatUnsupported

	br := bufio.NewReader(in)
	head, err := br.Peek(peekSize)
	if err != nil && len(head) < len(zipSignature) {
		return notUnderstood("could not read container signature", err)
	}

	switch {
	case hasOLE2Header(head):
		p.log.Info("low footprint parsing of legacy binary workbook")
		p.format = FormatOldExcel
		err = p.parseBinary(br)
	case hasZipHeader(head):
		p.log.Info("low footprint parsing of zipped-XML workbook")
		p.format = FormatOOXML
		err = p.parseOOXML(br)
	default:
		return notUnderstoodf("could not detect a spreadsheet container signature")
	}
	if err != nil {
		if errors.Is(err, ErrFormatNotUnderstood) {
			return err
		}
		return notUnderstood("parse failed", err)
	}

	p.it = NewRowIterator(p.registry)
	return nil
}

// parseBinary locates the embedded workbook stream inside the compound
// document and runs the record dispatch loop over it.
func (p *LowFootprintParser) parseBinary(r io.Reader) error {
	container, err := io.ReadAll(r)
	if err != nil {
		return notUnderstood("could not read container", err)
	}

	doc, err := mscfb.New(bytes.NewReader(container))
	if err != nil {
		return notUnderstood("could not open compound document", err)
	}

	var workbook []byte
	for {
		entry, err := doc.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return notUnderstood("could not walk compound document", err)
		}
		if entry.Name == "Workbook" || entry.Name == "Book" {
			workbook, err = io.ReadAll(entry)
			if err != nil {
				return notUnderstood("could not read workbook stream", err)
			}
			break
		}
	}
	if workbook == nil {
		return notUnderstoodf("no workbook stream in compound document")
	}

	return p.parseWorkbookStream(workbook)
}

// parseWorkbookStream drains the structural record stream through the
// reconstruction engine. Decryption key state is cleared on every exit path.
func (p *LowFootprintParser) parseWorkbookStream(mem []byte) error {
	reader := newRecordReader(mem, p.cfg.Password, p.log)
	defer reader.clear()

	engine := NewCellReconstructionEngine(p.cfg, p.registry, p.catalog)
	for {
		raw, err := reader.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return notUnderstood("could not decode workbook stream", err)
		}
		engine.ProcessRaw(raw)
	}
	engine.Finish()
	return nil
}

// GetNext returns the next row's cell slice in sheet-discovery then
// row-number order. ok is false once all included sheets are drained; that
// is the end signal, not an error. Unresolved slots are nil (blank cells).
func (p *LowFootprintParser) GetNext() ([]*Cell, bool) {
	if p.it == nil {
		return nil, false
	}
	return p.it.Next()
}

// GetCurrentSheetName reports the sheet currently being drained, falling
// back to the last known sheet after exhaustion.
func (p *LowFootprintParser) GetCurrentSheetName() string {
	if p.it == nil {
		return ""
	}
	return p.it.CurrentSheetName()
}

// GetCurrentRow reports the row cursor within the current sheet.
func (p *LowFootprintParser) GetCurrentRow() int64 {
	if p.it == nil {
		return 0
	}
	return int64(p.it.CurrentRow())
}

// GetFormat reports the container classification set by Parse.
func (p *LowFootprintParser) GetFormat() Format {
	return p.format
}

// GetFiltered reports whether the parser filters its output; the low
// footprint parser always emits only resolved rows.
func (p *LowFootprintParser) GetFiltered() bool {
	return true
}

// AddLinkedWorkbook always fails: linked workbooks are not supported in low
// footprint mode.
func (p *LowFootprintParser) AddLinkedWorkbook(name string, in io.Reader, password string) error {
	return notUnderstoodf("linked workbooks are not supported in low footprint mode")
}

// GetLinkedWorkbooks returns the (always empty) list of linked workbooks.
func (p *LowFootprintParser) GetLinkedWorkbooks() []string {
	return nil
}

// Close releases the underlying source. Idempotent: safe to call at any
// point, repeatedly.
func (p *LowFootprintParser) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	if p.src != nil {
		if err := p.src.Close(); err != nil {
			return notUnderstood("error closing input", err)
		}
	}
	return nil
}
