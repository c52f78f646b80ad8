package excel

import (
	"io"

	"github.com/xuri/excelize/v2"
)

// parseOOXML handles the zipped-XML container. The structural decoding is a
// plain tag walk done by excelize's streaming row reader; the results feed
// the same sheet caches as the binary path so the pull protocol behaves
// identically for both container kinds.
func (p *LowFootprintParser) parseOOXML(r io.Reader) error {
	f, err := excelize.OpenReader(r, excelize.Options{Password: p.cfg.Password})
	if err != nil {
		return notUnderstood("could not open zipped-XML workbook", err)
	}
	defer f.Close()

	names := f.GetSheetList()
	for _, name := range names {
		p.registry.AddSheet(name, p.cfg.sheetIncluded(name))
	}

	var prevCells int64
	for i, name := range names {
		p.registry.AdvanceSheet(prevCells)
		prevCells = 0

		desc := p.registry.Descriptor(i)
		if !desc.Included {
			continue
		}

		rows, err := f.Rows(name)
		if err != nil {
			p.log.Error("could not stream sheet rows; sheet left empty", "sheet", name, "err", err)
			continue
		}

		rowx := 0
		for rows.Next() {
			cols, err := rows.Columns()
			if err != nil {
				p.log.Error("unreadable row skipped", "sheet", name, "row", rowx, "err", err)
				continue
			}
			p.registry.AppendRow(len(cols))
			for colx, v := range cols {
				if v == "" {
					continue
				}
				p.registry.Put(rowx, colx, &Cell{
					FormattedValue: v,
					Address:        CellAddressA1(rowx, colx),
					SheetName:      name,
				})
			}
			prevCells += int64(len(cols))
			rowx++
		}
		if err := rows.Close(); err != nil {
			p.log.Warn("error closing sheet row stream", "sheet", name, "err", err)
		}
	}

	if cur := p.registry.Current(); cur != nil {
		cur.CellCount = prevCells
	}
	return nil
}
