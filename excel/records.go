package excel

import (
	"encoding/binary"
	"fmt"
	"math"
)

// recordType is the self-describing tag in front of every structural record
// in the legacy binary stream.
type recordType uint16

// Record tags handled (or explicitly recognized) by the reconstruction
// engine. Values per [MS-XLS] section 2.4.
const (
	recFormula      recordType = 0x0006
	recEOF          recordType = 0x000A
	recCodePage     recordType = 0x0042
	recDateMode     recordType = 0x0022
	recFilePass     recordType = 0x002F
	recContinue     recordType = 0x003C
	recBoundSheet   recordType = 0x0085
	recMulRK        recordType = 0x00BD
	recSST          recordType = 0x00FC
	recLabelSST     recordType = 0x00FD
	recXF           recordType = 0x00E0
	recInterfaceHdr recordType = 0x00E1
	recNumber       recordType = 0x0203
	recLabel        recordType = 0x0204
	recString       recordType = 0x0207
	recRow          recordType = 0x0208
	recRK           recordType = 0x027E
	recFormat       recordType = 0x041E
	recBOF          recordType = 0x0809
)

// BIFF stream types carried in a BOF record.
const (
	bofWorkbookGlobals = 0x0005
	bofWorksheet       = 0x0010
)

const biffVersionBIFF8 = 80

// boundSheetWorksheet is the sheet type for ordinary worksheets in a
// BOUNDSHEET record (charts and VB modules carry other values).
const boundSheetWorksheet = 0x00

// record is the decoded form of one structural record. The engine dispatches
// on the concrete type, one handler per variant.
type record interface {
	recordTag() recordType
}

type bofRecord struct {
	version    int
	streamType int
}

type boundSheetRecord struct {
	name       string
	sheetType  byte
	visibility byte
}

type rowRecord struct {
	row      int
	firstCol int
	lastCol  int // exclusive: the declared column count for the row
}

type numberRecord struct {
	row     int
	col     int
	xfIndex int
	value   float64
}

type rkCell struct {
	col     int
	xfIndex int
	value   float64
}

type mulRKRecord struct {
	row   int
	cells []rkCell
}

type formulaRecord struct {
	row          int
	col          int
	xfIndex      int
	value        float64
	cachedString bool
}

type stringRecord struct {
	value string
}

type labelRecord struct {
	row     int
	col     int
	xfIndex int
	value   string
}

type labelSSTRecord struct {
	row      int
	col      int
	xfIndex  int
	sstIndex int
}

type sstRecord struct {
	numUnique int
	strings   []string
}

type xfRecord struct {
	formatIndex int
}

type formatRecord struct {
	index        int
	formatString string
}

type dateModeRecord struct {
	mode int
}

type codePageRecord struct {
	codepage int
}

type eofRecord struct{}

func (bofRecord) recordTag() recordType        { return recBOF }
func (boundSheetRecord) recordTag() recordType { return recBoundSheet }
func (rowRecord) recordTag() recordType        { return recRow }
func (numberRecord) recordTag() recordType     { return recNumber }
func (mulRKRecord) recordTag() recordType      { return recMulRK }
func (formulaRecord) recordTag() recordType    { return recFormula }
func (stringRecord) recordTag() recordType     { return recString }
func (labelRecord) recordTag() recordType      { return recLabel }
func (labelSSTRecord) recordTag() recordType   { return recLabelSST }
func (sstRecord) recordTag() recordType        { return recSST }
func (xfRecord) recordTag() recordType         { return recXF }
func (formatRecord) recordTag() recordType     { return recFormat }
func (dateModeRecord) recordTag() recordType   { return recDateMode }
func (codePageRecord) recordTag() recordType   { return recCodePage }
func (eofRecord) recordTag() recordType        { return recEOF }

// decodeRecord decodes the payload of one raw record into its typed variant.
// Unknown tags return (nil, nil): they are dispatched but produce nothing.
// Malformed payloads return an error; the caller logs and skips the record
// rather than aborting the stream.
func decodeRecord(raw rawRecord, dec *stringDecoder) (record, error) {
	data := raw.data()
	switch raw.sid {
	case recBOF:
		return decodeBOF(data)
	case recBoundSheet:
		return decodeBoundSheet(data, dec)
	case recRow:
		return decodeRow(data)
	case recNumber:
		return decodeNumber(data)
	case recRK:
		return decodeRK(data)
	case recMulRK:
		return decodeMulRK(data)
	case recFormula:
		return decodeFormula(data)
	case recString:
		return decodeString(data, dec)
	case recLabel:
		return decodeLabel(data, dec)
	case recLabelSST:
		return decodeLabelSST(data)
	case recSST:
		return decodeSST(raw.frags)
	case recXF:
		return decodeXF(data)
	case recFormat:
		return decodeFormat(data, dec)
	case recDateMode:
		return decodeDateMode(data)
	case recCodePage:
		return decodeCodePage(data)
	case recEOF:
		return eofRecord{}, nil
	default:
		return nil, nil
	}
}

func decodeBOF(data []byte) (record, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("BOF record too short: %d bytes", len(data))
	}
	version2 := binary.LittleEndian.Uint16(data[0:2])
	streamType := int(binary.LittleEndian.Uint16(data[2:4]))

	version := 0
	switch version2 {
	case 0x0600:
		version = 80
	case 0x0500:
		version = 50
	}
	return bofRecord{version: version, streamType: streamType}, nil
}

func decodeBoundSheet(data []byte, dec *stringDecoder) (record, error) {
	if len(data) < 7 {
		return nil, fmt.Errorf("BOUNDSHEET record too short: %d bytes", len(data))
	}

	visibility := data[4]
	sheetType := data[5]

	var name string
	var err error
	if dec.biffVersion < biffVersionBIFF8 {
		name, err = dec.unpackString(data, 6, 1)
	} else {
		name, err = unpackUnicode(data, 6, 1)
	}
	if err != nil {
		return nil, err
	}
	return boundSheetRecord{name: name, sheetType: sheetType, visibility: visibility}, nil
}

func decodeRow(data []byte) (record, error) {
	if len(data) < 6 {
		return nil, fmt.Errorf("ROW record too short: %d bytes", len(data))
	}
	return rowRecord{
		row:      int(binary.LittleEndian.Uint16(data[0:2])),
		firstCol: int(binary.LittleEndian.Uint16(data[2:4])),
		lastCol:  int(binary.LittleEndian.Uint16(data[4:6])),
	}, nil
}

func decodeNumber(data []byte) (record, error) {
	if len(data) < 14 {
		return nil, fmt.Errorf("NUMBER record too short: %d bytes", len(data))
	}
	return numberRecord{
		row:     int(binary.LittleEndian.Uint16(data[0:2])),
		col:     int(binary.LittleEndian.Uint16(data[2:4])),
		xfIndex: int(binary.LittleEndian.Uint16(data[4:6])),
		value:   math.Float64frombits(binary.LittleEndian.Uint64(data[6:14])),
	}, nil
}

// decodeRK decodes an RK record into the NUMBER variant; RK is just a
// compressed numeric cell encoding.
func decodeRK(data []byte) (record, error) {
	if len(data) < 10 {
		return nil, fmt.Errorf("RK record too short: %d bytes", len(data))
	}
	return numberRecord{
		row:     int(binary.LittleEndian.Uint16(data[0:2])),
		col:     int(binary.LittleEndian.Uint16(data[2:4])),
		xfIndex: int(binary.LittleEndian.Uint16(data[4:6])),
		value:   rkValue(binary.LittleEndian.Uint32(data[6:10])),
	}, nil
}

func decodeMulRK(data []byte) (record, error) {
	if len(data) < 12 || (len(data)-6)%6 != 0 {
		return nil, fmt.Errorf("MULRK record has invalid length %d", len(data))
	}
	row := int(binary.LittleEndian.Uint16(data[0:2]))
	firstCol := int(binary.LittleEndian.Uint16(data[2:4]))
	n := (len(data) - 6) / 6

	cells := make([]rkCell, 0, n)
	pos := 4
	for i := 0; i < n; i++ {
		cells = append(cells, rkCell{
			col:     firstCol + i,
			xfIndex: int(binary.LittleEndian.Uint16(data[pos : pos+2])),
			value:   rkValue(binary.LittleEndian.Uint32(data[pos+2 : pos+6])),
		})
		pos += 6
	}
	return mulRKRecord{row: row, cells: cells}, nil
}

// rkValue expands the 30-bit RK encoding: bit 0 marks a value scaled by 100,
// bit 1 selects signed integer vs truncated IEEE double.
func rkValue(rk uint32) float64 {
	var v float64
	if rk&0x02 != 0 {
		v = float64(int32(rk) >> 2)
	} else {
		v = math.Float64frombits(uint64(rk&0xFFFFFFFC) << 32)
	}
	if rk&0x01 != 0 {
		v /= 100
	}
	return v
}

func decodeFormula(data []byte) (record, error) {
	if len(data) < 14 {
		return nil, fmt.Errorf("FORMULA record too short: %d bytes", len(data))
	}
	rec := formulaRecord{
		row:     int(binary.LittleEndian.Uint16(data[0:2])),
		col:     int(binary.LittleEndian.Uint16(data[2:4])),
		xfIndex: int(binary.LittleEndian.Uint16(data[4:6])),
	}

	result := data[6:14]
	if result[6] == 0xFF && result[7] == 0xFF {
		// Special cached result: 0 = string (a STRING record follows),
		// 1 = boolean, 2 = error, 3 = empty.
		if result[0] == 0 {
			rec.cachedString = true
			return rec, nil
		}
		return nil, fmt.Errorf("FORMULA cached result type %d not supported", result[0])
	}

	rec.value = math.Float64frombits(binary.LittleEndian.Uint64(result))
	return rec, nil
}

func decodeString(data []byte, dec *stringDecoder) (record, error) {
	var s string
	var err error
	if dec.biffVersion < biffVersionBIFF8 {
		s, err = dec.unpackString(data, 0, 2)
	} else {
		s, err = unpackUnicode(data, 0, 2)
	}
	if err != nil {
		return nil, err
	}
	return stringRecord{value: s}, nil
}

func decodeLabel(data []byte, dec *stringDecoder) (record, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("LABEL record too short: %d bytes", len(data))
	}
	rec := labelRecord{
		row:     int(binary.LittleEndian.Uint16(data[0:2])),
		col:     int(binary.LittleEndian.Uint16(data[2:4])),
		xfIndex: int(binary.LittleEndian.Uint16(data[4:6])),
	}

	var err error
	if dec.biffVersion < biffVersionBIFF8 {
		rec.value, err = dec.unpackString(data, 6, 2)
	} else {
		rec.value, err = unpackUnicode(data, 6, 2)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func decodeLabelSST(data []byte) (record, error) {
	if len(data) < 10 {
		return nil, fmt.Errorf("LABELSST record too short: %d bytes", len(data))
	}
	return labelSSTRecord{
		row:      int(binary.LittleEndian.Uint16(data[0:2])),
		col:      int(binary.LittleEndian.Uint16(data[2:4])),
		xfIndex:  int(binary.LittleEndian.Uint16(data[4:6])),
		sstIndex: int(int32(binary.LittleEndian.Uint32(data[6:10]))),
	}, nil
}

func decodeXF(data []byte) (record, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("XF record too short: %d bytes", len(data))
	}
	return xfRecord{formatIndex: int(binary.LittleEndian.Uint16(data[2:4]))}, nil
}

func decodeFormat(data []byte, dec *stringDecoder) (record, error) {
	if len(data) < 3 {
		return nil, fmt.Errorf("FORMAT record too short: %d bytes", len(data))
	}
	index := int(binary.LittleEndian.Uint16(data[0:2]))

	var s string
	var err error
	if dec.biffVersion < biffVersionBIFF8 {
		s, err = dec.unpackString(data, 2, 1)
	} else {
		s, err = unpackUnicode(data, 2, 2)
	}
	if err != nil {
		return nil, err
	}
	return formatRecord{index: index, formatString: s}, nil
}

func decodeDateMode(data []byte) (record, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("DATEMODE record too short: %d bytes", len(data))
	}
	mode := int(binary.LittleEndian.Uint16(data[0:2]))
	if mode != 0 && mode != 1 {
		return nil, fmt.Errorf("DATEMODE record has invalid mode %d", mode)
	}
	return dateModeRecord{mode: mode}, nil
}

func decodeCodePage(data []byte) (record, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("CODEPAGE record too short: %d bytes", len(data))
	}
	return codePageRecord{codepage: int(binary.LittleEndian.Uint16(data[0:2]))}, nil
}
