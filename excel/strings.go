package excel

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"
)

// charmapFromCodepage maps the CODEPAGE record value to a byte-string
// decoder for pre-BIFF8 strings. Codepage 1200 (UTF-16LE) is handled
// separately by the unicode string routines.
var charmapFromCodepage = map[int]*charmap.Charmap{
	437:   charmap.CodePage437,
	850:   charmap.CodePage850,
	852:   charmap.CodePage852,
	866:   charmap.CodePage866,
	874:   charmap.Windows874,
	1250:  charmap.Windows1250,
	1251:  charmap.Windows1251,
	1252:  charmap.Windows1252,
	1253:  charmap.Windows1253,
	1254:  charmap.Windows1254,
	1255:  charmap.Windows1255,
	1256:  charmap.Windows1256,
	1257:  charmap.Windows1257,
	1258:  charmap.Windows1258,
	10000: charmap.Macintosh,
	32768: charmap.Macintosh,
	32769: charmap.Windows1252,
}

// stringDecoder decodes BIFF string payloads. The BIFF version selects
// between byte strings (pre-BIFF8) and unicode strings (BIFF8); the codepage
// selects the charmap for byte strings.
type stringDecoder struct {
	biffVersion int
	codepage    int
}

func newStringDecoder() *stringDecoder {
	return &stringDecoder{biffVersion: biffVersionBIFF8}
}

func (d *stringDecoder) decodeBytes(raw []byte) string {
	cm, ok := charmapFromCodepage[d.codepage]
	if !ok {
		cm = charmap.ISO8859_1
	}
	decoded, err := cm.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}

// unpackString reads a length-prefixed byte string. lenlen is the width of
// the length prefix (1 or 2 bytes).
func (d *stringDecoder) unpackString(data []byte, pos, lenlen int) (string, error) {
	if pos+lenlen > len(data) {
		return "", fmt.Errorf("insufficient data for string length")
	}

	var nchars int
	if lenlen == 1 {
		nchars = int(data[pos])
	} else {
		nchars = int(binary.LittleEndian.Uint16(data[pos : pos+2]))
	}
	pos += lenlen

	if pos+nchars > len(data) {
		return "", fmt.Errorf("insufficient data for string")
	}
	return d.decodeBytes(data[pos : pos+nchars]), nil
}

// unpackUnicode reads a BIFF8 unicode string: a length prefix of lenlen
// bytes, an options byte, optional richtext/phonetic headers, then the
// character data as UTF-16LE or compressed Latin-1.
func unpackUnicode(data []byte, pos, lenlen int) (string, error) {
	if pos+lenlen > len(data) {
		return "", fmt.Errorf("insufficient data for unicode length")
	}

	var nchars int
	if lenlen == 1 {
		nchars = int(data[pos])
	} else {
		nchars = int(binary.LittleEndian.Uint16(data[pos : pos+2]))
	}
	pos += lenlen

	if nchars == 0 {
		return "", nil
	}

	if pos >= len(data) {
		return "", fmt.Errorf("insufficient data for unicode options")
	}
	options := data[pos]
	pos++

	if options&0x08 != 0 {
		// richtext run count
		if pos+2 > len(data) {
			return "", fmt.Errorf("insufficient data for richtext")
		}
		pos += 2
	}
	if options&0x04 != 0 {
		// phonetic block size
		if pos+4 > len(data) {
			return "", fmt.Errorf("insufficient data for phonetic")
		}
		pos += 4
	}

	if options&0x01 != 0 {
		if pos+2*nchars > len(data) {
			return "", fmt.Errorf("insufficient data for UTF-16 string")
		}
		return decodeUTF16LE(data[pos : pos+2*nchars]), nil
	}

	if pos+nchars > len(data) {
		return "", fmt.Errorf("insufficient data for compressed string")
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data[pos : pos+nchars])
	if err != nil {
		return string(data[pos : pos+nchars]), nil
	}
	return string(decoded), nil
}

func decodeUTF16LE(raw []byte) string {
	words := make([]uint16, len(raw)/2)
	for i := range words {
		words[i] = binary.LittleEndian.Uint16(raw[i*2 : (i+1)*2])
	}
	return string(utf16.Decode(words))
}
