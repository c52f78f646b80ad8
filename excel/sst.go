package excel

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"
)

// fragReader reads across the fragments of a record that was split over
// CONTINUE records. Scalar fields may cross a fragment boundary unchanged;
// character data restarts with a fresh option byte in each new fragment.
type fragReader struct {
	frags [][]byte
	idx   int
	pos   int
}

func (r *fragReader) readByte() (byte, error) {
	for r.idx < len(r.frags) && r.pos >= len(r.frags[r.idx]) {
		r.idx++
		r.pos = 0
	}
	if r.idx >= len(r.frags) {
		return 0, fmt.Errorf("unexpected end of record")
	}
	b := r.frags[r.idx][r.pos]
	r.pos++
	return b, nil
}

func (r *fragReader) readU16() (uint16, error) {
	lo, err := r.readByte()
	if err != nil {
		return 0, err
	}
	hi, err := r.readByte()
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16([]byte{lo, hi}), nil
}

func (r *fragReader) readU32() (uint32, error) {
	lo, err := r.readU16()
	if err != nil {
		return 0, err
	}
	hi, err := r.readU16()
	if err != nil {
		return 0, err
	}
	return uint32(lo) | uint32(hi)<<16, nil
}

func (r *fragReader) skip(n int) error {
	for n > 0 {
		for r.idx < len(r.frags) && r.pos >= len(r.frags[r.idx]) {
			r.idx++
			r.pos = 0
		}
		if r.idx >= len(r.frags) {
			return fmt.Errorf("unexpected end of record")
		}
		avail := len(r.frags[r.idx]) - r.pos
		if avail > n {
			avail = n
		}
		r.pos += avail
		n -= avail
	}
	return nil
}

// readChars reads nchars characters of string data. When the data runs into
// the next fragment, the continuation begins with a new option byte whose
// low bit re-states whether the remaining characters are UTF-16 or
// compressed Latin-1.
func (r *fragReader) readChars(nchars int, wide bool) (string, error) {
	words := make([]uint16, 0, nchars)
	for nchars > 0 {
		for r.idx < len(r.frags) && r.pos >= len(r.frags[r.idx]) {
			r.idx++
			r.pos = 0
			grbit, err := r.readByte()
			if err != nil {
				return "", err
			}
			wide = grbit&0x01 != 0
		}
		if r.idx >= len(r.frags) {
			return "", fmt.Errorf("unexpected end of string data")
		}

		frag := r.frags[r.idx]
		avail := len(frag) - r.pos
		width := 1
		if wide {
			width = 2
		}
		take := avail / width
		if take > nchars {
			take = nchars
		}
		if take == 0 {
			return "", fmt.Errorf("truncated character in string data")
		}

		if wide {
			for i := 0; i < take; i++ {
				words = append(words, binary.LittleEndian.Uint16(frag[r.pos:r.pos+2]))
				r.pos += 2
			}
		} else {
			for i := 0; i < take; i++ {
				words = append(words, uint16(frag[r.pos]))
				r.pos++
			}
		}
		nchars -= take
	}
	return string(utf16.Decode(words)), nil
}

// decodeSST parses a shared string table, including tables spanning CONTINUE
// records. A truncated table yields the strings read so far; index validation
// against numUnique happens at lookup time.
func decodeSST(frags [][]byte) (record, error) {
	r := &fragReader{frags: frags}

	// Total reference count is not needed for reconstruction.
	if _, err := r.readU32(); err != nil {
		return nil, err
	}
	numUnique, err := r.readU32()
	if err != nil {
		return nil, err
	}

	strs := make([]string, 0, numUnique)
	for i := uint32(0); i < numUnique; i++ {
		s, err := readSSTString(r)
		if err != nil {
			break
		}
		strs = append(strs, s)
	}
	return sstRecord{numUnique: int(numUnique), strings: strs}, nil
}

func readSSTString(r *fragReader) (string, error) {
	nchars, err := r.readU16()
	if err != nil {
		return "", err
	}
	options, err := r.readByte()
	if err != nil {
		return "", err
	}

	wide := options&0x01 != 0
	rich := options&0x08 != 0
	phonetic := options&0x04 != 0

	var nruns uint16
	var extSize uint32
	if rich {
		if nruns, err = r.readU16(); err != nil {
			return "", err
		}
	}
	if phonetic {
		if extSize, err = r.readU32(); err != nil {
			return "", err
		}
	}

	s, err := r.readChars(int(nchars), wide)
	if err != nil {
		return "", err
	}

	if rich {
		if err := r.skip(int(nruns) * 4); err != nil {
			return "", err
		}
	}
	if phonetic {
		if err := r.skip(int(extSize)); err != nil {
			return "", err
		}
	}
	return s, nil
}
