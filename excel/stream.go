package excel

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
)

// rawRecord is one structural record as read from the workbook stream. A
// record split over CONTINUE records keeps one fragment per piece; only the
// shared string table cares about the boundaries.
type rawRecord struct {
	sid   recordType
	frags [][]byte
}

func (r rawRecord) data() []byte {
	if len(r.frags) == 1 {
		return r.frags[0]
	}
	n := 0
	for _, f := range r.frags {
		n += len(f)
	}
	out := make([]byte, 0, n)
	for _, f := range r.frags {
		out = append(out, f...)
	}
	return out
}

// recordReader walks the workbook stream record by record, transparently
// merging CONTINUE records and, after a FILEPASS record has been handled,
// decrypting record payloads. Record headers are stored in plaintext but
// still advance the RC4 keystream.
type recordReader struct {
	mem      []byte
	pos      int
	password string
	dec      *biff8Decryptor
	log      *slog.Logger
}

func newRecordReader(mem []byte, password string, log *slog.Logger) *recordReader {
	return &recordReader{mem: mem, password: password, log: log}
}

// payloadNeverEncrypted lists the records whose payload stays plaintext in
// an encrypted stream. The keystream still advances over them.
func payloadNeverEncrypted(sid recordType) bool {
	switch sid {
	case recBOF, recFilePass, recInterfaceHdr:
		return true
	}
	return false
}

// next returns the next structural record, or io.EOF at the end of the
// stream. FILEPASS records are consumed internally: they switch the reader
// into decrypting mode and are never surfaced.
func (r *recordReader) next() (rawRecord, error) {
	for {
		raw, err := r.readOne()
		if err != nil {
			return rawRecord{}, err
		}
		if raw.sid == recFilePass {
			if err := r.handleFilePass(raw.data()); err != nil {
				return rawRecord{}, err
			}
			continue
		}
		return raw, nil
	}
}

func (r *recordReader) readOne() (rawRecord, error) {
	sid, body, err := r.readRecord()
	if err != nil {
		return rawRecord{}, err
	}

	raw := rawRecord{sid: sid, frags: [][]byte{body}}
	for r.peekSid() == recContinue {
		_, cont, err := r.readRecord()
		if err != nil {
			return raw, nil
		}
		raw.frags = append(raw.frags, cont)
	}
	return raw, nil
}

func (r *recordReader) peekSid() recordType {
	if r.pos+4 > len(r.mem) {
		return recordType(0xFFFF)
	}
	return recordType(binary.LittleEndian.Uint16(r.mem[r.pos : r.pos+2]))
}

func (r *recordReader) readRecord() (recordType, []byte, error) {
	if r.pos+4 > len(r.mem) {
		return 0, nil, io.EOF
	}
	sid := recordType(binary.LittleEndian.Uint16(r.mem[r.pos : r.pos+2]))
	length := int(binary.LittleEndian.Uint16(r.mem[r.pos+2 : r.pos+4]))
	r.pos += 4
	if r.dec != nil {
		r.dec.discard(4)
	}

	if r.pos+length > len(r.mem) {
		r.log.Warn("truncated record at end of workbook stream",
			"sid", fmt.Sprintf("0x%04x", uint16(sid)), "declared", length, "available", len(r.mem)-r.pos)
		r.pos = len(r.mem)
		return 0, nil, io.EOF
	}

	body := make([]byte, length)
	copy(body, r.mem[r.pos:r.pos+length])
	r.pos += length

	if r.dec != nil {
		if payloadNeverEncrypted(sid) {
			r.dec.discard(length)
		} else {
			r.dec.decrypt(body)
		}
	}
	return sid, body, nil
}

// handleFilePass sets up decryption for the remainder of the stream. Only
// the BIFF8 standard 40-bit RC4 scheme is supported; XOR obfuscation and
// CryptoAPI encryption are rejected.
func (r *recordReader) handleFilePass(data []byte) error {
	if r.password == "" {
		return fmt.Errorf("workbook is encrypted and no password was supplied")
	}
	if len(data) < 6 {
		return fmt.Errorf("FILEPASS record too short: %d bytes", len(data))
	}

	encType := binary.LittleEndian.Uint16(data[0:2])
	if encType != 1 {
		return fmt.Errorf("unsupported encryption type %d (only RC4 is supported)", encType)
	}
	vMajor := binary.LittleEndian.Uint16(data[2:4])
	if vMajor != 1 {
		return fmt.Errorf("unsupported RC4 encryption version %d (only the 40-bit scheme is supported)", vMajor)
	}
	if len(data) < 6+48 {
		return fmt.Errorf("FILEPASS RC4 header too short: %d bytes", len(data))
	}

	salt := data[6:22]
	encVerifier := data[22:38]
	encVerifierHash := data[38:54]

	dec, err := newBiff8Decryptor(r.password, salt, encVerifier, encVerifierHash)
	if err != nil {
		return err
	}

	// The keystream is counted from stream offset zero; catch up over
	// everything already consumed, the FILEPASS record included.
	dec.discard(r.pos)
	r.dec = dec
	r.log.Debug("workbook stream decryption enabled")
	return nil
}

// clear wipes any decryption key state. Safe to call repeatedly.
func (r *recordReader) clear() {
	if r.dec != nil {
		r.dec.clear()
		r.dec = nil
	}
	r.password = ""
}
