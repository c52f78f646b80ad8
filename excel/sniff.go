package excel

import "bytes"

// ole2Signature is the magic cookie in the first 8 bytes of a legacy binary
// compound document.
var ole2Signature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// zipSignature is the magic cookie of a zipped-XML package.
var zipSignature = []byte("PK\x03\x04")

// peekSize is how many leading bytes classification needs.
const peekSize = 8

func hasOLE2Header(head []byte) bool {
	return bytes.HasPrefix(head, ole2Signature)
}

func hasZipHeader(head []byte) bool {
	return bytes.HasPrefix(head, zipSignature)
}
