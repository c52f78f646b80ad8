package excel

import (
	"bytes"
	"crypto/md5"
	"crypto/rc4"
	"encoding/binary"
	"testing"
)

// buildFilePassFields produces the salt/verifier pair of a FILEPASS record
// for a given password, mirroring the writer side of the 40-bit scheme.
func buildFilePassFields(password string, salt, verifier []byte) (encVerifier, encVerifierHash []byte) {
	keyMaterial := deriveKeyMaterial(password, salt)

	buf := make([]byte, 9)
	copy(buf, keyMaterial)
	binary.LittleEndian.PutUint32(buf[5:], 0)
	key := md5.Sum(buf)

	c, _ := rc4.NewCipher(key[:])
	encVerifier = make([]byte, 16)
	encVerifierHash = make([]byte, 16)
	sum := md5.Sum(verifier)
	c.XORKeyStream(encVerifier, verifier)
	c.XORKeyStream(encVerifierHash, sum[:])
	return encVerifier, encVerifierHash
}

func TestDecryptorPasswordVerification(t *testing.T) {
	salt := []byte("0123456789abcdef")
	verifier := []byte("fedcba9876543210")
	encVerifier, encVerifierHash := buildFilePassFields("secret", salt, verifier)

	if _, err := newBiff8Decryptor("secret", salt, encVerifier, encVerifierHash); err != nil {
		t.Errorf("correct password rejected: %v", err)
	}
	if _, err := newBiff8Decryptor("wrong", salt, encVerifier, encVerifierHash); err == nil {
		t.Error("wrong password accepted")
	}
}

func TestDecryptorFieldSizeValidation(t *testing.T) {
	if _, err := newBiff8Decryptor("pw", []byte("short"), make([]byte, 16), make([]byte, 16)); err == nil {
		t.Error("short salt accepted")
	}
}

// Decryption must rekey at each 1024-byte stream boundary, including when a
// payload straddles one, and discarded plaintext bytes must advance the
// keystream.
func TestDecryptorRekeyAcrossBlockBoundary(t *testing.T) {
	salt := []byte("0123456789abcdef")
	verifier := []byte("fedcba9876543210")
	encVerifier, encVerifierHash := buildFilePassFields("pw", salt, verifier)

	dec, err := newBiff8Decryptor("pw", salt, encVerifier, encVerifierHash)
	if err != nil {
		t.Fatalf("newBiff8Decryptor returned error: %v", err)
	}

	// Reproduce the keystream of blocks 0 and 1 on the writer side.
	keystream := func(block int) []byte {
		buf := make([]byte, 9)
		copy(buf, dec.keyMaterial)
		binary.LittleEndian.PutUint32(buf[5:], uint32(block))
		key := md5.Sum(buf)
		c, _ := rc4.NewCipher(key[:])
		ks := make([]byte, rc4BlockSize)
		c.XORKeyStream(ks, ks)
		return ks
	}
	ks0 := keystream(0)
	ks1 := keystream(1)

	plaintext := []byte("secretmsg!")
	ciphertext := make([]byte, len(plaintext))
	for i := range plaintext {
		streamPos := 1020 + i
		if streamPos < rc4BlockSize {
			ciphertext[i] = plaintext[i] ^ ks0[streamPos]
		} else {
			ciphertext[i] = plaintext[i] ^ ks1[streamPos-rc4BlockSize]
		}
	}

	dec.discard(1020)
	got := make([]byte, len(ciphertext))
	copy(got, ciphertext)
	dec.decrypt(got)

	if !bytes.Equal(got, plaintext) {
		t.Errorf("decrypt = %q, expected %q", got, plaintext)
	}
}

func TestDecryptorClearWipesKey(t *testing.T) {
	salt := []byte("0123456789abcdef")
	verifier := []byte("fedcba9876543210")
	encVerifier, encVerifierHash := buildFilePassFields("pw", salt, verifier)

	dec, err := newBiff8Decryptor("pw", salt, encVerifier, encVerifierHash)
	if err != nil {
		t.Fatalf("newBiff8Decryptor returned error: %v", err)
	}

	dec.clear()
	for _, b := range dec.keyMaterial {
		if b != 0 {
			t.Fatal("key material not zeroed after clear")
		}
	}
}

// An encrypted workbook stream parses end to end: plaintext headers and
// exempt payloads advance the keystream while everything else is decrypted.
func TestEncryptedWorkbookStream(t *testing.T) {
	password := "open sesame"
	salt := []byte("0123456789abcdef")
	verifier := []byte("fedcba9876543210")
	encVerifier, encVerifierHash := buildFilePassFields(password, salt, verifier)

	filePass := cat(le16(1), le16(1), le16(1), salt, encVerifier, encVerifierHash)
	plain := cat(
		bofGlobals(),
		biffRec(recFilePass, filePass),
		biffRec(recXF, cat(le16(0), le16(0), le16(0))),
		boundSheet("Secret"),
		bofSheet(), // BOF payload stays plaintext even mid-stream
		rowRec(0, 1),
		biffRec(recNumber, cat(le16(0), le16(0), le16(0), lef64(7))),
		biffRec(recEOF, nil),
	)

	// Encrypt on the writer side with the same keystream accounting the
	// reader uses: headers and exempt payloads advance but stay plaintext.
	keyMaterial := deriveKeyMaterial(password, salt)
	blockKey := func(block int) *rc4.Cipher {
		buf := make([]byte, 9)
		copy(buf, keyMaterial)
		binary.LittleEndian.PutUint32(buf[5:], uint32(block))
		key := md5.Sum(buf)
		c, _ := rc4.NewCipher(key[:])
		return c
	}

	mem := make([]byte, len(plain))
	copy(mem, plain)
	ks := blockKey(0)
	pos := 0
	for pos+4 <= len(plain) {
		sid := recordType(binary.LittleEndian.Uint16(plain[pos : pos+2]))
		length := int(binary.LittleEndian.Uint16(plain[pos+2 : pos+4]))
		advance := func(span []byte, encrypt bool) {
			scratch := make([]byte, 1)
			for i := range span {
				if encrypt {
					ks.XORKeyStream(mem[pos+i:pos+i+1], span[i:i+1])
				} else {
					ks.XORKeyStream(scratch, scratch)
				}
			}
			pos += len(span)
			// rekey boundary cannot occur in this short fixture
		}
		advance(plain[pos:pos+4], false)
		advance(plain[pos:pos+length], !payloadNeverEncrypted(sid))
	}

	cfg := &ReadConfiguration{Password: password}
	rows, names := parseStream(t, cfg, mem)
	if len(rows) != 1 || rows[0][0] != "7" {
		t.Fatalf("rows = %v, expected one row [7]", rows)
	}
	if names[0] != "Secret" {
		t.Errorf("sheet = %q, expected %q", names[0], "Secret")
	}
}
