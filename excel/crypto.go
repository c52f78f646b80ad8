package excel

import (
	"bytes"
	"crypto/md5"
	"crypto/rc4"
	"encoding/binary"
	"fmt"
	"unicode/utf16"
)

// rc4BlockSize is the rekeying interval of the BIFF8 RC4 scheme: the cipher
// is rekeyed at every 1024-byte boundary of the workbook stream, counted
// from stream offset zero. Unencrypted bytes (record headers, the payloads
// of a few exempt records) still advance the keystream.
const rc4BlockSize = 1024

// biff8Decryptor decrypts a workbook stream encrypted with the BIFF8
// standard 40-bit RC4 scheme.
type biff8Decryptor struct {
	keyMaterial []byte // 5-byte truncated key hash
	cipher      *rc4.Cipher
	pos         int // absolute position in the workbook stream
	scratch     []byte
}

// newBiff8Decryptor derives the key material from the password and the salt
// of a FILEPASS record and verifies the password against the encrypted
// verifier pair. A verification mismatch means a wrong password.
func newBiff8Decryptor(password string, salt, encVerifier, encVerifierHash []byte) (*biff8Decryptor, error) {
	if len(salt) != 16 || len(encVerifier) != 16 || len(encVerifierHash) != 16 {
		return nil, fmt.Errorf("invalid FILEPASS header field sizes")
	}

	d := &biff8Decryptor{
		keyMaterial: deriveKeyMaterial(password, salt),
		scratch:     make([]byte, 512),
	}
	d.rekey(0)

	verifier := make([]byte, 16)
	verifierHash := make([]byte, 16)
	d.cipher.XORKeyStream(verifier, encVerifier)
	d.cipher.XORKeyStream(verifierHash, encVerifierHash)

	sum := md5.Sum(verifier)
	if !bytes.Equal(sum[:], verifierHash) {
		d.clear()
		return nil, fmt.Errorf("password verification failed")
	}

	d.rekey(0)
	return d, nil
}

// deriveKeyMaterial computes the 5-byte truncated key hash: the MD5 of the
// UTF-16LE password is truncated to 5 bytes, concatenated with the salt,
// repeated 16 times and hashed again.
func deriveKeyMaterial(password string, salt []byte) []byte {
	words := utf16.Encode([]rune(password))
	raw := make([]byte, len(words)*2)
	for i, w := range words {
		binary.LittleEndian.PutUint16(raw[i*2:], w)
	}
	pwHash := md5.Sum(raw)

	buf := make([]byte, 0, 16*(5+len(salt)))
	for i := 0; i < 16; i++ {
		buf = append(buf, pwHash[:5]...)
		buf = append(buf, salt...)
	}
	full := md5.Sum(buf)
	return full[:5]
}

// rekey rebuilds the RC4 cipher for the given 1024-byte block.
func (d *biff8Decryptor) rekey(block int) {
	buf := make([]byte, 9)
	copy(buf, d.keyMaterial)
	binary.LittleEndian.PutUint32(buf[5:], uint32(block))
	key := md5.Sum(buf)

	c, err := rc4.NewCipher(key[:])
	if err != nil {
		// A 16-byte key is always valid for RC4.
		panic(err)
	}
	d.cipher = c
}

// discard advances the keystream without producing output. The stream is
// decrypted strictly forwards, so catching up over unencrypted bytes is the
// only repositioning ever needed.
func (d *biff8Decryptor) discard(n int) {
	for n > 0 {
		if d.pos%rc4BlockSize == 0 && d.pos > 0 {
			d.rekey(d.pos / rc4BlockSize)
		}
		run := rc4BlockSize - d.pos%rc4BlockSize
		if run > n {
			run = n
		}
		for run > 0 {
			chunk := run
			if chunk > len(d.scratch) {
				chunk = len(d.scratch)
			}
			d.cipher.XORKeyStream(d.scratch[:chunk], d.scratch[:chunk])
			d.pos += chunk
			run -= chunk
			n -= chunk
		}
	}
}

// decrypt XORs data in place with the keystream at the current position.
func (d *biff8Decryptor) decrypt(data []byte) {
	for len(data) > 0 {
		if d.pos%rc4BlockSize == 0 && d.pos > 0 {
			d.rekey(d.pos / rc4BlockSize)
		}
		run := rc4BlockSize - d.pos%rc4BlockSize
		if run > len(data) {
			run = len(data)
		}
		d.cipher.XORKeyStream(data[:run], data[:run])
		d.pos += run
		data = data[run:]
	}
}

// clear wipes the key material. Called on every parse exit path.
func (d *biff8Decryptor) clear() {
	for i := range d.keyMaterial {
		d.keyMaterial[i] = 0
	}
	d.cipher = nil
}
