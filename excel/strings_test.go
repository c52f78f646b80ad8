package excel

import "testing"

func TestUnpackStringCodepage(t *testing.T) {
	tests := []struct {
		name     string
		codepage int
		raw      byte
		expected string
	}{
		{"windows-1252", 1252, 0xE9, "é"},
		{"windows-1251", 1251, 0xC0, "А"},
		{"fallback to latin-1", 0, 0xE9, "é"},
	}

	for _, test := range tests {
		d := &stringDecoder{biffVersion: 50, codepage: test.codepage}
		s, err := d.unpackString([]byte{0x01, test.raw}, 0, 1)
		if err != nil {
			t.Errorf("%s: unpackString returned error: %v", test.name, err)
			continue
		}
		if s != test.expected {
			t.Errorf("%s: unpackString = %q, expected %q", test.name, s, test.expected)
		}
	}
}

func TestUnpackStringTruncated(t *testing.T) {
	d := newStringDecoder()
	if _, err := d.unpackString([]byte{0x05, 'a'}, 0, 1); err == nil {
		t.Error("expected error for truncated byte string")
	}
	if _, err := unpackUnicode([]byte{0x05, 0x00, 0x01, 'a', 0}, 0, 2); err == nil {
		t.Error("expected error for truncated unicode string")
	}
}

func TestUnpackUnicodeRichtextSkipped(t *testing.T) {
	payload := cat(le16(2), []byte{0x08}, le16(1), []byte("ok"))
	s, err := unpackUnicode(payload, 0, 2)
	if err != nil {
		t.Fatalf("unpackUnicode returned error: %v", err)
	}
	if s != "ok" {
		t.Errorf("unpackUnicode = %q, expected %q", s, "ok")
	}
}
