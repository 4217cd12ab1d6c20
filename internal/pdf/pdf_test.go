package pdf

import (
	"bytes"
	"testing"
)

func TestIsPDF(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want bool
	}{
		{"valid", []byte("%PDF-1.4\nsome body\n%%EOF"), true},
		{"eof with trailing newline", []byte("%PDF-1.7 body %%EOF\n"), true},
		{"too short", []byte("%PDF-"), false},
		{"empty", nil, false},
		{"wrong magic", []byte("PK\x03\x04 definitely a zip %%EOF"), false},
		{"missing eof marker", []byte("%PDF-1.4\ntruncated upload"), false},
		{"renamed png", append([]byte{0x89, 'P', 'N', 'G'}, []byte(" image data %%EOF")...), false},
	}
	for _, tc := range cases {
		if got := IsPDF(tc.data); got != tc.want {
			t.Errorf("%s: IsPDF = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestIsPDFChecksOnlyTail(t *testing.T) {
	// %%EOF buried more than 1KB from the end does not count.
	body := append([]byte("%PDF-1.4\n%%EOF\n"), bytes.Repeat([]byte("x"), 2048)...)
	if IsPDF(body) {
		t.Fatal("EOF marker outside the tail window should not validate")
	}
}

func TestExtractTextRejectsGarbage(t *testing.T) {
	// Passes the magic check but is not parseable.
	data := []byte("%PDF-1.4\nnot really a pdf at all\n%%EOF")
	if _, err := ExtractText(data); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestReaderImplementsBothMethods(t *testing.T) {
	r := Reader{}
	if !r.IsPDF([]byte("%PDF-1.4 body %%EOF")) {
		t.Fatal("Reader.IsPDF should delegate to IsPDF")
	}
	if _, err := r.ExtractText([]byte("%PDF- junk %%EOF")); err == nil {
		t.Fatal("Reader.ExtractText should surface parse errors")
	}
}
