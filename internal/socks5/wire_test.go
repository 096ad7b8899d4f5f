package socks5

import (
	"bytes"
	"io"
	"testing"
)

func TestReadExact_Success(t *testing.T) {
	r := bytes.NewReader([]byte{1, 2, 3, 4})
	buf := make([]byte, 4)
	if err := readExact(r, buf); err != nil {
		t.Fatalf("readExact() error = %v", err)
	}
	if !bytes.Equal(buf, []byte{1, 2, 3, 4}) {
		t.Errorf("buf = %v, want [1 2 3 4]", buf)
	}
}

func TestReadExact_ShortRead(t *testing.T) {
	r := bytes.NewReader([]byte{1, 2})
	buf := make([]byte, 4)
	err := readExact(r, buf)
	if err == nil {
		t.Fatal("expected error on short read, got nil")
	}
	if err != io.ErrUnexpectedEOF {
		t.Errorf("err = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestReadExactN(t *testing.T) {
	r := bytes.NewReader([]byte{0xAA, 0xBB, 0xCC})
	buf, err := readExactN(r, 3)
	if err != nil {
		t.Fatalf("readExactN() error = %v", err)
	}
	if !bytes.Equal(buf, []byte{0xAA, 0xBB, 0xCC}) {
		t.Errorf("buf = %v, want [AA BB CC]", buf)
	}
}

func TestReadExactN_Zero(t *testing.T) {
	buf, err := readExactN(bytes.NewReader(nil), 0)
	if err != nil {
		t.Fatalf("readExactN(0) error = %v", err)
	}
	if len(buf) != 0 {
		t.Errorf("len(buf) = %d, want 0", len(buf))
	}
}

func TestReadExactN_EOF(t *testing.T) {
	_, err := readExactN(bytes.NewReader(nil), 1)
	if err == nil {
		t.Fatal("expected error reading from empty reader, got nil")
	}
}
