package socks5

import "io"

// readExact reads exactly len(buf) bytes from r, or returns an error if the
// peer closes before the buffer is filled. There is no buffering beyond what
// r itself provides: every protocol field is read with its own call.
func readExact(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	return err
}

// readExactN reads exactly n bytes from r into a freshly allocated slice.
func readExactN(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := readExact(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
