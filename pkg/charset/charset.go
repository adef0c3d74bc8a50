// Package charset decodes geometry and material library text written in
// legacy character sets to UTF-8.
package charset

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Lookup returns the encoding registered under a WHATWG label such as
// "euc-kr", "shift_jis" or "windows-1252". "" and "utf-8" return nil:
// UTF-8 input is passed through untouched, invalid bytes included.
func Lookup(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" || name == "utf-8" || name == "utf8" {
		return nil, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q", name)
	}
	return enc, nil
}

// NewReader wraps r so it yields UTF-8. A leading byte order mark selects
// UTF-8 or UTF-16 and is stripped; otherwise text is decoded from name.
func NewReader(r io.Reader, name string) (io.Reader, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		enc = encoding.Nop
	}
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}
