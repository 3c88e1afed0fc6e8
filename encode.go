package gxterminal

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// decodeHexText parses whitespace-separated runs of hexadecimal digits into
// raw bytes. Every run must have an even number of digits; "41 42", "4142"
// and "41\t0a" are all accepted.
func decodeHexText(text string) ([]byte, error) {
	var out []byte
	for _, token := range strings.Fields(text) {
		if len(token)%2 != 0 {
			return nil, &SessionError{Op: "send", Err: fmt.Errorf("%w: odd length token %q", ErrInvalidHex, token)}
		}
		b, err := hex.DecodeString(token)
		if err != nil {
			return nil, &SessionError{Op: "send", Err: fmt.Errorf("%w: token %q", ErrInvalidHex, token)}
		}
		out = append(out, b...)
	}
	return out, nil
}

// encodePayload turns a user-facing send request into transport-level bytes.
// HEX mode input stands for the exact raw byte sequence, so CR/LF suffixes
// apply only in plain mode.
func encodePayload(text string, hexMode, appendCR, appendLF bool) ([]byte, error) {
	if hexMode {
		return decodeHexText(text)
	}
	if appendCR {
		text += "\r"
	}
	if appendLF {
		text += "\n"
	}
	return []byte(text), nil
}
