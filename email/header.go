package email

import (
	"bytes"
	"encoding/base64"
	"io"
	"regexp"
	"strings"

	"github.com/emersion/go-message/charset"
)

var encodedWord = regexp.MustCompile(`=\?([^?]+)\?([^?])\?([^?]+)\?=`)

// DecodeEncodedWords decodes every =?charset?encoding?payload?= word in s and leaves everything else,
// including whitespace between adjacent words, untouched. It never fails: a word that can't be decoded
// is returned as it was.
func DecodeEncodedWords(s string) string {
	if s == "" {
		return ""
	}

	return encodedWord.ReplaceAllStringFunc(s, func(word string) string {
		m := encodedWord.FindStringSubmatch(word)
		cs, encoding, payload := m[1], m[2], m[3]

		switch strings.ToUpper(encoding) {
		case "B":
			b, ok := decodeBase64(payload)
			if !ok {
				return word
			}
			return toUTF8(cs, b)
		case "Q":
			return toUTF8(cs, []byte(DecodeQuotedPrintable(strings.ReplaceAll(payload, "_", " "))))
		default:
			return payload
		}
	})
}

// DecodeQuotedPrintable replaces each =XX hex escape with the byte it names. Anything else, including
// a stray "=", is kept as is.
func DecodeQuotedPrintable(s string) string {
	if !strings.Contains(s, "=") {
		return s
	}

	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '=' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			out = append(out, unhex(s[i+1])<<4|unhex(s[i+2]))
			i += 2
			continue
		}
		out = append(out, s[i])
	}

	return string(out)
}

func decodeBase64(payload string) ([]byte, bool) {
	b, err := base64.StdEncoding.DecodeString(payload)
	if err == nil {
		return b, true
	}

	// some senders drop the padding
	b, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	if err == nil {
		return b, true
	}

	return nil, false
}

// toUTF8 converts b from the named charset. Unknown charsets and conversion failures keep the raw bytes.
func toUTF8(name string, b []byte) string {
	if i := strings.IndexByte(name, '*'); i >= 0 {
		name = name[:i] // RFC 2231 language suffix
	}

	switch strings.ToLower(name) {
	case "utf-8", "utf8", "us-ascii", "ascii":
		return string(b)
	}

	r, err := charset.Reader(name, bytes.NewReader(b))
	if err != nil {
		return string(b)
	}

	out, err := io.ReadAll(r)
	if err != nil {
		return string(b)
	}

	return string(out)
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
