package mime

import (
	"encoding/base64"
	"strings"
)

// wordState is the position of the encoded-word scanner inside the grammar
// =?charset?encoding?payload?=.
type wordState int

const (
	stateText     wordState = iota // outside any encoded word
	stateCharset                   // after "=?"
	stateEncoding                  // after the charset's "?"
	statePayload                   // after the encoding's "?"
)

// encodedWord is one syntactically complete =?charset?encoding?payload?=.
type encodedWord struct {
	charset  string
	encoding byte
	payload  string
	raw      string
}

// DecodeWords replaces the encoded words in a header value with their
// decoded text. Whitespace separating two adjacent encoded words is removed.
// Words with an unknown charset or a malformed payload are kept literally.
// Input without encoded words is returned unchanged.
func DecodeWords(s string) string {
	if !strings.Contains(s, "=?") {
		return s
	}

	var out strings.Builder
	out.Grow(len(s))

	var gap strings.Builder // whitespace seen after a decoded word
	afterWord := false

	flushGap := func() {
		out.WriteString(gap.String())
		gap.Reset()
	}

	for i := 0; i < len(s); {
		if w, end, ok := scanWord(s, i); ok {
			if text, ok := w.decode(); ok {
				if !afterWord {
					flushGap()
				}
				gap.Reset()
				out.WriteString(text)
				afterWord = true
			} else {
				flushGap()
				out.WriteString(w.raw)
				afterWord = false
			}
			i = end
			continue
		}

		c := s[i]
		if afterWord && isLinearSpace(c) {
			gap.WriteByte(c)
			i++
			continue
		}
		flushGap()
		afterWord = false
		out.WriteByte(c)
		i++
	}
	flushGap()
	return out.String()
}

// scanWord runs the encoded-word state machine starting at s[start]. It
// returns the word and the index just past its closing "?=". ok is false when
// no complete word starts at start; the caller then treats s[start] as text.
func scanWord(s string, start int) (encodedWord, int, bool) {
	var w encodedWord
	state := stateText
	mark := 0

	for i := start; i < len(s); i++ {
		c := s[i]
		switch state {
		case stateText:
			if c != '=' || i+1 >= len(s) || s[i+1] != '?' {
				return w, 0, false
			}
			i++
			mark = i + 1
			state = stateCharset

		case stateCharset:
			switch {
			case c == '?':
				if i == mark {
					return w, 0, false
				}
				w.charset = s[mark:i]
				mark = i + 1
				state = stateEncoding
			case isLinearSpace(c) || c < 0x21 || c > 0x7e:
				return w, 0, false
			}

		case stateEncoding:
			switch {
			case i == mark && isEncodingLetter(c):
			case i == mark+1 && c == '?':
				w.encoding = upperASCII(s[mark])
				mark = i + 1
				state = statePayload
			default:
				return w, 0, false
			}

		case statePayload:
			switch {
			case c == '?':
				if i+1 >= len(s) || s[i+1] != '=' {
					return w, 0, false
				}
				w.payload = s[mark:i]
				w.raw = s[start : i+2]
				return w, i + 2, true
			case isLinearSpace(c) || c < 0x21 || c > 0x7e:
				return w, 0, false
			}
		}
	}
	return w, 0, false
}

// decode converts the payload to UTF-8 text in the word's charset.
func (w encodedWord) decode() (string, bool) {
	charset := w.charset
	if idx := strings.IndexByte(charset, '*'); idx >= 0 {
		charset = charset[:idx]
	}

	var data []byte
	var ok bool
	switch w.encoding {
	case 'B':
		data, ok = decodeB(w.payload)
	case 'Q':
		data, ok = decodeQ(w.payload)
	}
	if !ok {
		return "", false
	}
	return decodeCharset(charset, data)
}

func decodeB(payload string) ([]byte, bool) {
	if data, err := base64.StdEncoding.DecodeString(payload); err == nil {
		return data, true
	}
	data, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	if err != nil {
		return nil, false
	}
	return data, true
}

func decodeQ(payload string) ([]byte, bool) {
	data := make([]byte, 0, len(payload))
	for i := 0; i < len(payload); i++ {
		switch c := payload[i]; c {
		case '_':
			data = append(data, ' ')
		case '=':
			if i+2 >= len(payload) {
				return nil, false
			}
			hi, ok1 := unhex(payload[i+1])
			lo, ok2 := unhex(payload[i+2])
			if !ok1 || !ok2 {
				return nil, false
			}
			data = append(data, hi<<4|lo)
			i += 2
		default:
			data = append(data, c)
		}
	}
	return data, true
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func isLinearSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isEncodingLetter(c byte) bool {
	switch c {
	case 'B', 'b', 'Q', 'q':
		return true
	}
	return false
}

func upperASCII(c byte) byte {
	if 'a' <= c && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}
