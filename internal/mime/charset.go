package mime

import (
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// charsetAliases maps lower-cased charset labels seen in real mail to their
// x/text encodings. Labels not listed here fall back to the IANA index.
var charsetAliases = map[string]encoding.Encoding{
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
	"iso8859-1":    charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-2":   charmap.ISO8859_2,
	"iso-8859-5":   charmap.ISO8859_5,
	"iso-8859-15":  charmap.ISO8859_15,
	"windows-1250": charmap.Windows1250,
	"windows-1251": charmap.Windows1251,
	"koi8-r":       charmap.KOI8R,
	"koi8-u":       charmap.KOI8U,
	"shift_jis":    japanese.ShiftJIS,
	"sjis":         japanese.ShiftJIS,
	"euc-jp":       japanese.EUCJP,
	"iso-2022-jp":  japanese.ISO2022JP,
	"euc-kr":       korean.EUCKR,
	"gbk":          simplifiedchinese.GBK,
	"gb2312":       simplifiedchinese.GBK,
	"gb18030":      simplifiedchinese.GB18030,
	"gb-18030":     simplifiedchinese.GB18030,
	"big5":         traditionalchinese.Big5,
	"utf-16be":     unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"utf-16le":     unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
}

// getEncodingByName returns the encoding for a charset label, or nil when
// the label is unknown.
func getEncodingByName(name string) encoding.Encoding {
	label := strings.ToLower(strings.TrimSpace(name))
	if enc, ok := charsetAliases[label]; ok {
		return enc
	}
	enc, err := ianaindex.MIME.Encoding(label)
	if err != nil || enc == nil {
		return nil
	}
	return enc
}

// isPassthroughCharset reports whether text in this charset can be used as
// UTF-8 without conversion.
func isPassthroughCharset(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "utf-8", "utf8", "us-ascii", "ascii", "":
		return true
	}
	return false
}

// decodeCharset converts data in the named charset to UTF-8. ok is false when
// the charset is unknown or the conversion fails.
func decodeCharset(name string, data []byte) (string, bool) {
	if isPassthroughCharset(name) {
		return sanitizeUTF8(string(data)), true
	}
	enc := getEncodingByName(name)
	if enc == nil {
		return "", false
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", false
	}
	return sanitizeUTF8(string(out)), true
}

// minMultiByteConfidence is the chardet confidence required before a
// multi-byte charset guess is trusted over Windows-1252.
const minMultiByteConfidence = 50

// multiByteCharsets are the chardet results that override the Windows-1252
// default. Single-byte guesses are ignored: on short header values chardet
// cannot tell the ISO-8859 variants apart, and Windows-1252 is what mailers
// actually emit.
var multiByteCharsets = map[string]bool{
	"shift_jis":   true,
	"euc-jp":      true,
	"euc-kr":      true,
	"gb18030":     true,
	"gb-18030":    true,
	"big5":        true,
	"iso-2022-jp": true,
}

// detectAndDecode repairs text of unknown 8-bit encoding into UTF-8. Valid
// UTF-8 is returned unchanged.
func detectAndDecode(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}

	enc := encoding.Encoding(charmap.Windows1252)
	result, err := chardet.NewTextDetector().DetectBest(data)
	if err == nil && result != nil && result.Confidence >= minMultiByteConfidence {
		if multiByteCharsets[strings.ToLower(result.Charset)] {
			if detected := getEncodingByName(result.Charset); detected != nil {
				enc = detected
			}
		}
	}

	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		out, err = charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return "", err
		}
	}
	return sanitizeUTF8(string(out)), nil
}

// sanitizeUTF8 replaces every invalid byte with U+FFFD.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteRune(utf8.RuneError)
		} else {
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}
