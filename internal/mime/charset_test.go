package mime

import (
	"testing"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

func TestDetectAndDecode_Windows1252(t *testing.T) {
	// Windows-1252 specific characters: smart quotes (0x91-0x94), en/em dash (0x96, 0x97)
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "smart single quote (apostrophe)",
			input:    []byte("O\x92Brien"),
			expected: "O’Brien",
		},
		{
			name:     "en dash",
			input:    []byte("Sales \x96 EMEA"),
			expected: "Sales – EMEA",
		},
		{
			name:     "em dash",
			input:    []byte("Support\x97Team"),
			expected: "Support—Team",
		},
		{
			name:     "registered sign",
			input:    []byte("Acme\xae Billing"),
			expected: "Acme® Billing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := detectAndDecode(tt.input)
			if err != nil {
				t.Fatalf("detectAndDecode() error = %v", err)
			}
			if result != tt.expected {
				t.Errorf("detectAndDecode() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestDetectAndDecode_Latin1(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"o with acute accent", []byte("Mir\xf3 Sanz"), "Miró Sanz"},
		{"c with cedilla", []byte("Fran\xe7ois"), "François"},
		{"u with umlaut", []byte("J\xfcrgen"), "Jürgen"},
		{"n with tilde", []byte("Pe\xf1a"), "Peña"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := detectAndDecode(tt.input)
			if err != nil {
				t.Fatalf("detectAndDecode() error = %v", err)
			}
			if result != tt.expected {
				t.Errorf("detectAndDecode() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestDetectAndDecode_AsianEncodings(t *testing.T) {
	// Short samples are ambiguous between encodings; only require valid output.
	tests := []struct {
		name  string
		input []byte
	}{
		{"Shift-JIS Japanese", []byte{0x82, 0xb1, 0x82, 0xf1, 0x82, 0xc9, 0x82, 0xbf, 0x82, 0xcd}},
		{"GBK Simplified Chinese", []byte{0xc4, 0xe3, 0xba, 0xc3}},
		{"Big5 Traditional Chinese", []byte{0xa9, 0x6f, 0xa6, 0x6e}},
		{"EUC-KR Korean", []byte{0xbe, 0xc8, 0xb3, 0xe7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := detectAndDecode(tt.input)
			if err != nil {
				t.Fatalf("detectAndDecode() error = %v", err)
			}
			if !utf8.ValidString(result) {
				t.Errorf("detectAndDecode() result is not valid UTF-8: %q", result)
			}
			if len(result) == 0 {
				t.Errorf("detectAndDecode() returned empty string")
			}
		})
	}
}

func TestDetectAndDecode_AlreadyUTF8(t *testing.T) {
	input := []byte("Hello, 世界! Привет!")
	result, err := detectAndDecode(input)
	if err != nil {
		t.Fatalf("detectAndDecode() error = %v", err)
	}
	if result != string(input) {
		t.Errorf("detectAndDecode() = %q, want %q", result, input)
	}
}

func TestGetEncodingByName(t *testing.T) {
	tests := []struct {
		name     string
		charset  string
		expected encoding.Encoding
	}{
		{"Windows-1252 standard", "windows-1252", charmap.Windows1252},
		{"Windows-1252 CP1252", "CP1252", charmap.Windows1252},
		{"ISO-8859-1 standard", "ISO-8859-1", charmap.ISO8859_1},
		{"ISO-8859-1 latin1", "latin1", charmap.ISO8859_1},
		{"Shift_JIS standard", "Shift_JIS", japanese.ShiftJIS},
		{"EUC-JP standard", "EUC-JP", japanese.EUCJP},
		{"EUC-KR standard", "EUC-KR", korean.EUCKR},
		{"GBK standard", "GBK", simplifiedchinese.GBK},
		{"GB2312 maps to GBK", "GB2312", simplifiedchinese.GBK},
		{"Big5 standard", "Big5", traditionalchinese.Big5},
		{"KOI8-R standard", "KOI8-R", charmap.KOI8R},
		{"padded label", " utf-16le ", charsetAliases["utf-16le"]},
		{"Unknown returns nil", "unknown-charset", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := getEncodingByName(tt.charset)
			if result != tt.expected {
				t.Errorf("getEncodingByName(%q) = %v, want %v", tt.charset, result, tt.expected)
			}
		})
	}
}

func TestSanitizeUTF8(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"valid UTF-8 unchanged", "Hello, 世界!", "Hello, 世界!"},
		{"invalid byte replaced", "Hello\x80World", "Hello�World"},
		{"multiple invalid bytes", "Test\x80\x81\x82String", "Test���String"},
		{"truncated UTF-8 sequence", "Hello\xc3", "Hello�"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sanitizeUTF8(tt.input)
			if result != tt.expected {
				t.Errorf("sanitizeUTF8(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
