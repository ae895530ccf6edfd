package extract

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// extractPlainText decodes raw bytes trying an ordered list of encodings:
// UTF-8, UTF-16 (BOM-detected), Latin-1, Windows-1252. Latin-1 accepts any
// byte sequence, so the chain effectively cannot fail; as a final guard the
// input is decoded as UTF-8 with invalid bytes replaced by U+FFFD.
func extractPlainText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}

	if hasUTF16BOM(data) {
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		if decoded, err := decodeWith(dec, data); err == nil {
			return decoded, nil
		}
	}

	for _, enc := range []encoding.Encoding{charmap.ISO8859_1, charmap.Windows1252} {
		if decoded, err := decodeWith(enc.NewDecoder(), data); err == nil {
			return decoded, nil
		}
	}

	return strings.ToValidUTF8(string(data), "�"), nil
}

func decodeWith(dec *encoding.Decoder, data []byte) (string, error) {
	decoded, err := dec.Bytes(data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func hasUTF16BOM(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	return (data[0] == 0xFF && data[1] == 0xFE) || (data[0] == 0xFE && data[1] == 0xFF)
}
