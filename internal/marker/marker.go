// Package marker implements the zero-width marker format that smuggles a JSON
// payload inside ordinary text. A start marker is U+200B followed by one or
// more variation selectors U+FE00..U+FE0F, each encoding a 4-bit nibble;
// consecutive nibble pairs form bytes, UTF-8 decoded and parsed as JSON. The
// end marker is a single U+200C. All marker characters are zero-width, so the
// surrounding text renders unchanged.
package marker

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// Start opens a segment; it is followed by the nibble-encoded payload.
	Start = '​'
	// End closes the nearest preceding open segment.
	End = '‌'

	// nibbleBase is the first character of the 16-symbol nibble alphabet.
	nibbleBase = 0xFE00
)

// DecodeError reports a malformed marker payload.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "marker decode: " + e.Reason
}

// IsNibble reports whether r belongs to the nibble alphabet.
func IsNibble(r rune) bool {
	return r >= nibbleBase && r <= nibbleBase+15
}

// Decode converts a nibble-alphabet payload into raw bytes. Characters are
// taken pairwise, first as the high nibble and second as the low nibble. It
// fails with a DecodeError when the payload has odd length or contains a
// character outside the alphabet.
func Decode(payload string) ([]byte, error) {
	runes := []rune(payload)
	if len(runes)%2 != 0 {
		return nil, &DecodeError{Reason: fmt.Sprintf("odd payload length %d", len(runes))}
	}
	out := make([]byte, 0, len(runes)/2)
	for i := 0; i < len(runes); i += 2 {
		hi, err := nibble(runes[i])
		if err != nil {
			return nil, err
		}
		lo, err := nibble(runes[i+1])
		if err != nil {
			return nil, err
		}
		out = append(out, hi<<4|lo)
	}
	return out, nil
}

func nibble(r rune) (byte, error) {
	if !IsNibble(r) {
		return 0, &DecodeError{Reason: fmt.Sprintf("character %U outside nibble alphabet", r)}
	}
	return byte(r - nibbleBase), nil
}

// DecodeJSON decodes a payload to a JSON object. Callers always get a usable
// object: any decode or parse failure is reported as the second return value
// instead of an error, and an empty payload yields an empty object.
func DecodeJSON(payload string) (map[string]any, string) {
	raw, err := Decode(payload)
	if err != nil {
		return map[string]any{}, err.Error()
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return map[string]any{}, ""
	}
	var meta map[string]any
	if err := json.Unmarshal([]byte(text), &meta); err != nil {
		return map[string]any{}, "metadata parse: " + err.Error()
	}
	return meta, ""
}

// EncodeBytes is the inverse of Decode: each byte becomes two nibble
// characters, high nibble first.
func EncodeBytes(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data) * 6)
	for _, b := range data {
		sb.WriteRune(rune(nibbleBase) + rune(b>>4))
		sb.WriteRune(rune(nibbleBase) + rune(b&0x0f))
	}
	return sb.String()
}

// Encode produces a start marker carrying meta as its JSON payload.
func Encode(meta any) (string, error) {
	data, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(Start) + EncodeBytes(data), nil
}

// Wrap surrounds text with a start marker carrying meta and an end marker.
func Wrap(text string, meta any) (string, error) {
	start, err := Encode(meta)
	if err != nil {
		return "", err
	}
	return start + text + string(End), nil
}
