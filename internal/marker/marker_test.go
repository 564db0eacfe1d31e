package marker

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestDecode_RoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x00},
		{0xff},
		{0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0},
		[]byte(`{"sid":"intro"}`),
		[]byte("héllo wörld"),
	}
	for _, want := range cases {
		encoded := EncodeBytes(want)
		got, err := Decode(encoded)
		if err != nil {
			t.Fatalf("Decode(EncodeBytes(%x)) failed: %v", want, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("round trip: want %x, got %x", want, got)
		}
	}
}

func TestEncodeBytes_NibbleAlphabet(t *testing.T) {
	// 0xA5 encodes as U+FE0A U+FE05, high nibble first.
	got := []rune(EncodeBytes([]byte{0xa5}))
	if len(got) != 2 || got[0] != 0xFE0A || got[1] != 0xFE05 {
		t.Errorf("EncodeBytes(0xA5) = %U, want [FE0A FE05]", got)
	}
	// Every output character stays inside the alphabet across all byte values.
	for b := 0; b <= 0xff; b++ {
		for _, r := range EncodeBytes([]byte{byte(b)}) {
			if !IsNibble(r) {
				t.Fatalf("EncodeBytes(%#02x) produced %U outside the alphabet", b, r)
			}
		}
	}
}

func TestDecode_NibblePairing(t *testing.T) {
	// 0xA5 = high nibble 10, low nibble 5.
	payload := string(rune(0xFE00+10)) + string(rune(0xFE00+5))
	got, err := Decode(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != 0xa5 {
		t.Errorf("expected [0xa5], got %x", got)
	}
}

func TestDecode_OddLength(t *testing.T) {
	payload := string(rune(0xFE01))
	_, err := Decode(payload)
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected DecodeError for odd length, got %v", err)
	}
	if !strings.Contains(decErr.Reason, "odd") {
		t.Errorf("expected odd-length reason, got %q", decErr.Reason)
	}
}

func TestDecode_OutOfAlphabet(t *testing.T) {
	for _, payload := range []string{
		"ab",
		string(rune(0xFE00)) + "x",
		string(rune(0xFDFF)) + string(rune(0xFE00)),
		string(rune(0xFE10)) + string(rune(0xFE00)),
	} {
		_, err := Decode(payload)
		var decErr *DecodeError
		if !errors.As(err, &decErr) {
			t.Errorf("Decode(%q): expected DecodeError, got %v", payload, err)
		}
	}
}

func TestDecodeJSON_Empty(t *testing.T) {
	meta, errStr := DecodeJSON("")
	if errStr != "" {
		t.Fatalf("unexpected error: %q", errStr)
	}
	if meta == nil || len(meta) != 0 {
		t.Errorf("expected empty object, got %v", meta)
	}
}

func TestDecodeJSON_Metadata(t *testing.T) {
	payload := EncodeBytes([]byte(`{"sid":"s1","score":3}`))
	meta, errStr := DecodeJSON(payload)
	if errStr != "" {
		t.Fatalf("unexpected error: %q", errStr)
	}
	if meta["sid"] != "s1" {
		t.Errorf("expected sid=s1, got %v", meta["sid"])
	}
	if meta["score"] != float64(3) {
		t.Errorf("expected score=3, got %v", meta["score"])
	}
}

func TestDecodeJSON_ParseFailureIsSoft(t *testing.T) {
	payload := EncodeBytes([]byte(`{not json`))
	meta, errStr := DecodeJSON(payload)
	if errStr == "" {
		t.Fatal("expected a decoding error string")
	}
	if meta == nil {
		t.Error("expected a usable (empty) object despite the parse failure")
	}
}

func TestDecodeJSON_MalformedPayloadIsSoft(t *testing.T) {
	meta, errStr := DecodeJSON(string(rune(0xFE02)))
	if errStr == "" {
		t.Fatal("expected a decoding error string for odd payload")
	}
	if meta == nil {
		t.Error("expected a usable (empty) object")
	}
}

func TestWrap_Shape(t *testing.T) {
	wrapped, err := Wrap("bonjour", map[string]any{"sid": "greet"})
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}
	if !strings.HasPrefix(wrapped, string(Start)) {
		t.Error("expected wrapped text to open with the start separator")
	}
	if !strings.HasSuffix(wrapped, string(End)) {
		t.Error("expected wrapped text to close with the end marker")
	}
	if !strings.Contains(wrapped, "bonjour") {
		t.Error("expected the visible text to survive wrapping")
	}
	// Everything between the separator and the text must be nibble alphabet.
	inner := strings.TrimPrefix(wrapped, string(Start))
	for _, r := range inner {
		if r == 'b' {
			break
		}
		if !IsNibble(r) {
			t.Fatalf("unexpected character %U in payload", r)
		}
	}
}

func TestIsNibble_Bounds(t *testing.T) {
	if IsNibble(0xFDFF) || IsNibble(0xFE10) {
		t.Error("alphabet bounds are inclusive FE00..FE0F only")
	}
	if !IsNibble(0xFE00) || !IsNibble(0xFE0F) {
		t.Error("expected FE00 and FE0F to be in the alphabet")
	}
}
