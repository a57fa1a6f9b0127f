package session

import (
	"strings"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	in := Record{UserID: 42, IP: "10.0.0.5", IssuedAt: 1700000000, ExpiresAt: 1700086400}
	data, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if data[0] != recordFormatVersionCurrent {
		t.Fatalf("version byte = %d, want %d", data[0], recordFormatVersionCurrent)
	}

	out, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if out != in {
		t.Fatalf("decoded %+v, want %+v", out, in)
	}
}

func TestDecodeLegacyJSON(t *testing.T) {
	out, err := Decode([]byte(`{"user_id":7,"ip":"192.0.2.10"}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if out.UserID != 7 || out.IP != "192.0.2.10" {
		t.Fatalf("unexpected legacy record: %+v", out)
	}
	if out.ExpiresAt != 0 {
		t.Fatalf("legacy record should carry no deadline, got %d", out.ExpiresAt)
	}
}

func TestDecodeRejectsInvalid(t *testing.T) {
	valid, err := Encode(Record{UserID: 1, IP: "10.0.0.1", IssuedAt: 1, ExpiresAt: 2})
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	cases := map[string][]byte{
		"empty":            {},
		"unknown version":  append([]byte{9}, valid[1:]...),
		"truncated":        valid[:len(valid)-3],
		"trailing":         append(append([]byte{}, valid...), 0),
		"legacy bad json":  []byte(`{"user_id":`),
		"legacy no ip":     []byte(`{"user_id":7}`),
		"legacy string id": []byte(`{"user_id":"7","ip":"x"}`),
	}
	for name, data := range cases {
		if _, err := Decode(data); err == nil {
			t.Fatalf("%s: expected decode error", name)
		}
	}
}

func TestEncodeRejectsOversizedIP(t *testing.T) {
	if _, err := Encode(Record{UserID: 1, IP: strings.Repeat("1", maxIPLength+1)}); err == nil {
		t.Fatal("expected error for oversized ip")
	}
}

// FuzzRecordDecode feeds arbitrary bytes to Decode. It must never panic, and
// anything it accepts must survive a re-encode.
func FuzzRecordDecode(f *testing.F) {
	seed, err := Encode(Record{UserID: 42, IP: "10.0.0.5", IssuedAt: 1700000000, ExpiresAt: 1700086400})
	if err == nil {
		f.Add(seed)
		f.Add(seed[:10])
	}
	f.Add([]byte{})
	f.Add([]byte{1})
	f.Add([]byte{1, 0, 0, 0, 0, 0, 0, 0, 1, 255})
	f.Add([]byte(`{"user_id":1,"ip":"::1"}`))
	f.Add([]byte(`{}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		rec, err := Decode(data)
		if err != nil {
			return
		}
		if _, err := Encode(rec); err != nil {
			t.Fatalf("re-encode of decoded record failed: %v", err)
		}
	})
}
