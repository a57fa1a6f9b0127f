package profile

import (
	"errors"
	"strings"
	"testing"
)

func TestCreateInputValidate(t *testing.T) {
	valid := CreateInput{Name: "laptop", Hash: "b64ciphertext", EncryptionType: EncryptionXChaCha20Poly1305}

	tests := []struct {
		name   string
		mutate func(*CreateInput)
		want   error
	}{
		{"valid", func(*CreateInput) {}, nil},
		{"aes rejected", func(in *CreateInput) { in.EncryptionType = "AES-256-GCM" }, ErrUnsupportedEncryption},
		{"case sensitive", func(in *CreateInput) { in.EncryptionType = "xchacha20-poly1305" }, ErrUnsupportedEncryption},
		{"blank name", func(in *CreateInput) { in.Name = "   " }, ErrInvalidName},
		{"long name", func(in *CreateInput) { in.Name = strings.Repeat("n", 129) }, ErrInvalidName},
		{"empty hash", func(in *CreateInput) { in.Hash = "" }, ErrInvalidHash},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			if err := in.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
