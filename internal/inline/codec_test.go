package inline

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/mmynk/mamachef/internal/models"
)

func TestDecode(t *testing.T) {
	raw := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}
	valid := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name     string
		input    string
		wantMIME string
		wantErr  error
	}{
		{name: "png", input: valid, wantMIME: "image/png"},
		{name: "svg plus subtype", input: "data:image/svg+xml;base64,PHN2Zy8+", wantMIME: "image/svg+xml"},
		{name: "surrounding whitespace", input: "  " + valid + "\n", wantMIME: "image/png"},
		{name: "not an image", input: "data:text/plain;base64,aGVsbG8=", wantErr: ErrInvalidDataURL},
		{name: "missing base64 marker", input: "data:image/png,aGVsbG8=", wantErr: ErrInvalidDataURL},
		{name: "bad base64", input: "data:image/png;base64,@@@@", wantErr: ErrInvalidDataURL},
		{name: "empty", input: "", wantErr: ErrInvalidDataURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Decode() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() unexpected error: %v", err)
			}
			if got.MIMEType != tt.wantMIME {
				t.Errorf("MIMEType = %q, want %q", got.MIMEType, tt.wantMIME)
			}
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	in := &models.InlineData{MIMEType: "image/jpeg", Data: []byte("jpeg-bytes")}
	url := Encode(in)
	if !strings.HasPrefix(url, "data:image/jpeg;base64,") {
		t.Fatalf("unexpected data url %q", url)
	}
	out, err := Decode(url)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if string(out.Data) != "jpeg-bytes" {
		t.Errorf("Data = %q, want %q", out.Data, "jpeg-bytes")
	}
}

func TestDecodeOptional(t *testing.T) {
	got, err := DecodeOptional("   ")
	if err != nil || got != nil {
		t.Fatalf("DecodeOptional(blank) = %v, %v; want nil, nil", got, err)
	}
}

func TestDecodeTooLarge(t *testing.T) {
	big := make([]byte, MaxImageBytes+1)
	_, err := Decode("data:image/png;base64," + base64.StdEncoding.EncodeToString(big))
	if !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("Decode() error = %v, want ErrImageTooLarge", err)
	}
}

func TestDigest(t *testing.T) {
	a := &models.InlineData{MIMEType: "image/png", Data: []byte("same")}
	b := &models.InlineData{MIMEType: "image/jpeg", Data: []byte("same")}
	c := &models.InlineData{MIMEType: "image/png", Data: []byte("other")}

	if Digest(a) != Digest(b) {
		t.Error("expected identical bytes to share a digest")
	}
	if Digest(a) == Digest(c) {
		t.Error("expected different bytes to have different digests")
	}
	if len(Digest(a)) != 64 {
		t.Errorf("digest length = %d, want 64", len(Digest(a)))
	}
}
