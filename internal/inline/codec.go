// Package inline converts uploaded images between data URLs and transport-ready
// (mime type, bytes) pairs.
package inline

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/mmynk/mamachef/internal/models"
)

// MaxImageBytes bounds the decoded size of a single uploaded image.
const MaxImageBytes = 10 << 20

var (
	ErrInvalidDataURL = errors.New("invalid image data url")
	ErrImageTooLarge  = errors.New("image exceeds size limit")
)

var dataURLPattern = regexp.MustCompile(`^data:(image/[a-zA-Z+]+);base64,(.+)$`)

// Decode parses an image data URL ("data:image/png;base64,...").
func Decode(dataURL string) (*models.InlineData, error) {
	m := dataURLPattern.FindStringSubmatch(strings.TrimSpace(dataURL))
	if m == nil {
		return nil, ErrInvalidDataURL
	}
	payload := m[2]
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes+2 {
		return nil, ErrImageTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	if len(data) > MaxImageBytes {
		return nil, ErrImageTooLarge
	}
	if len(data) == 0 {
		return nil, ErrInvalidDataURL
	}
	return &models.InlineData{MIMEType: m[1], Data: data}, nil
}

// Encode renders inline data back into a data URL.
func Encode(d *models.InlineData) string {
	if d == nil {
		return ""
	}
	return "data:" + d.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(d.Data)
}

// DecodeOptional is Decode for optional fields: an empty string yields nil, nil.
func DecodeOptional(dataURL string) (*models.InlineData, error) {
	if strings.TrimSpace(dataURL) == "" {
		return nil, nil
	}
	return Decode(dataURL)
}

// Digest returns the hex blake2b-256 digest of the image bytes.
// Identical photos map to the same digest and are stored once.
func Digest(d *models.InlineData) string {
	sum := blake2b.Sum256(d.Data)
	return hex.EncodeToString(sum[:])
}
