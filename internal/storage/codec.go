package storage

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"filippo.io/age"
	"github.com/klauspost/compress/zstd"

	apperrors "github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/errors"
)

// Codec transforms the serialized snapshot before it is stored.
type Codec interface {
	Name() string
	// Extension is appended to the snapshot base name ("" for plain JSON).
	Extension() string
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
}

// Plain stores the JSON document as-is.
type Plain struct{}

func (Plain) Name() string                       { return "plain" }
func (Plain) Extension() string                  { return "" }
func (Plain) Encode(data []byte) ([]byte, error) { return data, nil }
func (Plain) Decode(data []byte) ([]byte, error) { return data, nil }

var (
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
	zstdErr  error
)

func zstdCoders() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEnc, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if zstdErr != nil {
			return
		}
		zstdDec, zstdErr = zstd.NewReader(nil)
	})
	return zstdEnc, zstdDec, zstdErr
}

// Zstd compresses the document with zstandard.
type Zstd struct{}

func (Zstd) Name() string      { return "zstd" }
func (Zstd) Extension() string { return ".zst" }

func (Zstd) Encode(data []byte) ([]byte, error) {
	enc, _, err := zstdCoders()
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	return enc.EncodeAll(data, make([]byte, 0, len(data)/4)), nil
}

func (Zstd) Decode(data []byte) ([]byte, error) {
	_, dec, err := zstdCoders()
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}
	return out, nil
}

// Age encrypts the document to one or more age recipients. Decoding needs identities.
type Age struct {
	recipients []age.Recipient
	identities []age.Identity
}

// NewAge builds an age codec. recipients and identities use the age text formats
// ("age1..." and "AGE-SECRET-KEY-1..."), one per line; either may be empty.
func NewAge(recipients, identities string) (*Age, error) {
	c := &Age{}
	if strings.TrimSpace(recipients) != "" {
		r, err := age.ParseRecipients(strings.NewReader(recipients))
		if err != nil {
			return nil, fmt.Errorf("parsing age recipients: %w", err)
		}
		c.recipients = r
	}
	if strings.TrimSpace(identities) != "" {
		ids, err := age.ParseIdentities(strings.NewReader(identities))
		if err != nil {
			return nil, fmt.Errorf("parsing age identities: %w", err)
		}
		c.identities = ids
	}
	return c, nil
}

func (*Age) Name() string      { return "age" }
func (*Age) Extension() string { return ".age" }

// CanEncrypt reports whether at least one recipient is configured.
func (c *Age) CanEncrypt() bool { return len(c.recipients) > 0 }

func (c *Age) Encode(data []byte) ([]byte, error) {
	if len(c.recipients) == 0 {
		return nil, fmt.Errorf("age codec has no recipients")
	}
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, c.recipients...)
	if err != nil {
		return nil, fmt.Errorf("age encrypt: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("age encrypt: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("age encrypt: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *Age) Decode(data []byte) ([]byte, error) {
	if len(c.identities) == 0 {
		return nil, apperrors.ErrIdentityRequired
	}
	r, err := age.Decrypt(bytes.NewReader(data), c.identities...)
	if err != nil {
		return nil, fmt.Errorf("age decrypt: %w", err)
	}
	return io.ReadAll(r)
}

// Decoder picks a codec from a stored file name.
type Decoder struct {
	age *Age
}

// NewDecoder creates a Decoder; ageCodec may be nil when no identity is configured.
func NewDecoder(ageCodec *Age) *Decoder {
	return &Decoder{age: ageCodec}
}

// Decode returns the JSON document held in a stored blob named key.
func (d *Decoder) Decode(key string, data []byte) ([]byte, error) {
	switch {
	case strings.HasSuffix(key, ".json.zst"):
		return Zstd{}.Decode(data)
	case strings.HasSuffix(key, ".json.age"):
		if d == nil || d.age == nil {
			return nil, apperrors.ErrIdentityRequired
		}
		return d.age.Decode(data)
	case strings.HasSuffix(key, ".json"):
		return data, nil
	}
	return nil, fmt.Errorf("unsupported backup file type: %s", key)
}

// IsSnapshotName reports whether key looks like a stored snapshot.
func IsSnapshotName(key string) bool {
	return strings.Contains(key, "-backup-") &&
		(strings.HasSuffix(key, ".json") || strings.HasSuffix(key, ".json.zst") || strings.HasSuffix(key, ".json.age"))
}
