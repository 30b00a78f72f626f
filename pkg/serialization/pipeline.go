package serialization

import (
	"bytes"
	"compress/gzip"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// CompressionType represents compression algorithms
type CompressionType string

const (
	CompressionNone CompressionType = "none"
	CompressionGzip CompressionType = "gzip"
	CompressionZstd CompressionType = "zstd"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

var (
	ErrKeySize       = errors.New("encryption key must be 32 bytes")
	ErrShortCipher   = errors.New("ciphertext shorter than nonce")
	ErrUnknownFormat = errors.New("unknown compression")
)

// SerializationConfig holds serialization settings
type SerializationConfig struct {
	Codec       Codec
	Compression CompressionType
	EncryptKey  []byte // AES-256 key, optional
}

// Serializer runs encode -> compress -> seal, and the reverse.
type Serializer struct {
	config SerializationConfig
}

// NewSerializer creates a new serializer with configuration
func NewSerializer(config SerializationConfig) *Serializer {
	if config.Codec == nil {
		config.Codec = NewJSONCodec()
	}
	if config.Compression == "" {
		config.Compression = CompressionNone
	}
	return &Serializer{config: config}
}

// SnapshotSerializer is the encoding used by the run snapshot stores:
// MessagePack compressed with zstd.
func SnapshotSerializer() *Serializer {
	return NewSerializer(SerializationConfig{
		Codec:       NewMsgPackCodec(),
		Compression: CompressionZstd,
	})
}

// Codec returns the configured codec.
func (s *Serializer) Codec() Codec { return s.config.Codec }

// Serialize encodes, compresses, and encrypts v
func (s *Serializer) Serialize(v interface{}) ([]byte, error) {
	data, err := s.config.Codec.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("%s encode: %w", s.config.Codec.Name(), err)
	}
	if data, err = Compress(s.config.Compression, data); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if len(s.config.EncryptKey) == 0 {
		return data, nil
	}
	if data, err = Seal(s.config.EncryptKey, data); err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	return data, nil
}

// Deserialize decrypts, decompresses, and decodes data into v
func (s *Serializer) Deserialize(data []byte, v interface{}) error {
	var err error
	if len(s.config.EncryptKey) > 0 {
		if data, err = Open(s.config.EncryptKey, data); err != nil {
			return fmt.Errorf("decrypt: %w", err)
		}
	}
	if data, err = Decompress(s.config.Compression, data); err != nil {
		return fmt.Errorf("decompress: %w", err)
	}
	if err = s.config.Codec.Decode(data, v); err != nil {
		return fmt.Errorf("%s decode: %w", s.config.Codec.Name(), err)
	}
	return nil
}

var (
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
	zstdErr  error
)

// zstd encoders and decoders are safe for concurrent EncodeAll/DecodeAll
// and expensive to build, so one pair is shared.
func zstdCodec() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEnc, zstdErr = zstd.NewWriter(nil)
		if zstdErr != nil {
			return
		}
		zstdDec, zstdErr = zstd.NewReader(nil)
	})
	return zstdEnc, zstdDec, zstdErr
}

// Compress applies the given compression.
func Compress(kind CompressionType, data []byte) ([]byte, error) {
	switch kind {
	case CompressionNone, "":
		return data, nil
	case CompressionGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompressionZstd:
		enc, _, err := zstdCodec()
		if err != nil {
			return nil, err
		}
		return enc.EncodeAll(data, nil), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, kind)
}

// Decompress reverses Compress.
func Decompress(kind CompressionType, data []byte) ([]byte, error) {
	switch kind {
	case CompressionNone, "":
		return data, nil
	case CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case CompressionZstd:
		_, dec, err := zstdCodec()
		if err != nil {
			return nil, err
		}
		return dec.DecodeAll(data, nil)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, kind)
}

// Seal encrypts data with AES-256-GCM. The random nonce is prepended.
func Seal(key, data []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, data, nil), nil
}

// Open decrypts the output of Seal.
func Open(key, data []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	n := gcm.NonceSize()
	if len(data) < n {
		return nil, ErrShortCipher
	}
	return gcm.Open(nil, data[:n], data[n:], nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// ParseKey decodes a hex-encoded AES-256 key. Empty input yields nil.
func ParseKey(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	return key, nil
}
