package cache

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/flate"
)

// maxEncodedBytes bounds what a single cache entry may hold before
// compression. Raw batches of 50 posts stay well under this.
const maxEncodedBytes = 1 << 20 // 1MB

// envelope wraps compressed values so deserialization is versioned and
// type-checked rather than assumed.
type envelope struct {
	Version int    `json:"v"`
	Alg     string `json:"alg"`
	Data    string `json:"data"`
}

const (
	envelopeVersion = 1
	envelopeAlg     = "deflate"
)

// EncodeCompressed marshals v to JSON, deflate-compresses it and wraps the
// base64 payload in a versioned envelope.
func EncodeCompressed(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal cache value: %w", err)
	}
	if len(raw) > maxEncodedBytes {
		return "", fmt.Errorf("cache value too large: %d bytes", len(raw))
	}

	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return "", fmt.Errorf("init compressor: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return "", fmt.Errorf("compress cache value: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("compress cache value: %w", err)
	}

	wrapped, err := json.Marshal(envelope{
		Version: envelopeVersion,
		Alg:     envelopeAlg,
		Data:    base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
	if err != nil {
		return "", fmt.Errorf("marshal cache envelope: %w", err)
	}
	return string(wrapped), nil
}

// DecodeCompressed reverses EncodeCompressed into out.
func DecodeCompressed(value string, out any) error {
	var env envelope
	if err := json.Unmarshal([]byte(value), &env); err != nil {
		return fmt.Errorf("unmarshal cache envelope: %w", err)
	}
	if env.Version != envelopeVersion || env.Alg != envelopeAlg {
		return fmt.Errorf("unsupported cache envelope (v=%d alg=%q)", env.Version, env.Alg)
	}

	compressed, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return fmt.Errorf("decode cache payload: %w", err)
	}

	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("decompress cache value: %w", err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal cache value: %w", err)
	}
	return nil
}

// GetCompressed reads a compressed entry into T. Returns ErrCacheMiss when
// absent or expired.
func GetCompressed[T any](ctx context.Context, s Store, key string) (*T, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var out T
	if err := DecodeCompressed(value, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetCompressed stores v compressed under key.
func SetCompressed(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	encoded, err := EncodeCompressed(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, encoded, ttl)
}

// GetJSON reads an uncompressed JSON entry into T (access records).
func GetJSON[T any](ctx context.Context, s Store, key string) (*T, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal([]byte(value), &out); err != nil {
		return nil, fmt.Errorf("unmarshal cache value: %w", err)
	}
	return &out, nil
}

// SetJSON stores v as plain JSON under key.
func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	return s.Set(ctx, key, string(raw), ttl)
}
