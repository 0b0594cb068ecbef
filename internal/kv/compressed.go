package kv

import (
	"bytes"
	"context"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// zstd frame magic number. Values without it are passed through, so a
// backend written before compression was enabled stays readable.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Compressed wraps a Store and zstd-compresses values on the way in.
type Compressed struct {
	next    Store
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func NewCompressed(next Store) (*Compressed, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &Compressed{next: next, encoder: encoder, decoder: decoder}, nil
}

func (c *Compressed) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.next.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(value, zstdMagic) {
		return value, nil
	}
	out, err := c.decoder.DecodeAll(value, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress %s: %w", key, err)
	}
	return out, nil
}

func (c *Compressed) Set(ctx context.Context, key string, value []byte) error {
	return c.next.Set(ctx, key, c.encoder.EncodeAll(value, nil))
}

// Ping forwards to the wrapped store when it supports it.
func (c *Compressed) Ping(ctx context.Context) error {
	if p, ok := c.next.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the encoder and the decoder's worker goroutines. The
// wrapped store is not closed.
func (c *Compressed) Close() error {
	c.decoder.Close()
	return c.encoder.Close()
}
