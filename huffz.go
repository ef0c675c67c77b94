// Package huffz implements lossless byte-stream compression with static Huffman codes.
//
// Compression counts byte frequencies, builds a prefix tree, derives a code table and
// packs the concatenated codes into a Container. The container stores the frequency
// table rather than the tree, so decompression rebuilds the identical tree and walks
// it bit by bit.
package huffz

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/seiflotfy/huffz/bitio"
	"github.com/seiflotfy/huffz/tree"
)

var (
	// ErrCorrupt indicates a container that cannot be decoded.
	ErrCorrupt = errors.New("corrupt container")
	// ErrChecksum indicates decoded content that does not match the stored checksum.
	ErrChecksum = fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	// ErrTooLarge indicates a container whose decoded size exceeds the decoder's limit.
	ErrTooLarge = fmt.Errorf("%w: decoded size exceeds limit", ErrCorrupt)
)

// Logger receives diagnostic messages. The internal/logger package provides a
// standard-library backed implementation.
type Logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Errorf(format string, v ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// Config holds configuration for encoders and decoders.
type Config struct {
	PayloadCompression bool   // Try a zstd stage over the packed payload and keep it when smaller
	Checksum           bool   // Store and verify an xxhash64 of the original content
	TreeCacheSize      int    // Decoder: number of rebuilt trees to keep (0 = no cache)
	MaxDecodedBytes    uint64 // Decoder: refuse containers that decode to more bytes (0 = unlimited)
	Logger             Logger // Diagnostic sink (nil = discard)
}

// Option is a functional option for configuring encoders and decoders.
type Option func(*Config)

// WithPayloadCompression enables the zstd payload stage.
func WithPayloadCompression(enabled bool) Option {
	return func(c *Config) {
		c.PayloadCompression = enabled
	}
}

// WithChecksum controls whether a content checksum is written. Checksums are on by default.
func WithChecksum(enabled bool) Option {
	return func(c *Config) {
		c.Checksum = enabled
	}
}

// WithTreeCache keeps up to size rebuilt trees keyed by their frequency table.
// Useful when many containers share the same statistics.
func WithTreeCache(size int) Option {
	return func(c *Config) {
		c.TreeCacheSize = size
	}
}

// WithMaxDecodedBytes caps the output size a decoder accepts. The limit is checked
// against the stored frequency total before any output is allocated.
func WithMaxDecodedBytes(n uint64) Option {
	return func(c *Config) {
		c.MaxDecodedBytes = n
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

func newConfig(opts []Option) Config {
	cfg := Config{Checksum: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}
	return cfg
}

// Encoder turns byte slices into containers. An Encoder holds only configuration
// and is safe for concurrent use.
type Encoder struct {
	config Config
}

// NewEncoder creates a new encoder with the given options.
func NewEncoder(opts ...Option) *Encoder {
	return &Encoder{config: newConfig(opts)}
}

// Encode compresses src into a Container.
func (e *Encoder) Encode(src []byte) (*Container, error) {
	freqs := Analyze(src)
	root := tree.Build(freqs.Entries())
	codes, err := tree.Codes(root)
	if err != nil {
		return nil, err
	}

	var payload bytes.Buffer
	payload.Grow(len(src) / 2)
	bw := bitio.NewWriter(&payload)
	for _, b := range src {
		c := codes[b]
		if err := bw.WriteBits(c.Bits, c.Len); err != nil {
			return nil, err
		}
	}
	if err := bw.Close(); err != nil {
		return nil, err
	}

	c := &Container{
		Frequencies:        freqs,
		BitLength:          bw.Len(),
		Payload:            payload.Bytes(),
		payloadCompression: e.config.PayloadCompression,
	}
	if e.config.Checksum {
		c.Checksum = xxhash.Sum64(src)
		c.HasChecksum = true
	}
	e.config.Logger.Debugf("encoded %d bytes: %d symbols, %d bits", len(src), freqs.Len(), c.BitLength)
	return c, nil
}

// Decoder turns containers back into bytes. Each call rebuilds (or fetches from the
// cache) its own tree, so a Decoder is safe for concurrent use.
type Decoder struct {
	config Config
	cache  *treeCache
}

// NewDecoder creates a new decoder with the given options.
func NewDecoder(opts ...Option) (*Decoder, error) {
	cfg := newConfig(opts)
	d := &Decoder{config: cfg}
	if cfg.TreeCacheSize > 0 {
		cache, err := newTreeCache(cfg.TreeCacheSize)
		if err != nil {
			return nil, err
		}
		d.cache = cache
	}
	return d, nil
}

func (d *Decoder) buildTree(f *FrequencyTable) *tree.Node {
	if d.cache == nil {
		return tree.Build(f.Entries())
	}
	return d.cache.get(f)
}

// Decode reconstructs the original bytes held by c.
func (d *Decoder) Decode(c *Container) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil container", ErrCorrupt)
	}
	if c.BitLength > uint64(len(c.Payload))*8 {
		return nil, fmt.Errorf("%w: bit length %d exceeds payload of %d bytes", ErrCorrupt, c.BitLength, len(c.Payload))
	}

	total := c.Frequencies.Total()
	if limit := d.config.MaxDecodedBytes; limit > 0 && total > limit {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, total, limit)
	}
	root := d.buildTree(&c.Frequencies)
	if root == nil {
		if c.BitLength != 0 {
			return nil, fmt.Errorf("%w: %d bits with an empty frequency table", ErrCorrupt, c.BitLength)
		}
		out := []byte{}
		return out, verifyChecksum(c, out)
	}

	// Every code is at least one bit long, so BitLength bounds the output.
	out := make([]byte, 0, min(total, c.BitLength))
	br := bitio.NewReader(bytes.NewReader(c.Payload), c.BitLength)
	w := tree.NewWalker(root)
	for pos := uint64(0); br.Remaining() > 0; pos++ {
		bit, err := br.ReadBit()
		if err != nil {
			return nil, fmt.Errorf("%w: read bit %d: %w", ErrCorrupt, pos, err)
		}
		sym, ok, err := w.Step(bit)
		if err != nil {
			return nil, fmt.Errorf("%w: bit %d after %d symbols: %w", ErrCorrupt, pos, len(out), err)
		}
		if ok {
			if uint64(len(out)) == total {
				return nil, fmt.Errorf("%w: more symbols than the frequency table holds (%d)", ErrCorrupt, total)
			}
			out = append(out, sym)
		}
	}
	if !w.AtRoot() {
		return nil, fmt.Errorf("%w: bit stream ends inside a code after %d symbols", ErrCorrupt, len(out))
	}
	if uint64(len(out)) != total {
		return nil, fmt.Errorf("%w: decoded %d symbols, frequency table holds %d", ErrCorrupt, len(out), total)
	}
	if err := verifyChecksum(c, out); err != nil {
		return nil, err
	}
	d.config.Logger.Debugf("decoded %d bytes from %d bits", len(out), c.BitLength)
	return out, nil
}

func verifyChecksum(c *Container, out []byte) error {
	if !c.HasChecksum {
		return nil
	}
	if got := xxhash.Sum64(out); got != c.Checksum {
		return fmt.Errorf("%w: got %016x, want %016x", ErrChecksum, got, c.Checksum)
	}
	return nil
}

// Compress encodes src with default options and returns the serialized container.
func Compress(src []byte, opts ...Option) ([]byte, error) {
	c, err := NewEncoder(opts...).Encode(src)
	if err != nil {
		return nil, err
	}
	return c.MarshalBinary()
}

// Decompress parses a serialized container and returns the original bytes.
func Decompress(data []byte, opts ...Option) ([]byte, error) {
	var c Container
	if err := c.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	d, err := NewDecoder(opts...)
	if err != nil {
		return nil, err
	}
	return d.Decode(&c)
}
