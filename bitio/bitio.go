// Package bitio packs and unpacks most-significant-bit-first bit streams.
//
// A packed stream is a sequence of bytes whose final byte is zero-padded on the
// right. The exact number of meaningful bits is tracked by the Writer and must be
// supplied to the Reader, since padding is indistinguishable from data.
package bitio

import (
	"errors"
	"io"

	bitstream "github.com/dgryski/go-bitstream"
)

// ErrShortStream is returned when the underlying data ends before the declared bit length.
var ErrShortStream = errors.New("bit stream shorter than declared length")

// Writer packs bits into bytes, most significant bit first.
type Writer struct {
	bw *bitstream.BitWriter
	n  uint64
}

// NewWriter returns a Writer that emits packed bytes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bitstream.NewWriter(w)}
}

// WriteBit appends a single bit.
func (w *Writer) WriteBit(one bool) error {
	if err := w.bw.WriteBit(bitstream.Bit(one)); err != nil {
		return err
	}
	w.n++
	return nil
}

// WriteBits appends the low nbits of bits, highest of them first.
func (w *Writer) WriteBits(bits uint64, nbits int) error {
	if nbits <= 0 {
		return nil
	}
	if err := w.bw.WriteBits(bits, nbits); err != nil {
		return err
	}
	w.n += uint64(nbits)
	return nil
}

// Len returns the number of bits written so far, excluding padding.
func (w *Writer) Len() uint64 {
	return w.n
}

// Close zero-pads the final partial byte and writes it out.
// Close does not close the underlying writer.
func (w *Writer) Close() error {
	return w.bw.Flush(bitstream.Zero)
}

// PackedLen returns the number of bytes needed to hold nbits.
func PackedLen(nbits uint64) uint64 {
	return (nbits + 7) / 8
}

// Reader unpacks at most a fixed number of bits, most significant bit first.
type Reader struct {
	br    *bitstream.BitReader
	limit uint64
	pos   uint64
}

// NewReader returns a Reader that yields exactly nbits bits from r and ignores the rest.
func NewReader(r io.Reader, nbits uint64) *Reader {
	return &Reader{br: bitstream.NewReader(fullReader{r}), limit: nbits}
}

// fullReader turns empty reads into io.EOF so that a stalled source cannot be
// mistaken for a zero bit.
type fullReader struct {
	r io.Reader
}

func (f fullReader) Read(p []byte) (int, error) {
	return io.ReadFull(f.r, p)
}

// ReadBit returns the next bit. It returns io.EOF once the declared length has been
// consumed and ErrShortStream if r runs dry first.
func (r *Reader) ReadBit() (bool, error) {
	if r.pos >= r.limit {
		return false, io.EOF
	}
	bit, err := r.br.ReadBit()
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, ErrShortStream
		}
		return false, err
	}
	r.pos++
	return bool(bit), nil
}

// Remaining returns the number of bits left before the declared length.
func (r *Reader) Remaining() uint64 {
	return r.limit - r.pos
}
