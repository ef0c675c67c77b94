package huffz

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/seiflotfy/huffz/bitio"
)

const (
	containerMagic   = "HUFZ"
	containerVersion = uint16(1)

	stageFrequencies = "frequencies"
	stageBitLength   = "bit_length"
	stagePayload     = "payload"
	stageChecksum    = "checksum"

	stagePayloadParamRaw  = uint8(0) // packed bits as written
	stagePayloadParamZstd = uint8(1) // zstd(packed bits)

	maxContainerStages   = 64
	maxStagePayloadBytes = 1 << 30 // 1 GiB
	maxFrequenciesBytes  = binary.MaxVarintLen16 + 256*(1+binary.MaxVarintLen64)
)

// Wire format (version 1):
//
//	magic[4] = "HUFZ"
//	version  = uint16 little-endian
//	stageCnt = uint16 little-endian
//	repeat stageCnt times:
//	  nameLen  = uint8
//	  paramLen = uint16 little-endian
//	  dataLen  = uint32 little-endian
//	  name     = nameLen bytes
//	  params   = paramLen bytes
//	  payload  = dataLen bytes
//
// Required stage names:
//
//	frequencies, bit_length, payload
//
// The optional checksum stage holds an xxhash64 of the original content.
// Unknown stages are skipped via dataLen framing.
type wireStageHeader struct {
	name     string
	paramLen uint16
	dataLen  uint32
}

func writeBytes(w io.Writer, b []byte) (int64, error) {
	n, err := w.Write(b)
	if err != nil {
		return int64(n), err
	}
	if n != len(b) {
		return int64(n), io.ErrShortWrite
	}
	return int64(n), nil
}

func writeStage(w io.Writer, name string, params []byte, payload []byte) (int64, error) {
	if len(name) == 0 || len(name) > 255 {
		return 0, fmt.Errorf("invalid stage name length: %d", len(name))
	}
	if len(params) > int(^uint16(0)) {
		return 0, fmt.Errorf("stage params too large for %q: %d", name, len(params))
	}
	if len(payload) > maxStagePayloadBytes {
		return 0, fmt.Errorf("stage payload too large for %q: %d", name, len(payload))
	}

	var hdr [7]byte
	hdr[0] = uint8(len(name))
	binary.LittleEndian.PutUint16(hdr[1:3], uint16(len(params)))
	binary.LittleEndian.PutUint32(hdr[3:7], uint32(len(payload)))

	var total int64
	for _, part := range [][]byte{hdr[:], []byte(name), params, payload} {
		n, err := writeBytes(w, part)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func readStageHeader(r io.Reader) (wireStageHeader, int64, error) {
	var hdr [7]byte
	n, err := io.ReadFull(r, hdr[:])
	total := int64(n)
	if err != nil {
		return wireStageHeader{}, total, err
	}
	nameLen := hdr[0]
	if nameLen == 0 {
		return wireStageHeader{}, total, fmt.Errorf("stage name length must be > 0")
	}
	dataLen := binary.LittleEndian.Uint32(hdr[3:7])
	if dataLen > uint32(maxStagePayloadBytes) {
		return wireStageHeader{}, total, fmt.Errorf("stage payload too large: %d", dataLen)
	}

	nameBytes := make([]byte, int(nameLen))
	n, err = io.ReadFull(r, nameBytes)
	total += int64(n)
	if err != nil {
		return wireStageHeader{}, total, err
	}

	return wireStageHeader{
		name:     string(nameBytes),
		paramLen: binary.LittleEndian.Uint16(hdr[1:3]),
		dataLen:  dataLen,
	}, total, nil
}

// readStagePayload grows its buffer as bytes arrive, so a forged dataLen cannot
// force a large allocation up front.
func readStagePayload(r io.Reader, dataLen uint32) ([]byte, int64, error) {
	var buf bytes.Buffer
	n, err := io.CopyN(&buf, r, int64(dataLen))
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return buf.Bytes(), n, err
}

// Container is the self-describing compressed form of one input.
type Container struct {
	Frequencies FrequencyTable // Symbol counts; the decoder rebuilds the tree from these
	BitLength   uint64         // Number of meaningful bits in Payload
	Payload     []byte         // Packed codes, MSB first, last byte zero-padded
	Checksum    uint64         // xxhash64 of the original content
	HasChecksum bool

	// Whether WriteTo may store the payload zstd-compressed.
	payloadCompression bool
}

// Stats summarizes a container.
type Stats struct {
	OriginalBytes uint64
	Symbols       int
	BitLength     uint64
	PayloadBytes  int
	MeanCodeLen   float64 // bits per original byte
}

// Stats reports sizes derived from the container fields.
func (c *Container) Stats() Stats {
	s := Stats{
		OriginalBytes: c.Frequencies.Total(),
		Symbols:       c.Frequencies.Len(),
		BitLength:     c.BitLength,
		PayloadBytes:  len(c.Payload),
	}
	if s.OriginalBytes > 0 {
		s.MeanCodeLen = float64(c.BitLength) / float64(s.OriginalBytes)
	}
	return s
}

// Ratio returns original size divided by packed payload size, or 0 for empty input.
func (s Stats) Ratio() float64 {
	if s.PayloadBytes == 0 {
		return 0
	}
	return float64(s.OriginalBytes) / float64(s.PayloadBytes)
}

func encodePayloadStage(c *Container) ([]byte, uint8, error) {
	if !c.payloadCompression || len(c.Payload) == 0 {
		return c.Payload, stagePayloadParamRaw, nil
	}
	zenc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, 0, err
	}
	defer zenc.Close()
	packed := zenc.EncodeAll(c.Payload, nil)
	if len(packed) >= len(c.Payload) {
		return c.Payload, stagePayloadParamRaw, nil
	}
	return packed, stagePayloadParamZstd, nil
}

func decodePayloadStage(dst *Container, params []byte, payload []byte) error {
	if len(params) != 1 {
		return fmt.Errorf("payload: expected 1 param byte, got %d", len(params))
	}
	switch params[0] {
	case stagePayloadParamRaw:
		dst.Payload = append([]byte(nil), payload...)
	case stagePayloadParamZstd:
		zdec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1), zstd.WithDecoderMaxMemory(maxStagePayloadBytes))
		if err != nil {
			return err
		}
		defer zdec.Close()
		raw, err := zdec.DecodeAll(payload, nil)
		if err != nil {
			return fmt.Errorf("payload: zstd: %w", err)
		}
		dst.Payload = raw
		dst.payloadCompression = true
	default:
		return fmt.Errorf("payload: unsupported param: %d", params[0])
	}
	return nil
}

func decodeBitLengthStage(dst *Container, payload []byte) error {
	v, n := binary.Uvarint(payload)
	if n <= 0 || n != len(payload) {
		return fmt.Errorf("bit_length: malformed uvarint")
	}
	dst.BitLength = v
	return nil
}

func decodeChecksumStage(dst *Container, payload []byte) error {
	if len(payload) != 8 {
		return fmt.Errorf("checksum: expected 8 bytes, got %d", len(payload))
	}
	dst.Checksum = binary.LittleEndian.Uint64(payload)
	dst.HasChecksum = true
	return nil
}

func validateContainerStructure(c *Container) error {
	if c.BitLength > uint64(len(c.Payload))*8 {
		return fmt.Errorf("bit length %d exceeds payload of %d bytes", c.BitLength, len(c.Payload))
	}
	if want := bitio.PackedLen(c.BitLength); uint64(len(c.Payload)) != want {
		return fmt.Errorf("payload is %d bytes, bit length %d needs %d", len(c.Payload), c.BitLength, want)
	}
	if c.Frequencies.Len() == 0 && c.BitLength != 0 {
		return fmt.Errorf("%d bits with an empty frequency table", c.BitLength)
	}
	return nil
}

// WriteTo serializes the container.
func (c *Container) WriteTo(w io.Writer) (int64, error) {
	if err := validateContainerStructure(c); err != nil {
		return 0, fmt.Errorf("invalid container: %w", err)
	}

	payload, payloadParam, err := encodePayloadStage(c)
	if err != nil {
		return 0, err
	}

	stages := []struct {
		name    string
		params  []byte
		payload []byte
	}{
		{
			name:    stageFrequencies,
			payload: appendFrequencies(nil, &c.Frequencies),
		},
		{
			name:    stageBitLength,
			payload: binary.AppendUvarint(nil, c.BitLength),
		},
		{
			name:    stagePayload,
			params:  []byte{payloadParam},
			payload: payload,
		},
	}
	if c.HasChecksum {
		stages = append(stages, struct {
			name    string
			params  []byte
			payload []byte
		}{
			name:    stageChecksum,
			payload: binary.LittleEndian.AppendUint64(nil, c.Checksum),
		})
	}

	var total int64
	n, err := writeBytes(w, []byte(containerMagic))
	total += n
	if err != nil {
		return total, err
	}

	var hdr [4]byte
	binary.LittleEndian.PutUint16(hdr[0:2], containerVersion)
	binary.LittleEndian.PutUint16(hdr[2:4], uint16(len(stages)))
	n, err = writeBytes(w, hdr[:])
	total += n
	if err != nil {
		return total, err
	}

	for _, stage := range stages {
		n, err := writeStage(w, stage.name, stage.params, stage.payload)
		total += n
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

// ReadFrom parses a serialized container. Any structural problem is reported as ErrCorrupt.
func (c *Container) ReadFrom(r io.Reader) (int64, error) {
	total, err := c.readFrom(r)
	if err != nil {
		return total, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return total, nil
}

func (c *Container) readFrom(r io.Reader) (int64, error) {
	var total int64
	var magic [4]byte
	n, err := io.ReadFull(r, magic[:])
	total += int64(n)
	if err != nil {
		return total, fmt.Errorf("read container magic at offset 0: %w", err)
	}
	if string(magic[:]) != containerMagic {
		return total, fmt.Errorf("invalid container magic at offset 0: %q", string(magic[:]))
	}

	var hdr [4]byte
	n, err = io.ReadFull(r, hdr[:])
	total += int64(n)
	if err != nil {
		return total, fmt.Errorf("read container header at offset 4: %w", err)
	}
	if version := binary.LittleEndian.Uint16(hdr[0:2]); version != containerVersion {
		return total, fmt.Errorf("unsupported container version at offset 4: %d", version)
	}
	stageCount := binary.LittleEndian.Uint16(hdr[2:4])
	if stageCount == 0 || stageCount > maxContainerStages {
		return total, fmt.Errorf("invalid stage count at offset 6: %d", stageCount)
	}

	var tmp Container
	seenStages := make(map[string]bool, stageCount)

	for i := 0; i < int(stageCount); i++ {
		headerOffset := total
		header, n, err := readStageHeader(r)
		total += n
		if err != nil {
			return total, fmt.Errorf("read stage header at offset %d (stage index %d): %w", headerOffset, i, err)
		}
		if seenStages[header.name] {
			return total, fmt.Errorf("duplicate stage %q at stage index %d", header.name, i)
		}

		params := make([]byte, int(header.paramLen))
		paramsOffset := total
		nParams, err := io.ReadFull(r, params)
		total += int64(nParams)
		if err != nil {
			return total, fmt.Errorf("read stage %q params at offset %d (stage index %d): %w", header.name, paramsOffset, i, err)
		}

		switch header.name {
		case stageFrequencies, stageBitLength, stagePayload, stageChecksum:
			if header.name == stageFrequencies && header.dataLen > maxFrequenciesBytes {
				return total, fmt.Errorf("stage %q too large at offset %d: %d", header.name, total, header.dataLen)
			}
			payloadOffset := total
			payload, nPayload, err := readStagePayload(r, header.dataLen)
			total += nPayload
			if err != nil {
				return total, fmt.Errorf("read stage %q payload at offset %d (stage index %d): %w", header.name, payloadOffset, i, err)
			}

			var decodeErr error
			switch header.name {
			case stageFrequencies:
				tmp.Frequencies, decodeErr = decodeFrequencies(payload)
			case stageBitLength:
				decodeErr = decodeBitLengthStage(&tmp, payload)
			case stagePayload:
				decodeErr = decodePayloadStage(&tmp, params, payload)
			case stageChecksum:
				decodeErr = decodeChecksumStage(&tmp, payload)
			}
			if decodeErr != nil {
				return total, fmt.Errorf("decode stage %q at offset %d (stage index %d): %w", header.name, payloadOffset, i, decodeErr)
			}
			seenStages[header.name] = true

		default:
			skipOffset := total
			skipped, err := io.CopyN(io.Discard, r, int64(header.dataLen))
			total += skipped
			if err != nil {
				return total, fmt.Errorf("skip unknown stage %q at offset %d (stage index %d): %w", header.name, skipOffset, i, err)
			}
		}
	}

	for _, stageName := range []string{stageFrequencies, stageBitLength, stagePayload} {
		if !seenStages[stageName] {
			return total, fmt.Errorf("missing required stage %q", stageName)
		}
	}
	if err := validateContainerStructure(&tmp); err != nil {
		return total, fmt.Errorf("invalid container structure: %w", err)
	}

	*c = tmp
	return total, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (c *Container) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. Trailing bytes are rejected.
func (c *Container) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	if _, err := c.ReadFrom(r); err != nil {
		return err
	}
	if r.Len() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, r.Len())
	}
	return nil
}
