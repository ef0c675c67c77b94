package huffz

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"
)

type testStage struct {
	name    string
	params  []byte
	payload []byte
}

func buildContainer(t *testing.T, stages []testStage) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString(containerMagic)
	binary.Write(&buf, binary.LittleEndian, containerVersion)
	binary.Write(&buf, binary.LittleEndian, uint16(len(stages)))
	for _, s := range stages {
		if _, err := writeStage(&buf, s.name, s.params, s.payload); err != nil {
			t.Fatalf("writeStage(%q) failed: %v", s.name, err)
		}
	}
	return buf.Bytes()
}

func abraStages(t *testing.T) []testStage {
	t.Helper()
	c := mustEncode(t, NewEncoder(WithChecksum(false)), []byte("abracadabra"))
	return []testStage{
		{name: stageFrequencies, payload: appendFrequencies(nil, &c.Frequencies)},
		{name: stageBitLength, payload: binary.AppendUvarint(nil, c.BitLength)},
		{name: stagePayload, params: []byte{stagePayloadParamRaw}, payload: c.Payload},
	}
}

func TestContainerWireLayout(t *testing.T) {
	c := mustEncode(t, NewEncoder(WithChecksum(false)), []byte("aab"))
	data, err := c.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	// b (weight 1) pops first and takes the zero branch: b=0, a=1 -> bits 110.
	want := buildContainer(t, []testStage{
		{name: stageFrequencies, payload: []byte{2, 'a', 2, 'b', 1}},
		{name: stageBitLength, payload: []byte{3}},
		{name: stagePayload, params: []byte{stagePayloadParamRaw}, payload: []byte{0xC0}},
	})
	if !bytes.Equal(data, want) {
		t.Errorf("wire bytes:\n got %x\nwant %x", data, want)
	}
}

func TestContainerWriteToReadFrom(t *testing.T) {
	input := []byte("she sells sea shells by the sea shore")
	c := mustEncode(t, NewEncoder(), input)

	var buf bytes.Buffer
	written, err := c.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	if written != int64(buf.Len()) {
		t.Errorf("WriteTo reported %d bytes, buffer has %d", written, buf.Len())
	}

	var loaded Container
	read, err := loaded.ReadFrom(&buf)
	if err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}
	if read != written {
		t.Errorf("ReadFrom consumed %d bytes, WriteTo wrote %d", read, written)
	}
	if loaded.Frequencies != c.Frequencies || loaded.BitLength != c.BitLength ||
		!bytes.Equal(loaded.Payload, c.Payload) || loaded.Checksum != c.Checksum || !loaded.HasChecksum {
		t.Fatalf("loaded container differs from original")
	}
	got, err := mustDecoder(t).Decode(&loaded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(got, input) {
		t.Errorf("got %q, want %q", got, input)
	}
}

func TestContainerZstdStage(t *testing.T) {
	input := bytes.Repeat([]byte("abcdefgh"), 4096)
	raw, err := Compress(input)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	packed, err := Compress(input, WithPayloadCompression(true))
	if err != nil {
		t.Fatalf("Compress with zstd failed: %v", err)
	}
	if len(packed) >= len(raw) {
		t.Errorf("zstd stage did not shrink a periodic payload: %d >= %d", len(packed), len(raw))
	}
	got, err := Decompress(packed)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if !bytes.Equal(got, input) {
		t.Errorf("zstd round trip mismatch")
	}
}

func TestContainerZstdStageSkippedWhenLarger(t *testing.T) {
	input := []byte("abracadabra")
	raw, err := Compress(input)
	if err != nil {
		t.Fatal(err)
	}
	packed, err := Compress(input, WithPayloadCompression(true))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(raw, packed) {
		t.Errorf("tiny payload should stay raw")
	}
}

func TestContainerSkipsUnknownStage(t *testing.T) {
	stages := abraStages(t)
	stages = append(stages[:1], append([]testStage{{name: "future_extension", params: []byte{9}, payload: []byte("ignored")}}, stages[1:]...)...)
	got, err := Decompress(buildContainer(t, stages))
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if string(got) != "abracadabra" {
		t.Errorf("got %q", got)
	}
}

func TestContainerStageOrderIndependent(t *testing.T) {
	stages := abraStages(t)
	stages[0], stages[2] = stages[2], stages[0]
	got, err := Decompress(buildContainer(t, stages))
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if string(got) != "abracadabra" {
		t.Errorf("got %q", got)
	}
}

func TestContainerRejects(t *testing.T) {
	valid := abraStages(t)
	tests := []struct {
		name   string
		data   func() []byte
		errMsg string
	}{
		{
			name:   "bad magic",
			data:   func() []byte { return []byte("NOPE\x01\x00\x03\x00") },
			errMsg: "invalid container magic",
		},
		{
			name: "bad version",
			data: func() []byte {
				b := buildContainer(t, valid)
				b[4] = 9
				return b
			},
			errMsg: "unsupported container version",
		},
		{
			name:   "zero stages",
			data:   func() []byte { return buildContainer(t, nil) },
			errMsg: "invalid stage count",
		},
		{
			name:   "missing payload",
			data:   func() []byte { return buildContainer(t, valid[:2]) },
			errMsg: `missing required stage "payload"`,
		},
		{
			name:   "duplicate stage",
			data:   func() []byte { return buildContainer(t, append(append([]testStage{}, valid...), valid[1])) },
			errMsg: "duplicate stage",
		},
		{
			name: "bit length beyond payload",
			data: func() []byte {
				stages := append([]testStage{}, valid...)
				stages[1] = testStage{name: stageBitLength, payload: binary.AppendUvarint(nil, 8*uint64(len(valid[2].payload))+1)}
				return buildContainer(t, stages)
			},
			errMsg: "exceeds payload",
		},
		{
			name: "payload longer than bit length",
			data: func() []byte {
				stages := append([]testStage{}, valid...)
				stages[2] = testStage{name: stagePayload, params: []byte{0}, payload: append(append([]byte{}, valid[2].payload...), 0)}
				return buildContainer(t, stages)
			},
			errMsg: "needs",
		},
		{
			name: "unknown payload param",
			data: func() []byte {
				stages := append([]testStage{}, valid...)
				stages[2] = testStage{name: stagePayload, params: []byte{7}, payload: valid[2].payload}
				return buildContainer(t, stages)
			},
			errMsg: "unsupported param",
		},
		{
			name: "bad checksum length",
			data: func() []byte {
				return buildContainer(t, append(append([]testStage{}, valid...), testStage{name: stageChecksum, payload: []byte{1, 2}}))
			},
			errMsg: "checksum",
		},
		{
			name: "truncated",
			data: func() []byte {
				b := buildContainer(t, valid)
				return b[:len(b)-1]
			},
			errMsg: "read stage",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Container
			err := c.UnmarshalBinary(tt.data())
			if !errors.Is(err, ErrCorrupt) {
				t.Fatalf("expected ErrCorrupt, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error %q does not mention %q", err, tt.errMsg)
			}
		})
	}
}

func TestContainerTrailingBytes(t *testing.T) {
	data := append(buildContainer(t, abraStages(t)), 0)
	var c Container
	if err := c.UnmarshalBinary(data); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestContainerWriteToRejectsInvalid(t *testing.T) {
	c := &Container{BitLength: 9, Payload: []byte{0}}
	if _, err := c.WriteTo(io.Discard); err == nil {
		t.Fatal("expected error for inconsistent container")
	}
}

func TestWriteStageLimits(t *testing.T) {
	if _, err := writeStage(io.Discard, "", nil, nil); err == nil {
		t.Error("expected error for empty stage name")
	}
	if _, err := writeStage(io.Discard, strings.Repeat("n", 256), nil, nil); err == nil {
		t.Error("expected error for long stage name")
	}
}
