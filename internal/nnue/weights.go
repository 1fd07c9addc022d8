package nnue

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
)

// Weight file format (§4.C, §7): a small tensor container rather than a
// flat dump, so a mismatched build fails with a clear tensor name instead
// of a silent shape corruption.
const (
	magicNumber   = 0x4c494152 // "RAIL" little-endian
	formatVersion = 1
)

// tensorSpec describes one named tensor's expected element count, in the
// fixed order they're written to the file.
type tensorSpec struct {
	name     string
	elemSize int
	count    int
}

func (n *Network) tensors() []tensorSpec {
	return []tensorSpec{
		{"feature_weights", 2, InputSize * H1},
		{"feature_bias", 2, H1},
		{"l1_weights", 1, 2 * H1 * H2},
		{"l1_bias", 4, H2},
		{"l2_weights", 1, H2 * H3},
		{"l2_bias", 4, H3},
		{"output_weights", 1, H3},
		{"output_bias", 4, 1},
	}
}

// LoadNetwork reads a network from path. Files named *.zst are
// transparently zstd-decompressed. The payload is checksummed with
// xxhash64 and verified against a trailing 8-byte checksum.
func LoadNetwork(path string) (*Network, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("nnue: open %s: %w", path, err)
	}

	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("nnue: zstd init: %w", err)
		}
		defer dec.Close()
		raw, err = io.ReadAll(dec)
		if err != nil {
			return nil, fmt.Errorf("nnue: zstd decompress %s: %w", path, err)
		}
	}

	if len(raw) < 8 {
		return nil, fmt.Errorf("nnue: %s too short for a checksum trailer", path)
	}
	payload, trailer := raw[:len(raw)-8], raw[len(raw)-8:]
	want := binary.LittleEndian.Uint64(trailer)
	if got := xxhash.Sum64(payload); got != want {
		return nil, fmt.Errorf("nnue: %s checksum mismatch: file corrupt or truncated", path)
	}

	n := NewNetwork()
	if err := n.decode(bytes.NewReader(payload)); err != nil {
		return nil, fmt.Errorf("nnue: %s: %w", path, err)
	}
	return n, nil
}

func (n *Network) decode(r io.Reader) error {
	var magic, version uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return fmt.Errorf("reading magic: %w", err)
	}
	if magic != magicNumber {
		return fmt.Errorf("bad magic %#x, expected %#x", magic, magicNumber)
	}
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return fmt.Errorf("reading version: %w", err)
	}
	if version != formatVersion {
		return fmt.Errorf("unsupported format version %d, expected %d", version, formatVersion)
	}

	dests := n.tensorDests()
	for _, spec := range n.tensors() {
		name, count, err := readTensorHeader(r)
		if err != nil {
			return fmt.Errorf("tensor header: %w", err)
		}
		if name != spec.name {
			return fmt.Errorf("tensor order mismatch: expected %q, got %q", spec.name, name)
		}
		if count != spec.count {
			return fmt.Errorf("tensor %q: expected %d elements, got %d", name, spec.count, count)
		}
		if err := binary.Read(r, binary.LittleEndian, dests[spec.name]); err != nil {
			return fmt.Errorf("tensor %q data: %w", name, err)
		}
	}
	return nil
}

func readTensorHeader(r io.Reader) (name string, count int, err error) {
	var nameLen uint32
	if err = binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
		return "", 0, err
	}
	buf := make([]byte, nameLen)
	if _, err = io.ReadFull(r, buf); err != nil {
		return "", 0, err
	}
	var count64 uint64
	if err = binary.Read(r, binary.LittleEndian, &count64); err != nil {
		return "", 0, err
	}
	return string(buf), int(count64), nil
}

// tensorDests returns pointers to each tensor's backing array, keyed by
// name, so decode can loop generically over n.tensors().
func (n *Network) tensorDests() map[string]interface{} {
	return map[string]interface{}{
		"feature_weights": &n.FeatureWeights,
		"feature_bias":    &n.FeatureBias,
		"l1_weights":      &n.L1Weights,
		"l1_bias":         &n.L1Bias,
		"l2_weights":      &n.L2Weights,
		"l2_bias":         &n.L2Bias,
		"output_weights":  &n.OutputWeights,
		"output_bias":     &n.OutputBias,
	}
}

// SaveNetwork writes n to path in the container format LoadNetwork reads,
// uncompressed. Used by training tooling and tests, not the engine itself.
func SaveNetwork(n *Network, path string) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, uint32(magicNumber)); err != nil {
		return err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(formatVersion)); err != nil {
		return err
	}
	dests := n.tensorDests()
	for _, spec := range n.tensors() {
		if err := binary.Write(&buf, binary.LittleEndian, uint32(len(spec.name))); err != nil {
			return err
		}
		buf.WriteString(spec.name)
		if err := binary.Write(&buf, binary.LittleEndian, uint64(spec.count)); err != nil {
			return err
		}
		if err := binary.Write(&buf, binary.LittleEndian, dests[spec.name]); err != nil {
			return err
		}
	}

	sum := xxhash.Sum64(buf.Bytes())
	var trailer [8]byte
	binary.LittleEndian.PutUint64(trailer[:], sum)
	buf.Write(trailer[:])

	return os.WriteFile(path, buf.Bytes(), 0o644)
}
