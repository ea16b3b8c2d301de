package snapshot

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/pauliframe/blobstore"
	"github.com/hupe1980/pauliframe/circuit"
	"github.com/hupe1980/pauliframe/codec"
	"github.com/hupe1980/pauliframe/frame"
	"github.com/hupe1980/pauliframe/internal/rng"
	"github.com/hupe1980/pauliframe/noise"
	"github.com/hupe1980/pauliframe/resource"
)

func buildEnsemble(t *testing.T, frames int) *frame.Ensemble {
	t.Helper()

	c := circuit.New(
		circuit.H(0),
		circuit.CNOT(0, 1),
		circuit.NoiseEverywhere(noise.NewUnbiasedUncorrelated(0.05)),
		circuit.Measure(0, 0),
		circuit.Measure(1, 1),
		circuit.MeasureReset(2, 2),
	)

	r := rng.New(7)
	ens, err := frame.New(frames, 3, 3, r)
	require.NoError(t, err)
	require.NoError(t, ens.RunCircuit(c, r))

	return ens
}

func requireMatches(t *testing.T, ens *frame.Ensemble, snap *Snapshot) {
	t.Helper()

	require.Equal(t, ens.Frames(), snap.Meta.Frames)
	require.Equal(t, ens.Qubits(), snap.Meta.Qubits)
	require.Equal(t, ens.Measurements(), snap.Meta.Measurements)
	require.Equal(t, ens.Tableau().Words(), snap.Meta.Words)

	for b := 0; b < ens.Measurements(); b++ {
		for f := 0; f < ens.Frames(); f++ {
			require.Equal(t, ens.Result(f, b), snap.Result(f, b), "bit %d frame %d", b, f)
		}
	}

	tab := ens.Tableau()
	for q := 0; q < ens.Qubits(); q++ {
		require.Equal(t, tab.XRow(q), snap.XRow(q))
		require.Equal(t, tab.ZRow(q), snap.ZRow(q))
	}

	for b := 0; b < ens.Measurements(); b++ {
		require.True(t, ens.FlippedFrames(b).Equals(snap.FlippedFrames(b)), "flip set %d", b)
	}
}

func TestRoundtrip(t *testing.T) {
	ens := buildEnsemble(t, 1000)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, ens))

	snap, err := Decode(buf.Bytes())
	require.NoError(t, err)
	requireMatches(t, ens, snap)
}

func TestRoundtripCompressionVariants(t *testing.T) {
	ens := buildEnsemble(t, 320)

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, ens, WithCompression(c)))

		snap, err := Decode(buf.Bytes())
		require.NoError(t, err, "compression %d", c)
		requireMatches(t, ens, snap)
	}
}

func TestRoundtripJSONCodec(t *testing.T) {
	ens := buildEnsemble(t, 128)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, ens, WithCodec(codec.JSON{})))

	snap, err := Decode(buf.Bytes())
	require.NoError(t, err)
	requireMatches(t, ens, snap)
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	ens := buildEnsemble(t, 256)
	store := blobstore.NewMemoryStore()

	require.NoError(t, Save(ctx, store, "runs/bell.pfsn", ens))

	snap, err := Load(ctx, store, "runs/bell.pfsn")
	require.NoError(t, err)
	requireMatches(t, ens, snap)
}

func TestSaveRateLimited(t *testing.T) {
	ctx := context.Background()
	ens := buildEnsemble(t, 256)
	store := blobstore.NewMemoryStore()

	rc := resource.NewController(resource.Config{IOLimitBytesPerSec: 64 << 20})
	require.NoError(t, Save(ctx, store, "runs/limited.pfsn", ens, WithController(rc)))

	snap, err := Load(ctx, store, "runs/limited.pfsn")
	require.NoError(t, err)
	requireMatches(t, ens, snap)
}

func TestLoadMissing(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	_, err := Load(ctx, store, "runs/nope.pfsn")
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestDecodeBadMagic(t *testing.T) {
	_, err := Decode([]byte("NOPE\x01\x00\x00\x00"))
	require.ErrorContains(t, err, "bad magic")
}

func TestDecodeUnsupportedVersion(t *testing.T) {
	ens := buildEnsemble(t, 64)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, ens))

	data := buf.Bytes()
	data[4] = 0xFF

	_, err := Decode(data)
	require.ErrorContains(t, err, "unsupported version")
}

func TestDecodeCorruptSection(t *testing.T) {
	ens := buildEnsemble(t, 64)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, ens))

	data := buf.Bytes()
	data[len(data)-1] ^= 0xFF

	_, err := Decode(data)
	require.ErrorContains(t, err, "checksum mismatch")
}

func TestDecodeUnknownCodec(t *testing.T) {
	ens := buildEnsemble(t, 64)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, ens))

	data := buf.Bytes()
	copy(data[8:], "xml") // codec name is "go-json", overwrite in place

	_, err := Decode(data)
	require.ErrorContains(t, err, "unknown codec")
}

func TestCompressBlockRoundtrip(t *testing.T) {
	compressible := bytes.Repeat([]byte("pauliframe"), 500)
	short := []byte{1, 2, 3}

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		for _, in := range [][]byte{compressible, short, nil} {
			block, err := compressBlock(in, c)
			require.NoError(t, err)

			out, err := decompressBlock(block, c)
			require.NoError(t, err)
			require.Equal(t, len(in), len(out))
			require.Equal(t, []byte(in), []byte(out))
		}
	}
}

func TestIncompressibleFallsBackToStored(t *testing.T) {
	r := rng.New(99)
	noise := make([]byte, 4096)
	for i := 0; i < len(noise); i += 8 {
		v := r.Uint64()
		for j := 0; j < 8; j++ {
			noise[i+j] = byte(v >> (8 * j))
		}
	}

	block, err := compressBlock(noise, CompressionLZ4)
	require.NoError(t, err)
	// CompressedSize == 0 marks a stored block.
	require.Equal(t, []byte{0, 0, 0, 0}, block[4:8])

	out, err := decompressBlock(block, CompressionLZ4)
	require.NoError(t, err)
	require.Equal(t, noise, out)
}
