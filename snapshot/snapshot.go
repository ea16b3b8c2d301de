// Package snapshot persists simulation results in a self-describing binary
// format. A snapshot captures an ensemble's shape, its relative measurement
// matrix and the final error planes, so results can be archived and inspected
// without replaying the circuit.
//
// Files start with a fixed header carrying a magic number, a format version,
// the block compression and the metadata codec name. Sections follow
// sequentially, each preceded by its type, length and a CRC32 checksum.
// Readers select the codec by the stored name, so the default codec can
// change without breaking existing files.
package snapshot

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/pauliframe/blobstore"
	"github.com/hupe1980/pauliframe/codec"
	"github.com/hupe1980/pauliframe/frame"
	"github.com/hupe1980/pauliframe/resource"
)

var magic = [4]byte{'P', 'F', 'S', 'N'}

const formatVersion uint16 = 1

const (
	sectionMeta         uint16 = 1
	sectionMeasurements uint16 = 2
	sectionXPlane       uint16 = 3
	sectionZPlane       uint16 = 4
	sectionFlipSets     uint16 = 5
)

const sectionHeaderSize = 12

// Meta describes the shape of a stored ensemble.
type Meta struct {
	Frames       int   `json:"frames"`
	Qubits       int   `json:"qubits"`
	Measurements int   `json:"measurements"`
	Words        int   `json:"words"`
	CreatedUnix  int64 `json:"createdUnix"`
}

// Options configure snapshot encoding.
type Options struct {
	// Codec encodes the metadata section. Defaults to codec.Default.
	Codec codec.Codec
	// Compression selects the block compression for packed sections.
	Compression Compression
	// Controller throttles store writes. Nil means unlimited.
	Controller *resource.Controller
}

// Option customizes snapshot encoding.
type Option func(*Options)

// WithCodec sets the metadata codec.
func WithCodec(c codec.Codec) Option {
	return func(o *Options) { o.Codec = c }
}

// WithCompression sets the block compression.
func WithCompression(c Compression) Option {
	return func(o *Options) { o.Compression = c }
}

// WithController rate-limits snapshot IO through rc.
func WithController(rc *resource.Controller) Option {
	return func(o *Options) { o.Controller = rc }
}

func applyOptions(optFns []Option) Options {
	opts := Options{
		Codec:       codec.Default,
		Compression: CompressionLZ4,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// Write encodes ens to w.
func Write(w io.Writer, ens *frame.Ensemble, optFns ...Option) error {
	opts := applyOptions(optFns)

	name := opts.Codec.Name()
	if len(name) > 255 {
		return fmt.Errorf("snapshot: codec name %q too long", name)
	}

	header := make([]byte, 8+len(name))
	copy(header[0:4], magic[:])
	binary.LittleEndian.PutUint16(header[4:], formatVersion)
	header[6] = byte(opts.Compression)
	header[7] = byte(len(name))
	copy(header[8:], name)

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("snapshot: write header: %w", err)
	}

	tab := ens.Tableau()
	meta := Meta{
		Frames:       ens.Frames(),
		Qubits:       ens.Qubits(),
		Measurements: ens.Measurements(),
		Words:        tab.Words(),
		CreatedUnix:  time.Now().Unix(),
	}

	metaBytes, err := opts.Codec.Marshal(meta)
	if err != nil {
		return fmt.Errorf("snapshot: marshal meta: %w", err)
	}

	if err := writeSection(w, sectionMeta, metaBytes, opts.Compression); err != nil {
		return err
	}

	if err := writeSection(w, sectionMeasurements, packRows(ens.Relative()), opts.Compression); err != nil {
		return err
	}

	xRows := make([][]uint64, ens.Qubits())
	zRows := make([][]uint64, ens.Qubits())
	for q := range xRows {
		xRows[q] = tab.XRow(q)
		zRows[q] = tab.ZRow(q)
	}

	if err := writeSection(w, sectionXPlane, packRows(xRows), opts.Compression); err != nil {
		return err
	}

	if err := writeSection(w, sectionZPlane, packRows(zRows), opts.Compression); err != nil {
		return err
	}

	flipSets, err := packFlipSets(ens)
	if err != nil {
		return err
	}
	// Roaring's own format is already compact; store the section raw.
	return writeSection(w, sectionFlipSets, flipSets, CompressionNone)
}

// packFlipSets serializes the per-bit flipped-frame sets. Readers that only
// want the sparse sets skip decompressing the dense measurement matrix.
func packFlipSets(ens *frame.Ensemble) ([]byte, error) {
	var buf bytes.Buffer

	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], uint32(ens.Measurements()))
	buf.Write(count[:])

	for b := 0; b < ens.Measurements(); b++ {
		data, err := ens.FlippedFrames(b).ToBytes()
		if err != nil {
			return nil, fmt.Errorf("snapshot: serialize flip set %d: %w", b, err)
		}

		var size [4]byte
		binary.LittleEndian.PutUint32(size[:], uint32(len(data)))
		buf.Write(size[:])
		buf.Write(data)
	}

	return buf.Bytes(), nil
}

func unpackFlipSets(data []byte, bits int) ([]*roaring.Bitmap, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("snapshot: flip set section truncated")
	}
	if got := int(binary.LittleEndian.Uint32(data)); got != bits {
		return nil, fmt.Errorf("snapshot: flip set count %d does not match %d measurement bits", got, bits)
	}
	data = data[4:]

	out := make([]*roaring.Bitmap, bits)
	for b := range out {
		if len(data) < 4 {
			return nil, fmt.Errorf("snapshot: flip set %d truncated", b)
		}
		size := int(binary.LittleEndian.Uint32(data))
		data = data[4:]
		if len(data) < size {
			return nil, fmt.Errorf("snapshot: flip set %d truncated", b)
		}

		rb := roaring.New()
		if err := rb.UnmarshalBinary(data[:size]); err != nil {
			return nil, fmt.Errorf("snapshot: flip set %d: %w", b, err)
		}
		out[b] = rb
		data = data[size:]
	}

	return out, nil
}

func writeSection(w io.Writer, typ uint16, data []byte, c Compression) error {
	payload, err := compressBlock(data, c)
	if err != nil {
		return fmt.Errorf("snapshot: compress section %d: %w", typ, err)
	}

	var header [sectionHeaderSize]byte
	binary.LittleEndian.PutUint16(header[0:], typ)
	binary.LittleEndian.PutUint32(header[4:], uint32(len(payload)))
	binary.LittleEndian.PutUint32(header[8:], crc32.ChecksumIEEE(payload))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("snapshot: write section %d header: %w", typ, err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("snapshot: write section %d payload: %w", typ, err)
	}

	return nil
}

func packRows(rows [][]uint64) []byte {
	if len(rows) == 0 {
		return nil
	}

	words := len(rows[0])
	out := make([]byte, len(rows)*words*8)
	off := 0

	for _, row := range rows {
		for _, w := range row {
			binary.LittleEndian.PutUint64(out[off:], w)
			off += 8
		}
	}

	return out
}

func unpackRows(data []byte, rows, words int) ([][]uint64, error) {
	if len(data) != rows*words*8 {
		return nil, fmt.Errorf("snapshot: plane size %d does not match %d rows of %d words", len(data), rows, words)
	}

	backing := make([]uint64, rows*words)
	for i := range backing {
		backing[i] = binary.LittleEndian.Uint64(data[i*8:])
	}

	out := make([][]uint64, rows)
	for r := range out {
		out[r] = backing[r*words : (r+1)*words : (r+1)*words]
	}

	return out, nil
}

// Snapshot is a decoded, read-only view of a stored ensemble.
type Snapshot struct {
	Meta Meta

	measurements [][]uint64
	x            [][]uint64
	z            [][]uint64
	flipSets     []*roaring.Bitmap
}

// Result reports whether frame f flipped recorded bit b relative to the
// reference trajectory.
func (s *Snapshot) Result(f, b int) bool {
	return s.measurements[b][f/64]&(1<<(uint(f)%64)) != 0
}

// MeasurementRow returns the packed row for recorded bit b.
func (s *Snapshot) MeasurementRow(b int) []uint64 { return s.measurements[b] }

// XRow returns the packed final X error row of qubit q.
func (s *Snapshot) XRow(q int) []uint64 { return s.x[q] }

// ZRow returns the packed final Z error row of qubit q.
func (s *Snapshot) ZRow(q int) []uint64 { return s.z[q] }

// FlippedFrames returns the stored set of frames whose outcome for bit b
// differs from the reference.
func (s *Snapshot) FlippedFrames(b int) *roaring.Bitmap { return s.flipSets[b] }

// Decode parses a snapshot from data.
func Decode(data []byte) (*Snapshot, error) {
	if len(data) < 8 || !bytes.Equal(data[0:4], magic[:]) {
		return nil, fmt.Errorf("snapshot: bad magic")
	}

	version := binary.LittleEndian.Uint16(data[4:])
	if version != formatVersion {
		return nil, fmt.Errorf("snapshot: unsupported version %d", version)
	}

	compression := Compression(data[6])
	nameLen := int(data[7])
	if len(data) < 8+nameLen {
		return nil, fmt.Errorf("snapshot: truncated header")
	}

	codecName := string(data[8 : 8+nameLen])
	cdc, ok := codec.ByName(codecName)
	if !ok {
		return nil, fmt.Errorf("snapshot: unknown codec %q", codecName)
	}

	sections := map[uint16][]byte{}
	rest := data[8+nameLen:]

	for len(rest) > 0 {
		if len(rest) < sectionHeaderSize {
			return nil, fmt.Errorf("snapshot: truncated section header")
		}

		typ := binary.LittleEndian.Uint16(rest[0:])
		payloadLen := int(binary.LittleEndian.Uint32(rest[4:]))
		sum := binary.LittleEndian.Uint32(rest[8:])
		rest = rest[sectionHeaderSize:]

		if len(rest) < payloadLen {
			return nil, fmt.Errorf("snapshot: truncated section %d", typ)
		}

		payload := rest[:payloadLen]
		rest = rest[payloadLen:]

		if crc32.ChecksumIEEE(payload) != sum {
			return nil, fmt.Errorf("snapshot: checksum mismatch in section %d", typ)
		}

		decoded, err := decompressBlock(payload, compression)
		if err != nil {
			return nil, fmt.Errorf("snapshot: section %d: %w", typ, err)
		}

		sections[typ] = decoded
	}

	metaBytes, ok := sections[sectionMeta]
	if !ok {
		return nil, fmt.Errorf("snapshot: missing meta section")
	}

	var meta Meta
	if err := cdc.Unmarshal(metaBytes, &meta); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal meta: %w", err)
	}

	measurements, err := unpackRows(sections[sectionMeasurements], meta.Measurements, meta.Words)
	if err != nil {
		return nil, err
	}

	x, err := unpackRows(sections[sectionXPlane], meta.Qubits, meta.Words)
	if err != nil {
		return nil, err
	}

	z, err := unpackRows(sections[sectionZPlane], meta.Qubits, meta.Words)
	if err != nil {
		return nil, err
	}

	flipSets, err := unpackFlipSets(sections[sectionFlipSets], meta.Measurements)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Meta:         meta,
		measurements: measurements,
		x:            x,
		z:            z,
		flipSets:     flipSets,
	}, nil
}

// Save writes ens to store under name, throttled by the configured
// resource controller.
func Save(ctx context.Context, store blobstore.BlobStore, name string, ens *frame.Ensemble, optFns ...Option) error {
	opts := applyOptions(optFns)

	wb, err := store.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("snapshot: create %s: %w", name, err)
	}

	w := resource.NewRateLimitedWriter(ctx, wb, opts.Controller)
	if err := Write(w, ens, optFns...); err != nil {
		_ = wb.Close()
		return err
	}

	if err := wb.Close(); err != nil {
		return fmt.Errorf("snapshot: finalize %s: %w", name, err)
	}

	return nil
}

// Load reads and decodes the snapshot stored under name. Memory-mapped
// stores decode without an extra read of the raw bytes.
func Load(ctx context.Context, store blobstore.BlobStore, name string) (*Snapshot, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open %s: %w", name, err)
	}
	defer blob.Close()

	data, err := blobstore.ReadAll(ctx, blob)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", name, err)
	}

	return Decode(data)
}
