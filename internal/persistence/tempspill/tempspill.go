// Package tempspill is the temporary, non-bit-exact scratch store the
// memory governor pages hot nodes to when resident accepted-point memory
// crosses max_memory_usage_MiB (§4.4.1, §5). It is distinct from the
// permanent node-file layout in persistence.FileNodeStore: pages here
// never appear in the final index, and the driver deletes the scratch
// database when it closes.
package tempspill

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	bolt "go.etcd.io/bbolt"

	"github.com/lodtiler/octiler/internal/data"
	"github.com/lodtiler/octiler/internal/octree"
	"github.com/lodtiler/octiler/internal/tilererr"
)

var pagesBucket = []byte("pages")

// gobPage is the wire shape of one spilled node's accepted points: a gob
// encoding keeps this independent of the bit-exact on-disk record layout,
// which must stay frozen to the final output schema.
type gobPage struct {
	Attributes []data.AttributeKind
	PosX       []float64
	PosY       []float64
	PosZ       []float64
	ColorA     []uint32
	ColorB     []uint32
	Intensity  []uint16
	Class      []uint8
	Normal     [][2]int8
	Index      []uint64
}

// Store is a bbolt-backed scratch database keyed by NodeKey, optionally
// zstd-compressing each page before it hits disk. The encoder/decoder pool
// mirrors the pack's own pooled-codec pattern for avoiding per-call
// allocation of multi-megabyte zstd state.
type Store struct {
	db       *bolt.DB
	compress bool

	encoders sync.Pool
	decoders sync.Pool
}

// Open creates or opens the scratch database at path. compress enables
// zstd compression of spilled pages; it trades CPU for less disk footprint
// under heavy spill pressure.
func Open(path string, compress bool) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: opening temp-spill database: %v", tilererr.ErrPersistence, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(pagesBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: initializing temp-spill bucket: %v", tilererr.ErrPersistence, err)
	}

	s := &Store{db: db, compress: compress}
	s.encoders.New = func() any {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			panic("tempspill: failed to create zstd encoder: " + err.Error())
		}
		return enc
	}
	s.decoders.New = func() any {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			panic("tempspill: failed to create zstd decoder: " + err.Error())
		}
		return dec
	}
	return s, nil
}

// Spill pages a node's accepted batch to disk, overwriting any previous
// page for the same key.
func (s *Store) Spill(key octree.NodeKey, batch *data.PointBatch) error {
	page := toGobPage(batch)
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(page); err != nil {
		return fmt.Errorf("%w: encoding spill page for %s: %v", tilererr.ErrPersistence, key, err)
	}

	payload := buf.Bytes()
	if s.compress {
		enc := s.encoders.Get().(*zstd.Encoder)
		payload = enc.EncodeAll(buf.Bytes(), nil)
		enc.Reset(nil)
		s.encoders.Put(enc)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(pagesBucket)
		stored := make([]byte, len(payload))
		copy(stored, payload)
		return b.Put([]byte(key), stored)
	})
}

// PageIn loads a previously spilled node back into a batch. It returns an
// empty batch, not an error, if the key was never spilled.
func (s *Store) PageIn(key octree.NodeKey, schema *data.Schema) (*data.PointBatch, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(pagesBucket)
		v := b.Get([]byte(key))
		if v != nil {
			raw = make([]byte, len(v))
			copy(raw, v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: reading spill page for %s: %v", tilererr.ErrPersistence, key, err)
	}
	if raw == nil {
		return data.NewPointBatch(schema), nil
	}

	if s.compress {
		dec := s.decoders.Get().(*zstd.Decoder)
		decoded, err := dec.DecodeAll(raw, nil)
		s.decoders.Put(dec)
		if err != nil {
			return nil, fmt.Errorf("%w: decompressing spill page for %s: %v", tilererr.ErrPersistence, key, err)
		}
		raw = decoded
	}

	var page gobPage
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&page); err != nil {
		return nil, fmt.Errorf("%w: decoding spill page for %s: %v", tilererr.ErrPersistence, key, err)
	}
	return fromGobPage(&page, schema), nil
}

// Evict removes a node's spilled page, e.g. once it has been paged back in
// and merged with fresh arrivals.
func (s *Store) Evict(key octree.NodeKey) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(pagesBucket).Delete([]byte(key))
	})
}

// Close closes the scratch database. It does not delete the pages or the
// database file; the caller removes the file once the store is closed
// (the tiler driver deletes its spill directory in close()).
func (s *Store) Close() error {
	return s.db.Close()
}

func toGobPage(b *data.PointBatch) *gobPage {
	return &gobPage{
		Attributes: b.Schema.Attributes,
		PosX:       b.PosX,
		PosY:       b.PosY,
		PosZ:       b.PosZ,
		ColorA:     b.ColorPacked,
		ColorB:     b.ColorFromInt,
		Intensity:  b.Intensity,
		Class:      b.Classification,
		Normal:     b.NormalOct16,
		Index:      b.Index,
	}
}

func fromGobPage(p *gobPage, schema *data.Schema) *data.PointBatch {
	return &data.PointBatch{
		Schema:         schema,
		PosX:           p.PosX,
		PosY:           p.PosY,
		PosZ:           p.PosZ,
		ColorPacked:    p.ColorA,
		ColorFromInt:   p.ColorB,
		Intensity:      p.Intensity,
		Classification: p.Class,
		NormalOct16:    p.Normal,
		Index:          p.Index,
	}
}
