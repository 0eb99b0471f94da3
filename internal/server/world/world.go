package world

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/greycraft/classic-server/internal/server/block"
)

// FormatVersion of the in-memory world model.
const FormatVersion byte = 1

// World is a fixed-dimension cuboid of blocks, addressed as
// x + Sx·z + Sx·Sz·y. Blocks never resize after construction.
//
// Mutations (Set, Save) take the write lock; snapshot reads take the
// read lock. The one exception is StreamTo, which holds the write lock
// for the whole login bootstrap so the streamed snapshot is coherent.
type World struct {
	mu sync.RWMutex

	formatVersion byte
	id            uuid.UUID
	name          string
	sx, sy, sz    int
	createdBy     string
	mapGenerator  string
	timeCreated   int64

	lastAccessed int64
	lastModified int64

	blocks []byte
}

// New constructs a fresh world with flat terrain: a bedrock floor, dirt
// up to one row below the midpoint, a grass row, then air.
func New(name, creator string, sx, sy, sz int) *World {
	blocks := make([]byte, sx*sy*sz)

	floor := sx * sz
	for i := 0; i < floor; i++ {
		blocks[i] = block.Bedrock.Byte()
	}
	grassRow := floor * (sy/2 - 1)
	for i := floor; i < grassRow; i++ {
		blocks[i] = block.Dirt.Byte()
	}
	for i := grassRow; i < grassRow+floor; i++ {
		blocks[i] = block.GrassBlock.Byte()
	}

	now := time.Now().UnixNano()
	return &World{
		formatVersion: FormatVersion,
		id:            uuid.New(),
		name:          name,
		sx:            sx,
		sy:            sy,
		sz:            sz,
		createdBy:     creator,
		mapGenerator:  "flat",
		timeCreated:   now,
		lastAccessed:  now,
		lastModified:  now,
		blocks:        blocks,
	}
}

// Name returns the world name, which also names the on-disk file.
func (w *World) Name() string { return w.name }

// UUID returns the world's 128-bit identifier.
func (w *World) UUID() uuid.UUID { return w.id }

// Size returns the world dimensions (Sx, Sy, Sz).
func (w *World) Size() (sx, sy, sz int) {
	return w.sx, w.sy, w.sz
}

// Blocks returns a borrowed read-only view of the block array. The
// caller must not hold it across a mutation.
func (w *World) Blocks() []byte {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.blocks
}

// LastModified returns the timestamp of the most recent block mutation.
func (w *World) LastModified() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastModified
}

func (w *World) index(x, y, z int) int {
	return x + w.sx*z + w.sx*w.sz*y
}

// Get reads the block at (x, y, z). Coordinates are not validated;
// callers bound-check against Size.
func (w *World) Get(x, y, z int) block.Block {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return block.FromByte(w.blocks[w.index(x, y, z)])
}

// Set applies a block write with the stacking and floor rules:
//
//   - Placing a Slab directly above another Slab merges them: the lower
//     cell becomes DoubleSlab and the requested cell stays untouched.
//   - The bedrock floor (y == 0) is immutable; the returned effective
//     write is (x, 0, z, Bedrock) so callers can echo the rejection.
//
// It returns the effective cell and block, and whether anything changed.
func (w *World) Set(x, y, z int, b block.Block) (effX, effY, effZ int, eff block.Block, changed bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if y == 0 {
		return x, 0, z, block.Bedrock, false
	}

	effX, effY, effZ, eff = x, y, z, b
	if b == block.Slab && block.FromByte(w.blocks[w.index(x, y-1, z)]) == block.Slab {
		effY, eff = y-1, block.DoubleSlab
	}

	w.blocks[w.index(effX, effY, effZ)] = eff.Byte()
	w.touchModified()
	return effX, effY, effZ, eff, true
}

// touchModified advances lastModified, strictly. Callers hold the write lock.
func (w *World) touchModified() {
	now := time.Now().UnixNano()
	if now <= w.lastModified {
		now = w.lastModified + 1
	}
	w.lastModified = now
}

// SnapshotGzip returns the gzip compression of the 4-byte big-endian
// block count followed by the block array.
func (w *World) SnapshotGzip() ([]byte, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshotGzipLocked()
}

func (w *World) snapshotGzipLocked() ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)

	var count [4]byte
	binary.BigEndian.PutUint32(count[:], uint32(len(w.blocks)))
	if _, err := zw.Write(count[:]); err != nil {
		return nil, fmt.Errorf("compress block count: %w", err)
	}
	if _, err := zw.Write(w.blocks); err != nil {
		return nil, fmt.Errorf("compress blocks: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish gzip stream: %w", err)
	}
	return buf.Bytes(), nil
}

// StreamTo runs the login bootstrap under the write lock: the session
// is the sole writer during that phase and the snapshot it streams
// stays coherent. fn receives the gzipped snapshot and writes it to the
// client; no other world access proceeds until it returns.
func (w *World) StreamTo(fn func(gz []byte) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now().UnixNano()
	if now > w.lastAccessed {
		w.lastAccessed = now
	}

	gz, err := w.snapshotGzipLocked()
	if err != nil {
		return err
	}
	return fn(gz)
}
