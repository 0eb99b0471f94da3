package world

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Dir is where world files live, relative to the server working directory.
var Dir = "./world"

// loadChunkSize is how much of a .crs file is read per iteration.
const loadChunkSize = 16 * 1024

func crsPath(name string) string {
	return filepath.Join(Dir, name+".crs")
}

// Save writes the raw block bytes to ./world/{name}.crs, creating the
// directory as needed.
func (w *World) Save() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(Dir, 0o755); err != nil {
		return fmt.Errorf("create world directory: %w", err)
	}
	if err := os.WriteFile(crsPath(w.name), w.blocks, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", crsPath(w.name), err)
	}
	return nil
}

// LoadOrCreate returns the named world. If ./world/{name}.crs exists it
// is loaded; otherwise a fresh flat-terrain world is created and saved
// immediately. A sibling .cw file (ClassicWorld NBT) is only noted, not
// parsed.
func LoadOrCreate(log *slog.Logger, name, creator string, sx, sy, sz int) (*World, error) {
	if cw := filepath.Join(Dir, name+".cw"); fileExists(cw) {
		log.Info("classicworld file present but not parsed", "path", cw)
	}

	if !fileExists(crsPath(name)) {
		log.Info("no saved world, generating flat terrain",
			"name", name, "x", sx, "y", sy, "z", sz)
		w := New(name, creator, sx, sy, sz)
		if err := w.Save(); err != nil {
			return nil, err
		}
		return w, nil
	}

	w, err := load(log, name, creator, sx, sy, sz)
	if err != nil {
		return nil, err
	}
	log.Info("world loaded", "name", name, "blocks", sx*sy*sz)
	return w, nil
}

// load reads the .crs stream in 16 KiB chunks, reporting progress.
func load(log *slog.Logger, name, creator string, sx, sy, sz int) (*World, error) {
	f, err := os.Open(crsPath(name))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", crsPath(name), err)
	}
	defer f.Close()

	total := sx * sy * sz
	blocks := make([]byte, 0, total)
	buf := make([]byte, loadChunkSize)

	for {
		n, err := f.Read(buf)
		blocks = append(blocks, buf[:n]...)
		if n > 0 {
			log.Debug("loading world", "read", len(blocks), "total", total,
				"percent", len(blocks)*100/total)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read %s: %w", crsPath(name), err)
		}
	}

	if len(blocks) != total {
		return nil, fmt.Errorf("world %s: %d blocks on disk, config wants %d",
			name, len(blocks), total)
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
	}, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
