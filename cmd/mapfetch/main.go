package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	get "github.com/hashicorp/go-getter"

	"github.com/greycraft/classic-server/internal/server/world"
)

// mapfetch pulls a prebuilt world file into the server's world directory
// so the server loads it instead of generating a flat map.
func main() {
	var (
		src  = flag.String("src", "", "source url (any go-getter scheme: http, git, s3, file)")
		name = flag.String("name", "world", "world name; the file lands at <dir>/<name>.crs")
		dir  = flag.String("dir", world.Dir, "destination world directory")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *src == "" {
		log.Error("source url required")
		os.Exit(1)
	}

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		log.Error("create world directory", "error", err)
		os.Exit(1)
	}

	dst := filepath.Join(*dir, *name+".crs")
	log.Info("downloading world", "src", *src, "dst", dst)

	if err := get.GetFile(dst, *src); err != nil {
		log.Error("download failed", "error", err)
		os.Exit(1)
	}

	log.Info("download complete", "dst", dst)
}
