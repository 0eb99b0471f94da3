package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWritesDefaultsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.IP != "127.0.0.1" {
		t.Errorf("Server.IP = %q, want 127.0.0.1", cfg.Server.IP)
	}
	if cfg.Server.Port != 25565 {
		t.Errorf("Server.Port = %d, want 25565", cfg.Server.Port)
	}
	if cfg.Server.Name != "A Minecraft Server" {
		t.Errorf("Server.Name = %q", cfg.Server.Name)
	}
	if !cfg.Server.OnlineMode {
		t.Error("Server.OnlineMode = false, want true")
	}
	if cfg.Server.MaxPlayers != 8 {
		t.Errorf("Server.MaxPlayers = %d, want 8", cfg.Server.MaxPlayers)
	}
	if cfg.Server.SaveInterval != 5 {
		t.Errorf("Server.SaveInterval = %d, want 5", cfg.Server.SaveInterval)
	}
	if cfg.Map.Name != "world" || cfg.Map.XWidth != 32 || cfg.Map.YHeight != 32 || cfg.Map.ZDepth != 32 {
		t.Errorf("Map = %+v", cfg.Map)
	}
	if !cfg.Heartbeat.Enabled || !cfg.Heartbeat.MineOnline.Active {
		t.Errorf("Heartbeat = %+v", cfg.Heartbeat)
	}
	if cfg.Heartbeat.MineOnline.URL != "https://mineonline.codie.gg/" {
		t.Errorf("MineOnline.URL = %q", cfg.Heartbeat.MineOnline.URL)
	}
	if cfg.Heartbeat.Mojang.Active {
		t.Error("Mojang.Active = true, want false")
	}

	// The default file must now exist on disk.
	if _, err := os.Stat(path); err != nil {
		t.Errorf("default config not written: %v", err)
	}

	// And loading it back yields the same values.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("Load (reread): %v", err)
	}
	if *again != *cfg {
		t.Errorf("reread config = %+v, want %+v", again, cfg)
	}
}

func TestLoadReadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.toml")
	contents := `
[server]
port = 35565
name = "Test Realm"
online_mode = false
max_players = 3

[map]
name = "flatland"
x_width = 64

[heartbeat]
enabled = false
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 35565 {
		t.Errorf("Server.Port = %d, want 35565", cfg.Server.Port)
	}
	if cfg.Server.Name != "Test Realm" {
		t.Errorf("Server.Name = %q", cfg.Server.Name)
	}
	if cfg.Server.OnlineMode {
		t.Error("Server.OnlineMode = true, want false")
	}
	if cfg.Server.MaxPlayers != 3 {
		t.Errorf("Server.MaxPlayers = %d, want 3", cfg.Server.MaxPlayers)
	}
	if cfg.Map.Name != "flatland" || cfg.Map.XWidth != 64 {
		t.Errorf("Map = %+v", cfg.Map)
	}
	// Untouched keys fall back to defaults.
	if cfg.Map.YHeight != 32 {
		t.Errorf("Map.YHeight = %d, want default 32", cfg.Map.YHeight)
	}
	if cfg.Heartbeat.Enabled {
		t.Error("Heartbeat.Enabled = true, want false")
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.toml")
	if err := os.WriteFile(path, []byte("[server\nport ="), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load of malformed TOML should fail")
	}
}
