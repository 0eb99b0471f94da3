package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/viper"
)

// DefaultPath is the configuration file the server reads on startup.
const DefaultPath = "./server.toml"

// Config holds the full server configuration, loaded from server.toml.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Map       MapConfig       `mapstructure:"map"`
	Heartbeat HeartbeatConfig `mapstructure:"heartbeat"`
}

// ServerConfig contains listener, identity and cadence settings.
type ServerConfig struct {
	IP           string `mapstructure:"ip"`
	LocalIP      string `mapstructure:"local_ip"`
	Port         int    `mapstructure:"port"`
	Name         string `mapstructure:"name"`
	MOTD         string `mapstructure:"motd"`
	Public       bool   `mapstructure:"public"`
	OnlineMode   bool   `mapstructure:"online_mode"`
	Whitelisted  bool   `mapstructure:"whitelisted"`
	MaxPlayers   int    `mapstructure:"max_players"`
	SaveInterval int    `mapstructure:"save_interval"` // minutes
}

// MapConfig names the world and its dimensions.
type MapConfig struct {
	Name            string `mapstructure:"name"`
	CreatorUsername string `mapstructure:"creator_username"`
	XWidth          int    `mapstructure:"x_width"`
	YHeight         int    `mapstructure:"y_height"`
	ZDepth          int    `mapstructure:"z_depth"`
}

// HeartbeatConfig controls the directory-service announcers.
type HeartbeatConfig struct {
	Enabled    bool              `mapstructure:"enabled"`
	MineOnline HeartbeatEndpoint `mapstructure:"mineonline"`
	Mojang     HeartbeatEndpoint `mapstructure:"mojang"`
}

// HeartbeatEndpoint is one directory service target.
type HeartbeatEndpoint struct {
	Active bool   `mapstructure:"active"`
	URL    string `mapstructure:"url"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.ip", "127.0.0.1")
	v.SetDefault("server.local_ip", "127.0.0.1")
	v.SetDefault("server.port", 25565)
	v.SetDefault("server.name", "A Minecraft Server")
	v.SetDefault("server.motd", "A Minecraft Server")
	v.SetDefault("server.public", true)
	v.SetDefault("server.online_mode", true)
	v.SetDefault("server.whitelisted", false)
	v.SetDefault("server.max_players", 8)
	v.SetDefault("server.save_interval", 5)

	v.SetDefault("map.name", "world")
	v.SetDefault("map.creator_username", "")
	v.SetDefault("map.x_width", 32)
	v.SetDefault("map.y_height", 32)
	v.SetDefault("map.z_depth", 32)

	v.SetDefault("heartbeat.enabled", true)
	v.SetDefault("heartbeat.mineonline.active", true)
	v.SetDefault("heartbeat.mineonline.url", "https://mineonline.codie.gg/")
	v.SetDefault("heartbeat.mojang.active", false)
	v.SetDefault("heartbeat.mojang.url", "http://www.minecraft.net/heartbeat.jsp")
}

// Load reads the configuration file at path. A missing file is not an
// error: the defaults are written out to path and used as-is.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if err := v.WriteConfigAs(path); err != nil {
			return nil, fmt.Errorf("write default %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}
