package heartbeat

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/greycraft/classic-server/internal/server/config"
	"github.com/greycraft/classic-server/internal/server/packet"
)

// Mojang announces the server to the legacy minecraft.net heartbeat
// endpoint with a form-encoded POST. It carries no player names and has
// nothing to delete.
type Mojang struct {
	mu    sync.Mutex
	log   *slog.Logger
	httpc *http.Client

	url        string
	ip         string
	port       int
	name       string
	public     bool
	maxPlayers int
	salt       string

	users int
	body  string
}

// NewMojang builds a Mojang client from config and the server salt.
func NewMojang(log *slog.Logger, cfg *config.Config, salt string) *Mojang {
	return &Mojang{
		log:        log.With("service", "mojang"),
		httpc:      &http.Client{},
		url:        cfg.Heartbeat.Mojang.URL,
		ip:         cfg.Server.IP,
		port:       cfg.Server.Port,
		name:       cfg.Server.Name,
		public:     cfg.Server.Public,
		maxPlayers: cfg.Server.MaxPlayers,
		salt:       salt,
	}
}

// SetPlayerCount implements Client.
func (m *Mojang) SetPlayerCount(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = n
}

// SetPlayerNames implements Client. The Mojang endpoint has no field
// for names.
func (m *Mojang) SetPlayerNames([]string) {}

// Build implements Client.
func (m *Mojang) Build() {
	m.mu.Lock()
	defer m.mu.Unlock()

	form := url.Values{}
	form.Set("ip", m.ip)
	form.Set("port", strconv.Itoa(m.port))
	form.Set("users", strconv.Itoa(m.users))
	form.Set("max", strconv.Itoa(m.maxPlayers))
	form.Set("name", m.name)
	form.Set("public", strconv.FormatBool(m.public))
	form.Set("version", strconv.Itoa(int(packet.ProtocolVersion)))
	form.Set("salt", m.salt)
	m.body = form.Encode()
}

// Beat implements Client.
func (m *Mojang) Beat(ctx context.Context) error {
	m.mu.Lock()
	body := m.body
	target := m.url
	m.mu.Unlock()

	_, err := sendWithRetry(ctx, m.httpc, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
	if err != nil {
		return fmt.Errorf("mojang beat: %w", err)
	}
	return nil
}

// Delete implements Client. The legacy endpoint expires entries on its
// own; there is nothing to remove.
func (m *Mojang) Delete(context.Context) error { return nil }
