package heartbeat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/greycraft/classic-server/internal/server/config"
)

// ClientHash identifies the classic client build to the MineOnline
// directory.
const ClientHash = "90632803F45C15164587256A08C0ECB4"

// MineOnline announces the server to a MineOnline directory. The first
// successful beat returns a registration uuid which subsequent beats
// and the final Delete reuse.
type MineOnline struct {
	mu    sync.Mutex
	log   *slog.Logger
	httpc *http.Client

	url         string
	ip          string
	port        int
	name        string
	public      bool
	onlineMode  bool
	maxPlayers  int
	whitelisted bool

	users   int
	players []string

	whitelistUsers []string
	whitelistIPs   []string
	whitelistUUIDs []string
	bannedUsers    []string
	bannedIPs      []string
	bannedUUIDs    []string

	uuid string
	body []byte
}

// NewMineOnline builds a MineOnline client from config.
func NewMineOnline(log *slog.Logger, cfg *config.Config) *MineOnline {
	return &MineOnline{
		log:         log.With("service", "mineonline"),
		httpc:       &http.Client{},
		url:         cfg.Heartbeat.MineOnline.URL,
		ip:          cfg.Server.IP,
		port:        cfg.Server.Port,
		name:        cfg.Server.Name,
		public:      cfg.Server.Public,
		onlineMode:  cfg.Server.OnlineMode,
		maxPlayers:  cfg.Server.MaxPlayers,
		whitelisted: cfg.Server.Whitelisted,
	}
}

// mineOnlineBody mirrors the MineOnline registration schema. Port and
// onlinemode travel as strings, users and max as numbers.
type mineOnlineBody struct {
	IP             string   `json:"ip"`
	Port           string   `json:"port"`
	Users          int      `json:"users"`
	Players        []string `json:"players"`
	Max            int      `json:"max"`
	Name           string   `json:"name"`
	OnlineMode     string   `json:"onlinemode"`
	MD5            string   `json:"md5"`
	Whitelisted    bool     `json:"whitelisted"`
	WhitelistUsers []string `json:"whitelistUsers"`
	WhitelistIPs   []string `json:"whitelistIPs"`
	WhitelistUUIDs []string `json:"whitelistUUIDs"`
	BannedUsers    []string `json:"bannedUsers"`
	BannedIPs      []string `json:"bannedIPs"`
	BannedUUIDs    []string `json:"bannedUUIDs"`
	UUID           string   `json:"uuid,omitempty"`
}

// SetPlayerCount implements Client.
func (m *MineOnline) SetPlayerCount(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = n
}

// SetPlayerNames implements Client.
func (m *MineOnline) SetPlayerNames(names []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players = append(m.players[:0], names...)
}

// Build implements Client.
func (m *MineOnline) Build() {
	m.mu.Lock()
	defer m.mu.Unlock()

	body := mineOnlineBody{
		IP:             m.ip,
		Port:           strconv.Itoa(m.port),
		Users:          m.users,
		Players:        emptyNotNil(m.players),
		Max:            m.maxPlayers,
		Name:           m.name,
		OnlineMode:     strconv.FormatBool(m.onlineMode),
		MD5:            ClientHash,
		Whitelisted:    m.whitelisted,
		WhitelistUsers: emptyNotNil(m.whitelistUsers),
		WhitelistIPs:   emptyNotNil(m.whitelistIPs),
		WhitelistUUIDs: emptyNotNil(m.whitelistUUIDs),
		BannedUsers:    emptyNotNil(m.bannedUsers),
		BannedIPs:      emptyNotNil(m.bannedIPs),
		BannedUUIDs:    emptyNotNil(m.bannedUUIDs),
		UUID:           m.uuid,
	}

	// The schema is all plain types; marshalling cannot fail.
	m.body, _ = json.Marshal(body)
}

// Beat implements Client. On success it captures the registration uuid
// from the response body for later beats and Delete.
func (m *MineOnline) Beat(ctx context.Context) error {
	m.mu.Lock()
	body := m.body
	url := m.url
	m.mu.Unlock()

	respBody, err := sendWithRetry(ctx, m.httpc, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return fmt.Errorf("mineonline beat: %w", err)
	}

	var reply struct {
		UUID string `json:"uuid"`
	}
	if err := json.Unmarshal(respBody, &reply); err != nil {
		m.log.Debug("mineonline response not json", "error", err)
		return nil
	}
	if reply.UUID != "" {
		m.mu.Lock()
		m.uuid = reply.UUID
		m.mu.Unlock()
		m.log.Debug("mineonline registration", "uuid", reply.UUID)
	}
	return nil
}

// Delete implements Client, removing the registration created by Beat.
func (m *MineOnline) Delete(ctx context.Context) error {
	m.mu.Lock()
	uuid := m.uuid
	url := strings.TrimSuffix(m.url, "/") + "/" + uuid
	m.mu.Unlock()

	if uuid == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("mineonline delete: %w", err)
	}
	resp, err := m.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("mineonline delete: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mineonline delete: directory answered %s", resp.Status)
	}
	return nil
}

func emptyNotNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
