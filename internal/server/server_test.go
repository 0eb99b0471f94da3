package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/greycraft/classic-server/internal/server/config"
	"github.com/greycraft/classic-server/internal/server/conn"
	"github.com/greycraft/classic-server/internal/server/packet"
	"github.com/greycraft/classic-server/internal/server/world"
	"github.com/greycraft/classic-server/pkg/protocol"
)

func testServerConfig(maxPlayers int) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			IP:           "127.0.0.1",
			LocalIP:      "127.0.0.1",
			Port:         0,
			Name:         "Test Realm",
			MOTD:         "welcome",
			OnlineMode:   false,
			MaxPlayers:   maxPlayers,
			SaveInterval: 60,
		},
		Map: config.MapConfig{
			Name:   "hubtest",
			XWidth: 16, YHeight: 16, ZDepth: 16,
		},
		// Heartbeat disabled: these tests exercise the hub alone.
	}
}

// startServer runs a server on an ephemeral port and returns its address.
func startServer(t *testing.T, cfg *config.Config) (*Server, net.Addr, context.CancelFunc) {
	t.Helper()

	oldDir := world.Dir
	world.Dir = t.TempDir()
	t.Cleanup(func() { world.Dir = oldDir })

	srv, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Start returned %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("server did not shut down")
		}
	})

	deadline := time.Now().Add(5 * time.Second)
	for srv.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("server never bound")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return srv, srv.Addr(), cancel
}

// testClient is a minimal classic client speaking to a live listener.
type testClient struct {
	t *testing.T
	c net.Conn
}

func dialClient(t *testing.T, addr net.Addr) *testClient {
	t.Helper()
	c, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	t.Cleanup(func() { c.Close() })
	return &testClient{t: t, c: c}
}

func (tc *testClient) send(p protocol.Packet) {
	tc.t.Helper()
	data, err := protocol.Marshal(p)
	if err != nil {
		tc.t.Fatalf("marshal %T: %v", p, err)
	}
	if _, err := tc.c.Write(data); err != nil {
		tc.t.Fatalf("write %T: %v", p, err)
	}
}

func prototype(op byte) protocol.Packet {
	switch op {
	case 0x00:
		return &packet.ServerIdentification{}
	case 0x01:
		return &packet.Ping{}
	case 0x02:
		return &packet.LevelInitialize{}
	case 0x03:
		return &packet.LevelDataChunk{}
	case 0x04:
		return &packet.LevelFinalize{}
	case 0x06:
		return &packet.SetBlock{}
	case 0x07:
		return &packet.SpawnPlayer{}
	case 0x08:
		return &packet.PlayerTeleport{}
	case 0x09:
		return &packet.PositionAndOrientationUpdate{}
	case 0x0A:
		return &packet.PositionUpdate{}
	case 0x0B:
		return &packet.OrientationUpdate{}
	case 0x0C:
		return &packet.DespawnPlayer{}
	case 0x0D:
		return &packet.Message{}
	case 0x0E:
		return &packet.DisconnectPlayer{}
	case 0x0F:
		return &packet.UpdateUserType{}
	}
	return nil
}

// next reads and decodes one clientbound packet.
func (tc *testClient) next() protocol.Packet {
	tc.t.Helper()
	tc.c.SetReadDeadline(time.Now().Add(5 * time.Second))

	var op [1]byte
	if _, err := io.ReadFull(tc.c, op[:]); err != nil {
		tc.t.Fatalf("read opcode: %v", err)
	}
	p := prototype(op[0])
	if p == nil {
		tc.t.Fatalf("unexpected clientbound opcode 0x%02X", op[0])
	}
	size, err := protocol.Size(p)
	if err != nil {
		tc.t.Fatalf("size of %T: %v", p, err)
	}
	body := make([]byte, size-1)
	if _, err := io.ReadFull(tc.c, body); err != nil {
		tc.t.Fatalf("read 0x%02X body: %v", op[0], err)
	}
	if err := protocol.Unmarshal(body, p); err != nil {
		tc.t.Fatalf("unmarshal 0x%02X: %v", op[0], err)
	}
	return p
}

// waitFor reads packets until match returns true, skipping keep-alives
// and anything else in between.
func (tc *testClient) waitFor(what string, match func(protocol.Packet) bool) protocol.Packet {
	tc.t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		p := tc.next()
		if match(p) {
			return p
		}
	}
	tc.t.Fatalf("never received %s", what)
	return nil
}

// login completes the handshake and waits out the world bootstrap.
func (tc *testClient) login(name string) {
	tc.t.Helper()
	tc.send(&packet.PlayerIdentification{Protocol: packet.ProtocolVersion, Username: name})
	tc.waitFor("spawn teleport", func(p protocol.Packet) bool {
		tp, ok := p.(*packet.PlayerTeleport)
		return ok && tp.ID == packet.SelfID
	})
}

func TestJoinChatAndLeave(t *testing.T) {
	_, addr, _ := startServer(t, testServerConfig(4))

	alice := dialClient(t, addr)
	alice.login("Alice")

	bob := dialClient(t, addr)
	bob.login("Bob")

	// Alice hears about Bob's arrival.
	spawn := alice.waitFor("Bob's spawn", func(p protocol.Packet) bool {
		sp, ok := p.(*packet.SpawnPlayer)
		return ok && sp.Name == "Bob"
	}).(*packet.SpawnPlayer)
	bobID := spawn.ID
	alice.waitFor("join message", func(p protocol.Packet) bool {
		m, ok := p.(*packet.Message)
		return ok && m.ID == packet.SelfID && m.Text == "Bob joined the Server"
	})

	// Bob's bootstrap includes the existing roster.
	bob.waitFor("Alice's spawn", func(p protocol.Packet) bool {
		sp, ok := p.(*packet.SpawnPlayer)
		return ok && sp.Name == "Alice"
	})

	// Chat travels from Bob to Alice with the sender prefix.
	bob.send(&packet.MessageServerbound{Text: "hello"})
	msg := alice.waitFor("chat", func(p protocol.Packet) bool {
		m, ok := p.(*packet.Message)
		return ok && strings.HasPrefix(m.Text, "<Bob>")
	}).(*packet.Message)
	if msg.Text != "<Bob>: hello" {
		t.Errorf("chat = %q", msg.Text)
	}
	if msg.ID != bobID {
		t.Errorf("chat sender id = %d, want %d", msg.ID, bobID)
	}

	// Bob drops; Alice sees the despawn and the departure notice.
	bob.c.Close()
	alice.waitFor("despawn", func(p protocol.Packet) bool {
		dp, ok := p.(*packet.DespawnPlayer)
		return ok && dp.ID == bobID
	})
	alice.waitFor("leave message", func(p protocol.Packet) bool {
		m, ok := p.(*packet.Message)
		return ok && m.Text == "Bob left the Server"
	})
}

func TestBlockEditReachesOthersOnly(t *testing.T) {
	_, addr, _ := startServer(t, testServerConfig(4))

	alice := dialClient(t, addr)
	alice.login("Alice")
	bob := dialClient(t, addr)
	bob.login("Bob")
	alice.waitFor("Bob's spawn", func(p protocol.Packet) bool {
		sp, ok := p.(*packet.SpawnPlayer)
		return ok && sp.Name == "Bob"
	})

	// Bob breaks a grass block; Alice gets the air write.
	bob.send(&packet.SetBlockServerbound{X: 4, Y: 7, Z: 4, Mode: packet.SetBlockBreak})
	sb := alice.waitFor("block update", func(p protocol.Packet) bool {
		_, ok := p.(*packet.SetBlock)
		return ok
	}).(*packet.SetBlock)
	if sb.X != 4 || sb.Y != 7 || sb.Z != 4 || sb.Block != 0 {
		t.Errorf("block update = %+v", sb)
	}
}

func TestServerFull(t *testing.T) {
	_, addr, _ := startServer(t, testServerConfig(1))

	alice := dialClient(t, addr)
	alice.login("Alice")

	late := dialClient(t, addr)
	p := late.next()
	dc, ok := p.(*packet.DisconnectPlayer)
	if !ok {
		t.Fatalf("got %T, want DisconnectPlayer", p)
	}
	if dc.Reason != "Server is full" {
		t.Errorf("reason = %q", dc.Reason)
	}
}

func TestShutdownDisconnectsClients(t *testing.T) {
	_, addr, cancel := startServer(t, testServerConfig(4))

	alice := dialClient(t, addr)
	alice.login("Alice")

	cancel()
	dc := alice.waitFor("farewell", func(p protocol.Packet) bool {
		_, ok := p.(*packet.DisconnectPlayer)
		return ok
	}).(*packet.DisconnectPlayer)
	if dc.Reason != "Server shutting down" {
		t.Errorf("reason = %q", dc.Reason)
	}
}

func TestAllocateIDSkipsSelfAndLive(t *testing.T) {
	s := &Server{cfg: testServerConfig(300)}

	// Drain enough ids to cross the 0xFF wraparound.
	seen := map[byte]bool{}
	for n := 0; n < 255; n++ {
		id, ok := s.allocateID()
		if !ok {
			t.Fatal("allocation failed with free ids remaining")
		}
		if id == packet.SelfID {
			t.Fatal("allocated the reserved self id")
		}
		if seen[id] {
			t.Fatalf("id %d allocated twice", id)
		}
		seen[id] = true

		a, b := net.Pipe()
		t.Cleanup(func() { a.Close(); b.Close() })
		s.sessions = append(s.sessions,
			conn.NewSession(id, a, s.cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, ""))
	}

	if _, ok := s.allocateID(); ok {
		t.Error("allocation succeeded with every id in use")
	}
}

func TestNewSalt(t *testing.T) {
	a, b := NewSalt(), NewSalt()
	if len(a) != saltLength {
		t.Errorf("salt length = %d, want %d", len(a), saltLength)
	}
	if a == b {
		t.Error("two salts came out identical")
	}
	for _, r := range a {
		if !strings.ContainsRune(saltAlphabet, r) {
			t.Errorf("salt contains %q outside the alphabet", r)
		}
	}
}
