package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/greycraft/classic-server/internal/server/config"
	"github.com/greycraft/classic-server/internal/server/conn"
	"github.com/greycraft/classic-server/internal/server/heartbeat"
	"github.com/greycraft/classic-server/internal/server/packet"
	"github.com/greycraft/classic-server/internal/server/world"
	"github.com/greycraft/classic-server/pkg/protocol"
)

const (
	// tickInterval paces the main loop.
	tickInterval = 50 * time.Millisecond

	// tickWarn is the wall-clock budget of one tick. Slower ticks are
	// logged, not aborted.
	tickWarn = 250 * time.Millisecond
)

// Server owns the listener, the session roster and the shared world, and
// drives the tick, save and heartbeat cadences. All session handling runs
// on the tick goroutine; the accept loop only hands sockets over.
type Server struct {
	cfg   *config.Config
	log   *slog.Logger
	world *world.World
	salt  string

	hb         *heartbeat.Runner
	mineonline *heartbeat.MineOnline

	sessions  []*conn.Session
	nextID    byte
	pendingBC []conn.Outbound

	newConns chan net.Conn
	running  atomic.Bool
	addr     atomic.Value // net.Addr, set once bound
}

// New loads or creates the world and wires the heartbeat clients.
func New(cfg *config.Config, log *slog.Logger) (*Server, error) {
	w, err := world.LoadOrCreate(log, cfg.Map.Name, cfg.Map.CreatorUsername,
		cfg.Map.XWidth, cfg.Map.YHeight, cfg.Map.ZDepth)
	if err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		log:      log,
		world:    w,
		salt:     NewSalt(),
		newConns: make(chan net.Conn, 16),
	}

	if cfg.Heartbeat.Enabled {
		var clients []heartbeat.Client
		if cfg.Heartbeat.MineOnline.Active {
			s.mineonline = heartbeat.NewMineOnline(log, cfg)
			clients = append(clients, s.mineonline)
		}
		if cfg.Heartbeat.Mojang.Active {
			clients = append(clients, heartbeat.NewMojang(log, cfg, s.salt))
		}
		if len(clients) > 0 {
			s.hb = heartbeat.NewRunner(log, clients...)
		}
	}

	return s, nil
}

// Salt returns the verification salt generated for this run.
func (s *Server) Salt() string { return s.salt }

// Addr returns the bound listener address, nil before Start has bound.
// With port 0 in the config this is the only way to learn the port.
func (s *Server) Addr() net.Addr {
	addr, _ := s.addr.Load().(net.Addr)
	return addr
}

// Start binds the listener and blocks until the context is cancelled or a
// fatal error occurs. A bind failure is fatal.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Server.LocalIP, fmt.Sprint(s.cfg.Server.Port))
	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	defer listener.Close()
	s.addr.Store(listener.Addr())

	s.log.Info("server started",
		"addr", addr,
		"name", s.cfg.Server.Name,
		"onlineMode", s.cfg.Server.OnlineMode,
		"maxPlayers", s.cfg.Server.MaxPlayers,
	)

	s.running.Store(true)

	// A dead heartbeat must not stop the game loop, so it runs outside
	// the errgroup and only logs its demise.
	if s.hb != nil {
		go func() {
			if err := s.hb.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Error("heartbeat task stopped", "error", err)
			}
		}()
	}

	g, ctx := errgroup.WithContext(ctx)
	// Closing the listener on the derived context unblocks the accept
	// loop for both external cancellation and fatal tick errors.
	g.Go(func() error {
		<-ctx.Done()
		s.running.Store(false)
		listener.Close()
		return nil
	})
	g.Go(func() error { return s.acceptLoop(ctx, listener) })
	g.Go(func() error { return s.tickLoop(ctx) })
	return g.Wait()
}

func (s *Server) acceptLoop(ctx context.Context, listener net.Listener) error {
	for {
		c, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || !s.running.Load() {
				return nil
			}
			s.log.Error("accept connection", "error", err)
			continue
		}

		select {
		case s.newConns <- c:
		case <-ctx.Done():
			c.Close()
			return nil
		}
	}
}

// tickLoop is the heart of the server. Every iteration steps each session
// once in roster order, concatenates their broadcast output, delivers
// every entry to every other session, then flushes.
func (s *Server) tickLoop(ctx context.Context) error {
	saveEvery := time.Duration(s.cfg.Server.SaveInterval) * time.Minute
	lastSave := time.Now()

	for s.running.Load() && ctx.Err() == nil {
		start := time.Now()

		s.adoptConnections()

		// Departures are collected during the sweep and removed after
		// it, never while the roster is being iterated.
		bc := s.pendingBC
		s.pendingBC = nil
		var departed []*conn.Session

		for _, sess := range s.sessions {
			out, err := sess.Step()
			bc = append(bc, out...)
			if err != nil {
				if errors.Is(err, conn.ErrDisconnected) {
					departed = append(departed, sess)
					continue
				}
				return fmt.Errorf("session %d: %w", sess.ID(), err)
			}
		}

		s.bootstrapJoiners()

		// Fan out: everyone gets every entry except their own.
		for _, sess := range s.sessions {
			if !sess.LoggedIn() {
				continue
			}
			for _, entry := range bc {
				if entry.From == sess.ID() {
					continue
				}
				if err := sess.Deliver(entry.Packet); err != nil {
					departed = appendSession(departed, sess)
					break
				}
			}
		}

		for _, sess := range s.sessions {
			if err := sess.FlushWrites(); err != nil {
				if errors.Is(err, conn.ErrDisconnected) {
					departed = appendSession(departed, sess)
					continue
				}
				return fmt.Errorf("session %d: %w", sess.ID(), err)
			}
		}

		if len(departed) > 0 {
			s.removeSessions(departed)
		}

		if saveEvery > 0 && time.Since(lastSave) >= saveEvery {
			lastSave = time.Now()
			if err := s.saveWorld(); err != nil {
				return err
			}
		}

		elapsed := time.Since(start)
		if elapsed > tickWarn {
			s.log.Warn("slow tick", "elapsed", elapsed)
		}
		if rest := tickInterval - elapsed; rest > 0 {
			select {
			case <-time.After(rest):
			case <-ctx.Done():
			}
		}
	}

	s.shutdown()
	return nil
}

// adoptConnections turns freshly accepted sockets into sessions.
func (s *Server) adoptConnections() {
	for {
		select {
		case c := <-s.newConns:
			if len(s.sessions) >= s.cfg.Server.MaxPlayers {
				s.log.Info("refusing connection, server full", "addr", c.RemoteAddr())
				s.refuse(c, "Server is full")
				continue
			}
			id, ok := s.allocateID()
			if !ok {
				s.refuse(c, "Server is full")
				continue
			}
			sess := conn.NewSession(id, c, s.cfg, s.log, s.world, s.salt)
			s.sessions = append(s.sessions, sess)
			s.log.Info("connection accepted", "id", id, "addr", c.RemoteAddr())
		default:
			return
		}
	}
}

// allocateID hands out the next free byte id. 0xFF is the client's "self"
// marker and is never assigned; ids of live sessions are never reused.
func (s *Server) allocateID() (byte, bool) {
	for n := 0; n < 256; n++ {
		id := s.nextID
		s.nextID++
		if id == packet.SelfID || s.idInUse(id) {
			continue
		}
		return id, true
	}
	return 0, false
}

func (s *Server) idInUse(id byte) bool {
	for _, sess := range s.sessions {
		if sess.ID() == id {
			return true
		}
	}
	return false
}

// refuse sends a best-effort DisconnectPlayer to a socket that never
// becomes a session.
func (s *Server) refuse(c net.Conn, reason string) {
	if data, err := protocol.Marshal(&packet.DisconnectPlayer{Reason: reason}); err == nil {
		_, _ = c.Write(data)
	}
	c.Close()
}

// bootstrapJoiners shows each freshly identified session the existing
// roster, and refreshes the heartbeat projection.
func (s *Server) bootstrapJoiners() {
	changed := false
	for _, sess := range s.sessions {
		if !sess.TakeJoined() {
			continue
		}
		changed = true
		for _, other := range s.sessions {
			if other.ID() == sess.ID() || !other.LoggedIn() {
				continue
			}
			x, y, z, yaw, pitch := other.Pose()
			_ = sess.Deliver(&packet.SpawnPlayer{
				ID: other.ID(), Name: other.Username(),
				X: x, Y: y, Z: z, Yaw: yaw, Pitch: pitch,
			})
		}
	}
	if changed {
		s.rosterChanged()
	}
}

// removeSessions drops departed sessions from the roster and queues their
// despawn broadcasts for the next tick.
func (s *Server) removeSessions(departed []*conn.Session) {
	for _, gone := range departed {
		kept := s.sessions[:0]
		for _, sess := range s.sessions {
			if sess != gone {
				kept = append(kept, sess)
			}
		}
		s.sessions = kept
		gone.Close()

		if gone.Username() == "" {
			s.log.Info("connection closed before login", "id", gone.ID())
			continue
		}
		s.log.Info("player left", "id", gone.ID(), "player", gone.Username())
		s.pendingBC = append(s.pendingBC,
			conn.Outbound{From: gone.ID(), Packet: &packet.DespawnPlayer{ID: gone.ID()}},
			conn.Outbound{From: gone.ID(), Packet: &packet.Message{
				ID:   packet.SelfID,
				Text: gone.Username() + " left the Server",
			}},
		)
	}
	s.rosterChanged()
}

// rosterChanged pushes the username projection to the heartbeat task.
func (s *Server) rosterChanged() {
	if s.hb == nil {
		return
	}
	names := make([]string, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if sess.Username() != "" {
			names = append(names, sess.Username())
		}
	}
	s.hb.UpdateRoster(names)
}

// saveWorld persists the world, announcing it in chat as Console. A
// storage failure here is fatal.
func (s *Server) saveWorld() error {
	s.console("Saving World..")
	if err := s.world.Save(); err != nil {
		return fmt.Errorf("save world: %w", err)
	}
	s.console("Saving Complete")
	s.log.Info("world saved", "name", s.world.Name())
	return nil
}

// console delivers a chat line from "Console" (sender id 0xFF) to every
// logged-in session.
func (s *Server) console(text string) {
	msg := &packet.Message{ID: packet.SelfID, Text: "<Console>: " + text}
	for _, sess := range s.sessions {
		if !sess.LoggedIn() {
			continue
		}
		_ = sess.Deliver(msg)
		_ = sess.FlushWrites()
	}
}

// shutdown runs once the tick loop exits: drain the roster, persist the
// world, deregister from the directory.
func (s *Server) shutdown() {
	s.log.Info("shutting down", "sessions", len(s.sessions))

	for _, sess := range s.sessions {
		sess.Disconnect("Server shutting down")
	}
	s.sessions = nil

	if err := s.world.Save(); err != nil {
		s.log.Error("final world save failed", "error", err)
	}

	if s.mineonline != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.mineonline.Delete(ctx); err != nil {
			s.log.Error("mineonline deregistration failed", "error", err)
		}
	}
}

func appendSession(list []*conn.Session, sess *conn.Session) []*conn.Session {
	for _, have := range list {
		if have == sess {
			return list
		}
	}
	return append(list, sess)
}
