package conn

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"syscall"
	"time"

	"github.com/greycraft/classic-server/internal/server/config"
	mcnet "github.com/greycraft/classic-server/internal/server/net"
	"github.com/greycraft/classic-server/internal/server/packet"
	"github.com/greycraft/classic-server/internal/server/world"
	"github.com/greycraft/classic-server/pkg/protocol"
)

// State of the session lifecycle.
type State int

const (
	StateAccepting State = iota
	StateIdentifying
	StateStreaming
	StateActive
	StateTerminating
)

// ErrDisconnected marks a transient per-connection failure: the peer
// reset, aborted or closed the socket. The hub removes the session and
// broadcasts its departure; nothing else is affected.
var ErrDisconnected = errors.New("client disconnected")

// readPoll bounds the per-tick socket read so one silent client cannot
// stall the tick loop.
const readPoll = 5 * time.Millisecond

// eyeOffset is added to the y the client reports, which is measured at
// eye height rather than at the feet.
const eyeOffset = 3

// Outbound is one broadcast entry: a packet and the id of the session
// that produced it. Delivery skips the originator.
type Outbound struct {
	From   byte
	Packet protocol.Packet
}

// Session drives a single client connection through login, world
// bootstrap and steady-state handling. The hub steps every session from
// one goroutine, so no session state needs a lock.
type Session struct {
	conn  net.Conn
	cfg   *config.Config
	log   *slog.Logger
	world *world.World
	salt  string

	id       byte
	username string
	userType byte
	loggedIn bool

	x, y, z    int16
	yaw, pitch byte

	state   State
	framer  mcnet.Framer
	out     *mcnet.Writer
	readBuf []byte

	justLoggedIn bool
}

// NewSession wraps an accepted connection. id is hub-assigned and
// stable for the session's lifetime.
func NewSession(id byte, c net.Conn, cfg *config.Config, log *slog.Logger, w *world.World, salt string) *Session {
	return &Session{
		conn:     c,
		cfg:      cfg,
		log:      log.With("id", id, "addr", c.RemoteAddr().String()),
		world:    w,
		salt:     salt,
		id:       id,
		userType: packet.UserTypeStandard,
		state:    StateAccepting,
		out:      mcnet.NewWriter(c),
		readBuf:  make([]byte, mcnet.FrameSize),
	}
}

// ID returns the hub-assigned session id.
func (s *Session) ID() byte { return s.id }

// Username returns the identified name, empty before login.
func (s *Session) Username() string { return s.username }

// LoggedIn reports whether the login handshake completed.
func (s *Session) LoggedIn() bool { return s.loggedIn }

// Pose returns the last stored position and orientation.
func (s *Session) Pose() (x, y, z int16, yaw, pitch byte) {
	return s.x, s.y, s.z, s.yaw, s.pitch
}

// TakeJoined reports (once) that this session finished logging in since
// the previous tick, so the hub can run the join bootstrap.
func (s *Session) TakeJoined() bool {
	joined := s.justLoggedIn
	s.justLoggedIn = false
	return joined
}

// Step advances the session by one tick: read one frame, handle every
// complete packet, and queue a keep-alive. Returned broadcast entries
// go to every other session. Echo packets are buffered on this
// session's writer; the hub flushes after broadcast delivery.
func (s *Session) Step() ([]Outbound, error) {
	if s.state == StateAccepting {
		s.state = StateIdentifying
	}

	if err := s.conn.SetReadDeadline(time.Now().Add(readPoll)); err != nil {
		return nil, classify(err, "arm read deadline")
	}

	n, err := s.conn.Read(s.readBuf)
	s.framer.Feed(s.readBuf[:n])
	if err != nil && !isTimeout(err) {
		return nil, classify(err, "read frame")
	}

	var bc []Outbound
	for {
		p, err := s.framer.Next(s.loggedIn)
		if err != nil {
			return bc, classify(err, "decode packet")
		}
		if p == nil {
			break
		}
		if err := s.handle(p, &bc); err != nil {
			return bc, err
		}
	}

	if s.loggedIn {
		if err := s.writeEcho(&packet.Ping{}); err != nil {
			return bc, err
		}
	}
	return bc, nil
}

func (s *Session) handle(p protocol.Packet, bc *[]Outbound) error {
	switch p := p.(type) {
	case *packet.PlayerIdentification:
		return s.handleIdentification(p, bc)
	case *packet.SetBlockServerbound:
		return s.handleSetBlock(p, bc)
	case *packet.PositionAndOrientation:
		return s.handleMove(p, bc)
	case *packet.MessageServerbound:
		return s.handleChat(p, bc)
	case packet.Unknown:
		s.log.Debug("ignoring unknown opcode", "opcode", fmt.Sprintf("0x%02X", p.Op))
		return nil
	default:
		s.log.Debug("unhandled packet", "type", fmt.Sprintf("%T", p))
		return nil
	}
}

// writeEcho buffers a packet destined for this session only.
func (s *Session) writeEcho(p protocol.Packet) error {
	if err := s.out.WritePacket(p); err != nil {
		return classify(err, "write echo")
	}
	return nil
}

// Deliver buffers a broadcast packet from another session.
func (s *Session) Deliver(p protocol.Packet) error {
	if err := s.out.WritePacket(p); err != nil {
		return classify(err, "deliver broadcast")
	}
	return nil
}

// FlushWrites drains the coalesced frame to the socket. The hub calls
// it once per tick after broadcast delivery.
func (s *Session) FlushWrites() error {
	if err := s.out.Flush(); err != nil {
		return classify(err, "flush writes")
	}
	return nil
}

// Disconnect sends a best-effort DisconnectPlayer and closes the socket.
func (s *Session) Disconnect(reason string) {
	s.state = StateTerminating
	_ = s.out.WritePacket(&packet.DisconnectPlayer{Reason: reason})
	_ = s.out.Flush()
	_ = s.conn.Close()
}

// Close tears the socket down without a protocol farewell.
func (s *Session) Close() {
	s.state = StateTerminating
	_ = s.conn.Close()
}

// classify maps transient peer failures to ErrDisconnected and wraps
// anything else, which the hub treats as fatal.
func classify(err error, op string) error {
	if isDisconnect(err) {
		return ErrDisconnected
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isDisconnect(err error) bool {
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed)
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
