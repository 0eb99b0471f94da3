package conn

import (
	"strings"

	"github.com/greycraft/classic-server/internal/server/block"
	"github.com/greycraft/classic-server/internal/server/packet"
	"github.com/greycraft/classic-server/pkg/protocol"
)

// moveThreshold bounds each relative-move delta component; anything
// larger is sent as an absolute teleport.
const moveThreshold = 16

func (s *Session) handleSetBlock(p *packet.SetBlockServerbound, bc *[]Outbound) error {
	if !s.loggedIn {
		return nil
	}

	sx, sy, sz := s.world.Size()
	x, y, z := int(p.X), int(p.Y), int(p.Z)
	if x < 0 || x >= sx || y < 0 || y >= sy || z < 0 || z >= sz {
		s.log.Debug("block edit out of bounds", "x", x, "y", y, "z", z)
		return nil
	}

	switch p.Mode {
	case packet.SetBlockBreak:
		if s.world.Get(x, y, z) == block.Bedrock {
			// Put the bedrock back on the client that tried.
			return s.writeEcho(&packet.SetBlock{
				X: p.X, Y: p.Y, Z: p.Z, Block: block.Bedrock.Byte(),
			})
		}
		s.world.Set(x, y, z, block.Air)
		broken := &packet.SetBlock{X: p.X, Y: p.Y, Z: p.Z, Block: block.Air.Byte()}
		if err := s.writeEcho(broken); err != nil {
			return err
		}
		*bc = append(*bc, Outbound{From: s.id, Packet: broken})
		return nil

	case packet.SetBlockPlace:
		ex, ey, ez, eb, changed := s.world.Set(x, y, z, block.FromByte(p.Block))

		// The client already placed the block locally; clearing the
		// requested cell undoes that prediction before the effective
		// write (which may land one cell lower) arrives.
		if err := s.writeEcho(&packet.SetBlock{
			X: p.X, Y: p.Y, Z: p.Z, Block: block.Air.Byte(),
		}); err != nil {
			return err
		}
		effective := &packet.SetBlock{
			X: int16(ex), Y: int16(ey), Z: int16(ez), Block: eb.Byte(),
		}
		if err := s.writeEcho(effective); err != nil {
			return err
		}
		if changed {
			*bc = append(*bc, Outbound{From: s.id, Packet: effective})
		}
		return nil

	default:
		s.log.Debug("unknown set block mode", "mode", p.Mode)
		return nil
	}
}

func (s *Session) handleMove(p *packet.PositionAndOrientation, bc *[]Outbound) error {
	if !s.loggedIn {
		return nil
	}

	newX, newY, newZ := p.X, p.Y+eyeOffset, p.Z
	dx, dy, dz := newX-s.x, newY-s.y, newZ-s.z
	posChanged := dx != 0 || dy != 0 || dz != 0
	oriChanged := p.Yaw != s.yaw || p.Pitch != s.pitch

	var out protocol.Packet
	switch {
	case posChanged && oriChanged:
		if fitsRelative(dx, dy, dz) {
			out = &packet.PositionAndOrientationUpdate{
				ID: s.id,
				DX: int8(dx), DY: int8(dy), DZ: int8(dz),
				Yaw: p.Yaw, Pitch: p.Pitch,
			}
		} else {
			out = &packet.PlayerTeleport{
				ID: s.id, X: newX, Y: newY, Z: newZ, Yaw: p.Yaw, Pitch: p.Pitch,
			}
		}
	case posChanged:
		if fitsRelative(dx, dy, dz) {
			out = &packet.PositionUpdate{
				ID: s.id, DX: int8(dx), DY: int8(dy), DZ: int8(dz),
			}
		} else {
			out = &packet.PlayerTeleport{
				ID: s.id, X: newX, Y: newY, Z: newZ, Yaw: p.Yaw, Pitch: p.Pitch,
			}
		}
	case oriChanged:
		out = &packet.OrientationUpdate{ID: s.id, Yaw: p.Yaw, Pitch: p.Pitch}
	}

	s.x, s.y, s.z = newX, newY, newZ
	s.yaw, s.pitch = p.Yaw, p.Pitch

	if out != nil {
		*bc = append(*bc, Outbound{From: s.id, Packet: out})
	}
	return nil
}

func fitsRelative(dx, dy, dz int16) bool {
	fits := func(d int16) bool { return d >= -moveThreshold && d <= moveThreshold }
	return fits(dx) && fits(dy) && fits(dz)
}

func (s *Session) handleChat(p *packet.MessageServerbound, bc *[]Outbound) error {
	if !s.loggedIn {
		return nil
	}

	text := strings.Join(strings.Fields(p.Text), " ")
	full := "<" + s.username + ">: " + text

	for _, line := range splitChat(full) {
		msg := &packet.Message{ID: s.id, Text: line}
		if err := s.writeEcho(msg); err != nil {
			return err
		}
		*bc = append(*bc, Outbound{From: s.id, Packet: msg})
	}
	return nil
}

// splitChat cuts a chat line into 64-byte wire chunks; continuation
// chunks carry no prefix.
func splitChat(text string) []string {
	var lines []string
	for len(text) > protocol.StringLength {
		lines = append(lines, text[:protocol.StringLength])
		text = text[protocol.StringLength:]
	}
	return append(lines, text)
}
