package conn

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/greycraft/classic-server/internal/server/packet"
	"github.com/greycraft/classic-server/pkg/protocol"
)

// Rejection sent when the online-mode key check fails.
const authFailureReason = "You are not logged in to Minecraft"

func (s *Session) handleIdentification(p *packet.PlayerIdentification, bc *[]Outbound) error {
	if s.loggedIn {
		// The framer discards post-login identifications; this state
		// is unreachable but harmless.
		return nil
	}

	if p.Username == "" {
		s.log.Info("empty username, closing")
		s.Close()
		return ErrDisconnected
	}

	if s.cfg.Server.OnlineMode && !verifyKey(s.salt, p.Username, p.VerificationKey) {
		s.log.Info("authentication failed", "username", p.Username)
		s.Disconnect(authFailureReason)
		return ErrDisconnected
	}

	s.username = p.Username
	s.log = s.log.With("player", p.Username)
	s.log.Info("player identified", "protocol", p.Protocol)

	// 1. Identify ourselves back.
	if err := s.writeEcho(&packet.ServerIdentification{
		Protocol:   packet.ProtocolVersion,
		ServerName: s.cfg.Server.Name,
		MOTD:       s.cfg.Server.MOTD,
		UserType:   s.userType,
	}); err != nil {
		return err
	}

	// 2. Stream the world.
	if err := s.writeEcho(&packet.LevelInitialize{}); err != nil {
		return err
	}
	s.state = StateStreaming
	if err := s.streamWorld(); err != nil {
		return err
	}

	// 3. Finalize with the dimensions and drop the player at the
	// world center.
	sx, sy, sz := s.world.Size()
	if err := s.writeEcho(&packet.LevelFinalize{
		X: int16(sx), Y: int16(sy), Z: int16(sz),
	}); err != nil {
		return err
	}

	s.x = int16(sx/2)*32 + 16
	s.y = int16(sy/2+2) * 32
	s.z = int16(sz/2)*32 + 16
	s.yaw, s.pitch = 0, 0

	if err := s.writeEcho(&packet.PlayerTeleport{
		ID: packet.SelfID,
		X:  s.x, Y: s.y, Z: s.z,
		Yaw: s.yaw, Pitch: s.pitch,
	}); err != nil {
		return err
	}

	s.loggedIn = true
	s.justLoggedIn = true
	s.state = StateActive

	// 4. Announce to everyone else.
	*bc = append(*bc,
		Outbound{From: s.id, Packet: &packet.SpawnPlayer{
			ID: s.id, Name: s.username,
			X: s.x, Y: s.y, Z: s.z,
			Yaw: s.yaw, Pitch: s.pitch,
		}},
		Outbound{From: s.id, Packet: &packet.Message{
			ID:   packet.SelfID,
			Text: s.username + " joined the Server",
		}},
	)
	return nil
}

// streamWorld sends the gzipped snapshot as 1024-byte LevelDataChunk
// packets. The world lock is held for the whole stream; this session is
// the only writer during bootstrap and the snapshot stays coherent.
func (s *Session) streamWorld() error {
	return s.world.StreamTo(func(gz []byte) error {
		total := len(gz)
		for sent := 0; sent < total; sent += protocol.ChunkLength {
			chunk := packet.LevelDataChunk{}
			n := copy(chunk.Data[:], gz[sent:])
			chunk.Length = int16(n)
			chunk.Percent = byte((sent + n) * 100 / total)

			if err := s.writeEcho(&chunk); err != nil {
				return err
			}
		}
		return s.FlushWrites()
	})
}

func verifyKey(salt, username, key string) bool {
	sum := md5.Sum([]byte(salt + username))
	return hex.EncodeToString(sum[:]) == strings.ToLower(key)
}
