package net

import (
	"bytes"
	"testing"

	"github.com/greycraft/classic-server/internal/server/packet"
	"github.com/greycraft/classic-server/pkg/protocol"
)

func mustMarshal(t *testing.T, p protocol.Packet) []byte {
	t.Helper()
	data, err := protocol.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestFramerConcatenatedStream(t *testing.T) {
	var stream []byte
	stream = append(stream, mustMarshal(t, &packet.SetBlockServerbound{X: 1, Y: 2, Z: 3, Mode: 1, Block: 0x2C})...)
	stream = append(stream, mustMarshal(t, &packet.PositionAndOrientation{PlayerID: 0xFF, X: 100, Y: 200, Z: 300, Yaw: 4, Pitch: 5})...)
	stream = append(stream, mustMarshal(t, &packet.MessageServerbound{Unused: 0xFF, Text: "hello"})...)

	var f Framer
	f.Feed(stream)

	var got []protocol.Packet
	for {
		p, err := f.Next(true)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if p == nil {
			break
		}
		got = append(got, p)
	}

	if len(got) != 3 {
		t.Fatalf("decoded %d packets, want 3", len(got))
	}
	if f.Pending() != 0 {
		t.Errorf("pending = %d, want 0 (exact consumption)", f.Pending())
	}

	sb, ok := got[0].(*packet.SetBlockServerbound)
	if !ok {
		t.Fatalf("packet 0 is %T, want *SetBlockServerbound", got[0])
	}
	if sb.X != 1 || sb.Y != 2 || sb.Z != 3 || sb.Mode != 1 || sb.Block != 0x2C {
		t.Errorf("SetBlock = %+v", sb)
	}
	msg, ok := got[2].(*packet.MessageServerbound)
	if !ok {
		t.Fatalf("packet 2 is %T, want *MessageServerbound", got[2])
	}
	if msg.Text != "hello" {
		t.Errorf("Text = %q, want %q", msg.Text, "hello")
	}
}

func TestFramerKeepsTrailingPartial(t *testing.T) {
	full := mustMarshal(t, &packet.SetBlockServerbound{X: 7, Mode: 0, Block: 0x01})
	partial := mustMarshal(t, &packet.PositionAndOrientation{X: 9})[:4]

	var f Framer
	f.Feed(full)
	f.Feed(partial)

	p, err := f.Next(true)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if _, ok := p.(*packet.SetBlockServerbound); !ok {
		t.Fatalf("first packet is %T, want *SetBlockServerbound", p)
	}

	p, err = f.Next(true)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if p != nil {
		t.Fatalf("partial packet was consumed: %T", p)
	}
	if f.Pending() != len(partial) {
		t.Errorf("pending = %d, want %d", f.Pending(), len(partial))
	}

	// Completing the packet makes it decodable.
	rest := mustMarshal(t, &packet.PositionAndOrientation{X: 9})[4:]
	f.Feed(rest)
	p, err = f.Next(true)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	pos, ok := p.(*packet.PositionAndOrientation)
	if !ok {
		t.Fatalf("completed packet is %T, want *PositionAndOrientation", p)
	}
	if pos.X != 9 {
		t.Errorf("X = %d, want 9", pos.X)
	}
}

func TestFramerPostLoginIdentificationEndsFrame(t *testing.T) {
	var f Framer
	f.Feed(mustMarshal(t, &packet.PlayerIdentification{Protocol: 7, Username: "Alice"}))

	p, err := f.Next(true)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if p != nil {
		t.Fatalf("post-login 0x00 decoded to %T, want end-of-frame", p)
	}
	if f.Pending() != 0 {
		t.Errorf("pending = %d, want 0 (frame discarded)", f.Pending())
	}
}

func TestFramerPreLoginIdentification(t *testing.T) {
	var f Framer
	f.Feed(mustMarshal(t, &packet.PlayerIdentification{Protocol: 7, Username: "Alice", VerificationKey: "key"}))

	p, err := f.Next(false)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	ident, ok := p.(*packet.PlayerIdentification)
	if !ok {
		t.Fatalf("packet is %T, want *PlayerIdentification", p)
	}
	if ident.Username != "Alice" || ident.VerificationKey != "key" {
		t.Errorf("ident = %+v", ident)
	}
}

func TestFramerUnknownOpcodeDiscardsFrame(t *testing.T) {
	var f Framer
	f.Feed([]byte{0x42, 0x01, 0x02, 0x03})

	p, err := f.Next(true)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	u, ok := p.(packet.Unknown)
	if !ok {
		t.Fatalf("packet is %T, want packet.Unknown", p)
	}
	if u.Op != 0x42 {
		t.Errorf("Op = 0x%02X, want 0x42", u.Op)
	}
	if f.Pending() != 0 {
		t.Errorf("pending = %d, want 0", f.Pending())
	}
}

func TestWriterCoalesces(t *testing.T) {
	var sink bytes.Buffer
	w := NewWriter(&sink)

	// Two pings (2 bytes) coalesce into one frame.
	if err := w.WritePacket(&packet.Ping{}); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}
	if err := w.WritePacket(&packet.Ping{}); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}
	if sink.Len() != 0 {
		t.Errorf("wrote %d bytes before flush, want 0", sink.Len())
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if !bytes.Equal(sink.Bytes(), []byte{0x01, 0x01}) {
		t.Errorf("frame = % X, want 01 01", sink.Bytes())
	}
}

func TestWriterFlushesOnOverflow(t *testing.T) {
	var sink bytes.Buffer
	w := NewWriter(&sink)

	// A LevelDataChunk is 1028 bytes; the second one overflows 1460.
	chunk := &packet.LevelDataChunk{Length: 1024}
	if err := w.WritePacket(chunk); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}
	if err := w.WritePacket(chunk); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}
	if sink.Len() != 1028 {
		t.Errorf("flushed %d bytes on overflow, want 1028", sink.Len())
	}
	if w.Buffered() != 1028 {
		t.Errorf("buffered = %d, want 1028", w.Buffered())
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if sink.Len() != 2056 {
		t.Errorf("total = %d, want 2056", sink.Len())
	}
}
