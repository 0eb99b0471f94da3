package net

import (
	"fmt"

	"github.com/greycraft/classic-server/internal/server/packet"
	"github.com/greycraft/classic-server/pkg/protocol"
)

// FrameSize is the read/write buffer size: a canonical Ethernet MTU
// payload. Inbound reads fill at most one frame per tick; outbound
// packets are coalesced into frames of this size.
const FrameSize = 1460

// Framer turns a byte stream into serverbound packets. The protocol is
// not self-delimiting: packet length is a pure function of the leading
// opcode, so the framer walks the buffer by the opcode size table,
// keeping any trailing partial packet for the next Feed.
type Framer struct {
	pending []byte
}

// Feed appends freshly read bytes to the pending buffer. A zero-length
// slice is a no-op.
func (f *Framer) Feed(b []byte) {
	if len(b) == 0 {
		return
	}
	f.pending = append(f.pending, b...)
}

// Pending reports how many buffered bytes have not been consumed yet.
func (f *Framer) Pending() int { return len(f.pending) }

// Next consumes and decodes the next complete packet. It returns
// (nil, nil) when the buffer holds no complete packet. With postLogin
// set, a 0x00 opcode is illegal (PlayerIdentification cannot repeat)
// and ends the frame: the remaining buffer is discarded.
//
// An opcode outside the size table decodes to packet.Unknown; since its
// length is unknowable the rest of the frame is discarded too.
func (f *Framer) Next(postLogin bool) (protocol.Packet, error) {
	if len(f.pending) == 0 {
		return nil, nil
	}

	op := f.pending[0]
	if postLogin && op == 0x00 {
		f.pending = f.pending[:0]
		return nil, nil
	}

	size, ok := packet.ServerboundSize(op)
	if !ok {
		f.pending = f.pending[:0]
		return packet.Unknown{Op: op}, nil
	}
	if len(f.pending) < size {
		return nil, nil
	}

	p, err := packet.DecodeServerbound(f.pending[:size])
	if err != nil {
		return nil, fmt.Errorf("decode opcode 0x%02X: %w", op, err)
	}
	f.pending = f.pending[size:]
	return p, nil
}
