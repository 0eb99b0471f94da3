package net

import (
	"fmt"
	"io"

	"github.com/greycraft/classic-server/pkg/protocol"
)

// Writer coalesces outbound packets into FrameSize buffers, flushing on
// overflow. Callers flush once more at the end of a tick batch.
type Writer struct {
	w   io.Writer
	buf []byte
}

// NewWriter wraps w with frame coalescing.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, buf: make([]byte, 0, FrameSize)}
}

// WritePacket marshals p into the current frame, flushing first if the
// packet would overflow it.
func (fw *Writer) WritePacket(p protocol.Packet) error {
	data, err := protocol.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal 0x%02X: %w", p.Opcode(), err)
	}

	if len(fw.buf)+len(data) > FrameSize {
		if err := fw.Flush(); err != nil {
			return err
		}
	}
	fw.buf = append(fw.buf, data...)
	return nil
}

// Flush writes out the buffered frame, if any.
func (fw *Writer) Flush() error {
	if len(fw.buf) == 0 {
		return nil
	}
	if _, err := fw.w.Write(fw.buf); err != nil {
		return fmt.Errorf("flush frame: %w", err)
	}
	fw.buf = fw.buf[:0]
	return nil
}

// Buffered reports the bytes held in the unflushed frame.
func (fw *Writer) Buffered() int { return len(fw.buf) }
