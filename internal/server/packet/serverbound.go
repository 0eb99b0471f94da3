package packet

import (
	"github.com/greycraft/classic-server/pkg/protocol"
)

// Serverbound packets of the classic protocol (client → server).

// PlayerIdentification opens the login handshake (serverbound 0x00).
type PlayerIdentification struct {
	Protocol        byte   `mc:"u8"`
	Username        string `mc:"str64"`
	VerificationKey string `mc:"str64"`
	Unused          byte   `mc:"u8"`
}

func (PlayerIdentification) Opcode() byte { return 0x00 }

// SetBlock mode values.
const (
	SetBlockBreak byte = 0
	SetBlockPlace byte = 1
)

// SetBlockServerbound is a client block edit request (serverbound 0x05).
type SetBlockServerbound struct {
	X     int16 `mc:"i16"`
	Y     int16 `mc:"i16"`
	Z     int16 `mc:"i16"`
	Mode  byte  `mc:"u8"`
	Block byte  `mc:"u8"`
}

func (SetBlockServerbound) Opcode() byte { return 0x05 }

// PositionAndOrientation is the client's absolute pose report (serverbound 0x08).
type PositionAndOrientation struct {
	PlayerID byte  `mc:"u8"` // always 0xFF from vanilla clients, ignored
	X        int16 `mc:"i16"`
	Y        int16 `mc:"i16"`
	Z        int16 `mc:"i16"`
	Yaw      byte  `mc:"u8"`
	Pitch    byte  `mc:"u8"`
}

func (PositionAndOrientation) Opcode() byte { return 0x08 }

// MessageServerbound is a chat line typed by the client (serverbound 0x0D).
type MessageServerbound struct {
	Unused byte   `mc:"u8"`
	Text   string `mc:"str64"`
}

func (MessageServerbound) Opcode() byte { return 0x0D }

// Unknown stands in for any serverbound opcode outside the table.
// Sessions log it at debug level and move on.
type Unknown struct {
	Op byte
}

func (u Unknown) Opcode() byte { return u.Op }

// serverboundSizes maps serverbound opcodes to total packet size
// including the opcode byte.
var serverboundSizes = map[byte]int{
	0x00: 131,
	0x05: 9,
	0x08: 10,
	0x0D: 66,
}

// ServerboundSize reports the total wire size for a serverbound opcode.
// ok is false for opcodes outside the table.
func ServerboundSize(op byte) (size int, ok bool) {
	size, ok = serverboundSizes[op]
	return size, ok
}

// DecodeServerbound decodes a complete serverbound packet (opcode plus
// body) into its typed form. Opcodes outside the table yield Unknown.
func DecodeServerbound(data []byte) (protocol.Packet, error) {
	op := data[0]
	body := data[1:]

	switch op {
	case 0x00:
		var p PlayerIdentification
		if err := protocol.Unmarshal(body, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case 0x05:
		var p SetBlockServerbound
		if err := protocol.Unmarshal(body, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case 0x08:
		var p PositionAndOrientation
		if err := protocol.Unmarshal(body, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case 0x0D:
		var p MessageServerbound
		if err := protocol.Unmarshal(body, &p); err != nil {
			return nil, err
		}
		return &p, nil
	default:
		return Unknown{Op: op}, nil
	}
}
