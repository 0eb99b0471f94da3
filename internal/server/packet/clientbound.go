package packet

// Clientbound packets of the classic protocol (server → client).

// Protocol version reported in ServerIdentification.
const ProtocolVersion byte = 7

// SelfID is the reserved player id a client interprets as "myself".
// The hub never assigns it to a session.
const SelfID byte = 0xFF

// User type values carried by ServerIdentification and UpdateUserType.
const (
	UserTypeStandard byte = 0x00
	UserTypeOperator byte = 0x64
)

// ServerIdentification answers a successful login (clientbound 0x00).
type ServerIdentification struct {
	Protocol   byte   `mc:"u8"`
	ServerName string `mc:"str64"`
	MOTD       string `mc:"str64"`
	UserType   byte   `mc:"u8"`
}

func (ServerIdentification) Opcode() byte { return 0x00 }

// Ping is the keep-alive appended to every tick's echo batch (clientbound 0x01).
type Ping struct{}

func (Ping) Opcode() byte { return 0x01 }

// LevelInitialize announces the start of the world stream (clientbound 0x02).
type LevelInitialize struct{}

func (LevelInitialize) Opcode() byte { return 0x02 }

// LevelDataChunk carries one 1024-byte slice of the gzipped world
// (clientbound 0x03). Length is how many bytes of Data are meaningful;
// the rest is zero padding on the final chunk.
type LevelDataChunk struct {
	Length  int16      `mc:"i16"`
	Data    [1024]byte `mc:"chunk"`
	Percent byte       `mc:"u8"`
}

func (LevelDataChunk) Opcode() byte { return 0x03 }

// LevelFinalize concludes the world stream with the dimensions (clientbound 0x04).
type LevelFinalize struct {
	X int16 `mc:"i16"`
	Y int16 `mc:"i16"`
	Z int16 `mc:"i16"`
}

func (LevelFinalize) Opcode() byte { return 0x04 }

// SetBlock tells a client about a block change (clientbound 0x06).
type SetBlock struct {
	X     int16 `mc:"i16"`
	Y     int16 `mc:"i16"`
	Z     int16 `mc:"i16"`
	Block byte  `mc:"u8"`
}

func (SetBlock) Opcode() byte { return 0x06 }

// SpawnPlayer introduces a player to a client (clientbound 0x07).
type SpawnPlayer struct {
	ID    byte   `mc:"u8"`
	Name  string `mc:"str64"`
	X     int16  `mc:"i16"`
	Y     int16  `mc:"i16"`
	Z     int16  `mc:"i16"`
	Yaw   byte   `mc:"u8"`
	Pitch byte   `mc:"u8"`
}

func (SpawnPlayer) Opcode() byte { return 0x07 }

// PlayerTeleport moves a player to an absolute pose (clientbound 0x08).
// With ID == SelfID it repositions the receiving client itself.
type PlayerTeleport struct {
	ID    byte  `mc:"u8"`
	X     int16 `mc:"i16"`
	Y     int16 `mc:"i16"`
	Z     int16 `mc:"i16"`
	Yaw   byte  `mc:"u8"`
	Pitch byte  `mc:"u8"`
}

func (PlayerTeleport) Opcode() byte { return 0x08 }

// PositionAndOrientationUpdate is a relative move plus look (clientbound 0x09).
type PositionAndOrientationUpdate struct {
	ID    byte `mc:"u8"`
	DX    int8 `mc:"i8"`
	DY    int8 `mc:"i8"`
	DZ    int8 `mc:"i8"`
	Yaw   byte `mc:"u8"`
	Pitch byte `mc:"u8"`
}

func (PositionAndOrientationUpdate) Opcode() byte { return 0x09 }

// PositionUpdate is a relative move (clientbound 0x0A).
type PositionUpdate struct {
	ID byte `mc:"u8"`
	DX int8  `mc:"i8"`
	DY int8  `mc:"i8"`
	DZ int8  `mc:"i8"`
}

func (PositionUpdate) Opcode() byte { return 0x0A }

// OrientationUpdate is a look-only change (clientbound 0x0B).
type OrientationUpdate struct {
	ID    byte `mc:"u8"`
	Yaw   byte `mc:"u8"`
	Pitch byte `mc:"u8"`
}

func (OrientationUpdate) Opcode() byte { return 0x0B }

// DespawnPlayer removes a player from a client (clientbound 0x0C).
type DespawnPlayer struct {
	ID byte `mc:"u8"`
}

func (DespawnPlayer) Opcode() byte { return 0x0C }

// Message is a chat line attributed to the player with the given id
// (clientbound 0x0D).
type Message struct {
	ID   byte   `mc:"u8"`
	Text string `mc:"str64"`
}

func (Message) Opcode() byte { return 0x0D }

// DisconnectPlayer terminates a session with a reason (clientbound 0x0E).
type DisconnectPlayer struct {
	Reason string `mc:"str64"`
}

func (DisconnectPlayer) Opcode() byte { return 0x0E }

// UpdateUserType changes the receiving client's op status (clientbound 0x0F).
type UpdateUserType struct {
	UserType byte `mc:"u8"`
}

func (UpdateUserType) Opcode() byte { return 0x0F }
