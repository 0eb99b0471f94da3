package block

import "testing"

func TestFromByteRoundTrip(t *testing.T) {
	for b := 0; b <= 0x31; b++ {
		got := FromByte(byte(b))
		if got.Byte() != byte(b) {
			t.Errorf("FromByte(0x%02X).Byte() = 0x%02X, want 0x%02X", b, got.Byte(), b)
		}
	}
}

func TestFromByteOutOfRange(t *testing.T) {
	for _, b := range []byte{0x32, 0x40, 0x7F, 0xFF} {
		if got := FromByte(b); got != Air {
			t.Errorf("FromByte(0x%02X) = %v, want Air", b, got)
		}
	}
}

func TestKnownEncodings(t *testing.T) {
	tests := []struct {
		block Block
		want  byte
	}{
		{Air, 0x00},
		{Stone, 0x01},
		{GrassBlock, 0x02},
		{Dirt, 0x03},
		{Bedrock, 0x07},
		{WhiteCloth, 0x24},
		{DoubleSlab, 0x2B},
		{Slab, 0x2C},
		{Obsidian, 0x31},
	}
	for _, tt := range tests {
		if tt.block.Byte() != tt.want {
			t.Errorf("%v.Byte() = 0x%02X, want 0x%02X", tt.block, tt.block.Byte(), tt.want)
		}
	}
}
