package block

// Block is one of the 50 voxel types of the classic protocol, identified
// on the wire by a single byte in [0x00, 0x31].
type Block byte

const (
	Air Block = iota
	Stone
	GrassBlock
	Dirt
	Cobblestone
	Planks
	Sapling
	Bedrock
	FlowingWater
	StationaryWater
	FlowingLava
	StationaryLava
	Sand
	Gravel
	GoldOre
	IronOre
	CoalOre
	Wood
	Leaves
	Sponge
	Glass
	RedCloth
	OrangeCloth
	YellowCloth
	ChartreuseCloth
	GreenCloth
	SpringGreenCloth
	CyanCloth
	CapriCloth
	UltramarineCloth
	VioletCloth
	PurpleCloth
	MagentaCloth
	RoseCloth
	DarkGrayCloth
	LightGrayCloth
	WhiteCloth
	Dandelion
	Rose
	BrownMushroom
	RedMushroom
	GoldBlock
	IronBlock
	DoubleSlab
	Slab
	Bricks
	TNT
	Bookshelf
	MossyCobblestone
	Obsidian

	maxBlock = Obsidian // 0x31
)

// FromByte decodes a wire byte into a Block. Bytes outside the known
// range decode to Air.
func FromByte(b byte) Block {
	if b > byte(maxBlock) {
		return Air
	}
	return Block(b)
}

// Byte returns the wire encoding of the block.
func (b Block) Byte() byte { return byte(b) }

var names = [...]string{
	"air", "stone", "grass_block", "dirt", "cobblestone", "planks",
	"sapling", "bedrock", "flowing_water", "stationary_water",
	"flowing_lava", "stationary_lava", "sand", "gravel", "gold_ore",
	"iron_ore", "coal_ore", "wood", "leaves", "sponge", "glass",
	"red_cloth", "orange_cloth", "yellow_cloth", "chartreuse_cloth",
	"green_cloth", "spring_green_cloth", "cyan_cloth", "capri_cloth",
	"ultramarine_cloth", "violet_cloth", "purple_cloth", "magenta_cloth",
	"rose_cloth", "dark_gray_cloth", "light_gray_cloth", "white_cloth",
	"dandelion", "rose", "brown_mushroom", "red_mushroom", "gold_block",
	"iron_block", "double_slab", "slab", "bricks", "tnt", "bookshelf",
	"mossy_cobblestone", "obsidian",
}

func (b Block) String() string {
	if b > maxBlock {
		return "air"
	}
	return names[b]
}
