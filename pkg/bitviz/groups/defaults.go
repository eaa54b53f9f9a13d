package groups

// =================================
// Palette
// =================================

// Palette is the fixed set of group colors, indexed by Group.ColorIndex.
var Palette = []string{
	"rgba(255, 99, 132, 1)",
	"rgba(255, 205, 86, 1)",
	"rgba(75, 192, 192, 1)",
	"rgba(153, 102, 255, 1)",
	"rgba(255, 159, 64, 1)",
	"rgba(54, 162, 235, 1)",
}

// PaletteHex holds the same colors as Palette in #RRGGBB form for
// terminal and document renderers.
var PaletteHex = []string{
	"#FF6384",
	"#FFCD56",
	"#4BC0C0",
	"#9966FF",
	"#FF9F40",
	"#36A2EB",
}

// PaletteSize is the number of distinct group colors.
const PaletteSize = 6

// WrapColor maps any integer onto a palette index, handling negatives.
func WrapColor(index int) int {
	return ((index % PaletteSize) + PaletteSize) % PaletteSize
}

// =================================
// Decode defaults
// =================================

// DefaultDecoder is the value decoder attached to new groups.
const DefaultDecoder = `function decode(bits) {
  // bits: array of 0/1 in selected order
  // MSB-first: bits[0] is most significant; LSB-first: bits[0] is least significant
  let value = 0;
  for (const b of bits) value = (value << 1) | b;
  return value;
}`

// DefaultFlagsDescriptions is the flags description map attached to new groups.
const DefaultFlagsDescriptions = `{"0":"Flag 0|No Flag 0","1":{"1":"Flag 1 set","0":"Flag 1 clear"}}`
