package collaboration

import "hash/fnv"

// palette is the fixed set of presence colors. A user's color is derived
// from a hash of the user id, so the same user renders in the same color
// across reconnects within a session. Two users may share a color;
// palette reuse is accepted.
var palette = []string{
	"#e03131", // red
	"#f08c00", // orange
	"#ffd43b", // yellow
	"#2f9e44", // green
	"#1098ad", // teal
	"#1971c2", // blue
	"#6741d9", // violet
	"#c2255c", // pink
	"#5c940d", // olive
	"#862e9c", // grape
}

// ColorFor deterministically maps a user id onto the palette.
func ColorFor(userID string) string {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return palette[h.Sum32()%uint32(len(palette))]
}
