package user

import "erlobby/internal/pkg/randx"

// DefaultColor is the color of a connection that has not introduced itself.
const DefaultColor = "gray"

// Palette is the fixed set of display colors handed out to nicknames.
var Palette = []string{
	"#ff6b6b", "#4ecdc4", "#45b7d1", "#f7d794", "#786fa6",
	"#f8a5c2", "#63cdda", "#ea8685", "#546de5", "#e15f41",
	"#c44569", "#574b90", "#f5cd79", "#cf6a87", "#3dc1d3",
	"#ff9f43", "#ee5253", "#10ac84", "#0abde3", "#5f27cd",
	"#54a0ff", "#00d2d3", "#ff9ff3", "#feca57", "#48dbfb",
	"#1dd1a1", "#2ecc71", "#3498db", "#9b59b6", "#e67e22",
	"#e74c3c", "#1abc9c", "#2c3e50", "#f1c40f", "#8e44ad",
	"#2980b9", "#d35400", "#c0392b", "#16a085", "#7f8c8d",
	"#D980FA", "#9980FA", "#833471", "#0652DD", "#1289A7",
	"#EA2027", "#009432", "#F79F1F", "#1B1464", "#5758BB",
	"#6F1E51", "#B53471", "#EE5A24", "#006266", "#1e3799",
	"#b33939", "#218c74", "#33d9b2", "#cd6133", "#40407a",
	"#706fd3", "#f7f1e3", "#34ace0", "#ff5252", "#ff793f",
	"#d1ccc0", "#ffb142", "#ffda79", "#cc8e35", "#ccae62",
}

// ColorBook assigns a display color to every nickname for the lifetime of the process.
//
// Colors are keyed by nickname, not identity, and are not persisted: two identities
// sharing a nickname share a color, and a returning player may get a new color after
// a restart. A ColorBook is owned by a single goroutine and is not safe for concurrent use.
type ColorBook struct {
	assigned map[string]string
	used     map[string]int
	intn     func(int) int
}

// NewColorBook returns an empty ColorBook drawing from Palette at random.
func NewColorBook() *ColorBook {
	return NewColorBookWithRand(randx.Intn)
}

// NewColorBookWithRand returns an empty ColorBook using intn for its random choices.
func NewColorBookWithRand(intn func(int) int) *ColorBook {
	return &ColorBook{
		assigned: make(map[string]string),
		used:     make(map[string]int),
		intn:     intn,
	}
}

// ColorFor returns the color of nickname, assigning one on first sight.
// A new assignment prefers a palette color not yet handed out; once the palette is
// exhausted any palette color may be reused.
func (b *ColorBook) ColorFor(nickname string) string {
	if color, ok := b.assigned[nickname]; ok {
		return color
	}

	available := make([]string, 0, len(Palette))
	for _, c := range Palette {
		if b.used[c] == 0 {
			available = append(available, c)
		}
	}

	var color string
	if len(available) > 0 {
		color = available[b.intn(len(available))]
	} else {
		color = Palette[b.intn(len(Palette))]
	}

	b.assigned[nickname] = color
	b.used[color]++
	return color
}

// Len returns the number of nicknames with an assigned color.
func (b *ColorBook) Len() int {
	return len(b.assigned)
}
