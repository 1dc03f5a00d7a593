// Package palette assigns display colors to events and calendars.
package palette

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

// BackgroundAlpha is the opacity used for event backgrounds.
const BackgroundAlpha = 0.3

// Color is an RGB color with an alpha channel.
type Color struct {
	colorful.Color
	Alpha float64
}

var (
	// Text is the fixed high-contrast text color for event labels.
	Text = Color{Color: colorful.Color{R: 0, G: 0, B: 0}, Alpha: 1}
	// White is the default surface color used by Flatten.
	White = Color{Color: colorful.Color{R: 1, G: 1, B: 1}, Alpha: 1}
)

// Parse reads "#rrggbb" into an opaque Color.
func Parse(hex string) (Color, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return Color{}, fmt.Errorf("palette: %w", err)
	}
	return Color{Color: c, Alpha: 1}, nil
}

// MustParse is Parse for constants.
func MustParse(hex string) Color {
	c, err := Parse(hex)
	if err != nil {
		panic(err)
	}
	return c
}

// WithAlpha returns c with the given opacity.
func (c Color) WithAlpha(a float64) Color {
	c.Alpha = a
	return c
}

// Flatten composites c over an opaque background.
func (c Color) Flatten(over Color) Color {
	return Color{Color: over.Color.BlendRgb(c.Color, c.Alpha), Alpha: 1}
}

// Hex formats the RGB part as "#rrggbb".
func (c Color) Hex() string {
	return c.Color.Clamped().Hex()
}

// CSS formats the color as an rgba() value.
func (c Color) CSS() string {
	r, g, b := c.Color.Clamped().RGB255()
	return fmt.Sprintf("rgba(%d, %d, %d, %.2f)", r, g, b, c.Alpha)
}

// Set is the trio of colors an event is drawn with.
type Set struct {
	Color      Color
	Background Color
	Text       Color
}

// NewSet derives background and text colors from a base color.
func NewSet(base Color) Set {
	return Set{
		Color:      base,
		Background: base.WithAlpha(BackgroundAlpha),
		Text:       Text,
	}
}

// Cache memoizes one random color per stable identifier.
// The generator is seeded so that assignments are reproducible.
type Cache struct {
	mu     sync.Mutex
	rng    *rand.Rand
	colors map[string]Color
}

// NewCache creates a cache whose random colors derive from seed.
func NewCache(seed int64) *Cache {
	return &Cache{
		rng:    rand.New(rand.NewSource(seed)),
		colors: make(map[string]Color),
	}
}

// Get returns the color for id, assigning a new one on first use.
func (c *Cache) Get(id string) Color {
	c.mu.Lock()
	defer c.mu.Unlock()
	if col, ok := c.colors[id]; ok {
		return col
	}
	col := c.next()
	c.colors[id] = col
	return col
}

// Set pins id to a fixed color, e.g. one configured for a calendar source.
func (c *Cache) Set(id string, col Color) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.colors[id] = col
}

// Len returns the number of assigned colors.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.colors)
}

// next draws a saturated, mid-bright hue so labels stay readable.
func (c *Cache) next() Color {
	h := c.rng.Float64() * 360
	s := 0.55 + c.rng.Float64()*0.3
	v := 0.7 + c.rng.Float64()*0.25
	return Color{Color: colorful.Hsv(h, s, v), Alpha: 1}
}
