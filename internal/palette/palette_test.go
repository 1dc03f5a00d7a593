package palette

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSet(t *testing.T) {
	base := MustParse("#3366cc")
	set := NewSet(base)

	assert.Equal(t, "#3366cc", set.Color.Hex())
	assert.Equal(t, "#3366cc", set.Background.Hex())
	assert.InDelta(t, BackgroundAlpha, set.Background.Alpha, 1e-9)
	assert.Equal(t, Text, set.Text)
	assert.InDelta(t, 1.0, set.Color.Alpha, 1e-9)
}

func TestFlatten(t *testing.T) {
	black := MustParse("#000000")

	assert.Equal(t, "#ffffff", black.WithAlpha(0).Flatten(White).Hex())
	assert.Equal(t, "#000000", black.Flatten(White).Hex())

	half := black.WithAlpha(0.5).Flatten(White)
	r, g, b := half.RGB255()
	assert.InDelta(t, 128, int(r), 1)
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)
}

func TestParseError(t *testing.T) {
	_, err := Parse("blue")
	assert.Error(t, err)
	assert.Panics(t, func() { MustParse("nope") })
}

func TestCSS(t *testing.T) {
	c := MustParse("#ff0000").WithAlpha(0.3)
	assert.Equal(t, "rgba(255, 0, 0, 0.30)", c.CSS())
}

func TestCacheMemoizes(t *testing.T) {
	c := NewCache(42)
	first := c.Get("alice")
	assert.Equal(t, first, c.Get("alice"))
	assert.Equal(t, 1, c.Len())

	c.Get("bob")
	assert.Equal(t, 2, c.Len())
}

func TestCacheSeedIsDeterministic(t *testing.T) {
	a, b := NewCache(7), NewCache(7)
	for _, id := range []string{"x", "y", "z"} {
		require.Equal(t, a.Get(id).Hex(), b.Get(id).Hex(), id)
	}

	other := NewCache(8)
	assert.NotEqual(t, NewCache(7).Get("x").Hex(), other.Get("x").Hex())
}

func TestCacheSetOverrides(t *testing.T) {
	c := NewCache(1)
	red := MustParse("#ff0000")
	c.Set("work", red)
	assert.Equal(t, red, c.Get("work"))
}
