package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTimeframe(t *testing.T) {
	cases := map[string]Timeframe{
		"H1": TF1Hour, "1h": TF1Hour, "h4": TF4Hour, "D": TFDay, "daily": TFDay,
		"3D": TF3Day, "W": TFWeek, "1w": TFWeek, "M": TFMonth, "1M": TFMonth,
	}
	for raw, want := range cases {
		got, ok := ParseTimeframe(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}
	_, ok := ParseTimeframe("1m")
	assert.False(t, ok)
}

func TestTimeframeHierarchy(t *testing.T) {
	assert.Less(t, TFMonth.Rank(), TFWeek.Rank())
	assert.Less(t, TF4Hour.Rank(), TF1Hour.Rank())
	assert.Equal(t, 99, Timeframe("5m").Rank())

	assert.Equal(t, []Timeframe{TF3Day, TFDay, TF4Hour, TF1Hour}, TFWeek.Lower())
	assert.Empty(t, TF1Hour.Lower())
	assert.Nil(t, Timeframe("x").Lower())
}

func TestClassifyPairAndWicks(t *testing.T) {
	red := Bar{Open: 1.1050, Close: 1.1020, Low: 1.1010, High: 1.1060}
	green := Bar{Open: 1.1025, Close: 1.1080, Low: 1.1015, High: 1.1085}

	dir, ok := ClassifyPair(red, green)
	assert.True(t, ok)
	assert.Equal(t, DirectionBullish, dir)
	ext, near := WickPoints(dir, red, green)
	assert.Equal(t, 1.1010, ext)
	assert.Equal(t, 1.1015, near)

	dir, ok = ClassifyPair(green, red)
	assert.True(t, ok)
	assert.Equal(t, DirectionBearish, dir)
	ext, near = WickPoints(dir, green, red)
	assert.Equal(t, 1.1085, ext)
	assert.Equal(t, 1.1060, near)

	_, ok = ClassifyPair(red, red)
	assert.False(t, ok)
	doji := Bar{Open: 1, Close: 1, High: 1.1, Low: 0.9}
	_, ok = ClassifyPair(doji, green)
	assert.False(t, ok)
}
