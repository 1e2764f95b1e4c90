package tasks

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"airsense-go/config"
)

func TestClassify_FourTiers(t *testing.T) {
	def := config.Default()
	th, pal := def.Thresholds, def.Indicator.Palette

	cases := []struct {
		name string
		voc  int32
		want config.RGB
	}{
		{"low", 28, pal.VOCLow},
		{"elevated boundary stays low", 92, pal.VOCLow},
		{"elevated", 93, pal.VOCElevated},
		{"high", 115, pal.VOCHigh},
		{"severe", 156, pal.VOCSevere},
		{"boundary high stays elevated", 114, pal.VOCElevated},
		{"boundary severe stays high", 155, pal.VOCHigh},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.voc, 0, th, pal))
		})
	}
}

func TestClassify_NOxOverridesUnconditionally(t *testing.T) {
	def := config.Default()
	th, pal := def.Thresholds, def.Indicator.Palette

	for _, voc := range []int32{0, 93, 115, 200} {
		assert.Equal(t, pal.NOxAlert, Classify(voc, 31, th, pal), "voc=%d", voc)
	}
	// At the threshold, no override.
	assert.Equal(t, pal.VOCLow, Classify(10, 30, th, pal))
}

func TestClassify_LowVOCLiteralColor(t *testing.T) {
	// Raw 26400 through the default tuning gives index 28, which must land
	// in the low bucket and produce this exact triple.
	def := config.Default()
	col := Classify(28, 0, def.Thresholds, def.Indicator.Palette)
	assert.Equal(t, config.RGB{R: 0, G: 30, B: 0}, col)
}
