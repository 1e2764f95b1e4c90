package tasks

import "airsense-go/config"

// Classify maps a VOC index to its four-tier color bucket, then applies the
// NOx override: whenever the NOx index exceeds the alert threshold the
// bucket color is replaced unconditionally by the distinct alert color.
func Classify(vocIndex, noxIndex int32, th config.Thresholds, pal config.Palette) config.RGB {
	var col config.RGB
	switch {
	case vocIndex > th.VOCSevere:
		col = pal.VOCSevere
	case vocIndex > th.VOCHigh:
		col = pal.VOCHigh
	case vocIndex > th.VOCElevated:
		col = pal.VOCElevated
	default:
		col = pal.VOCLow
	}
	if noxIndex > th.NOxAlert {
		col = pal.NOxAlert
	}
	return col
}
