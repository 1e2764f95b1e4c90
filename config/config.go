// Package config holds the firmware parameters: bus address, conditioning
// length, pacing delays, classification thresholds and the indicator
// palette. Everything has a default; a YAML file overrides selectively.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"airsense-go/errcode"
)

// RGB is one palette entry.
type RGB struct {
	R uint8 `yaml:"r"`
	G uint8 `yaml:"g"`
	B uint8 `yaml:"b"`
}

// Sensor identifies the device on the shared bus.
type Sensor struct {
	Address uint16 `yaml:"address"`
}

// Compensation is the ambient input encoded into every command frame.
// The firmware has no ambient sensor; this is a static placeholder
// (25 degC / 50 %RH), not a live reading.
type Compensation struct {
	TempC float32 `yaml:"temp_c"`
	RHPct float32 `yaml:"rh_pct"`
}

// Conditioning parameters for the warm-up sequence.
type Conditioning struct {
	Cycles            int `yaml:"cycles"`
	ConversionDelayMS int `yaml:"conversion_delay_ms"`
	CyclePauseMS      int `yaml:"cycle_pause_ms"`
}

func (c Conditioning) ConversionDelay() time.Duration {
	return time.Duration(c.ConversionDelayMS) * time.Millisecond
}
func (c Conditioning) CyclePause() time.Duration {
	return time.Duration(c.CyclePauseMS) * time.Millisecond
}

// Measurement parameters for the steady-state loop. PenaltyDelayMS paces
// retries after a failed transaction; it matches the cycle pause so a
// misbehaving sensor is polled no faster than a healthy one.
type Measurement struct {
	ConversionDelayMS int          `yaml:"conversion_delay_ms"`
	CyclePauseMS      int          `yaml:"cycle_pause_ms"`
	PenaltyDelayMS    int          `yaml:"penalty_delay_ms"`
	Compensation      Compensation `yaml:"compensation"`
}

func (m Measurement) ConversionDelay() time.Duration {
	return time.Duration(m.ConversionDelayMS) * time.Millisecond
}
func (m Measurement) CyclePause() time.Duration {
	return time.Duration(m.CyclePauseMS) * time.Millisecond
}
func (m Measurement) PenaltyDelay() time.Duration {
	return time.Duration(m.PenaltyDelayMS) * time.Millisecond
}

// Thresholds classify the VOC index into tiers, plus the NOx override.
type Thresholds struct {
	VOCSevere   int32 `yaml:"voc_severe"`   // above: severe tier
	VOCHigh     int32 `yaml:"voc_high"`     // above: high tier
	VOCElevated int32 `yaml:"voc_elevated"` // above: elevated tier
	NOxAlert    int32 `yaml:"nox_alert"`    // above: alert override
}

// Palette maps states and tiers to colors.
type Palette struct {
	Booting      RGB `yaml:"booting"`
	Conditioning RGB `yaml:"conditioning"`
	Ready        RGB `yaml:"ready"`

	VOCLow      RGB `yaml:"voc_low"`
	VOCElevated RGB `yaml:"voc_elevated"`
	VOCHigh     RGB `yaml:"voc_high"`
	VOCSevere   RGB `yaml:"voc_severe"`
	NOxAlert    RGB `yaml:"nox_alert"`
}

// Indicator groups the blink period with the palette.
type Indicator struct {
	BlinkPeriodMS int     `yaml:"blink_period_ms"`
	Palette       Palette `yaml:"palette"`
}

func (i Indicator) BlinkPeriod() time.Duration {
	return time.Duration(i.BlinkPeriodMS) * time.Millisecond
}

// Config is the whole firmware configuration.
type Config struct {
	Sensor       Sensor       `yaml:"sensor"`
	Conditioning Conditioning `yaml:"conditioning"`
	Measurement  Measurement  `yaml:"measurement"`
	Thresholds   Thresholds   `yaml:"thresholds"`
	Indicator    Indicator    `yaml:"indicator"`
}

// Default returns the values the firmware ships with.
func Default() Config {
	return Config{
		Sensor: Sensor{Address: 0x59},
		Conditioning: Conditioning{
			Cycles:            10,
			ConversionDelayMS: 50,
			CyclePauseMS:      1000,
		},
		Measurement: Measurement{
			ConversionDelayMS: 50,
			CyclePauseMS:      1000,
			PenaltyDelayMS:    1000,
			Compensation:      Compensation{TempC: 25.0, RHPct: 50.0},
		},
		Thresholds: Thresholds{
			VOCSevere:   155,
			VOCHigh:     114,
			VOCElevated: 92,
			NOxAlert:    30,
		},
		Indicator: Indicator{
			BlinkPeriodMS: 300,
			Palette: Palette{
				Booting:      RGB{30, 0, 0},
				Conditioning: RGB{30, 0, 30},
				Ready:        RGB{0, 30, 0},
				VOCLow:       RGB{0, 30, 0},
				VOCElevated:  RGB{30, 30, 0},
				VOCHigh:      RGB{30, 0, 10},
				VOCSevere:    RGB{30, 0, 0},
				NOxAlert:     RGB{0, 0, 30},
			},
		},
	}
}

// Load reads path and overlays it on the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "reading config file")
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, errors.Wrap(err, "parsing config file")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the tasks cannot run with.
func (c Config) Validate() error {
	fail := func(msg string) error {
		return &errcode.E{C: errcode.InvalidConfig, Op: "config.Validate", Msg: msg}
	}
	if c.Sensor.Address == 0 || c.Sensor.Address > 0x7F {
		return fail("sensor address must be a 7-bit bus address")
	}
	if c.Conditioning.Cycles <= 0 {
		return fail("conditioning cycles must be positive")
	}
	if c.Conditioning.ConversionDelayMS < 0 || c.Conditioning.CyclePauseMS < 0 {
		return fail("conditioning delays must not be negative")
	}
	if c.Measurement.ConversionDelayMS < 0 || c.Measurement.CyclePauseMS < 0 ||
		c.Measurement.PenaltyDelayMS < 0 {
		return fail("measurement delays must not be negative")
	}
	if c.Thresholds.VOCSevere <= c.Thresholds.VOCHigh ||
		c.Thresholds.VOCHigh <= c.Thresholds.VOCElevated {
		return fail("voc thresholds must be strictly decreasing severe > high > elevated")
	}
	if c.Indicator.BlinkPeriodMS <= 0 {
		return fail("blink period must be positive")
	}
	return nil
}
