package commands

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"airsense-go/config"
	"airsense-go/gasindex"
	"airsense-go/i2cbus"
	"airsense-go/indicator"
	"airsense-go/internal/sim"
	"airsense-go/msgbus"
	"airsense-go/tasks"
	"airsense-go/x/timex"
)

var (
	runBus       string
	runSerial    string
	runVOCScript string
	runNOxScript string
	runTimeScale float64
	runCycles    int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full firmware pipeline on the simulated bus",
	Long: `Runs conditioning, measurement, classification and the indicator
against an in-memory SGP41. Raw tick scripts drive the readings; the last
entry repeats forever. Stop with Ctrl-C.

Examples:
  sgp41d run --time-scale 20
  sgp41d run --voc 26400,30449,33000 --nox 15000,15000,27500`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringVar(&runBus, "bus", "sim", "bus backend (only \"sim\" exists on host)")
	runCmd.Flags().StringVar(&runSerial, "serial", "0xA1B2C3D4E5F6", "sensor serial number (48-bit)")
	runCmd.Flags().StringVar(&runVOCScript, "voc", "", "comma-separated raw VOC ticks")
	runCmd.Flags().StringVar(&runNOxScript, "nox", "", "comma-separated raw NOx ticks")
	runCmd.Flags().Float64Var(&runTimeScale, "time-scale", 1, "divide all waits by this factor")
	runCmd.Flags().IntVar(&runCycles, "cycles", 0, "override conditioning cycle count")
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runCycles > 0 {
		cfg.Conditioning.Cycles = runCycles
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// An unknown bus backend parks the process, the same way the firmware
	// halts when its platform bus cannot be opened.
	if runBus != "sim" {
		log.WithField("bus", runBus).Error("unknown bus backend, parking")
		<-ctx.Done()
		return nil
	}

	sensor, err := buildSensor()
	if err != nil {
		return err
	}
	arb := i2cbus.New(sensor)
	sleep := timex.Sleep
	if runTimeScale != 1 {
		sleep = timex.Scaled(runTimeScale)
	}

	if serial, err := tasks.Probe(ctx, arb, cfg.Sensor.Address, sleep); err != nil {
		log.WithError(err).Warn("sensor probe failed, continuing anyway")
	} else {
		log.WithField("serial", strconv.FormatUint(serial, 16)).Info("sensor probed")
	}

	tel := msgbus.New(16)
	intents := indicator.NewChannel()
	voc, nox := gasindex.New(), gasindex.New()

	cond := &tasks.Conditioning{
		Bus:       arb,
		Addr:      cfg.Sensor.Address,
		Cfg:       cfg.Conditioning,
		Comp:      cfg.Measurement.Compensation,
		Palette:   cfg.Indicator.Palette,
		VOC:       voc,
		Intents:   intents,
		Telemetry: tel,
		Sleep:     sleep,
		Done:      tasks.NewCompletion(),
	}
	meas := &tasks.Measurement{
		Bus:         arb,
		Addr:        cfg.Sensor.Address,
		Cfg:         cfg.Measurement,
		Thresholds:  cfg.Thresholds,
		Palette:     cfg.Indicator.Palette,
		BlinkPeriod: cfg.Indicator.BlinkPeriod(),
		VOC:         voc,
		NOx:         nox,
		Intents:     intents,
		Telemetry:   tel,
		Sleep:       sleep,
		Ready:       cond.Done,
	}

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		indicator.Run(ctx, intents, &termLED{}, sleep)
	}()
	go func() {
		defer wg.Done()
		watchTelemetry(ctx, tel)
	}()
	go func() {
		defer wg.Done()
		if err := cond.Run(ctx); err != nil {
			log.WithError(err).Debug("conditioning stopped")
		}
	}()
	go func() {
		defer wg.Done()
		if err := meas.Run(ctx); err != nil {
			log.WithError(err).Debug("measurement stopped")
		}
	}()
	wg.Wait()
	return nil
}

func loadConfig() (config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func buildSensor() (*sim.Sensor, error) {
	serial, err := strconv.ParseUint(runSerial, 0, 64)
	if err != nil {
		return nil, errors.Wrap(err, "parsing --serial")
	}
	sensor := sim.NewSensor(serial & 0xFFFFFFFFFFFF)

	voc, err := parseScript(runVOCScript)
	if err != nil {
		return nil, errors.Wrap(err, "parsing --voc")
	}
	nox, err := parseScript(runNOxScript)
	if err != nil {
		return nil, errors.Wrap(err, "parsing --nox")
	}
	sensor.Script(voc, nox)
	return sensor, nil
}

func parseScript(s string) ([]uint16, error) {
	if s == "" {
		return nil, nil
	}
	var out []uint16
	for _, tok := range strings.Split(s, ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(tok), 0, 16)
		if err != nil {
			return nil, err
		}
		out = append(out, uint16(v))
	}
	return out, nil
}

// termLED renders the status LED on the terminal. The palette uses small
// duty values (0..30), so scale them up for visibility.
type termLED struct {
	mu sync.Mutex
}

func (l *termLED) SetColor(r, g, b uint8) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := color.RGB(scaleLED(r), scaleLED(g), scaleLED(b))
	c.Printf("  ● led (%d,%d,%d)\n", r, g, b)
}

func scaleLED(v uint8) int {
	s := int(v) * 8
	if s > 255 {
		s = 255
	}
	return s
}

func watchTelemetry(ctx context.Context, tel *msgbus.Bus) {
	state := tel.Subscribe(tasks.TopicState)
	cond := tel.Subscribe(tasks.TopicConditioning)
	voc := tel.Subscribe(tasks.TopicVOC)
	nox := tel.Subscribe(tasks.TopicNOx)
	defer state.Unsubscribe()
	defer cond.Unsubscribe()
	defer voc.Unsubscribe()
	defer nox.Unsubscribe()

	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)
	green := color.New(color.FgGreen)

	for {
		select {
		case <-ctx.Done():
			return
		case m := <-state.Channel():
			cyan.Printf("state: %v\n", m.Payload)
		case m := <-cond.Channel():
			p := m.Payload.(tasks.Progress)
			yellow.Printf("conditioning %d/%d ok=%v\n", p.Cycle, p.Total, p.OK)
		case m := <-voc.Channel():
			r := m.Payload.(tasks.Reading)
			green.Printf("VOC raw=%5d index=%3d\n", r.Raw, r.Index)
		case m := <-nox.Channel():
			r := m.Payload.(tasks.Reading)
			green.Printf("NOx raw=%5d index=%3d\n", r.Raw, r.Index)
		}
	}
}
