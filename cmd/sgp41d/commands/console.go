package commands

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"airsense-go/config"
	"airsense-go/drivers/sgp41"
	"airsense-go/gasindex"
	"airsense-go/tasks"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive codec console",
	Long: `A small REPL to poke the wire codec and classification by hand:

  crc <byte> [byte...]     checksum over the given hex bytes
  frame cond|meas <t> <rh> full command frame for the given compensation
  index <raw>              raw ticks through the default index tuning
  classify <voc> <nox>     indicator color for a pair of index values
  help, exit`,
	RunE: runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

func runConsole(cmd *cobra.Command, args []string) error {
	prompt := color.New(color.FgCyan)
	in := bufio.NewScanner(os.Stdin)

	for {
		prompt.Print("sgp41> ")
		if !in.Scan() {
			fmt.Println()
			return in.Err()
		}
		tokens, err := shlex.Split(in.Text())
		if err != nil {
			fmt.Println("parse error:", err)
			continue
		}
		if len(tokens) == 0 {
			continue
		}
		if tokens[0] == "exit" || tokens[0] == "quit" {
			return nil
		}
		if err := dispatch(tokens[0], tokens[1:]); err != nil {
			fmt.Println("error:", err)
		}
	}
}

func dispatch(cmd string, args []string) error {
	switch cmd {
	case "crc":
		return doCRC(args)
	case "frame":
		return doFrame(args)
	case "index":
		return doIndex(args)
	case "classify":
		return doClassify(args)
	case "help":
		fmt.Println("commands: crc, frame, index, classify, exit")
		return nil
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
}

func doCRC(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: crc <byte> [byte...]")
	}
	data := make([]byte, 0, len(args))
	for _, a := range args {
		v, err := strconv.ParseUint(a, 16, 8)
		if err != nil {
			return fmt.Errorf("bad hex byte %q", a)
		}
		data = append(data, byte(v))
	}
	fmt.Printf("crc(% X) = %02X\n", data, sgp41.Checksum(data))
	return nil
}

func doFrame(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: frame cond|meas <tempC> <rhPct>")
	}
	t, err := strconv.ParseFloat(args[1], 32)
	if err != nil {
		return fmt.Errorf("bad temperature %q", args[1])
	}
	rh, err := strconv.ParseFloat(args[2], 32)
	if err != nil {
		return fmt.Errorf("bad humidity %q", args[2])
	}

	var frame [8]byte
	switch args[0] {
	case "cond":
		frame = sgp41.ConditioningFrame(float32(t), float32(rh))
	case "meas":
		frame = sgp41.MeasureFrame(float32(t), float32(rh))
	default:
		return fmt.Errorf("frame kind must be cond or meas")
	}
	fmt.Printf("% X\n", frame)
	return nil
}

func doIndex(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: index <raw>")
	}
	raw, err := strconv.ParseInt(args[0], 0, 32)
	if err != nil {
		return fmt.Errorf("bad raw value %q", args[0])
	}
	fmt.Printf("index(%d) = %d\n", raw, gasindex.New().Process(int32(raw)))
	return nil
}

func doClassify(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: classify <vocIndex> <noxIndex>")
	}
	voc, err := strconv.ParseInt(args[0], 0, 32)
	if err != nil {
		return fmt.Errorf("bad voc index %q", args[0])
	}
	nox, err := strconv.ParseInt(args[1], 0, 32)
	if err != nil {
		return fmt.Errorf("bad nox index %q", args[1])
	}

	def := config.Default()
	col := tasks.Classify(int32(voc), int32(nox), def.Thresholds, def.Indicator.Palette)
	color.RGB(scaleLED(col.R), scaleLED(col.G), scaleLED(col.B)).
		Printf("● rgb(%d,%d,%d) %s\n", col.R, col.G, col.B, tierName(int32(voc), int32(nox), def.Thresholds))
	return nil
}

func tierName(voc, nox int32, th config.Thresholds) string {
	if nox > th.NOxAlert {
		return "nox-alert"
	}
	switch {
	case voc > th.VOCSevere:
		return "voc-severe"
	case voc > th.VOCHigh:
		return "voc-high"
	case voc > th.VOCElevated:
		return "voc-elevated"
	default:
		return "voc-low"
	}
}
