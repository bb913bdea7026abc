// Command gc2093ctl drives a GC2093 image sensor from a Linux host.
//
// Usage:
//
//	gc2093ctl <command> [flags] [args]
//
// Commands:
//
//	status   Power the sensor, verify its identity and print the device state
//	stream   Stream until interrupted or for a fixed duration
//	set      Set one control and print its resulting range
//	shell    Interactive control shell
//	trace    Print a register trace recorded with -trace
//
// Examples:
//
//	# Stream for ten seconds with a longer frame and recorded bus traffic
//	gc2093ctl stream -config board.yaml -trace bus.trace -for 10s -vblank 500
//
//	# Show the writes made by a gain change
//	gc2093ctl set -config board.yaml -power -trace bus.trace analogue_gain 700
//	gc2093ctl trace -reg 0x00B3 bus.trace
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"

	"sensorcode-go/drivers/gc2093"
	"sensorcode-go/platform/periphio"
	"sensorcode-go/x/ctrl"
	"sensorcode-go/x/regtrace"
)

const usage = `gc2093ctl - GC2093 image sensor control

Usage:
  gc2093ctl <command> [flags] [args]

Commands:
  status   Power the sensor, verify its identity and print the device state
  stream   Stream until interrupted or for a fixed duration
  set      Set one control and print its resulting range
  shell    Interactive control shell
  trace    Print a register trace recorded with -trace

Use "gc2093ctl <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "status":
		err = runStatus(args)
	case "stream":
		err = runStream(args)
	case "set":
		err = runSet(args)
	case "shell":
		err = runShell(args)
	case "trace":
		err = runTrace(args, os.Stdout)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// common holds the flags every hardware command accepts.
type common struct {
	config  string
	trace   string
	verbose bool
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.config, "config", "", "YAML configuration file (defaults apply when empty)")
	fs.StringVar(&c.trace, "trace", "", "Append register transactions to this CBOR trace file")
	fs.BoolVar(&c.verbose, "v", false, "Debug logging")
}

// session is an opened board and device.
type session struct {
	dev   *gc2093.Device
	board *periphio.Board
	sink  *regtrace.FileSink
	log   *slog.Logger
}

func (c *common) open() (*session, error) {
	cfg, err := Load(c.config)
	if err != nil {
		return nil, err
	}
	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	board, err := periphio.Open(cfg.Board, log)
	if err != nil {
		return nil, err
	}
	s := &session{board: board, log: log}

	var bus drivers.I2C = board.Bus
	if c.trace != "" {
		sink, err := regtrace.NewFileSink(c.trace)
		if err != nil {
			board.Close()
			return nil, err
		}
		rec := regtrace.NewRecorder(bus, sink)
		log.Info("tracing", "file", c.trace, "session", rec.Session())
		s.sink, bus = sink, rec
	}

	dc, err := cfg.driverConfig()
	if err != nil {
		s.Close()
		return nil, err
	}
	dc.Logger = log
	dev, err := gc2093.New(bus, board.Providers, dc)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.dev = dev

	if vals := cfg.initialControls(); len(vals) > 0 {
		if err := dev.SetControls(vals); err != nil {
			s.Close()
			return nil, fmt.Errorf("initial controls: %w", err)
		}
	}
	return s, nil
}

func (s *session) Close() {
	if s.dev != nil {
		s.dev.Close()
	}
	if s.sink != nil {
		if err := s.sink.Err(); err != nil {
			s.log.Warn("trace encode", "err", err)
		}
		s.sink.Close()
	}
	s.board.Close()
}

func printStatus(w io.Writer, st gc2093.Status) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(st); err != nil {
		return err
	}
	return enc.Close()
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	var c common
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := c.open()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.dev.PowerOn(); err != nil {
		return err
	}
	return printStatus(os.Stdout, s.dev.Status())
}

func runStream(args []string) error {
	fs := flag.NewFlagSet("stream", flag.ExitOnError)
	var c common
	c.register(fs)
	dur := fs.Duration("for", 0, "Stream duration (0 streams until interrupted)")
	vblank := fs.Int("vblank", -1, "Vertical blanking in lines before starting")
	exposure := fs.Int("exposure", -1, "Exposure in lines before starting")
	gain := fs.Int("gain", -1, "Analog gain in 1/64 units before starting")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := c.open()
	if err != nil {
		return err
	}
	defer s.Close()

	var vals []ctrl.Value
	if *vblank >= 0 {
		vals = append(vals, ctrl.Value{ID: ctrl.VBlank, Val: int64(*vblank)})
	}
	if *exposure >= 0 {
		vals = append(vals, ctrl.Value{ID: ctrl.Exposure, Val: int64(*exposure)})
	}
	if *gain >= 0 {
		vals = append(vals, ctrl.Value{ID: ctrl.AnalogueGain, Val: int64(*gain)})
	}
	if len(vals) > 0 {
		if err := s.dev.SetControls(vals); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *dur > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *dur)
		defer cancel()
	}

	if err := s.dev.Start(); err != nil {
		return err
	}
	started := time.Now()
	<-ctx.Done()
	s.dev.Stop()
	s.log.Info("stream stopped", "after", time.Since(started).Round(time.Millisecond))
	return nil
}

func runSet(args []string) error {
	fs := flag.NewFlagSet("set", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `gc2093ctl set - Set one control

Usage:
  gc2093ctl set [flags] <control> <value>

Flags:
`)
		fs.PrintDefaults()
	}
	var c common
	c.register(fs)
	power := fs.Bool("power", false, "Power the sensor first so the value reaches its registers")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return errors.New("control and value required")
	}
	id, v, err := parseControl(fs.Arg(0), fs.Arg(1))
	if err != nil {
		return err
	}

	s, err := c.open()
	if err != nil {
		return err
	}
	defer s.Close()

	if *power {
		if err := s.dev.PowerOn(); err != nil {
			return err
		}
	}
	if err := s.dev.SetControl(id, v); err != nil {
		return err
	}
	r, err := s.dev.ControlRange(id)
	if err != nil {
		return err
	}
	fmt.Printf("%s = %d [%d, %d]\n", id, v, r.Min, r.Max)
	if id == ctrl.VBlank {
		e := s.dev.ExposureRange()
		fmt.Printf("exposure range [%d, %d]\n", e.Min, e.Max)
	}
	return nil
}

func parseControl(name, value string) (ctrl.ID, int64, error) {
	id, ok := ctrl.ParseID(name)
	if !ok {
		return 0, 0, fmt.Errorf("unknown control %q", name)
	}
	v, err := strconv.ParseInt(value, 0, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", name, err)
	}
	return id, v, nil
}

func runTrace(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("trace", flag.ExitOnError)
	reg := fs.String("reg", "", "Only transactions on this register (e.g. 0x003E)")
	onlyErrors := fs.Bool("errors", false, "Only failed transactions")
	sessionID := fs.String("session", "", "Only this recorder session")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("trace file path required")
	}

	filter := regtrace.Filter{Session: *sessionID, Errors: *onlyErrors}
	if *reg != "" {
		v, err := strconv.ParseUint(*reg, 0, 16)
		if err != nil {
			return fmt.Errorf("-reg: %w", err)
		}
		r := uint16(v)
		filter.Reg = &r
	}

	r, err := regtrace.NewReader(fs.Arg(0), filter)
	if err != nil {
		return err
	}
	defer r.Close()
	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(out, e.String())
	}
}
