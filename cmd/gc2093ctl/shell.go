package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"sensorcode-go/drivers/gc2093"
	"sensorcode-go/x/ctrl"
)

func runShell(args []string) error {
	fs := flag.NewFlagSet("shell", flag.ExitOnError)
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

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "gc2093> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	sh := &shell{dev: s.dev, out: rl.Stdout()}
	sh.help()
	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(sh.out, "Exiting...")
			return nil
		}
		if sh.exec(line) {
			return nil
		}
	}
}

// shell runs one command line at a time against a device.
type shell struct {
	dev *gc2093.Device
	out io.Writer
}

// exec runs one line and reports whether the shell should exit.
func (sh *shell) exec(line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		sh.help()
	case "status", "st":
		if err := printStatus(sh.out, sh.dev.Status()); err != nil {
			sh.fail(err)
		}
	case "power":
		sh.power(args)
	case "start":
		sh.check(sh.dev.Start())
	case "stop":
		sh.dev.Stop()
		fmt.Fprintln(sh.out, "stopped")
	case "get", "g":
		sh.get(args)
	case "set", "s":
		sh.set(args)
	case "ctrls", "c":
		sh.controls()
	case "quit", "exit", "q":
		fmt.Fprintln(sh.out, "Exiting...")
		return true
	default:
		fmt.Fprintf(sh.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (sh *shell) help() {
	fmt.Fprintln(sh.out, `Commands:
  status            Device state, controls and counters
  power on|off      Take or drop the explicit power reference
  start | stop      Stream on or off
  get <ctrl>        Read a control value
  set <ctrl> <val>  Set a control (several pairs form one batch)
  ctrls             List controls and their ranges
  quit              Exit`)
}

func (sh *shell) check(err error) {
	if err != nil {
		sh.fail(err)
		return
	}
	fmt.Fprintln(sh.out, "ok")
}

func (sh *shell) fail(err error) { fmt.Fprintf(sh.out, "Error: %v\n", err) }

func (sh *shell) power(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(sh.out, "Usage: power on|off")
		return
	}
	switch args[0] {
	case "on":
		sh.check(sh.dev.PowerOn())
	case "off":
		sh.dev.PowerOff()
		fmt.Fprintf(sh.out, "power %s\n", sh.dev.PowerState())
	default:
		fmt.Fprintln(sh.out, "Usage: power on|off")
	}
}

func (sh *shell) get(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(sh.out, "Usage: get <ctrl>")
		return
	}
	id, ok := ctrl.ParseID(args[0])
	if !ok {
		fmt.Fprintf(sh.out, "Unknown control: %s\n", args[0])
		return
	}
	v, err := sh.dev.Control(id)
	if err != nil {
		sh.fail(err)
		return
	}
	fmt.Fprintf(sh.out, "%s = %d\n", id, v)
}

func (sh *shell) set(args []string) {
	if len(args) == 0 || len(args)%2 != 0 {
		fmt.Fprintln(sh.out, "Usage: set <ctrl> <val> [<ctrl> <val> ...]")
		fmt.Fprintln(sh.out, "  Example: set vblank 500 exposure 1500")
		return
	}
	vals := make([]ctrl.Value, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		id, v, err := parseControl(args[i], args[i+1])
		if err != nil {
			sh.fail(err)
			return
		}
		vals = append(vals, ctrl.Value{ID: id, Val: v})
	}
	if len(vals) == 1 && vals[0].ID == ctrl.VBlank {
		rc, err := sh.dev.SetVerticalBlank(uint32(vals[0].Val))
		if err != nil {
			sh.fail(err)
			return
		}
		fmt.Fprintf(sh.out, "exposure range [%d, %d]", rc.NewMin, rc.NewMax)
		if rc.Clamped() {
			fmt.Fprintf(sh.out, ", exposure clamped %d -> %d", rc.OldValue, rc.NewValue)
		}
		fmt.Fprintln(sh.out)
		return
	}
	sh.check(sh.dev.SetControls(vals))
}

func (sh *shell) controls() {
	for _, c := range sh.dev.Status().Controls {
		ro := ""
		if c.ReadOnly {
			ro = " (read-only)"
		}
		item := ""
		if c.Item != "" {
			item = " " + c.Item
		}
		fmt.Fprintf(sh.out, "%-14s %d%s [%d, %d]%s\n", c.Name, c.Value, item, c.Min, c.Max, ro)
	}
}
