package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/google/shlex"

	"goesc/core"
	"goesc/host/monitor"
	"goesc/host/serial"
	"goesc/protocol"
)

var (
	device  = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud    = flag.Int("baud", 115200, "Baud rate (ignored for USB CDC)")
	window  = flag.Int("window", monitor.DefaultWindow, "Detection intervals kept for stats")
	verbose = flag.Bool("verbose", false, "Print every fault as it arrives")
)

func main() {
	flag.Parse()

	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud

	fmt.Printf("Connecting to ESC on %s...\n", *device)
	port, err := serial.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer port.Close()
	if err := port.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: flush failed: %v\n", err)
	}

	mon := monitor.New(port, *window)
	if *verbose {
		mon.OnFault(func(f protocol.Fault) {
			fmt.Printf("\nFAULT code=%d %s\n> ", f.Code, f.Detail)
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := mon.Run(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		}
	}()

	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		args, err := shlex.Split(scanner.Text())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "quit", "exit", "q":
			fmt.Println("Goodbye!")
			return

		case "help", "?":
			printHelp()

		case "status":
			if err := mon.RequestStatus(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			printStatus(mon)

		case "stats":
			printStats(mon)

		case "faults":
			for _, f := range mon.Faults() {
				fmt.Printf("  code=%d %s\n", f.Code, f.Detail)
			}

		case "thresholds":
			if err := setThresholds(mon, args[1:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}

		case "blanking":
			if err := setBlanking(mon, args[1:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}

		case "trace":
			if len(args) > 1 && args[1] == "show" {
				printTrace(mon)
				break
			}
			if err := mon.RequestTrace(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				break
			}
			fmt.Println("Trace requested; 'trace show' prints what has arrived")

		default:
			fmt.Printf("Unknown command: %s (type 'help' for available commands)\n", args[0])
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  status                 - Request and print the latest status")
	fmt.Println("  stats                  - Detection interval statistics")
	fmt.Println("  faults                 - Fault frames received")
	fmt.Println("  thresholds <low> <high> - Set detector hysteresis")
	fmt.Println("  blanking <ticks>       - Set the post-swap blanking window")
	fmt.Println("  trace [show]           - Request a trace dump, or print it")
	fmt.Println("  quit/exit/q            - Exit the program")
	fmt.Println()
}

func printStatus(mon *monitor.Monitor) {
	st, ok := mon.Status()
	if !ok {
		fmt.Println("No status received yet")
		return
	}
	frames, bad, corrupt := mon.Counters()
	fmt.Printf("clock=%d state=%s setpoint=%d current=%d\n",
		st.Clock, core.CommutationState(st.State), st.Setpoint, st.Current)
	fmt.Printf("detections=%d last_interval=%d samples=%d\n",
		st.DetectionCount, st.LastDetectionInterval, st.Samples)
	fmt.Printf("bad_flips=%d spurious=%d frames=%d rejected=%d corrupt=%d\n",
		st.BadFlipCount, st.SpuriousCount, frames, bad, corrupt)
}

func printStats(mon *monitor.Monitor) {
	s, err := mon.Stats()
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("n=%d mean=%.1f sd=%.2f median=%.1f min=%.0f max=%.0f (samples)\n",
		s.Count, s.Mean, s.StdDev, s.Median, s.Min, s.Max)
}

func printTrace(mon *monitor.Monitor) {
	for _, e := range mon.Trace() {
		fmt.Printf("%10d %-5s %-4s %v\n", e.Clock, core.TraceKind(e.Kind),
			core.CommutationState(e.State), e.Values)
	}
}

func setThresholds(mon *monitor.Monitor, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: thresholds <low> <high>")
	}
	low, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("low threshold: %w", err)
	}
	high, err := strconv.ParseInt(args[1], 10, 32)
	if err != nil {
		return fmt.Errorf("high threshold: %w", err)
	}
	return mon.SetThresholds(int32(low), int32(high))
}

func setBlanking(mon *monitor.Monitor, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: blanking <ticks>")
	}
	ticks, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("blanking: %w", err)
	}
	return mon.SetBlanking(uint32(ticks))
}
