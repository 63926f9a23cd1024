// Command i2csim drives the bit-banged I2C master against simulated
// devices, from a script or interactively.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tarm/serial"

	"github.com/semf-lib/semf-lib-sub000/config"
	"github.com/semf-lib/semf-lib-sub000/core"
)

var (
	configPath = flag.String("config", "", "Bus configuration (JSON); built-in default when empty")
	scriptPath = flag.String("script", "", "Command script; interactive when empty")
	device     = flag.String("serial", "", "Serial device receiving the debug trace")
	baud       = flag.Int("baud", 115200, "Baud rate of the trace port")
	realtime   = flag.Bool("realtime", false, "Clock the bus with a wall-clock timer")
	verbose    = flag.Bool("verbose", false, "Print the debug trace to stdout")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	closeTrace, err := setupTrace(*device, *baud, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeTrace()

	s, err := newSession(cfg, *realtime, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	in := io.Reader(os.Stdin)
	interactive := *scriptPath == ""
	if !interactive {
		f, err := os.Open(*scriptPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	} else {
		fmt.Printf("Bus %s: SDA=GPIO%d SCL=GPIO%d, %d devices\n", cfg.Name, cfg.SDAPin, cfg.SCLPin, len(cfg.Devices))
		fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	}

	if err := runScript(s, in, interactive); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.BusConfig, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := config.LoadConfig(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// setupTrace routes core debug output to a UART or stdout
func setupTrace(dev string, baud int, verbose bool) (func(), error) {
	switch {
	case dev != "":
		port, err := serial.OpenPort(&serial.Config{Name: dev, Baud: baud})
		if err != nil {
			return nil, fmt.Errorf("failed to open serial port %s: %w", dev, err)
		}
		core.SetDebugWriter(func(msg string) {
			port.Write([]byte(msg + "\r\n"))
		})
		core.SetDebugEnabled(true)
		core.InitAsyncDebug()
		return func() { port.Close() }, nil
	case verbose:
		core.SetDebugWriter(func(msg string) { fmt.Println(msg) })
		core.SetDebugEnabled(true)
		core.InitAsyncDebug()
	}
	return func() {}, nil
}

// runScript executes lines until EOF or quit. In interactive mode command
// errors are reported and the loop continues; scripts stop at the first.
func runScript(s *session, in io.Reader, interactive bool) error {
	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(s.out, "> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		err := s.exec(line)
		switch {
		case errors.Is(err, errQuit):
			return nil
		case err != nil && interactive:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		case err != nil:
			return fmt.Errorf("%q: %w", line, err)
		}
	}
	return scanner.Err()
}
