// Command irsimreceive feeds code words from a text file through the decoder
// and prints the packets a daemon would broadcast.
//
// Each input line holds a hex code word and optionally the number of
// microseconds elapsed since the previous line:
//
//	0x20df10ef
//	0x20df10ef 108000
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"libdb.so/go-lircd"
	"libdb.so/go-lircd/config"
)

// codeWordDriver decodes code words and cannot send.
type codeWordDriver struct{}

func (codeWordDriver) Decode(remote *lirc.Remote, sig lirc.Signal) (lirc.Frame, bool) {
	return lirc.DecodeCodeWord(remote, sig)
}

func (codeWordDriver) Transmit(*lirc.Remote, *lirc.Button, lirc.Code) error {
	return lirc.ErrSendUnsupported
}

// simClock is advanced by the input instead of the wall clock.
type simClock struct{ t time.Time }

func (c *simClock) Now() time.Time { return c.t }

func main() {
	var (
		configPath = flag.String("config", "/etc/lirc/lircd.yaml", "Path to the YAML config")
		inputPath  = flag.String("input", "-", "Code word file, - for stdin")
		interval   = flag.Duration("interval", 110*time.Millisecond, "Time between lines without an explicit delay")
		codeLength = flag.Int("code-length", 0, "Bits per code word (overrides driver.code_length)")
		logLevel   = flag.String("log-level", "", "Log level: error|warn|info|debug (overrides logging.level)")
	)
	flag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "irsimreceive: %v\n", err)
		os.Exit(1)
	}
	if *codeLength > 0 {
		cfg.Driver.CodeLength = *codeLength
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "irsimreceive: %v\n", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	in := io.Reader(os.Stdin)
	if *inputPath != "-" {
		f, err := os.Open(*inputPath)
		if err != nil {
			logger.Error("cannot open input", "err", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	if err := run(cfg, logger, in, os.Stdout, *interval); err != nil {
		logger.Error("simulation failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger, in io.Reader, out io.Writer, interval time.Duration) error {
	remotes, err := cfg.BuildRemotes()
	if err != nil {
		return err
	}
	minFreq, maxFreq := lirc.FrequencyRange(remotes)
	logger.Info("loaded remotes",
		"remotes", len(remotes),
		"min_freq", minFreq,
		"max_freq", maxFreq)

	clock := &simClock{t: time.Unix(0, 0)}
	decoder := lirc.NewDecoder(codeWordDriver{}, remotes, logger)
	decoder.Now = clock.Now
	decoder.DynamicCodes = cfg.Daemon.DynamicCodes

	var releaser *lirc.Releaser
	if cfg.Daemon.Release {
		releaser = lirc.NewReleaser(cfg.Daemon.ReleaseSuffix)
		releaser.Now = clock.Now
		decoder.Release = releaser
	}

	var last time.Time
	scanner := bufio.NewScanner(in)
	for lineno := 1; scanner.Scan(); lineno++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		code, delay, err := parseLine(line, interval)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineno, err)
		}
		clock.t = clock.t.Add(delay)

		if releaser != nil {
			if p, ok := releaser.Trigger(); ok {
				io.WriteString(out, p.Packet())
			}
		}

		press, err := decoder.Decode(lirc.Signal{
			Code:  code,
			Bits:  cfg.Driver.CodeLength,
			Start: clock.t,
			Last:  last,
		})
		last = clock.t

		switch {
		case err == nil:
			if releaser != nil {
				if p, ok := releaser.Check(); ok {
					io.WriteString(out, p.Packet())
				}
			}
			io.WriteString(out, press.Packet())
		case errors.Is(err, lirc.ErrNoMatch):
			logger.Warn("no remote matched", "line", lineno, "code", uint64(code))
		default:
			logger.Debug("no packet", "line", lineno, "err", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if releaser != nil {
		if p, ok := releaser.Flush(); ok {
			io.WriteString(out, p.Packet())
		}
	}
	io.WriteString(out, lirc.PacketEOF)
	return nil
}

func parseLine(line string, interval time.Duration) (lirc.Code, time.Duration, error) {
	w := strings.Fields(line)
	if len(w) > 2 {
		return 0, 0, fmt.Errorf("too many fields")
	}
	code, err := strconv.ParseUint(w[0], 0, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad code %q: %w", w[0], err)
	}
	delay := interval
	if len(w) == 2 {
		usec, err := strconv.ParseUint(w[1], 10, 63)
		if err != nil {
			return 0, 0, fmt.Errorf("bad delay %q: %w", w[1], err)
		}
		delay = time.Duration(usec) * time.Microsecond
	}
	return lirc.Code(code), delay, nil
}
