package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"coildriver/core"
	"coildriver/host/link"
	"coildriver/host/preview"
)

var (
	errQuit      = errors.New("quit")
	errOffline   = errors.New("no device connected (started with -offline)")
	errNoSpeaker = errors.New("audio output unavailable")
)

// device is the subset of *link.Link used by the shell
type device interface {
	SetWave(cfg core.WaveConfig) error
	GetWave() (link.WaveState, error)
	SaveWave() error
	LoadWave() error
	Dictionary() string
}

// speaker is the subset of *preview.Speaker used by the shell
type speaker interface {
	Play(r io.Reader)
	Stop()
}

type shell struct {
	out        io.Writer
	dev        device
	hw         core.Hardware
	sampleRate int

	openSpeaker func(sampleRate int) (speaker, error)
	spk         speaker
	sleep       func(time.Duration)
}

func (s *shell) exec(args []string) error {
	if len(args) == 0 {
		return nil
	}

	cmd, rest := strings.ToLower(args[0]), args[1:]
	switch cmd {
	case "quit", "exit", "q":
		return errQuit

	case "help", "?":
		s.printHelp()
		return nil

	case "resolve":
		cfg, err := parseWave(rest)
		if err != nil {
			return err
		}
		return s.resolve(cfg)

	case "preview":
		return s.preview(rest)

	case "stop":
		if s.spk != nil {
			s.spk.Stop()
		}
		return nil
	}

	if s.dev == nil {
		return errOffline
	}

	switch cmd {
	case "set":
		cfg, err := parseWave(rest)
		if err != nil {
			return err
		}
		if err := s.dev.SetWave(cfg); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "ok: %s\n", describe(cfg))
		return nil

	case "get":
		st, err := s.dev.GetWave()
		if err != nil {
			return err
		}
		s.printState(st)
		return nil

	case "save":
		if err := s.dev.SaveWave(); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "saved")
		return nil

	case "load":
		if err := s.dev.LoadWave(); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "loaded")
		return nil

	case "dict":
		fmt.Fprintln(s.out, s.dev.Dictionary())
		return nil
	}

	return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmd)
}

// parseWave reads "<shape> <frequency> [bi]"
func parseWave(args []string) (core.WaveConfig, error) {
	if len(args) < 2 || len(args) > 3 {
		return core.WaveConfig{}, errors.New("usage: <square|sine|saw> <frequency> [bi]")
	}

	shape, err := core.ParseShape(args[0])
	if err != nil {
		return core.WaveConfig{}, err
	}

	freq, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return core.WaveConfig{}, fmt.Errorf("bad frequency %q: %w", args[1], err)
	}

	cfg := core.WaveConfig{Shape: shape, Frequency: freq}
	if len(args) == 3 {
		switch strings.ToLower(args[2]) {
		case "bi", "bidirectional":
			cfg.Bidirectional = true
		default:
			return core.WaveConfig{}, fmt.Errorf("unknown option %q", args[2])
		}
	}
	return cfg, nil
}

func describe(cfg core.WaveConfig) string {
	s := fmt.Sprintf("%s %g Hz", cfg.Shape, cfg.Frequency)
	if cfg.Bidirectional {
		s += " bidirectional"
	}
	return s
}

func (s *shell) resolve(cfg core.WaveConfig) error {
	if cfg.Shape == core.ShapeSquare {
		t, err := core.ResolveSquare(cfg.Frequency, s.hw)
		if err != nil {
			return err
		}
		half := float64(t.HalfPeriod())
		actual := float64(s.hw.ClockRate) / 2 / half
		fmt.Fprintf(s.out, "%s: repeat=%d interval=%d (%.4f Hz)\n", describe(cfg), t.RepeatCount, t.Interval, actual)
		return nil
	}

	p, err := core.ResolveTable(cfg.Frequency, s.hw)
	if err != nil {
		return err
	}
	actual := s.hw.TableRate() / float64(uint32(p.Length)*uint32(p.Scale))
	fmt.Fprintf(s.out, "%s: length=%d scale=%d (%.4f Hz)\n", describe(cfg), p.Length, p.Scale, actual)
	return nil
}

// preview plays "<shape> <frequency> [bi] [seconds]" on the local sound card
func (s *shell) preview(args []string) error {
	seconds := 2.0
	if n := len(args); n >= 3 {
		if v, err := strconv.ParseFloat(args[n-1], 64); err == nil {
			seconds = v
			args = args[:n-1]
		}
	}

	cfg, err := parseWave(args)
	if err != nil {
		return err
	}

	r, err := preview.New(s.hw, s.sampleRate)
	if err != nil {
		return err
	}
	if err := r.Apply(cfg); err != nil {
		return err
	}

	if s.spk == nil {
		if s.openSpeaker == nil {
			return errNoSpeaker
		}
		spk, err := s.openSpeaker(s.sampleRate)
		if err != nil {
			return fmt.Errorf("%w: %w", errNoSpeaker, err)
		}
		s.spk = spk
	}

	fmt.Fprintf(s.out, "playing %s for %gs\n", describe(cfg), seconds)
	s.spk.Play(r)
	s.sleep(time.Duration(seconds * float64(time.Second)))
	s.spk.Stop()
	return nil
}

func (s *shell) printState(st link.WaveState) {
	active := "inactive"
	if st.Active {
		active = "active"
	}
	fmt.Fprintf(s.out, "%s (%s)\n", describe(st.Config), active)
	if st.Config.Shape == core.ShapeSquare {
		fmt.Fprintf(s.out, "  repeat=%d interval=%d\n", st.Square.RepeatCount, st.Square.Interval)
	} else {
		fmt.Fprintf(s.out, "  length=%d scale=%d\n", st.Table.Length, st.Table.Scale)
	}
}

func (s *shell) printHelp() {
	fmt.Fprintln(s.out, "\nAvailable commands:")
	fmt.Fprintln(s.out, "  set <shape> <freq> [bi]       - Play a wave on the device")
	fmt.Fprintln(s.out, "  get                           - Show the active wave")
	fmt.Fprintln(s.out, "  save                          - Store the active wave in EEPROM")
	fmt.Fprintln(s.out, "  load                          - Reload the stored wave")
	fmt.Fprintln(s.out, "  resolve <shape> <freq>        - Show timer parameters without a device")
	fmt.Fprintln(s.out, "  preview <shape> <freq> [secs] - Play the wave on this computer")
	fmt.Fprintln(s.out, "  stop                          - Stop a preview")
	fmt.Fprintln(s.out, "  dict                          - Print the command dictionary")
	fmt.Fprintln(s.out, "  quit/exit/q                   - Exit the program")
	fmt.Fprintln(s.out, "Shapes: square, sine, saw")
	fmt.Fprintln(s.out)
}
