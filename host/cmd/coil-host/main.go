package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/shlex"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"coildriver/config"
	"coildriver/host/link"
	"coildriver/host/preview"
	"coildriver/host/serial"
)

var (
	devicePath = flag.String("device", "", "Serial device path (overrides config)")
	baud       = flag.Int("baud", 0, "Baud rate (ignored for USB CDC)")
	configPath = flag.String("config", "", "Board configuration JSON")
	offline    = flag.Bool("offline", false, "Do not connect; only resolve and preview are available")
	sampleRate = flag.Int("rate", 48000, "Preview sample rate")
	verbose    = flag.Bool("verbose", false, "Enable verbose output")
)

func main() {
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		c, err := config.LoadFile(*configPath)
		if err != nil {
			log.WithError(err).Fatal("failed to load config")
		}
		cfg = c
	}
	if *devicePath != "" {
		cfg.Serial.Device = *devicePath
	}
	if *baud != 0 {
		cfg.Serial.Baud = *baud
	}

	sh := &shell{
		out:        os.Stdout,
		hw:         cfg.Hardware(),
		sampleRate: *sampleRate,
		openSpeaker: func(rate int) (speaker, error) {
			return preview.OpenSpeaker(rate)
		},
		sleep: time.Sleep,
	}

	if !*offline {
		sc := serial.DefaultConfig(cfg.Serial.Device)
		sc.Baud = cfg.Serial.Baud

		log.WithField("device", sc.Device).Info("connecting")
		l, err := link.Dial(sc, log)
		if err != nil {
			log.WithError(err).Fatal("failed to connect")
		}
		defer l.Close()
		sh.dev = l
	}

	// One-shot mode: remaining arguments form a single command
	if flag.NArg() > 0 {
		if err := sh.exec(flag.Args()); err != nil && !errors.Is(err, errQuit) {
			log.WithError(err).Error("command failed")
			os.Exit(1)
		}
		return
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		fmt.Println("Coil driver host - type 'help' for available commands, 'quit' to exit")
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		if interactive {
			fmt.Print("> ")
		}
		if !scanner.Scan() {
			break
		}

		args, err := shlex.Split(scanner.Text())
		if err != nil {
			log.WithError(err).Error("bad input")
			continue
		}

		if err := sh.exec(args); err != nil {
			if errors.Is(err, errQuit) {
				return
			}
			log.WithError(err).Error("command failed")
		}
	}

	if err := scanner.Err(); err != nil {
		log.WithError(err).Fatal("error reading input")
	}
}
