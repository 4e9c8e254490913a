package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/danielschenk/smartscope-decoders/pkg/app"
	"github.com/danielschenk/smartscope-decoders/pkg/app/config"
	"github.com/danielschenk/smartscope-decoders/pkg/chlorbus"
	"github.com/danielschenk/smartscope-decoders/pkg/decoder"
	"github.com/danielschenk/smartscope-decoders/pkg/trace"

	"github.com/urfave/cli/v2"
	"github.com/womat/debug"
	"golang.org/x/sync/errgroup"
)

const defaultConfigFile = "/etc/" + app.MODULE + ".yaml"

// registerDecoders installs the built in decoders.
func registerDecoders() error {
	return decoder.Register(chlorbus.New())
}

func main() {
	exitCode := 1
	defer func() {
		os.Exit(exitCode)
	}()

	if err := registerDecoders(); err != nil {
		debug.FatalLog.Print(err)
		return
	}

	// cfg holds the application configuration
	cfg := config.NewConfig()

	cliApp := &cli.App{
		Name:    app.MODULE,
		Usage:   "pulse length decoder for the chlorinator display bus",
		Version: app.VERSION,
		Description: "Decode the serial bus between a saltwater chlorination controller and its wired display unit." +
			"\n Traces are sampled from a gpio line or read from capture files and decoded to the byte stream" +
			"\n shown on the display. Results are served over http and published to mqtt and influxdb.",
		UsageText: app.MODULE + " [--config <file>] [--debug standard|debug|trace]" +
			"\n" + app.MODULE + " decode [--decoder <name>] [--samplerate <hz>] FILE..." +
			"\n\nEXAMPLE:" +
			"\n\tstart the daemon and use the configuration file ssdec.yaml" +
			"\n\t\tssdec --config /etc/ssdec.yaml" +
			"\n\tdecode two capture files" +
			"\n\t\tssdec decode captures/morning.csv captures/evening.bin",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Destination: &cfg.Flag.ConfigFile, Value: defaultConfigFile, Usage: "load configuration from `FILE`"},
			&cli.StringFlag{Name: "debug", Aliases: []string{"d"}, Destination: &cfg.Flag.Debug, Usage: "`LEVEL` overrules the configured debug level (standard|debug|trace|error)"},
		},
		Action: func(ctx *cli.Context) error {
			if err := cfg.LoadConfig(); err != nil {
				return err
			}

			debug.SetDebug(cfg.Debug.File, cfg.Debug.Flag)
			defer func() {
				debug.InfoLog.Printf("closing debug file %s", cfg.Debug.FileString)
				_ = cfg.Debug.File.Close()
			}()

			a, err := app.New(cfg)
			defer func() {
				debug.InfoLog.Printf("closing app %s", app.Version())
				_ = a.Close()
			}()

			if err != nil {
				return err
			}

			debug.InfoLog.Printf("starting app %s", app.Version())
			if err = a.Run(); err != nil {
				return err
			}

			// capture exit signals to ensure resources are released on exit.
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			for {
				select {
				case sig := <-quit:
					debug.InfoLog.Printf("Got %s signal. Aborting...", sig)
					return nil
				case <-a.Shutdown():
					debug.InfoLog.Print("shutdown request received")
					return nil
				case <-a.Restart():
					debug.InfoLog.Print("restart request received")
					_ = a.Close()

					if a, err = app.New(cfg); err != nil {
						return err
					}
					if err = a.Run(); err != nil {
						return err
					}
				}
			}
		},
		Commands: []*cli.Command{
			{
				Name:      "decode",
				Usage:     "decode capture files and print the results as json",
				ArgsUsage: "FILE...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "decoder", Value: "chlorbus", Usage: "run decoder `NAME`, see the decoders web service for choices"},
					&cli.IntFlag{Name: "samplerate", Value: 100000, Usage: "sample `RATE` in Hz of raw captures"},
				},
				Action: func(ctx *cli.Context) error {
					flag := debug.Standard
					switch cfg.Flag.Debug {
					case "trace", "full":
						flag = debug.Full
					case "debug":
						flag = debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug
					case "error":
						flag = debug.Error | debug.Fatal
					}
					debug.SetDebug(os.Stderr, flag)

					return decodeFiles(ctx)
				},
			},
		},
	}

	// we expect to have more command line flags in the future - sort them
	sort.Sort(cli.FlagsByName(cliApp.Flags))
	sort.Sort(cli.CommandsByName(cliApp.Commands))

	err := cliApp.Run(os.Args)
	if err != nil {
		debug.FatalLog.Print(err)
		exitCode = 1
		return
	}

	exitCode = 0
	return
}

// decodeFiles decodes all capture files given as arguments concurrently and
// prints one json result per file, in argument order.
func decodeFiles(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return fmt.Errorf("no capture files given")
	}

	dec, ok := decoder.Lookup(ctx.String("decoder"))
	if !ok {
		return fmt.Errorf("unknown decoder %q", ctx.String("decoder"))
	}

	samplerate := ctx.Int("samplerate")
	if samplerate <= 0 {
		return fmt.Errorf("invalid sample rate %d", samplerate)
	}
	samplePeriod := time.Second / time.Duration(samplerate)

	results := make([]app.Result, ctx.NArg())
	g := new(errgroup.Group)

	for i, file := range ctx.Args().Slice() {
		i, file := i, file

		g.Go(func() error {
			t, err := trace.ReadFile(file, samplePeriod)
			if err != nil {
				return err
			}

			in := decoder.Input{
				Waveforms:    map[string][]bool{},
				SamplePeriod: t.SamplePeriod,
			}
			for name := range dec.Description().Inputs {
				in.Waveforms[name] = t.Samples
			}

			items, err := dec.Decode(in)
			if err != nil {
				return fmt.Errorf("decoding %s: %w", file, err)
			}

			results[i] = app.Summarize(file, t, items)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}

	return nil
}
