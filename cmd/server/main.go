// Package main implements the receiver process. It prints its pid, then
// decodes inbound bit signals into bytes on stdout forever.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"sigtalk/pkg/protocol"
	"sigtalk/pkg/receiver"
	"sigtalk/pkg/transport"
)

// init configures logging with zerolog.
// Diagnostics go to stderr so they never interleave with the decoded message
// on stdout.
func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func main() {
	app := &cli.App{
		Name:      "server",
		Usage:     "receive messages delivered one bit per signal",
		ArgsUsage: " ",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log every completed message",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Error().Err(err).Msg("server failed")
		if coder, ok := err.(cli.ExitCoder); ok {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.Args().Len() != 0 {
		return cli.Exit("Usage: server", 2)
	}

	if c.Bool("verbose") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// SIGUSR1/SIGUSR2 must be blocked on every thread before the signalfd
	// can see them; the first call re-executes the binary to get there.
	code := transport.EnsureProcessMask(protocol.SigBitOne, protocol.SigBitZero)
	if code != transport.ErrNone {
		return cli.Exit(protocol.ErrString(code), int(code))
	}

	t, code := transport.NewSignalTransport(protocol.SigBitOne, protocol.SigBitZero)
	if code != transport.ErrNone {
		return cli.Exit(protocol.ErrString(code), int(code))
	}
	defer t.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-interrupt
		cancel()
	}()

	fmt.Printf("PID: %d\n", os.Getpid())
	fmt.Println("Waiting for a message...")

	r := receiver.New(t, os.Stdout, log.Logger)
	code = r.Run(ctx)
	if code == protocol.ErrContextCanceled {
		log.Info().Msg("interrupted, shutting down")
		return nil
	}
	return cli.Exit(protocol.ErrString(code), int(code))
}
