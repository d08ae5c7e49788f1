// Package main implements the sender process. It transmits one message to a
// receiver identified by pid, one bit per signal, waiting for an
// acknowledgment after every bit.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"sigtalk/pkg/protocol"
	"sigtalk/pkg/sender"
	"sigtalk/pkg/transport"
)

// init configures logging with zerolog.
func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func main() {
	app := &cli.App{
		Name:      "client",
		Usage:     "send a message to a receiver, one bit per signal",
		ArgsUsage: "<pid> <message>",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "poll-interval",
				Usage: "sleep between acknowledgment polls",
				Value: sender.DefaultPollInterval,
			},
			&cli.DurationFlag{
				Name:  "settle-delay",
				Usage: "pause after each acknowledged bit",
				Value: sender.DefaultSettleDelay,
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Error().Err(err).Msg("client failed")
		if coder, ok := err.(cli.ExitCoder); ok {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	// Arguments are validated in full before the transport exists, so a
	// usage error can never emit a signal.
	if c.Args().Len() != 2 {
		return cli.Exit("Usage: client <pid> <message>", 2)
	}

	pid, err := parsePID(c.Args().Get(0))
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid pid %q: must be a positive integer", c.Args().Get(0)), 2)
	}
	msg := c.Args().Get(1)

	// Acks arrive through the runtime's own signal delivery: the sender
	// never needs the ack's origin pid, and os/signal keeps working no
	// matter which thread the kernel picks for a process-directed signal.
	t := transport.NewNotifyTransport(protocol.SigAck)
	defer t.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-interrupt
		cancel()
	}()

	logger := log.With().
		Str("transfer", uuid.NewString()).
		Int("pid", pid).
		Logger()
	logger.Info().Int("units", len(msg)+1).Msg("sending message")

	s := sender.New(t, logger)
	s.PollInterval = c.Duration("poll-interval")
	s.SettleDelay = c.Duration("settle-delay")

	code := s.Send(ctx, pid, msg)
	if code != protocol.ErrNone {
		return cli.Exit(protocol.ErrString(code), int(code))
	}

	fmt.Printf("Message delivered to %d\n", pid)
	return nil
}

// parsePID interprets s as a receiver pid. Zero, negative and non-numeric
// values are rejected.
func parsePID(s string) (int, error) {
	pid, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if pid <= 0 {
		return 0, fmt.Errorf("pid %d is not positive", pid)
	}
	return pid, nil
}
