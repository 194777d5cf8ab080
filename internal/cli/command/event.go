package command

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/aci-go/internal/cli/connection"
	"github.com/yndnr/aci-go/internal/client"
)

// EventCommand groups event subcommands.
func EventCommand() *cli.Command {
	return &cli.Command{
		Name:  "event",
		Usage: "Send and receive pushed events",
		Subcommands: []*cli.Command{
			eventSendCommand(),
			eventListenCommand(),
		},
	}
}

func eventSendCommand() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Push an event to every session of a principal",
		ArgsUsage: "DESTINATION EVENT_ID [PAYLOAD]",
		Flags:     []cli.Flag{literalFlag},
		Action: func(c *cli.Context) error {
			if err := needArgs(c, 2); err != nil {
				return err
			}
			var payload any
			if c.NArg() > 2 {
				payload = parseValue(c.Args().Get(2), c.Bool("string"))
			}
			return withClient(c, func(ctx context.Context, e *env, cl *client.Client) error {
				if err := cl.SendEvent(ctx, c.Args().Get(0), c.Args().Get(1), payload); err != nil {
					return err
				}
				return e.status("sent " + c.Args().Get(1) + " to " + c.Args().Get(0))
			})
		},
	}
}

// eventRecord is the printed form of a received event.
type eventRecord struct {
	ID      string `json:"id"`
	Origin  string `json:"origin"`
	Payload any    `json:"payload"`
}

func eventListenCommand() *cli.Command {
	return &cli.Command{
		Name:      "listen",
		Usage:     "Print events addressed to this identity",
		ArgsUsage: "EVENT_ID...",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "count",
				Usage: "exit after N events (0 waits until interrupted)",
			},
		},
		Action: func(c *cli.Context) error {
			if err := needArgs(c, 1); err != nil {
				return err
			}
			e, err := setup(c)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := e.connOptions()
			cl, err := connection.Open(ctx, opts)
			if err != nil {
				return err
			}
			defer cl.Close()

			events := make(chan client.Event, 64)
			for _, id := range c.Args().Slice() {
				cancel := cl.Subscribe(id, func(ev client.Event) {
					select {
					case events <- ev:
					case <-ctx.Done():
					}
				})
				defer cancel()
			}
			if _, err := connection.Authenticate(ctx, cl, opts); err != nil {
				return fmt.Errorf("authenticate: %w", err)
			}

			limit := c.Int("count")
			for n := 0; limit <= 0 || n < limit; n++ {
				select {
				case ev := <-events:
					if err := e.print(toEventRecord(ev)); err != nil {
						return err
					}
				case <-cl.Done():
					return cl.Err()
				case <-ctx.Done():
					return nil
				}
			}
			return nil
		},
	}
}

func toEventRecord(ev client.Event) eventRecord {
	rec := eventRecord{ID: ev.ID, Origin: ev.Origin}
	if len(ev.Payload) > 0 && json.Unmarshal(ev.Payload, &rec.Payload) != nil {
		rec.Payload = string(ev.Payload)
	}
	return rec
}
