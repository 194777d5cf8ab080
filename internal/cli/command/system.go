package command

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/aci-go/internal/cli/connection"
	"github.com/yndnr/aci-go/internal/server/httpserver/handler"
)

// getJSON fetches path from the server's HTTP surface into target.
func getJSON(c *cli.Context, e *env, path string, target any) error {
	hc, err := connection.NewHTTPClient(e.flags.Server, e.flags.Timeout, e.flags.CAFile)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Context, e.flags.Timeout)
	defer cancel()
	resp, err := hc.Get(ctx, path)
	if err != nil {
		return err
	}
	return connection.ParseResponse(resp, target)
}

// HealthCommand queries /healthz.
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Show server health",
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			var health handler.HealthResponse
			if err := getJSON(c, e, "/healthz", &health); err != nil {
				return err
			}
			return e.print(health)
		},
	}
}

// ClientsCommand lists authenticated sessions. The server only answers
// from its admin allow-list.
func ClientsCommand() *cli.Command {
	return &cli.Command{
		Name:  "clients",
		Usage: "List authenticated sessions",
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			var clients handler.ClientsResponse
			if err := getJSON(c, e, "/clients", &clients); err != nil {
				return err
			}
			return e.print(clients.Clients)
		},
	}
}
