package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/aci-go/internal/client"
)

// CreateDBCommand creates a database.
func CreateDBCommand() *cli.Command {
	return &cli.Command{
		Name:      "create-db",
		Usage:     "Create an empty database",
		ArgsUsage: "DB",
		Action: func(c *cli.Context) error {
			if err := needArgs(c, 1); err != nil {
				return err
			}
			name := c.Args().Get(0)
			return withClient(c, func(ctx context.Context, e *env, cl *client.Client) error {
				if err := cl.CreateDatabase(ctx, name); err != nil {
					return fmt.Errorf("create %s: %w", name, err)
				}
				return e.status("created " + name)
			})
		},
	}
}

// WriteCommand persists databases.
func WriteCommand() *cli.Command {
	return &cli.Command{
		Name:      "write",
		Usage:     "Persist a database, or every database when none is given",
		ArgsUsage: "[DB]",
		Action: func(c *cli.Context) error {
			return withClient(c, func(ctx context.Context, e *env, cl *client.Client) error {
				if c.NArg() == 0 {
					if err := cl.WriteAllToDisk(ctx); err != nil {
						return err
					}
					return e.status("wrote all databases")
				}
				if err := cl.Database(c.Args().Get(0)).WriteToDisk(ctx); err != nil {
					return err
				}
				return e.status("wrote " + c.Args().Get(0))
			})
		},
	}
}

// ReadCommand reloads a database.
func ReadCommand() *cli.Command {
	return &cli.Command{
		Name:      "read",
		Usage:     "Reload a database from disk",
		ArgsUsage: "DB",
		Action: func(c *cli.Context) error {
			if err := needArgs(c, 1); err != nil {
				return err
			}
			return withClient(c, func(ctx context.Context, e *env, cl *client.Client) error {
				if err := cl.Database(c.Args().Get(0)).ReadFromDisk(ctx); err != nil {
					return err
				}
				return e.status("read " + c.Args().Get(0))
			})
		},
	}
}
