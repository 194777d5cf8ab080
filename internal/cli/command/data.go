package command

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/aci-go/internal/client"
)

// parseValue reads a command-line value as JSON, falling back to the
// literal string.
func parseValue(s string, literal bool) any {
	if literal {
		return s
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

func parseIndices(args []string) ([]int, error) {
	out := make([]int, 0, len(args))
	for _, a := range args {
		idx, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("invalid index %q", a)
		}
		out = append(out, idx)
	}
	return out, nil
}

var literalFlag = &cli.BoolFlag{
	Name:  "string",
	Usage: "store values as literal strings instead of parsing JSON",
}

var noAckFlag = &cli.BoolFlag{
	Name:  "no-ack",
	Usage: "send without waiting for the server answer",
}

// GetCommand reads a value.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Read the value of a key",
		ArgsUsage: "DB KEY",
		Action: func(c *cli.Context) error {
			if err := needArgs(c, 2); err != nil {
				return err
			}
			return withClient(c, func(ctx context.Context, e *env, cl *client.Client) error {
				v, err := cl.Database(c.Args().Get(0)).Get(ctx, c.Args().Get(1))
				if err != nil {
					return err
				}
				return e.print(v)
			})
		},
	}
}

// SetCommand replaces a value.
func SetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Set the value of a key, creating it when absent",
		ArgsUsage: "DB KEY VALUE",
		Flags:     []cli.Flag{literalFlag, noAckFlag},
		Action: func(c *cli.Context) error {
			if err := needArgs(c, 3); err != nil {
				return err
			}
			return withClient(c, func(ctx context.Context, e *env, cl *client.Client) error {
				db := cl.Database(c.Args().Get(0))
				value := parseValue(c.Args().Get(2), c.Bool("string"))
				if c.Bool("no-ack") {
					return db.SetNoAck(ctx, c.Args().Get(1), value)
				}
				msg, err := db.Set(ctx, c.Args().Get(1), value)
				if err != nil {
					return err
				}
				return e.status(msg)
			})
		},
	}
}

// GetIndexCommand reads list elements.
func GetIndexCommand() *cli.Command {
	return &cli.Command{
		Name:      "get-index",
		Usage:     "Read list elements by index",
		ArgsUsage: "DB KEY INDEX...",
		Action: func(c *cli.Context) error {
			if err := needArgs(c, 3); err != nil {
				return err
			}
			indices, err := parseIndices(c.Args().Slice()[2:])
			if err != nil {
				return err
			}
			return withClient(c, func(ctx context.Context, e *env, cl *client.Client) error {
				v, err := cl.Database(c.Args().Get(0)).GetIndex(ctx, c.Args().Get(1), indices...)
				if err != nil {
					return err
				}
				return e.print(v)
			})
		},
	}
}

// SetIndexCommand assigns list elements.
func SetIndexCommand() *cli.Command {
	return &cli.Command{
		Name:      "set-index",
		Usage:     "Assign list elements by index",
		ArgsUsage: "DB KEY INDEX=VALUE...",
		Flags:     []cli.Flag{literalFlag, noAckFlag},
		Action: func(c *cli.Context) error {
			if err := needArgs(c, 3); err != nil {
				return err
			}
			values := make(map[int]any)
			for _, a := range c.Args().Slice()[2:] {
				k, v, ok := strings.Cut(a, "=")
				if !ok {
					return fmt.Errorf("invalid assignment %q (want INDEX=VALUE)", a)
				}
				idx, err := strconv.Atoi(k)
				if err != nil {
					return fmt.Errorf("invalid index %q", k)
				}
				values[idx] = parseValue(v, c.Bool("string"))
			}
			return withClient(c, func(ctx context.Context, e *env, cl *client.Client) error {
				db := cl.Database(c.Args().Get(0))
				if c.Bool("no-ack") {
					return db.SetIndexNoAck(ctx, c.Args().Get(1), values)
				}
				if err := db.SetIndex(ctx, c.Args().Get(1), values); err != nil {
					return err
				}
				return e.status("OK")
			})
		},
	}
}

// AppendCommand appends to a list.
func AppendCommand() *cli.Command {
	return &cli.Command{
		Name:      "append",
		Usage:     "Append values to a list",
		ArgsUsage: "DB KEY VALUE...",
		Flags:     []cli.Flag{literalFlag, noAckFlag},
		Action: func(c *cli.Context) error {
			if err := needArgs(c, 3); err != nil {
				return err
			}
			var values []any
			for _, a := range c.Args().Slice()[2:] {
				values = append(values, parseValue(a, c.Bool("string")))
			}
			return withClient(c, func(ctx context.Context, e *env, cl *client.Client) error {
				db := cl.Database(c.Args().Get(0))
				if c.Bool("no-ack") {
					return db.AppendIndexNoAck(ctx, c.Args().Get(1), values...)
				}
				if err := db.AppendIndex(ctx, c.Args().Get(1), values...); err != nil {
					return err
				}
				return e.status("OK")
			})
		},
	}
}

// LenCommand reports a list length.
func LenCommand() *cli.Command {
	return &cli.Command{
		Name:      "len",
		Usage:     "Show the length of a list",
		ArgsUsage: "DB KEY",
		Action: func(c *cli.Context) error {
			if err := needArgs(c, 2); err != nil {
				return err
			}
			return withClient(c, func(ctx context.Context, e *env, cl *client.Client) error {
				n, err := cl.Database(c.Args().Get(0)).Len(ctx, c.Args().Get(1))
				if err != nil {
					return err
				}
				return e.print(n)
			})
		},
	}
}

// RecentCommand shows the tail of a list.
func RecentCommand() *cli.Command {
	return &cli.Command{
		Name:      "recent",
		Usage:     "Show the last N elements of a list",
		ArgsUsage: "DB KEY N",
		Action: func(c *cli.Context) error {
			if err := needArgs(c, 3); err != nil {
				return err
			}
			n, err := strconv.Atoi(c.Args().Get(2))
			if err != nil || n < 0 {
				return fmt.Errorf("invalid count %q", c.Args().Get(2))
			}
			return withClient(c, func(ctx context.Context, e *env, cl *client.Client) error {
				v, err := cl.Database(c.Args().Get(0)).Recent(ctx, c.Args().Get(1), n)
				if err != nil {
					return err
				}
				return e.print(v)
			})
		},
	}
}

// ListKeysCommand lists the keys of a database.
func ListKeysCommand() *cli.Command {
	return &cli.Command{
		Name:      "list-keys",
		Aliases:   []string{"ls"},
		Usage:     "List the keys of a database",
		ArgsUsage: "DB",
		Action: func(c *cli.Context) error {
			if err := needArgs(c, 1); err != nil {
				return err
			}
			return withClient(c, func(ctx context.Context, e *env, cl *client.Client) error {
				keys, err := cl.Database(c.Args().Get(0)).ListKeys(ctx)
				if err != nil {
					return err
				}
				return e.print(keys)
			})
		},
	}
}
