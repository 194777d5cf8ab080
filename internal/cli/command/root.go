package command

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/aci-go/internal/cli/config"
	"github.com/yndnr/aci-go/internal/cli/connection"
	"github.com/yndnr/aci-go/internal/cli/output"
	"github.com/yndnr/aci-go/internal/client"
	"github.com/yndnr/aci-go/internal/infra/buildinfo"
	"github.com/yndnr/aci-go/internal/telemetry/logger"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "aci-cli",
		Usage:   "ACI key-value store command-line client",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			GetCommand(),
			SetCommand(),
			GetIndexCommand(),
			SetIndexCommand(),
			AppendCommand(),
			LenCommand(),
			RecentCommand(),
			ListKeysCommand(),
			CreateDBCommand(),
			WriteCommand(),
			ReadCommand(),
			EventCommand(),
			HealthCommand(),
			ClientsCommand(),
			TokenCommand(),
			IDTokenCommand(),
			ConfigCommand(),
			VersionCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "server address (ws://host:port/path or host:port)",
			EnvVars: []string{"ACI_SERVER"},
		},
		&cli.StringFlag{
			Name:    "profile",
			Aliases: []string{"p"},
			Usage:   "saved profile to use",
			EnvVars: []string{"ACI_PROFILE"},
		},
		&cli.StringFlag{
			Name:    "config",
			Usage:   "profile file (default ~/.aci/cli.yaml)",
			EnvVars: []string{"ACI_CLI_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "id",
			Usage:   "static auth id",
			EnvVars: []string{"ACI_ID"},
		},
		&cli.StringFlag{
			Name:    "token",
			Usage:   "static auth token",
			EnvVars: []string{"ACI_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "id-token",
			Usage:   "federated identity token (used when --id is empty)",
			EnvVars: []string{"ACI_ID_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "ca-file",
			Usage:   "PEM CA bundle trusted for wss:// and https://",
			EnvVars: []string{"ACI_CA_FILE"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "show wide output (more columns)",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "per-command timeout",
			Value: 30 * time.Second,
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "log client activity to stderr",
		},
	}
}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	Server     string
	Profile    string
	ConfigPath string
	ID         string
	Token      string
	IDToken    string
	CAFile     string
	Output     string
	Wide       bool
	Timeout    time.Duration
	Verbose    bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Server:     c.String("server"),
		Profile:    c.String("profile"),
		ConfigPath: c.String("config"),
		ID:         c.String("id"),
		Token:      c.String("token"),
		IDToken:    c.String("id-token"),
		CAFile:     c.String("ca-file"),
		Output:     c.String("output"),
		Wide:       c.Bool("wide"),
		Timeout:    c.Duration("timeout"),
		Verbose:    c.Bool("verbose"),
	}
}

// env is the resolved invocation environment of a command.
type env struct {
	flags  *GlobalFlags
	format output.Format
	out    io.Writer
	log    *slog.Logger
}

// setup resolves flags against the profile file.
func setup(c *cli.Context) (*env, error) {
	flags := ParseGlobalFlags(c)
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return nil, err
	}
	profile, err := cfg.Profile(flags.Profile)
	if err != nil {
		return nil, err
	}
	if flags.Server == "" {
		flags.Server = profile.Server
	}
	if flags.Server == "" {
		flags.Server = config.DefaultServer
	}
	if flags.ID == "" && flags.IDToken == "" {
		flags.ID, flags.Token = profile.ID, profile.Token
	}
	if flags.Output == "" {
		flags.Output = cfg.DefaultOutput
	}
	format, err := output.ParseFormat(flags.Output)
	if err != nil {
		return nil, err
	}

	errOut := c.App.ErrWriter
	if errOut == nil {
		errOut = os.Stderr
	}
	level := "error"
	if flags.Verbose {
		level = "debug"
	}
	out := c.App.Writer
	if out == nil {
		out = os.Stdout
	}
	return &env{
		flags:  flags,
		format: format,
		out:    out,
		log:    logger.New(logger.Config{Level: level, Format: "text", Output: errOut}),
	}, nil
}

func (e *env) print(data any) error {
	return output.NewFormatter(e.format, e.flags.Wide).Format(e.out, data)
}

// status prints a one-line result: plain text for tables, an object for
// structured formats.
func (e *env) status(msg string) error {
	if e.format == output.FormatTable {
		_, err := fmt.Fprintln(e.out, msg)
		return err
	}
	return e.print(map[string]string{"status": msg})
}

func (e *env) connOptions() connection.Options {
	return connection.Options{
		Server:  e.flags.Server,
		ID:      e.flags.ID,
		Token:   e.flags.Token,
		IDToken: e.flags.IDToken,
		CAFile:  e.flags.CAFile,
		Timeout: e.flags.Timeout,
		Logger:  e.log,
	}
}

// withClient runs fn on an authenticated connection bounded by --timeout.
func withClient(c *cli.Context, fn func(ctx context.Context, e *env, cl *client.Client) error) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Context, e.flags.Timeout)
	defer cancel()

	cl, err := connection.Dial(ctx, e.connOptions())
	if err != nil {
		return err
	}
	defer cl.Close()
	return fn(ctx, e, cl)
}

// needArgs checks the positional argument count.
func needArgs(c *cli.Context, min int) error {
	if c.NArg() < min {
		return fmt.Errorf("%s: expected %s", c.Command.Name, c.Command.ArgsUsage)
	}
	return nil
}

// VersionCommand prints build information.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			return e.print(buildinfo.Get())
		},
	}
}
