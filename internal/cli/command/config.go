package command

import (
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"

	cliconfig "github.com/yndnr/aci-go/internal/cli/config"
	"github.com/yndnr/aci-go/internal/infra/confloader"
	serverconfig "github.com/yndnr/aci-go/internal/server/config"
	"github.com/yndnr/aci-go/internal/telemetry/logger"
)

// ConfigCommand manages saved profiles and checks server configuration.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage CLI profiles",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show saved profiles (tokens masked)",
				Action: configShow,
			},
			{
				Name:      "set-profile",
				Usage:     "Create or update a profile",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "server", Usage: "server address"},
					&cli.StringFlag{Name: "id", Usage: "static auth id"},
					&cli.StringFlag{Name: "token", Usage: "static auth token"},
					&cli.BoolFlag{Name: "use", Usage: "make it the current profile"},
				},
				Action: configSetProfile,
			},
			{
				Name:      "use",
				Usage:     "Select the current profile",
				ArgsUsage: "NAME",
				Action:    configUse,
			},
			{
				Name:      "delete-profile",
				Usage:     "Remove a profile",
				ArgsUsage: "NAME",
				Action:    configDeleteProfile,
			},
			{
				Name:      "verify-server",
				Usage:     "Validate a server configuration file",
				ArgsUsage: "FILE",
				Action:    configVerifyServer,
			},
		},
	}
}

// profileRow is the printed form of a profile.
type profileRow struct {
	Name    string `json:"name"`
	Current bool   `json:"current"`
	Server  string `json:"server"`
	ID      string `json:"id"`
	Token   string `json:"token" table:"wide"`
}

func configShow(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	cfg, err := cliconfig.Load(e.flags.ConfigPath)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(cfg.Profiles))
	for name := range cfg.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]profileRow, 0, len(names))
	for _, name := range names {
		p := cfg.Profiles[name]
		rows = append(rows, profileRow{
			Name:    name,
			Current: name == cfg.CurrentProfile,
			Server:  p.Server,
			ID:      p.ID,
			Token:   maskToken(p.Token),
		})
	}
	return e.print(rows)
}

// maskToken hides a saved token. Generated tokens keep their prefix and
// ends so they stay recognizable.
func maskToken(s string) string {
	if s == "" {
		return ""
	}
	if masked := logger.RedactString(s); masked != s {
		return masked
	}
	return "***"
}

// editProfiles loads the profile file, applies fn and saves it.
func editProfiles(c *cli.Context, fn func(cfg *cliconfig.CLIConfig) error) error {
	path := c.String("config")
	cfg, err := cliconfig.Load(path)
	if err != nil {
		return err
	}
	if err := fn(cfg); err != nil {
		return err
	}
	return cliconfig.Save(cfg, path)
}

func configSetProfile(c *cli.Context) error {
	if err := needArgs(c, 1); err != nil {
		return err
	}
	name := c.Args().Get(0)
	set := make(map[string]bool)
	for _, f := range c.LocalFlagNames() {
		set[f] = true
	}
	err := editProfiles(c, func(cfg *cliconfig.CLIConfig) error {
		p := cfg.Profiles[name]
		if set["server"] {
			p.Server = c.String("server")
		}
		if set["id"] {
			p.ID = c.String("id")
		}
		if set["token"] {
			p.Token = c.String("token")
		}
		if p.Server == "" {
			p.Server = cliconfig.DefaultServer
		}
		cfg.Profiles[name] = p
		if c.Bool("use") {
			cfg.CurrentProfile = name
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "profile %s saved\n", name)
	return nil
}

func configUse(c *cli.Context) error {
	if err := needArgs(c, 1); err != nil {
		return err
	}
	name := c.Args().Get(0)
	err := editProfiles(c, func(cfg *cliconfig.CLIConfig) error {
		if _, ok := cfg.Profiles[name]; !ok {
			return fmt.Errorf("profile %q not found", name)
		}
		cfg.CurrentProfile = name
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "using profile %s\n", name)
	return nil
}

func configDeleteProfile(c *cli.Context) error {
	if err := needArgs(c, 1); err != nil {
		return err
	}
	name := c.Args().Get(0)
	err := editProfiles(c, func(cfg *cliconfig.CLIConfig) error {
		if _, ok := cfg.Profiles[name]; !ok {
			return fmt.Errorf("profile %q not found", name)
		}
		delete(cfg.Profiles, name)
		if cfg.CurrentProfile == name {
			cfg.CurrentProfile = ""
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "profile %s deleted\n", name)
	return nil
}

// configVerifyServer loads FILE the way aci-server does, ACI_*
// environment included, and runs the server validation.
func configVerifyServer(c *cli.Context) error {
	if err := needArgs(c, 1); err != nil {
		return err
	}
	path := c.Args().Get(0)
	cfg := serverconfig.Default()
	if err := confloader.NewLoader(confloader.WithConfigFile(path)).Load(cfg); err != nil {
		return err
	}
	if err := serverconfig.Verify(cfg); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Fprintf(c.App.Writer, "%s: OK\n", path)
	return nil
}
