package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/aci-go/pkg/token"
)

// TokenCommand groups static-credential helpers.
func TokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Generate and hash static auth tokens",
		Subcommands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "Generate a random token",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "length", Usage: "random bytes", Value: token.DefaultLength},
					&cli.StringFlag{Name: "hash", Usage: "also print the hash: sha256 or argon2"},
				},
				Action: tokenGenerate,
			},
			{
				Name:      "hash",
				Usage:     "Hash a token for the a_users item",
				ArgsUsage: "TOKEN",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "algo", Usage: "sha256 or argon2", Value: "argon2"},
				},
				Action: func(c *cli.Context) error {
					if err := needArgs(c, 1); err != nil {
						return err
					}
					e, err := setup(c)
					if err != nil {
						return err
					}
					h, err := hashToken(c.Args().Get(0), c.String("algo"))
					if err != nil {
						return err
					}
					return e.print(h)
				},
			},
		},
	}
}

type generatedToken struct {
	Token string `json:"token"`
	Hash  string `json:"hash,omitempty"`
}

func tokenGenerate(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	if c.Int("length") < 16 {
		return fmt.Errorf("--length must be at least 16")
	}
	tok, err := token.GenerateWithLength(c.Int("length"))
	if err != nil {
		return err
	}
	out := generatedToken{Token: tok}
	if algo := c.String("hash"); algo != "" {
		if out.Hash, err = hashToken(tok, algo); err != nil {
			return err
		}
	}
	return e.print(out)
}

func hashToken(tok, algo string) (string, error) {
	switch algo {
	case "sha256":
		return token.HashSHA256(tok), nil
	case "argon2":
		return token.HashArgon2(tok)
	default:
		return "", fmt.Errorf("unknown hash algorithm %q (want sha256 or argon2)", algo)
	}
}
