package command

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/aci-go/pkg/idtoken"
)

// IDTokenCommand groups identity-token helpers for federated auth.
func IDTokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "idtoken",
		Usage: "Create signing keys and identity tokens",
		Subcommands: []*cli.Command{
			{
				Name:   "keygen",
				Usage:  "Generate an Ed25519 signing key pair",
				Action: idtokenKeygen,
			},
			{
				Name:  "mint",
				Usage: "Sign an identity token",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "key",
						Usage:    "private key, hex or base64",
						EnvVars:  []string{"ACI_IDTOKEN_KEY"},
						Required: true,
					},
					&cli.StringFlag{Name: "subject", Usage: "provider account id", Required: true},
					&cli.StringFlag{Name: "email", Usage: "account email, used as principal"},
					&cli.StringFlag{Name: "issuer", Usage: "issuer name", Required: true},
					&cli.StringFlag{Name: "org", Usage: "organization or hosted domain"},
					&cli.DurationFlag{Name: "ttl", Usage: "token lifetime", Value: time.Hour},
				},
				Action: idtokenMint,
			},
		},
	}
}

type keyPair struct {
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

func idtokenKeygen(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	pub, priv, err := idtoken.GenerateKey()
	if err != nil {
		return err
	}
	return e.print(keyPair{
		PublicKey:  hex.EncodeToString(pub),
		PrivateKey: hex.EncodeToString(priv.Seed()),
	})
}

func idtokenMint(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	if c.Duration("ttl") <= 0 {
		return fmt.Errorf("--ttl must be positive")
	}
	key, err := idtoken.ParsePrivateKey(c.String("key"))
	if err != nil {
		return err
	}
	now := time.Now()
	tok, err := idtoken.Mint(key, &idtoken.Claims{
		Subject:      c.String("subject"),
		Email:        c.String("email"),
		Issuer:       c.String("issuer"),
		Organization: c.String("org"),
		IssuedAt:     now.Unix(),
		ExpiresAt:    now.Add(c.Duration("ttl")).Unix(),
	})
	if err != nil {
		return err
	}
	return e.print(tok)
}
