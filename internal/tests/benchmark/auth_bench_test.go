package benchmark

import (
	"context"
	"testing"
	"time"

	"github.com/yndnr/aci-go/pkg/idtoken"
	"github.com/yndnr/aci-go/pkg/token"
)

func BenchmarkTokenMatch(b *testing.B) {
	tok, err := token.Generate()
	if err != nil {
		b.Fatal(err)
	}
	argon, err := token.HashArgon2(tok)
	if err != nil {
		b.Fatal(err)
	}
	stored := map[string]string{
		"plain":  tok,
		"sha256": token.HashSHA256(tok),
		"argon2": argon,
	}
	for name, s := range stored {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if !token.Match(tok, s) {
					b.Fatal("no match")
				}
			}
		})
	}
}

func BenchmarkIDTokenVerify(b *testing.B) {
	pub, priv, err := idtoken.GenerateKey()
	if err != nil {
		b.Fatal(err)
	}
	now := time.Now()
	tok, err := idtoken.Mint(priv, &idtoken.Claims{
		Subject:   "1",
		Email:     "bench@example.com",
		Issuer:    "bench",
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(time.Hour).Unix(),
	})
	if err != nil {
		b.Fatal(err)
	}
	v := idtoken.NewVerifier(pub)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := v.Verify(ctx, tok); err != nil {
			b.Fatal(err)
		}
	}
}
