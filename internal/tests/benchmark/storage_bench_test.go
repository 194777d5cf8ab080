package benchmark

import (
	"context"
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/yndnr/aci-go/pkg/crypto/adaptive"
)

func BenchmarkEngineSet(b *testing.B) {
	for _, count := range ItemCounts {
		b.Run(fmt.Sprintf("items_%d", count), func(b *testing.B) {
			e := newEngine(b, nil)
			keys := prefill(b, e, count)
			ctx := context.Background()

			b.ResetTimer()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := e.Set(ctx, benchDB, keys[i%len(keys)], i, owner); err != nil {
					b.Fatal(err)
				}
			}
			b.StopTimer()
			reportMemory(b)
		})
	}
}

func BenchmarkEngineGet(b *testing.B) {
	for _, count := range ItemCounts {
		b.Run(fmt.Sprintf("items_%d", count), func(b *testing.B) {
			e := newEngine(b, nil)
			keys := prefill(b, e, count)
			ctx := context.Background()

			b.ResetTimer()
			b.ReportAllocs()
			b.RunParallel(func(pb *testing.PB) {
				i := 0
				for pb.Next() {
					if _, err := e.Get(ctx, benchDB, keys[i%len(keys)], owner); err != nil {
						b.Error(err)
						return
					}
					i++
				}
			})
		})
	}
}

func BenchmarkEngineAppend(b *testing.B) {
	e := newEngine(b, nil)
	ctx := context.Background()
	if _, err := e.Set(ctx, benchDB, "log", []any{}, owner); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if err := e.AppendIndex(ctx, benchDB, "log", []any{i}, owner); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkWriteToDisk(b *testing.B) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		b.Fatal(err)
	}
	ciphers := map[string]adaptive.CipherType{
		"plain":    "",
		"aes-gcm":  adaptive.CipherAESGCM,
		"chacha20": adaptive.CipherChaCha20,
	}
	for name, typ := range ciphers {
		b.Run(name, func(b *testing.B) {
			var c adaptive.Cipher
			if typ != "" {
				var err error
				if c, err = adaptive.NewWithType(key, typ); err != nil {
					b.Fatal(err)
				}
			}
			e := newEngine(b, c)
			prefill(b, e, 1000)
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := e.WriteToDisk(ctx, benchDB); err != nil {
					b.Fatal(err)
				}
				if err := e.ReadFromDisk(ctx, benchDB); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
