package code_analyzer

import (
	"context"
	"crypto/md5"
	"fmt"
	"math/rand"
	"testing"

	"github.com/nanunh/genstack/project_store"
	"github.com/zeebo/xxh3"
)

// BenchmarkContentHash compares the record digest against md5 on source-sized inputs.
func BenchmarkContentHash(b *testing.B) {
	contents := make([][]byte, 100)
	charset := "abcdefghijklmnopqrstuvwxyz (){};\n\t"
	for i := range contents {
		length := rand.Intn(16*1024) + 512
		buf := make([]byte, length)
		for j := range buf {
			buf[j] = charset[rand.Intn(len(charset))]
		}
		contents[i] = buf
	}

	b.Run("MD5", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = fmt.Sprintf("%x", md5.Sum(contents[i%len(contents)]))
		}
	})

	b.Run("XXH3", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = fmt.Sprintf("%016x", xxh3.Hash(contents[i%len(contents)]))
		}
	})
}

func BenchmarkExtract(b *testing.B) {
	extractor := NewStructureExtractor(nil)
	ctx := context.Background()
	samples := map[string]string{
		"service.go": goSample,
		"account.py": pythonSample,
		"server.js":  jsSample,
		"main.zig":   zigSample,
	}
	for path, content := range samples {
		spec := ResolveLanguage(path, []byte(content))
		raw := []byte(content)
		b.Run(spec.Tag, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				extractor.Extract(ctx, path, raw, spec)
			}
		})
	}
}

func BenchmarkStructureCacheGet(b *testing.B) {
	store := project_store.NewMemoryFileStore()
	store.Put(projectID, "auth/service.go", goSample)
	cache, err := NewStructureCache(b.TempDir(), store, nil, CacheOptions{}, nil)
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.Run("Hit", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := cache.Get(ctx, projectID, "auth/service.go"); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("Refresh", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := cache.Refresh(ctx, projectID, "auth/service.go", goSample); err != nil {
				b.Fatal(err)
			}
		}
	})
}
