// Package checksum computes SHA-256 digests of release assets.
package checksum

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/moritzfl/homebrew-vale-ls/internal/versions"
)

// DefaultConcurrency bounds how many releases are hashed at once, and how
// many assets of one release are downloaded at once.
const DefaultConcurrency = 4

// ErrIncomplete is returned when a release did not yield a digest for
// every platform.
var ErrIncomplete = errors.New("incomplete checksums")

// Downloader opens a release asset for reading.
type Downloader interface {
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

type Resolver struct {
	Downloader  Downloader
	Concurrency int
	Logger      zerolog.Logger
}

func (r *Resolver) limit() int {
	if r.Concurrency < 1 {
		return DefaultConcurrency
	}
	return r.Concurrency
}

// Resolve hashes the four platform assets of release. It returns all four
// digests or an error.
func (r *Resolver) Resolve(ctx context.Context, release versions.ReleaseInfo) (map[versions.Platform]string, error) {
	for _, platform := range versions.Platforms {
		if _, ok := release.Assets[platform]; !ok {
			return nil, fmt.Errorf("%w: release %s has no %s asset", ErrIncomplete, release.Tag, platform)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit())

	var mu sync.Mutex
	digests := make(map[versions.Platform]string, len(versions.Platforms))

	for _, platform := range versions.Platforms {
		url := release.Assets[platform]
		g.Go(func() error {
			sum, err := r.hash(ctx, url)
			if err != nil {
				return fmt.Errorf("checksum %s %s: %w", release.Tag, platform, err)
			}
			mu.Lock()
			digests[platform] = sum
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return digests, nil
}

// ResolveAll resolves every release and keys the result by version. The
// first failure cancels outstanding downloads and is returned.
func (r *Resolver) ResolveAll(ctx context.Context, releases []versions.ReleaseInfo) (map[versions.Version]map[versions.Platform]string, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit())

	var mu sync.Mutex
	sums := make(map[versions.Version]map[versions.Platform]string, len(releases))

	for _, release := range releases {
		g.Go(func() error {
			digests, err := r.Resolve(ctx, release)
			if err != nil {
				return err
			}
			r.Logger.Debug().Str("tag", release.Tag).Msg("checksums resolved")

			mu.Lock()
			sums[release.Version] = digests
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sums, nil
}

func (r *Resolver) hash(ctx context.Context, url string) (string, error) {
	body, err := r.Downloader.Download(ctx, url)
	if err != nil {
		return "", err
	}
	defer body.Close()

	return Sum(body)
}

// Sum streams rd through SHA-256 and returns the lowercase hex digest.
func Sum(rd io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, rd); err != nil {
		return "", fmt.Errorf("hash stream: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
