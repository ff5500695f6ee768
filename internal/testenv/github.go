package testenv

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/moritzfl/homebrew-vale-ls/internal/github"
	"github.com/moritzfl/homebrew-vale-ls/internal/versions"
)

// FakeRelease is a release served by FakeGitHub. Assets maps filename to
// file content.
type FakeRelease struct {
	Tag        string
	Draft      bool
	Prerelease bool
	Assets     map[string]string
}

// StableRelease returns a published release carrying all four platform
// assets under the default naming. Each asset's content is "<tag>/<name>".
func StableRelease(tag, formulaName string) FakeRelease {
	table := versions.DefaultAssetTable(formulaName)
	assets := make(map[string]string, len(versions.Platforms))
	for _, p := range versions.Platforms {
		name := table.Name(p)
		assets[name] = tag + "/" + name
	}
	return FakeRelease{Tag: tag, Assets: assets}
}

// Without returns a copy of r lacking the named assets.
func (r FakeRelease) Without(names ...string) FakeRelease {
	assets := make(map[string]string, len(r.Assets))
	for name, content := range r.Assets {
		assets[name] = content
	}
	for _, name := range names {
		delete(assets, name)
	}
	r.Assets = assets
	return r
}

// AssetSum is the hex SHA-256 the fake serves for asset name of r.
func (r FakeRelease) AssetSum(name string) string {
	sum := sha256.Sum256([]byte(r.Assets[name]))
	return hex.EncodeToString(sum[:])
}

// FakeGitHub serves the releases listing and asset downloads of a single
// repository. Listing pages follow ?per_page= and ?page=.
type FakeGitHub struct {
	Server *httptest.Server

	mu       sync.Mutex
	releases  []FakeRelease
	status    int
	userAgent string

	listCalls     atomic.Int32
	downloadCalls atomic.Int32
}

func NewFakeGitHub(t *testing.T, releases ...FakeRelease) *FakeGitHub {
	t.Helper()
	f := &FakeGitHub{releases: releases}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

func (f *FakeGitHub) URL() string {
	return f.Server.URL
}

// Client returns a github.Client wired to the fake server.
func (f *FakeGitHub) Client(opts ...github.ClientOption) *github.Client {
	opts = append([]github.ClientOption{
		github.WithBaseURL(f.URL()),
		github.WithHTTPClient(f.Server.Client()),
	}, opts...)
	return github.NewClient(opts...)
}

// SetReleases replaces the served releases.
func (f *FakeGitHub) SetReleases(releases ...FakeRelease) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases = releases
}

// FailWith makes every request answer with status. Zero restores normal
// behaviour.
func (f *FakeGitHub) FailWith(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

func (f *FakeGitHub) ListCalls() int {
	return int(f.listCalls.Load())
}

func (f *FakeGitHub) DownloadCalls() int {
	return int(f.downloadCalls.Load())
}

// UserAgent is the User-Agent header of the most recent request.
func (f *FakeGitHub) UserAgent() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userAgent
}

func (f *FakeGitHub) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	releases := f.releases
	status := f.status
	f.userAgent = r.UserAgent()
	f.mu.Unlock()

	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}

	switch {
	case strings.HasPrefix(r.URL.Path, "/download/"):
		f.downloadCalls.Add(1)
		f.serveAsset(w, r, releases)
	case strings.HasSuffix(r.URL.Path, "/releases"):
		f.listCalls.Add(1)
		f.serveListing(w, r, releases)
	default:
		http.NotFound(w, r)
	}
}

func (f *FakeGitHub) serveListing(w http.ResponseWriter, r *http.Request, releases []FakeRelease) {
	perPage, err := strconv.Atoi(r.URL.Query().Get("per_page"))
	if err != nil || perPage < 1 {
		perPage = 30
	}
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	start := min((page-1)*perPage, len(releases))
	end := min(start+perPage, len(releases))

	out := make([]map[string]any, 0, end-start)
	for _, rel := range releases[start:end] {
		assets := make([]map[string]any, 0, len(rel.Assets))
		for name := range rel.Assets {
			assets = append(assets, map[string]any{
				"name":                 name,
				"browser_download_url": f.URL() + "/download/" + rel.Tag + "/" + name,
			})
		}
		out = append(out, map[string]any{
			"tag_name":   rel.Tag,
			"name":       rel.Tag,
			"draft":      rel.Draft,
			"prerelease": rel.Prerelease,
			"assets":     assets,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (f *FakeGitHub) serveAsset(w http.ResponseWriter, r *http.Request, releases []FakeRelease) {
	tag, name, ok := strings.Cut(strings.TrimPrefix(r.URL.Path, "/download/"), "/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	for _, rel := range releases {
		if rel.Tag != tag {
			continue
		}
		if content, ok := rel.Assets[name]; ok {
			_, _ = w.Write([]byte(content))
			return
		}
	}
	http.NotFound(w, r)
}
