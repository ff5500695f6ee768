// Package github lists releases and downloads release assets through the
// GitHub REST API.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL   = "https://api.github.com"
	defaultUserAgent = "sync-tap"
	defaultPerPage   = 100

	listTimeout     = 60 * time.Second
	downloadTimeout = 120 * time.Second

	// maxPageBytes bounds a single listing page.
	maxPageBytes = 10 << 20
	// maxErrorBody bounds how much of an error response ends up in a message.
	maxErrorBody = 2 << 10
)

// ErrUnexpectedPayload is returned when a listing page is not a JSON array.
var ErrUnexpectedPayload = errors.New("unexpected GitHub API response")

type (
	// Release is one record of the releases listing. Pointer fields are nil
	// when the API omitted them or sent null.
	Release struct {
		TagName    *string
		Name       string
		Draft      bool
		Prerelease bool
		Assets     []Asset
	}

	// Asset is a downloadable file attached to a release.
	Asset struct {
		Name               string
		BrowserDownloadURL *string
	}

	githubRelease struct {
		TagName    *string       `json:"tag_name"`
		Name       string        `json:"name"`
		Draft      bool          `json:"draft"`
		Prerelease bool          `json:"prerelease"`
		Assets     []githubAsset `json:"assets"`
	}

	githubAsset struct {
		Name               string  `json:"name"`
		BrowserDownloadURL *string `json:"browser_download_url"`
	}

	// StatusError reports a non-2xx response.
	StatusError struct {
		URL        string
		StatusCode int
		Body       string
	}

	// RateLimitError is returned when the API quota is exhausted.
	RateLimitError struct {
		Limit   int
		ResetAt time.Time
	}

	// Client talks to the GitHub REST API.
	Client struct {
		httpClient *http.Client
		baseURL    string
		token      string
		userAgent  string
		perPage    int
	}

	// ClientOption configures a Client.
	ClientOption func(*Client)
)

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GitHub API error %d for %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("GitHub API error %d for %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("GitHub API rate limit of %d exceeded, resets at %s",
		e.Limit, e.ResetAt.UTC().Format("15:04 UTC"))
}

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(g *Client) {
		g.httpClient = c
	}
}

// WithBaseURL points the client at another API root, e.g. a test server.
func WithBaseURL(base string) ClientOption {
	return func(g *Client) {
		g.baseURL = strings.TrimRight(base, "/")
	}
}

// WithToken authenticates requests sent to GitHub hosts.
func WithToken(token string) ClientOption {
	return func(g *Client) {
		g.token = strings.TrimSpace(token)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(g *Client) {
		g.userAgent = ua
	}
}

// WithPerPage sets the listing page size.
func WithPerPage(n int) ClientOption {
	return func(g *Client) {
		if n > 0 {
			g.perPage = n
		}
	}
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    defaultBaseURL,
		userAgent:  defaultUserAgent,
		perPage:    defaultPerPage,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SplitRepo validates an "owner/name" identifier.
func SplitRepo(repo string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(repo), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid repository %q: expected owner/name", repo)
	}
	return owner, name, nil
}

// ListReleases returns every release of repo in API order. Pages are
// requested until the API returns an empty page.
func (c *Client) ListReleases(ctx context.Context, repo string) ([]Release, error) {
	owner, name, err := SplitRepo(repo)
	if err != nil {
		return nil, err
	}

	var all []Release
	for page := 1; ; page++ {
		pageURL := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d&page=%d",
			c.baseURL, url.PathEscape(owner), url.PathEscape(name), c.perPage, page)

		releases, err := c.listPage(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		if len(releases) == 0 {
			return all, nil
		}
		all = append(all, releases...)
	}
}

func (c *Client) listPage(ctx context.Context, pageURL string) ([]Release, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	resp, err := c.do(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("list releases: %w", err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp, pageURL); err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read releases page: %w", err)
	}
	return decodeReleases(raw)
}

// Download opens the asset at assetURL. The caller closes the body.
func (c *Client) Download(ctx context.Context, assetURL string) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)

	resp, err := c.do(ctx, assetURL)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("download %s: %w", redactURL(assetURL), err)
	}
	if err := checkResponse(resp, redactURL(assetURL)); err != nil {
		resp.Body.Close()
		cancel()
		return nil, err
	}

	return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
}

func (c *Client) do(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" && c.trustedHost(req.URL) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return c.httpClient.Do(req)
}

// trustedHost keeps the token away from CDN redirects and foreign hosts.
func (c *Client) trustedHost(u *url.URL) bool {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, base.Host) {
		return true
	}
	return strings.EqualFold(base.Host, "api.github.com") && strings.EqualFold(u.Host, "github.com")
}

func checkResponse(resp *http.Response, target string) error {
	if rl := rateLimited(resp); rl != nil {
		return rl
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		URL:        target,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}

func rateLimited(resp *http.Response) *RateLimitError {
	if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}
	remaining, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining"))
	if err != nil || remaining > 0 {
		return nil
	}

	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))
	reset, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)
	return &RateLimitError{Limit: limit, ResetAt: time.Unix(reset, 0)}
}

func decodeReleases(raw []byte) ([]Release, error) {
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrUnexpectedPayload
	}

	var wire []githubRelease
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedPayload, err)
	}

	releases := make([]Release, 0, len(wire))
	for _, gr := range wire {
		assets := make([]Asset, 0, len(gr.Assets))
		for _, ga := range gr.Assets {
			assets = append(assets, Asset(ga))
		}
		releases = append(releases, Release{
			TagName:    gr.TagName,
			Name:       gr.Name,
			Draft:      gr.Draft,
			Prerelease: gr.Prerelease,
			Assets:     assets,
		})
	}
	return releases, nil
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}
