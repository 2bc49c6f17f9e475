package leaderboard

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/tidwall/gjson"

	"gatewaybench/internal/core"
)

const maxBodySize = 10 * 1024 * 1024 // 10 MB

// fetchRaw downloads the leaderboard document, decoding br or gzip bodies.
func fetchRaw(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "br, gzip")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching leaderboard: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	body, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}

	limited := io.LimitReader(body, maxBodySize+1)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(raw) > maxBodySize {
		return nil, fmt.Errorf("response body too large (exceeds %d bytes)", maxBodySize)
	}
	return raw, nil
}

func decodeBody(resp *http.Response) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
		return resp.Body, nil
	case "br":
		return brotli.NewReader(resp.Body), nil
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("opening gzip body: %w", err)
		}
		return zr, nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}
}

// Parse converts a leaderboard document into entries. The document must hold
// a "models" array; each element's "name" becomes Model and its "throughput"
// (or, when that is absent or zero, "tokens_per_second") becomes
// TokensPerSecond. Ranks follow array order starting at 1. Nameless rows are
// skipped without renumbering the rest.
func Parse(raw []byte) ([]core.LeaderboardEntry, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.New("parsing leaderboard: invalid JSON")
	}
	models := gjson.GetBytes(raw, "models")
	if !models.IsArray() {
		return nil, errors.New("parsing leaderboard: missing models array")
	}

	var entries []core.LeaderboardEntry
	for i, m := range models.Array() {
		name := m.Get("name").String()
		if name == "" {
			continue
		}
		rank := i + 1
		entries = append(entries, core.LeaderboardEntry{
			Model:           name,
			Provider:        ExtractProvider(name),
			TokensPerSecond: throughput(m),
			Rank:            &rank,
		})
	}
	return entries, nil
}

func throughput(m gjson.Result) *float64 {
	if t := m.Get("throughput"); t.Type == gjson.Number && t.Float() != 0 {
		v := t.Float()
		return &v
	}
	if t := m.Get("tokens_per_second"); t.Type == gjson.Number {
		v := t.Float()
		return &v
	}
	return nil
}
