// Package qrimg talks to the external chart API that renders QR code
// PNGs and keeps the rendered artifacts on disk. Every operation here is
// best-effort: callers log failures and move on, a missing image never
// blocks ordering or settlement.
package qrimg

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

type Client struct {
	renderURL string
	outputDir string
	http      *http.Client
}

func NewClient(renderURL, outputDir string) *Client {
	return &Client{
		renderURL: renderURL,
		outputDir: outputDir,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

// Render fetches a QR PNG for the given payload from the chart API.
func (c *Client) Render(payload string) ([]byte, error) {
	u, err := url.Parse(c.renderURL)
	if err != nil {
		return nil, fmt.Errorf("invalid render url: %w", err)
	}
	q := u.Query()
	q.Set("size", "300x300")
	q.Set("data", payload)
	u.RawQuery = q.Encode()

	resp, err := c.http.Get(u.String())
	if err != nil {
		return nil, fmt.Errorf("qr render request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("qr render returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// SaveForToken renders and stores the QR image for a token, returning
// the file path.
func (c *Client) SaveForToken(token, payload string) (string, error) {
	png, err := c.Render(payload)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create qr image dir: %w", err)
	}

	path := c.pathForToken(token)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("failed to write qr image: %w", err)
	}
	return path, nil
}

// DeleteForToken removes the stored artifact for a superseded token.
func (c *Client) DeleteForToken(token string) error {
	err := os.Remove(c.pathForToken(token))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (c *Client) pathForToken(token string) string {
	return filepath.Join(c.outputDir, token+".png")
}
