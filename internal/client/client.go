// Package client talks to a running gallery server's JSON API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gallerylinks/internal/models"
	"gallerylinks/internal/storage"
)

// ErrNotFound is returned for unknown short IDs.
var ErrNotFound = errors.New("gallery not found")

// Client calls the gallery API of one server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the server at baseURL. A nil httpClient uses a
// client without an overall timeout, since image downloads can be large.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: 30 * time.Second,
		}}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// envelope mirrors the API's {status, data|error} response.
type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
}

// Gallery resolves a short ID into its link and file list. With picking set
// the server returns picking-mode URLs.
func (c *Client) Gallery(ctx context.Context, shortID string, picking bool) (*models.GalleryResponse, error) {
	u := c.baseURL + "/api/gallery/" + url.PathEscape(shortID)
	if picking {
		u += "?picking=1"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gallery: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode gallery response (%s): %w", resp.Status, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, shortID)
	}
	if resp.StatusCode != http.StatusOK || env.Status != "ok" {
		return nil, fmt.Errorf("gallery request failed (%s): %s", resp.Status, env.Error)
	}

	var gallery models.GalleryResponse
	if err := json.Unmarshal(env.Data, &gallery); err != nil {
		return nil, fmt.Errorf("failed to decode gallery: %w", err)
	}
	return &gallery, nil
}

// Open streams one image through the server's proxy. The caller closes the
// body.
func (c *Client) Open(ctx context.Context, fileID string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/image/"+url.PathEscape(fileID), nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch image: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, "", fmt.Errorf("image %s: %s", fileID, apiError(resp))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = storage.DefaultContentType
	}
	return resp.Body, contentType, nil
}

// Archive asks the server for a zip of the given files and copies it to w.
func (c *Client) Archive(ctx context.Context, shortID string, ids []string, w io.Writer) error {
	body, err := json.Marshal(map[string][]string{"ids": ids})
	if err != nil {
		return err
	}

	u := c.baseURL + "/api/gallery/" + url.PathEscape(shortID) + "/archive"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to request archive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("archive request failed: %s", apiError(resp))
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to download archive: %w", err)
	}
	return nil
}

// apiError extracts the error text of a failed response.
func apiError(resp *http.Response) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil && body.Error != "" {
		return fmt.Sprintf("%s: %s", resp.Status, body.Error)
	}
	return resp.Status
}
