// Package ipfs implements the metadata relay collaborator: campaign and
// submission metadata is pinned as a wrapped directory so that
// <cid>/metadata.json always resolves, and fetched back by CID. The escrow
// core never looks inside a CID; this client exists for the relay endpoints
// and tooling around it.
package ipfs

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"bount3-backend/models"
)

type Client struct {
	apiURL string
	client *http.Client
}

func NewClientFromEnv() *Client {
	apiURL := os.Getenv("IPFS_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:5001"
	}
	timeout := 30 * time.Second
	if raw := os.Getenv("IPFS_HTTP_TIMEOUT_SEC"); raw != "" {
		if v, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && v > 0 {
			timeout = time.Duration(v) * time.Second
		}
	}
	return &Client{
		apiURL: strings.TrimRight(apiURL, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

// Put pins campaign metadata (and an optional attachment) and returns the
// directory CID. The metadata.json entry carries the title and description;
// wrapping in a directory keeps <cid>/metadata.json resolvable whether or
// not a file is attached.
func (c *Client) Put(ctx context.Context, title, description, filename string, file []byte) (string, error) {
	metadata, err := json.MarshalIndent(models.CampaignMetadata{
		Title:       title,
		Description: description,
	}, "", "  ")
	if err != nil {
		return "", err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "metadata.json")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(metadata); err != nil {
		return "", err
	}
	if len(file) > 0 {
		if filename == "" {
			filename = "attachment"
		}
		filePart, err := writer.CreateFormFile("file", filename)
		if err != nil {
			return "", err
		}
		if _, err := filePart.Write(file); err != nil {
			return "", err
		}
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	reqURL := fmt.Sprintf("%s/api/v0/add?pin=true&cid-version=1&wrap-with-directory=true", c.apiURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		if len(msg) == 0 {
			return "", fmt.Errorf("ipfs add failed: %s", resp.Status)
		}
		return "", fmt.Errorf("ipfs add failed: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	// The wrapping directory is reported last in the add stream.
	var lastHash string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var entry struct {
			Hash string `json:"Hash"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &entry); err == nil && entry.Hash != "" {
			lastHash = entry.Hash
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	if lastHash == "" {
		return "", fmt.Errorf("ipfs add returned empty hash")
	}
	return lastHash, nil
}

// Get fetches campaign metadata by CID, trying the folder layout
// (<cid>/metadata.json) first and falling back to a bare file CID.
func (c *Client) Get(ctx context.Context, cid string) (models.CampaignMetadata, error) {
	var meta models.CampaignMetadata
	if strings.TrimSpace(cid) == "" {
		return meta, fmt.Errorf("ipfs get missing cid")
	}

	data, folderErr := c.cat(ctx, cid+"/metadata.json")
	if folderErr != nil {
		var fileErr error
		data, fileErr = c.cat(ctx, cid)
		if fileErr != nil {
			return meta, fmt.Errorf("could not fetch metadata: folder=%v file=%v", folderErr, fileErr)
		}
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("fetched metadata is not valid JSON: %w", err)
	}
	return meta, nil
}

func (c *Client) cat(ctx context.Context, path string) ([]byte, error) {
	reqURL := fmt.Sprintf("%s/api/v0/cat?arg=%s", c.apiURL, url.QueryEscape(path))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		if len(msg) == 0 {
			return nil, fmt.Errorf("ipfs cat failed: %s", resp.Status)
		}
		return nil, fmt.Errorf("ipfs cat failed: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return io.ReadAll(resp.Body)
}
