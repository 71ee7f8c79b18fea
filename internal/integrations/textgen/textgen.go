package textgen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Dan9191/gigfin-service/internal/config"
	"github.com/sirupsen/logrus"
)

// Client talks to the external text-generation collaborator. The engine
// never calls it; callers hand it structured engine results and receive the
// user-facing narration.
type Client struct {
	url    string
	client *http.Client
	log    *logrus.Logger
}

// NewClient initializes a new text-generation client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		url: cfg.TextGenURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

type generateRequest struct {
	Context map[string]any `json:"context"`
}

type generateResponse struct {
	Message string `json:"message"`
}

// GenerateMessage sends the structured context and returns the generated
// message.
func (c *Client) GenerateMessage(context map[string]any) (string, error) {
	payload, err := json.Marshal(generateRequest{Context: context})
	if err != nil {
		return "", fmt.Errorf("failed to encode context: %w", err)
	}

	req, err := http.NewRequest("POST", c.url, bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %v", err)
	}

	// Log the raw response for debugging
	c.log.Debugf("textgen response: %s", string(body))

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to parse response: %v", err)
	}
	if out.Message == "" {
		return "", fmt.Errorf("empty message in response")
	}
	return out.Message, nil
}
