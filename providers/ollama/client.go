package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"linkweaver/config"
)

// Message ist eine einzelne Chat-Nachricht im Ollama-Wire-Format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatResponse struct {
	Message Message `json:"message"`
}

// Client kapselt die Chat-Aufrufe gegen einen Ollama-Server.
type Client struct {
	Host    string
	Model   string
	Logger  *zap.Logger
	timeout time.Duration
	http    *http.Client
}

// NewClient erstellt einen neuen Ollama-Client aus der Konfiguration.
func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	timeout := time.Duration(cfg.OllamaTimeout) * time.Second
	return &Client{
		Host:    strings.TrimRight(cfg.OllamaHost, "/"),
		Model:   cfg.OllamaModel,
		Logger:  logger,
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
	}
}

// Chat sendet einen einzelnen User-Prompt und gibt den Antworttext zurück.
// Jeder Aufruf hat ein eigenes Timeout-Budget.
func (c *Client) Chat(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model:    c.Model,
		Messages: []Message{{Role: "user", Content: prompt}},
		Stream:   false,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama request failed with status: %d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}

	return strings.TrimSpace(cr.Message.Content), nil
}
