// Package llm OpenAI 兼容的 chat completions 客户端
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/grand-thief-cash/voltify/infra/application/components/http_client"
	"github.com/grand-thief-cash/voltify/infra/application/core"
	"github.com/grand-thief-cash/voltify/internal/consts"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

// ChatCompleter 返回第一条 choice 的文本
type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

var ErrEmptyCompletion = errors.New("llm: empty completion")

type Client struct {
	*core.BaseComponent
	HTTPClients *http_client.HTTPClientsComponent `infra:"dep:http_clients"`

	clientName string
	apiKey     string
	cli        *http_client.InstrumentedClient
}

func NewClient(clientName, apiKey string) *Client {
	return &Client{
		BaseComponent: core.NewBaseComponent(consts.COMP_CLI_LLM),
		clientName:    clientName,
		apiKey:        apiKey,
	}
}

func (c *Client) Start(ctx context.Context) error {
	if c.HTTPClients == nil {
		return fmt.Errorf("llm_client: http_clients not injected")
	}
	cli, err := c.HTTPClients.Client(c.clientName)
	if err != nil {
		return fmt.Errorf("llm_client: %w", err)
	}
	c.cli = cli
	return c.BaseComponent.Start(ctx)
}

func (c *Client) Complete(ctx context.Context, req ChatRequest) (string, error) {
	if c.cli == nil {
		return "", fmt.Errorf("llm_client not started")
	}
	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}
	var raw []byte
	if _, err := c.cli.Post(ctx, "/chat/completions", req, headers, &raw); err != nil {
		var se *http_client.StatusError
		if errors.As(err, &se) {
			if msg := gjson.GetBytes(se.Body, "error.message"); msg.Exists() {
				return "", fmt.Errorf("llm: status %d: %s", se.StatusCode, msg.String())
			}
		}
		return "", fmt.Errorf("llm: %w", err)
	}
	if !gjson.ValidBytes(raw) {
		return "", fmt.Errorf("llm: invalid response body")
	}
	content := gjson.GetBytes(raw, "choices.0.message.content")
	if !content.Exists() || strings.TrimSpace(content.String()) == "" {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(content.String()), nil
}
