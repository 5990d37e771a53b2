// Package telegram Bot API 的最小封装: sendMessage / getUpdates
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/grand-thief-cash/voltify/infra/application/components/http_client"
	"github.com/grand-thief-cash/voltify/infra/application/core"
	"github.com/grand-thief-cash/voltify/internal/consts"
)

type Sender interface {
	SendMessage(ctx context.Context, chatID, text string, markdown bool) error
}

// Chat getUpdates 中出现过的会话
type Chat struct {
	ID    int64
	Type  string
	Title string
}

type Client struct {
	*core.BaseComponent
	HTTPClients *http_client.HTTPClientsComponent `infra:"dep:http_clients"`

	clientName string
	token      string
	cli        *http_client.InstrumentedClient
}

func NewClient(clientName, token string) *Client {
	return &Client{
		BaseComponent: core.NewBaseComponent(consts.COMP_CLI_TG),
		clientName:    clientName,
		token:         token,
	}
}

func (c *Client) Start(ctx context.Context) error {
	if c.HTTPClients == nil {
		return fmt.Errorf("telegram_client: http_clients not injected")
	}
	cli, err := c.HTTPClients.Client(c.clientName)
	if err != nil {
		return fmt.Errorf("telegram_client: %w", err)
	}
	// 推送至多尝试一次, 重试可能导致重复消息
	c.cli = cli.WithoutRetry()
	return c.BaseComponent.Start(ctx)
}

func (c *Client) method(name string) string { return "/bot" + c.token + "/" + name }

// call 统一处理 {"ok":false,"description":...}, 不论 HTTP 状态码
func (c *Client) call(ctx context.Context, name string, body interface{}) (gjson.Result, error) {
	if c.cli == nil {
		return gjson.Result{}, fmt.Errorf("telegram_client not started")
	}
	if c.token == "" {
		return gjson.Result{}, fmt.Errorf("telegram: bot token not configured")
	}
	var raw []byte
	_, err := c.cli.Post(ctx, c.method(name), body, nil, &raw)
	if err != nil {
		var se *http_client.StatusError
		if errors.As(err, &se) {
			if d := gjson.GetBytes(se.Body, "description"); d.Exists() {
				return gjson.Result{}, fmt.Errorf("telegram %s: %s", name, d.String())
			}
		}
		return gjson.Result{}, fmt.Errorf("telegram %s: %w", name, err)
	}
	res := gjson.ParseBytes(raw)
	if !res.Get("ok").Bool() {
		return gjson.Result{}, fmt.Errorf("telegram %s: %s", name, res.Get("description").String())
	}
	return res.Get("result"), nil
}

func (c *Client) SendMessage(ctx context.Context, chatID, text string, markdown bool) error {
	if chatID == "" {
		return fmt.Errorf("telegram: chat id not configured")
	}
	body := map[string]string{"chat_id": chatID, "text": text}
	if markdown {
		body["parse_mode"] = "Markdown"
	}
	_, err := c.call(ctx, "sendMessage", body)
	return err
}

// GetUpdates 列出最近消息所属的会话, 按出现顺序去重
func (c *Client) GetUpdates(ctx context.Context) ([]Chat, error) {
	result, err := c.call(ctx, "getUpdates", map[string]interface{}{})
	if err != nil {
		return nil, err
	}
	seen := map[int64]bool{}
	var chats []Chat
	result.ForEach(func(_, u gjson.Result) bool {
		chat := u.Get("message.chat")
		if !chat.Exists() {
			chat = u.Get("channel_post.chat")
		}
		if !chat.Exists() {
			return true
		}
		id := chat.Get("id").Int()
		if seen[id] {
			return true
		}
		seen[id] = true
		title := chat.Get("title").String()
		if title == "" {
			title = chat.Get("username").String()
		}
		if title == "" {
			title = chat.Get("first_name").String()
		}
		chats = append(chats, Chat{ID: id, Type: chat.Get("type").String(), Title: title})
		return true
	})
	return chats, nil
}

func (ch Chat) String() string {
	return fmt.Sprintf("%s (%s) chat_id=%s", ch.Title, ch.Type, strconv.FormatInt(ch.ID, 10))
}
