// Client for a chat bridge: a small REST service which fronts the actual chat platform (message fetch and delete, direct messages, channel posts, moderation log) and forwards inbound chat events to the daemon.
package chatbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/google/go-querystring/query"

	"github.com/doxguard/doxguard/automod/engine"
	"github.com/doxguard/doxguard/automod/modqueue"
	"github.com/doxguard/doxguard/util"
)

type Client struct {
	Client *http.Client
	Host   string
	Token  string
	Logger *slog.Logger
}

var _ engine.Platform = (*Client)(nil)

func NewClient(host, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		Client: util.RobustHTTPClient(logger),
		Host:   host,
		Token:  token,
		Logger: logger.With("component", "chatbridge"),
	}
}

type MessageView struct {
	CommunityID string    `json:"community_id"`
	ChannelID   string    `json:"channel_id"`
	MessageID   string    `json:"message_id"`
	AuthorID    string    `json:"author_id"`
	AuthorName  string    `json:"author_name"`
	Link        string    `json:"link,omitempty"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

func (m *MessageView) toMessage() *engine.Message {
	return &engine.Message{
		Ref: modqueue.ContentRef{
			CommunityID: m.CommunityID,
			ChannelID:   m.ChannelID,
			MessageID:   m.MessageID,
			AuthorID:    m.AuthorID,
			AuthorName:  m.AuthorName,
			Link:        m.Link,
		},
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

type resolveParams struct {
	Link string `url:"link"`
}

type directBody struct {
	Text string           `json:"text,omitempty"`
	Card *engine.LogEntry `json:"card,omitempty"`
}

type channelBody struct {
	Text string `json:"text"`
}

type modLogBody struct {
	Card *engine.LogEntry `json:"card"`
}

func messagePath(ref modqueue.ContentRef) string {
	return fmt.Sprintf("/v1/messages/%s/%s", url.PathEscape(ref.ChannelID), url.PathEscape(ref.MessageID))
}

// Performs a request against the bridge. A nil out skips response decoding.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.Host+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "doxguard/"+versioninfo.Short())

	start := time.Now()
	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("chat bridge %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	bridgeDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	bridgeStatus.WithLabelValues(method, fmt.Sprint(resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("chat bridge %s %s: %w", method, path, engine.ErrNotFound)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("chat bridge %s %s: %w", method, path, engine.ErrForbidden)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("chat bridge %s %s: status %d: %s", method, path, resp.StatusCode, string(msg))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding chat bridge response: %w", err)
	}
	return nil
}

func (c *Client) FetchMessage(ctx context.Context, ref modqueue.ContentRef) (*engine.Message, error) {
	var mv MessageView
	if err := c.do(ctx, http.MethodGet, messagePath(ref), nil, &mv); err != nil {
		return nil, err
	}
	msg := mv.toMessage()
	if msg.Ref.CommunityID == "" {
		msg.Ref.CommunityID = ref.CommunityID
	}
	return msg, nil
}

func (c *Client) DeleteMessage(ctx context.Context, ref modqueue.ContentRef) error {
	return c.do(ctx, http.MethodDelete, messagePath(ref), nil, nil)
}

func (c *Client) ResolveLink(ctx context.Context, link string) (*engine.Message, error) {
	vals, err := query.Values(resolveParams{Link: link})
	if err != nil {
		return nil, err
	}
	var mv MessageView
	if err := c.do(ctx, http.MethodGet, "/v1/resolve?"+vals.Encode(), nil, &mv); err != nil {
		return nil, err
	}
	return mv.toMessage(), nil
}

func (c *Client) SendDirect(ctx context.Context, userID, text string, entry *engine.LogEntry) error {
	path := fmt.Sprintf("/v1/users/%s/dm", url.PathEscape(userID))
	return c.do(ctx, http.MethodPost, path, directBody{Text: text, Card: entry}, nil)
}

func (c *Client) PostChannel(ctx context.Context, channelID, text string) error {
	path := fmt.Sprintf("/v1/channels/%s/messages", url.PathEscape(channelID))
	return c.do(ctx, http.MethodPost, path, channelBody{Text: text}, nil)
}

func (c *Client) PostModLog(ctx context.Context, communityID string, entry *engine.LogEntry) error {
	path := fmt.Sprintf("/v1/communities/%s/modlog", url.PathEscape(communityID))
	return c.do(ctx, http.MethodPost, path, modLogBody{Card: entry}, nil)
}
