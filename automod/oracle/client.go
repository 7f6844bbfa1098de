package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"golang.org/x/time/rate"

	"github.com/doxguard/doxguard/util"
)

// Anything which can classify a chat message.
type Oracle interface {
	Classify(ctx context.Context, authorName, content string) (*Verdict, error)
}

// HTTP client for a classification service.
//
// The service receives {"author", "content"} and answers with the detector JSON document, optionally wrapped in prose or a markdown code fence.
type Client struct {
	Client  *http.Client
	Host    string
	Token   string
	Limiter *rate.Limiter
	Logger  *slog.Logger
}

var _ Oracle = (*Client)(nil)

type classifyRequest struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

// ratePerSec of zero disables client-side rate limiting.
func NewClient(host, token string, ratePerSec float64, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		Client: util.RobustHTTPClient(logger),
		Host:   host,
		Token:  token,
		Logger: logger.With("component", "oracle"),
	}
	if ratePerSec > 0 {
		c.Limiter = rate.NewLimiter(rate.Limit(ratePerSec), 1)
	}
	return c
}

func (c *Client) Classify(ctx context.Context, authorName, content string) (*Verdict, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	body, err := json.Marshal(classifyRequest{Author: authorName, Content: content})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Host+"/v1/classify", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "doxguard/"+versioninfo.Short())

	start := time.Now()
	defer func() {
		oracleAPIDuration.Observe(time.Since(start).Seconds())
	}()

	res, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request failed: %w", err)
	}
	defer res.Body.Close()

	oracleAPICount.WithLabelValues(fmt.Sprint(res.StatusCode)).Inc()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier request failed statusCode=%d", res.StatusCode)
	}

	respBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read classifier resp body: %w", err)
	}

	v, err := ParseVerdict(string(respBytes))
	if err != nil {
		oracleParseFailures.Inc()
		return nil, err
	}
	c.Logger.Debug("classifier verdict", "flagged", v.IsFlagged, "probability", v.Probability, "risk", v.RiskLevel.String())
	return v, nil
}

// Classifies content, degrading any failure to a verdict which is not flagged.
func ClassifyOrIgnore(ctx context.Context, o Oracle, logger *slog.Logger, authorName, content string) *Verdict {
	v, err := o.Classify(ctx, authorName, content)
	if err != nil {
		logger.Warn("classifier failed, treating message as not flagged", "err", err)
		return NotFlagged(fmt.Sprintf("Analysis failed: %s", err))
	}
	return v
}
