package http_client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/grand-thief-cash/voltify/infra/application/components/logging"
)

// 错误响应里最多保留的 body 字节数
const errBodyLimit = 4096

// StatusError 非 2xx/3xx 响应
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http error status=%d body=%s", e.StatusCode, strings.TrimSpace(string(e.Body)))
}

type InstrumentedClient struct {
	Name           string
	BaseURL        string
	DefaultHeaders map[string]string
	Client         *http.Client
	Retry          *RetryConfig
	Underlying     *http.Transport
}

// NewInstrumentedClient 带 otelhttp transport 的客户端
func NewInstrumentedClient(name string, cfg *HTTPClientConfig) *InstrumentedClient {
	cfg.applyDefaults()
	underlying := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &InstrumentedClient{
		Name:           name,
		BaseURL:        cfg.BaseURL,
		DefaultHeaders: cfg.DefaultHeaders,
		Client:         &http.Client{Timeout: cfg.Timeout, Transport: otelhttp.NewTransport(underlying)},
		Retry:          cfg.Retry,
		Underlying:     underlying,
	}
}

// WithoutRetry 共享连接池的副本, 每个请求最多发送一次
func (ic *InstrumentedClient) WithoutRetry() *InstrumentedClient {
	cp := *ic
	cp.Retry = nil
	return &cp
}

func (ic *InstrumentedClient) buildURL(path string, q map[string]string) (string, error) {
	full := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		if path != "" && !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		full = ic.BaseURL + path
	}
	u, err := url.Parse(full)
	if err != nil {
		return "", err
	}
	if len(q) > 0 {
		qs := u.Query()
		for k, v := range q {
			qs.Set(k, v)
		}
		u.RawQuery = qs.Encode()
	}
	return u.String(), nil
}

// Do 发送请求. body 为 struct/map 时按 JSON 编码; out 可以是 *[]byte, *string 或 JSON 目标.
// 返回的 Response.Body 已被读完并关闭.
func (ic *InstrumentedClient) Do(ctx context.Context, method, path string, query, headers map[string]string, body interface{}, out interface{}) (*http.Response, error) {
	if method == "" {
		method = http.MethodGet
	}
	targetURL, err := ic.buildURL(path, query)
	if err != nil {
		return nil, err
	}

	var payload []byte
	contentType := ""
	switch b := body.(type) {
	case nil:
	case []byte:
		payload = b
	case string:
		payload = []byte(b)
	case url.Values:
		payload = []byte(b.Encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		if payload, err = json.Marshal(b); err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		contentType = "application/json"
	}

	newReq := func() (*http.Request, error) {
		var rd io.Reader
		if payload != nil {
			rd = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, targetURL, rd)
		if err != nil {
			return nil, err
		}
		for k, v := range ic.DefaultHeaders {
			req.Header.Set(k, v)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		if contentType != "" && req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", contentType)
		}
		if req.Header.Get("Accept") == "" {
			req.Header.Set("Accept", "application/json, */*")
		}
		return req, nil
	}

	start := time.Now()
	resp, raw, err := ic.doWithRetry(ctx, newReq)
	fields := []zap.Field{
		zap.String("client", ic.Name),
		zap.String("method", method),
		zap.String("path", redactPath(path)),
		zap.Duration("latency", time.Since(start)),
	}
	if err != nil {
		logging.Error(ctx, "http_client_request", append(fields, zap.Error(err))...)
		return resp, err
	}
	logging.Info(ctx, "http_client_request", append(fields, zap.Int("status", resp.StatusCode))...)

	if resp.StatusCode >= 400 {
		if len(raw) > errBodyLimit {
			raw = raw[:errBodyLimit]
		}
		return resp, &StatusError{StatusCode: resp.StatusCode, Body: raw}
	}
	switch o := out.(type) {
	case nil:
	case *[]byte:
		*o = raw
	case *string:
		*o = string(raw)
	default:
		if len(bytes.TrimSpace(raw)) == 0 {
			return resp, nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return resp, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp, nil
}

func (ic *InstrumentedClient) Get(ctx context.Context, path string, query, headers map[string]string, out interface{}) (*http.Response, error) {
	return ic.Do(ctx, http.MethodGet, path, query, headers, nil, out)
}

func (ic *InstrumentedClient) Post(ctx context.Context, path string, body interface{}, headers map[string]string, out interface{}) (*http.Response, error) {
	return ic.Do(ctx, http.MethodPost, path, nil, headers, body, out)
}

// doWithRetry 只重试网络错误和 5xx; 每次重建 request 保证 body 可重读
func (ic *InstrumentedClient) doWithRetry(ctx context.Context, newReq func() (*http.Request, error)) (*http.Response, []byte, error) {
	attempts := 1
	var backoff time.Duration
	if r := ic.Retry; r != nil && r.Enabled && r.MaxAttempts > 1 {
		attempts = r.MaxAttempts
		backoff = r.InitialBackoff
	}

	var (
		lastResp *http.Response
		lastRaw  []byte
		lastErr  error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		req, err := newReq()
		if err != nil {
			return nil, nil, err
		}
		resp, err := ic.Client.Do(req)
		if err == nil {
			raw, readErr := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if readErr != nil {
				err = fmt.Errorf("read response: %w", readErr)
			} else if resp.StatusCode < 500 {
				return resp, raw, nil
			} else {
				lastResp, lastRaw, lastErr = resp, raw, nil
			}
		}
		if err != nil {
			lastResp, lastRaw, lastErr = nil, nil, err
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = time.Duration(float64(backoff) * ic.Retry.BackoffMultiplier)
		if backoff > ic.Retry.MaxBackoff {
			backoff = ic.Retry.MaxBackoff
		}
	}
	if lastErr != nil {
		return nil, nil, redactURLError(lastErr)
	}
	return lastResp, lastRaw, nil
}

// redactURLError 网络错误里带着完整 URL, 返回前同样去掉密钥路径段
func redactURLError(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	ue.URL = redactPath(ue.URL)
	return err
}

// redactPath 去掉 /bot<token>/ 这类带密钥的路径段
func redactPath(p string) string {
	if i := strings.Index(p, "/bot"); i >= 0 {
		rest := p[i+4:]
		if j := strings.Index(rest, "/"); j >= 0 {
			return p[:i] + "/bot***" + rest[j:]
		}
	}
	return p
}
