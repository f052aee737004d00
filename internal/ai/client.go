package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// CoachClient 习惯教练使用的 OpenAI 兼容聊天客户端（默认 DeepSeek）。
// 温度、输出长度和重试预算都属于教练的回复策略，统一收在客户端内，
// 调用方只负责组装消息。
type CoachClient struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	maxRetries  int
	client      *http.Client
}

// CoachConfig 配置
type CoachConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64 // 默认 0.3：教练建议求稳不求发散
	MaxTokens   int     // 默认 1000：回复保持短篇幅
	MaxRetries  int     // 默认 3
}

// NewCoachClient 创建客户端
func NewCoachClient(cfg *CoachConfig) *CoachClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.deepseek.com"
	}
	if cfg.Model == "" {
		cfg.Model = "deepseek-chat"
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.3
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	return &CoachClient{
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		maxRetries:  cfg.MaxRetries,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Message 聊天消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// apiError 携带 HTTP 状态码的 API 错误，只有 5xx 值得重试
type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("API 返回 %d: %s", e.status, e.body)
}

// Reply 发送一轮教练对话并返回回复文本。
// 内部按指数退避重试（1s、2s、4s…），仅对 5xx 和网络超时重试，
// 4xx 等调用方错误立即返回。
func (c *CoachClient) Reply(ctx context.Context, messages []Message) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			slog.Warn("教练 LLM 调用失败，准备重试", "attempt", attempt+1, "backoff", backoff, "error", lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		reply, err := c.chatOnce(ctx, messages)
		if err == nil {
			return reply, nil
		}
		if !isRetryable(err) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("达到最大重试次数 (%d): %w", c.maxRetries, lastErr)
}

// chatOnce 单次调用 /v1/chat/completions
func (c *CoachClient) chatOnce(ctx context.Context, messages []Message) (string, error) {
	payload := struct {
		Model       string    `json:"model"`
		Messages    []Message `json:"messages"`
		Temperature float64   `json:"temperature,omitempty"`
		MaxTokens   int       `json:"max_tokens,omitempty"`
	}{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		slog.Error("教练 LLM API 错误", "status", resp.StatusCode, "body", truncateBody(respBody))
		return "", &apiError{status: resp.StatusCode, body: truncateBody(respBody)}
	}

	var parsed struct {
		Choices []struct {
			Message Message `json:"message"`
		} `json:"choices"`
		Usage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("无响应内容")
	}

	slog.Debug("教练 LLM 调用成功", "tokens", parsed.Usage.TotalTokens, "model", c.model)
	return parsed.Choices[0].Message.Content, nil
}

// IsConfigured 检查是否已配置
func (c *CoachClient) IsConfigured() bool {
	return c != nil && c.apiKey != ""
}

// isRetryable 判断错误是否值得重试：服务端 5xx 或网络层错误
func isRetryable(err error) bool {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.status >= 500
	}
	var ne net.Error
	return errors.As(err, &ne)
}

func truncateBody(b []byte) string {
	const limit = 200
	if len(b) <= limit {
		return string(b)
	}
	return string(b[:limit]) + "..."
}
