package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/ragpro/backend/internal/domain/orchestration"
	"github.com/ragpro/backend/internal/infrastructure/config"
	"github.com/ragpro/backend/internal/infrastructure/log"
)

// Client LLM Chat 客户端
// 访问 OpenAI 兼容的 chat/completions 接口；
// 规划/撰写/批评/实体提取共用此客户端
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// ChatRequest Chat API 请求
type ChatRequest struct {
	Messages []Message `json:"messages"`
	Model    string    `json:"model,omitempty"`
}

// Message Chat 消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse Chat API 响应
type ChatResponse struct {
	ID      string `json:"id,omitempty"`
	Model   string `json:"model,omitempty"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// NewClient 创建 LLM 客户端
func NewClient(cfg *config.LLMConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		timeout: timeout,
		httpClient: &http.Client{
			// 超时由每次调用的 context 控制
			Timeout: 0,
		},
		logger: log.NewModuleLogger("llm", "client"),
	}
}

// Timeout 单次调用超时
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Complete 执行一次补全
// 传输错误映射为 ErrGenerationUnavailable，超时映射为 ErrGenerationTimeout；
// APIKey 为空时直接返回 ErrGenerationUnavailable（离线桩模式）
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	// 未配置密钥时进入离线桩模式：不发起网络调用，
	// 统一走生成能力不可用的失败路径
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: no API key configured, running in offline mode", orchestration.ErrGenerationUnavailable)
	}

	reqBody := ChatRequest{
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Model: c.model,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/chat/completions", c.baseURL)
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	c.logger.Debug("Sending LLM request",
		"url", url,
		"model", c.model,
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", orchestration.ErrGenerationTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", orchestration.ErrGenerationUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := c.readResponseBody(resp)
		return "", fmt.Errorf("%w: status %d: %s", orchestration.ErrGenerationUnavailable, resp.StatusCode, body)
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", orchestration.ErrGenerationUnavailable, err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: API returned no choices", orchestration.ErrGenerationUnavailable)
	}

	content := strings.TrimSpace(chatResp.Choices[0].Message.Content)

	c.logger.Debug("LLM request successful",
		"model", c.model,
		"tokens", chatResp.Usage.TotalTokens,
	)

	return content, nil
}

// TestConnection 测试 LLM API 连接
func (c *Client) TestConnection(ctx context.Context) error {
	testPrompt := "This is a test. Please respond with 'OK' in JSON format: {\"status\": \"OK\"}"

	_, err := c.Complete(ctx, "You are a connectivity check.", testPrompt)
	if err != nil {
		return fmt.Errorf("LLM connection test failed: %w", err)
	}

	c.logger.Info("LLM connection test successful",
		"model", c.model,
	)
	return nil
}

// readResponseBody 读取响应体
func (c *Client) readResponseBody(resp *http.Response) (string, error) {
	if resp.Body == nil {
		return "", nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
