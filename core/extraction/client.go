package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/masambo/jukebox-joy-scan/logger"
)

// Client 调用视觉识别服务：进去一张曲目表照片，出来结构化的歌曲
// 列表。这一层不做批量；扫描调度器负责串行化调用。
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient 创建识别客户端。timeout约束整个请求；挂死的调用不能
// 永远卡住扫描队列。
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type extractRequest struct {
	ImageBase64     string `json:"imageBase64"`
	ExtractMetadata bool   `json:"extractMetadata,omitempty"`
}

type serviceError struct {
	Error string `json:"error"`
}

// Extract 发送一张图片（base64数据URI）并返回解析出的歌曲列表。
// extractMetadata开启时服务同时推断专辑标题和艺人。所有失败都以
// 按Kind分类的*Error返回。
func (c *Client) Extract(ctx context.Context, imageDataURI string, extractMetadata bool) (*Result, error) {
	reqBody := extractRequest{
		ImageBase64:     imageDataURI,
		ExtractMetadata: extractMetadata,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: fmt.Sprintf("failed to marshal request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: fmt.Sprintf("failed to create request: %v", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// 覆盖网络错误和客户端超时
		return nil, &Error{Kind: KindTransport, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Status: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, body)
	}

	result, err := ParseResult(string(body))
	if err != nil {
		logger.Warn("Extraction response could not be parsed",
			logger.Int("bodyLength", len(body)),
			logger.ErrorField(err))
		return nil, err
	}

	return result, nil
}

// classifyStatus 把非2xx响应映射为分类错误，服务自带的消息原样保留
func classifyStatus(status int, body []byte) *Error {
	message := string(body)
	var se serviceError
	if json.Unmarshal(body, &se) == nil && se.Error != "" {
		message = se.Error
	}

	switch status {
	case http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimited, Status: status, Message: message}
	case http.StatusPaymentRequired:
		return &Error{Kind: KindQuotaExhausted, Status: status, Message: message}
	default:
		return &Error{Kind: KindTransport, Status: status, Message: message}
	}
}
