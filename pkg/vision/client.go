// Package vision 封装外部目标检测 API 的 HTTP 客户端。
// 检测逻辑全部在外部视觉模型服务里完成，这里只负责
// 发送图片、解析响应文本里的 JSON 数组并透传结果。
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Detection 是一条检测结果。
// BBox 为 [x1, y1, x2, y2]，由模型按图片尺寸归一化到 0..1。
type Detection struct {
	Label      string     `json:"label"`
	Confidence float64    `json:"confidence"`
	BBox       [4]float64 `json:"bbox"`
}

// detectionResponse 对应检测服务的响应体。
// objects 是服务端已解析好的结果；response_text 是模型原始输出，
// 老版本服务只返回后者，所以两条路径都要支持。
type detectionResponse struct {
	Success      bool                     `json:"success"`
	Objects      []map[string]interface{} `json:"objects"`
	ResponseText string                   `json:"response_text"`
	ErrorMessage string                   `json:"error_message"`
}

// rawObject 是模型输出 JSON 数组里的单个元素。
type rawObject struct {
	Object     string     `json:"object"`
	Label      string     `json:"label"`
	Confidence float64    `json:"confidence"`
	BBox       [4]float64 `json:"bbox_2d"`
}

// Client 是检测服务的 HTTP 客户端。
type Client struct {
	endpoint   string
	httpClient *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Detect 把图片和提示词发给检测服务，返回检测到的对象列表。
// 图片大小上限由调用方在发起请求前校验。
func (c *Client) Detect(ctx context.Context, filename string, image []byte, prompt string) ([]Detection, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("vision: create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("vision: write image: %w", err)
	}
	if prompt != "" {
		if err := writer.WriteField("prompt", prompt); err != nil {
			return nil, fmt.Errorf("vision: write prompt field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("vision: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("vision: build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("vision: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vision: detection returned status %d", resp.StatusCode)
	}

	var dr detectionResponse
	if err := json.Unmarshal(raw, &dr); err != nil {
		return nil, fmt.Errorf("vision: decode response: %w", err)
	}
	if !dr.Success {
		msg := dr.ErrorMessage
		if msg == "" {
			msg = "detection failed without message"
		}
		return nil, fmt.Errorf("vision: %s", msg)
	}

	// 优先使用服务端已解析的 objects，否则从模型原始文本里抠出 JSON 数组。
	if len(dr.Objects) > 0 {
		encoded, err := json.Marshal(dr.Objects)
		if err != nil {
			return nil, fmt.Errorf("vision: re-encode objects: %w", err)
		}
		return decodeObjects(encoded)
	}
	return ParseResponseText(dr.ResponseText)
}

// ParseResponseText 从模型的自由文本输出里提取检测结果 JSON 数组。
// 模型通常把数组包在 ```json 围栏里，也可能直接输出裸数组，两种都接受。
// 文本里没有数组时返回空结果而不是错误：模型对不确定的对象返回空是约定行为。
func ParseResponseText(text string) ([]Detection, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []Detection{}, nil
	}

	if idx := strings.Index(text, "```json"); idx >= 0 {
		text = text[idx+len("```json"):]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < start {
		return []Detection{}, nil
	}

	return decodeObjects([]byte(text[start : end+1]))
}

func decodeObjects(data []byte) ([]Detection, error) {
	var objects []rawObject
	if err := json.Unmarshal(data, &objects); err != nil {
		return nil, fmt.Errorf("vision: parse detection array: %w", err)
	}

	detections := make([]Detection, 0, len(objects))
	for _, obj := range objects {
		label := obj.Object
		if label == "" {
			label = obj.Label
		}
		if label == "" {
			continue
		}
		detections = append(detections, Detection{
			Label:      label,
			Confidence: obj.Confidence,
			BBox:       obj.BBox,
		})
	}
	return detections, nil
}
