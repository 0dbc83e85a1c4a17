// Package pinning 封装外部内容寻址文件网关（pinning 服务）的 HTTP 客户端。
// 服务端只把返回的 id 当作必须持久化的不透明外部键，删除时原样回传。
package pinning

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

// PinResult 是一次成功上传的结果。
// ID 是网关分配的固定记录标识，CID 是内容寻址哈希。
type PinResult struct {
	ID  string `json:"id"`
	CID string `json:"cid"`
}

// Client 是 pinning 网关的 HTTP 客户端。
type Client struct {
	baseURL       string
	gatewayDomain string
	token         string
	httpClient    *http.Client
}

// NewClient 创建 pinning 客户端。
// baseURL 是网关 API 根地址，gatewayDomain 用于拼接可公开访问的内容 URL。
func NewClient(baseURL, gatewayDomain, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		gatewayDomain: gatewayDomain,
		token:         token,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

// Upload 把文件以 multipart 形式上传到网关并固定（pin）。
// 调用方应在调用前完成大小校验：超限文件不应该到达这里。
func (c *Client) Upload(ctx context.Context, filename string, file io.Reader) (*PinResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("pinning: create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("pinning: read file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("pinning: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pins", &body)
	if err != nil {
		return nil, fmt.Errorf("pinning: build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pinning: upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("pinning: upload returned status %d", resp.StatusCode)
	}

	var result PinResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("pinning: decode upload response: %w", err)
	}
	if result.ID == "" || result.CID == "" {
		return nil, fmt.Errorf("pinning: upload response missing id or cid")
	}
	return &result, nil
}

// GatewayURL 把 CID 转换成可访问的网关 URL。
func (c *Client) GatewayURL(cid string) string {
	return fmt.Sprintf("https://%s/ipfs/%s", c.gatewayDomain, cid)
}

// Delete 按 id 逐个请求网关删除固定的文件。
// 任意一个 id 删除失败都会返回错误，并在错误信息里列出失败的 id，
// 调用方据此决定是否中止后续的本地删除。
func (c *Client) Delete(ctx context.Context, ids []string) error {
	var failed []string
	for _, id := range ids {
		if id == "" {
			continue
		}
		if err := c.deleteOne(ctx, id); err != nil {
			failed = append(failed, id)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("pinning: failed to delete %d of %d files: %s",
			len(failed), len(ids), strings.Join(failed, ", "))
	}
	return nil
}

func (c *Client) deleteOne(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/pins/"+id, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 404 视为已删除：重复删除同一个 id 不应该让整体失败
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
