// Package client 是后端目录接口的 Go 客户端，
// 附带一份可乐观更新的本地层级缓存（见 cache.go）。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"buy_for_real_go/internal/model"
)

// Client 封装对后端 HTTP 接口的类型化访问。
// 所有响应都遵循 {code, message, data} 信封格式。
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetToken 设置后续请求携带的 Bearer Token。
func (c *Client) SetToken(token string) {
	c.token = token
}

// APIError 是服务端返回的非 2xx 响应。
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d code=%d message=%q", e.StatusCode, e.Code, e.Message)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// GroupRequest 是创建/更新分组的请求体。
type GroupRequest struct {
	Name     string `json:"name"`
	Slug     string `json:"slug,omitempty"`
	ParentID *uint  `json:"parentId,omitempty"`
}

// DeleteGroupResult 是级联删除的结果。
type DeleteGroupResult struct {
	Success       bool   `json:"success"`
	DeletedGroups int64  `json:"deletedGroupsCount"`
	DeletedMedia  int64  `json:"deletedImagesCount"`
	Message       string `json:"message,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	if c == nil || c.httpClient == nil {
		return fmt.Errorf("client is not initialized")
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response envelope: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Code: env.Code, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}

// FetchTree 拉取物化后的分组层级。filter 取值 all / products / advertisements。
func (c *Client) FetchTree(ctx context.Context, filter string) ([]model.GroupNode, error) {
	path := "/api/groups/tree"
	if filter != "" && filter != "all" {
		path += "?filter=" + filter
	}
	var nodes []model.GroupNode
	if err := c.do(ctx, http.MethodGet, path, nil, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// CreateGroup 创建分组。
func (c *Client) CreateGroup(ctx context.Context, req GroupRequest) (*model.Group, error) {
	var group model.Group
	if err := c.do(ctx, http.MethodPost, "/api/groups", req, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// UpdateGroup 更新分组（改名和/或重新挂载）。
func (c *Client) UpdateGroup(ctx context.Context, id uint, req GroupRequest) (*model.Group, error) {
	var group model.Group
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/groups/%d", id), req, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// DeleteGroup 级联删除分组子树。
func (c *Client) DeleteGroup(ctx context.Context, id uint) (*DeleteGroupResult, error) {
	var result DeleteGroupResult
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/groups/%d", id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FetchProducts 拉取全部商品标记。
func (c *Client) FetchProducts(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := c.do(ctx, http.MethodGet, "/api/products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// FetchAdvertisements 拉取全部广告标记。
func (c *Client) FetchAdvertisements(ctx context.Context) ([]model.Advertisement, error) {
	var ads []model.Advertisement
	if err := c.do(ctx, http.MethodGet, "/api/advertisements", nil, &ads); err != nil {
		return nil, err
	}
	return ads, nil
}

// TagRequest 是商品/广告打标请求体。
type TagRequest struct {
	GroupID uint `json:"groupId"`
}

// CreateProduct 给分组打商品标记。
func (c *Client) CreateProduct(ctx context.Context, groupID uint) (*model.Product, error) {
	var product model.Product
	if err := c.do(ctx, http.MethodPost, "/api/products", TagRequest{GroupID: groupID}, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// DeleteProduct 移除商品标记。
func (c *Client) DeleteProduct(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/products/%d", id), nil, nil)
}

// ToggleProductActive 翻转商品标记的启用状态。
func (c *Client) ToggleProductActive(ctx context.Context, id uint) (*model.Product, error) {
	var product model.Product
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/products/%d/active", id), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateAdvertisement 给分组打广告标记。
func (c *Client) CreateAdvertisement(ctx context.Context, groupID uint) (*model.Advertisement, error) {
	var ad model.Advertisement
	if err := c.do(ctx, http.MethodPost, "/api/advertisements", TagRequest{GroupID: groupID}, &ad); err != nil {
		return nil, err
	}
	return &ad, nil
}

// DeleteAdvertisement 移除广告标记。
func (c *Client) DeleteAdvertisement(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/advertisements/%d", id), nil, nil)
}

// ToggleAdvertisementActive 翻转广告标记的启用状态。
func (c *Client) ToggleAdvertisementActive(ctx context.Context, id uint) (*model.Advertisement, error) {
	var ad model.Advertisement
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/advertisements/%d/active", id), nil, &ad); err != nil {
		return nil, err
	}
	return &ad, nil
}
