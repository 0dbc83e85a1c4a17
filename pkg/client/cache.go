package client

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"buy_for_real_go/internal/model"
)

// View 标识一份缓存的层级视图。
type View string

const (
	ViewAll            View = "all"
	ViewProducts       View = "products"
	ViewAdvertisements View = "advertisements"
)

var allViews = []View{ViewAll, ViewProducts, ViewAdvertisements}

const cachePathSeparator = "/"

// CachedNode 是缓存里的层级节点。
// TempID 非 0 表示这是乐观插入的占位节点，尚未拿到服务端分配的 id；
// 占位节点的 path token 使用负数临时 id，不会和服务端的正数 id 混淆。
type CachedNode struct {
	model.GroupNode
	TempID int64 `json:"tempId,omitempty"`
}

type viewState struct {
	nodes  []CachedNode
	loaded bool
	stale  bool
	cancel context.CancelFunc
}

// 扁平标记列表（商品 / 广告）的缓存状态。
// 列表不参与刷新取消：串行变更流模型下标记变更和列表刷新不会交错。
type productListState struct {
	items  []model.Product
	loaded bool
	stale  bool
}

type adListState struct {
	items  []model.Advertisement
	loaded bool
	stale  bool
}

// TreeCache 维护物化层级的本地缓存，并支持乐观变更。
// 变更协议（每次变更都走同一套抽象，见 PendingMutation）：
// 1. Stage：取消受影响视图的在途刷新，记录快照，应用预测补丁。
// 2. Commit：用服务端返回的权威值替换占位条目（按临时 id 匹配）。
// 3. Rollback：精确恢复快照（整体回滚，不做部分恢复）。
// 4. 无论成败，结算后把受影响视图标记为 stale，靠重新拉取修复
//    预测补丁覆盖不到的部分（level/path 重算、跨视图成员变化）。
//
// 并发模型：单个缓存实例上假定串行的用户变更流；唯一的并发防护是
// Stage 前取消同视图的在途刷新，避免过期响应覆盖刚打上的乐观状态。
type TreeCache struct {
	mu         sync.Mutex
	api        *Client
	views      map[View]*viewState
	products   productListState
	ads        adListState
	nextTempID int64
}

func NewTreeCache(api *Client) *TreeCache {
	views := make(map[View]*viewState, len(allViews))
	for _, v := range allViews {
		views[v] = &viewState{}
	}
	return &TreeCache{api: api, views: views}
}

// Nodes 返回视图当前的节点副本。未加载过的视图返回空。
func (c *TreeCache) Nodes(view View) []CachedNode {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.views[view]
	if !ok {
		return nil
	}
	return copyNodes(state.nodes)
}

// IsStale 报告视图是否等待重新拉取。
func (c *TreeCache) IsStale(view View) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.views[view]
	return ok && state.stale
}

// Refresh 从服务端重新拉取一个视图。
// 拉取过程中若有变更 Stage 进来，本次结果会被丢弃（取消语义），
// 保证过期数据不会覆盖更新的乐观状态。
func (c *TreeCache) Refresh(ctx context.Context, view View) error {
	c.mu.Lock()
	state, ok := c.views[view]
	if !ok || c.api == nil {
		c.mu.Unlock()
		return nil
	}
	if state.cancel != nil {
		state.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	// cancel 同时登记在 viewState 上（供 Stage 打断用）；
	// 拉取结束后在这里兜底释放，重复调用是无害的
	defer cancel()
	state.cancel = cancel
	c.mu.Unlock()

	nodes, err := c.api.FetchTree(fetchCtx, string(view))

	c.mu.Lock()
	defer c.mu.Unlock()
	current := c.views[view]
	if current.cancel == nil || fetchCtx.Err() != nil {
		// 本次刷新已被后来的变更取消，结果作废
		return nil
	}
	current.cancel = nil
	if err != nil {
		return err
	}

	cached := make([]CachedNode, len(nodes))
	for i, n := range nodes {
		cached[i] = CachedNode{GroupNode: n}
	}
	current.nodes = cached
	current.loaded = true
	current.stale = false
	return nil
}

// RefreshStale 重新拉取所有标记为过期的视图。
func (c *TreeCache) RefreshStale(ctx context.Context) error {
	for _, v := range allViews {
		if c.IsStale(v) {
			if err := c.Refresh(ctx, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// PendingMutation 是一次在途乐观变更。
// 它持有变更前的完整快照，settle 语义固定：
// Commit/Rollback 各执行一次，之后受影响视图都会标记过期。
type PendingMutation struct {
	cache       *TreeCache
	tempID      int64
	snapshots   map[View][]CachedNode
	invalidates []View

	productSnapshot []model.Product
	adSnapshot      []model.Advertisement
	touchedProducts bool
	touchedAds      bool

	settled bool
}

// TempID 返回本次变更使用的临时 id（仅插入类变更非 0）。
func (p *PendingMutation) TempID() int64 {
	return p.tempID
}

// Rollback 把所有受影响视图精确恢复到变更前的快照。
func (p *PendingMutation) Rollback() {
	p.cache.mu.Lock()
	defer p.cache.mu.Unlock()
	if p.settled {
		return
	}
	p.settled = true

	for view, snapshot := range p.snapshots {
		p.cache.views[view].nodes = snapshot
	}
	if p.touchedProducts {
		p.cache.products.items = p.productSnapshot
	}
	if p.touchedAds {
		p.cache.ads.items = p.adSnapshot
	}
	p.markStaleLocked()
}

func (p *PendingMutation) settleLocked() {
	p.settled = true
	p.markStaleLocked()
}

func (p *PendingMutation) markStaleLocked() {
	for _, view := range p.invalidates {
		p.cache.views[view].stale = true
	}
	if p.touchedProducts {
		p.cache.products.stale = true
	}
	if p.touchedAds {
		p.cache.ads.stale = true
	}
}

// stage 是所有变更的公共前半段：取消在途刷新并记录快照。
func (c *TreeCache) stage(views []View) *PendingMutation {
	p := &PendingMutation{
		cache:       c,
		snapshots:   make(map[View][]CachedNode, len(views)),
		invalidates: views,
	}
	for _, view := range views {
		state := c.views[view]
		if state.cancel != nil {
			state.cancel()
			state.cancel = nil
		}
		p.snapshots[view] = copyNodes(state.nodes)
	}
	return p
}

// StageCreateGroup 乐观插入一个占位分组节点。
// level/path 用当前缓存里父节点的值估算，权威值在结算刷新后到达。
func (c *TreeCache) StageCreateGroup(name, slug string, parentID *uint) *PendingMutation {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.stage(allViews)
	c.nextTempID--
	p.tempID = c.nextTempID

	node := CachedNode{
		GroupNode: model.GroupNode{
			Name:     name,
			Slug:     slug,
			ParentID: parentID,
			Media:    []model.Media{},
		},
		TempID: p.tempID,
	}
	tempToken := strconv.FormatInt(p.tempID, 10)

	state := c.views[ViewAll]
	insertAt := len(state.nodes)
	if parentID != nil {
		if parentIdx, parent := findNodeByID(state.nodes, *parentID); parentIdx >= 0 {
			node.Level = parent.Level + 1
			node.Path = parent.Path + cachePathSeparator + tempToken
			insertAt = endOfSubtree(state.nodes, parentIdx)
		} else {
			node.Path = tempToken
		}
	} else {
		node.Path = tempToken
	}

	nodes := make([]CachedNode, 0, len(state.nodes)+1)
	nodes = append(nodes, state.nodes[:insertAt]...)
	nodes = append(nodes, node)
	nodes = append(nodes, state.nodes[insertAt:]...)
	state.nodes = nodes
	return p
}

// CommitCreate 用服务端分配的权威分组替换占位节点。
func (p *PendingMutation) CommitCreate(group *model.Group) {
	p.cache.mu.Lock()
	defer p.cache.mu.Unlock()
	if p.settled {
		return
	}

	if group != nil {
		state := p.cache.views[ViewAll]
		for i := range state.nodes {
			if state.nodes[i].TempID == p.tempID {
				state.nodes[i].ID = group.ID
				state.nodes[i].Name = group.Name
				state.nodes[i].Slug = group.Slug
				state.nodes[i].ParentID = group.ParentID
				state.nodes[i].TempID = 0
				// path 里的临时 token 换成真实 id；level 保持估算值，
				// 权威 level/path 由结算后的刷新带回
				state.nodes[i].Path = strings.Replace(
					state.nodes[i].Path,
					strconv.FormatInt(p.tempID, 10),
					strconv.FormatUint(uint64(group.ID), 10),
					1,
				)
				break
			}
		}
	}
	p.settleLocked()
}

// StageDeleteGroup 乐观移除节点及其全部缓存子孙。
func (c *TreeCache) StageDeleteGroup(id uint) *PendingMutation {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.stage(allViews)
	for _, view := range allViews {
		state := c.views[view]
		idx, node := findNodeByID(state.nodes, id)
		if idx < 0 {
			continue
		}
		prefix := node.Path + cachePathSeparator
		kept := state.nodes[:0:0]
		for _, n := range state.nodes {
			if n.ID == id || strings.HasPrefix(n.Path, prefix) {
				continue
			}
			kept = append(kept, n)
		}
		state.nodes = kept
	}
	return p
}

// StageRenameGroup 乐观合并分组的新名字。
func (c *TreeCache) StageRenameGroup(id uint, name string) *PendingMutation {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.stage(allViews)
	for _, view := range allViews {
		state := c.views[view]
		for i := range state.nodes {
			if state.nodes[i].ID == id {
				state.nodes[i].Name = name
			}
		}
	}
	return p
}

// StageUpdateMedia 乐观合并媒体字段（nil 字段不修改）。
func (c *TreeCache) StageUpdateMedia(mediaID string, label, description *string, isActive *bool) *PendingMutation {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.stage(allViews)
	for _, view := range allViews {
		state := c.views[view]
		for i := range state.nodes {
			for j := range state.nodes[i].Media {
				if state.nodes[i].Media[j].ID != mediaID {
					continue
				}
				if label != nil {
					state.nodes[i].Media[j].Label = label
				}
				if description != nil {
					state.nodes[i].Media[j].Description = description
				}
				if isActive != nil {
					state.nodes[i].Media[j].IsActive = *isActive
				}
			}
		}
	}
	return p
}

// StageDeleteMedia 乐观移除一条媒体。
func (c *TreeCache) StageDeleteMedia(mediaID string) *PendingMutation {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.stage(allViews)
	for _, view := range allViews {
		state := c.views[view]
		for i := range state.nodes {
			media := state.nodes[i].Media
			kept := media[:0:0]
			for _, m := range media {
				if m.ID == mediaID {
					continue
				}
				kept = append(kept, m)
			}
			if kept == nil {
				kept = []model.Media{}
			}
			state.nodes[i].Media = kept
		}
	}
	return p
}

// Commit 结算一次不涉及占位条目的变更（删除、改名、媒体编辑）。
func (p *PendingMutation) Commit() {
	p.cache.mu.Lock()
	defer p.cache.mu.Unlock()
	if p.settled {
		return
	}
	p.settleLocked()
}

// CreateGroup 是“乐观补丁 + 服务端调用”的组合操作。
// 失败时缓存精确回到变更前的状态。
func (c *TreeCache) CreateGroup(ctx context.Context, req GroupRequest) (*model.Group, error) {
	p := c.StageCreateGroup(req.Name, req.Slug, req.ParentID)

	group, err := c.api.CreateGroup(ctx, req)
	if err != nil {
		p.Rollback()
		return nil, err
	}
	p.CommitCreate(group)
	return group, nil
}

// DeleteGroup 乐观移除子树并调用服务端级联删除。
func (c *TreeCache) DeleteGroup(ctx context.Context, id uint) (*DeleteGroupResult, error) {
	p := c.StageDeleteGroup(id)

	// 外部网关删除失败时服务端返回 502，在 err 分支里回滚
	result, err := c.api.DeleteGroup(ctx, id)
	if err != nil {
		p.Rollback()
		return nil, err
	}
	p.Commit()
	return result, nil
}

// RenameGroup 乐观改名并调用服务端更新。
func (c *TreeCache) RenameGroup(ctx context.Context, id uint, name string) (*model.Group, error) {
	p := c.StageRenameGroup(id, name)

	group, err := c.api.UpdateGroup(ctx, id, GroupRequest{Name: name})
	if err != nil {
		p.Rollback()
		return nil, err
	}
	p.Commit()
	return group, nil
}

// Products 返回商品标记列表的副本。
func (c *TreeCache) Products() []model.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Product(nil), c.products.items...)
}

// Advertisements 返回广告标记列表的副本。
func (c *TreeCache) Advertisements() []model.Advertisement {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Advertisement(nil), c.ads.items...)
}

// ProductsStale 报告商品列表是否等待重新拉取。
func (c *TreeCache) ProductsStale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.products.stale
}

// AdvertisementsStale 报告广告列表是否等待重新拉取。
func (c *TreeCache) AdvertisementsStale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ads.stale
}

// RefreshProducts 重新拉取商品标记列表。
func (c *TreeCache) RefreshProducts(ctx context.Context) error {
	if c.api == nil {
		return nil
	}
	items, err := c.api.FetchProducts(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products.items = items
	c.products.loaded = true
	c.products.stale = false
	return nil
}

// RefreshAdvertisements 重新拉取广告标记列表。
func (c *TreeCache) RefreshAdvertisements(ctx context.Context) error {
	if c.api == nil {
		return nil
	}
	items, err := c.api.FetchAdvertisements(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ads.items = items
	c.ads.loaded = true
	c.ads.stale = false
	return nil
}

// StageCreateProduct 乐观追加一条商品标记（id 为 0 表示占位）。
// 分组是否因此进入商品过滤视图由结算后的刷新决定，树视图不做预测。
func (c *TreeCache) StageCreateProduct(groupID uint) *PendingMutation {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.stage([]View{ViewProducts})
	p.touchedProducts = true
	p.productSnapshot = append([]model.Product(nil), c.products.items...)
	c.products.items = append(c.products.items, model.Product{GroupID: groupID, IsActive: true})
	return p
}

// CommitCreateProduct 用服务端返回的标记行替换占位条目。
func (p *PendingMutation) CommitCreateProduct(product *model.Product) {
	p.cache.mu.Lock()
	defer p.cache.mu.Unlock()
	if p.settled {
		return
	}
	if product != nil {
		items := p.cache.products.items
		for i := range items {
			if items[i].ID == 0 && items[i].GroupID == product.GroupID {
				items[i] = *product
				break
			}
		}
	}
	p.settleLocked()
}

// StageDeleteProduct 乐观移除一条商品标记。
func (c *TreeCache) StageDeleteProduct(id uint) *PendingMutation {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.stage([]View{ViewProducts})
	p.touchedProducts = true
	p.productSnapshot = append([]model.Product(nil), c.products.items...)
	kept := c.products.items[:0:0]
	for _, item := range c.products.items {
		if item.ID == id {
			continue
		}
		kept = append(kept, item)
	}
	c.products.items = kept
	return p
}

// StageCreateAdvertisement 乐观追加一条广告标记。
func (c *TreeCache) StageCreateAdvertisement(groupID uint) *PendingMutation {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.stage([]View{ViewAdvertisements})
	p.touchedAds = true
	p.adSnapshot = append([]model.Advertisement(nil), c.ads.items...)
	c.ads.items = append(c.ads.items, model.Advertisement{GroupID: groupID, IsActive: true})
	return p
}

// CommitCreateAdvertisement 用服务端返回的标记行替换占位条目。
func (p *PendingMutation) CommitCreateAdvertisement(ad *model.Advertisement) {
	p.cache.mu.Lock()
	defer p.cache.mu.Unlock()
	if p.settled {
		return
	}
	if ad != nil {
		items := p.cache.ads.items
		for i := range items {
			if items[i].ID == 0 && items[i].GroupID == ad.GroupID {
				items[i] = *ad
				break
			}
		}
	}
	p.settleLocked()
}

// StageDeleteAdvertisement 乐观移除一条广告标记。
func (c *TreeCache) StageDeleteAdvertisement(id uint) *PendingMutation {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.stage([]View{ViewAdvertisements})
	p.touchedAds = true
	p.adSnapshot = append([]model.Advertisement(nil), c.ads.items...)
	kept := c.ads.items[:0:0]
	for _, item := range c.ads.items {
		if item.ID == id {
			continue
		}
		kept = append(kept, item)
	}
	c.ads.items = kept
	return p
}

// CreateProduct 乐观打商品标记并调用服务端。
func (c *TreeCache) CreateProduct(ctx context.Context, groupID uint) (*model.Product, error) {
	p := c.StageCreateProduct(groupID)

	product, err := c.api.CreateProduct(ctx, groupID)
	if err != nil {
		p.Rollback()
		return nil, err
	}
	p.CommitCreateProduct(product)
	return product, nil
}

// DeleteProduct 乐观移除商品标记并调用服务端。
func (c *TreeCache) DeleteProduct(ctx context.Context, id uint) error {
	p := c.StageDeleteProduct(id)

	if err := c.api.DeleteProduct(ctx, id); err != nil {
		p.Rollback()
		return err
	}
	p.Commit()
	return nil
}

// CreateAdvertisement 乐观打广告标记并调用服务端。
func (c *TreeCache) CreateAdvertisement(ctx context.Context, groupID uint) (*model.Advertisement, error) {
	p := c.StageCreateAdvertisement(groupID)

	ad, err := c.api.CreateAdvertisement(ctx, groupID)
	if err != nil {
		p.Rollback()
		return nil, err
	}
	p.CommitCreateAdvertisement(ad)
	return ad, nil
}

// DeleteAdvertisement 乐观移除广告标记并调用服务端。
func (c *TreeCache) DeleteAdvertisement(ctx context.Context, id uint) error {
	p := c.StageDeleteAdvertisement(id)

	if err := c.api.DeleteAdvertisement(ctx, id); err != nil {
		p.Rollback()
		return err
	}
	p.Commit()
	return nil
}

func copyNodes(nodes []CachedNode) []CachedNode {
	out := make([]CachedNode, len(nodes))
	for i, n := range nodes {
		out[i] = n
		out[i].Media = append([]model.Media(nil), n.Media...)
		if out[i].Media == nil {
			out[i].Media = []model.Media{}
		}
	}
	return out
}

func findNodeByID(nodes []CachedNode, id uint) (int, *CachedNode) {
	for i := range nodes {
		if nodes[i].ID == id {
			return i, &nodes[i]
		}
	}
	return -1, nil
}

// endOfSubtree 返回 parentIdx 的整棵子树结束后的下标，
// 在那里插入可以保持“父先于子、兄弟相邻”的顺序。
func endOfSubtree(nodes []CachedNode, parentIdx int) int {
	prefix := nodes[parentIdx].Path + cachePathSeparator
	end := parentIdx + 1
	for end < len(nodes) && strings.HasPrefix(nodes[end].Path, prefix) {
		end++
	}
	return end
}
