package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"buy_for_real_go/internal/model"
	"buy_for_real_go/internal/repository"
	"buy_for_real_go/pkg/log"
	"buy_for_real_go/pkg/pinning"
	"buy_for_real_go/pkg/slug"

	"gorm.io/gorm"
)

// Pinner 是外部 pinning 网关在服务层可见的最小接口。
// 生产实现是 pkg/pinning.Client，测试里用 fake 替换。
type Pinner interface {
	Upload(ctx context.Context, filename string, file io.Reader) (*pinning.PinResult, error)
	GatewayURL(cid string) string
	Delete(ctx context.Context, ids []string) error
}

// TreeFilter 选择物化层级的过滤变体。
type TreeFilter string

const (
	TreeFilterAll            TreeFilter = "all"
	TreeFilterProducts       TreeFilter = "products"
	TreeFilterAdvertisements TreeFilter = "advertisements"
)

// ParseTreeFilter 解析 query 参数里的过滤器取值。
func ParseTreeFilter(raw string) (TreeFilter, error) {
	switch TreeFilter(strings.ToLower(strings.TrimSpace(raw))) {
	case "", TreeFilterAll:
		return TreeFilterAll, nil
	case TreeFilterProducts:
		return TreeFilterProducts, nil
	case TreeFilterAdvertisements:
		return TreeFilterAdvertisements, nil
	default:
		return "", ErrInvalidInput
	}
}

// DeleteGroupResult 是级联删除的结果。
// 外部删除失败时 Success 为 false 且数据库保持原样，Message 给出可操作的说明。
type DeleteGroupResult struct {
	Success       bool   `json:"success"`
	DeletedGroups int64  `json:"deletedGroupsCount"`
	DeletedMedia  int64  `json:"deletedImagesCount"`
	Message       string `json:"message,omitempty"`
}

// GroupService 封装分组（目录树）领域逻辑。
// 设计目标：
// 1. Handler 不直接操作 Repository，避免协议层混入业务规则。
// 2. 统一错误语义，把底层 gorm/repository 错误转换为 service 哨兵错误。
// 3. 聚合层级物化、环检测、两阶段级联删除等“非纯 CRUD”的业务逻辑。
type GroupService interface {
	Create(name, rawSlug string, parentID *uint) (*model.Group, error)
	Update(id uint, name, rawSlug string, parentID *uint) (*model.Group, error)
	Delete(ctx context.Context, id uint) (*DeleteGroupResult, error)
	List() ([]model.Group, error)
	Tree(filter TreeFilter) ([]model.GroupNode, error)
	FindByID(id uint) (*model.Group, error)
}

type groupService struct {
	groupRepo   repository.GroupRepository
	mediaRepo   repository.MediaRepository
	productRepo repository.ProductRepository
	adRepo      repository.AdvertisementRepository
	pinner      Pinner
}

func NewGroupService(
	groupRepo repository.GroupRepository,
	mediaRepo repository.MediaRepository,
	productRepo repository.ProductRepository,
	adRepo repository.AdvertisementRepository,
	pinner Pinner,
) GroupService {
	return &groupService{
		groupRepo:   groupRepo,
		mediaRepo:   mediaRepo,
		productRepo: productRepo,
		adRepo:      adRepo,
		pinner:      pinner,
	}
}

// Create 创建分组。
// 关键规则：
// 1. name 去除首尾空白后至少 3 个字符。
// 2. slug 未提供时从 name 派生；提供时同样做一遍规范化（对合法值幂等）。
// 3. slug 冲突如实返回 ErrGroupSlugConflict，不做静默改名。
// 4. 指定 parentID 时父分组必须存在。
func (s *groupService) Create(name, rawSlug string, parentID *uint) (*model.Group, error) {
	if s.groupRepo == nil {
		return nil, ErrInternal
	}

	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) < 3 {
		return nil, fmt.Errorf("%w: group name must be at least 3 characters", ErrInvalidInput)
	}

	groupSlug, err := s.resolveSlug(name, rawSlug, 0)
	if err != nil {
		return nil, err
	}

	if parentID != nil {
		if _, err := s.groupRepo.FindByID(*parentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrGroupNotFound
			}
			return nil, err
		}
	}

	group := &model.Group{
		Name:     name,
		Slug:     groupSlug,
		ParentID: parentID,
	}
	if err := s.groupRepo.Create(group); err != nil {
		return nil, err
	}
	return group, nil
}

// Update 更新分组（改名和/或重新挂载）。
// 关键规则：
// 1. 目标分组必须存在。
// 2. parentID 允许置空（表示升为根节点）。
// 3. 新父节点不能是自己或自己的任何子孙（环检测）。
//    子孙集合在邻接结构上显式计算，不用 path 字符串匹配，
//    避免分隔符相关的边界问题。
// 4. 环检测失败时不落任何写操作，存储的层级保持原样。
func (s *groupService) Update(id uint, name, rawSlug string, parentID *uint) (*model.Group, error) {
	if s.groupRepo == nil {
		return nil, ErrInternal
	}

	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) < 3 {
		return nil, fmt.Errorf("%w: group name must be at least 3 characters", ErrInvalidInput)
	}

	group, err := s.FindByID(id)
	if err != nil {
		return nil, err
	}

	groupSlug, err := s.resolveSlug(name, rawSlug, id)
	if err != nil {
		return nil, err
	}

	if parentID != nil {
		if *parentID == id {
			return nil, ErrGroupCycle
		}
		if _, err := s.groupRepo.FindByID(*parentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrGroupNotFound
			}
			return nil, err
		}

		groups, err := s.groupRepo.FindAll()
		if err != nil {
			return nil, err
		}
		for _, descID := range subtreeIDs(groups, id) {
			if descID == *parentID {
				return nil, ErrGroupCycle
			}
		}
	}

	group.Name = name
	group.Slug = groupSlug
	group.ParentID = parentID

	if err := s.groupRepo.Update(group); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return group, nil
}

// Delete 级联删除整棵子树，两阶段执行：
// 1. 收集子树全部分组 id 和这些分组下的媒体（含视频缩略图的外部 id）。
// 2. 请求外部网关删除全部外部文件。
// 3. 仅当外部删除全部成功，才在一个事务里删除本地媒体行和分组行。
// 外部删除有任何失败就中止：数据库不动，返回 success=false 和可读消息。
// 这保护的是“本地记录指向已消失的外部内容”这类悬挂引用；
// 代价是外部服务抖动时本地数据原样保留，属于有意的取舍。
func (s *groupService) Delete(ctx context.Context, id uint) (*DeleteGroupResult, error) {
	if s.groupRepo == nil || s.mediaRepo == nil || s.pinner == nil {
		return nil, ErrInternal
	}
	if id == 0 {
		return nil, ErrInvalidInput
	}

	groups, err := s.groupRepo.FindAll()
	if err != nil {
		return nil, err
	}

	ids := subtreeIDs(groups, id)
	if len(ids) == 0 {
		return nil, ErrGroupNotFound
	}

	media, err := s.mediaRepo.FindByGroupIDs(ids)
	if err != nil {
		return nil, err
	}

	externalIDs := make([]string, 0, len(media))
	for _, m := range media {
		externalIDs = append(externalIDs, m.ID)
		if m.ThumbnailID != nil && *m.ThumbnailID != "" {
			externalIDs = append(externalIDs, *m.ThumbnailID)
		}
	}

	if len(externalIDs) > 0 {
		if err := s.pinner.Delete(ctx, externalIDs); err != nil {
			log.Warnf("GroupService.Delete: external deletion failed for group %d: %v", id, err)
			return &DeleteGroupResult{
				Success: false,
				Message: "Some pinned files could not be deleted from the gateway; " +
					"no groups or media were removed. Retry later or clean up the files " +
					"in the gateway dashboard first.",
			}, nil
		}
	}

	// 子在前、父在后的删除顺序
	deleteOrder := make([]uint, len(ids))
	for i, gid := range ids {
		deleteOrder[len(ids)-1-i] = gid
	}

	groupsDeleted, mediaDeleted, err := s.groupRepo.DeleteSubtree(deleteOrder)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}

	return &DeleteGroupResult{
		Success:       true,
		DeletedGroups: groupsDeleted,
		DeletedMedia:  mediaDeleted,
	}, nil
}

func (s *groupService) List() ([]model.Group, error) {
	if s.groupRepo == nil {
		return nil, ErrInternal
	}
	return s.groupRepo.FindAll()
}

// Tree 返回物化后的分组层级。
// filter 为 products / advertisements 时，只包含自身或任意子孙
// 携带对应标记的分组（自底向上计算入选集合）。
func (s *groupService) Tree(filter TreeFilter) ([]model.GroupNode, error) {
	if s.groupRepo == nil || s.mediaRepo == nil {
		return nil, ErrInternal
	}

	groups, err := s.groupRepo.FindAll()
	if err != nil {
		return nil, err
	}
	media, err := s.mediaRepo.FindAll()
	if err != nil {
		return nil, err
	}

	var include map[uint]bool
	switch filter {
	case TreeFilterAll, "":
		include = nil
	case TreeFilterProducts:
		if s.productRepo == nil {
			return nil, ErrInternal
		}
		products, err := s.productRepo.FindAll()
		if err != nil {
			return nil, err
		}
		tagged := make(map[uint]bool, len(products))
		for _, p := range products {
			tagged[p.GroupID] = true
		}
		include = qualifyingSet(groups, tagged)
	case TreeFilterAdvertisements:
		if s.adRepo == nil {
			return nil, ErrInternal
		}
		ads, err := s.adRepo.FindAll()
		if err != nil {
			return nil, err
		}
		tagged := make(map[uint]bool, len(ads))
		for _, a := range ads {
			tagged[a.GroupID] = true
		}
		include = qualifyingSet(groups, tagged)
	default:
		return nil, ErrInvalidInput
	}

	return materializeGroups(groups, media, include), nil
}

func (s *groupService) FindByID(id uint) (*model.Group, error) {
	if s.groupRepo == nil {
		return nil, ErrInternal
	}
	if id == 0 {
		return nil, ErrInvalidInput
	}

	group, err := s.groupRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}
	return group, nil
}

// resolveSlug 规范化并校验 slug 的唯一性。
// selfID 非 0 表示更新场景：允许 slug 与自身现值相同。
func (s *groupService) resolveSlug(name, rawSlug string, selfID uint) (string, error) {
	source := rawSlug
	if strings.TrimSpace(source) == "" {
		source = name
	}
	groupSlug := slug.Generate(source)
	if groupSlug == "" {
		return "", fmt.Errorf("%w: slug must contain at least one letter or digit", ErrInvalidInput)
	}

	existing, err := s.groupRepo.FindBySlug(groupSlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return groupSlug, nil
		}
		return "", err
	}
	if existing != nil && existing.ID != selfID {
		return "", ErrGroupSlugConflict
	}
	return groupSlug, nil
}
