package repository

import (
	"fmt"

	"buy_for_real_go/internal/model"

	"gorm.io/gorm"
)

// GroupRepository 定义分组（目录树节点）的持久化操作接口。
// 分组是树形结构，通过 ParentID 实现父子关系。
// 树相关的业务规则（环检测、子孙收集、物化）都在 Service 层，
// 仓库层只负责行级别的读写和删除事务。
type GroupRepository interface {
	Create(group *model.Group) error
	FindAll() ([]model.Group, error)
	FindByID(id uint) (*model.Group, error)
	FindBySlug(slug string) (*model.Group, error)
	// Update 更新分组信息（name, slug, parent_id）
	Update(group *model.Group) error

	// DeleteSubtree 在一个事务里删除整棵子树：
	// 先删除这些分组下的全部媒体记录，再按调用方给定的顺序逐个删除分组行。
	// 调用方必须保证 groupIDs 按“子在前、父在后”排列。
	// 返回实际删除的分组数和媒体数。
	DeleteSubtree(groupIDs []uint) (groupsDeleted int64, mediaDeleted int64, err error)
}

// groupRepository 分组仓库实现
type groupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) Create(group *model.Group) error {
	if group == nil {
		return fmt.Errorf("group is nil")
	}
	if group.Name == "" {
		return fmt.Errorf("group name is required")
	}
	return r.db.Create(group).Error
}

func (r *groupRepository) FindAll() ([]model.Group, error) {
	var groups []model.Group
	if err := r.db.Order("id ASC").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *groupRepository) FindByID(id uint) (*model.Group, error) {
	if id == 0 {
		return nil, fmt.Errorf("group id is required")
	}

	var group model.Group
	if err := r.db.Where("id = ?", id).First(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *groupRepository) FindBySlug(slug string) (*model.Group, error) {
	if slug == "" {
		return nil, fmt.Errorf("group slug is required")
	}

	var group model.Group
	if err := r.db.Where("slug = ?", slug).First(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// Update 更新分组的 name、slug、parent_id 字段。
// 使用 Select 限定只更新这三个字段，避免零值覆盖其他字段。
// parent_id 在 Select 里显式列出，否则置空（重新挂为根节点）不会生效。
// 如果 ID 不存在，返回 gorm.ErrRecordNotFound。
func (r *groupRepository) Update(group *model.Group) error {
	if group == nil {
		return fmt.Errorf("group is nil")
	}
	if group.ID == 0 {
		return fmt.Errorf("group id is required")
	}

	tx := r.db.Model(&model.Group{}).
		Where("id = ?", group.ID).
		Select("name", "slug", "parent_id").
		Updates(group)

	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteSubtree 删除一棵子树的全部分组行及其关联行。
// 级联不依赖数据库外键，整个过程在一个事务里显式完成：
// 先删媒体行和商品/广告标记行（都通过 group_id 指向分组），
// 最后按传入顺序逐个删除分组，保证“子先于父”的删除顺序。
// 返回的计数只包含分组和媒体（对外结果的口径），标记行不计数。
func (r *groupRepository) DeleteSubtree(groupIDs []uint) (int64, int64, error) {
	if len(groupIDs) == 0 {
		return 0, 0, fmt.Errorf("group ids are required")
	}

	var groupsDeleted, mediaDeleted int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("group_id IN ?", groupIDs).Delete(&model.Media{})
		if res.Error != nil {
			return res.Error
		}
		mediaDeleted = res.RowsAffected

		if err := tx.Where("group_id IN ?", groupIDs).Delete(&model.Product{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id IN ?", groupIDs).Delete(&model.Advertisement{}).Error; err != nil {
			return err
		}

		for _, id := range groupIDs {
			res := tx.Where("id = ?", id).Delete(&model.Group{})
			if res.Error != nil {
				return res.Error
			}
			groupsDeleted += res.RowsAffected
		}
		if groupsDeleted == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return groupsDeleted, mediaDeleted, nil
}
