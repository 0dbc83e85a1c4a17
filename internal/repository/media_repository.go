package repository

import (
	"fmt"

	"buy_for_real_go/internal/model"

	"gorm.io/gorm"
)

// MediaRepository 定义媒体记录的持久化操作接口。
// 媒体主键是外部 pinning 网关分配的字符串 id；
// “先外部后本地”的两阶段写入/删除约束由 Service 层保证，这里只做行操作。
type MediaRepository interface {
	Create(media *model.Media) error
	FindAll() ([]model.Media, error)
	FindByID(id string) (*model.Media, error)
	FindByGroupIDs(groupIDs []uint) ([]model.Media, error)
	// UpdateFields 部分更新：只写入 fields 里出现的列。
	UpdateFields(id string, fields map[string]interface{}) error
	Delete(id string) error
}

// mediaRepository 媒体仓库实现
type mediaRepository struct {
	db *gorm.DB
}

func NewMediaRepository(db *gorm.DB) MediaRepository {
	return &mediaRepository{db: db}
}

func (r *mediaRepository) Create(media *model.Media) error {
	if media == nil {
		return fmt.Errorf("media is nil")
	}
	if media.ID == "" {
		return fmt.Errorf("media id is required")
	}
	if media.GroupID == 0 {
		return fmt.Errorf("media group id is required")
	}
	return r.db.Create(media).Error
}

func (r *mediaRepository) FindAll() ([]model.Media, error) {
	var media []model.Media
	if err := r.db.Order("created_at ASC").Find(&media).Error; err != nil {
		return nil, err
	}
	return media, nil
}

func (r *mediaRepository) FindByID(id string) (*model.Media, error) {
	if id == "" {
		return nil, fmt.Errorf("media id is required")
	}

	var media model.Media
	if err := r.db.Where("id = ?", id).First(&media).Error; err != nil {
		return nil, err
	}
	return &media, nil
}

func (r *mediaRepository) FindByGroupIDs(groupIDs []uint) ([]model.Media, error) {
	if len(groupIDs) == 0 {
		return []model.Media{}, nil
	}

	var media []model.Media
	if err := r.db.Where("group_id IN ?", groupIDs).Find(&media).Error; err != nil {
		return nil, err
	}
	return media, nil
}

// UpdateFields 使用 map 执行部分更新，避免结构体零值的歧义。
// 如果 id 不存在，返回 gorm.ErrRecordNotFound。
func (r *mediaRepository) UpdateFields(id string, fields map[string]interface{}) error {
	if id == "" {
		return fmt.Errorf("media id is required")
	}
	if len(fields) == 0 {
		return fmt.Errorf("no fields to update")
	}

	tx := r.db.Model(&model.Media{}).
		Where("id = ?", id).
		Updates(fields)

	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *mediaRepository) Delete(id string) error {
	if id == "" {
		return fmt.Errorf("media id is required")
	}

	res := r.db.Where("id = ?", id).Delete(&model.Media{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
