package repository

import (
	"fmt"

	"buy_for_real_go/internal/model"

	"gorm.io/gorm"
)

// ProductRepository 定义商品标记行的持久化操作接口。
// 商品只是指向分组的轻量标记，过滤树视图依据它计算。
type ProductRepository interface {
	Create(product *model.Product) error
	FindAll() ([]model.Product, error)
	FindByID(id uint) (*model.Product, error)
	UpdateActive(id uint, active bool) error
	Delete(id uint) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(product *model.Product) error {
	if product == nil {
		return fmt.Errorf("product is nil")
	}
	if product.GroupID == 0 {
		return fmt.Errorf("product group id is required")
	}
	return r.db.Create(product).Error
}

func (r *productRepository) FindAll() ([]model.Product, error) {
	var products []model.Product
	if err := r.db.Order("id ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) FindByID(id uint) (*model.Product, error) {
	if id == 0 {
		return nil, fmt.Errorf("product id is required")
	}

	var product model.Product
	if err := r.db.Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) UpdateActive(id uint, active bool) error {
	if id == 0 {
		return fmt.Errorf("product id is required")
	}

	tx := r.db.Model(&model.Product{}).
		Where("id = ?", id).
		Update("is_active", active)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *productRepository) Delete(id uint) error {
	if id == 0 {
		return fmt.Errorf("product id is required")
	}

	res := r.db.Where("id = ?", id).Delete(&model.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AdvertisementRepository 定义广告标记行的持久化操作接口。
// 形态与 ProductRepository 完全一致，只是落在 advertisements 表。
type AdvertisementRepository interface {
	Create(ad *model.Advertisement) error
	FindAll() ([]model.Advertisement, error)
	FindByID(id uint) (*model.Advertisement, error)
	UpdateActive(id uint, active bool) error
	Delete(id uint) error
}

type advertisementRepository struct {
	db *gorm.DB
}

func NewAdvertisementRepository(db *gorm.DB) AdvertisementRepository {
	return &advertisementRepository{db: db}
}

func (r *advertisementRepository) Create(ad *model.Advertisement) error {
	if ad == nil {
		return fmt.Errorf("advertisement is nil")
	}
	if ad.GroupID == 0 {
		return fmt.Errorf("advertisement group id is required")
	}
	return r.db.Create(ad).Error
}

func (r *advertisementRepository) FindAll() ([]model.Advertisement, error) {
	var ads []model.Advertisement
	if err := r.db.Order("id ASC").Find(&ads).Error; err != nil {
		return nil, err
	}
	return ads, nil
}

func (r *advertisementRepository) FindByID(id uint) (*model.Advertisement, error) {
	if id == 0 {
		return nil, fmt.Errorf("advertisement id is required")
	}

	var ad model.Advertisement
	if err := r.db.Where("id = ?", id).First(&ad).Error; err != nil {
		return nil, err
	}
	return &ad, nil
}

func (r *advertisementRepository) UpdateActive(id uint, active bool) error {
	if id == 0 {
		return fmt.Errorf("advertisement id is required")
	}

	tx := r.db.Model(&model.Advertisement{}).
		Where("id = ?", id).
		Update("is_active", active)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *advertisementRepository) Delete(id uint) error {
	if id == 0 {
		return fmt.Errorf("advertisement id is required")
	}

	res := r.db.Where("id = ?", id).Delete(&model.Advertisement{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
