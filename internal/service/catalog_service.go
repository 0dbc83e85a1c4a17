package service

import (
	"errors"

	"buy_for_real_go/internal/model"
	"buy_for_real_go/internal/repository"

	"gorm.io/gorm"
)

// CatalogService 管理商品/广告标记行。
// 标记行只携带 groupID 和 isActive：它存在的意义是把分组
// 归入“商品分组”或“广告分组”过滤视图（见 GroupService.Tree）。
type CatalogService interface {
	ListProducts() ([]model.Product, error)
	CreateProduct(groupID uint) (*model.Product, error)
	DeleteProduct(id uint) error
	ToggleProductActive(id uint) (*model.Product, error)

	ListAdvertisements() ([]model.Advertisement, error)
	CreateAdvertisement(groupID uint) (*model.Advertisement, error)
	DeleteAdvertisement(id uint) error
	ToggleAdvertisementActive(id uint) (*model.Advertisement, error)
}

type catalogService struct {
	productRepo repository.ProductRepository
	adRepo      repository.AdvertisementRepository
	groupRepo   repository.GroupRepository
}

func NewCatalogService(
	productRepo repository.ProductRepository,
	adRepo repository.AdvertisementRepository,
	groupRepo repository.GroupRepository,
) CatalogService {
	return &catalogService{
		productRepo: productRepo,
		adRepo:      adRepo,
		groupRepo:   groupRepo,
	}
}

func (s *catalogService) ListProducts() ([]model.Product, error) {
	if s.productRepo == nil {
		return nil, ErrInternal
	}
	return s.productRepo.FindAll()
}

// CreateProduct 给分组打商品标记。分组必须存在，避免悬挂引用。
func (s *catalogService) CreateProduct(groupID uint) (*model.Product, error) {
	if s.productRepo == nil || s.groupRepo == nil {
		return nil, ErrInternal
	}
	if groupID == 0 {
		return nil, ErrInvalidInput
	}

	if _, err := s.groupRepo.FindByID(groupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}

	product := &model.Product{GroupID: groupID, IsActive: true}
	if err := s.productRepo.Create(product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *catalogService) DeleteProduct(id uint) error {
	if s.productRepo == nil {
		return ErrInternal
	}
	if id == 0 {
		return ErrInvalidInput
	}

	if err := s.productRepo.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}
	return nil
}

func (s *catalogService) ToggleProductActive(id uint) (*model.Product, error) {
	if s.productRepo == nil {
		return nil, ErrInternal
	}
	if id == 0 {
		return nil, ErrInvalidInput
	}

	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	if err := s.productRepo.UpdateActive(id, !product.IsActive); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	product.IsActive = !product.IsActive
	return product, nil
}

func (s *catalogService) ListAdvertisements() ([]model.Advertisement, error) {
	if s.adRepo == nil {
		return nil, ErrInternal
	}
	return s.adRepo.FindAll()
}

// CreateAdvertisement 给分组打广告标记，规则与 CreateProduct 一致。
func (s *catalogService) CreateAdvertisement(groupID uint) (*model.Advertisement, error) {
	if s.adRepo == nil || s.groupRepo == nil {
		return nil, ErrInternal
	}
	if groupID == 0 {
		return nil, ErrInvalidInput
	}

	if _, err := s.groupRepo.FindByID(groupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}

	ad := &model.Advertisement{GroupID: groupID, IsActive: true}
	if err := s.adRepo.Create(ad); err != nil {
		return nil, err
	}
	return ad, nil
}

func (s *catalogService) DeleteAdvertisement(id uint) error {
	if s.adRepo == nil {
		return ErrInternal
	}
	if id == 0 {
		return ErrInvalidInput
	}

	if err := s.adRepo.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAdvertisementNotFound
		}
		return err
	}
	return nil
}

func (s *catalogService) ToggleAdvertisementActive(id uint) (*model.Advertisement, error) {
	if s.adRepo == nil {
		return nil, ErrInternal
	}
	if id == 0 {
		return nil, ErrInvalidInput
	}

	ad, err := s.adRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdvertisementNotFound
		}
		return nil, err
	}

	if err := s.adRepo.UpdateActive(id, !ad.IsActive); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdvertisementNotFound
		}
		return nil, err
	}
	ad.IsActive = !ad.IsActive
	return ad, nil
}
