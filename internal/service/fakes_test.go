package service

import (
	"context"
	"io"

	"buy_for_real_go/internal/model"
	"buy_for_real_go/pkg/pinning"
	"buy_for_real_go/pkg/vision"
)

// 本文件集中定义 service 层测试用的 fake。
// fake 的风格：结构体 + 可选函数字段，未设置的方法返回零值。

type fakeGroupRepo struct {
	createFn        func(group *model.Group) error
	findAllFn       func() ([]model.Group, error)
	findByIDFn      func(id uint) (*model.Group, error)
	findBySlugFn    func(slug string) (*model.Group, error)
	updateFn        func(group *model.Group) error
	deleteSubtreeFn func(groupIDs []uint) (int64, int64, error)
}

func (f *fakeGroupRepo) Create(group *model.Group) error {
	if f.createFn != nil {
		return f.createFn(group)
	}
	return nil
}

func (f *fakeGroupRepo) FindAll() ([]model.Group, error) {
	if f.findAllFn != nil {
		return f.findAllFn()
	}
	return []model.Group{}, nil
}

func (f *fakeGroupRepo) FindByID(id uint) (*model.Group, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(id)
	}
	return &model.Group{ID: id}, nil
}

func (f *fakeGroupRepo) FindBySlug(slug string) (*model.Group, error) {
	if f.findBySlugFn != nil {
		return f.findBySlugFn(slug)
	}
	return nil, nil
}

func (f *fakeGroupRepo) Update(group *model.Group) error {
	if f.updateFn != nil {
		return f.updateFn(group)
	}
	return nil
}

func (f *fakeGroupRepo) DeleteSubtree(groupIDs []uint) (int64, int64, error) {
	if f.deleteSubtreeFn != nil {
		return f.deleteSubtreeFn(groupIDs)
	}
	return int64(len(groupIDs)), 0, nil
}

type fakeMediaRepo struct {
	createFn         func(media *model.Media) error
	findAllFn        func() ([]model.Media, error)
	findByIDFn       func(id string) (*model.Media, error)
	findByGroupIDsFn func(groupIDs []uint) ([]model.Media, error)
	updateFieldsFn   func(id string, fields map[string]interface{}) error
	deleteFn         func(id string) error
}

func (f *fakeMediaRepo) Create(media *model.Media) error {
	if f.createFn != nil {
		return f.createFn(media)
	}
	return nil
}

func (f *fakeMediaRepo) FindAll() ([]model.Media, error) {
	if f.findAllFn != nil {
		return f.findAllFn()
	}
	return []model.Media{}, nil
}

func (f *fakeMediaRepo) FindByID(id string) (*model.Media, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(id)
	}
	return &model.Media{ID: id}, nil
}

func (f *fakeMediaRepo) FindByGroupIDs(groupIDs []uint) ([]model.Media, error) {
	if f.findByGroupIDsFn != nil {
		return f.findByGroupIDsFn(groupIDs)
	}
	return []model.Media{}, nil
}

func (f *fakeMediaRepo) UpdateFields(id string, fields map[string]interface{}) error {
	if f.updateFieldsFn != nil {
		return f.updateFieldsFn(id, fields)
	}
	return nil
}

func (f *fakeMediaRepo) Delete(id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(id)
	}
	return nil
}

type fakeProductRepo struct {
	createFn       func(product *model.Product) error
	findAllFn      func() ([]model.Product, error)
	findByIDFn     func(id uint) (*model.Product, error)
	updateActiveFn func(id uint, active bool) error
	deleteFn       func(id uint) error
}

func (f *fakeProductRepo) Create(product *model.Product) error {
	if f.createFn != nil {
		return f.createFn(product)
	}
	return nil
}

func (f *fakeProductRepo) FindAll() ([]model.Product, error) {
	if f.findAllFn != nil {
		return f.findAllFn()
	}
	return []model.Product{}, nil
}

func (f *fakeProductRepo) FindByID(id uint) (*model.Product, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(id)
	}
	return &model.Product{ID: id}, nil
}

func (f *fakeProductRepo) UpdateActive(id uint, active bool) error {
	if f.updateActiveFn != nil {
		return f.updateActiveFn(id, active)
	}
	return nil
}

func (f *fakeProductRepo) Delete(id uint) error {
	if f.deleteFn != nil {
		return f.deleteFn(id)
	}
	return nil
}

type fakeAdRepo struct {
	createFn       func(ad *model.Advertisement) error
	findAllFn      func() ([]model.Advertisement, error)
	findByIDFn     func(id uint) (*model.Advertisement, error)
	updateActiveFn func(id uint, active bool) error
	deleteFn       func(id uint) error
}

func (f *fakeAdRepo) Create(ad *model.Advertisement) error {
	if f.createFn != nil {
		return f.createFn(ad)
	}
	return nil
}

func (f *fakeAdRepo) FindAll() ([]model.Advertisement, error) {
	if f.findAllFn != nil {
		return f.findAllFn()
	}
	return []model.Advertisement{}, nil
}

func (f *fakeAdRepo) FindByID(id uint) (*model.Advertisement, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(id)
	}
	return &model.Advertisement{ID: id}, nil
}

func (f *fakeAdRepo) UpdateActive(id uint, active bool) error {
	if f.updateActiveFn != nil {
		return f.updateActiveFn(id, active)
	}
	return nil
}

func (f *fakeAdRepo) Delete(id uint) error {
	if f.deleteFn != nil {
		return f.deleteFn(id)
	}
	return nil
}

// fakePinner 记录调用次数，便于断言“本地校验失败时没有发起外部请求”。
type fakePinner struct {
	uploadFn    func(ctx context.Context, filename string, file io.Reader) (*pinning.PinResult, error)
	deleteFn    func(ctx context.Context, ids []string) error
	uploadCalls int
	deleteCalls int
}

func (f *fakePinner) Upload(ctx context.Context, filename string, file io.Reader) (*pinning.PinResult, error) {
	f.uploadCalls++
	if f.uploadFn != nil {
		return f.uploadFn(ctx, filename, file)
	}
	return &pinning.PinResult{ID: "pin-" + filename, CID: "cid-" + filename}, nil
}

func (f *fakePinner) GatewayURL(cid string) string {
	return "https://gw.example/ipfs/" + cid
}

func (f *fakePinner) Delete(ctx context.Context, ids []string) error {
	f.deleteCalls++
	if f.deleteFn != nil {
		return f.deleteFn(ctx, ids)
	}
	return nil
}

type fakeDetector struct {
	detectFn    func(ctx context.Context, filename string, image []byte, prompt string) ([]vision.Detection, error)
	detectCalls int
}

func (f *fakeDetector) Detect(ctx context.Context, filename string, image []byte, prompt string) ([]vision.Detection, error) {
	f.detectCalls++
	if f.detectFn != nil {
		return f.detectFn(ctx, filename, image, prompt)
	}
	return []vision.Detection{}, nil
}
