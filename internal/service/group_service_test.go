package service

import (
	"context"
	"errors"
	"testing"

	"buy_for_real_go/internal/model"

	"gorm.io/gorm"
)

func TestGroupService_Create_Success(t *testing.T) {
	var created *model.Group
	repo := &fakeGroupRepo{
		findBySlugFn: func(slug string) (*model.Group, error) {
			return nil, gorm.ErrRecordNotFound
		},
		createFn: func(group *model.Group) error {
			group.ID = 10
			created = group
			return nil
		},
	}
	svc := NewGroupService(repo, &fakeMediaRepo{}, &fakeProductRepo{}, &fakeAdRepo{}, &fakePinner{})

	g, err := svc.Create("Vacation Photos!", "", nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if g.ID != 10 || g.Slug != "vacation-photos" {
		t.Fatalf("unexpected group: %+v", g)
	}
	if created == nil {
		t.Fatalf("repo.Create was not called")
	}
}

func TestGroupService_Create_NameTooShort(t *testing.T) {
	repo := &fakeGroupRepo{
		createFn: func(group *model.Group) error {
			t.Fatalf("Create must not reach the repository for invalid names")
			return nil
		},
	}
	svc := NewGroupService(repo, &fakeMediaRepo{}, &fakeProductRepo{}, &fakeAdRepo{}, &fakePinner{})

	_, err := svc.Create("  ab  ", "", nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expect ErrInvalidInput, got %v", err)
	}
}

func TestGroupService_Create_SlugConflict(t *testing.T) {
	repo := &fakeGroupRepo{
		findBySlugFn: func(slug string) (*model.Group, error) {
			return &model.Group{ID: 3, Slug: slug}, nil
		},
	}
	svc := NewGroupService(repo, &fakeMediaRepo{}, &fakeProductRepo{}, &fakeAdRepo{}, &fakePinner{})

	_, err := svc.Create("Phones", "", nil)
	if !errors.Is(err, ErrGroupSlugConflict) {
		t.Fatalf("expect ErrGroupSlugConflict, got %v", err)
	}
}

func TestGroupService_Create_ParentNotFound(t *testing.T) {
	repo := &fakeGroupRepo{
		findBySlugFn: func(slug string) (*model.Group, error) {
			return nil, gorm.ErrRecordNotFound
		},
		findByIDFn: func(id uint) (*model.Group, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	svc := NewGroupService(repo, &fakeMediaRepo{}, &fakeProductRepo{}, &fakeAdRepo{}, &fakePinner{})

	_, err := svc.Create("Phones", "", uintPtr(99))
	if !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("expect ErrGroupNotFound, got %v", err)
	}
}

func TestGroupService_Update_SlugKeptOnSelf(t *testing.T) {
	repo := &fakeGroupRepo{
		findByIDFn: func(id uint) (*model.Group, error) {
			return &model.Group{ID: id, Name: "Phones", Slug: "phones"}, nil
		},
		findBySlugFn: func(slug string) (*model.Group, error) {
			// 同名 slug 属于自己，不算冲突
			return &model.Group{ID: 3, Slug: slug}, nil
		},
	}
	svc := NewGroupService(repo, &fakeMediaRepo{}, &fakeProductRepo{}, &fakeAdRepo{}, &fakePinner{})

	g, err := svc.Update(3, "Phones", "phones", nil)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if g.Slug != "phones" {
		t.Fatalf("unexpected slug: %q", g.Slug)
	}
}

func TestGroupService_Update_SelfParentRejected(t *testing.T) {
	repo := &fakeGroupRepo{
		findByIDFn: func(id uint) (*model.Group, error) {
			return &model.Group{ID: id, Name: "Phones", Slug: "phones"}, nil
		},
		findBySlugFn: func(slug string) (*model.Group, error) {
			return nil, gorm.ErrRecordNotFound
		},
		updateFn: func(group *model.Group) error {
			t.Fatalf("cycle must be rejected before any write")
			return nil
		},
	}
	svc := NewGroupService(repo, &fakeMediaRepo{}, &fakeProductRepo{}, &fakeAdRepo{}, &fakePinner{})

	_, err := svc.Update(3, "Phones", "", uintPtr(3))
	if !errors.Is(err, ErrGroupCycle) {
		t.Fatalf("expect ErrGroupCycle, got %v", err)
	}
}

func TestGroupService_Update_DescendantParentRejected(t *testing.T) {
	// 1 -> 3 -> 5，尝试把 1 挂到自己的孙子 5 下面
	updateCalled := false
	repo := &fakeGroupRepo{
		findByIDFn: func(id uint) (*model.Group, error) {
			for _, g := range sampleGroups() {
				if g.ID == id {
					out := g
					return &out, nil
				}
			}
			return nil, gorm.ErrRecordNotFound
		},
		findBySlugFn: func(slug string) (*model.Group, error) {
			return nil, gorm.ErrRecordNotFound
		},
		findAllFn: func() ([]model.Group, error) {
			return sampleGroups(), nil
		},
		updateFn: func(group *model.Group) error {
			updateCalled = true
			return nil
		},
	}
	svc := NewGroupService(repo, &fakeMediaRepo{}, &fakeProductRepo{}, &fakeAdRepo{}, &fakePinner{})

	_, err := svc.Update(1, "Electronics", "", uintPtr(5))
	if !errors.Is(err, ErrGroupCycle) {
		t.Fatalf("expect ErrGroupCycle, got %v", err)
	}
	if updateCalled {
		t.Fatalf("rejected cycle must leave the store untouched")
	}
}

func TestGroupService_Update_ReparentToSiblingSubtree(t *testing.T) {
	// 把 4 (laptops) 挂到 3 (phones) 下是合法的
	repo := &fakeGroupRepo{
		findByIDFn: func(id uint) (*model.Group, error) {
			for _, g := range sampleGroups() {
				if g.ID == id {
					out := g
					return &out, nil
				}
			}
			return nil, gorm.ErrRecordNotFound
		},
		findBySlugFn: func(slug string) (*model.Group, error) {
			return nil, gorm.ErrRecordNotFound
		},
		findAllFn: func() ([]model.Group, error) {
			return sampleGroups(), nil
		},
	}
	svc := NewGroupService(repo, &fakeMediaRepo{}, &fakeProductRepo{}, &fakeAdRepo{}, &fakePinner{})

	g, err := svc.Update(4, "Laptops", "", uintPtr(3))
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if g.ParentID == nil || *g.ParentID != 3 {
		t.Fatalf("unexpected parent: %+v", g.ParentID)
	}
}

func TestGroupService_Delete_AbortsOnExternalFailure(t *testing.T) {
	thumb := "pin-thumb"
	deleteSubtreeCalled := false
	repo := &fakeGroupRepo{
		findAllFn: func() ([]model.Group, error) {
			return sampleGroups(), nil
		},
		deleteSubtreeFn: func(groupIDs []uint) (int64, int64, error) {
			deleteSubtreeCalled = true
			return 0, 0, nil
		},
	}
	mediaRepo := &fakeMediaRepo{
		findByGroupIDsFn: func(groupIDs []uint) ([]model.Media, error) {
			return []model.Media{
				{ID: "pin-1", GroupID: 3},
				{ID: "pin-2", GroupID: 5, ThumbnailID: &thumb},
			}, nil
		},
	}
	pinner := &fakePinner{
		deleteFn: func(ctx context.Context, ids []string) error {
			if len(ids) != 3 {
				t.Fatalf("expect 3 external ids (2 media + 1 thumbnail), got %v", ids)
			}
			return errors.New("gateway timeout")
		},
	}
	svc := NewGroupService(repo, mediaRepo, &fakeProductRepo{}, &fakeAdRepo{}, pinner)

	res, err := svc.Delete(context.Background(), 1)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if res.Success {
		t.Fatalf("expect success=false on external failure")
	}
	if res.Message == "" {
		t.Fatalf("expect actionable message on external failure")
	}
	if deleteSubtreeCalled {
		t.Fatalf("database must be untouched when external deletion fails")
	}
}

func TestGroupService_Delete_ChildFirstOrder(t *testing.T) {
	var gotOrder []uint
	repo := &fakeGroupRepo{
		findAllFn: func() ([]model.Group, error) {
			return sampleGroups(), nil
		},
		deleteSubtreeFn: func(groupIDs []uint) (int64, int64, error) {
			gotOrder = groupIDs
			return int64(len(groupIDs)), 2, nil
		},
	}
	mediaRepo := &fakeMediaRepo{
		findByGroupIDsFn: func(groupIDs []uint) ([]model.Media, error) {
			return []model.Media{{ID: "pin-1", GroupID: 3}, {ID: "pin-2", GroupID: 5}}, nil
		},
	}
	svc := NewGroupService(repo, mediaRepo, &fakeProductRepo{}, &fakeAdRepo{}, &fakePinner{})

	res, err := svc.Delete(context.Background(), 1)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !res.Success || res.DeletedGroups != 4 || res.DeletedMedia != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}

	pos := make(map[uint]int, len(gotOrder))
	for i, id := range gotOrder {
		pos[id] = i
	}
	for _, g := range sampleGroups() {
		if g.ParentID == nil {
			continue
		}
		ci, cok := pos[g.ID]
		pi, pok := pos[*g.ParentID]
		if cok && pok && ci > pi {
			t.Fatalf("parent %d deleted before child %d: %v", *g.ParentID, g.ID, gotOrder)
		}
	}
}

func TestGroupService_Delete_NotFound(t *testing.T) {
	repo := &fakeGroupRepo{
		findAllFn: func() ([]model.Group, error) {
			return sampleGroups(), nil
		},
	}
	svc := NewGroupService(repo, &fakeMediaRepo{}, &fakeProductRepo{}, &fakeAdRepo{}, &fakePinner{})

	_, err := svc.Delete(context.Background(), 42)
	if !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("expect ErrGroupNotFound, got %v", err)
	}
}

func TestGroupService_Delete_NoMediaSkipsGateway(t *testing.T) {
	pinner := &fakePinner{}
	repo := &fakeGroupRepo{
		findAllFn: func() ([]model.Group, error) {
			return []model.Group{{ID: 2, Name: "Clothing", Slug: "clothing"}}, nil
		},
	}
	svc := NewGroupService(repo, &fakeMediaRepo{}, &fakeProductRepo{}, &fakeAdRepo{}, pinner)

	res, err := svc.Delete(context.Background(), 2)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !res.Success {
		t.Fatalf("expect success, got %+v", res)
	}
	if pinner.deleteCalls != 0 {
		t.Fatalf("gateway must not be called when the subtree has no media")
	}
}

func TestGroupService_Tree_ProductFilter(t *testing.T) {
	repo := &fakeGroupRepo{
		findAllFn: func() ([]model.Group, error) {
			return sampleGroups(), nil
		},
	}
	productRepo := &fakeProductRepo{
		findAllFn: func() ([]model.Product, error) {
			return []model.Product{{ID: 1, GroupID: 5, IsActive: true}}, nil
		},
	}
	svc := NewGroupService(repo, &fakeMediaRepo{}, productRepo, &fakeAdRepo{}, &fakePinner{})

	nodes, err := svc.Tree(TreeFilterProducts)
	if err != nil {
		t.Fatalf("Tree() error = %v", err)
	}
	var ids []uint
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 3 || ids[2] != 5 {
		t.Fatalf("filtered tree ids = %v, want [1 3 5]", ids)
	}
}

func TestGroupService_Tree_UnknownFilter(t *testing.T) {
	svc := NewGroupService(&fakeGroupRepo{}, &fakeMediaRepo{}, &fakeProductRepo{}, &fakeAdRepo{}, &fakePinner{})

	if _, err := svc.Tree(TreeFilter("bogus")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expect ErrInvalidInput, got %v", err)
	}
}

func TestParseTreeFilter(t *testing.T) {
	cases := []struct {
		raw     string
		want    TreeFilter
		wantErr bool
	}{
		{"", TreeFilterAll, false},
		{"all", TreeFilterAll, false},
		{" Products ", TreeFilterProducts, false},
		{"ADVERTISEMENTS", TreeFilterAdvertisements, false},
		{"bogus", "", true},
	}
	for _, c := range cases {
		got, err := ParseTreeFilter(c.raw)
		if c.wantErr {
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("ParseTreeFilter(%q) expect ErrInvalidInput, got %v", c.raw, err)
			}
			continue
		}
		if err != nil || got != c.want {
			t.Fatalf("ParseTreeFilter(%q) = %v, %v; want %v", c.raw, got, err, c.want)
		}
	}
}
