package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"buy_for_real_go/internal/model"
	"buy_for_real_go/pkg/pinning"

	"gorm.io/gorm"
)

func strPtr(v string) *string { return &v }

func imageInput() CreateMediaInput {
	return CreateMediaInput{
		GroupID:     3,
		FileName:    "photo.jpg",
		ContentType: "image/jpeg",
		FileSize:    1024,
		File:        strings.NewReader("fake-image-bytes"),
	}
}

func TestMediaService_Create_Image(t *testing.T) {
	var stored *model.Media
	mediaRepo := &fakeMediaRepo{
		createFn: func(media *model.Media) error {
			stored = media
			return nil
		},
	}
	pinner := &fakePinner{}
	svc := NewMediaService(mediaRepo, &fakeGroupRepo{}, pinner, 10*1024)

	m, err := svc.Create(context.Background(), imageInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if m.ID != "pin-photo.jpg" {
		t.Fatalf("media id should be the gateway pin id, got %q", m.ID)
	}
	if m.URL != "https://gw.example/ipfs/cid-photo.jpg" {
		t.Fatalf("unexpected url: %q", m.URL)
	}
	if m.MediaType != model.MediaTypeImage || !m.IsActive {
		t.Fatalf("unexpected media: %+v", m)
	}
	if m.FileSize == nil || *m.FileSize != 1024 {
		t.Fatalf("unexpected file size: %v", m.FileSize)
	}
	if stored == nil {
		t.Fatalf("media row was not persisted")
	}
	if pinner.uploadCalls != 1 {
		t.Fatalf("expect exactly one upload, got %d", pinner.uploadCalls)
	}
}

func TestMediaService_Create_OversizedNeverReachesGateway(t *testing.T) {
	pinner := &fakePinner{}
	svc := NewMediaService(&fakeMediaRepo{}, &fakeGroupRepo{}, pinner, 100)

	in := imageInput()
	in.FileSize = 101

	_, err := svc.Create(context.Background(), in)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expect ErrFileTooLarge, got %v", err)
	}
	if pinner.uploadCalls != 0 {
		t.Fatalf("oversize rejection must happen before any external request")
	}
}

func TestMediaService_Create_GroupNotFound(t *testing.T) {
	pinner := &fakePinner{}
	groupRepo := &fakeGroupRepo{
		findByIDFn: func(id uint) (*model.Group, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	svc := NewMediaService(&fakeMediaRepo{}, groupRepo, pinner, 0)

	_, err := svc.Create(context.Background(), imageInput())
	if !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("expect ErrGroupNotFound, got %v", err)
	}
	if pinner.uploadCalls != 0 {
		t.Fatalf("missing group must be detected before any external request")
	}
}

func TestMediaService_Create_UploadFailure(t *testing.T) {
	mediaRepo := &fakeMediaRepo{
		createFn: func(media *model.Media) error {
			t.Fatalf("no local row may be written when the external upload fails")
			return nil
		},
	}
	pinner := &fakePinner{
		uploadFn: func(ctx context.Context, filename string, file io.Reader) (*pinning.PinResult, error) {
			return nil, errors.New("gateway down")
		},
	}
	svc := NewMediaService(mediaRepo, &fakeGroupRepo{}, pinner, 0)

	_, err := svc.Create(context.Background(), imageInput())
	if !errors.Is(err, ErrExternalService) {
		t.Fatalf("expect ErrExternalService, got %v", err)
	}
}

func TestMediaService_Create_VideoWithThumbnail(t *testing.T) {
	svc := NewMediaService(&fakeMediaRepo{}, &fakeGroupRepo{}, &fakePinner{}, 0)

	in := CreateMediaInput{
		GroupID:       3,
		FileName:      "clip.mp4",
		ContentType:   "video/mp4",
		FileSize:      2048,
		File:          strings.NewReader("fake-video-bytes"),
		ThumbnailName: "clip.jpg",
		Thumbnail:     strings.NewReader("fake-thumb-bytes"),
	}
	m, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if m.MediaType != model.MediaTypeVideo {
		t.Fatalf("expect video type, got %q", m.MediaType)
	}
	if m.ThumbnailID == nil || *m.ThumbnailID != "pin-clip.jpg" {
		t.Fatalf("unexpected thumbnail id: %v", m.ThumbnailID)
	}
	if m.ThumbnailURL == nil || *m.ThumbnailURL != "https://gw.example/ipfs/cid-clip.jpg" {
		t.Fatalf("unexpected thumbnail url: %v", m.ThumbnailURL)
	}
}

func TestMediaService_Create_ThumbnailFailureDegrades(t *testing.T) {
	calls := 0
	pinner := &fakePinner{}
	pinner.uploadFn = func(ctx context.Context, filename string, file io.Reader) (*pinning.PinResult, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("thumbnail upload failed")
		}
		return &pinning.PinResult{ID: "pin-main", CID: "cid-main"}, nil
	}
	svc := NewMediaService(&fakeMediaRepo{}, &fakeGroupRepo{}, pinner, 0)

	in := CreateMediaInput{
		GroupID:     3,
		FileName:    "clip.mp4",
		ContentType: "video/mp4",
		File:        strings.NewReader("fake-video-bytes"),
		Thumbnail:   strings.NewReader("fake-thumb-bytes"),
	}
	m, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("thumbnail failure must not fail the upload: %v", err)
	}
	if m.ThumbnailID != nil || m.ThumbnailURL != nil {
		t.Fatalf("degraded upload must have no thumbnail, got %+v", m)
	}
}

func TestMediaService_Delete_ExternalFirst(t *testing.T) {
	thumb := "pin-thumb"
	localDeleted := false
	mediaRepo := &fakeMediaRepo{
		findByIDFn: func(id string) (*model.Media, error) {
			return &model.Media{ID: id, ThumbnailID: &thumb}, nil
		},
		deleteFn: func(id string) error {
			localDeleted = true
			return nil
		},
	}
	var externalIDs []string
	pinner := &fakePinner{
		deleteFn: func(ctx context.Context, ids []string) error {
			if localDeleted {
				t.Fatalf("external deletion must run before the local delete")
			}
			externalIDs = ids
			return nil
		},
	}
	svc := NewMediaService(mediaRepo, &fakeGroupRepo{}, pinner, 0)

	if err := svc.Delete(context.Background(), "pin-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !localDeleted {
		t.Fatalf("local row was not deleted")
	}
	if len(externalIDs) != 2 || externalIDs[0] != "pin-1" || externalIDs[1] != "pin-thumb" {
		t.Fatalf("unexpected external ids: %v", externalIDs)
	}
}

func TestMediaService_Delete_ExternalFailureKeepsLocalRow(t *testing.T) {
	mediaRepo := &fakeMediaRepo{
		deleteFn: func(id string) error {
			t.Fatalf("local row must be kept when external deletion fails")
			return nil
		},
	}
	pinner := &fakePinner{
		deleteFn: func(ctx context.Context, ids []string) error {
			return errors.New("gateway timeout")
		},
	}
	svc := NewMediaService(mediaRepo, &fakeGroupRepo{}, pinner, 0)

	err := svc.Delete(context.Background(), "pin-1")
	if !errors.Is(err, ErrExternalService) {
		t.Fatalf("expect ErrExternalService, got %v", err)
	}
}

func TestMediaService_Update_PartialFields(t *testing.T) {
	var gotFields map[string]interface{}
	mediaRepo := &fakeMediaRepo{
		updateFieldsFn: func(id string, fields map[string]interface{}) error {
			gotFields = fields
			return nil
		},
	}
	svc := NewMediaService(mediaRepo, &fakeGroupRepo{}, &fakePinner{}, 0)

	if _, err := svc.Update("pin-1", UpdateMediaInput{Label: strPtr("front view")}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(gotFields) != 1 || gotFields["label"] != "front view" {
		t.Fatalf("unexpected fields: %v", gotFields)
	}
}

func TestMediaService_Update_NoFields(t *testing.T) {
	svc := NewMediaService(&fakeMediaRepo{}, &fakeGroupRepo{}, &fakePinner{}, 0)

	if _, err := svc.Update("pin-1", UpdateMediaInput{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expect ErrInvalidInput for empty update, got %v", err)
	}
}

func TestMediaService_ToggleActive(t *testing.T) {
	active := true
	mediaRepo := &fakeMediaRepo{
		findByIDFn: func(id string) (*model.Media, error) {
			return &model.Media{ID: id, IsActive: active}, nil
		},
		updateFieldsFn: func(id string, fields map[string]interface{}) error {
			v, ok := fields["is_active"].(bool)
			if !ok {
				t.Fatalf("expect is_active in fields, got %v", fields)
			}
			active = v
			return nil
		},
	}
	svc := NewMediaService(mediaRepo, &fakeGroupRepo{}, &fakePinner{}, 0)

	m, err := svc.ToggleActive("pin-1")
	if err != nil {
		t.Fatalf("ToggleActive() error = %v", err)
	}
	if m.IsActive {
		t.Fatalf("expect toggled to false, got %+v", m)
	}
}

func TestMediaService_FindByID_NotFound(t *testing.T) {
	mediaRepo := &fakeMediaRepo{
		findByIDFn: func(id string) (*model.Media, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	svc := NewMediaService(mediaRepo, &fakeGroupRepo{}, &fakePinner{}, 0)

	if _, err := svc.FindByID("missing"); !errors.Is(err, ErrMediaNotFound) {
		t.Fatalf("expect ErrMediaNotFound, got %v", err)
	}
}
