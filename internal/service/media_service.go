package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"buy_for_real_go/internal/model"
	"buy_for_real_go/internal/repository"
	"buy_for_real_go/pkg/log"

	"gorm.io/gorm"
)

// CreateMediaInput 是一次媒体上传的全部输入。
// Thumbnail* 字段只在视频上传时出现（前端抽帧后作为第二个文件上传），
// ThumbnailReader 为 nil 表示没有缩略图。
type CreateMediaInput struct {
	GroupID     uint
	FileName    string
	ContentType string
	FileSize    int64
	File        io.Reader
	Label       *string
	Description *string
	Width       *int
	Height      *int

	ThumbnailName string
	Thumbnail     io.Reader
}

// UpdateMediaInput 是媒体记录的部分更新：nil 字段保持原值。
type UpdateMediaInput struct {
	Label       *string
	Description *string
	IsActive    *bool
}

// MediaService 封装媒体领域逻辑。
// 核心约束是和外部 pinning 网关的两阶段纪律：
// 创建时“先外部上传、后本地落库”，删除时“先外部删除、后本地删除”。
// 两个方向都保证本地行不会指向从未/不再存在的外部内容；
// 反向的孤儿（外部有、本地无）是接受的不一致，只记日志。
type MediaService interface {
	Create(ctx context.Context, in CreateMediaInput) (*model.Media, error)
	Update(id string, in UpdateMediaInput) (*model.Media, error)
	Delete(ctx context.Context, id string) error
	ToggleActive(id string) (*model.Media, error)
	List() ([]model.Media, error)
	FindByID(id string) (*model.Media, error)
}

type mediaService struct {
	mediaRepo      repository.MediaRepository
	groupRepo      repository.GroupRepository
	pinner         Pinner
	maxUploadBytes int64
}

func NewMediaService(
	mediaRepo repository.MediaRepository,
	groupRepo repository.GroupRepository,
	pinner Pinner,
	maxUploadBytes int64,
) MediaService {
	return &mediaService{
		mediaRepo:      mediaRepo,
		groupRepo:      groupRepo,
		pinner:         pinner,
		maxUploadBytes: maxUploadBytes,
	}
}

// Create 上传并登记一条媒体。
// 执行顺序（不可调换）：
// 1. 本地校验：目标分组存在、文件大小不超限。超限直接失败，
//    不会发起任何外部请求。
// 2. 外部上传主文件，拿到网关分配的 id/cid。
// 3. 视频可选上传缩略图；缩略图失败只降级（无缩略图），不影响整体。
// 4. 本地插入媒体行。此步失败会留下外部孤儿文件，记日志后如实报错。
func (s *mediaService) Create(ctx context.Context, in CreateMediaInput) (*model.Media, error) {
	if s.mediaRepo == nil || s.groupRepo == nil || s.pinner == nil {
		return nil, ErrInternal
	}

	if in.GroupID == 0 || in.File == nil || strings.TrimSpace(in.FileName) == "" {
		return nil, ErrInvalidInput
	}
	if s.maxUploadBytes > 0 && in.FileSize > s.maxUploadBytes {
		return nil, fmt.Errorf("%w: file is %d bytes, limit is %d bytes",
			ErrFileTooLarge, in.FileSize, s.maxUploadBytes)
	}

	if _, err := s.groupRepo.FindByID(in.GroupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}

	mediaType := model.MediaTypeImage
	if strings.HasPrefix(in.ContentType, "video/") {
		mediaType = model.MediaTypeVideo
	}

	pin, err := s.pinner.Upload(ctx, in.FileName, in.File)
	if err != nil {
		log.Errorf("MediaService.Create: external upload failed for %q: %v", in.FileName, err)
		return nil, fmt.Errorf("%w: upload to pinning gateway failed", ErrExternalService)
	}

	media := &model.Media{
		ID:          pin.ID,
		GroupID:     in.GroupID,
		Label:       in.Label,
		URL:         s.pinner.GatewayURL(pin.CID),
		Description: in.Description,
		MediaType:   mediaType,
		Width:       in.Width,
		Height:      in.Height,
		IsActive:    true,
	}
	if in.FileSize > 0 {
		size := in.FileSize
		media.FileSize = &size
	}

	// 缩略图尽力而为：失败降级为无缩略图
	if mediaType == model.MediaTypeVideo && in.Thumbnail != nil {
		thumbName := in.ThumbnailName
		if thumbName == "" {
			thumbName = in.FileName + ".thumbnail.jpg"
		}
		if thumbPin, err := s.pinner.Upload(ctx, thumbName, in.Thumbnail); err != nil {
			log.Warnf("MediaService.Create: thumbnail upload failed for %q, continuing without: %v", in.FileName, err)
		} else {
			thumbURL := s.pinner.GatewayURL(thumbPin.CID)
			media.ThumbnailID = &thumbPin.ID
			media.ThumbnailURL = &thumbURL
		}
	}

	if err := s.mediaRepo.Create(media); err != nil {
		// 外部文件已固定成功而本地落库失败：留下外部孤儿，接受的不一致
		log.Errorf("MediaService.Create: db insert failed after external upload, orphaned pin %s: %v", pin.ID, err)
		return nil, err
	}
	return media, nil
}

// Update 部分更新媒体字段（label / description / isActive）。
func (s *mediaService) Update(id string, in UpdateMediaInput) (*model.Media, error) {
	if s.mediaRepo == nil {
		return nil, ErrInternal
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidInput
	}

	fields := make(map[string]interface{}, 3)
	if in.Label != nil {
		fields["label"] = *in.Label
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.IsActive != nil {
		fields["is_active"] = *in.IsActive
	}
	if len(fields) == 0 {
		return nil, ErrInvalidInput
	}

	if err := s.mediaRepo.UpdateFields(id, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, err
	}
	return s.FindByID(id)
}

// Delete 删除一条媒体，两阶段纪律与 GroupService.Delete 相同：
// 先确认外部文件（含缩略图）删除成功，才删除本地行。
func (s *mediaService) Delete(ctx context.Context, id string) error {
	if s.mediaRepo == nil || s.pinner == nil {
		return ErrInternal
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidInput
	}

	media, err := s.FindByID(id)
	if err != nil {
		return err
	}

	externalIDs := []string{media.ID}
	if media.ThumbnailID != nil && *media.ThumbnailID != "" {
		externalIDs = append(externalIDs, *media.ThumbnailID)
	}
	if err := s.pinner.Delete(ctx, externalIDs); err != nil {
		log.Warnf("MediaService.Delete: external deletion failed for %s: %v", id, err)
		return fmt.Errorf("%w: the pinned file could not be deleted from the gateway; "+
			"the local record was kept. Retry later or remove the file in the gateway dashboard",
			ErrExternalService)
	}

	if err := s.mediaRepo.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMediaNotFound
		}
		return err
	}
	return nil
}

// ToggleActive 翻转 isActive 标志。
func (s *mediaService) ToggleActive(id string) (*model.Media, error) {
	media, err := s.FindByID(id)
	if err != nil {
		return nil, err
	}

	next := !media.IsActive
	return s.Update(id, UpdateMediaInput{IsActive: &next})
}

func (s *mediaService) List() ([]model.Media, error) {
	if s.mediaRepo == nil {
		return nil, ErrInternal
	}
	return s.mediaRepo.FindAll()
}

func (s *mediaService) FindByID(id string) (*model.Media, error) {
	if s.mediaRepo == nil {
		return nil, ErrInternal
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidInput
	}

	media, err := s.mediaRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, err
	}
	if media == nil {
		return nil, ErrMediaNotFound
	}
	return media, nil
}
