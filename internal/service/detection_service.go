package service

import (
	"context"
	"fmt"
	"strings"

	"buy_for_real_go/pkg/log"
	"buy_for_real_go/pkg/vision"
)

// Detector 是外部目标检测服务在服务层可见的最小接口。
type Detector interface {
	Detect(ctx context.Context, filename string, image []byte, prompt string) ([]vision.Detection, error)
}

// DetectionService 是外部视觉模型的薄代理：
// 校验输入图片、透传提示词、返回检测数组。检测逻辑不在本系统内。
type DetectionService interface {
	DetectObjects(ctx context.Context, filename, contentType string, image []byte, prompt string) ([]vision.Detection, error)
}

type detectionService struct {
	detector      Detector
	defaultPrompt string
	maxImageBytes int64
}

func NewDetectionService(detector Detector, defaultPrompt string, maxImageBytes int64) DetectionService {
	return &detectionService{
		detector:      detector,
		defaultPrompt: defaultPrompt,
		maxImageBytes: maxImageBytes,
	}
}

// DetectObjects 把图片发给外部检测服务。
// 规则：
// 1. 只接受 image/* 内容类型。
// 2. 图片大小超过配置上限直接拒绝，不发起外部请求。
// 3. prompt 为空时使用配置的默认提示词。
func (s *detectionService) DetectObjects(ctx context.Context, filename, contentType string, image []byte, prompt string) ([]vision.Detection, error) {
	if s.detector == nil {
		return nil, ErrInternal
	}

	if len(image) == 0 {
		return nil, ErrInvalidInput
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: file must be an image", ErrInvalidInput)
	}
	if s.maxImageBytes > 0 && int64(len(image)) > s.maxImageBytes {
		return nil, fmt.Errorf("%w: image is %d bytes, limit is %d bytes",
			ErrFileTooLarge, len(image), s.maxImageBytes)
	}

	if strings.TrimSpace(prompt) == "" {
		prompt = s.defaultPrompt
	}

	detections, err := s.detector.Detect(ctx, filename, image, prompt)
	if err != nil {
		log.Warnf("DetectionService: detection call failed: %v", err)
		return nil, fmt.Errorf("%w: object detection service unavailable", ErrExternalService)
	}
	return detections, nil
}
