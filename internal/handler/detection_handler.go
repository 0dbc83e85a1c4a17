package handler

import (
	"io"
	"net/http"

	"buy_for_real_go/internal/service"
	"buy_for_real_go/pkg/log"

	"github.com/gin-gonic/gin"
)

// DetectionHandler 负责目标检测代理接口。
// 本服务不做任何推理，只做输入校验和结果透传。
type DetectionHandler struct {
	detectionService service.DetectionService
}

func NewDetectionHandler(detectionService service.DetectionService) *DetectionHandler {
	return &DetectionHandler{detectionService: detectionService}
}

// Detect 接收 multipart 图片和可选的 prompt 字段，返回检测到的对象列表。
func (h *DetectionHandler) Detect(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "Missing file",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Errorf("DetectionHandler.Detect: failed to open file: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "Internal server error",
		})
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		log.Errorf("DetectionHandler.Detect: failed to read file: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "Internal server error",
		})
		return
	}

	detections, err := h.detectionService.DetectObjects(
		c.Request.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		image,
		c.PostForm("prompt"),
	)
	if err != nil {
		log.Warnf("DetectionHandler.Detect: %v", err)
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Detection completed successfully",
		"data": gin.H{
			"objects": detections,
		},
	})
}
