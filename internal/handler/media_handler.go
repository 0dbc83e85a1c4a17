package handler

import (
	"net/http"
	"strconv"

	"buy_for_real_go/internal/realtime"
	"buy_for_real_go/internal/service"
	"buy_for_real_go/pkg/log"

	"github.com/gin-gonic/gin"
)

// MediaHandler 负责媒体上传与管理的 HTTP 接口。
// 上传走 multipart/form-data：file 为主文件，thumbnail 可选
// （视频抽帧后的封面图），其余元数据放在普通表单字段里。
type MediaHandler struct {
	mediaService service.MediaService
	hub          *realtime.Hub
}

func NewMediaHandler(mediaService service.MediaService, hub *realtime.Hub) *MediaHandler {
	return &MediaHandler{mediaService: mediaService, hub: hub}
}

// UpdateMediaRequest 是媒体部分更新的请求体，nil 字段不修改。
type UpdateMediaRequest struct {
	Label       *string `json:"label"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"isActive"`
}

// Upload 处理媒体上传。
func (h *MediaHandler) Upload(c *gin.Context) {
	groupID64, err := strconv.ParseUint(c.PostForm("groupId"), 10, 32)
	if err != nil || groupID64 == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "Invalid groupId parameter",
		})
		return
	}

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
		log.Errorf("MediaHandler.Upload: failed to open file: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "Internal server error",
		})
		return
	}
	defer file.Close()

	in := service.CreateMediaInput{
		GroupID:     uint(groupID64),
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		FileSize:    fileHeader.Size,
		File:        file,
	}

	if v := c.PostForm("label"); v != "" {
		in.Label = &v
	}
	if v := c.PostForm("description"); v != "" {
		in.Description = &v
	}
	if v, err := strconv.Atoi(c.PostForm("width")); err == nil && v > 0 {
		in.Width = &v
	}
	if v, err := strconv.Atoi(c.PostForm("height")); err == nil && v > 0 {
		in.Height = &v
	}

	// 视频上传时前端会额外带一张封面图
	if thumbHeader, err := c.FormFile("thumbnail"); err == nil {
		thumb, err := thumbHeader.Open()
		if err != nil {
			log.Warnf("MediaHandler.Upload: failed to open thumbnail, continuing without: %v", err)
		} else {
			defer thumb.Close()
			in.ThumbnailName = thumbHeader.Filename
			in.Thumbnail = thumb
		}
	}

	media, err := h.mediaService.Create(c.Request.Context(), in)
	if err != nil {
		log.Warnf("MediaHandler.Upload: %v", err)
		respondServiceError(c, err)
		return
	}

	h.hub.Invalidate(realtime.ViewMedia, realtime.ViewGroups, realtime.ViewGroupsProducts, realtime.ViewGroupsAds)
	c.JSON(http.StatusCreated, gin.H{
		"code":    http.StatusCreated,
		"message": "Media uploaded successfully",
		"data":    media,
	})
}

// List 返回全部媒体记录。
func (h *MediaHandler) List(c *gin.Context) {
	media, err := h.mediaService.List()
	if err != nil {
		log.Warnf("MediaHandler.List: %v", err)
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Media retrieved successfully",
		"data":    media,
	})
}

// Get 返回单条媒体记录。
func (h *MediaHandler) Get(c *gin.Context) {
	media, err := h.mediaService.FindByID(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Media retrieved successfully",
		"data":    media,
	})
}

// Update 部分更新媒体字段。
func (h *MediaHandler) Update(c *gin.Context) {
	var req UpdateMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("MediaHandler.Update: failed to bind request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "Invalid request body",
		})
		return
	}

	media, err := h.mediaService.Update(c.Param("id"), service.UpdateMediaInput{
		Label:       req.Label,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		log.Warnf("MediaHandler.Update: %v", err)
		respondServiceError(c, err)
		return
	}

	h.hub.Invalidate(realtime.ViewMedia, realtime.ViewGroups, realtime.ViewGroupsProducts, realtime.ViewGroupsAds)
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Media updated successfully",
		"data":    media,
	})
}

// ToggleActive 翻转媒体的 isActive 标志。
func (h *MediaHandler) ToggleActive(c *gin.Context) {
	media, err := h.mediaService.ToggleActive(c.Param("id"))
	if err != nil {
		log.Warnf("MediaHandler.ToggleActive: %v", err)
		respondServiceError(c, err)
		return
	}

	h.hub.Invalidate(realtime.ViewMedia, realtime.ViewGroups, realtime.ViewGroupsProducts, realtime.ViewGroupsAds)
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Media status updated successfully",
		"data":    media,
	})
}

// Delete 删除一条媒体。外部文件删除失败时返回 502，本地记录保留。
func (h *MediaHandler) Delete(c *gin.Context) {
	if err := h.mediaService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		log.Warnf("MediaHandler.Delete: %v", err)
		respondServiceError(c, err)
		return
	}

	h.hub.Invalidate(realtime.ViewMedia, realtime.ViewGroups, realtime.ViewGroupsProducts, realtime.ViewGroupsAds)
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Media deleted successfully",
	})
}
