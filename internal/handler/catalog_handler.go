package handler

import (
	"net/http"

	"buy_for_real_go/internal/realtime"
	"buy_for_real_go/internal/service"
	"buy_for_real_go/pkg/log"

	"github.com/gin-gonic/gin"
)

// CatalogHandler 负责商品/广告标记的 HTTP 接口。
// 两类标记的路由形状完全一致，只是落到不同的表。
type CatalogHandler struct {
	catalogService service.CatalogService
	hub            *realtime.Hub
}

func NewCatalogHandler(catalogService service.CatalogService, hub *realtime.Hub) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService, hub: hub}
}

// TagRequest 是创建商品/广告标记的请求体。
type TagRequest struct {
	GroupID uint `json:"groupId" binding:"required"`
}

// ListProducts 返回全部商品标记。
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	products, err := h.catalogService.ListProducts()
	if err != nil {
		log.Warnf("CatalogHandler.ListProducts: %v", err)
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Products retrieved successfully",
		"data":    products,
	})
}

// CreateProduct 给分组打商品标记。
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "Invalid request body",
		})
		return
	}

	product, err := h.catalogService.CreateProduct(req.GroupID)
	if err != nil {
		log.Warnf("CatalogHandler.CreateProduct: %v", err)
		respondServiceError(c, err)
		return
	}

	h.hub.Invalidate(realtime.ViewProducts, realtime.ViewGroupsProducts)
	c.JSON(http.StatusCreated, gin.H{
		"code":    http.StatusCreated,
		"message": "Product created successfully",
		"data":    product,
	})
}

// DeleteProduct 移除商品标记。
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteProduct(id); err != nil {
		log.Warnf("CatalogHandler.DeleteProduct: %v", err)
		respondServiceError(c, err)
		return
	}

	h.hub.Invalidate(realtime.ViewProducts, realtime.ViewGroupsProducts)
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Product deleted successfully",
	})
}

// ToggleProductActive 翻转商品标记的 isActive。
func (h *CatalogHandler) ToggleProductActive(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	product, err := h.catalogService.ToggleProductActive(id)
	if err != nil {
		log.Warnf("CatalogHandler.ToggleProductActive: %v", err)
		respondServiceError(c, err)
		return
	}

	h.hub.Invalidate(realtime.ViewProducts, realtime.ViewGroupsProducts)
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Product status updated successfully",
		"data":    product,
	})
}

// ListAdvertisements 返回全部广告标记。
func (h *CatalogHandler) ListAdvertisements(c *gin.Context) {
	ads, err := h.catalogService.ListAdvertisements()
	if err != nil {
		log.Warnf("CatalogHandler.ListAdvertisements: %v", err)
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Advertisements retrieved successfully",
		"data":    ads,
	})
}

// CreateAdvertisement 给分组打广告标记。
func (h *CatalogHandler) CreateAdvertisement(c *gin.Context) {
	var req TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "Invalid request body",
		})
		return
	}

	ad, err := h.catalogService.CreateAdvertisement(req.GroupID)
	if err != nil {
		log.Warnf("CatalogHandler.CreateAdvertisement: %v", err)
		respondServiceError(c, err)
		return
	}

	h.hub.Invalidate(realtime.ViewAdvertisements, realtime.ViewGroupsAds)
	c.JSON(http.StatusCreated, gin.H{
		"code":    http.StatusCreated,
		"message": "Advertisement created successfully",
		"data":    ad,
	})
}

// DeleteAdvertisement 移除广告标记。
func (h *CatalogHandler) DeleteAdvertisement(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteAdvertisement(id); err != nil {
		log.Warnf("CatalogHandler.DeleteAdvertisement: %v", err)
		respondServiceError(c, err)
		return
	}

	h.hub.Invalidate(realtime.ViewAdvertisements, realtime.ViewGroupsAds)
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Advertisement deleted successfully",
	})
}

// ToggleAdvertisementActive 翻转广告标记的 isActive。
func (h *CatalogHandler) ToggleAdvertisementActive(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	ad, err := h.catalogService.ToggleAdvertisementActive(id)
	if err != nil {
		log.Warnf("CatalogHandler.ToggleAdvertisementActive: %v", err)
		respondServiceError(c, err)
		return
	}

	h.hub.Invalidate(realtime.ViewAdvertisements, realtime.ViewGroupsAds)
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Advertisement status updated successfully",
		"data":    ad,
	})
}
