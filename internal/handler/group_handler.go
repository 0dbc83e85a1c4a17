package handler

import (
	"net/http"

	"buy_for_real_go/internal/realtime"
	"buy_for_real_go/internal/service"
	"buy_for_real_go/pkg/log"

	"github.com/gin-gonic/gin"
)

// GroupHandler 负责分组（目录树）相关 HTTP 接口。
// 所有写操作成功后会通过 hub 广播缓存失效事件；hub 为 nil 时静默跳过
// （测试里不需要 websocket）。
type GroupHandler struct {
	groupService service.GroupService
	hub          *realtime.Hub
}

func NewGroupHandler(groupService service.GroupService, hub *realtime.Hub) *GroupHandler {
	return &GroupHandler{groupService: groupService, hub: hub}
}

// GroupRequest 是创建/更新分组的请求体。
// Slug 可选，缺省时由服务端从 Name 派生。
type GroupRequest struct {
	Name     string `json:"name" binding:"required"`
	Slug     string `json:"slug"`
	ParentID *uint  `json:"parentId"`
}

// Create 创建分组。
func (h *GroupHandler) Create(c *gin.Context) {
	var req GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("GroupHandler.Create: failed to bind request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "Invalid request body",
		})
		return
	}

	group, err := h.groupService.Create(req.Name, req.Slug, req.ParentID)
	if err != nil {
		log.Warnf("GroupHandler.Create: %v", err)
		respondServiceError(c, err)
		return
	}

	h.hub.Invalidate(realtime.ViewGroups, realtime.ViewGroupsProducts, realtime.ViewGroupsAds)
	c.JSON(http.StatusCreated, gin.H{
		"code":    http.StatusCreated,
		"message": "Group created successfully",
		"data":    group,
	})
}

// List 返回平铺的分组列表（不物化层级）。
func (h *GroupHandler) List(c *gin.Context) {
	groups, err := h.groupService.List()
	if err != nil {
		log.Warnf("GroupHandler.List: %v", err)
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Groups retrieved successfully",
		"data":    groups,
	})
}

// Tree 返回物化后的分组层级。
// query 参数 filter 取值 all / products / advertisements，缺省 all。
func (h *GroupHandler) Tree(c *gin.Context) {
	filter, err := service.ParseTreeFilter(c.Query("filter"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "Invalid filter parameter",
		})
		return
	}

	nodes, err := h.groupService.Tree(filter)
	if err != nil {
		log.Warnf("GroupHandler.Tree: %v", err)
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Group tree retrieved successfully",
		"data":    nodes,
	})
}

// Get 返回单个分组。
func (h *GroupHandler) Get(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	group, err := h.groupService.FindByID(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Group retrieved successfully",
		"data":    group,
	})
}

// Update 更新分组（改名和/或重新挂载）。
func (h *GroupHandler) Update(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("GroupHandler.Update: failed to bind request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "Invalid request body",
		})
		return
	}

	group, err := h.groupService.Update(id, req.Name, req.Slug, req.ParentID)
	if err != nil {
		log.Warnf("GroupHandler.Update: %v", err)
		respondServiceError(c, err)
		return
	}

	h.hub.Invalidate(realtime.ViewGroups, realtime.ViewGroupsProducts, realtime.ViewGroupsAds)
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Group updated successfully",
		"data":    group,
	})
}

// Delete 级联删除分组子树。
// 外部 pinning 网关删除失败时返回 502，且本地数据保持原样，
// 响应体里的 success=false 和 message 告诉前端如何处理。
func (h *GroupHandler) Delete(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	result, err := h.groupService.Delete(c.Request.Context(), id)
	if err != nil {
		log.Warnf("GroupHandler.Delete: %v", err)
		respondServiceError(c, err)
		return
	}

	if !result.Success {
		c.JSON(http.StatusBadGateway, gin.H{
			"code":    http.StatusBadGateway,
			"message": result.Message,
			"data":    result,
		})
		return
	}

	h.hub.Invalidate(
		realtime.ViewGroups, realtime.ViewGroupsProducts, realtime.ViewGroupsAds,
		realtime.ViewMedia,
	)
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Group deleted successfully",
		"data":    result,
	})
}
