package model

import "time"

// Group 对应数据库中 groups 表，表示商品目录里的一个“文件夹”节点。
// 分组支持树形结构，通过 ParentID 指向父级分组实现层级关系。
// ParentID 使用指针以区分根节点（NULL）和普通子节点。
type Group struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Slug      string    `gorm:"type:varchar(120);not null;unique" json:"slug"`
	ParentID  *uint     `gorm:"index" json:"parentId"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定 GORM 使用的表名
func (Group) TableName() string {
	return "groups"
}

// GroupNode 是分组层级物化后的节点，用于构建前端需要的树形响应。
// 与 Group（数据库模型）的区别：
//   - 增加 Level：根节点为 0，每向下一层加 1
//   - 增加 Path：从根到自身的祖先 id 链，用 "/" 连接（如 "1/4/9"）
//   - 增加 Media：直接挂在该分组下的媒体列表（没有媒体时为空数组，绝不为 nil）
//
// Level 和 Path 不落库，每次读取时根据当前父链重新计算，
// 因为其它请求随时可能改动祖先节点。
type GroupNode struct {
	ID       uint    `json:"id"`
	Name     string  `json:"name"`
	Slug     string  `json:"slug"`
	ParentID *uint   `json:"parentId"`
	Level    int     `json:"level"`
	Path     string  `json:"path"`
	Media    []Media `json:"media"`
}
