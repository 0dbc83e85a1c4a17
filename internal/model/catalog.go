package model

import "time"

// Product 对应数据库中 products 表，是一个指向分组的轻量标记行。
// 一个分组被认定为“商品分组”，当且仅当它自身或任意一个子孙分组
// 至少挂有一条 Product 记录。过滤视图的计算依赖这条规则。
type Product struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	GroupID   uint      `gorm:"not null;index" json:"groupId"`
	IsActive  bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定 GORM 使用的表名
func (Product) TableName() string {
	return "products"
}

// Advertisement 对应数据库中 advertisements 表，语义与 Product 相同，
// 只是标记的目录类型不同（广告分组视图）。
type Advertisement struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	GroupID   uint      `gorm:"not null;index" json:"groupId"`
	IsActive  bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定 GORM 使用的表名
func (Advertisement) TableName() string {
	return "advertisements"
}
