package model

import "time"

// 媒体类型：目前只有图片和视频两种。
const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)

// Media 对应数据库中 media 表，表示挂在某个分组下的一条媒体记录。
// 主键 ID 不是自增整数，而是外部 pinning 网关返回的不透明标识：
// 必须先完成外部上传拿到 ID，才能插入本地记录（两阶段写入）。
// 删除时顺序相反：先确认外部副本删除成功，才允许删除本地记录。
type Media struct {
	ID           string    `gorm:"type:varchar(255);primaryKey" json:"id"`
	GroupID      uint      `gorm:"not null;index" json:"groupId"`
	Label        *string   `gorm:"type:varchar(255)" json:"label"`
	URL          string    `gorm:"type:varchar(500);not null" json:"url"`
	Description  *string   `gorm:"type:varchar(500)" json:"description"`
	MediaType    string    `gorm:"type:varchar(10);not null;default:'image'" json:"mediaType"`
	Width        *int      `json:"width"`
	Height       *int      `json:"height"`
	FileSize     *int64    `json:"fileSize"`
	IsActive     bool      `gorm:"not null;default:true" json:"isActive"`
	ThumbnailID  *string   `gorm:"type:varchar(255)" json:"thumbnailId"`
	ThumbnailURL *string   `gorm:"type:varchar(500)" json:"thumbnailUrl"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定 GORM 使用的表名
func (Media) TableName() string {
	return "media"
}
