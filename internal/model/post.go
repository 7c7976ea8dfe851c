package model

import "time"

type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
	PostStatusArchived  PostStatus = "archived"
)

func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusDraft, PostStatusPublished, PostStatusArchived:
		return true
	}
	return false
}

type Post struct {
	ID             uint64     `gorm:"primaryKey"`
	Content        string     `gorm:"type:text"`
	UserID         uint64     `gorm:"not null;index:idx_post_user_time,priority:1"`
	Status         PostStatus `gorm:"size:16;not null"`
	CreatedAt      time.Time  `gorm:"index:idx_post_user_time,priority:2,sort:desc"`
	LastModifiedAt time.Time  `gorm:"autoUpdateTime"`

	Attachments []PostAttachment `gorm:"foreignKey:PostID"`
}

func (Post) TableName() string { return "post" }

// Attachment 已上传的文件，存储本身不在本服务内
type Attachment struct {
	ID        uint64 `gorm:"primaryKey"`
	OwnerID   uint64 `gorm:"not null;index"`
	URL       string `gorm:"size:512;not null"`
	MediaType string `gorm:"size:64;not null"`
	CreatedAt time.Time
}

func (Attachment) TableName() string { return "attachment" }

type PostAttachment struct {
	ID           uint64 `gorm:"primaryKey"`
	PostID       uint64 `gorm:"not null;index"`
	AttachmentID uint64 `gorm:"not null"`
	CreatedAt    time.Time

	Attachment Attachment `gorm:"foreignKey:AttachmentID"`
}

func (PostAttachment) TableName() string { return "post_attachment" }

// PostView 缓存里的帖子物化视图：内容 + 附件 URL
type PostView struct {
	ID             uint64     `json:"id"`
	UserID         uint64     `json:"user_id"`
	Content        string     `json:"content"`
	Status         PostStatus `json:"status"`
	AttachmentURLs []string   `json:"attachment_urls,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	LastModifiedAt time.Time  `json:"last_modified_at"`
}

// ToView 反规范化附件 URL
func (p *Post) ToView() *PostView {
	v := &PostView{
		ID:             p.ID,
		UserID:         p.UserID,
		Content:        p.Content,
		Status:         p.Status,
		CreatedAt:      p.CreatedAt,
		LastModifiedAt: p.LastModifiedAt,
	}
	for _, pa := range p.Attachments {
		if pa.Attachment.URL != "" {
			v.AttachmentURLs = append(v.AttachmentURLs, pa.Attachment.URL)
		}
	}
	return v
}
