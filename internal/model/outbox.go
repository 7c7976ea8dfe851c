package model

import "time"

const (
	OutboxEventFriendAccepted = "friend_accepted"

	OutboxPending int8 = 0
	OutboxSent    int8 = 1
	OutboxFailed  int8 = 2
)

// SocialOutbox 好友关系事件表，与账本状态变更同事务写入，异步投递到 Graph Store
type SocialOutbox struct {
	ID         uint64 `gorm:"primaryKey"`
	EventType  string `gorm:"size:32;not null"`
	RequestID  uint64 `gorm:"not null;index"`
	SenderID   uint64 `gorm:"not null"`
	ReceiverID uint64 `gorm:"not null"`
	Payload    string `gorm:"type:json;not null"`
	Status     int8   `gorm:"not null;default:0;index;comment:'0=pending,1=sent,2=failed'"`
	Retry      int    `gorm:"not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (SocialOutbox) TableName() string { return "social_outbox" }
