package model

import (
	"fmt"
	"time"
)

type FriendRequestStatus string

const (
	FriendRequestPending   FriendRequestStatus = "pending"
	FriendRequestAccepted  FriendRequestStatus = "accepted"
	FriendRequestRejected  FriendRequestStatus = "rejected"
	FriendRequestCancelled FriendRequestStatus = "cancelled"
)

func (s FriendRequestStatus) Valid() bool {
	switch s {
	case FriendRequestPending, FriendRequestAccepted, FriendRequestRejected, FriendRequestCancelled:
		return true
	}
	return false
}

// SenderScoped pending/cancelled 按发送方查询，accepted/rejected 按接收方查询
func (s FriendRequestStatus) SenderScoped() bool {
	return s == FriendRequestPending || s == FriendRequestCancelled
}

type FriendRequest struct {
	ID         uint64              `gorm:"primaryKey"`
	SenderID   uint64              `gorm:"not null;index:idx_fr_sender_status,priority:1"`
	ReceiverID uint64              `gorm:"not null;index:idx_fr_receiver_status,priority:1"`
	Status     FriendRequestStatus `gorm:"size:16;not null;index:idx_fr_sender_status,priority:2;index:idx_fr_receiver_status,priority:2"`
	// PendingPair 仅在 pending 时为 "min:max"，唯一索引保证同一对用户最多一条 pending
	PendingPair    *string   `gorm:"size:64;uniqueIndex:uk_fr_pending_pair" json:"-"`
	CreatedAt      time.Time `gorm:"index"`
	LastModifiedAt time.Time `gorm:"autoUpdateTime"`
}

func (FriendRequest) TableName() string { return "friend_request" }

// PairKey 无序用户对的键
func PairKey(a, b uint64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}
