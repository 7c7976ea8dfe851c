package mysql

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"Lee_Social/internal/model"

	"gorm.io/gorm"
)

type FriendRequestRepository struct {
	DB *gorm.DB
}

func (r *FriendRequestRepository) FindByID(ctx context.Context, id uint64) (*model.FriendRequest, error) {
	var fr model.FriendRequest
	err := r.DB.WithContext(ctx).First(&fr, id).Error
	return &fr, err
}

// FindOrCreatePending 按无序用户对查找 pending 申请，没有则创建。created=true 表示本次新建。
// 查询和插入之间的并发由唯一索引 uk_fr_pending_pair 兜底，插入冲突的一方回读胜者的记录
func (r *FriendRequestRepository) FindOrCreatePending(ctx context.Context, senderID, receiverID uint64) (*model.FriendRequest, bool, error) {
	key := model.PairKey(senderID, receiverID)
	db := r.DB.WithContext(ctx)

	var out model.FriendRequest
	err := db.Where("pending_pair = ?", key).First(&out).Error
	if err == nil {
		return &out, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	out = model.FriendRequest{
		SenderID:    senderID,
		ReceiverID:  receiverID,
		Status:      model.FriendRequestPending,
		PendingPair: &key,
	}
	err = db.Create(&out).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		var winner model.FriendRequest
		if err = db.Where("pending_pair = ?", key).First(&winner).Error; err != nil {
			return nil, false, err
		}
		return &winner, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &out, true, nil
}

// Cancel 发送方撤回：id + sender + pending 三个条件同时满足才更新
func (r *FriendRequestRepository) Cancel(ctx context.Context, id, senderID uint64) (int64, error) {
	return r.transition(r.DB.WithContext(ctx), id, "sender_id", senderID, model.FriendRequestCancelled)
}

// Reject 接收方拒绝
func (r *FriendRequestRepository) Reject(ctx context.Context, id, receiverID uint64) (int64, error) {
	return r.transition(r.DB.WithContext(ctx), id, "receiver_id", receiverID, model.FriendRequestRejected)
}

// Accept 接收方同意。状态迁移和 outbox 记录同事务提交，只有迁移成功（affected=1）才写 outbox
func (r *FriendRequestRepository) Accept(ctx context.Context, id, receiverID uint64) (int64, *model.SocialOutbox, error) {
	var (
		affected int64
		ob       *model.SocialOutbox
	)
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := r.transition(tx, id, "receiver_id", receiverID, model.FriendRequestAccepted)
		if err != nil {
			return err
		}
		affected = n
		if n != 1 {
			return nil
		}
		var fr model.FriendRequest
		if err = tx.First(&fr, id).Error; err != nil {
			return err
		}
		ob, err = insertOutbox(tx, model.OutboxEventFriendAccepted, &fr)
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	return affected, ob, nil
}

func (r *FriendRequestRepository) transition(db *gorm.DB, id uint64, actorColumn string, actorID uint64, to model.FriendRequestStatus) (int64, error) {
	res := db.Model(&model.FriendRequest{}).
		Where("id = ? AND "+actorColumn+" = ? AND status = ?", id, actorID, model.FriendRequestPending).
		Updates(map[string]any{"status": to, "pending_pair": nil})
	return res.RowsAffected, res.Error
}

// List 按状态分页查询，pending/cancelled 以发送方视角，accepted/rejected 以接收方视角
func (r *FriendRequestRepository) List(ctx context.Context, userID uint64, status model.FriendRequestStatus, offset, limit int) ([]model.FriendRequest, error) {
	column := "receiver_id"
	if status.SenderScoped() {
		column = "sender_id"
	}
	var list []model.FriendRequest
	err := r.DB.WithContext(ctx).
		Where(column+" = ? AND status = ?", userID, status).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	return list, err
}

// 插入outbox事件表
func insertOutbox(tx *gorm.DB, event string, fr *model.FriendRequest) (*model.SocialOutbox, error) {
	payload, _ := json.Marshal(map[string]any{
		"event_time":  time.Now().UTC().Format(time.RFC3339Nano),
		"request_id":  fr.ID,
		"sender_id":   fr.SenderID,
		"receiver_id": fr.ReceiverID,
	})
	ob := &model.SocialOutbox{
		EventType:  event,
		RequestID:  fr.ID,
		SenderID:   fr.SenderID,
		ReceiverID: fr.ReceiverID,
		Payload:    string(payload),
		Status:     model.OutboxPending,
	}
	if err := tx.Create(ob).Error; err != nil {
		return nil, err
	}
	return ob, nil
}
