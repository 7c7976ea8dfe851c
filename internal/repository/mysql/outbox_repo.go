package mysql

import (
	"context"

	"Lee_Social/internal/model"

	"gorm.io/gorm"
)

type OutboxRepository struct {
	DB *gorm.DB
}

// List 取待投递的事件：未发送或发送失败且未超过重试上限
func (r *OutboxRepository) List(ctx context.Context, batchSize, maxRetry int) ([]model.SocialOutbox, error) {
	var list []model.SocialOutbox
	if err := r.DB.WithContext(ctx).
		Where("status IN ? AND retry < ?", []int8{model.OutboxPending, model.OutboxFailed}, maxRetry).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ListExhausted 对账用：按 id 递增扫描重试次数耗尽仍未投递的事件
func (r *OutboxRepository) ListExhausted(ctx context.Context, lastID uint64, batchSize, maxRetry int) ([]model.SocialOutbox, error) {
	var list []model.SocialOutbox
	err := r.DB.WithContext(ctx).
		Where("id > ? AND status = ? AND retry >= ?", lastID, model.OutboxFailed, maxRetry).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error
	return list, err
}

// RetryUpdate outbox记录消息失败重试
func (r *OutboxRepository) RetryUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.SocialOutbox{}).Where("id = ?", id).
		Updates(map[string]any{"status": model.OutboxFailed, "retry": gorm.Expr("retry + 1")}).Error
}

// SuccessUpdate outbox成功记录消息更新
func (r *OutboxRepository) SuccessUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.SocialOutbox{}).Where("id = ?", id).
		Update("status", model.OutboxSent).Error
}

func (r *OutboxRepository) FindByID(ctx context.Context, id uint64) (*model.SocialOutbox, error) {
	var ob model.SocialOutbox
	err := r.DB.WithContext(ctx).First(&ob, id).Error
	return &ob, err
}
