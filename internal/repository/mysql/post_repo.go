package mysql

import (
	"context"

	"Lee_Social/internal/model"

	"gorm.io/gorm"
)

type PostRepository struct {
	DB *gorm.DB
}

func (r *PostRepository) Create(ctx context.Context, post *model.Post) error {
	return r.DB.WithContext(ctx).Create(post).Error
}

func (r *PostRepository) FindByID(ctx context.Context, id uint64) (*model.Post, error) {
	var post model.Post
	err := r.DB.WithContext(ctx).First(&post, id).Error
	return &post, err
}

// FindWithAttachments 连同附件一起加载，供缓存回填使用
func (r *PostRepository) FindWithAttachments(ctx context.Context, id uint64) (*model.Post, error) {
	var post model.Post
	err := r.DB.WithContext(ctx).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Attachments.Attachment").
		First(&post, id).Error
	return &post, err
}

func (r *PostRepository) CountAttachments(ctx context.Context, postID uint64) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.PostAttachment{}).
		Where("post_id = ?", postID).
		Count(&n).Error
	return n, err
}

// UpdateContent 只改内容，不动状态；status 作为条件避免覆盖并发的状态迁移
func (r *PostRepository) UpdateContent(ctx context.Context, id, userID uint64, status model.PostStatus, content string) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&model.Post{}).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, status).
		Update("content", content)
	return res.RowsAffected, res.Error
}

// TransitionStatus 条件更新：只有当前状态仍为 from 时才迁移到 to。
// content 为 nil 时保留原内容。返回受影响行数，0 表示状态已被其他请求改变
func (r *PostRepository) TransitionStatus(ctx context.Context, id, userID uint64, from, to model.PostStatus, content *string) (int64, error) {
	updates := map[string]any{"status": to}
	if content != nil {
		updates["content"] = *content
	}
	res := r.DB.WithContext(ctx).Model(&model.Post{}).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// ListByUser 作者的帖子，新的在前；publishedOnly 给非作者本人看
func (r *PostRepository) ListByUser(ctx context.Context, userID uint64, publishedOnly bool, offset, limit int) ([]model.Post, error) {
	var list []model.Post
	q := r.DB.WithContext(ctx).Where("user_id = ?", userID)
	if publishedOnly {
		q = q.Where("status = ?", model.PostStatusPublished)
	}
	err := q.
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	return list, err
}

// DeleteByOwner 带作者条件的删除，连同附件关联一起删
func (r *PostRepository) DeleteByOwner(ctx context.Context, id, userID uint64) (int64, error) {
	var affected int64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Post{})
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		if affected == 0 {
			return nil
		}
		return tx.Where("post_id = ?", id).Delete(&model.PostAttachment{}).Error
	})
	return affected, err
}

// AddAttachment 写入附件并关联到帖子
func (r *PostRepository) AddAttachment(ctx context.Context, postID uint64, att *model.Attachment) (*model.PostAttachment, error) {
	var link model.PostAttachment
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(att).Error; err != nil {
			return err
		}
		link = model.PostAttachment{PostID: postID, AttachmentID: att.ID, Attachment: *att}
		return tx.Omit("Attachment").Create(&link).Error
	})
	return &link, err
}
