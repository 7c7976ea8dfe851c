package service

import (
	"context"
	"fmt"
	"strings"

	"Lee_Social/internal/model"
	"Lee_Social/internal/pkg"
	"Lee_Social/internal/repository/mysql"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// SavePostInput PostID 为 0 表示新建
type SavePostInput struct {
	PostID  uint64           `json:"post_id"`
	Content string           `json:"content"`
	Status  model.PostStatus `json:"status"`
}

type PostService struct {
	repo   *mysql.PostRepository
	graph  GraphStore
	fanout Fanout
	views  PostViews
	pager  pkg.Pager
}

func NewPostService(repo *mysql.PostRepository, graph GraphStore, fanout Fanout, views PostViews, pager pkg.Pager) *PostService {
	return &PostService{
		repo:   repo,
		graph:  graph,
		fanout: fanout,
		views:  views,
		pager:  pager,
	}
}

// SavePost 按目标状态分派。只有 draft -> published（或直接新建为 published）会触发扇出
func (s *PostService) SavePost(ctx context.Context, userID uint64, in SavePostInput) (*model.Post, error) {
	if userID == 0 {
		return nil, pkg.NewValidationError("invalid person id")
	}
	if !in.Status.Valid() {
		return nil, pkg.NewValidationError("invalid post status")
	}
	switch in.Status {
	case model.PostStatusArchived:
		return s.archive(ctx, userID, in)
	case model.PostStatusDraft:
		return s.saveDraft(ctx, userID, in)
	default:
		return s.publish(ctx, userID, in)
	}
}

func (s *PostService) archive(ctx context.Context, userID uint64, in SavePostInput) (*model.Post, error) {
	if in.PostID == 0 {
		return nil, pkg.NewValidationError("post id required to archive")
	}
	post, err := s.owned(ctx, userID, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.Status == model.PostStatusDraft {
		return nil, pkg.NewConflictError("a draft cannot be archived")
	}
	var content *string
	if !isBlank(in.Content) {
		content = &in.Content
	}
	n, err := s.repo.TransitionStatus(ctx, post.ID, userID, post.Status, model.PostStatusArchived, content)
	if err != nil {
		return nil, fmt.Errorf("archive post: %w", err)
	}
	if n == 0 {
		return nil, pkg.NewConflictError("post was modified concurrently")
	}
	s.views.InvalidatePostView(ctx, post.ID)
	return s.reload(ctx, post.ID)
}

func (s *PostService) saveDraft(ctx context.Context, userID uint64, in SavePostInput) (*model.Post, error) {
	if in.PostID == 0 {
		post := &model.Post{UserID: userID, Content: in.Content, Status: model.PostStatusDraft}
		if err := s.repo.Create(ctx, post); err != nil {
			return nil, fmt.Errorf("create draft: %w", err)
		}
		return post, nil
	}
	post, err := s.owned(ctx, userID, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.Status != model.PostStatusDraft {
		return nil, pkg.NewConflictError("only a draft can be saved as draft")
	}
	n, err := s.repo.UpdateContent(ctx, post.ID, userID, model.PostStatusDraft, in.Content)
	if err != nil {
		return nil, fmt.Errorf("update draft: %w", err)
	}
	if n == 0 {
		return nil, pkg.NewConflictError("post was modified concurrently")
	}
	return s.reload(ctx, post.ID)
}

func (s *PostService) publish(ctx context.Context, userID uint64, in SavePostInput) (*model.Post, error) {
	if in.PostID == 0 {
		if isBlank(in.Content) {
			return nil, pkg.NewValidationError("content required")
		}
		post := &model.Post{UserID: userID, Content: in.Content, Status: model.PostStatusPublished}
		if err := s.repo.Create(ctx, post); err != nil {
			return nil, fmt.Errorf("create post: %w", err)
		}
		s.afterPublish(ctx, post)
		return post, nil
	}

	post, err := s.owned(ctx, userID, in.PostID)
	if err != nil {
		return nil, err
	}
	hasContent := !isBlank(in.Content)
	if !hasContent && isBlank(post.Content) {
		n, err := s.repo.CountAttachments(ctx, post.ID)
		if err != nil {
			return nil, fmt.Errorf("count attachments: %w", err)
		}
		if n == 0 {
			return nil, pkg.NewValidationError("content or attachment required")
		}
	}

	// 已发布：只改内容，不再扇出
	if post.Status == model.PostStatusPublished {
		if !hasContent {
			return post, nil
		}
		n, err := s.repo.UpdateContent(ctx, post.ID, userID, model.PostStatusPublished, in.Content)
		if err != nil {
			return nil, fmt.Errorf("update post: %w", err)
		}
		if n == 0 {
			return nil, pkg.NewConflictError("post was modified concurrently")
		}
		s.views.InvalidatePostView(ctx, post.ID)
		return s.reload(ctx, post.ID)
	}

	var content *string
	if hasContent {
		content = &in.Content
	}
	n, err := s.repo.TransitionStatus(ctx, post.ID, userID, post.Status, model.PostStatusPublished, content)
	if err != nil {
		return nil, fmt.Errorf("publish post: %w", err)
	}
	if n == 0 {
		return nil, pkg.NewConflictError("post was modified concurrently")
	}
	s.views.InvalidatePostView(ctx, post.ID)
	updated, err := s.reload(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	// archived -> published 是恢复，不重复推送
	if post.Status == model.PostStatusDraft {
		s.afterPublish(ctx, updated)
	}
	return updated, nil
}

// afterPublish 扇出失败不回滚发布，信息流可以从账本重建
func (s *PostService) afterPublish(ctx context.Context, post *model.Post) {
	if err := s.fanout.PushToNewsFeed(ctx, post.UserID, post.ID); err != nil {
		pkg.L().Error("newsfeed fanout failed",
			zap.Uint64("post_id", post.ID), zap.Uint64("user_id", post.UserID), zap.Error(err))
	}
	s.views.CachePostView(ctx, post.ID)
}

// FindPost 作者本人可见全部状态，好友只能看已发布的
func (s *PostService) FindPost(ctx context.Context, viewerID, postID uint64) (*model.PostView, error) {
	if viewerID == 0 || postID == 0 {
		return nil, pkg.NewValidationError("person id and post id required")
	}
	post, err := s.repo.FindWithAttachments(ctx, postID)
	if err != nil {
		return nil, ledgerErr(err, "post")
	}
	if post.UserID == viewerID {
		return post.ToView(), nil
	}
	if post.Status != model.PostStatusPublished {
		return nil, pkg.NewForbiddenError("post is not visible")
	}
	ok, err := s.graph.AreFriends(ctx, viewerID, post.UserID)
	if err != nil {
		return nil, fmt.Errorf("check friendship: %w", err)
	}
	if !ok {
		return nil, pkg.NewForbiddenError("post is not visible")
	}
	return post.ToView(), nil
}

// FindPostsByUser 别人看到的只有已发布的帖子
func (s *PostService) FindPostsByUser(ctx context.Context, viewerID, userID uint64, page, size int) ([]model.Post, error) {
	if userID == 0 {
		return nil, pkg.NewValidationError("invalid person id")
	}
	offset, limit := s.pager.Offset(page, size)
	list, err := s.repo.ListByUser(ctx, userID, viewerID != userID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return list, nil
}

// DeletePost 只有作者能删，返回受影响行数
func (s *PostService) DeletePost(ctx context.Context, userID, postID uint64) (int64, error) {
	if postID == 0 {
		return 0, pkg.NewValidationError("post id required")
	}
	if _, err := s.owned(ctx, userID, postID); err != nil {
		return 0, err
	}
	n, err := s.repo.DeleteByOwner(ctx, postID, userID)
	if err != nil {
		return 0, fmt.Errorf("delete post: %w", err)
	}
	s.views.InvalidatePostView(ctx, postID)
	return n, nil
}

// AddAttachment 根据文件头识别类型，只接受图片和视频
func (s *PostService) AddAttachment(ctx context.Context, userID, postID uint64, url string, head []byte) (*model.PostAttachment, error) {
	if postID == 0 {
		return nil, pkg.NewValidationError("post id required")
	}
	if isBlank(url) {
		return nil, pkg.NewValidationError("attachment url required")
	}
	if _, err := s.owned(ctx, userID, postID); err != nil {
		return nil, err
	}
	mt := mimetype.Detect(head)
	if !supportedMedia(mt.String()) {
		return nil, pkg.NewUnsupportedMediaError("unsupported media type " + mt.String())
	}
	att := &model.Attachment{OwnerID: userID, URL: url, MediaType: mt.String()}
	link, err := s.repo.AddAttachment(ctx, postID, att)
	if err != nil {
		return nil, fmt.Errorf("add attachment: %w", err)
	}
	s.views.InvalidatePostView(ctx, postID)
	return link, nil
}

// owned 不存在返回 NotFound，不是作者返回 Forbidden
func (s *PostService) owned(ctx context.Context, userID, postID uint64) (*model.Post, error) {
	if userID == 0 {
		return nil, pkg.NewValidationError("invalid person id")
	}
	post, err := s.repo.FindByID(ctx, postID)
	if err != nil {
		return nil, ledgerErr(err, "post")
	}
	if post.UserID != userID {
		return nil, pkg.NewForbiddenError("not the owner of this post")
	}
	return post, nil
}

func (s *PostService) reload(ctx context.Context, postID uint64) (*model.Post, error) {
	post, err := s.repo.FindByID(ctx, postID)
	if err != nil {
		return nil, ledgerErr(err, "post")
	}
	return post, nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func supportedMedia(mediaType string) bool {
	return strings.HasPrefix(mediaType, "image/") || strings.HasPrefix(mediaType, "video/")
}
