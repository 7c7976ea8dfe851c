package service_test

import (
	"context"
	"errors"
	"testing"

	"Lee_Social/internal/model"
	"Lee_Social/internal/pkg"
	"Lee_Social/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func newPostService(e *testEnv) (*service.PostService, *spyFanout) {
	spy := &spyFanout{}
	return service.NewPostService(e.posts, e.graph, spy, spy, testPager), spy
}

func TestPublishNewPost(t *testing.T) {
	e := newTestEnv(t)
	svc, spy := newPostService(e)
	ctx := context.Background()

	_, err := svc.SavePost(ctx, 1, service.SavePostInput{Status: model.PostStatusPublished, Content: "   "})
	assert.True(t, pkg.IsKind(err, pkg.KindValidation))
	assert.Zero(t, spy.pushCount())

	post, err := svc.SavePost(ctx, 1, service.SavePostInput{Status: model.PostStatusPublished, Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusPublished, post.Status)
	assert.Equal(t, []uint64{post.ID}, spy.pushes)
	assert.Equal(t, []uint64{post.ID}, spy.cached)
}

func TestRepublishDoesNotFanOutAgain(t *testing.T) {
	e := newTestEnv(t)
	svc, spy := newPostService(e)
	ctx := context.Background()

	post, err := svc.SavePost(ctx, 1, service.SavePostInput{Status: model.PostStatusPublished, Content: "v1"})
	require.NoError(t, err)

	updated, err := svc.SavePost(ctx, 1, service.SavePostInput{PostID: post.ID, Status: model.PostStatusPublished, Content: "v2"})
	require.NoError(t, err)
	assert.Equal(t, "v2", updated.Content)
	assert.Equal(t, model.PostStatusPublished, updated.Status)
	assert.Equal(t, 1, spy.pushCount())
	assert.Contains(t, spy.invalidated, post.ID)
}

func TestDraftToPublishedFansOutOnce(t *testing.T) {
	e := newTestEnv(t)
	svc, spy := newPostService(e)
	ctx := context.Background()

	draft, err := svc.SavePost(ctx, 1, service.SavePostInput{Status: model.PostStatusDraft})
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusDraft, draft.Status)

	// 空内容且没有附件
	_, err = svc.SavePost(ctx, 1, service.SavePostInput{PostID: draft.ID, Status: model.PostStatusPublished})
	assert.True(t, pkg.IsKind(err, pkg.KindValidation))

	_, err = svc.AddAttachment(ctx, 1, draft.ID, "https://cdn.example.com/p.png", pngHeader)
	require.NoError(t, err)

	published, err := svc.SavePost(ctx, 1, service.SavePostInput{PostID: draft.ID, Status: model.PostStatusPublished})
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusPublished, published.Status)
	assert.Equal(t, 1, spy.pushCount())

	_, err = svc.SavePost(ctx, 1, service.SavePostInput{PostID: draft.ID, Status: model.PostStatusPublished})
	require.NoError(t, err)
	assert.Equal(t, 1, spy.pushCount())
}

func TestDraftWithContentPublishes(t *testing.T) {
	e := newTestEnv(t)
	svc, spy := newPostService(e)
	ctx := context.Background()

	draft, err := svc.SavePost(ctx, 1, service.SavePostInput{Status: model.PostStatusDraft, Content: "wip"})
	require.NoError(t, err)

	draft, err = svc.SavePost(ctx, 1, service.SavePostInput{PostID: draft.ID, Status: model.PostStatusDraft, Content: "almost"})
	require.NoError(t, err)
	assert.Equal(t, "almost", draft.Content)
	assert.Zero(t, spy.pushCount())

	published, err := svc.SavePost(ctx, 1, service.SavePostInput{PostID: draft.ID, Status: model.PostStatusPublished, Content: "done"})
	require.NoError(t, err)
	assert.Equal(t, "done", published.Content)
	assert.Equal(t, 1, spy.pushCount())
}

func TestArchiveRules(t *testing.T) {
	e := newTestEnv(t)
	svc, spy := newPostService(e)
	ctx := context.Background()

	_, err := svc.SavePost(ctx, 1, service.SavePostInput{Status: model.PostStatusArchived})
	assert.True(t, pkg.IsKind(err, pkg.KindValidation))

	_, err = svc.SavePost(ctx, 1, service.SavePostInput{PostID: 404, Status: model.PostStatusArchived})
	assert.True(t, pkg.IsKind(err, pkg.KindNotFound))

	draft, err := svc.SavePost(ctx, 1, service.SavePostInput{Status: model.PostStatusDraft, Content: "d"})
	require.NoError(t, err)
	_, err = svc.SavePost(ctx, 1, service.SavePostInput{PostID: draft.ID, Status: model.PostStatusArchived})
	assert.True(t, pkg.IsKind(err, pkg.KindConflict))

	post, err := svc.SavePost(ctx, 1, service.SavePostInput{Status: model.PostStatusPublished, Content: "p"})
	require.NoError(t, err)
	archived, err := svc.SavePost(ctx, 1, service.SavePostInput{PostID: post.ID, Status: model.PostStatusArchived})
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusArchived, archived.Status)

	// 恢复发布不再扇出
	restored, err := svc.SavePost(ctx, 1, service.SavePostInput{PostID: post.ID, Status: model.PostStatusPublished})
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusPublished, restored.Status)
	assert.Equal(t, 1, spy.pushCount())
}

func TestSavePostOwnership(t *testing.T) {
	e := newTestEnv(t)
	svc, _ := newPostService(e)
	ctx := context.Background()

	post, err := svc.SavePost(ctx, 1, service.SavePostInput{Status: model.PostStatusDraft})
	require.NoError(t, err)

	for _, status := range []model.PostStatus{model.PostStatusDraft, model.PostStatusPublished, model.PostStatusArchived} {
		_, err = svc.SavePost(ctx, 2, service.SavePostInput{PostID: post.ID, Status: status, Content: "x"})
		assert.True(t, pkg.IsKind(err, pkg.KindForbidden), status)
	}

	_, err = svc.SavePost(ctx, 1, service.SavePostInput{Status: "deleted"})
	assert.True(t, pkg.IsKind(err, pkg.KindValidation))
}

func TestPublishedDraftCannotBeSavedAsDraft(t *testing.T) {
	e := newTestEnv(t)
	svc, _ := newPostService(e)
	ctx := context.Background()

	post, err := svc.SavePost(ctx, 1, service.SavePostInput{Status: model.PostStatusPublished, Content: "p"})
	require.NoError(t, err)
	_, err = svc.SavePost(ctx, 1, service.SavePostInput{PostID: post.ID, Status: model.PostStatusDraft, Content: "back"})
	assert.True(t, pkg.IsKind(err, pkg.KindConflict))
}

func TestFanoutFailureDoesNotFailPublish(t *testing.T) {
	e := newTestEnv(t)
	svc, spy := newPostService(e)
	spy.err = errors.New("redis down")

	post, err := svc.SavePost(context.Background(), 1, service.SavePostInput{Status: model.PostStatusPublished, Content: "hi"})
	require.NoError(t, err)

	got, err := e.posts.FindByID(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusPublished, got.Status)
}

func TestAddAttachmentMediaType(t *testing.T) {
	e := newTestEnv(t)
	svc, _ := newPostService(e)
	ctx := context.Background()

	post, err := svc.SavePost(ctx, 1, service.SavePostInput{Status: model.PostStatusDraft})
	require.NoError(t, err)

	_, err = svc.AddAttachment(ctx, 1, post.ID, "https://cdn.example.com/notes.txt", []byte("just some plain text"))
	assert.True(t, pkg.IsKind(err, pkg.KindUnsupportedMedia))

	_, err = svc.AddAttachment(ctx, 2, post.ID, "https://cdn.example.com/p.png", pngHeader)
	assert.True(t, pkg.IsKind(err, pkg.KindForbidden))

	link, err := svc.AddAttachment(ctx, 1, post.ID, "https://cdn.example.com/p.png", pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "image/png", link.Attachment.MediaType)
}

func TestFindPostVisibility(t *testing.T) {
	e := newTestEnv(t)
	svc, _ := newPostService(e)
	ctx := context.Background()
	e.graph.befriend(1, 2)

	post, err := svc.SavePost(ctx, 1, service.SavePostInput{Status: model.PostStatusPublished, Content: "p"})
	require.NoError(t, err)
	draft, err := svc.SavePost(ctx, 1, service.SavePostInput{Status: model.PostStatusDraft, Content: "d"})
	require.NoError(t, err)

	v, err := svc.FindPost(ctx, 2, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "p", v.Content)

	_, err = svc.FindPost(ctx, 3, post.ID)
	assert.True(t, pkg.IsKind(err, pkg.KindForbidden))

	_, err = svc.FindPost(ctx, 2, draft.ID)
	assert.True(t, pkg.IsKind(err, pkg.KindForbidden))

	v, err = svc.FindPost(ctx, 1, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusDraft, v.Status)

	_, err = svc.FindPost(ctx, 1, 999)
	assert.True(t, pkg.IsKind(err, pkg.KindNotFound))

	mine, err := svc.FindPostsByUser(ctx, 1, 1, 0, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	theirs, err := svc.FindPostsByUser(ctx, 2, 1, 0, 0)
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}

func TestDeletePost(t *testing.T) {
	e := newTestEnv(t)
	svc, spy := newPostService(e)
	ctx := context.Background()

	post, err := svc.SavePost(ctx, 1, service.SavePostInput{Status: model.PostStatusPublished, Content: "p"})
	require.NoError(t, err)

	_, err = svc.DeletePost(ctx, 2, post.ID)
	assert.True(t, pkg.IsKind(err, pkg.KindForbidden))

	n, err := svc.DeletePost(ctx, 1, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Contains(t, spy.invalidated, post.ID)

	_, err = svc.DeletePost(ctx, 1, post.ID)
	assert.True(t, pkg.IsKind(err, pkg.KindNotFound))
}
