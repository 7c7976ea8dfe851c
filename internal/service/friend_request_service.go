package service

import (
	"context"
	"fmt"

	"Lee_Social/internal/metrics"
	"Lee_Social/internal/model"
	"Lee_Social/internal/pkg"
	"Lee_Social/internal/repository/mysql"

	"go.uber.org/zap"
)

type FriendRequestService struct {
	repo    *mysql.FriendRequestRepository
	outbox  *mysql.OutboxRepository
	persons *mysql.PersonRepository
	graph   GraphStore
	pager   pkg.Pager
	retry   RetryPolicy
}

func NewFriendRequestService(repo *mysql.FriendRequestRepository, outbox *mysql.OutboxRepository, persons *mysql.PersonRepository, graph GraphStore, pager pkg.Pager, retry RetryPolicy) *FriendRequestService {
	return &FriendRequestService{
		repo:    repo,
		outbox:  outbox,
		persons: persons,
		graph:   graph,
		pager:   pager,
		retry:   retry,
	}
}

// SendFriendRequest 接收方未注册返回 NotFound。任一方向拉黑或已是好友时不建申请，
// 返回 (nil, false, nil)。同一对用户已有 pending 申请时原样返回，created=false
func (s *FriendRequestService) SendFriendRequest(ctx context.Context, senderID, receiverID uint64) (*model.FriendRequest, bool, error) {
	if err := validPair(senderID, receiverID); err != nil {
		return nil, false, err
	}
	if err := requirePerson(ctx, s.persons, receiverID); err != nil {
		return nil, false, err
	}
	st, err := s.graph.RelationStatus(ctx, senderID, receiverID)
	if err != nil {
		return nil, false, fmt.Errorf("check relation: %w", err)
	}
	if st.AnyBlock() || st.Friends {
		return nil, false, nil
	}
	fr, created, err := s.repo.FindOrCreatePending(ctx, senderID, receiverID)
	if err != nil {
		return nil, false, fmt.Errorf("find or create friend request: %w", err)
	}
	return fr, created, nil
}

// CancelFriendRequest 发送方撤回。申请已不是 pending 时返回 0
func (s *FriendRequestService) CancelFriendRequest(ctx context.Context, requestID, senderID uint64) (int64, error) {
	fr, err := s.precheck(ctx, requestID, senderID)
	if err != nil {
		return 0, err
	}
	if fr.SenderID != senderID {
		return 0, pkg.NewForbiddenError("only the sender can cancel this request")
	}
	n, err := s.repo.Cancel(ctx, requestID, senderID)
	if err != nil {
		return 0, fmt.Errorf("cancel friend request: %w", err)
	}
	countTransition(model.FriendRequestCancelled, n)
	return n, nil
}

// RejectFriendRequest 接收方拒绝
func (s *FriendRequestService) RejectFriendRequest(ctx context.Context, requestID, receiverID uint64) (int64, error) {
	fr, err := s.precheck(ctx, requestID, receiverID)
	if err != nil {
		return 0, err
	}
	if fr.ReceiverID != receiverID {
		return 0, pkg.NewForbiddenError("only the receiver can reject this request")
	}
	n, err := s.repo.Reject(ctx, requestID, receiverID)
	if err != nil {
		return 0, fmt.Errorf("reject friend request: %w", err)
	}
	countTransition(model.FriendRequestRejected, n)
	return n, nil
}

// AcceptFriendRequest 接收方同意。账本迁移和 outbox 同事务提交后立即尝试写 FRIEND_WITH，
// 写失败只记日志，由 OutboxRelayer 补投
func (s *FriendRequestService) AcceptFriendRequest(ctx context.Context, requestID, receiverID uint64) (int64, error) {
	fr, err := s.precheck(ctx, requestID, receiverID)
	if err != nil {
		return 0, err
	}
	if fr.ReceiverID != receiverID {
		return 0, pkg.NewForbiddenError("only the receiver can accept this request")
	}
	n, ob, err := s.repo.Accept(ctx, requestID, receiverID)
	if err != nil {
		return 0, fmt.Errorf("accept friend request: %w", err)
	}
	countTransition(model.FriendRequestAccepted, n)
	if n != 1 {
		return n, nil
	}

	err = s.retry.Do(ctx, func() error {
		return s.graph.MergeFriendship(ctx, ob.SenderID, ob.ReceiverID)
	})
	if err != nil {
		pkg.L().Warn("friend edge write failed, left to outbox",
			zap.Uint64("request_id", requestID),
			zap.Uint64("sender_id", ob.SenderID),
			zap.Uint64("receiver_id", ob.ReceiverID),
			zap.Uint64("outbox_id", ob.ID),
			zap.Error(err))
		return n, nil
	}
	if err = s.outbox.SuccessUpdate(ctx, ob.ID); err != nil {
		// 边已写入，relayer 再 MERGE 一次也无副作用
		pkg.L().Warn("mark outbox sent failed", zap.Uint64("outbox_id", ob.ID), zap.Error(err))
	}
	return n, nil
}

// FindFriendRequests pending/cancelled 查发出的，accepted/rejected 查收到的，新的在前
func (s *FriendRequestService) FindFriendRequests(ctx context.Context, userID uint64, status model.FriendRequestStatus, page, size int) ([]model.FriendRequest, error) {
	if userID == 0 {
		return nil, pkg.NewValidationError("invalid person id")
	}
	if !status.Valid() {
		return nil, pkg.NewValidationError("invalid friend request status")
	}
	offset, limit := s.pager.Offset(page, size)
	list, err := s.repo.List(ctx, userID, status, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list friend requests: %w", err)
	}
	return list, nil
}

// precheck 先查存在性，把“不存在”和“已迁移”区分开
func (s *FriendRequestService) precheck(ctx context.Context, requestID, actorID uint64) (*model.FriendRequest, error) {
	if requestID == 0 {
		return nil, pkg.NewValidationError("request id required")
	}
	if actorID == 0 {
		return nil, pkg.NewValidationError("invalid person id")
	}
	fr, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		return nil, ledgerErr(err, "friend request")
	}
	return fr, nil
}

func countTransition(to model.FriendRequestStatus, affected int64) {
	result := "applied"
	if affected == 0 {
		result = "noop"
	}
	metrics.FriendRequestTransitions.WithLabelValues(string(to), result).Inc()
}
