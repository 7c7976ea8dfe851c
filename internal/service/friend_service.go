package service

import (
	"context"
	"fmt"

	"Lee_Social/internal/model"
	"Lee_Social/internal/pkg"
	"Lee_Social/internal/repository/mysql"

	"go.uber.org/zap"
)

// FriendService 好友和拉黑，只读写 Graph Store
type FriendService struct {
	graph   GraphStore
	persons *mysql.PersonRepository
	pager   pkg.Pager
}

func NewFriendService(graph GraphStore, persons *mysql.PersonRepository, pager pkg.Pager) *FriendService {
	return &FriendService{graph: graph, persons: persons, pager: pager}
}

// FindFriends 好友按 id 升序分页
func (s *FriendService) FindFriends(ctx context.Context, userID uint64, page, size int) ([]model.Person, error) {
	if userID == 0 {
		return nil, pkg.NewValidationError("invalid person id")
	}
	offset, limit := s.pager.Offset(page, size)
	ids, err := s.graph.FindFriendIDs(ctx, userID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("load friends: %w", err)
	}
	list, err := s.persons.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load persons: %w", err)
	}
	return list, nil
}

func (s *FriendService) IsFriend(ctx context.Context, a, b uint64) (bool, error) {
	if err := validPair(a, b); err != nil {
		return false, err
	}
	return s.graph.AreFriends(ctx, a, b)
}

// Unfriend 删除 FRIEND_WITH，本来不是好友也返回成功
func (s *FriendService) Unfriend(ctx context.Context, a, b uint64) error {
	if err := validPair(a, b); err != nil {
		return err
	}
	if err := s.graph.DeleteFriendship(ctx, a, b); err != nil {
		return fmt.Errorf("unfriend: %w", err)
	}
	pkg.L().Info("friendship removed", zap.Uint64("person_id", a), zap.Uint64("other_id", b))
	return nil
}

// Block a 拉黑 b，之后双方都不能再发好友申请。b 未注册返回 NotFound
func (s *FriendService) Block(ctx context.Context, a, b uint64) error {
	if err := validPair(a, b); err != nil {
		return err
	}
	if err := requirePerson(ctx, s.persons, b); err != nil {
		return err
	}
	if err := s.graph.MergeBlock(ctx, a, b); err != nil {
		return fmt.Errorf("block: %w", err)
	}
	return nil
}

func (s *FriendService) Unblock(ctx context.Context, a, b uint64) error {
	if err := validPair(a, b); err != nil {
		return err
	}
	if err := s.graph.DeleteBlock(ctx, a, b); err != nil {
		return fmt.Errorf("unblock: %w", err)
	}
	return nil
}

func (s *FriendService) FindBlocked(ctx context.Context, userID uint64) ([]uint64, error) {
	if userID == 0 {
		return nil, pkg.NewValidationError("invalid person id")
	}
	return s.graph.FindBlockedIDs(ctx, userID)
}
