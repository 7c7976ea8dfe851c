package service

import (
	"context"
	"fmt"
	"time"

	"Lee_Social/internal/metrics"
	"Lee_Social/internal/model"
	"Lee_Social/internal/pkg"
	"Lee_Social/internal/repository/mysql"

	"go.uber.org/zap"
)

type Sender func(ctx context.Context, ob *model.SocialOutbox) error

// OutboxRelayer 把 social_outbox 中未投递的事件写入 Graph Store（及可选的 Kafka）。
// 重试 maxRetry 次仍失败的事件交给 FriendshipReconciler
type OutboxRelayer struct {
	repo      *mysql.OutboxRepository
	batchSize int
	maxRetry  int
	interval  time.Duration
	sender    Sender
}

func NewOutboxRelayer(repo *mysql.OutboxRepository, sender Sender, batchSize, maxRetry int, interval time.Duration) *OutboxRelayer {
	return &OutboxRelayer{
		repo:      repo,
		batchSize: batchSize,
		maxRetry:  maxRetry,
		interval:  interval,
		sender:    sender,
	}
}

// Run outbox启动器
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.DrainOnce(ctx)
		}
	}
}

// DrainOnce 投递一批，返回成功条数
func (r *OutboxRelayer) DrainOnce(ctx context.Context) int {
	rows, err := r.repo.List(ctx, r.batchSize, r.maxRetry)
	if err != nil {
		pkg.L().Error("outbox query failed", zap.Error(err))
		return 0
	}
	sent := 0
	for i := range rows {
		ob := rows[i]
		if err = r.sender(ctx, &ob); err != nil {
			metrics.OutboxDeliveries.WithLabelValues("failed").Inc()
			pkg.L().Warn("outbox delivery failed",
				zap.Uint64("outbox_id", ob.ID), zap.Int("retry", ob.Retry+1), zap.Error(err))
			if err = r.repo.RetryUpdate(ctx, ob.ID); err != nil {
				pkg.L().Error("outbox retry update failed", zap.Uint64("outbox_id", ob.ID), zap.Error(err))
			}
			continue
		}
		metrics.OutboxDeliveries.WithLabelValues("sent").Inc()
		if err = r.repo.SuccessUpdate(ctx, ob.ID); err != nil {
			pkg.L().Error("outbox success update failed", zap.Uint64("outbox_id", ob.ID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}

// GraphEdgeSender friend_accepted -> MERGE FRIEND_WITH
func GraphEdgeSender(graph GraphStore) Sender {
	return func(ctx context.Context, ob *model.SocialOutbox) error {
		if ob.EventType != model.OutboxEventFriendAccepted {
			return fmt.Errorf("unknown outbox event %q", ob.EventType)
		}
		return graph.MergeFriendship(ctx, ob.SenderID, ob.ReceiverID)
	}
}

// KafkaSender 把事件原样发到下游 topic，key 为申请 id
func KafkaSender(producer *pkg.EventProducer) Sender {
	return func(ctx context.Context, ob *model.SocialOutbox) error {
		return producer.Publish(ctx, pkg.KeyFromID(ob.RequestID), []byte(ob.Payload), map[string]string{
			"event_type": ob.EventType,
		})
	}
}

// ChainSenders 依次执行，任一失败整条事件重试；各 sender 必须幂等
func ChainSenders(senders ...Sender) Sender {
	return func(ctx context.Context, ob *model.SocialOutbox) error {
		for _, send := range senders {
			if err := send(ctx, ob); err != nil {
				return err
			}
		}
		return nil
	}
}

// FriendshipReconciler 处理重试耗尽的事件：申请仍为 accepted 且边缺失时补写
type FriendshipReconciler struct {
	outbox    *mysql.OutboxRepository
	requests  *mysql.FriendRequestRepository
	graph     GraphStore
	batchSize int
	maxRetry  int
	interval  time.Duration
	lastID    uint64
}

func NewFriendshipReconciler(outbox *mysql.OutboxRepository, requests *mysql.FriendRequestRepository, graph GraphStore, batchSize, maxRetry int, interval time.Duration) *FriendshipReconciler {
	return &FriendshipReconciler{
		outbox:    outbox,
		requests:  requests,
		graph:     graph,
		batchSize: batchSize,
		maxRetry:  maxRetry,
		interval:  interval,
	}
}

// Run 对账定时任务启动器
func (r *FriendshipReconciler) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.ReconcileOnce(ctx)
		}
	}
}

// ReconcileOnce 扫描一批，返回补写的边数。扫到末尾后游标归零
func (r *FriendshipReconciler) ReconcileOnce(ctx context.Context) int {
	rows, err := r.outbox.ListExhausted(ctx, r.lastID, r.batchSize, r.maxRetry)
	if err != nil {
		pkg.L().Error("reconcile list failed", zap.Error(err))
		return 0
	}
	if len(rows) < r.batchSize {
		r.lastID = 0
	} else {
		r.lastID = rows[len(rows)-1].ID
	}

	repaired := 0
	for _, ob := range rows {
		fr, err := r.requests.FindByID(ctx, ob.RequestID)
		if err != nil || fr.Status != model.FriendRequestAccepted {
			continue
		}
		ok, err := r.graph.AreFriends(ctx, ob.SenderID, ob.ReceiverID)
		if err != nil {
			pkg.L().Warn("reconcile check failed", zap.Uint64("request_id", ob.RequestID), zap.Error(err))
			continue
		}
		if !ok {
			if err = r.graph.MergeFriendship(ctx, ob.SenderID, ob.ReceiverID); err != nil {
				pkg.L().Warn("reconcile merge failed", zap.Uint64("request_id", ob.RequestID), zap.Error(err))
				continue
			}
			// MERGE 只匹配已有节点，有一方注销时边写不进去
			if ok, err = r.graph.AreFriends(ctx, ob.SenderID, ob.ReceiverID); err != nil {
				pkg.L().Warn("reconcile check failed", zap.Uint64("request_id", ob.RequestID), zap.Error(err))
				continue
			}
			if ok {
				repaired++
				metrics.ReconcileRepairs.Inc()
				pkg.L().Info("friend edge repaired",
					zap.Uint64("request_id", ob.RequestID),
					zap.Uint64("sender_id", ob.SenderID),
					zap.Uint64("receiver_id", ob.ReceiverID))
			}
		}
		// 只补了边，下游事件（Kafka）不再投递
		metrics.OutboxRetired.Inc()
		pkg.L().Warn("outbox event retired without downstream delivery",
			zap.Uint64("outbox_id", ob.ID),
			zap.String("event_type", ob.EventType),
			zap.Uint64("request_id", ob.RequestID),
			zap.Int("retry", ob.Retry))
		if err = r.outbox.SuccessUpdate(ctx, ob.ID); err != nil {
			pkg.L().Warn("reconcile mark sent failed", zap.Uint64("outbox_id", ob.ID), zap.Error(err))
		}
	}
	return repaired
}
