package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FanoutPushes 每次扇出推送的接收者数量，按结果区分
	FanoutPushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "social_fanout_pushes_total",
		Help: "Newsfeed pushes by result",
	}, []string{"result"})

	// FanoutRecipients 单次发布的好友数分布
	FanoutRecipients = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "social_fanout_recipients",
		Help:    "Number of friends reached by a single publish",
		Buckets: []float64{0, 1, 10, 50, 100, 500, 1000, 5000},
	})

	// PostViewLookups 帖子视图缓存命中情况
	PostViewLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "social_post_view_lookups_total",
		Help: "Cached post view lookups by result (hit, miss, gone)",
	}, []string{"result"})

	// FriendRequestTransitions 好友申请状态迁移，result=applied/noop
	FriendRequestTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "social_friend_request_transitions_total",
		Help: "Friend request transitions by target status and result",
	}, []string{"status", "result"})

	// OutboxDeliveries outbox 投递结果
	OutboxDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "social_outbox_deliveries_total",
		Help: "Outbox deliveries by result",
	}, []string{"result"})

	// ReconcileRepairs 对账补齐的 FRIEND_WITH 边
	ReconcileRepairs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "social_reconcile_repairs_total",
		Help: "FRIEND_WITH edges re-created by the reconciler",
	})

	// OutboxRetired 重试耗尽后由对账结束的事件，下游没有收到
	OutboxRetired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "social_outbox_retired_total",
		Help: "Outbox events closed by the reconciler without downstream delivery",
	})
)
