package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Lee_Social/internal/config"
	"Lee_Social/internal/handler"
	"Lee_Social/internal/pkg"
	"Lee_Social/internal/repository/mysql"
	graphrepo "Lee_Social/internal/repository/neo4j"
	"Lee_Social/internal/repository/redis"
	"Lee_Social/internal/router"
	"Lee_Social/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err = pkg.InitLogger(cfg.Env); err != nil {
		panic(err)
	}
	defer pkg.SyncLogger()
	log := pkg.L()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := mysql.InitDB(cfg.MySQLDSN)
	if err != nil {
		log.Fatal("connect mysql failed", zap.Error(err))
	}
	// 自动建表（开发阶段 OK）
	if err = mysql.AutoMigrate(db); err != nil {
		log.Fatal("auto migrate failed", zap.Error(err))
	}

	// 连接redis
	rdb, err := redis.Init(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal("connect redis failed", zap.Error(err))
	}
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""))
	if err != nil {
		log.Fatal("create neo4j driver failed", zap.Error(err))
	}
	defer driver.Close(context.Background())
	if err = driver.VerifyConnectivity(ctx); err != nil {
		log.Fatal("connect neo4j failed", zap.Error(err))
	}
	graph := graphrepo.NewGraphRepository(driver)
	if err = graph.EnsureSchema(ctx); err != nil {
		log.Fatal("ensure graph schema failed", zap.Error(err))
	}

	social := cfg.Social
	pager := pkg.Pager{DefaultSize: social.DefaultPageSize, MaxSize: social.MaxPageSize}
	retry := service.DefaultRetryPolicy()
	tokens := pkg.NewTokenIssuer(cfg.AccessSecret, cfg.RefreshSecret)

	personRepo := &mysql.PersonRepository{DB: db}
	postRepo := &mysql.PostRepository{DB: db}
	requestRepo := &mysql.FriendRequestRepository{DB: db}
	outboxRepo := &mysql.OutboxRepository{DB: db}
	sessions := redis.NewSessionRepository(rdb)
	feeds := redis.NewFeedCacheRepository(rdb, social.MaxNewsfeedSize, social.PostViewTTL)

	newsfeedSvc := service.NewNewsfeedService(graph, feeds, redis.NewDistLock(rdb), postRepo, social.FanoutBatchSize, social.FanoutParallelism)
	personSvc := service.NewPersonService(personRepo, sessions, graph, tokens, retry)
	requestSvc := service.NewFriendRequestService(requestRepo, outboxRepo, personRepo, graph, pager, retry)
	friendSvc := service.NewFriendService(graph, personRepo, pager)
	postSvc := service.NewPostService(postRepo, graph, newsfeedSvc, newsfeedSvc, pager)

	// outbox 投递链：先写图，配置了 kafka 再发事件
	sender := service.GraphEdgeSender(graph)
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := pkg.NewEventProducer(pkg.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		if err != nil {
			log.Fatal("create kafka producer failed", zap.Error(err))
		}
		defer producer.Close()
		sender = service.ChainSenders(sender, service.KafkaSender(producer))
	}
	relayer := service.NewOutboxRelayer(outboxRepo, sender, social.OutboxBatchSize, social.OutboxMaxRetry, social.OutboxInterval)
	reconciler := service.NewFriendshipReconciler(outboxRepo, requestRepo, graph, social.ReconcileBatchSize, social.OutboxMaxRetry, social.ReconcileInterval)
	go relayer.Run(ctx)
	go reconciler.Run(ctx)

	r := router.InitRouter(router.Handlers{
		Person:        handler.NewPersonHandler(personSvc),
		FriendRequest: handler.NewFriendRequestHandler(requestSvc),
		Friend:        handler.NewFriendHandler(friendSvc),
		Post:          handler.NewPostHandler(postSvc),
		Newsfeed:      handler.NewNewsfeedHandler(newsfeedSvc),
	}, tokens, sessions)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
}
