package router

import (
	"net/http"

	"Lee_Social/internal/handler"
	"Lee_Social/internal/middleware"
	"Lee_Social/internal/pkg"
	"Lee_Social/internal/repository/redis"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Person        *handler.PersonHandler
	FriendRequest *handler.FriendRequestHandler
	Friend        *handler.FriendHandler
	Post          *handler.PostHandler
	Newsfeed      *handler.NewsfeedHandler
}

func InitRouter(h Handlers, tokens *pkg.TokenIssuer, sessions *redis.SessionRepository) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 账号相关接口
	personGroup := r.Group("/api/person")
	{
		personGroup.POST("/register", h.Person.Register)
		personGroup.POST("/login", h.Person.Login)
	}

	// token相关接口
	tokenGroup := r.Group("/api/token")
	{
		tokenGroup.POST("/refresh", h.Person.Refresh)
	}

	auth := r.Group("/api")
	auth.Use(middleware.Auth(tokens, sessions))
	{
		auth.GET("/person/me", h.Person.Me)
		auth.POST("/person/logout", h.Person.Logout)
		auth.DELETE("/person/me", h.Person.Delete)

		// 好友申请
		auth.POST("/friend-requests", h.FriendRequest.Send)
		auth.GET("/friend-requests", h.FriendRequest.List)
		auth.POST("/friend-requests/:id/cancel", h.FriendRequest.Cancel)
		auth.POST("/friend-requests/:id/accept", h.FriendRequest.Accept)
		auth.POST("/friend-requests/:id/reject", h.FriendRequest.Reject)

		// 好友与拉黑
		auth.GET("/friends", h.Friend.List)
		auth.GET("/friends/:id", h.Friend.Relation)
		auth.DELETE("/friends/:id", h.Friend.Unfriend)
		auth.GET("/blocks", h.Friend.Blocked)
		auth.POST("/blocks/:id", h.Friend.Block)
		auth.DELETE("/blocks/:id", h.Friend.Unblock)

		// 帖子
		auth.POST("/posts", h.Post.Save)
		auth.GET("/posts/:id", h.Post.Get)
		auth.DELETE("/posts/:id", h.Post.Delete)
		auth.POST("/posts/:id/attachments", h.Post.AddAttachment)
		auth.GET("/persons/:id/posts", h.Post.ListByUser)

		auth.GET("/newsfeed", h.Newsfeed.Fetch)
	}

	return r
}
