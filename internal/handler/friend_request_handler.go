package handler

import (
	"context"
	"net/http"

	"Lee_Social/internal/middleware"
	"Lee_Social/internal/model"
	"Lee_Social/internal/service"

	"github.com/gin-gonic/gin"
)

type FriendRequestHandler struct {
	svc *service.FriendRequestService
}

func NewFriendRequestHandler(svc *service.FriendRequestService) *FriendRequestHandler {
	return &FriendRequestHandler{svc: svc}
}

type sendFriendRequestReq struct {
	ReceiverID uint64 `json:"receiver_id" binding:"required"`
}

// Send 发送好友申请；被拉黑或已是好友时 created=false 且 request 为空
func (h *FriendRequestHandler) Send(c *gin.Context) {
	var req sendFriendRequestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	fr, created, err := h.svc.SendFriendRequest(c.Request.Context(), middleware.PersonID(c), req.ReceiverID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": fr, "created": created})
}

func (h *FriendRequestHandler) Cancel(c *gin.Context) {
	h.transition(c, h.svc.CancelFriendRequest)
}

func (h *FriendRequestHandler) Reject(c *gin.Context) {
	h.transition(c, h.svc.RejectFriendRequest)
}

func (h *FriendRequestHandler) Accept(c *gin.Context) {
	h.transition(c, h.svc.AcceptFriendRequest)
}

// List ?status=pending|accepted|rejected|cancelled&page=0&size=15
func (h *FriendRequestHandler) List(c *gin.Context) {
	page, size := pageQuery(c)
	status := model.FriendRequestStatus(c.DefaultQuery("status", string(model.FriendRequestPending)))
	list, err := h.svc.FindFriendRequests(c.Request.Context(), middleware.PersonID(c), status, page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}

func (h *FriendRequestHandler) transition(c *gin.Context, fn func(ctx context.Context, requestID, actorID uint64) (int64, error)) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	n, err := fn(c.Request.Context(), id, middleware.PersonID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"affected": n})
}
