package handler

import (
	"net/http"

	"Lee_Social/internal/middleware"
	"Lee_Social/internal/service"

	"github.com/gin-gonic/gin"
)

type FriendHandler struct {
	svc *service.FriendService
}

func NewFriendHandler(svc *service.FriendService) *FriendHandler {
	return &FriendHandler{svc: svc}
}

// List 好友列表
func (h *FriendHandler) List(c *gin.Context) {
	page, size := pageQuery(c)
	list, err := h.svc.FindFriends(c.Request.Context(), middleware.PersonID(c), page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}

// Relation 是否为好友
func (h *FriendHandler) Relation(c *gin.Context) {
	other, ok := paramID(c, "id")
	if !ok {
		return
	}
	yes, err := h.svc.IsFriend(c.Request.Context(), middleware.PersonID(c), other)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": yes})
}

func (h *FriendHandler) Unfriend(c *gin.Context) {
	other, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Unfriend(c.Request.Context(), middleware.PersonID(c), other); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FriendHandler) Block(c *gin.Context) {
	other, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Block(c.Request.Context(), middleware.PersonID(c), other); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FriendHandler) Unblock(c *gin.Context) {
	other, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Unblock(c.Request.Context(), middleware.PersonID(c), other); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FriendHandler) Blocked(c *gin.Context) {
	ids, err := h.svc.FindBlocked(c.Request.Context(), middleware.PersonID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": ids})
}
