package handler

import (
	"net/http"

	"Lee_Social/internal/middleware"
	"Lee_Social/internal/service"

	"github.com/gin-gonic/gin"
)

type NewsfeedHandler struct {
	svc *service.NewsfeedService
}

func NewNewsfeedHandler(svc *service.NewsfeedService) *NewsfeedHandler {
	return &NewsfeedHandler{svc: svc}
}

// Fetch 当前用户的信息流，新的在前
func (h *NewsfeedHandler) Fetch(c *gin.Context) {
	list, err := h.svc.FetchNewsfeed(c.Request.Context(), middleware.PersonID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}
