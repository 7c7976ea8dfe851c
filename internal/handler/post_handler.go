package handler

import (
	"errors"
	"io"
	"net/http"

	"Lee_Social/internal/middleware"
	"Lee_Social/internal/service"

	"github.com/gin-gonic/gin"
)

// 类型识别只需要文件头
const sniffLen = 3072

type PostHandler struct {
	svc *service.PostService
}

func NewPostHandler(svc *service.PostService) *PostHandler {
	return &PostHandler{svc: svc}
}

// Save 新建或修改帖子，status 决定走哪条分支
func (h *PostHandler) Save(c *gin.Context) {
	var req service.SavePostInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	post, err := h.svc.SavePost(c.Request.Context(), middleware.PersonID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	view, err := h.svc.FindPost(c.Request.Context(), middleware.PersonID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ListByUser 某个用户的帖子
func (h *PostHandler) ListByUser(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}
	page, size := pageQuery(c)
	list, err := h.svc.FindPostsByUser(c.Request.Context(), middleware.PersonID(c), userID, page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}

// Delete 删除帖子接口
func (h *PostHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	n, err := h.svc.DeletePost(c.Request.Context(), middleware.PersonID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"affected": n})
}

// AddAttachment multipart：url 为已上传文件地址，file 只用于识别类型
func (h *PostHandler) AddAttachment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "file required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid file"})
		return
	}
	defer f.Close()
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid file"})
		return
	}

	link, err := h.svc.AddAttachment(c.Request.Context(), middleware.PersonID(c), id, c.PostForm("url"), head[:n])
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, link)
}
