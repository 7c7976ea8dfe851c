package handler

import (
	"net/http"
	"strconv"

	"Lee_Social/internal/pkg"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError 业务错误按分类返回状态码，未知错误统一 500 并记日志
func respondError(c *gin.Context, err error) {
	status := pkg.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		pkg.L().Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"msg": "internal error"})
		return
	}
	c.JSON(status, gin.H{"msg": err.Error()})
}

func paramID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid " + name})
		return 0, false
	}
	return id, true
}

// pageQuery page 从 0 开始，缺省时交给 Pager 处理
func pageQuery(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("size"))
	return page, size
}
