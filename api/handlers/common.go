package handlers

import (
	"context"
	"strconv"

	"github.com/BinLe1988/payday-server/pkg/moderation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pagination 读取 page/size 查询参数
func pagination(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ = strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(defaultPageSize)))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > maxPageSize {
		size = defaultPageSize
	}
	return page, size
}

// submit 提交审核任务，失败时内容保持 pending，由补偿扫描重新入队
func submit(ctx context.Context, q moderation.Enqueuer, log *zap.Logger, kind moderation.Kind, id string) {
	if err := q.Enqueue(ctx, moderation.Job{Kind: kind, ContentID: id}); err != nil {
		log.Error("enqueue moderation job failed, content stays pending",
			zap.String("kind", string(kind)),
			zap.String("content_id", id),
			zap.Error(err),
		)
	}
}
