package api

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/BinLe1988/payday-server/api/handlers"
	"github.com/BinLe1988/payday-server/api/middleware"
	"github.com/BinLe1988/payday-server/pkg/moderation"
	"github.com/BinLe1988/payday-server/pkg/salary"
	"github.com/BinLe1988/payday-server/pkg/words"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HealthCheck 依赖健康检查
type HealthCheck func(ctx context.Context) error

// Deps 路由依赖
type Deps struct {
	DB          *gorm.DB
	Log         *zap.Logger
	Queue       moderation.Enqueuer
	Words       *words.Registry
	Engine      moderation.Evaluator
	Runner      handlers.Reviewer
	Salary      *salary.Service
	CORSOrigins []string
	// Gatherer 为 nil 时不暴露 /metrics
	Gatherer prometheus.Gatherer
	Checks   map[string]HealthCheck
}

// NewRouter 设置API路由
func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logger(d.Log))

	corsCfg := cors.DefaultConfig()
	if len(d.CORSOrigins) == 0 || slices.Contains(d.CORSOrigins, "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = d.CORSOrigins
	}
	corsCfg.AddAllowHeaders("Authorization")
	router.Use(cors.New(corsCfg))

	router.GET("/healthz", healthz(d.Checks))
	if d.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	authH := handlers.NewAuthHandler(d.DB, d.Log)
	postH := handlers.NewPostHandler(d.DB, d.Queue, d.Log)
	salaryH := handlers.NewSalaryHandler(d.Salary, d.Queue, d.Log)
	notifyH := handlers.NewNotificationHandler(d.DB)
	modH := handlers.NewModerationHandler(d.Words, d.Engine, d.Runner, d.Log)

	// 公共API
	public := router.Group("/api")
	{
		public.POST("/admin/login", authH.AdminLogin)
	}

	// 需要认证的API
	authorized := router.Group("/api")
	authorized.Use(middleware.Auth(d.DB))
	{
		// 帖子和评论
		authorized.POST("/posts", postH.CreatePost)
		authorized.GET("/posts", postH.ListPosts)
		authorized.GET("/posts/:id", postH.GetPost)
		authorized.POST("/posts/:id/comments", postH.CreateComment)
		authorized.GET("/posts/:id/comments", postH.ListComments)

		// 工资记录
		authorized.POST("/salaries", salaryH.Create)
		authorized.GET("/salaries", salaryH.List)
		authorized.PUT("/salaries/:id", salaryH.Update)
		authorized.DELETE("/salaries/:id", salaryH.Delete)

		// 通知
		authorized.GET("/notifications", notifyH.List)
		authorized.POST("/notifications/:id/read", notifyH.MarkRead)
	}

	// 管理端API
	admin := router.Group("/api/admin")
	admin.Use(middleware.Auth(d.DB), middleware.RequireAdmin())
	{
		modH.RegisterRoutes(admin)
		admin.GET("/salaries", salaryH.AdminList)
	}

	return router
}

func healthz(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": results})
	}
}
