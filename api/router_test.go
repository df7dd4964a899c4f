package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/BinLe1988/payday-server/configs"
	"github.com/BinLe1988/payday-server/internal/testdb"
	"github.com/BinLe1988/payday-server/models"
	"github.com/BinLe1988/payday-server/pkg/moderation"
	"github.com/BinLe1988/payday-server/pkg/risk"
	"github.com/BinLe1988/payday-server/pkg/salary"
	"github.com/BinLe1988/payday-server/pkg/utils"
	"github.com/BinLe1988/payday-server/pkg/vault"
	"github.com/BinLe1988/payday-server/pkg/words"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memoryQueue struct {
	mu   sync.Mutex
	jobs []moderation.Job
}

func (q *memoryQueue) Enqueue(_ context.Context, job moderation.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *memoryQueue) drain() []moderation.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	jobs := q.jobs
	q.jobs = nil
	return jobs
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	queue  *memoryQueue
	runner *moderation.Runner

	userToken  string
	adminToken string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.InitJWT(configs.JWT{Secret: "router-test-secret", ExpiresIn: 1})

	db := testdb.New(t)
	registry := words.NewRegistry(db, nil)
	engine := risk.NewEngine(registry, nil)
	reg := prometheus.NewRegistry()
	runner := moderation.NewRunner(db, engine, nil, moderation.NewMetrics(reg, "test"))
	v, err := vault.New("test_encryption_secret_key_32_bytes_url_safe")
	require.NoError(t, err)
	queue := &memoryQueue{}

	router := NewRouter(Deps{
		DB:       db,
		Queue:    queue,
		Words:    registry,
		Engine:   engine,
		Runner:   runner,
		Salary:   salary.NewService(db, v, nil, salary.NewMetrics(reg, "test")),
		Gatherer: reg,
		Checks: map[string]HealthCheck{
			"database": func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
		},
	})

	user := models.User{AnonymousName: "匿名打工人"}
	require.NoError(t, db.Create(&user).Error)
	hash, err := utils.HashPassword("admin-password")
	require.NoError(t, err)
	admin := models.Admin{Username: "root", PasswordHash: hash, IsActive: true}
	require.NoError(t, db.Create(&admin).Error)

	userToken, err := utils.GenerateToken(user.ID, utils.RoleUser)
	require.NoError(t, err)

	s := &testServer{router: router, db: db, queue: queue, runner: runner, userToken: userToken}

	var login struct {
		Token string `json:"token"`
	}
	w := s.do(t, http.MethodPost, "/api/admin/login", "", gin.H{"username": "root", "password": "admin-password"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	s.adminToken = login.Token
	return s
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// work 模拟 worker 消费队列中的全部任务
func (s *testServer) work(t *testing.T) {
	t.Helper()
	for _, job := range s.queue.drain() {
		require.NoError(t, s.runner.Run(context.Background(), job))
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestPostRejectedEndToEnd(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/posts", s.userToken, gin.H{"content": "联系我 13812345678"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Post models.Post `json:"post"`
	}
	decode(t, w, &created)
	assert.Equal(t, models.RiskPending, created.Post.RiskStatus)

	s.work(t)

	w = s.do(t, http.MethodGet, "/api/posts/"+created.Post.ID, s.userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Post models.Post `json:"post"`
	}
	decode(t, w, &got)
	assert.Equal(t, models.RiskRejected, got.Post.RiskStatus)
	require.NotNil(t, got.Post.RiskScore)
	assert.Equal(t, 80, *got.Post.RiskScore)

	w = s.do(t, http.MethodGet, "/api/posts", s.userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Total int64 `json:"total"`
	}
	decode(t, w, &list)
	assert.Zero(t, list.Total, "rejected posts are not listed")

	w = s.do(t, http.MethodGet, "/api/notifications", s.userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var notes struct {
		Notifications []models.Notification `json:"notifications"`
	}
	decode(t, w, &notes)
	require.Len(t, notes.Notifications, 1)
	assert.Equal(t, moderation.RejectionTitle, notes.Notifications[0].Title)
	assert.Contains(t, notes.Notifications[0].Content, "联系方式")

	w = s.do(t, http.MethodPost, "/api/notifications/"+notes.Notifications[0].ID+"/read", s.userToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodPost, "/api/notifications/missing/read", s.userToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApprovedPostAndComments(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/posts", s.userToken, gin.H{"content": "今天终于发工资了", "type": "sharing"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Post models.Post `json:"post"`
	}
	decode(t, w, &created)
	s.work(t)

	path := "/api/posts/" + created.Post.ID + "/comments"
	w = s.do(t, http.MethodPost, path, s.userToken, gin.H{"content": "恭喜"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, path, s.userToken, gin.H{"content": "加微信 abcdef123 细聊"})
	require.Equal(t, http.StatusCreated, w.Code)
	s.work(t)

	w = s.do(t, http.MethodGet, path, s.userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var comments struct {
		Comments []models.Comment `json:"comments"`
	}
	decode(t, w, &comments)
	require.Len(t, comments.Comments, 1)
	assert.Equal(t, "恭喜", comments.Comments[0].Content)

	w = s.do(t, http.MethodGet, "/api/posts?type=sharing", s.userToken, nil)
	var list struct {
		Posts []models.Post `json:"posts"`
	}
	decode(t, w, &list)
	require.Len(t, list.Posts, 1)
	assert.Equal(t, 2, list.Posts[0].CommentCount)
}

func TestSalaryEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/salaries", s.userToken, gin.H{
		"amount":     "12345.67",
		"paydayDate": "2024-06-10",
		"mood":       "happy",
		"note":       "发薪日",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Record models.SalaryRecordResponse `json:"record"`
	}
	decode(t, w, &created)
	assert.Equal(t, "12345.67", created.Record.AmountDisplay)
	assert.Len(t, s.queue.jobs, 1)

	w = s.do(t, http.MethodPost, "/api/salaries", s.userToken, gin.H{
		"amount":     "-1",
		"paydayDate": "2024-06-10",
		"mood":       "happy",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/salaries/"+created.Record.ID, s.userToken, gin.H{"amount": 9000})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated struct {
		Record models.SalaryRecordResponse `json:"record"`
	}
	decode(t, w, &updated)
	assert.Equal(t, "9000.00", updated.Record.AmountDisplay)

	w = s.do(t, http.MethodGet, "/api/salaries", s.userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Records []models.SalaryRecordResponse `json:"records"`
		Total   int64                         `json:"total"`
	}
	decode(t, w, &list)
	assert.Equal(t, int64(1), list.Total)
	assert.False(t, list.Records[0].AmountUnavailable)

	w = s.do(t, http.MethodGet, "/api/admin/salaries?needs_reencryption=false", s.adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodDelete, "/api/salaries/"+created.Record.ID, s.userToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodDelete, "/api/salaries/"+created.Record.ID, s.userToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminModeration(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/admin/sensitive-words", s.adminToken, gin.H{"word": "赌博", "category": "illegal"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, "/api/admin/sensitive-words", s.adminToken, gin.H{"word": "赌博", "category": "illegal"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/api/admin/sensitive-words/grouped", s.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var grouped struct {
		Categories map[string][]string `json:"categories"`
	}
	decode(t, w, &grouped)
	assert.Equal(t, []string{"赌博"}, grouped.Categories["illegal"])

	w = s.do(t, http.MethodPost, "/api/admin/risk/evaluate", s.adminToken, gin.H{"content": "一起去赌博"})
	require.Equal(t, http.StatusOK, w.Code)
	var eval struct {
		Score  int    `json:"score"`
		Action string `json:"action"`
		Reason string `json:"reason"`
	}
	decode(t, w, &eval)
	assert.Equal(t, 90, eval.Score)
	assert.Equal(t, "reject", eval.Action)
	assert.Equal(t, risk.SensitiveWordReason, eval.Reason)

	// 人工复核放行被自动拒绝的帖子
	w = s.do(t, http.MethodPost, "/api/posts", s.userToken, gin.H{"content": "今晚赌博吗"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Post models.Post `json:"post"`
	}
	decode(t, w, &created)
	s.work(t)

	w = s.do(t, http.MethodPut, "/api/admin/review/post/"+created.Post.ID, s.adminToken, gin.H{"status": "approved"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodPut, "/api/admin/review/video/"+created.Post.ID, s.adminToken, gin.H{"status": "approved"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodPut, "/api/admin/review/post/missing", s.adminToken, gin.H{"status": "approved"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/posts", s.userToken, nil)
	var list struct {
		Total int64 `json:"total"`
	}
	decode(t, w, &list)
	assert.Equal(t, int64(1), list.Total)
}

func TestAuthGuards(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/posts", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/posts", "garbage", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/admin/sensitive-words", s.userToken, nil).Code)

	w := s.do(t, http.MethodPost, "/api/admin/login", "", gin.H{"username": "root", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthReportsFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(Deps{
		DB: testdb.New(t),
		Checks: map[string]HealthCheck{
			"redis": func(context.Context) error { return errors.New("connection refused") },
		},
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}
