package handle_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/drivevault/pkg/configs"
	"github.com/yeisme/drivevault/pkg/internal/handle"
	"github.com/yeisme/drivevault/pkg/internal/router"
	"github.com/yeisme/drivevault/pkg/internal/service"
	"github.com/yeisme/drivevault/pkg/internal/store"
	"github.com/yeisme/drivevault/pkg/internal/store/memstore"
	"github.com/yeisme/drivevault/pkg/middleware"
	"github.com/yeisme/drivevault/pkg/scheduler"
)

const userHeader = "X-User-Id"

type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (b *memBlobs) PutObject(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[key] = data

	return nil
}

func (b *memBlobs) RemoveObject(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.objects, key)

	return nil
}

func (b *memBlobs) PresignGet(_ context.Context, key string, opts store.PresignOptions) (string, error) {
	if opts.Inline {
		return "https://blobs.test/" + key + "?inline=1", nil
	}

	return "https://blobs.test/" + key, nil
}

type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

type server struct {
	t      *testing.T
	engine *gin.Engine
}

func newServer(t *testing.T, mutate ...func(*service.Options, *configs.AppConfig)) *server {
	t.Helper()

	return newServerWith(t, nil, mutate...)
}

// newServerWith 在认证之前额外挂载中间件.
func newServerWith(t *testing.T, pre []gin.HandlerFunc, mutate ...func(*service.Options, *configs.AppConfig)) *server {
	t.Helper()

	gin.SetMode(gin.TestMode)

	opts := service.DefaultOptions()
	opts.PasswordIterations = 1000
	opts.SweepProbability = 0
	opts.RateLimitEnabled = false

	cfg := &configs.AppConfig{}
	cfg.Auth = configs.AuthConfig{
		Mode:        configs.AuthModeHeader,
		UserHeaders: []string{userHeader},
		SkipPaths:   []string{"/api/v1/public", "/api/v1/health"},
		Admins:      []string{"root"},
	}

	for _, m := range mutate {
		m(&opts, cfg)
	}

	logger := zerolog.Nop()
	svc := service.New(service.Deps{
		Store:  memstore.New(),
		Blobs:  &memBlobs{objects: make(map[string][]byte)},
		Logger: &logger,
	}, opts)

	engine := gin.New()
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(pre...)
	engine.Use(middleware.AuthMiddleware(cfg.Auth))
	router.Register(engine, handle.New(svc), cfg, svc.RateLimiter)

	return &server{t: t, engine: engine}
}

func (s *server) do(method, path, user string, body any) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := sonic.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal body: %v", err)
		}

		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return s.send(req, user)
}

func (s *server) send(req *http.Request, user string) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()

	if user != "" {
		req.Header.Set(userHeader, user)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if err := sonic.Unmarshal(w.Body.Bytes(), &env); err != nil {
		s.t.Fatalf("%s %s: decode %q: %v", req.Method, req.URL.Path, w.Body.String(), err)
	}

	return w, env
}

// uploadRequest 构造 multipart 上传请求.
func (s *server) uploadRequest(name, content string) *http.Request {
	s.t.Helper()

	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		s.t.Fatalf("create form file: %v", err)
	}

	if _, err := part.Write([]byte(content)); err != nil {
		s.t.Fatalf("write part: %v", err)
	}

	if err := mw.Close(); err != nil {
		s.t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return req
}

func (s *server) upload(user, name, content string) string {
	s.t.Helper()

	w, env := s.send(s.uploadRequest(name, content), user)
	if w.Code != http.StatusCreated {
		s.t.Fatalf("upload: status %d body %s", w.Code, w.Body.String())
	}

	return field(s.t, env, "id")
}

func (s *server) createFolder(user, name string, parent *string) string {
	s.t.Helper()

	body := map[string]any{"name": name}
	if parent != nil {
		body["parent_id"] = *parent
	}

	w, env := s.do(http.MethodPost, "/api/v1/folders", user, body)
	if w.Code != http.StatusCreated {
		s.t.Fatalf("create folder %s: status %d body %s", name, w.Code, w.Body.String())
	}

	return field(s.t, env, "id")
}

func field(t *testing.T, env envelope, key string) string {
	t.Helper()

	data, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatalf("data is %T, want object", env.Data)
	}

	v, _ := data[key].(string)

	return v
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, env envelope, status int, code string) {
	t.Helper()

	if w.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, status, w.Body.String())
	}

	if env.Success || env.Error == nil {
		t.Fatalf("expected error envelope, got %s", w.Body.String())
	}

	if env.Error.Code != code {
		t.Fatalf("code = %s, want %s", env.Error.Code, code)
	}
}

func TestRequiresCaller(t *testing.T) {
	s := newServer(t)

	w, env := s.do(http.MethodGet, "/api/v1/folders", "", nil)
	expectError(t, w, env, http.StatusUnauthorized, "UNAUTHENTICATED")
}

func TestFolderLifecycle(t *testing.T) {
	s := newServer(t)

	id := s.createFolder("alice", "docs", nil)

	w, env := s.do(http.MethodGet, "/api/v1/folders", "alice", nil)
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}

	if !strings.Contains(w.Body.String(), id) {
		t.Fatalf("root listing does not contain %s: %s", id, w.Body.String())
	}

	w, env = s.do(http.MethodPatch, "/api/v1/folders/"+id, "alice", map[string]string{"name": "papers"})
	if w.Code != http.StatusOK {
		t.Fatalf("rename: %d %s", w.Code, w.Body.String())
	}

	if got := field(t, env, "name"); got != "papers" {
		t.Fatalf("name = %q, want papers", got)
	}

	w, env = s.do(http.MethodGet, "/api/v1/folders/"+id, "bob", nil)
	expectError(t, w, env, http.StatusForbidden, "FORBIDDEN")

	w, _ = s.do(http.MethodDelete, "/api/v1/folders/"+id, "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("trash: %d %s", w.Code, w.Body.String())
	}

	w, env = s.do(http.MethodDelete, "/api/v1/folders/"+id, "alice", nil)
	expectError(t, w, env, http.StatusBadRequest, "ALREADY_IN_TRASH")
}

func TestValidationErrors(t *testing.T) {
	s := newServer(t)

	w, env := s.do(http.MethodPost, "/api/v1/folders", "alice", map[string]string{"name": ""})
	expectError(t, w, env, http.StatusBadRequest, "INVALID_INPUT")

	if _, ok := env.Error.Fields["name"]; !ok {
		t.Fatalf("expected field error for name, got %v", env.Error.Fields)
	}

	w, env = s.do(http.MethodPost, "/api/v1/trash/document/x/restore", "alice", nil)
	expectError(t, w, env, http.StatusBadRequest, "INVALID_INPUT")

	w, env = s.do(http.MethodPost, "/api/v1/shares", "alice", map[string]string{
		"resource_type":   "folder",
		"resource_id":     "fo_x",
		"grantee_user_id": "bob",
		"role":            "owner",
	})
	expectError(t, w, env, http.StatusBadRequest, "INVALID_INPUT")
}

func TestUploadSizeLimit(t *testing.T) {
	s := newServer(t, func(o *service.Options, _ *configs.AppConfig) { o.MaxUploadBytes = 16 })

	s.upload("alice", "small.txt", "fits")

	w, env := s.send(s.uploadRequest("over.txt", strings.Repeat("x", 17)), "alice")
	expectError(t, w, env, http.StatusBadRequest, "FILE_TOO_LARGE")

	// 超过上限加余量的请求体在解析 multipart 时就被截断
	w, env = s.send(s.uploadRequest("huge.bin", strings.Repeat("x", 2<<20)), "alice")
	expectError(t, w, env, http.StatusBadRequest, "FILE_TOO_LARGE")
}

func TestMoveErrors(t *testing.T) {
	s := newServer(t)

	a := s.createFolder("alice", "a", nil)
	b := s.createFolder("alice", "b", &a)

	w, env := s.do(http.MethodPost, "/api/v1/folders/"+a+"/move", "alice", map[string]string{"parent_id": a})
	expectError(t, w, env, http.StatusBadRequest, "CANNOT_MOVE_INTO_SELF")

	w, env = s.do(http.MethodPost, "/api/v1/folders/"+a+"/move", "alice", map[string]string{"parent_id": b})
	expectError(t, w, env, http.StatusBadRequest, "WOULD_CREATE_CYCLE")

	w, env = s.do(http.MethodPost, "/api/v1/folders/"+b+"/move", "alice", map[string]any{})
	if w.Code != http.StatusOK {
		t.Fatalf("move to root: %d %s", w.Code, w.Body.String())
	}

	data, _ := env.Data.(map[string]any)
	if data["parent_id"] != nil {
		t.Fatalf("parent_id = %v, want null", data["parent_id"])
	}
}

func TestShareGrantsInheritedAccess(t *testing.T) {
	s := newServer(t)

	root := s.createFolder("alice", "team", nil)
	child := s.createFolder("alice", "notes", &root)

	w, env := s.do(http.MethodPost, "/api/v1/shares", "alice", map[string]string{
		"resource_type":   "folder",
		"resource_id":     root,
		"grantee_user_id": "bob",
		"role":            "viewer",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("share: %d %s", w.Code, w.Body.String())
	}

	shareID := field(t, env, "id")

	w, env = s.do(http.MethodGet, "/api/v1/permissions/folder/"+child+"?role=viewer", "bob", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("permission: %d %s", w.Code, w.Body.String())
	}

	data, _ := env.Data.(map[string]any)
	if data["allowed"] != true || data["reason"] != service.ReasonShare {
		t.Fatalf("viewer decision = %v", data)
	}

	_, env = s.do(http.MethodGet, "/api/v1/permissions/folder/"+child+"?role=editor", "bob", nil)

	data, _ = env.Data.(map[string]any)
	if data["allowed"] != false {
		t.Fatalf("editor decision = %v, want denied", data)
	}

	w, env = s.do(http.MethodGet, "/api/v1/shares/incoming", "bob", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), shareID) {
		t.Fatalf("incoming: %d %s", w.Code, w.Body.String())
	}

	w, env = s.do(http.MethodPost, "/api/v1/shares", "alice", map[string]string{
		"resource_type":   "folder",
		"resource_id":     root,
		"grantee_user_id": "bob",
		"role":            "editor",
	})
	expectError(t, w, env, http.StatusConflict, "SHARE_EXISTS")

	w, _ = s.do(http.MethodDelete, "/api/v1/shares/"+shareID, "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete share: %d %s", w.Code, w.Body.String())
	}

	w, env = s.do(http.MethodGet, "/api/v1/folders/"+child, "bob", nil)
	expectError(t, w, env, http.StatusForbidden, "FORBIDDEN")
}

func TestPublicLinkFlow(t *testing.T) {
	s := newServer(t)

	fileID := s.upload("alice", "report.pdf", "quarterly numbers")

	w, env := s.do(http.MethodPost, "/api/v1/links", "alice", map[string]string{
		"resource_type": "file",
		"resource_id":   fileID,
		"password":      "hunter2",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create link: %d %s", w.Code, w.Body.String())
	}

	token := field(t, env, "token")
	if token == "" {
		t.Fatal("empty link token")
	}

	w, env = s.do(http.MethodGet, "/api/v1/public/links/"+token, "", nil)
	expectError(t, w, env, http.StatusUnauthorized, "PASSWORD_REQUIRED")

	w, env = s.do(http.MethodPost, "/api/v1/public/links/"+token, "", map[string]string{"password": "wrong"})
	expectError(t, w, env, http.StatusUnauthorized, "INVALID_PASSWORD")

	w, env = s.do(http.MethodPost, "/api/v1/public/links/"+token, "", map[string]string{"password": "hunter2"})
	if w.Code != http.StatusOK {
		t.Fatalf("resolve: %d %s", w.Code, w.Body.String())
	}

	if url := field(t, env, "download_url"); !strings.HasPrefix(url, "https://blobs.test/") {
		t.Fatalf("download_url = %q", url)
	}

	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("Cache-Control = %q, want no-store", got)
	}

	w, env = s.do(http.MethodGet, "/api/v1/public/links/not-a-token", "", nil)
	expectError(t, w, env, http.StatusNotFound, "LINK_NOT_FOUND")
}

func TestExpiredLink(t *testing.T) {
	s := newServer(t)

	folderID := s.createFolder("alice", "old", nil)

	w, env := s.do(http.MethodPost, "/api/v1/links", "alice", map[string]any{
		"resource_type": "folder",
		"resource_id":   folderID,
		"expires_at":    time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create link: %d %s", w.Code, w.Body.String())
	}

	w, env = s.do(http.MethodGet, "/api/v1/public/links/"+field(t, env, "token"), "", nil)
	expectError(t, w, env, http.StatusGone, "LINK_EXPIRED")
}

func TestTrashRestoreAndPurge(t *testing.T) {
	s := newServer(t)

	parent := s.createFolder("alice", "projects", nil)
	s.createFolder("alice", "draft", &parent)

	w, env := s.do(http.MethodPost, "/api/v1/trash/folder/"+parent+"/restore", "alice", nil)
	expectError(t, w, env, http.StatusBadRequest, "NOT_IN_TRASH")

	s.do(http.MethodDelete, "/api/v1/folders/"+parent, "alice", nil)

	w, _ = s.do(http.MethodGet, "/api/v1/trash", "alice", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), parent) {
		t.Fatalf("trash listing: %d %s", w.Code, w.Body.String())
	}

	w, _ = s.do(http.MethodPost, "/api/v1/trash/folder/"+parent+"/restore", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("restore: %d %s", w.Code, w.Body.String())
	}

	w, env = s.do(http.MethodDelete, "/api/v1/trash/folder/"+parent, "alice", nil)
	expectError(t, w, env, http.StatusBadRequest, "NOT_IN_TRASH")

	s.do(http.MethodDelete, "/api/v1/folders/"+parent, "alice", nil)

	w, env = s.do(http.MethodDelete, "/api/v1/trash/folder/"+parent, "bob", nil)
	expectError(t, w, env, http.StatusForbidden, "FORBIDDEN")

	w, env = s.do(http.MethodDelete, "/api/v1/trash/folder/"+parent, "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("purge: %d %s", w.Code, w.Body.String())
	}

	data, _ := env.Data.(map[string]any)

	folders, _ := data["folder_ids"].([]any)
	if len(folders) != 2 {
		t.Fatalf("purged folders = %v, want 2", data["folder_ids"])
	}

	w, env = s.do(http.MethodGet, "/api/v1/folders/"+parent, "alice", nil)
	expectError(t, w, env, http.StatusNotFound, "NOT_FOUND")
}

func TestStars(t *testing.T) {
	s := newServer(t)

	id := s.createFolder("alice", "fav", nil)

	for range 2 {
		w, _ := s.do(http.MethodPost, "/api/v1/stars", "alice", map[string]string{"resource_type": "folder", "resource_id": id})
		if w.Code != http.StatusOK {
			t.Fatalf("star: %d %s", w.Code, w.Body.String())
		}
	}

	_, env := s.do(http.MethodGet, "/api/v1/stars", "alice", nil)

	stars, _ := env.Data.([]any)
	if len(stars) != 1 {
		t.Fatalf("stars = %d, want 1", len(stars))
	}

	w, _ := s.do(http.MethodDelete, "/api/v1/stars/folder/"+id, "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unstar: %d %s", w.Code, w.Body.String())
	}
}

func TestRateLimitHeaders(t *testing.T) {
	s := newServer(t, func(o *service.Options, _ *configs.AppConfig) {
		o.RateLimitEnabled = true
		o.RateMax = 2
		o.RateWindow = time.Minute
	})

	for i := range 2 {
		w, _ := s.do(http.MethodGet, "/api/v1/stars", "alice", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: %d %s", i, w.Code, w.Body.String())
		}

		if got := w.Header().Get(middleware.HeaderRateLimit); got != "2" {
			t.Fatalf("%s = %q, want 2", middleware.HeaderRateLimit, got)
		}
	}

	w, env := s.do(http.MethodGet, "/api/v1/stars", "alice", nil)
	expectError(t, w, env, http.StatusTooManyRequests, "RATE_LIMITED")

	if w.Header().Get(middleware.HeaderRetryAfter) == "" {
		t.Fatal("missing Retry-After on 429")
	}

	if got := w.Header().Get(middleware.HeaderRateRemaining); got != "0" {
		t.Fatalf("remaining = %q, want 0", got)
	}

	w, _ = s.do(http.MethodGet, "/api/v1/stars", "bob", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("other user limited: %d", w.Code)
	}
}

func TestPublicPathLimitedByIP(t *testing.T) {
	s := newServer(t, func(_ *service.Options, c *configs.AppConfig) {
		c.RateLimit.Public = configs.PublicRateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1}
	})

	w, env := s.do(http.MethodGet, "/api/v1/public/links/guess-1", "", nil)
	expectError(t, w, env, http.StatusNotFound, "LINK_NOT_FOUND")

	w, env = s.do(http.MethodGet, "/api/v1/public/links/guess-2", "", nil)
	expectError(t, w, env, http.StatusTooManyRequests, "RATE_LIMITED")
}

func TestAdminJobs(t *testing.T) {
	s := newServer(t)

	w, env := s.do(http.MethodGet, "/api/v1/admin/jobs", "alice", nil)
	expectError(t, w, env, http.StatusForbidden, "FORBIDDEN")

	w, env = s.do(http.MethodGet, "/api/v1/admin/jobs", "root", nil)
	expectError(t, w, env, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE")
}

func TestAdminJobDetailAndRun(t *testing.T) {
	sched, err := scheduler.NewScheduler()
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	t.Cleanup(func() { _ = sched.Shutdown() })

	ran := make(chan struct{}, 1)

	err = sched.AddCron(context.Background(), "trash.autoclean", "0 3 * * *", func(context.Context) error {
		ran <- struct{}{}

		return nil
	})
	if err != nil {
		t.Fatalf("add cron: %v", err)
	}

	sched.Start()

	s := newServerWith(t, []gin.HandlerFunc{middleware.InjectMiddleware(nil, sched)})

	w, env := s.do(http.MethodGet, "/api/v1/admin/jobs/trash.autoclean", "root", nil)
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("job detail: %d %s", w.Code, w.Body.String())
	}

	if data, _ := env.Data.(map[string]any); data["name"] != "trash.autoclean" || data["cron_expr"] != "0 3 * * *" {
		t.Errorf("unexpected job info %v", env.Data)
	}

	w, env = s.do(http.MethodGet, "/api/v1/admin/jobs/missing", "root", nil)
	expectError(t, w, env, http.StatusNotFound, "NOT_FOUND")

	w, env = s.do(http.MethodPost, "/api/v1/admin/jobs/trash.autoclean/run", "root", nil)
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("run job: %d %s", w.Code, w.Body.String())
	}

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestHealthWithoutStorage(t *testing.T) {
	s := newServer(t)

	w, env := s.do(http.MethodGet, "/api/v1/health/db", "", nil)
	expectError(t, w, env, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE")
}
