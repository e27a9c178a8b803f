package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/drivevault/pkg/configs"
	"github.com/yeisme/drivevault/pkg/metrics"
)

func TestInitMetricsIsIdempotent(t *testing.T) {
	cfg := configs.MetricsConfig{Enabled: true, Path: "/metrics"}

	if err := metrics.InitMetrics(cfg); err != nil {
		t.Fatalf("first init: %v", err)
	}

	if err := metrics.InitMetrics(cfg); err != nil {
		t.Fatalf("second init: %v", err)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := configs.MetricsConfig{Enabled: true, Path: "/metrics"}
	if err := metrics.InitMetrics(cfg); err != nil {
		t.Fatalf("init: %v", err)
	}

	metrics.PermissionDecisions.WithLabelValues("allowed").Inc()

	engine := gin.New()
	if err := metrics.StartMetricsServer(cfg, engine); err != nil {
		t.Fatalf("start: %v", err)
	}

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if !strings.Contains(rec.Body.String(), "drivevault_permission_decisions_total") {
		t.Fatalf("missing domain counter in output")
	}
}
