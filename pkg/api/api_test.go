package api_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/drivevault/pkg/api"
	"github.com/yeisme/drivevault/pkg/apperr"
)

func run(h gin.HandlerFunc) (*httptest.ResponseRecorder, api.Envelope) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	var env api.Envelope
	_ = sonic.Unmarshal(w.Body.Bytes(), &env)

	return w, env
}

func TestFail(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"sentinel", apperr.ErrForbidden, http.StatusForbidden, apperr.ErrForbidden.Code},
		{"wrapped", apperr.ErrLinkExpired.WithCause(errors.New("db")), http.StatusGone, apperr.ErrLinkExpired.Code},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, apperr.ErrInternal.Code},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, env := run(func(c *gin.Context) { api.Fail(c, tc.err) })

			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d", w.Code, tc.status)
			}

			if env.Success || env.Error == nil || env.Error.Code != tc.code {
				t.Fatalf("unexpected envelope %s", w.Body.String())
			}
		})
	}
}

func TestFailHidesInternalCause(t *testing.T) {
	w, env := run(func(c *gin.Context) { api.Fail(c, errors.New("dsn=postgres://secret")) })

	if env.Error == nil || env.Error.Message != apperr.ErrInternal.Message {
		t.Fatalf("internal detail leaked: %s", w.Body.String())
	}
}

func TestOKAndInvalid(t *testing.T) {
	w, env := run(func(c *gin.Context) { api.OK(c, gin.H{"id": "fo_1"}) })
	if w.Code != http.StatusOK || !env.Success || env.Error != nil {
		t.Fatalf("unexpected ok response %d %s", w.Code, w.Body.String())
	}

	w, env = run(func(c *gin.Context) { api.Invalid(c, "bad", map[string]string{"name": "failed on required"}) })
	if w.Code != http.StatusBadRequest || env.Error == nil || env.Error.Fields["name"] == "" {
		t.Fatalf("unexpected invalid response %d %s", w.Code, w.Body.String())
	}
}
