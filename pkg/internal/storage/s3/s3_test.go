package s3_test

import (
	"errors"
	"strings"
	"testing"

	minio "github.com/minio/minio-go/v7"

	s3c "github.com/yeisme/drivevault/pkg/internal/storage/s3"
)

func TestContentDisposition(t *testing.T) {
	if got := s3c.ContentDisposition("", true); got != "inline" {
		t.Errorf("expected inline, got %q", got)
	}

	got := s3c.ContentDisposition("report.pdf", false)
	if !strings.HasPrefix(got, "attachment") || !strings.Contains(got, "report.pdf") {
		t.Errorf("unexpected disposition %q", got)
	}
}

func TestIsNotFound(t *testing.T) {
	if !s3c.IsNotFound(minio.ErrorResponse{Code: "NoSuchKey"}) {
		t.Error("NoSuchKey should be treated as not found")
	}

	if s3c.IsNotFound(errors.New("connection refused")) {
		t.Error("generic error should not be treated as not found")
	}
}
