package rule_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/yeisme/drivevault/pkg/rule"
)

type renameForm struct {
	Name string `json:"name" rule:"required,resname"`
}

type grantForm struct {
	ResourceType string `json:"resource_type" rule:"required,restype"`
	Role         string `json:"role"          rule:"required,sharerole"`
	Note         string `json:"-"             rule:"max=3"`
}

func TestValidName(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"report.pdf", true},
		{"季度报告", true},
		{"a b", true},
		{"", false},
		{".", false},
		{"..", false},
		{"a/b", false},
		{`a\b`, false},
		{strings.Repeat("x", rule.MaxNameLength), true},
		{strings.Repeat("x", rule.MaxNameLength+1), false},
		{strings.Repeat("文", rule.MaxNameLength), true},
	}

	for _, tc := range cases {
		if got := rule.ValidName(tc.name); got != tc.want {
			t.Errorf("ValidName(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestResourceNameRule(t *testing.T) {
	if err := rule.ValidateStruct(renameForm{Name: "notes.txt"}); err != nil {
		t.Fatalf("valid name rejected: %v", err)
	}

	err := rule.ValidateStruct(renameForm{Name: "../etc"})
	if err == nil {
		t.Fatal("expected path separator to be rejected")
	}

	fields := rule.Errors(err)
	if fields["name"] != "failed on resname" {
		t.Errorf("errors = %v", fields)
	}
}

func TestAliases(t *testing.T) {
	if err := rule.ValidateStruct(grantForm{ResourceType: "folder", Role: "editor"}); err != nil {
		t.Fatalf("valid form rejected: %v", err)
	}

	err := rule.ValidateStruct(grantForm{ResourceType: "bucket", Role: "owner", Note: "toolong"})
	fields := rule.Errors(err)

	if len(fields) != 3 {
		t.Fatalf("expected 3 field errors, got %v", fields)
	}

	if fields["resource_type"] != "failed on restype=file folder" {
		t.Errorf("resource_type: %q", fields["resource_type"])
	}

	if fields["role"] != "failed on sharerole=viewer editor" {
		t.Errorf("role: %q", fields["role"])
	}

	if fields["Note"] != "failed on max=3" {
		t.Errorf("fields without a json name keep the Go name: %v", fields)
	}

	want := "Note failed on max=3; resource_type failed on restype=file folder; role failed on sharerole=viewer editor"
	if got := fields.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestErrorsIgnoresOtherErrors(t *testing.T) {
	if rule.Errors(errors.New("boom")) != nil {
		t.Error("non-validation error should map to nil")
	}

	if rule.Errors(nil) != nil {
		t.Error("nil error should map to nil")
	}
}
