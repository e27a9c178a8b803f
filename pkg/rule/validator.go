// Package rule 提供结构体和字段验证功能的封装，基于 go-playground/validator 实现.
package rule

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	inst *validator.Validate
	once sync.Once
)

// MaxNameLength 文件与文件夹名称的最大长度（字符数）.
const MaxNameLength = 255

// initValidator 复用 gin 的 validator 引擎，取不到时新建. 统一使用 rule 标签.
//
// 自定义规则：
//   - resname   文件或文件夹名
//   - restype   file | folder
//   - sharerole viewer | editor
func initValidator() {
	inst = nil

	if engine := binding.Validator.Engine(); engine != nil {
		if v, ok := engine.(*validator.Validate); ok {
			inst = v
		}
	}

	if inst == nil {
		inst = validator.New()
	}

	inst.SetTagName("rule")
	inst.RegisterTagNameFunc(jsonTagName)

	_ = inst.RegisterValidation("resname", validResourceName)

	inst.RegisterAlias("restype", "oneof=file folder")
	inst.RegisterAlias("sharerole", "oneof=viewer editor")
}

// jsonTagName 错误信息中的字段名使用 json 标签.
func jsonTagName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}

	if name == "" {
		return fld.Name
	}

	return name
}

// ValidName 判断名称是否可用作文件或文件夹名.
func ValidName(name string) bool {
	n := utf8.RuneCountInString(name)
	if n == 0 || n > MaxNameLength {
		return false
	}

	if name == "." || name == ".." {
		return false
	}

	return !strings.ContainsAny(name, "/\\")
}

func validResourceName(fl validator.FieldLevel) bool {
	return ValidName(fl.Field().String())
}

// lazyInit 初始化全局 validator（幂等）.
func lazyInit() {
	once.Do(initValidator)
}

// ValidationErrors 是格式化后的验证错误字典，键为字段名（受 RegisterTagNameFunc 影响），值为可读错误信息.
type ValidationErrors map[string]string

// Errors 把校验错误整理为字段到信息的映射，非校验错误返回 nil.
func Errors(err error) ValidationErrors {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make(ValidationErrors, len(verrs))
	for _, fe := range verrs {
		msg := "failed on " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}

		out[fe.Field()] = msg
	}

	return out
}

// String 以稳定顺序拼接全部错误.
func (v ValidationErrors) String() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+v[k])
	}

	return strings.Join(parts, "; ")
}

// ValidateStruct 对结构体执行完整校验，返回原始 error（可用 Errors 解析）.
func ValidateStruct(s any) error {
	lazyInit()

	return inst.Struct(s)
}
