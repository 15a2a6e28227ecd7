package util

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const stringListTag = "stringlist"

// RegisterValidators 在 gin 的校验引擎上注册自定义标签，错误信息使用 json 字段名
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation(stringListTag, stringListValidation)
}

// stringListValidation 字段须为字符串数组，或数组的 JSON 字符串
func stringListValidation(fl validator.FieldLevel) bool {
	raw, ok := fl.Field().Interface().(json.RawMessage)
	if !ok {
		return false
	}
	_, err := ParseStringList(raw)
	return err == nil
}
