package model

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// 違反フィールドはJSON名で報告する
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// ValidateUser はユーザーのスキーマ検証を行う。
// 違反がある場合はValidationFailed種別のAPIErrorを返す。
func ValidateUser(u *User) error {
	return validateStruct(u)
}

// ValidateTask はタスクのスキーマ検証を行う。
func ValidateTask(t *Task) error {
	return validateStruct(t)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	seen := make(map[string]struct{}, len(verrs))
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if _, ok := seen[fe.Field()]; ok {
			continue
		}
		seen[fe.Field()] = struct{}{}
		fields = append(fields, fe.Field())
	}
	sort.Strings(fields)
	return NewValidationError(fields)
}
