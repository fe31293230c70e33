package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
)

// PlaygroundV10 Validator implementation using go-playground
type PlaygroundV10 struct {
	core  *validator.Validate
	uni   *ut.UniversalTranslator
	trans ut.Translator
}

var _ Validator = &PlaygroundV10{}

// NewValidator messages are in english unless WithLocale is used
func NewValidator() *PlaygroundV10 {
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale, zh.New())
	enTrans, _ := uni.GetTranslator("en")
	zhTrans, _ := uni.GetTranslator("zh")

	validate := validator.New()
	en_translations.RegisterDefaultTranslations(validate, enTrans)
	zh_translations.RegisterDefaultTranslations(validate, zhTrans)
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"json", "mapstructure"} {
			name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return ""
	})
	return &PlaygroundV10{
		core:  validate,
		uni:   uni,
		trans: enTrans,
	}
}

// WithLocale returns a copy translating messages to locale, eg. zh. Unknown locales fall back to en
func (v PlaygroundV10) WithLocale(locale string) *PlaygroundV10 {
	trans, _ := v.uni.FindTranslator(locale)
	v.trans = trans
	return &v
}

func (v PlaygroundV10) collect(err error, name string) []*FieldError {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return []*FieldError{NewFieldError(name, err.Error())}
	}

	result := make([]*FieldError, 0, len(errs))
	for _, item := range errs {
		field := item.Field()
		msg := item.Translate(v.trans)
		if name != "" {
			// Var has no field name to put into the message
			field = name
			msg = name + " " + strings.TrimSpace(msg)
		}
		result = append(result, NewFieldError(field, msg))
	}
	return result
}

// Struct implement Validator
func (v PlaygroundV10) Struct(s interface{}) []*FieldError {
	if err := v.core.Struct(s); err != nil {
		return v.collect(err, "")
	}
	return nil
}

// Var implement Validator
func (v PlaygroundV10) Var(name string, value interface{}, tag string) []*FieldError {
	if err := v.core.Var(value, tag); err != nil {
		return v.collect(err, name)
	}
	return nil
}

// AllEmpty implement Validator
func (v PlaygroundV10) AllEmpty(names []string, fields ...interface{}) *FieldError {
	if len(names) != len(fields) {
		panic(fmt.Errorf("number of name: %d, fields: %d", len(names), len(fields)))
	}

	for _, s := range fields {
		if err := v.core.Var(s, "required"); err == nil {
			return nil
		}
	}
	return NewFieldError(strings.Join(names, ","), "One of the fields should not be empty")
}
