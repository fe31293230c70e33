package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type answerPost struct {
	QuestionID string `json:"question_id" validate:"required"`
	Option     *int   `json:"option" validate:"required,min=0"`
}

func TestPlaygroundV10Struct(t *testing.T) {
	v := NewValidator()

	errs := v.Struct(&answerPost{})
	if assert.Len(t, errs, 2) {
		assert.Equal(t, "question_id", errs[0].Name)
		assert.Equal(t, "option", errs[1].Name)
		assert.Contains(t, errs[0].Reason, "required")
	}

	option := 1
	assert.Nil(t, v.Struct(&answerPost{QuestionID: "q1", Option: &option}))
}

func TestPlaygroundV10Var(t *testing.T) {
	v := NewValidator()
	assert.Nil(t, v.Var("email", "a@b.c", "email"))
	errs := v.Var("email", "not-an-email", "email")
	if assert.Len(t, errs, 1) {
		assert.Equal(t, "email", errs[0].Name)
		assert.Equal(t, "email must be a valid email address", errs[0].Reason)
	}
}

func TestPlaygroundV10BadInput(t *testing.T) {
	errs := NewValidator().Struct(42)
	assert.Len(t, errs, 1)
}

func TestPlaygroundV10AllEmpty(t *testing.T) {
	v := NewValidator()
	assert.Nil(t, v.AllEmpty([]string{"username", "email"}, "", "a@b.c"))
	assert.NotNil(t, v.AllEmpty([]string{"username", "email"}, "", ""))
	assert.Panics(t, func() { v.AllEmpty([]string{"username"}, "", "") })
}

func TestPlaygroundV10WithLocale(t *testing.T) {
	v := NewValidator().WithLocale("zh")
	errs := v.Struct(&answerPost{QuestionID: "q1"})
	if assert.Len(t, errs, 1) {
		assert.NotContains(t, errs[0].Reason, "required")
	}
}
