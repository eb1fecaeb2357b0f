// Package forms разбирает и проверяет формы, присланные пользователем.
package forms

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	// В сообщениях используем имена полей формы, а не Go-структуры
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// messages - тексты ошибок по тегам валидации.
var messages = map[string]string{
	"required": "This field is required.",
	"email":    "Enter a valid email address.",
	"max":      "Ensure this value has at most %s characters.",
}

func message(e validator.FieldError) string {
	msg, ok := messages[e.Tag()]
	if !ok {
		return "Enter a valid value."
	}
	if strings.Contains(msg, "%s") {
		return fmt.Sprintf(msg, e.Param())
	}
	return msg
}

// Validate проверяет структуру и возвращает *domain.ValidationError со всеми
// провалившимися полями или nil.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		if _, seen := fields[e.Field()]; !seen {
			fields[e.Field()] = message(e)
		}
	}
	return &domain.ValidationError{Fields: fields}
}

// fieldErrors достает ошибки полей из результата Validate.
func fieldErrors(err error) (map[string]string, error) {
	if err == nil {
		return nil, nil
	}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return verr.Fields, nil
	}
	return nil, err
}

// CommentForm - форма комментария к посту.
type CommentForm struct {
	Name   string            `form:"name" json:"name" validate:"required,max=80"`
	Email  string            `form:"email" json:"email" validate:"required,email,max=254"`
	Body   string            `form:"body" json:"body" validate:"required"`
	Errors map[string]string `form:"-" json:"errors,omitempty"`
}

// NewCommentForm заполняет форму из присланных значений, обрезая пробелы.
func NewCommentForm(values url.Values) *CommentForm {
	return &CommentForm{
		Name:  strings.TrimSpace(values.Get("name")),
		Email: strings.TrimSpace(values.Get("email")),
		Body:  strings.TrimSpace(values.Get("body")),
	}
}

// IsValid проверяет форму и запоминает ошибки полей.
func (f *CommentForm) IsValid() (bool, error) {
	errs, err := fieldErrors(Validate(f))
	if err != nil {
		return false, err
	}
	f.Errors = errs
	return len(errs) == 0, nil
}

// Comment строит несохраненный комментарий из проверенной формы.
func (f *CommentForm) Comment(postID string) *domain.Comment {
	return &domain.Comment{
		PostID: postID,
		Name:   f.Name,
		Email:  f.Email,
		Body:   f.Body,
		Active: true,
	}
}

// EmailPostForm - форма "поделиться постом".
type EmailPostForm struct {
	Name     string            `form:"name" json:"name" validate:"required,max=25"`
	Email    string            `form:"email" json:"email" validate:"required,email"`
	To       string            `form:"to" json:"to" validate:"required,email"`
	Comments string            `form:"comments" json:"comments"`
	Errors   map[string]string `form:"-" json:"errors,omitempty"`
}

// NewEmailPostForm заполняет форму из присланных значений, обрезая пробелы.
func NewEmailPostForm(values url.Values) *EmailPostForm {
	return &EmailPostForm{
		Name:     strings.TrimSpace(values.Get("name")),
		Email:    strings.TrimSpace(values.Get("email")),
		To:       strings.TrimSpace(values.Get("to")),
		Comments: strings.TrimSpace(values.Get("comments")),
	}
}

// IsValid проверяет форму и запоминает ошибки полей.
func (f *EmailPostForm) IsValid() (bool, error) {
	errs, err := fieldErrors(Validate(f))
	if err != nil {
		return false, err
	}
	f.Errors = errs
	return len(errs) == 0, nil
}
