package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/personalcms/web/internal/domain"
)

// Schemas share gin's struct tag so the same types bind from a request.
const tagName = "binding"

// CallbackQuery is the query string handed to /callback by the backend
type CallbackQuery struct {
	AccessToken string `form:"access_token" json:"access_token" binding:"required"`
	Error       string `form:"error" json:"error,omitempty"`
}

// UserResponse is the profile payload returned by /api/v1/auth/me
type UserResponse struct {
	ID        string `json:"id" binding:"required,canonical_uuid"`
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	AvatarURL string `json:"avatar_url" binding:"required,url"`
	CreatedAt string `json:"created_at" binding:"required"`
	Name      string `json:"name,omitempty"`
}

// AuthResponse is the full token payload the backend can return after login
type AuthResponse struct {
	AccessToken string        `json:"access_token" binding:"required"`
	TokenType   string        `json:"token_type" binding:"required,eq=bearer"`
	User        *UserResponse `json:"user" binding:"required"`
}

// FieldError describes one violated constraint
type FieldError struct {
	Field string
	Rule  string
	Param string
}

func (f FieldError) String() string {
	switch f.Rule {
	case "required":
		return f.Field + " is required"
	case "canonical_uuid":
		return f.Field + " must be a valid UUID"
	case "email":
		return f.Field + " must be a valid email address"
	case "url":
		return f.Field + " must be a valid URL"
	case "eq":
		return fmt.Sprintf("%s must be %q", f.Field, f.Param)
	default:
		return fmt.Sprintf("%s failed %s", f.Field, f.Rule)
	}
}

// Error lists every field that failed a schema
type Error struct {
	Schema string
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}
	return fmt.Sprintf("%s: %s", e.Schema, strings.Join(parts, "; "))
}

// Unwrap ties schema failures to the domain validation sentinel
func (e *Error) Unwrap() error {
	return domain.ErrValidationFailed
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator configured for the schemas in this package
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.SetTagName(tagName)
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})
		// uuid.Parse also accepts urn and braced forms; the backend only ever sends the 36-char form.
		_ = v.RegisterValidation("canonical_uuid", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			if len(s) != 36 {
				return false
			}
			_, err := uuid.Parse(s)
			return err == nil
		})
		validate = v
	})
	return validate
}

// ValidateCallbackQuery checks the OAuth callback query
func ValidateCallbackQuery(q CallbackQuery) error {
	return check("callback query", q)
}

// ValidateUserResponse checks a profile payload
func ValidateUserResponse(u UserResponse) error {
	return check("user response", u)
}

// ValidateAuthResponse checks a full token payload
func ValidateAuthResponse(a AuthResponse) error {
	return check("auth response", a)
}

// ParseUser decodes and validates a profile body
func ParseUser(body []byte) (*domain.User, error) {
	var resp UserResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, domain.WrapValidationError("user response", err)
	}
	if err := ValidateUserResponse(resp); err != nil {
		return nil, err
	}
	return resp.ToUser(), nil
}

// ParseAuthResponse decodes and validates a token body
func ParseAuthResponse(body []byte) (*AuthResponse, error) {
	var resp AuthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, domain.WrapValidationError("auth response", err)
	}
	if err := ValidateAuthResponse(resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FromBinding converts an error returned by gin binding into a schema error.
// Errors that are not validator errors pass through unchanged.
func FromBinding(schema string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	return toError(schema, verrs)
}

// ToUser converts a validated payload into the domain user
func (u UserResponse) ToUser() *domain.User {
	return &domain.User{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt,
		Name:      u.Name,
	}
}

func check(schema string, v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return toError(schema, verrs)
	}
	return domain.WrapValidationError(schema, err)
}

func toError(schema string, verrs validator.ValidationErrors) *Error {
	out := &Error{Schema: schema, Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field: fieldPath(fe),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}
	return out
}

// fieldPath drops the root struct name: "AuthResponse.user.id" -> "user.id"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

type ginValidator struct{}

// GinValidator adapts the shared validator to gin's binding.StructValidator
func GinValidator() interface {
	ValidateStruct(any) error
	Engine() any
} {
	return ginValidator{}
}

func (ginValidator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	return Validator().Struct(v.Interface())
}

func (ginValidator) Engine() any {
	return Validator()
}
