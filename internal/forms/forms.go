// Package forms validates every user-editable form before anything is sent
// to the server. Rules are expressed as validator struct tags; failures are
// mapped to one message per field, keyed by the field's json name.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/kingrea/hiremind/internal/api"
	"github.com/kingrea/hiremind/internal/workflow"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Login is the sign-in form.
type Login struct {
	EmailOrUsername string `json:"email_or_username" validate:"notblank"`
	Password        string `json:"password" validate:"required"`
}

// Register is the sign-up form.
type Register struct {
	FirstName       string `json:"first_name" validate:"notblank"`
	LastName        string `json:"last_name" validate:"notblank"`
	Email           string `json:"email" validate:"notblank,email"`
	Username        string `json:"username" validate:"notblank,min=3,username"`
	Password        string `json:"password" validate:"required,min=8,has_upper,has_lower,has_digit"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	CompanyName     string `json:"company_name"`
	JobTitle        string `json:"job_title"`
}

// NewHiring is the workflow start form.
type NewHiring struct {
	Description string `json:"description" validate:"notblank"`
	CompanyName string `json:"company_name" validate:"notblank"`
	Department  string `json:"department"`
}

// AgentRun is the playground form.
type AgentRun struct {
	AgentType string `json:"agent_type" validate:"required,agent"`
	InputText string `json:"input_text" validate:"notblank"`
}

// ChangePassword is the account password form.
type ChangePassword struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,has_upper,has_lower,has_digit"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// Profile is the account details form.
type Profile struct {
	FirstName   string `json:"first_name" validate:"notblank"`
	LastName    string `json:"last_name" validate:"notblank"`
	CompanyName string `json:"company_name" validate:"max=120"`
	JobTitle    string `json:"job_title" validate:"max=120"`
	Bio         string `json:"bio" validate:"max=1000"`
}

// FieldErrors maps a field's json name to its message.
type FieldErrors map[string]string

// Error lists the failures in field order so it is stable across runs.
func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return "forms: " + strings.Join(parts, "; ")
}

// Get returns the message for field, or "".
func (fe FieldErrors) Get(field string) string {
	if fe == nil {
		return ""
	}
	return fe[field]
}

var (
	once     sync.Once
	validate *validator.Validate
)

func engine() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonName)
		_ = v.RegisterValidation("notblank", validators.NotBlank)
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("has_upper", containsFunc(unicode.IsUpper))
		_ = v.RegisterValidation("has_lower", containsFunc(unicode.IsLower))
		_ = v.RegisterValidation("has_digit", containsFunc(unicode.IsDigit))
		_ = v.RegisterValidation("agent", func(fl validator.FieldLevel) bool {
			_, ok := workflow.LookupAgent(fl.Field().String())
			return ok
		})
		validate = v
	})
	return validate
}

func containsFunc(pred func(rune) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(fl.Field().String(), pred) >= 0
	}
}

func jsonName(sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return sf.Name
	}
	return name
}

// Validate checks form and returns FieldErrors (nil when valid).
func Validate(form any) FieldErrors {
	err := engine().Struct(form)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return FieldErrors{"form": err.Error()}
	}
	out := make(FieldErrors, len(validationErrs))
	for _, fe := range validationErrs {
		field := fe.Field()
		if _, seen := out[field]; seen {
			continue
		}
		out[field] = message(field, fe.Tag(), fe.Param())
	}
	return out
}

// Request converts the form into its wire request.
func (f Login) Request() api.LoginRequest {
	return api.LoginRequest{EmailOrUsername: strings.TrimSpace(f.EmailOrUsername), Password: f.Password}
}

// Request converts the form into its wire request. Confirmation stays local.
func (f Register) Request() api.RegisterRequest {
	return api.RegisterRequest{
		Email:       strings.TrimSpace(f.Email),
		Username:    strings.TrimSpace(f.Username),
		Password:    f.Password,
		FirstName:   strings.TrimSpace(f.FirstName),
		LastName:    strings.TrimSpace(f.LastName),
		CompanyName: strings.TrimSpace(f.CompanyName),
		JobTitle:    strings.TrimSpace(f.JobTitle),
	}
}

// Request converts the form into its wire request.
func (f NewHiring) Request() api.WorkflowStartRequest {
	return api.WorkflowStartRequest{
		Description: strings.TrimSpace(f.Description),
		CompanyName: strings.TrimSpace(f.CompanyName),
		Department:  strings.TrimSpace(f.Department),
	}
}

// Request converts the form into its wire request.
func (f ChangePassword) Request() api.PasswordChangeRequest {
	return api.PasswordChangeRequest{CurrentPassword: f.CurrentPassword, NewPassword: f.NewPassword}
}

// Request sends every field; the server treats them as replacements.
func (f Profile) Request() api.ProfileUpdateRequest {
	first := strings.TrimSpace(f.FirstName)
	last := strings.TrimSpace(f.LastName)
	company := strings.TrimSpace(f.CompanyName)
	title := strings.TrimSpace(f.JobTitle)
	bio := strings.TrimSpace(f.Bio)
	return api.ProfileUpdateRequest{FirstName: &first, LastName: &last, CompanyName: &company, JobTitle: &title, Bio: &bio}
}

var fieldMessages = map[string]map[string]string{
	"email_or_username": {"notblank": "Email or username is required"},
	"email": {
		"notblank": "Email is required",
		"email":    "Please enter a valid email address",
	},
	"username": {
		"notblank": "Username is required",
		"min":      "Username must be at least 3 characters long",
		"username": "Username can only contain letters, numbers, hyphens, and underscores",
	},
	"password":         passwordMessages("Password"),
	"new_password":     passwordMessages("New password"),
	"confirm_password": {"required": "Please confirm your password", "eqfield": "Passwords do not match"},
	"current_password": {"required": "Current password is required"},
	"first_name":       {"notblank": "First name is required"},
	"last_name":        {"notblank": "Last name is required"},
	"description":      {"notblank": "Please describe the role you want to hire for"},
	"company_name":     {"notblank": "Company name is required"},
	"agent_type":       {"agent": "Please choose one of the available agents"},
	"input_text":       {"notblank": "Please enter a prompt for the agent"},
}

func passwordMessages(label string) map[string]string {
	return map[string]string{
		"required":  label + " is required",
		"min":       label + " must be at least 8 characters long",
		"has_upper": label + " must contain at least one uppercase letter",
		"has_lower": label + " must contain at least one lowercase letter",
		"has_digit": label + " must contain at least one number",
	}
}

func message(field, rule, param string) string {
	if byRule, ok := fieldMessages[field]; ok {
		if msg, ok := byRule[rule]; ok {
			return msg
		}
	}
	return humanize(field) + " " + validationMessage(rule, param)
}

func humanize(field string) string {
	words := strings.ReplaceAll(field, "_", " ")
	if words == "" {
		return words
	}
	return strings.ToUpper(words[:1]) + words[1:]
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required", "notblank":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param + " characters"
	case "max":
		return "must be at most " + param + " characters"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
