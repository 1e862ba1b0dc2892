package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html"

	apperrors "github.com/time-economy/internal/errors"
	"github.com/time-economy/internal/wallet"
)

// Field limits, counted in characters.
const (
	MaxTextLength        = 280
	MaxCityLength        = 100
	MaxBioLength         = 500
	MaxDisplayNameLength = 100
	MaxLocationLength    = 100
	MaxAvatarURLLength   = 512

	DefaultCity         = "Global"
	DefaultLocation     = "Global"
	DefaultRewardAmount = "1"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	if err := v.RegisterValidation("wallet", func(fl validator.FieldLevel) bool {
		return wallet.IsValid(fl.Field().String())
	}); err != nil {
		panic(err)
	}

	return v
}

// validateInput checks struct tags and maps failures onto a ValidationError.
func validateInput(input interface{}) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidationError("body", err.Error())
	}

	if len(verrs) == 1 {
		return apperrors.NewValidationError(verrs[0].Field(), describe(verrs[0]))
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return apperrors.NewValidationFieldsError(fields)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be a positive integer"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "wallet":
		return "must match ^0x[0-9a-fA-F]{40}$"
	case "url", "http_url":
		return "must be a valid URL"
	case "uuid":
		return "must be a UUID"
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}

// stripHTML returns the text content of s with all markup removed.
// Script and style element bodies are dropped.
func stripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			name, _ := z.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skip++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if tag := string(name); (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

// sanitizeText strips markup and surrounding whitespace.
func sanitizeText(s string) string {
	return strings.TrimSpace(stripHTML(s))
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

// Reward amounts are stored as NUMERIC(38,18).
const (
	RewardAmountScale         = 18
	RewardAmountIntegerDigits = 20
)

var maxRewardAmount = decimal.New(1, RewardAmountIntegerDigits)

// parseRewardAmount parses a positive decimal amount, "1" when empty, and
// returns its canonical string form.
func parseRewardAmount(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultRewardAmount, nil
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return "", apperrors.NewValidationError("rewardAmount", "must be a decimal number")
	}
	if !amount.IsPositive() {
		return "", apperrors.NewValidationError("rewardAmount", "must be greater than 0")
	}
	if !amount.Equal(amount.Truncate(RewardAmountScale)) {
		return "", apperrors.NewValidationError("rewardAmount", fmt.Sprintf("must have at most %d decimal places", RewardAmountScale))
	}
	if !amount.LessThan(maxRewardAmount) {
		return "", apperrors.NewValidationError("rewardAmount", fmt.Sprintf("must be less than 10^%d", RewardAmountIntegerDigits))
	}
	return amount.String(), nil
}
