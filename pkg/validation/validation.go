package validation

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/praballama89182-collab/NGRAM/pkg/pagination"
)

var v *validator.Validate

// Validator returns a singleton validator with custom rules registered.
func Validator() *validator.Validate {
	if v == nil {
		v = validator.New()
		// Custom: report file path must have a supported extension
		_ = v.RegisterValidation("report_ext", func(fl validator.FieldLevel) bool {
			s := strings.ToLower(strings.TrimSpace(fl.Field().String()))
			if s == "" {
				return false
			}
			return strings.HasSuffix(s, ".csv") || strings.HasSuffix(s, ".tsv") ||
				strings.HasSuffix(s, ".xlsx") || strings.HasSuffix(s, ".xlsm")
		})
		// Custom: comma-separated gram sizes, each in 1..4
		_ = v.RegisterValidation("gram_sizes", func(fl validator.FieldLevel) bool {
			s := strings.TrimSpace(fl.Field().String())
			if s == "" {
				return true // empty falls back to defaults; pair with omitempty
			}
			for _, part := range strings.Split(s, ",") {
				n, err := strconv.Atoi(strings.TrimSpace(part))
				if err != nil || n < 1 || n > 4 {
					return false
				}
			}
			return true
		})
		// Custom: comma-separated group key over the canonical fields
		_ = v.RegisterValidation("group_key", func(fl validator.FieldLevel) bool {
			s := strings.TrimSpace(fl.Field().String())
			if s == "" {
				return true
			}
			for _, part := range strings.Split(s, ",") {
				switch strings.TrimSpace(strings.ToLower(part)) {
				case "term", "campaign", "ad_group", "match_type":
				default:
					return false
				}
			}
			return true
		})
		// Custom: cursor must be decodable via pagination.DecodeCursor
		_ = v.RegisterValidation("cursor", func(fl validator.FieldLevel) bool {
			s := strings.TrimSpace(fl.Field().String())
			if s == "" {
				return true // empty is allowed; use omitempty with this tag
			}
			if _, err := base64.RawURLEncoding.DecodeString(s); err != nil {
				return false
			}
			if _, err := pagination.DecodeCursor(s); err != nil {
				return false
			}
			return true
		})
	}
	return v
}

// ValidateStruct validates a struct and returns a user-friendly error string
// suitable for MCP tool errors. Returns empty string when valid.
func ValidateStruct(s any) string {
	if err := Validator().Struct(s); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			fe := ve[0]
			field := strings.ToLower(fe.Field())
			switch fe.Tag() {
			case "required":
				return fmt.Sprintf("VALIDATION: %s is required", field)
			case "required_without":
				return fmt.Sprintf("VALIDATION: %s is required (or supply cursor)", field)
			case "report_ext":
				return "VALIDATION: path must be a report file (.csv, .tsv, .xlsx, .xlsm)"
			case "gram_sizes":
				return "VALIDATION: gram_sizes must be comma-separated integers between 1 and 4"
			case "group_key":
				return "VALIDATION: group_key must be a comma-separated subset of term, campaign, ad_group, match_type"
			case "cursor":
				return "CURSOR_INVALID: failed to decode cursor; reopen report and restart pagination"
			case "min", "max", "gte", "lte":
				return fmt.Sprintf("VALIDATION: %s must satisfy %s=%s", field, fe.Tag(), fe.Param())
			}
			return fmt.Sprintf("VALIDATION: invalid %s", field)
		}
		return "VALIDATION: invalid inputs"
	}
	return ""
}
