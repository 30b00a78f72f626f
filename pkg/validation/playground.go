package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate is the shared validator instance with custom rules registered
var Validate *validator.Validate

var (
	nodeIDPattern = regexp.MustCompile(`^[^\s]{1,128}$`)
	hexKeyPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)
)

func init() {
	Validate = validator.New()

	_ = Validate.RegisterValidation("node_id", func(fl validator.FieldLevel) bool {
		return nodeIDPattern.MatchString(fl.Field().String())
	})
	_ = Validate.RegisterValidation("hexkey", func(fl validator.FieldLevel) bool {
		return hexKeyPattern.MatchString(fl.Field().String())
	})

	// Report json names where present, otherwise the lower-camel field name.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.ToLower(fld.Name[:1]) + fld.Name[1:]
		}
		return name
	})
}

// Struct validates s against its `validate` tags. Failures are returned as
// ValidationErrors.
func Struct(s interface{}) error {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Value:   fe.Value(),
			Message: message(fe),
		})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "hostname_port":
		return "must be host:port"
	case "node_id":
		return "must be a non-empty identifier without whitespace"
	case "hexkey":
		return "must be 64 hex characters"
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}
