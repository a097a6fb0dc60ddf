package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/oksasatya/prevently-api/internal/domain/entity"
)

var initOnce sync.Once

// enums maps a binding tag to the values it accepts.
var enums = map[string][]string{
	"symptomcategory":  entity.SymptomCategories,
	"symptomfrequency": entity.SymptomFrequencies,
	"symptomonset":     entity.SymptomOnsets,
	"symptomsource":    entity.SymptomSources,
	"gender":           {"male", "female", "other", "prefer-not-to-say"},
	"bloodtype":        {"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"},
	"familyrole":       {"parent", "child", "spouse", "guardian", "other"},
	"fontsize":         {"small", "medium", "large"},
	"locationtype":     {"home", "work", "outdoor", "travel", "other"},
	"activitytype":     {"resting", "working", "exercising", "eating", "sleeping", "other"},
	"intensity":        {"low", "moderate", "high"},
}

// aliases are the non-enum shorthands used in request structs.
var aliases = map[string]struct{ rule, msg string }{
	"pwd":        {"min=6,max=72", "must be between 6 and 72 characters long"},
	"score":      {"min=1,max=10", "must be between 1 and 10"},
	"personname": {"min=1,max=50", "must be between 1 and 50 characters long"},
	"phone":      {"e164", "must be a valid phone number"},
}

// Init configures the validator behind Gin's binding: JSON names in errors plus the domain aliases.
func Init() {
	initOnce.Do(register)
}

func register() {
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
	for tag, a := range aliases {
		v.RegisterAlias(tag, a.rule)
	}
	for tag, values := range enums {
		v.RegisterAlias(tag, "oneof="+strings.Join(values, " "))
	}
}

// ToDetails converts binding errors into map[field]message for the error envelope.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	switch {
	case errors.As(err, &se):
		return map[string]string{"payload": "invalid json"}
	case errors.As(err, &ute):
		if ute.Field != "" {
			return map[string]string{lastSegment(ute.Field): "must be of type " + ute.Type.String()}
		}
		return map[string]string{"payload": "invalid json"}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fe.Field()] = message(fe)
		}
		return out
	}
	return map[string]string{"payload": "invalid payload"}
}

func message(fe validator.FieldError) string {
	tag, param := fe.Tag(), fe.Param()
	if values, ok := enums[tag]; ok {
		return "must be one of: " + strings.Join(values, ", ")
	}
	if a, ok := aliases[tag]; ok {
		return a.msg
	}

	switch tag {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "url":
		return "must be a valid URL"
	case "e164":
		return "must be a valid phone number"
	case "len":
		return fmt.Sprintf("must be exactly %s characters long", param)
	case "min":
		if isNumberKind(fe.Kind()) {
			return "must be at least " + param
		}
		if fe.Kind() == reflect.Slice {
			return "must contain at least " + param + " items"
		}
		return "must be at least " + param + " characters long"
	case "max":
		if isNumberKind(fe.Kind()) {
			return "must be at most " + param
		}
		if fe.Kind() == reflect.Slice {
			return "must contain at most " + param + " items"
		}
		return "must be at most " + param + " characters long"
	case "gte":
		return "must be greater than or equal to " + param
	case "lte":
		return "must be less than or equal to " + param
	case "eqfield":
		return "must match " + lowerFirst(param)
	case "nefield":
		return "must differ from " + lowerFirst(param)
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	case "dive":
		return "contains an invalid item"
	case "datetime":
		return "must match datetime format " + param
	}
	if param != "" {
		return fmt.Sprintf("failed %s=%s", tag, param)
	}
	return "failed " + tag
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// eqfield params are Go field names; responses use JSON casing.
func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func lastSegment(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return path
}
