package portal

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MedicationWhitelist is the set of medication names a prescription
// may contain.
var MedicationWhitelist = []string{
	"Amoxicillin",
	"Azithromycin",
	"Ibuprofen",
	"Paracetamol",
	"Vitamin B12",
	"Vitamin D3",
	"Sertraline",
	"Fluoxetine",
	"Melatonin",
	"Lisinopril",
	"Metformin",
	"Omeprazole",
}

var (
	dosagePattern   = regexp.MustCompile(`^\d+(\.\d+)?\s?(mg|mcg|g|ml|IU)$`)
	durationPattern = regexp.MustCompile(`^\d+ (day|days|week|weeks|month|months)$`)
)

// ValidationError carries one message per offending field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func invalid(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func newValidator() *validator.Validate {
	v := validator.New()

	allowed := make(map[string]struct{}, len(MedicationWhitelist))
	for _, name := range MedicationWhitelist {
		allowed[strings.ToLower(name)] = struct{}{}
	}

	_ = v.RegisterValidation("medication", func(fl validator.FieldLevel) bool {
		_, ok := allowed[strings.ToLower(strings.TrimSpace(fl.Field().String()))]
		return ok
	})
	_ = v.RegisterValidation("dosage", func(fl validator.FieldLevel) bool {
		return dosagePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		return durationPattern.MatchString(fl.Field().String())
	})

	return v
}

func (s *Store) validateStruct(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		field := e.Namespace()
		switch e.Tag() {
		case "required":
			fields[field] = field + " is required"
		case "email":
			fields[field] = field + " must be a valid email address"
		case "min":
			fields[field] = fmt.Sprintf("%s must be at least %s", field, e.Param())
		case "oneof":
			fields[field] = fmt.Sprintf("%s must be one of [%s]", field, e.Param())
		case "medication":
			fields[field] = fmt.Sprintf("%s %q is not an approved medication", field, e.Value())
		case "dosage":
			fields[field] = fmt.Sprintf("%s %q must look like 500mg", field, e.Value())
		case "duration":
			fields[field] = fmt.Sprintf("%s %q must look like 7 days", field, e.Value())
		case "gt":
			fields[field] = fmt.Sprintf("%s must be greater than %s", field, e.Param())
		default:
			fields[field] = field + " is invalid"
		}
	}
	return &ValidationError{Fields: fields}
}

func (s *Store) validateVar(field string, value any, tag string) error {
	if err := s.validate.Var(value, tag); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return invalid(field, fmt.Sprintf("%s failed %q (%s)", field, verrs[0].Tag(), verrs[0].Param()))
		}
		return err
	}
	return nil
}
