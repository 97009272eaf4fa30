package domain

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// ViolationKind classifies why a raw record is not a Quote.
type ViolationKind string

const (
	// NotAMapping means the record value is a scalar or list, not a table.
	NotAMapping ViolationKind = "NotAMapping"

	// UnknownField means the record carries a field Quote does not recognize.
	UnknownField ViolationKind = "UnknownField"

	// MissingField means a required field is absent or empty.
	MissingField ViolationKind = "MissingField"

	// WrongType means a field holds a value of the wrong type.
	WrongType ViolationKind = "WrongType"

	// TooLong means the text exceeds MaxTextBytes.
	TooLong ViolationKind = "TooLong"

	// InvalidKey means the record key cannot be stored one per line in the
	// deck and history files.
	InvalidKey ViolationKind = "InvalidKey"
)

// Violation is a single reason a record failed validation.
type Violation struct {
	Kind    ViolationKind
	Field   string
	Message string
}

// String renders the violation for logs and the quarantine report.
func (v Violation) String() string {
	if v.Field == "" {
		return fmt.Sprintf("%s: %s", v.Kind, v.Message)
	}

	return fmt.Sprintf("%s(%s): %s", v.Kind, v.Field, v.Message)
}

// Err converts the violation to a domain ValidationError.
func (v Violation) Err() error {
	return NewValidationErrorWithValue(v.Field, v.Message, v.Kind)
}

// ValidationResult is either a valid Quote or the list of violations.
type ValidationResult struct {
	Quote      *Quote
	Violations []Violation
}

// Valid reports whether the record produced a Quote.
func (r ValidationResult) Valid() bool {
	return r.Quote != nil && len(r.Violations) == 0
}

// Err joins the violations into a single error, or nil when valid.
func (r ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}

	errs := make([]error, 0, len(r.Violations))
	for _, v := range r.Violations {
		errs = append(errs, v.Err())
	}

	return errors.Join(errs...)
}

// recordShape carries the struct-level rules once field types are known.
type recordShape struct {
	Submitter string `field:"submitter" validate:"required"`
	Text      string `field:"quote"     validate:"required,maxbytes=4000"`
}

var recordValidate = newRecordValidator()

func newRecordValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string { return f.Tag.Get("field") })

	// The stock max tag counts runes; the message ceiling is in bytes.
	if err := v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}

		return len(fl.Field().String()) <= limit
	}); err != nil {
		panic(fmt.Sprintf("registering maxbytes validation: %v", err))
	}

	return v
}

// ValidateRecord checks a raw decoded record against the Quote schema.
// Every rule is checked; violations accumulate rather than stopping at the first.
func ValidateRecord(raw any) ValidationResult {
	fields, ok := raw.(map[string]any)
	if !ok {
		return ValidationResult{Violations: []Violation{{
			Kind:    NotAMapping,
			Message: fmt.Sprintf("record must be a table, was %T", raw),
		}}}
	}

	var (
		violations []Violation
		reported   = make(map[string]bool)
		quote      = &Quote{}
		shape      recordShape
	)

	addViolation := func(v Violation) {
		violations = append(violations, v)
		reported[v.Field] = true
	}

	for _, key := range sortedKeys(fields) {
		if !isKnownField(key) {
			addViolation(Violation{
				Kind:    UnknownField,
				Field:   key,
				Message: "must be one of " + strings.Join(KnownFields, ", "),
			})
		}
	}

	for _, name := range []string{FieldSubmitter, FieldText} {
		val, present := fields[name]
		if !present {
			addViolation(Violation{Kind: MissingField, Field: name, Message: "is required"})
			continue
		}

		s, isString := val.(string)
		if !isString {
			addViolation(wrongType(name, "string", val))
			continue
		}

		if name == FieldSubmitter {
			shape.Submitter, quote.Submitter = s, s
		} else {
			shape.Text, quote.Text = s, s
		}
	}

	for _, name := range []string{FieldAttribution, FieldSource} {
		val, present := fields[name]
		if !present {
			continue
		}

		s, isString := val.(string)
		if !isString {
			addViolation(wrongType(name, "string", val))
			continue
		}

		if name == FieldAttribution {
			quote.Attribution = Ptr(s)
		} else {
			quote.Source = Ptr(s)
		}
	}

	if val, present := fields[FieldEmbed]; present {
		b, isBool := val.(bool)
		if isBool {
			quote.Embed = b
		} else {
			addViolation(wrongType(FieldEmbed, "bool", val))
		}
	}

	violations = append(violations, shapeViolations(shape, reported)...)

	if len(violations) > 0 {
		return ValidationResult{Violations: violations}
	}

	return ValidationResult{Quote: quote}
}

// shapeViolations runs the struct rules, skipping fields already reported.
func shapeViolations(shape recordShape, reported map[string]bool) []Violation {
	err := recordValidate.Struct(shape)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []Violation{{Kind: WrongType, Message: err.Error()}}
	}

	var out []Violation

	for _, fe := range fieldErrs {
		field := fe.Field()
		if reported[field] {
			continue
		}

		switch fe.Tag() {
		case "required":
			out = append(out, Violation{Kind: MissingField, Field: field, Message: "must not be empty"})
		case "maxbytes":
			out = append(out, Violation{
				Kind:  TooLong,
				Field: field,
				Message: fmt.Sprintf("must be at most %s bytes (UTF-8), is %d bytes",
					fe.Param(), len(fe.Value().(string))),
			})
		default:
			out = append(out, Violation{Kind: WrongType, Field: field, Message: "failed " + fe.Tag()})
		}
	}

	return out
}

// ValidateKey reports whether key can identify a quote. Keys must be
// non-empty, free of control characters and without surrounding whitespace.
func ValidateKey(key string) (Violation, bool) {
	switch {
	case key == "":
		return Violation{Kind: InvalidKey, Message: "must not be empty"}, false
	case strings.IndexFunc(key, unicode.IsControl) >= 0:
		return Violation{Kind: InvalidKey, Message: "must not contain control characters"}, false
	case strings.TrimFunc(key, unicode.IsSpace) != key:
		return Violation{Kind: InvalidKey, Message: "must not start or end with whitespace"}, false
	}

	return Violation{}, true
}

func wrongType(field, want string, got any) Violation {
	return Violation{
		Kind:    WrongType,
		Field:   field,
		Message: fmt.Sprintf("must be a %s, was %T(%v)", want, got, got),
	}
}

func isKnownField(name string) bool {
	return slices.Contains(KnownFields, name)
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
