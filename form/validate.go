package form

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mbolis/crowdsourcing/model"
)

const (
	msgRequired = "This field is required."
	msgEmail    = "Enter a valid email address."
	msgURL      = "Enter a valid URL."
	msgInteger  = "Enter a whole number."
	msgNumber   = "Enter a number."
	msgBool     = "Enter a yes or no value."
	msgFile     = "No file was submitted."
	msgText     = "Enter a text value."
)

// NonField collects errors not tied to one question.
const NonField = "__all__"

// ValidationError maps field names to a message.
type ValidationError struct {
	Fields map[string]string `json:"errors"`
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + e.Fields[name]
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	e.Fields[field] = msg
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

var (
	validate = validator.New()

	reSlug      = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
	reFieldname = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)
)

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return reSlug.MatchString(fl.Field().String())
	})
	validate.RegisterValidation("fieldname", func(fl validator.FieldLevel) bool {
		return reFieldname.MatchString(fl.Field().String())
	})
}

// Check validates a struct against its validate tags, reporting failures
// by JSON field path.
func Check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	verr := &ValidationError{}
	for _, fe := range errs {
		ns := fe.Namespace()
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			ns = ns[i+1:]
		}
		verr.add(ns, tagMessage(fe))
	}
	return verr
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return msgRequired
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "slug":
		return "Enter a valid slug of letters, numbers, underscores or hyphens."
	case "fieldname":
		return "Enter a valid identifier."
	case "email":
		return msgEmail
	}
	return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
}

// EmailField is the key the submission email travels and fails under.
// Fieldnames start with a letter, so it never names a question.
const EmailField = "_email"

// Email validates an optional email address.
func Email(field, email string) error {
	if email == "" || validate.Var(email, "email") == nil {
		return nil
	}
	verr := &ValidationError{}
	verr.add(field, msgEmail)
	return verr
}

// Validate cleans the raw values submitted for questions. Raw values are
// strings, string lists (checkbox), numbers or booleans decoded from JSON,
// or *File for photos. It returns one entry per question, in order.
func Validate(questions []model.Question, raw map[string]any) ([]Entry, error) {
	verr := &ValidationError{}

	known := make(map[string]bool, len(questions))
	for _, q := range questions {
		known[q.Fieldname] = true
	}
	for name := range raw {
		if !known[name] {
			verr.add(NonField, fmt.Sprintf("Unknown field %q.", name))
		}
	}

	entries := make([]Entry, len(questions))
	for i := range questions {
		q := &questions[i]
		entries[i].Question = q

		v := raw[q.Fieldname]
		if q.OptionType == model.OptionPhoto {
			file, msg := cleanFile(q, v)
			if msg != "" {
				verr.add(q.Fieldname, msg)
			}
			entries[i].File = file
			continue
		}

		if isBlank(v) {
			if q.Required {
				verr.add(q.Fieldname, msgRequired)
			}
			if q.OptionType == model.OptionBool {
				entries[i].Value = model.Bool(false)
			}
			continue
		}

		value, msg := clean(q, v)
		if msg != "" {
			verr.add(q.Fieldname, msg)
			continue
		}
		entries[i].Value = value
	}

	return entries, verr.orNil()
}

func clean(q *model.Question, v any) (model.Value, string) {
	switch q.OptionType {
	case model.OptionInteger:
		switch v := v.(type) {
		case float64:
			if v != math.Trunc(v) || v < math.MinInt64 || v >= math.MaxInt64 {
				return nil, msgInteger
			}
			return model.Integer(v), ""
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return nil, msgInteger
			}
			return model.Integer(n), ""
		}
		return nil, msgInteger

	case model.OptionFloat:
		switch v := v.(type) {
		case float64:
			return model.Float(v), ""
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, msgNumber
			}
			return model.Float(f), ""
		}
		return nil, msgNumber

	case model.OptionBool:
		var b bool
		switch v := v.(type) {
		case bool:
			b = v
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "1", "t", "true", "on", "yes", "y":
				b = true
			case "0", "f", "false", "off", "no", "n":
			default:
				return nil, msgBool
			}
		default:
			return nil, msgBool
		}
		if q.Required && !b {
			return nil, msgRequired
		}
		return model.Bool(b), ""

	case model.OptionCheckbox:
		picked, ok := asStrings(v)
		if !ok {
			return nil, msgText
		}
		for _, p := range picked {
			if !q.IsChoice(p) {
				return nil, invalidChoice(p)
			}
		}
		return model.Text(strings.Join(picked, model.ChoiceSeparator)), ""
	}

	s, ok := asString(v)
	if !ok {
		return nil, msgText
	}
	s = strings.TrimSpace(s)

	switch q.OptionType {
	case model.OptionEmail:
		if validate.Var(s, "email") != nil {
			return nil, msgEmail
		}
	case model.OptionVideo:
		if validate.Var(s, "url") != nil {
			return nil, msgURL
		}
	case model.OptionSelect, model.OptionRadio:
		if !q.IsChoice(s) {
			return nil, invalidChoice(s)
		}
	case model.OptionLocation:
		return model.Location{Text: s}, ""
	}
	return model.Text(s), ""
}

func cleanFile(q *model.Question, v any) (*File, string) {
	switch v := v.(type) {
	case *File:
		if v != nil && v.Filename != "" {
			return v, ""
		}
	case nil:
	default:
		if !isBlank(v) {
			return nil, msgFile
		}
	}
	if q.Required {
		return nil, msgRequired
	}
	return nil, ""
}

func invalidChoice(s string) string {
	return fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", s)
}

func isBlank(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		for _, s := range v {
			if strings.TrimSpace(s) != "" {
				return false
			}
		}
		return true
	case []any:
		for _, s := range v {
			if !isBlank(s) {
				return false
			}
		}
		return true
	case *File:
		return v == nil || v.Filename == ""
	}
	return false
}

func asString(v any) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case []string:
		if len(v) == 1 {
			return v[0], true
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	}
	return "", false
}

func asStrings(v any) ([]string, bool) {
	var out []string
	switch v := v.(type) {
	case string:
		out = []string{v}
	case []string:
		out = v
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
	default:
		return nil, false
	}

	picked := out[:0:0]
	for _, s := range out {
		if s = strings.TrimSpace(s); s != "" {
			picked = append(picked, s)
		}
	}
	return picked, true
}
