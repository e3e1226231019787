package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is a typed answer value. It is one of Text, Integer, Float, Bool
// or Location.
type Value interface {
	// Native returns the plain Go value, suitable for JSON encoding.
	Native() any
	isValue()
}

type Text string
type Integer int64
type Float float64
type Bool bool

// Location is a free-text place, with coordinates when it could be geocoded.
type Location struct {
	Text      string   `json:"text"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

func (v Text) Native() any     { return string(v) }
func (v Integer) Native() any  { return int64(v) }
func (v Float) Native() any    { return float64(v) }
func (v Bool) Native() any     { return bool(v) }
func (v Location) Native() any { return v }

func (Text) isValue()     {}
func (Integer) isValue()  {}
func (Float) isValue()    {}
func (Bool) isValue()     {}
func (Location) isValue() {}

// Located reports whether coordinates are known.
func (v Location) Located() bool {
	return v.Latitude != nil && v.Longitude != nil
}

// ChoiceSeparator joins the picked options of a checkbox answer.
const ChoiceSeparator = "\n"

// Answer is one question's value within a submission. Exactly one of the
// typed columns is meaningful, chosen by the question's option type.
type Answer struct {
	ID           int
	SubmissionID int
	QuestionID   int
	Question     *Question

	TextAnswer    string
	IntegerAnswer *int64
	FloatAnswer   *float64
	BooleanAnswer *bool
	Latitude      *float64
	Longitude     *float64
}

func (a *Answer) optionType() OptionType {
	if a.Question == nil {
		return ""
	}
	return a.Question.OptionType
}

// Value reads the column selected by the question's option type. It
// returns nil when that column holds no value.
func (a *Answer) Value() Value {
	switch a.optionType() {
	case OptionBool:
		if a.BooleanAnswer == nil {
			return nil
		}
		return Bool(*a.BooleanAnswer)
	case OptionFloat:
		if a.FloatAnswer == nil {
			return nil
		}
		return Float(*a.FloatAnswer)
	case OptionInteger:
		if a.IntegerAnswer == nil {
			return nil
		}
		return Integer(*a.IntegerAnswer)
	case OptionLocation:
		return Location{Text: a.TextAnswer, Latitude: a.Latitude, Longitude: a.Longitude}
	}
	return Text(a.TextAnswer)
}

// SetValue coerces v to the question's native type and stores it in the
// matching column. All other columns are cleared.
func (a *Answer) SetValue(v any) error {
	a.clear()

	switch a.optionType() {
	case OptionBool:
		b, err := toBool(v)
		if err != nil {
			return err
		}
		a.BooleanAnswer = &b
	case OptionFloat:
		f, err := toFloat(v)
		if err != nil {
			return err
		}
		a.FloatAnswer = &f
	case OptionInteger:
		n, err := toInt(v)
		if err != nil {
			return err
		}
		a.IntegerAnswer = &n
	case OptionLocation:
		if loc, ok := v.(Location); ok {
			a.TextAnswer = loc.Text
			a.Latitude = loc.Latitude
			a.Longitude = loc.Longitude
			return nil
		}
		a.TextAnswer = toText(v)
	default:
		a.TextAnswer = toText(v)
	}
	return nil
}

func (a *Answer) clear() {
	a.TextAnswer = ""
	a.IntegerAnswer = nil
	a.FloatAnswer = nil
	a.BooleanAnswer = nil
	a.Latitude = nil
	a.Longitude = nil
}

func toBool(v any) (bool, error) {
	switch v := v.(type) {
	case bool:
		return v, nil
	case Bool:
		return bool(v), nil
	case Text:
		return toBool(string(v))
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "0", "f", "false", "off", "no", "n":
			return false, nil
		case "1", "t", "true", "on", "yes", "y":
			return true, nil
		}
		return false, fmt.Errorf("cannot convert %q to bool", v)
	case int, int64, Integer:
		n, _ := toInt(v)
		return n != 0, nil
	case nil:
		return false, nil
	}
	return false, fmt.Errorf("cannot convert %T to bool", v)
}

func toFloat(v any) (float64, error) {
	switch v := v.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case Float:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case Integer:
		return float64(v), nil
	case Text:
		return toFloat(string(v))
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to float", v)
		}
		return f, nil
	}
	return 0, fmt.Errorf("cannot convert %T to float", v)
}

func toInt(v any) (int64, error) {
	switch v := v.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case Integer:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case Float:
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case Text:
		return toInt(string(v))
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to integer", v)
		}
		return n, nil
	}
	return 0, fmt.Errorf("cannot convert %T to integer", v)
}

func toText(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case Text:
		return string(v)
	case []string:
		return strings.Join(v, ChoiceSeparator)
	case nil:
		return ""
	case Value:
		return fmt.Sprint(v.Native())
	}
	return fmt.Sprint(v)
}
