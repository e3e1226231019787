package model

import (
	"fmt"
	"sort"
)

// ArchivePolicy decides when a survey's submissions become publicly visible.
type ArchivePolicy int

const (
	ArchiveImmediate ArchivePolicy = iota
	ArchivePostClose
	ArchiveNever
)

var archivePolicyNames = [...]string{
	ArchiveImmediate: "immediate",
	ArchivePostClose: "post-close",
	ArchiveNever:     "never",
}

func (p ArchivePolicy) Valid() bool {
	return p >= ArchiveImmediate && p <= ArchiveNever
}

func (p ArchivePolicy) String() string {
	if !p.Valid() {
		return fmt.Sprintf("ArchivePolicy(%d)", int(p))
	}
	return archivePolicyNames[p]
}

func (p ArchivePolicy) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid archive policy %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *ArchivePolicy) UnmarshalText(text []byte) error {
	for i, name := range archivePolicyNames {
		if name == string(text) {
			*p = ArchivePolicy(i)
			return nil
		}
	}
	return fmt.Errorf("unknown archive policy %q", text)
}

// OptionType is the declared type of a question, which selects the form
// widget and the answer column.
type OptionType string

const (
	OptionChar     OptionType = "char"
	OptionEmail    OptionType = "email"
	OptionPhoto    OptionType = "photo"
	OptionVideo    OptionType = "video"
	OptionLocation OptionType = "location"
	OptionInteger  OptionType = "integer"
	OptionFloat    OptionType = "float"
	OptionBool     OptionType = "bool"
	OptionText     OptionType = "text"
	OptionSelect   OptionType = "select"
	OptionRadio    OptionType = "radio"
	OptionCheckbox OptionType = "checkbox"
)

var optionTypeLabels = map[OptionType]string{
	OptionChar:     "Text Field",
	OptionEmail:    "Email Field",
	OptionPhoto:    "Photo Upload",
	OptionVideo:    "Video Link",
	OptionLocation: "Location Field",
	OptionInteger:  "Integer",
	OptionFloat:    "Float",
	OptionBool:     "Boolean",
	OptionText:     "Text Area",
	OptionSelect:   "Select One Choice",
	OptionRadio:    "Radio List",
	OptionCheckbox: "Checkbox List",
}

func (t OptionType) Valid() bool {
	_, ok := optionTypeLabels[t]
	return ok
}

// Label is the human readable name of the type.
func (t OptionType) Label() string {
	return optionTypeLabels[t]
}

// HasChoices reports whether answers must be picked from the question's options.
func (t OptionType) HasChoices() bool {
	return t == OptionSelect || t == OptionRadio || t == OptionCheckbox
}

func (t *OptionType) UnmarshalText(text []byte) error {
	ot := OptionType(text)
	if !ot.Valid() {
		return fmt.Errorf("unknown option type %q", text)
	}
	*t = ot
	return nil
}

type OptionTypeChoice struct {
	Value OptionType `json:"value"`
	Label string     `json:"label"`
}

// OptionTypeChoices lists every option type sorted by label.
func OptionTypeChoices() []OptionTypeChoice {
	choices := make([]OptionTypeChoice, 0, len(optionTypeLabels))
	for value, label := range optionTypeLabels {
		choices = append(choices, OptionTypeChoice{value, label})
	}
	sort.Slice(choices, func(i, j int) bool { return choices[i].Label < choices[j].Label })
	return choices
}
