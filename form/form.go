// Package form describes the input fields of a survey and turns raw
// submitted values into typed answers.
package form

import (
	"io"

	"github.com/mbolis/crowdsourcing/model"
)

type Field struct {
	Name     string           `json:"name"`
	Label    string           `json:"label"`
	HelpText string           `json:"help_text,omitempty"`
	Required bool             `json:"required"`
	Type     model.OptionType `json:"type"`
	Widget   string           `json:"widget"`
	Choices  []string         `json:"choices,omitempty"`
}

var widgets = map[model.OptionType]string{
	model.OptionChar:     "text",
	model.OptionEmail:    "email",
	model.OptionPhoto:    "file",
	model.OptionVideo:    "url",
	model.OptionLocation: "text",
	model.OptionInteger:  "number",
	model.OptionFloat:    "number",
	model.OptionBool:     "checkbox",
	model.OptionText:     "textarea",
	model.OptionSelect:   "select",
	model.OptionRadio:    "radio",
	model.OptionCheckbox: "checkbox-list",
}

// FieldsFor describes one input per question, in question order.
func FieldsFor(s *model.Survey) []Field {
	fields := make([]Field, len(s.Questions))
	for i, q := range s.Questions {
		fields[i] = Field{
			Name:     q.Fieldname,
			Label:    q.Question,
			HelpText: q.HelpText,
			Required: q.Required,
			Type:     q.OptionType,
			Widget:   widgets[q.OptionType],
		}
		if q.OptionType.HasChoices() {
			fields[i].Choices = q.ParsedOptions()
		}
	}
	return fields
}

// File is an uploaded file answer.
type File struct {
	Filename string
	Open     func() (io.ReadCloser, error)
}

// Entry is the cleaned value of one question. Value is nil when the
// question was left blank. Photo questions carry a File instead.
type Entry struct {
	Question *model.Question
	Value    model.Value
	File     *File
}
