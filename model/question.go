package model

import (
	"fmt"
	"regexp"
	"strings"
)

const MaxFieldnameLen = 32

type Question struct {
	ID             int        `json:"id,omitempty"`
	SurveyID       int        `json:"-"`
	Fieldname      string     `json:"fieldname" validate:"omitempty,max=32,fieldname"`
	Question       string     `json:"question" validate:"required"`
	HelpText       string     `json:"help_text"`
	Required       bool       `json:"required"`
	Order          *int       `json:"order,omitempty"`
	OptionType     OptionType `json:"option_type" validate:"required"`
	Options        string     `json:"options"`
	AnswerIsPublic bool       `json:"answer_is_public"`
}

// ParsedOptions returns the non-blank lines of Options, trimmed.
func (q *Question) ParsedOptions() []string {
	var opts []string
	for _, line := range strings.Split(q.Options, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			opts = append(opts, line)
		}
	}
	return opts
}

// IsChoice reports whether value is one of the parsed options.
func (q *Question) IsChoice(value string) bool {
	for _, opt := range q.ParsedOptions() {
		if opt == value {
			return true
		}
	}
	return false
}

var reNoIdent = regexp.MustCompile(`\W+`)

// AssignFieldnames fills blank fieldnames from the question text, keeping
// them unique within the slice by adding a __N suffix.
func AssignFieldnames(questions []Question) {
	taken := make(map[string]bool, len(questions))
	for _, q := range questions {
		if q.Fieldname != "" {
			taken[q.Fieldname] = true
		}
	}

	for i := range questions {
		if questions[i].Fieldname != "" {
			continue
		}

		name := strings.ToLower(questions[i].Question)
		name = reNoIdent.ReplaceAllLiteralString(name, " ")
		name = strings.Join(strings.Fields(name), "_")
		name = strings.TrimLeft(name, "_0123456789")
		if name == "" {
			name = "field"
		}
		if len(name) > MaxFieldnameLen-4 {
			name = strings.TrimRight(name[:MaxFieldnameLen-4], "_")
		}

		candidate := name
		for n := 1; taken[candidate]; n++ {
			candidate = fmt.Sprintf("%s__%d", name, n)
		}
		taken[candidate] = true
		questions[i].Fieldname = candidate
	}
}
