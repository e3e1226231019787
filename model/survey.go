package model

import "time"

const SurveyDateLayout = "2006-01-02"

type Survey struct {
	ID          int    `json:"id,omitempty"`
	Version     int    `json:"version,omitempty"`
	Title       string `json:"title" validate:"required,max=80"`
	Slug        string `json:"slug" validate:"required,max=50,slug"`
	Tease       string `json:"tease"`
	Description string `json:"description"`

	RequireLogin             bool          `json:"require_login"`
	AllowMultipleSubmissions bool          `json:"allow_multiple_submissions"`
	ModerateSubmissions      bool          `json:"moderate_submissions"`
	ArchivePolicy            ArchivePolicy `json:"archive_policy"`

	StartsAt    time.Time  `json:"starts_at"`
	SurveyDate  string     `json:"survey_date,omitempty"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	IsPublished bool       `json:"is_published"`

	Questions []Question `json:"questions,omitempty" validate:"dive"`
}

// NewSurvey returns a survey carrying the configured defaults, starting now.
func NewSurvey(now time.Time, moderateSubmissions bool) Survey {
	return Survey{
		ArchivePolicy:       ArchiveImmediate,
		ModerateSubmissions: moderateSubmissions,
		StartsAt:            now,
	}
}

// Touch recomputes the derived fields. Must be called before each save.
// SurveyDate is the UTC calendar date of StartsAt.
func (s *Survey) Touch() {
	s.SurveyDate = s.StartsAt.UTC().Format(SurveyDateLayout)
}

// IsOpen reports whether the survey accepts submissions at now.
func (s *Survey) IsOpen(now time.Time) bool {
	if s.StartsAt.After(now) {
		return false
	}
	return s.EndsAt == nil || now.Before(*s.EndsAt)
}

// IsLive reports whether the survey is eligible for public listing at now.
func (s *Survey) IsLive(now time.Time) bool {
	if !s.IsPublished || s.StartsAt.After(now) {
		return false
	}
	return s.ArchivePolicy != ArchiveNever || s.EndsAt == nil || s.EndsAt.After(now)
}

// ResultsVisible reports whether public submissions may be shown at now.
// A never policy hides results outright, post-close hides them while open.
func (s *Survey) ResultsVisible(now time.Time) bool {
	switch s.ArchivePolicy {
	case ArchiveNever:
		return false
	case ArchivePostClose:
		return !s.IsOpen(now)
	}
	return true
}

// CanShowForm reports whether a submission form may be offered.
func (s *Survey) CanShowForm(authenticated bool, now time.Time) bool {
	return s.IsOpen(now) && (authenticated || !s.RequireLogin)
}

// Question returns the question with the given fieldname.
func (s *Survey) Question(fieldname string) (*Question, bool) {
	for i := range s.Questions {
		if s.Questions[i].Fieldname == fieldname {
			return &s.Questions[i], true
		}
	}
	return nil, false
}
