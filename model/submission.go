package model

import (
	"context"
	"time"
)

type Submission struct {
	ID          int       `json:"id"`
	SurveyID    int       `json:"-"`
	UserID      *int      `json:"-"`
	Email       string    `json:"email,omitempty"`
	IPAddress   string    `json:"-"`
	SubmittedAt time.Time `json:"submitted_at"`
	SessionKey  string    `json:"-"`
	IsPublic    bool      `json:"is_public"`

	answers    []Answer
	answerDict map[string]Value
}

// AnswerLoader fetches the answers of a submission, questions attached.
type AnswerLoader interface {
	SubmissionAnswers(ctx context.Context, submissionID int) ([]Answer, error)
}

// SetAnswers attaches already loaded answers and drops any memoized dictionary.
func (s *Submission) SetAnswers(answers []Answer) {
	s.answers = answers
	s.answerDict = nil
}

// Answers returns the answers attached to the submission, if any.
func (s *Submission) Answers() []Answer {
	return s.answers
}

// AnswerDict maps each answered fieldname to its value. It is computed on
// first use and memoized; loader is only consulted when no answers are
// attached yet.
func (s *Submission) AnswerDict(ctx context.Context, loader AnswerLoader) (map[string]Value, error) {
	if s.answerDict != nil {
		return s.answerDict, nil
	}
	if s.answers == nil && loader != nil {
		answers, err := loader.SubmissionAnswers(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		s.answers = answers
	}

	d := make(map[string]Value, len(s.answers))
	for i := range s.answers {
		a := &s.answers[i]
		if a.Question == nil {
			continue
		}
		d[a.Question.Fieldname] = a.Value()
	}
	s.answerDict = d
	return d, nil
}

// GetAnswer looks up one answer by fieldname through the memoized dictionary.
func (s *Submission) GetAnswer(ctx context.Context, loader AnswerLoader, fieldname string) (v Value, ok bool, err error) {
	d, err := s.AnswerDict(ctx, loader)
	if err != nil {
		return nil, false, err
	}
	v, ok = d[fieldname]
	return v, ok, nil
}
