// Package intake accepts survey submissions: it gates the request,
// validates the answers and saves the submission with its answers in one
// transaction.
package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mbolis/crowdsourcing/form"
	"github.com/mbolis/crowdsourcing/geo"
	"github.com/mbolis/crowdsourcing/log"
	"github.com/mbolis/crowdsourcing/media"
	"github.com/mbolis/crowdsourcing/model"
	"github.com/mbolis/crowdsourcing/store"
)

var (
	ErrNotOpen          = errors.New("survey is not open")
	ErrLoginRequired    = errors.New("survey requires login")
	ErrNoSession        = errors.New("cookies must be enabled to use this application")
	ErrAlreadySubmitted = errors.New("already submitted")
)

type Store interface {
	SubmissionsFor(ctx context.Context, surveyID int, userID *int, sessionKey string) ([]model.Submission, error)
	CreateSubmission(ctx context.Context, sub *model.Submission, answers []model.Answer, dedupKey string) error
}

// Requester identifies who is submitting.
type Requester struct {
	UserID     *int
	SessionKey string
	// HasSession is false when the client has no session support at all.
	HasSession bool
	IPAddress  string
}

func (r Requester) Authenticated() bool {
	return r.UserID != nil
}

type Request struct {
	Requester
	Email  string
	Values map[string]any
}

type Service struct {
	Store          Store
	Geocoder       geo.Geocoder
	Media          media.Store
	GeocodeTimeout time.Duration
	Now            func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// AlreadySubmitted reports whether r is barred from submitting again.
func (s *Service) AlreadySubmitted(ctx context.Context, survey *model.Survey, r Requester) (bool, error) {
	if survey.AllowMultipleSubmissions {
		return false, nil
	}
	subs, err := s.Store.SubmissionsFor(ctx, survey.ID, r.UserID, r.SessionKey)
	if err != nil {
		return false, err
	}
	return len(subs) > 0, nil
}

// Submit runs the whole intake for one request. Failed gates return one of
// the package errors, invalid answers a *form.ValidationError.
func (s *Service) Submit(ctx context.Context, survey *model.Survey, req Request) (model.Submission, error) {
	now := s.now()

	switch {
	case !survey.IsOpen(now):
		return model.Submission{}, ErrNotOpen
	case survey.RequireLogin && !req.Authenticated():
		return model.Submission{}, ErrLoginRequired
	case !req.HasSession:
		return model.Submission{}, ErrNoSession
	}

	dup, err := s.AlreadySubmitted(ctx, survey, req.Requester)
	if err != nil {
		return model.Submission{}, fmt.Errorf("submissions_for: %w", err)
	}
	if dup {
		return model.Submission{}, ErrAlreadySubmitted
	}

	entries, err := form.Validate(survey.Questions, req.Values)
	if err != nil {
		return model.Submission{}, err
	}
	err = form.Email(form.EmailField, req.Email)
	if err != nil {
		return model.Submission{}, err
	}

	var saved []string
	answers, err := s.answers(ctx, entries, &saved)
	if err != nil {
		s.discard(saved)
		return model.Submission{}, err
	}

	sub := model.Submission{
		SurveyID:    survey.ID,
		UserID:      req.UserID,
		Email:       req.Email,
		IPAddress:   req.IPAddress,
		SubmittedAt: now,
		SessionKey:  req.SessionKey,
		IsPublic:    !survey.ModerateSubmissions,
	}
	err = s.Store.CreateSubmission(ctx, &sub, answers, dedupKey(survey, req.Requester))
	if err != nil {
		s.discard(saved)
		if errors.Is(err, store.ErrConflict) {
			return model.Submission{}, ErrAlreadySubmitted
		}
		return model.Submission{}, fmt.Errorf("create_submission: %w", err)
	}

	log.WithFields(log.Fields{
		"survey":     survey.Slug,
		"submission": sub.ID,
		"public":     sub.IsPublic,
	}).Info("intake.submit: saved")
	return sub, nil
}

// dedupKey is stored only for single-submission surveys, where the
// storage layer keeps it unique per survey.
func dedupKey(survey *model.Survey, r Requester) string {
	switch {
	case survey.AllowMultipleSubmissions:
		return ""
	case r.UserID != nil:
		return fmt.Sprintf("user:%d", *r.UserID)
	case r.SessionKey != "":
		return "session:" + r.SessionKey
	}
	return ""
}

func (s *Service) answers(ctx context.Context, entries []form.Entry, saved *[]string) ([]model.Answer, error) {
	answers := make([]model.Answer, len(entries))
	for i, e := range entries {
		answers[i].Question = e.Question
		answers[i].QuestionID = e.Question.ID

		value := e.Value
		switch {
		case e.File != nil:
			ref, err := s.savePhoto(e.File)
			if err != nil {
				if errors.Is(err, media.ErrUnsupportedType) {
					return nil, &form.ValidationError{Fields: map[string]string{
						e.Question.Fieldname: "Upload a valid image.",
					}}
				}
				return nil, fmt.Errorf("save_photo.%s: %w", e.Question.Fieldname, err)
			}
			*saved = append(*saved, ref)
			value = model.Text(ref)
		case e.Question.OptionType == model.OptionLocation && value != nil:
			value = s.locate(ctx, value.(model.Location))
		}

		if value == nil {
			continue
		}
		err := answers[i].SetValue(value)
		if err != nil {
			return nil, fmt.Errorf("set_value.%s: %w", e.Question.Fieldname, err)
		}
	}
	return answers, nil
}

func (s *Service) savePhoto(f *form.File) (string, error) {
	if s.Media == nil {
		return "", errors.New("no media store configured")
	}
	r, err := f.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()
	return s.Media.Save(f.Filename, r)
}

// locate adds coordinates to loc. A failed lookup keeps the text only.
func (s *Service) locate(ctx context.Context, loc model.Location) model.Location {
	if s.Geocoder == nil || loc.Text == "" {
		return loc
	}
	if s.GeocodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.GeocodeTimeout)
		defer cancel()
	}

	lat, lon, err := s.Geocoder.Geocode(ctx, loc.Text)
	if err != nil {
		log.WithFields(log.Fields{"location": loc.Text}).Warnf("intake.geocode: %s", err)
		return loc
	}
	loc.Latitude = &lat
	loc.Longitude = &lon
	return loc
}

func (s *Service) discard(refs []string) {
	for _, ref := range refs {
		err := s.Media.Remove(ref)
		if err != nil {
			log.Warnf("intake.discard_photo: %s", err)
		}
	}
}
