package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mbolis/crowdsourcing/config"
	"github.com/mbolis/crowdsourcing/database"
	"github.com/mbolis/crowdsourcing/model"
)

var ctx = context.Background()

func setupStore(t *testing.T) *Store {
	t.Helper()

	db, err := database.Open(config.Config{DBUrl: filepath.Join(t.TempDir(), "test.sqlite")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return New(db)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func testSurvey(slug string) model.Survey {
	return model.Survey{
		Title:       "Favourite colour",
		Slug:        slug,
		IsPublished: true,
		StartsAt:    date(2024, 1, 1),
		EndsAt:      ptr(date(2024, 1, 8)),
		Questions: []model.Question{
			{Question: "Your name", OptionType: model.OptionChar, Required: true, AnswerIsPublic: true, Order: ptr(1)},
			{Fieldname: "colour", Question: "Colour?", OptionType: model.OptionRadio, Options: "red\nblue", AnswerIsPublic: true, Order: ptr(2)},
			{Fieldname: "age", Question: "Age", OptionType: model.OptionInteger, Order: ptr(3)},
		},
	}
}

func createSurvey(t *testing.T, st *Store, s model.Survey) model.Survey {
	t.Helper()
	require.NoError(t, st.CreateSurvey(ctx, &s))
	return s
}

func submit(t *testing.T, st *Store, s model.Survey, at time.Time, isPublic bool, name string, dedupKey string) model.Submission {
	t.Helper()

	sub := model.Submission{
		SurveyID:    s.ID,
		IPAddress:   "127.0.0.1",
		SubmittedAt: at,
		SessionKey:  "session-" + name,
		IsPublic:    isPublic,
	}
	a := model.Answer{Question: &s.Questions[0]}
	require.NoError(t, a.SetValue(name))
	require.NoError(t, st.CreateSubmission(ctx, &sub, []model.Answer{a}, dedupKey))
	return sub
}
