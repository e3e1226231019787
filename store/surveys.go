package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mbolis/crowdsourcing/model"
)

const surveyColumns = `
	s.id, s.version, s.title, s.slug, s.tease, s.description,
	s.require_login, s.allow_multiple_submissions, s.moderate_submissions,
	s.archive_policy, s.starts_at, s.survey_date, s.ends_at, s.is_published`

func scanSurvey(row scanner, s *model.Survey) error {
	return row.Scan(
		&s.ID, &s.Version, &s.Title, &s.Slug, &s.Tease, &s.Description,
		&s.RequireLogin, &s.AllowMultipleSubmissions, &s.ModerateSubmissions,
		&s.ArchivePolicy, &s.StartsAt, &s.SurveyDate, &s.EndsAt, &s.IsPublished,
	)
}

const questionColumns = `
	q.id, q.survey_id, q.fieldname, q.question, q.help_text, q.required,
	q."order", q.option_type, q.options, q.answer_is_public`

func scanQuestion(row scanner, q *model.Question) error {
	return row.Scan(
		&q.ID, &q.SurveyID, &q.Fieldname, &q.Question, &q.HelpText, &q.Required,
		&q.Order, &q.OptionType, &q.Options, &q.AnswerIsPublic,
	)
}

func querySurveys(ctx context.Context, db querier, where string, args ...any) ([]model.Survey, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+surveyColumns+`
		FROM survey s
		`+where+`
		ORDER BY s.starts_at DESC, s.id DESC`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	surveys := []model.Survey{}
	for rows.Next() {
		s := model.Survey{}
		err = scanSurvey(rows, &s)
		if err != nil {
			return nil, err
		}
		surveys = append(surveys, s)
	}
	return surveys, rows.Err()
}

// ListSurveys returns every survey, newest first, without questions.
func (st *Store) ListSurveys(ctx context.Context) ([]model.Survey, error) {
	return querySurveys(ctx, st.db, "")
}

// LiveSurveys returns the surveys eligible for public listing at now.
func (st *Store) LiveSurveys(ctx context.Context, now time.Time) ([]model.Survey, error) {
	published, err := querySurveys(ctx, st.db, "WHERE s.is_published = 1")
	if err != nil {
		return nil, err
	}

	live := published[:0]
	for _, s := range published {
		if s.IsLive(now) {
			live = append(live, s)
		}
	}
	// time columns are compared in Go, keep the ordering there as well
	sort.SliceStable(live, func(i, j int) bool { return live[i].StartsAt.After(live[j].StartsAt) })
	return live, nil
}

// LiveSurveyBySlug finds a live survey with its questions.
func (st *Store) LiveSurveyBySlug(ctx context.Context, slug string, now time.Time) (model.Survey, error) {
	s := model.Survey{}
	err := scanSurvey(st.db.QueryRowContext(ctx, `
		SELECT `+surveyColumns+`
		FROM survey s
		WHERE s.slug = ?`,
		slug,
	), &s)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	if !s.IsLive(now) {
		return model.Survey{}, ErrNotFound
	}

	s.Questions, err = questions(ctx, st.db, s.ID)
	return s, err
}

// SurveyByID finds any survey with its questions.
func (st *Store) SurveyByID(ctx context.Context, id int) (model.Survey, error) {
	s := model.Survey{}
	err := scanSurvey(st.db.QueryRowContext(ctx, `
		SELECT `+surveyColumns+`
		FROM survey s
		WHERE s.id = ?`,
		id,
	), &s)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}

	s.Questions, err = questions(ctx, st.db, s.ID)
	return s, err
}

func questions(ctx context.Context, db querier, surveyID int) ([]model.Question, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+questionColumns+`
		FROM question q
		WHERE q.survey_id = ?
		ORDER BY q."order" IS NULL, q."order", q.id`,
		surveyID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	qs := []model.Question{}
	for rows.Next() {
		q := model.Question{}
		err = scanQuestion(rows, &q)
		if err != nil {
			return nil, err
		}
		qs = append(qs, q)
	}
	return qs, rows.Err()
}

// CreateSurvey inserts s and its questions, filling in the generated ids.
func (st *Store) CreateSurvey(ctx context.Context, s *model.Survey) error {
	s.Touch()
	model.AssignFieldnames(s.Questions)
	err := checkFieldnames(s.Questions)
	if err != nil {
		return err
	}

	err = st.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO survey (
				title, slug, tease, description,
				require_login, allow_multiple_submissions, moderate_submissions,
				archive_policy, starts_at, survey_date, ends_at, is_published
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id, version`,
			s.Title, s.Slug, s.Tease, s.Description,
			s.RequireLogin, s.AllowMultipleSubmissions, s.ModerateSubmissions,
			s.ArchivePolicy, s.StartsAt.UTC(), s.SurveyDate, utc(s.EndsAt), s.IsPublished,
		).Scan(&s.ID, &s.Version)
		if err != nil {
			return fmt.Errorf("insert_survey: %w", err)
		}

		return upsertQuestions(ctx, tx, s.ID, s.Questions)
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrConflict, err)
	}
	return err
}

// UpdateSurvey saves s if its version is still current, then bumps the
// version. Questions are matched by fieldname: existing ones are updated,
// new ones inserted, and the ones no longer listed are removed together
// with their answers.
func (st *Store) UpdateSurvey(ctx context.Context, s *model.Survey) error {
	s.Touch()
	model.AssignFieldnames(s.Questions)
	err := checkFieldnames(s.Questions)
	if err != nil {
		return err
	}

	err = st.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE survey
			SET
				title = ?,
				slug = ?,
				tease = ?,
				description = ?,
				require_login = ?,
				allow_multiple_submissions = ?,
				moderate_submissions = ?,
				archive_policy = ?,
				starts_at = ?,
				survey_date = ?,
				ends_at = ?,
				is_published = ?,
				version = version+1
			WHERE id = ?
				AND version = ?`,
			s.Title, s.Slug, s.Tease, s.Description,
			s.RequireLogin, s.AllowMultipleSubmissions, s.ModerateSubmissions,
			s.ArchivePolicy, s.StartsAt.UTC(), s.SurveyDate, utc(s.EndsAt), s.IsPublished,
			s.ID, s.Version,
		)
		if err != nil {
			return fmt.Errorf("update_survey: %w", err)
		}
		// optimistic lock
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update_survey.verify: %w", err)
		}
		if n < 1 {
			var exists bool
			err = tx.QueryRowContext(ctx, `SELECT 1 FROM survey WHERE id = ?`, s.ID).Scan(&exists)
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("%w: survey %d is not at version %d", ErrConflict, s.ID, s.Version)
		}

		err = deleteMissingQuestions(ctx, tx, s.ID, s.Questions)
		if err != nil {
			return err
		}
		return upsertQuestions(ctx, tx, s.ID, s.Questions)
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrConflict, err)
	}
	if err == nil {
		s.Version++
	}
	return err
}

func upsertQuestions(ctx context.Context, tx *sql.Tx, surveyID int, qs []model.Question) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO question (
			survey_id, fieldname, question, help_text, required,
			"order", option_type, options, answer_is_public
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (fieldname, survey_id) DO UPDATE SET
			question = excluded.question,
			help_text = excluded.help_text,
			required = excluded.required,
			"order" = excluded."order",
			option_type = excluded.option_type,
			options = excluded.options,
			answer_is_public = excluded.answer_is_public
		RETURNING id`)
	if err != nil {
		return fmt.Errorf("upsert_questions.prepare: %w", err)
	}
	defer stmt.Close()

	for i := range qs {
		q := &qs[i]
		q.SurveyID = surveyID
		err = stmt.QueryRowContext(ctx,
			surveyID, q.Fieldname, q.Question, q.HelpText, q.Required,
			q.Order, q.OptionType, q.Options, q.AnswerIsPublic,
		).Scan(&q.ID)
		if err != nil {
			return fmt.Errorf("upsert_questions.%s: %w", q.Fieldname, err)
		}
	}
	return nil
}

func deleteMissingQuestions(ctx context.Context, tx *sql.Tx, surveyID int, keep []model.Question) error {
	current, err := questions(ctx, tx, surveyID)
	if err != nil {
		return fmt.Errorf("delete_questions.list: %w", err)
	}

	kept := make(map[string]bool, len(keep))
	for _, q := range keep {
		kept[q.Fieldname] = true
	}
	for _, q := range current {
		if kept[q.Fieldname] {
			continue
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM question WHERE id = ?`, q.ID)
		if err != nil {
			return fmt.Errorf("delete_questions.%s: %w", q.Fieldname, err)
		}
	}
	return nil
}

func checkFieldnames(qs []model.Question) error {
	seen := make(map[string]bool, len(qs))
	for _, q := range qs {
		if seen[q.Fieldname] {
			return fmt.Errorf("%w: duplicate fieldname %q", ErrConflict, q.Fieldname)
		}
		seen[q.Fieldname] = true
	}
	return nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
