package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mbolis/crowdsourcing/model"
)

const submissionColumns = `
	sub.id, sub.survey_id, sub.user_id, sub.email, sub.ip_address,
	sub.submitted_at, sub.session_key, sub.is_public`

func scanSubmission(row scanner, s *model.Submission) error {
	var email sql.NullString
	err := row.Scan(
		&s.ID, &s.SurveyID, &s.UserID, &email, &s.IPAddress,
		&s.SubmittedAt, &s.SessionKey, &s.IsPublic,
	)
	s.Email = email.String
	return err
}

func querySubmissions(ctx context.Context, db querier, where string, args ...any) ([]model.Submission, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+submissionColumns+`
		FROM submission sub
		`+where,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []model.Submission{}
	for rows.Next() {
		s := model.Submission{}
		err = scanSubmission(rows, &s)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// SubmissionsFor returns the submissions to surveyID attributable to a
// requester: by user when authenticated, else by session key. With
// neither there is nobody to attribute, and the result is empty.
func (st *Store) SubmissionsFor(ctx context.Context, surveyID int, userID *int, sessionKey string) ([]model.Submission, error) {
	switch {
	case userID != nil:
		return querySubmissions(ctx, st.db, `
			WHERE sub.survey_id = ?
				AND sub.user_id = ?
			ORDER BY sub.submitted_at DESC, sub.id DESC`,
			surveyID, *userID)
	case sessionKey != "":
		return querySubmissions(ctx, st.db, `
			WHERE sub.survey_id = ?
				AND sub.session_key = ?
			ORDER BY sub.submitted_at DESC, sub.id DESC`,
			surveyID, sessionKey)
	}
	return []model.Submission{}, nil
}

// CreateSubmission writes sub and its answers in one transaction. When
// dedupKey is not empty, a second submission with the same key to the
// same survey fails with ErrConflict.
func (st *Store) CreateSubmission(ctx context.Context, sub *model.Submission, answers []model.Answer, dedupKey string) error {
	var key *string
	if dedupKey != "" {
		key = &dedupKey
	}
	var email *string
	if sub.Email != "" {
		email = &sub.Email
	}

	err := st.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO submission (
				survey_id, user_id, email, ip_address,
				submitted_at, session_key, is_public, dedup_key
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			sub.SurveyID, sub.UserID, email, sub.IPAddress,
			sub.SubmittedAt.UTC(), sub.SessionKey, sub.IsPublic, key,
		).Scan(&sub.ID)
		if err != nil {
			return fmt.Errorf("insert_submission: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO answer (
				submission_id, question_id,
				text_answer, integer_answer, float_answer, boolean_answer,
				latitude, longitude
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`)
		if err != nil {
			return fmt.Errorf("insert_submission.answers.prepare: %w", err)
		}
		defer stmt.Close()

		for i := range answers {
			a := &answers[i]
			a.SubmissionID = sub.ID
			if a.Question != nil {
				a.QuestionID = a.Question.ID
			}
			err = stmt.QueryRowContext(ctx,
				a.SubmissionID, a.QuestionID,
				a.TextAnswer, a.IntegerAnswer, a.FloatAnswer, a.BooleanAnswer,
				a.Latitude, a.Longitude,
			).Scan(&a.ID)
			if err != nil {
				return fmt.Errorf("insert_submission.answers.insert: %w", err)
			}
		}
		return nil
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrConflict, err)
	}
	if err == nil {
		sub.SetAnswers(answers)
	}
	return err
}

// PublicSubmissions pages through the submissions of s that may be shown
// at now. Nothing is shown while the archive policy withholds results;
// otherwise only submissions flagged public are.
func (st *Store) PublicSubmissions(ctx context.Context, s *model.Survey, now time.Time, page, perPage int) (Page[model.Submission], error) {
	if !s.ResultsVisible(now) {
		return newPage[model.Submission](page, perPage, 0)
	}
	return st.pageSubmissions(ctx, page, perPage, "WHERE sub.survey_id = ? AND sub.is_public = 1", s.ID)
}

// SurveySubmissions pages through all submissions of a survey, hidden ones included.
func (st *Store) SurveySubmissions(ctx context.Context, surveyID, page, perPage int) (Page[model.Submission], error) {
	return st.pageSubmissions(ctx, page, perPage, "WHERE sub.survey_id = ?", surveyID)
}

func (st *Store) pageSubmissions(ctx context.Context, number, perPage int, where string, args ...any) (Page[model.Submission], error) {
	var count int
	err := st.db.QueryRowContext(ctx, `SELECT count(*) FROM submission sub `+where, args...).Scan(&count)
	if err != nil {
		return Page[model.Submission]{}, err
	}

	p, err := newPage[model.Submission](number, perPage, count)
	if err != nil || count == 0 {
		return p, err
	}

	p.Items, err = querySubmissions(ctx, st.db, where+`
		ORDER BY sub.submitted_at DESC, sub.id DESC
		LIMIT ? OFFSET ?`,
		append(args, p.PerPage, p.offset())...,
	)
	if err != nil {
		return p, err
	}

	err = st.loadAnswers(ctx, p.Items)
	return p, err
}

// SubmissionByID finds a submission, answers not loaded.
func (st *Store) SubmissionByID(ctx context.Context, id int) (model.Submission, error) {
	s := model.Submission{}
	err := scanSubmission(st.db.QueryRowContext(ctx, `
		SELECT `+submissionColumns+`
		FROM submission sub
		WHERE sub.id = ?`,
		id,
	), &s)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrNotFound
	}
	return s, err
}

// SetSubmissionPublic flips the moderation flag of a submission.
func (st *Store) SetSubmissionPublic(ctx context.Context, id int, isPublic bool) error {
	res, err := st.db.ExecContext(ctx, `
		UPDATE submission
		SET is_public = ?
		WHERE id = ?`,
		isPublic, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n < 1 {
		return ErrNotFound
	}
	return nil
}

const answerColumns = `
	a.id, a.submission_id, a.question_id,
	a.text_answer, a.integer_answer, a.float_answer, a.boolean_answer,
	a.latitude, a.longitude`

// SubmissionAnswers loads the answers of one submission with their questions.
func (st *Store) SubmissionAnswers(ctx context.Context, submissionID int) ([]model.Answer, error) {
	byID, err := st.answers(ctx, []any{submissionID})
	if err != nil {
		return nil, err
	}
	return byID[submissionID], nil
}

func (st *Store) loadAnswers(ctx context.Context, subs []model.Submission) error {
	if len(subs) == 0 {
		return nil
	}
	ids := make([]any, len(subs))
	for i := range subs {
		ids[i] = subs[i].ID
	}

	byID, err := st.answers(ctx, ids)
	if err != nil {
		return err
	}
	for i := range subs {
		subs[i].SetAnswers(byID[subs[i].ID])
	}
	return nil
}

// answers groups by submission id. Every requested id maps to a non-nil slice.
func (st *Store) answers(ctx context.Context, submissionIDs []any) (map[int][]model.Answer, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(submissionIDs)), ", ")
	rows, err := st.db.QueryContext(ctx, `
		SELECT `+answerColumns+`, `+questionColumns+`
		FROM answer a
		INNER JOIN question q ON (q.id = a.question_id)
		WHERE a.submission_id IN (`+placeholders+`)
		ORDER BY a.submission_id, q."order" IS NULL, q."order", q.id`,
		submissionIDs...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[int][]model.Answer, len(submissionIDs))
	for _, id := range submissionIDs {
		byID[id.(int)] = []model.Answer{}
	}
	questionsByID := map[int]*model.Question{}

	for rows.Next() {
		a := model.Answer{}
		q := model.Question{}
		err = rows.Scan(
			&a.ID, &a.SubmissionID, &a.QuestionID,
			&a.TextAnswer, &a.IntegerAnswer, &a.FloatAnswer, &a.BooleanAnswer,
			&a.Latitude, &a.Longitude,
			&q.ID, &q.SurveyID, &q.Fieldname, &q.Question, &q.HelpText, &q.Required,
			&q.Order, &q.OptionType, &q.Options, &q.AnswerIsPublic,
		)
		if err != nil {
			return nil, err
		}

		if shared, ok := questionsByID[q.ID]; ok {
			a.Question = shared
		} else {
			questionsByID[q.ID] = &q
			a.Question = &q
		}
		byID[a.SubmissionID] = append(byID[a.SubmissionID], a)
	}
	return byID, rows.Err()
}
