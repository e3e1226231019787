package routes

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mbolis/crowdsourcing/app"
	"github.com/mbolis/crowdsourcing/form"
	"github.com/mbolis/crowdsourcing/httpx"
	"github.com/mbolis/crowdsourcing/intake"
	"github.com/mbolis/crowdsourcing/log"
	"github.com/mbolis/crowdsourcing/model"
	"github.com/mbolis/crowdsourcing/routes/middlewares"
	"github.com/mbolis/crowdsourcing/store"
)

const maxUploadSize = 32 << 20

func thanksCookie(slug string) string {
	return "survey_thanks_" + slug
}

func resultsURL(slug string) string {
	return "/api/surveys/" + url.PathEscape(slug) + "/results"
}

func PublicListSurveys(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveys, err := app.Store.LiveSurveys(r.Context(), app.Now())
		if err != nil {
			httpx.LogInternalError(w, "db.live_surveys", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"surveys": surveys,
		})
	}
}

func PublicGetSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		survey, err := app.Store.LiveSurveyBySlug(r.Context(), slug, app.Now())
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				httpx.LogNotFound(w, "get_survey", slug)
			} else {
				httpx.LogInternalError(w, "db.get_survey", err)
			}
			return
		}

		req, err := requester(app, r)
		if err != nil {
			httpx.LogInternalError(w, "get_survey.requester", err)
			return
		}
		submitted, err := app.Intake.AlreadySubmitted(r.Context(), &survey, req)
		if err != nil {
			httpx.LogInternalError(w, "db.get_survey.submitted", err)
			return
		}

		canShowForm := survey.CanShowForm(req.Authenticated(), app.Now())
		fields := []form.Field{}
		if canShowForm {
			fields = form.FieldsFor(&survey)
		}

		render.JSON(w, r, map[string]any{
			"survey":        survey,
			"can_show_form": canShowForm,
			"submitted":     submitted,
			"fields":        fields,
			"results_url":   resultsURL(survey.Slug),
		})
	}
}

func PublicSubmitSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		survey, err := app.Store.LiveSurveyBySlug(r.Context(), slug, app.Now())
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				httpx.LogNotFound(w, "submit_survey", slug)
			} else {
				httpx.LogInternalError(w, "db.get_survey", err)
			}
			return
		}

		who, err := requester(app, r)
		if err != nil {
			httpx.LogInternalError(w, "submit_survey.requester", err)
			return
		}
		req, err := decodeSubmission(r)
		if err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body", "%s", err)
			return
		}
		req.Requester = who

		sub, err := app.Intake.Submit(r.Context(), &survey, req)
		var verr *form.ValidationError
		switch {
		case err == nil:
		case errors.As(err, &verr):
			httpx.LogStatusJSON(w, r, http.StatusBadRequest, "submit_survey.invalid", verr)
			return
		case errors.Is(err, intake.ErrNotOpen):
			httpx.LogRedirect(w, r, "submit_survey.not_open", resultsURL(survey.Slug))
			return
		case errors.Is(err, intake.ErrLoginRequired):
			httpx.LogRedirect(w, r, "submit_survey.login_required", "/login?goto="+url.QueryEscape(r.URL.Path))
			return
		case errors.Is(err, intake.ErrNoSession):
			httpx.LogStatusMsg(w, http.StatusForbidden, log.DebugLevel, "submit_survey.no_session", "Cookies must be enabled to use this application.")
			return
		case errors.Is(err, intake.ErrAlreadySubmitted):
			httpx.LogStatusJSON(w, r, http.StatusConflict, "submit_survey.already_submitted", map[string]any{
				"error":       "already_submitted",
				"results_url": resultsURL(survey.Slug),
			})
			return
		default:
			httpx.LogInternalError(w, "submit_survey", err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Path:     "/",
			Name:     thanksCookie(survey.Slug),
			Value:    "1",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		w.Header().Set("location", resultsURL(survey.Slug))
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id":          sub.ID,
			"results_url": resultsURL(survey.Slug),
		})
	}
}

func PublicSurveyResults(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, ok := pageParam(r)
		if !ok {
			httpx.LogNotFound(w, "survey_results.page", r.URL.Query().Get("page"))
			return
		}

		slug := chi.URLParam(r, "slug")
		now := app.Now()
		survey, err := app.Store.LiveSurveyBySlug(r.Context(), slug, now)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				httpx.LogNotFound(w, "survey_results", slug)
			} else {
				httpx.LogInternalError(w, "db.get_survey", err)
			}
			return
		}

		p, err := app.Store.PublicSubmissions(r.Context(), &survey, now, page, app.PageSize)
		if err != nil {
			if errors.Is(err, store.ErrPageOutOfRange) {
				httpx.LogNotFound(w, "survey_results.page", page)
			} else {
				httpx.LogInternalError(w, "db.public_submissions", err)
			}
			return
		}

		subs, err := submissionsJSON(r.Context(), app.Store, &survey, p.Items, true)
		if err != nil {
			httpx.LogInternalError(w, "db.submission_answers", err)
			return
		}

		_, err = r.Cookie(thanksCookie(survey.Slug))
		thanks := err == nil

		render.JSON(w, r, map[string]any{
			"survey":       survey,
			"thanks":       thanks,
			"page":         pageInfo(p),
			"submissions":  subs,
			"has_next":     p.HasNext(),
			"has_previous": p.HasPrevious(),
		})
	}
}

// requester identifies the client from its session, its bearer token
// and its address.
func requester(app app.App, r *http.Request) (intake.Requester, error) {
	req := intake.Requester{IPAddress: clientIP(r)}
	req.SessionKey, req.HasSession = middlewares.SessionKey(r.Context())

	username, ok := middlewares.Username(r.Context())
	if !ok {
		return req, nil
	}
	user, err := app.Store.UserByUsername(r.Context(), username)
	if errors.Is(err, store.ErrNotFound) {
		return req, nil
	}
	if err != nil {
		return req, err
	}
	req.UserID = &user.ID
	return req, nil
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type submissionBody struct {
	Email  string         `json:"email"`
	Fields map[string]any `json:"fields"`
}

// decodeSubmission reads either a JSON body or a multipart form, the
// latter being required for photo uploads.
func decodeSubmission(r *http.Request) (intake.Request, error) {
	if strings.HasPrefix(r.Header.Get("content-type"), "multipart/form-data") {
		err := r.ParseMultipartForm(maxUploadSize)
		if err != nil {
			return intake.Request{}, err
		}
		return multipartSubmission(r.MultipartForm), nil
	}

	body := submissionBody{}
	err := render.DecodeJSON(r.Body, &body)
	if err != nil {
		return intake.Request{}, err
	}
	if body.Fields == nil {
		body.Fields = map[string]any{}
	}
	return intake.Request{Email: body.Email, Values: body.Fields}, nil
}

func multipartSubmission(mf *multipart.Form) intake.Request {
	req := intake.Request{Values: map[string]any{}}
	for name, values := range mf.Value {
		if name == form.EmailField {
			if len(values) > 0 {
				req.Email = values[0]
			}
			continue
		}
		if len(values) == 1 {
			req.Values[name] = values[0]
		} else {
			req.Values[name] = values
		}
	}
	for name, headers := range mf.File {
		if len(headers) == 0 {
			continue
		}
		fh := headers[0]
		req.Values[name] = &form.File{
			Filename: fh.Filename,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		}
	}
	return req
}

func pageParam(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1, true
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return page, true
}

func pageInfo(p store.Page[model.Submission]) map[string]any {
	return map[string]any{
		"number":    p.Number,
		"per_page":  p.PerPage,
		"count":     p.Count,
		"num_pages": p.NumPages,
	}
}

// submissionsJSON flattens submissions with their answers keyed by
// fieldname. publicOnly drops the answers of non-public questions.
func submissionsJSON(ctx context.Context, loader model.AnswerLoader, survey *model.Survey, subs []model.Submission, publicOnly bool) ([]map[string]any, error) {
	out := make([]map[string]any, len(subs))
	for i := range subs {
		s := &subs[i]
		dict, err := s.AnswerDict(ctx, loader)
		if err != nil {
			return nil, err
		}

		answers := make(map[string]any, len(dict))
		for fieldname, v := range dict {
			if publicOnly {
				q, ok := survey.Question(fieldname)
				if !ok || !q.AnswerIsPublic {
					continue
				}
			}
			if v != nil {
				answers[fieldname] = v.Native()
			} else {
				answers[fieldname] = nil
			}
		}

		item := map[string]any{
			"id":           s.ID,
			"submitted_at": s.SubmittedAt,
			"answers":      answers,
		}
		if !publicOnly {
			item["email"] = s.Email
			item["ip_address"] = s.IPAddress
			item["is_public"] = s.IsPublic
			if s.UserID != nil {
				item["user_id"] = *s.UserID
			}
		}
		out[i] = item
	}
	return out, nil
}
