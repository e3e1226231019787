package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mbolis/crowdsourcing/app"
	"github.com/mbolis/crowdsourcing/form"
	"github.com/mbolis/crowdsourcing/httpx"
	"github.com/mbolis/crowdsourcing/log"
	"github.com/mbolis/crowdsourcing/model"
	"github.com/mbolis/crowdsourcing/store"
)

func CreateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		survey := model.NewSurvey(app.Now(), app.ModerateSubmissions)
		err := render.DecodeJSON(r.Body, &survey)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if !checkSurvey(w, r, &survey) {
			return
		}

		err = app.Store.CreateSurvey(r.Context(), &survey)
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				httpx.LogStatusMsg(w, http.StatusConflict, log.DebugLevel, "db.insert_survey.conflict", "%s", err)
			} else {
				httpx.LogInternalError(w, "db.insert_survey", err)
			}
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id":      survey.ID,
			"version": survey.Version,
		})
	}
}

func ListSurveys(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveys, err := app.Store.ListSurveys(r.Context())
		if err != nil {
			httpx.LogInternalError(w, "db.get_surveys", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"surveys": surveys,
		})
	}
}

func GetSurveyById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		survey, err := app.Store.SurveyByID(r.Context(), surveyId)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				httpx.LogNotFound(w, "get_survey", surveyId)
			} else {
				httpx.LogInternalError(w, "db.get_survey", err)
			}
			return
		}

		render.JSON(w, r, survey)
	}
}

func UpdateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		survey := model.Survey{}
		err = render.DecodeJSON(r.Body, &survey)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		survey.ID = surveyId
		if !checkSurvey(w, r, &survey) {
			return
		}

		err = app.Store.UpdateSurvey(r.Context(), &survey)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				httpx.LogNotFound(w, "update_survey", surveyId)
			case errors.Is(err, store.ErrConflict):
				// optimistic lock, or a duplicate slug or fieldname
				httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "db.update_survey.verify.conflict")
			default:
				httpx.LogInternalError(w, "db.update_survey", err)
			}
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func GetSurveySubmissions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}
		page, ok := pageParam(r)
		if !ok {
			httpx.LogNotFound(w, "get_submissions.page", r.URL.Query().Get("page"))
			return
		}

		survey, err := app.Store.SurveyByID(r.Context(), surveyId)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				httpx.LogNotFound(w, "get_submissions", surveyId)
			} else {
				httpx.LogInternalError(w, "db.get_survey", err)
			}
			return
		}

		p, err := app.Store.SurveySubmissions(r.Context(), surveyId, page, app.PageSize)
		if err != nil {
			if errors.Is(err, store.ErrPageOutOfRange) {
				httpx.LogNotFound(w, "get_submissions.page", page)
			} else {
				httpx.LogInternalError(w, "db.get_submissions", err)
			}
			return
		}

		subs, err := submissionsJSON(r.Context(), app.Store, &survey, p.Items, false)
		if err != nil {
			httpx.LogInternalError(w, "db.submission_answers", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"page":        pageInfo(p),
			"submissions": subs,
		})
	}
}

func ModerateSubmission(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		submissionId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		var body struct {
			IsPublic *bool `json:"is_public"`
		}
		err = render.DecodeJSON(r.Body, &body)
		if err != nil || body.IsPublic == nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		err = app.Store.SetSubmissionPublic(r.Context(), submissionId, *body.IsPublic)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				httpx.LogNotFound(w, "moderate_submission", submissionId)
			} else {
				httpx.LogInternalError(w, "db.moderate_submission", err)
			}
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func ListOptionTypes(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]any{
			"option_types":     model.OptionTypeChoices(),
			"archive_policies": []model.ArchivePolicy{model.ArchiveImmediate, model.ArchivePostClose, model.ArchiveNever},
		})
	}
}

func checkSurvey(w http.ResponseWriter, r *http.Request, survey *model.Survey) bool {
	err := form.Check(survey)
	if err == nil {
		return true
	}
	var verr *form.ValidationError
	if errors.As(err, &verr) {
		httpx.LogStatusJSON(w, r, http.StatusBadRequest, "request.validate", verr)
	} else {
		httpx.LogInternalError(w, "request.validate", err)
	}
	return false
}
