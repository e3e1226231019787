package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/oauth"

	"github.com/mbolis/crowdsourcing/app"
	"github.com/mbolis/crowdsourcing/routes/middlewares"
)

const slugPattern = `{slug:^[-a-zA-Z0-9_]+$}`

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer, middlewares.Session)

	root.Mount("/api", apiRouter(app))
	if app.Media != nil {
		root.Mount(app.Media.Prefix(), app.Media.Handler())
	}

	root.
		With(middlewares.CookieAuth(app.BearerServer), middlewares.Admin(app.TokenSecret)).
		Mount("/admin", servePrivateFiles("/admin"))
	root.Mount("/", servePublicFiles())

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Group(func(r chi.Router) {
		r.Use(middlewares.OptionalAuth(app.TokenSecret))

		r.Get("/surveys", PublicListSurveys(app))
		r.Get("/surveys/"+slugPattern, PublicGetSurvey(app))
		r.Post("/surveys/"+slugPattern+"/submissions", PublicSubmitSurvey(app))
		r.Get("/surveys/"+slugPattern+"/results", PublicSurveyResults(app))
	})

	api.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.Admin(app.TokenSecret))

		r.Get("/option-types", ListOptionTypes(app))

		// CRUD survey, without delete
		r.Post("/surveys", CreateSurvey(app))
		r.Get("/surveys", ListSurveys(app))
		r.Get(`/surveys/{id:^\d+$}`, GetSurveyById(app))
		r.Put(`/surveys/{id:^\d+$}`, UpdateSurvey(app))

		r.Get(`/surveys/{id:^\d+$}/submissions`, GetSurveySubmissions(app))
		r.Patch(`/submissions/{id:^\d+$}`, ModerateSubmission(app))
	})

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))
	api.With(oauth.Authorize(app.TokenSecret, nil)).Post("/logout", Logout(app))

	return api
}

func servePublicFiles() http.Handler {
	return http.FileServer(http.Dir("public"))
}

func servePrivateFiles(path string) http.Handler {
	return http.StripPrefix(path, http.FileServer(http.Dir("private")))
}
