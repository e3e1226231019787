package app

import (
	"database/sql"
	"time"

	"github.com/go-chi/oauth"

	"github.com/mbolis/crowdsourcing/config"
	"github.com/mbolis/crowdsourcing/intake"
	"github.com/mbolis/crowdsourcing/media"
	"github.com/mbolis/crowdsourcing/store"
)

type App struct {
	*sql.DB
	*oauth.BearerServer
	config.Config

	Store  *store.Store
	Intake *intake.Service
	Media  *media.Dir
	Now    func() time.Time
}
