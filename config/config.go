package config

import (
	"errors"
	"flag"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string
	DBUrl       string
	TokenSecret string
	TokenTTL    time.Duration
	Debug       bool
	LogFormat   string

	// PageSize is the number of submissions per results page.
	PageSize int
	// ModerateSubmissions is the default for new surveys' moderate_submissions flag.
	ModerateSubmissions bool

	UploadDir   string
	MediaPrefix string

	GeocoderURL     string
	GeocoderTimeout time.Duration
	GeocoderRate    float64

	AdminUser     string
	AdminPassword string
}

// LoadEnv reads a .env file into the process environment, if one exists.
func LoadEnv(paths ...string) error {
	err := godotenv.Load(paths...)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func ParseFlags(args []string) (cfg Config, err error) {
	fs := flag.NewFlagSet("crowdsourcing", flag.ContinueOnError)

	var host string
	fs.StringVar(&host, "host", env("HOST", "0.0.0.0"), "listen host name")
	var port uint
	fs.UintVar(&port, "port", envUint("PORT", 80), "listen port number")
	fs.StringVar(&cfg.DBUrl, "db-url", env("DB_URL", "crowdsourcing.sqlite"), "path to SQLite3 DB file")
	fs.StringVar(&cfg.TokenSecret, "token-secret", env("TOKEN_SECRET", ""), "secret key for token encryption and decryption")
	var ttl uint
	fs.UintVar(&ttl, "token-ttl", envUint("TOKEN_TTL", 120), "token TTL in seconds")
	fs.BoolVar(&cfg.Debug, "debug", envBool("DEBUG", false), "log at DEBUG level")
	fs.StringVar(&cfg.LogFormat, "log-format", env("LOG_FORMAT", "text"), "log output format, text or json")

	var pageSize uint
	fs.UintVar(&pageSize, "page-size", envUint("PAGE_SIZE", 10), "submissions per results page")
	fs.BoolVar(&cfg.ModerateSubmissions, "moderate-submissions", envBool("MODERATE_SUBMISSIONS", false), "hide new submissions until approved, for new surveys")

	fs.StringVar(&cfg.UploadDir, "upload-dir", env("UPLOAD_DIR", "media"), "directory for uploaded photos")
	fs.StringVar(&cfg.MediaPrefix, "media-prefix", env("MEDIA_PREFIX", "/media/"), "URL prefix uploaded photos are served under")

	fs.StringVar(&cfg.GeocoderURL, "geocoder-url", env("GEOCODER_URL", ""), "Nominatim-compatible search endpoint, empty disables geocoding")
	var geoTimeout uint
	fs.UintVar(&geoTimeout, "geocoder-timeout", envUint("GEOCODER_TIMEOUT", 5), "geocoder request timeout in seconds")
	fs.Float64Var(&cfg.GeocoderRate, "geocoder-rate", envFloat("GEOCODER_RATE", 1), "max geocoder requests per second")

	fs.StringVar(&cfg.AdminUser, "admin-user", env("ADMIN_USER", ""), "administrator account created at startup")
	fs.StringVar(&cfg.AdminPassword, "admin-password", env("ADMIN_PASSWORD", ""), "password of the startup administrator account")

	err = fs.Parse(args)
	if err != nil {
		return
	}

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second
	cfg.PageSize = int(pageSize)
	cfg.GeocoderTimeout = time.Duration(geoTimeout) * time.Second

	switch {
	case cfg.TokenSecret == "":
		err = errors.New("missing parameter -token-secret")
	case cfg.PageSize < 1:
		err = errors.New("parameter -page-size must be positive")
	case cfg.LogFormat != "text" && cfg.LogFormat != "json":
		err = errors.New("parameter -log-format must be text or json")
	case cfg.AdminUser != "" && cfg.AdminPassword == "":
		err = errors.New("missing parameter -admin-password")
	}

	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}

func env(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envUint(key string, def uint) uint {
	if n, err := strconv.ParseUint(os.Getenv(key), 10, 0); err == nil {
		return uint(n)
	}
	return def
}

func envBool(key string, def bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return def
}
