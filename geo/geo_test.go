package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNominatim_Geocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.NotEmpty(t, r.Header.Get("user-agent"))

		switch r.URL.Query().Get("q") {
		case "Milano":
			w.Write([]byte(`[{"lat":"45.4641943","lon":"9.1896346","display_name":"Milano"}]`))
		case "broken":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	g := NewNominatim(srv.URL+"/search", time.Second, 100)

	lat, lon, err := g.Geocode(context.Background(), "Milano")
	require.NoError(t, err)
	assert.InDelta(t, 45.464, lat, 0.001)
	assert.InDelta(t, 9.189, lon, 0.001)

	_, _, err = g.Geocode(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, ErrNoResult)

	_, _, err = g.Geocode(context.Background(), "broken")
	assert.Error(t, err)
}

func TestNominatim_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	g := NewNominatim(srv.URL, 20*time.Millisecond, 100)
	_, _, err := g.Geocode(context.Background(), "slow")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoResult)
}

func TestDisabled(t *testing.T) {
	_, _, err := Disabled{}.Geocode(context.Background(), "anywhere")
	assert.ErrorIs(t, err, ErrNoResult)
}
