package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/ortegarod/flashwatch/internal/alert"
)

func sampleAlert() alert.Alert {
	to := "0xabc"
	return alert.Alert{
		RuleName:  "whale",
		Timestamp: 1700000000,
		Tx: alert.Tx{
			To:       &to,
			ValueEth: 12.5,
			Category: "unknown",
		},
	}
}

func TestSendPostsAlertJSONWithBearerToken(t *testing.T) {
	os.Setenv(TokenEnvVar, "secret-token")
	defer os.Unsetenv(TokenEnvVar)

	var gotAuth string
	var gotAlert alert.Alert

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotAlert)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewHTTPSender()
	require.NoError(t, s.Send(context.Background(), srv.URL, sampleAlert()))
	require.Equal(t, "Bearer secret-token", gotAuth)
	require.Equal(t, "whale", gotAlert.RuleName)
}

func TestSendWithoutTokenOmitsAuthHeader(t *testing.T) {
	os.Unsetenv(TokenEnvVar)

	var sawAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuth = r.Header.Get("Authorization") != ""
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewHTTPSender()
	require.NoError(t, s.Send(context.Background(), srv.URL, sampleAlert()))
	require.False(t, sawAuth, "expected no Authorization header")
}

func TestSendReturnsErrorOnNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewHTTPSender()
	require.Error(t, s.Send(context.Background(), srv.URL, sampleAlert()))
}

func TestSendRespectsRateLimiter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewHTTPSender()
	s.limiter = rate.NewLimiter(rate.Limit(1), 1)

	require.NoError(t, s.Send(context.Background(), srv.URL, sampleAlert()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// With the burst exhausted and an already-canceled context, Wait
	// must fail fast instead of making a second request.
	require.Error(t, s.Send(ctx, srv.URL, sampleAlert()))
}

func TestBuildBodyMarshalsAlert(t *testing.T) {
	body, err := BuildBody(sampleAlert())
	require.NoError(t, err)

	var round alert.Alert
	require.NoError(t, json.Unmarshal(body, &round))
	require.Equal(t, "whale", round.RuleName)
}
