package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"TalkTime/global/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQrProviderIssues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "app-1", r.URL.Query().Get("appid"))
		assert.Equal(t, "s3cret", r.Header.Get("X-App-Secret"))

		var req sceneReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "42", req.ActionInfo.Scene.SceneStr)
		assert.Equal(t, int64(3600), req.ExpireSeconds)
		assert.Equal(t, actionStrScene, req.ActionName)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ticket":"tk","expire_seconds":3600,"url":"https://qr.example/tk"}`))
	}))
	defer srv.Close()

	p := NewQrProvider(config.IdentityConfig{Endpoint: srv.URL, AppID: "app-1", Secret: "s3cret"})
	u, err := p.IssueScannableArtifact(context.Background(), 42, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "https://qr.example/tk", u)
}

func TestQrProviderErrCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"errcode":40001,"errmsg":"invalid credential"}`))
	}))
	defer srv.Close()

	_, err := NewQrProvider(config.IdentityConfig{Endpoint: srv.URL}).
		IssueScannableArtifact(context.Background(), 1, time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "40001")
}

func TestQrProviderHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewQrProvider(config.IdentityConfig{Endpoint: srv.URL}).
		IssueScannableArtifact(context.Background(), 1, time.Hour)
	assert.Error(t, err)
}

func TestQrProviderHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewQrProvider(config.IdentityConfig{Endpoint: srv.URL, Timeout: 5 * time.Second}).
		IssueScannableArtifact(ctx, 1, time.Hour)
	assert.Error(t, err)
}

func TestLinkProvider(t *testing.T) {
	u, err := LinkProvider{Base: "https://talktime.example/scan"}.IssueScannableArtifact(context.Background(), 0, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "https://talktime.example/scan?code=0&ttl=3600", u)
}
