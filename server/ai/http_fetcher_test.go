package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/hilite/wingman/server/internal/errors"
)

func TestHTTPFetcherContract(t *testing.T) {
	var got ReplyRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/replies", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(&ReplyResponse{
			Tone:        "FLIRT",
			Content:     []string{"hey", "coffee?"},
			Nickname:    "Anna",
			DialogTitle: "Anna",
		})
	}))
	defer srv.Close()

	f := NewHTTPFetcher(&HTTPConfig{BaseURL: srv.URL, APIKey: "fallback-key"})
	resp, err := f.FetchReplies(context.Background(), "receipt-token", &ReplyRequest{
		ScreenshotBase64: "aGVsbG8=",
		Tone:             "FLIRT",
		Context:          "she likes hiking",
		Language:         "en",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"hey", "coffee?"}, resp.Content)
	require.Equal(t, "Anna", resp.DialogTitle)

	// The caller's receipt wins over the configured key.
	require.Equal(t, "Bearer receipt-token", gotAuth)
	require.Equal(t, "aGVsbG8=", got.ScreenshotBase64)
	require.Equal(t, "FLIRT", got.Tone)
	require.Equal(t, "she likes hiking", got.Context)
	require.Equal(t, "en", got.Language)
}

func TestHTTPFetcherAPIKeyFallback(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(&ReplyResponse{Content: []string{"x"}})
	}))
	defer srv.Close()

	f := NewHTTPFetcher(&HTTPConfig{BaseURL: srv.URL, APIKey: "fallback-key"})
	_, err := f.FetchReplies(context.Background(), "", &ReplyRequest{})
	require.NoError(t, err)
	require.Equal(t, "Bearer fallback-key", gotAuth)
}

func TestHTTPFetcherNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(&HTTPConfig{BaseURL: srv.URL})
	_, err := f.FetchReplies(context.Background(), "", &ReplyRequest{})
	require.Error(t, err)
	require.Equal(t, apperrors.ErrCodeNetwork, apperrors.CodeOf(err))
	require.Contains(t, err.Error(), "quota exceeded")
}

func TestHTTPFetcherMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("this is not json"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(&HTTPConfig{BaseURL: srv.URL})
	_, err := f.FetchReplies(context.Background(), "", &ReplyRequest{})
	require.Error(t, err)
	require.Equal(t, apperrors.ErrCodeNetwork, apperrors.CodeOf(err))
}

func TestHTTPFetcherEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(&ReplyResponse{Tone: "RIZZ"})
	}))
	defer srv.Close()

	f := NewHTTPFetcher(&HTTPConfig{BaseURL: srv.URL})
	_, err := f.FetchReplies(context.Background(), "", &ReplyRequest{})
	require.Error(t, err)
	require.Equal(t, apperrors.ErrCodeNetwork, apperrors.CodeOf(err))
}

func TestHTTPFetcherNoRetries(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(&HTTPConfig{BaseURL: srv.URL})
	_, err := f.FetchReplies(context.Background(), "", &ReplyRequest{})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}
