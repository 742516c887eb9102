package social

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/campaign-dispatch/internal/retry"
)

func TestFacebookPublish(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "tok", r.PostForm.Get("access_token"))
		if r.URL.Path == "/123/photos" {
			assert.Equal(t, "https://cdn/img.png", r.PostForm.Get("url"))
			_, _ = w.Write([]byte(`{"id":"photo","post_id":"123_9"}`))
			return
		}
		assert.Equal(t, "Hello", r.PostForm.Get("message"))
		_, _ = w.Write([]byte(`{"id":"123_8"}`))
	}))
	defer srv.Close()

	fb := NewFacebook(srv.URL, "123", "tok", srv.Client())
	id, err := fb.Publish(context.Background(), Post{Text: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "123_8", id)

	id, err = fb.Publish(context.Background(), Post{Text: "Hello", ImageURL: "https://cdn/img.png"})
	require.NoError(t, err)
	assert.Equal(t, "123_9", id)
	assert.Equal(t, []string{"/123/feed", "/123/photos"}, paths)
}

func TestInstagramRequiresImage(t *testing.T) {
	ig := NewInstagram("http://unused", "1", "tok", nil)
	_, err := ig.Publish(context.Background(), Post{Text: "x"})
	assert.ErrorIs(t, err, ErrImageRequired)
}

func TestInstagramPublish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		switch r.URL.Path {
		case "/77/media":
			_, _ = w.Write([]byte(`{"id":"container"}`))
		case "/77/media_publish":
			assert.Equal(t, "container", r.PostForm.Get("creation_id"))
			_, _ = w.Write([]byte(`{"id":"media-1"}`))
		}
	}))
	defer srv.Close()

	id, err := NewInstagram(srv.URL, "77", "tok", srv.Client()).Publish(context.Background(), Post{Text: "x", ImageURL: "https://cdn/i.png"})
	require.NoError(t, err)
	assert.Equal(t, "media-1", id)
}

func TestWhatsAppMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer wa", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "8801712345678", body["to"])
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer srv.Close()

	id, err := NewWhatsApp(srv.URL, "555", "wa", srv.Client()).Message(context.Background(), "8801712345678", "hi")
	require.NoError(t, err)
	assert.Equal(t, "wamid.1", id)
}

func TestGraphThrottleIsRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Application request limit reached","code":4}}`))
	}))
	defer srv.Close()

	_, err := NewFacebook(srv.URL, "1", "t", srv.Client()).Publish(context.Background(), Post{Text: "x"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 4, apiErr.Code)
	assert.True(t, retry.IsRateLimited(err))
}

func TestLinkedInPublish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ugcPosts", r.URL.Path)
		w.Header().Set("X-RestLi-Id", "urn:li:share:1")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	id, err := NewLinkedIn(srv.URL, "urn:li:organization:9", "li", srv.Client()).Publish(context.Background(), Post{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, "urn:li:share:1", id)
}
