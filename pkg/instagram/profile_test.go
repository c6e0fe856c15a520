package instagram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const webProfileJSON = `{
	"data": {
		"user": {
			"biography": "  certified trainer | meal plans  ",
			"edge_owner_to_timeline_media": {
				"edges": [
					{"node": {"edge_media_to_caption": {"edges": [{"node": {"text": "leg day #fitness"}}]}}},
					{"node": {"edge_media_to_caption": {"edges": []}}},
					{"node": {"edge_media_to_caption": {"edges": [{"node": {"text": "meal prep sunday"}}]}}},
					{"node": {"edge_media_to_caption": {"edges": [{"node": {"text": "rest day"}}]}}}
				]
			}
		}
	}
}`

func newTestProfileClient(srv *httptest.Server) *ProfileClient {
	c := NewProfileClient("")
	c.baseURL = srv.URL
	return c
}

func TestFetchProfileJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/users/web_profile_info/", r.URL.Path)
		require.Equal(t, "coach_kim", r.URL.Query().Get("username"))
		require.Equal(t, webAppID, r.Header.Get("X-IG-App-ID"))
		w.Write([]byte(webProfileJSON))
	}))
	defer srv.Close()

	profile, err := newTestProfileClient(srv).FetchProfile(context.Background(), "coach_kim", 2)
	require.NoError(t, err)

	require.Equal(t, "coach_kim", profile.Username)
	require.Equal(t, "certified trainer | meal plans", profile.Bio)
	// Posts without a caption are skipped; numPosts caps the rest.
	require.Equal(t, []string{"leg day #fitness", "meal prep sunday"}, profile.Captions)
}

func TestFetchProfileNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestProfileClient(srv).FetchProfile(context.Background(), "no_such_user", 3)
	require.ErrorIs(t, err, ErrProfileNotFound)
}

func TestFetchProfileLoginRequired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestProfileClient(srv).FetchProfile(context.Background(), "someone", 3)
	require.ErrorIs(t, err, ErrLoginRequired)
}

func TestFetchProfileNullUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"user": null}}`))
	}))
	defer srv.Close()

	_, err := newTestProfileClient(srv).FetchProfile(context.Background(), "ghost", 3)
	require.ErrorIs(t, err, ErrProfileNotFound)
}

func TestFetchProfileHTMLFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/users/web_profile_info/" {
			// Endpoint broken in a way that is not "not found"/"login".
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		require.Equal(t, "/wanderer/", r.URL.Path)
		w.Write([]byte(`<html><head>
			<meta property="og:description" content="1,234 Followers, 56 Following, 78 Posts - Ann (@wanderer) on Instagram: &quot;exploring one city at a time&quot;">
		</head><body></body></html>`))
	}))
	defer srv.Close()

	profile, err := newTestProfileClient(srv).FetchProfile(context.Background(), "wanderer", 3)
	require.NoError(t, err)
	require.Equal(t, "exploring one city at a time", profile.Bio)
	require.Empty(t, profile.Captions)
}

func TestBioFromOGDescription(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`10 Followers - Bob (@bob) on Instagram: "coffee first"`, "coffee first"},
		{`10 Followers - Bob (@bob) on Instagram`, ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := bioFromOGDescription(tc.in); got != tc.want {
			t.Errorf("bioFromOGDescription(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
