package testing

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

// SpotifyTracksJSON renders a one-page playlist tracks body. Each track is "name|artist1,artist2".
func SpotifyTracksJSON(tracks ...string) string {
	type artist struct {
		Name string `json:"name"`
	}
	type track struct {
		ID      string   `json:"id"`
		Name    string   `json:"name"`
		Artists []artist `json:"artists"`
	}
	type item struct {
		Track track `json:"track"`
	}

	items := make([]item, 0, len(tracks))
	for i, t := range tracks {
		name, artists, _ := strings.Cut(t, "|")
		tr := track{ID: fmt.Sprintf("t%d", i+1), Name: name}
		for a := range strings.SplitSeq(artists, ",") {
			if a != "" {
				tr.Artists = append(tr.Artists, artist{Name: a})
			}
		}
		items = append(items, item{Track: tr})
	}

	data, _ := json.Marshal(map[string]any{"items": items, "total": len(items), "next": nil})
	return string(data)
}

// SpotifyStub stands in for the Spotify accounts and Web API hosts.
//
// Token requests go to /api/token and API requests under /v1.
type SpotifyStub struct {
	*httptest.Server

	mu            sync.Mutex
	TracksBody    string
	TrackPages    []string
	TokenStatus   int
	TracksStatus  int
	TokenRequests int
	TrackRequests int
	TokenAuth     string
	TokenForm     string
	BearerTokens  []string
}

// NewSpotifyStub starts a stub serving tracksBody for every playlist.
//
// When TrackPages is set, the nth tracks request gets the nth page instead.
func NewSpotifyStub(t *testing.T, tracksBody string) *SpotifyStub {
	t.Helper()
	s := &SpotifyStub{TracksBody: tracksBody}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token", s.token)
	mux.HandleFunc("GET /v1/playlists/{id}/tracks", s.tracks)
	mux.HandleFunc("GET /v1/playlists/{id}", s.playlist)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *SpotifyStub) TokenURL() string { return s.URL + "/api/token" }
func (s *SpotifyStub) APIURL() string   { return s.URL + "/v1" }

func (s *SpotifyStub) token(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.TokenRequests++
	s.TokenAuth = r.Header.Get("Authorization")
	s.TokenForm = string(body)
	status := s.TokenStatus
	s.mu.Unlock()

	if status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, `{"error":"invalid_client"}`)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, `{"access_token":"sp-token","token_type":"Bearer","expires_in":3600}`)
}

func (s *SpotifyStub) tracks(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.TrackRequests++
	s.BearerTokens = append(s.BearerTokens, r.Header.Get("Authorization"))
	status, body := s.TracksStatus, s.TracksBody
	if n := len(s.TrackPages); n > 0 {
		body = s.TrackPages[min(s.TrackRequests, n)-1]
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"error":{"status":%d,"message":"stub error"}}`, status)
		return
	}
	io.WriteString(w, body)
}

func (s *SpotifyStub) playlist(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.PathValue("id") == "missing" {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":{"status":404,"message":"Not found."}}`)
		return
	}
	fmt.Fprintf(w, `{"id":%q,"name":"Road Trip","description":"songs for the car","public":true,"owner":{"display_name":"owner"},"tracks":{"total":2}}`,
		r.PathValue("id"))
}

// YouTubeStub stands in for the YouTube Data API under /youtube/v3.
//
// Videos maps a search query to the video id it returns. Unknown queries return no hits.
type YouTubeStub struct {
	*httptest.Server

	mu           sync.Mutex
	Videos       map[string]string
	SearchStatus int
	CreateStatus int
	FailInsertAt int
	Calls        []string
	Queries      []url.Values
	Created      map[string]any
	Inserted     []string
}

// NewYouTubeStub starts a stub resolving the given query → video id pairs.
func NewYouTubeStub(t *testing.T, videos map[string]string) *YouTubeStub {
	t.Helper()
	y := &YouTubeStub{Videos: videos}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /youtube/v3/search", y.search)
	mux.HandleFunc("POST /youtube/v3/playlists", y.createPlaylist)
	mux.HandleFunc("POST /youtube/v3/playlistItems", y.insertItem)

	y.Server = httptest.NewServer(mux)
	t.Cleanup(y.Close)
	return y
}

// CallLog returns a copy of the calls seen so far, e.g. "search:q", "create", "insert:vid".
func (y *YouTubeStub) CallLog() []string {
	y.mu.Lock()
	defer y.mu.Unlock()
	return append([]string(nil), y.Calls...)
}

// SearchQueries returns the raw query parameters of every search request.
func (y *YouTubeStub) SearchQueries() []url.Values {
	y.mu.Lock()
	defer y.mu.Unlock()
	return append([]url.Values(nil), y.Queries...)
}

func apiError(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":{"code":%d,"message":"stub failure"}}`, status)
}

func (y *YouTubeStub) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	y.mu.Lock()
	y.Calls = append(y.Calls, "search:"+q)
	y.Queries = append(y.Queries, r.URL.Query())
	status := y.SearchStatus
	id, ok := y.Videos[q]
	y.mu.Unlock()

	if status != 0 {
		apiError(w, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		io.WriteString(w, `{"kind":"youtube#searchListResponse","items":[]}`)
		return
	}
	fmt.Fprintf(w, `{"kind":"youtube#searchListResponse","items":[{"id":{"kind":"youtube#video","videoId":%q}}]}`, id)
}

func (y *YouTubeStub) createPlaylist(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	y.mu.Lock()
	y.Calls = append(y.Calls, "create")
	y.Created = body
	status := y.CreateStatus
	y.mu.Unlock()

	if status != 0 {
		apiError(w, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	snippet, _ := body["snippet"].(map[string]any)
	title, _ := snippet["title"].(string)
	fmt.Fprintf(w, `{"id":"PL123","snippet":{"title":%q,"channelId":"UC1"}}`, title)
}

func (y *YouTubeStub) insertItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Snippet struct {
			PlaylistID string `json:"playlistId"`
			ResourceID struct {
				Kind    string `json:"kind"`
				VideoID string `json:"videoId"`
			} `json:"resourceId"`
		} `json:"snippet"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	video := body.Snippet.ResourceID.VideoID

	y.mu.Lock()
	y.Calls = append(y.Calls, "insert:"+video)
	attempt := 0
	for _, c := range y.Calls {
		if strings.HasPrefix(c, "insert:") {
			attempt++
		}
	}
	fail := y.FailInsertAt != 0 && attempt == y.FailInsertAt
	if !fail {
		y.Inserted = append(y.Inserted, body.Snippet.PlaylistID+"/"+video)
	}
	y.mu.Unlock()

	if fail {
		apiError(w, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"id":"item-%d","snippet":{"playlistId":%q}}`, attempt, body.Snippet.PlaylistID)
}
