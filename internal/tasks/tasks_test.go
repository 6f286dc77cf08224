package tasks

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sp2yt/internal/models"
	"github.com/desertthunder/sp2yt/internal/services"
	"github.com/desertthunder/sp2yt/internal/shared"
	"golang.org/x/oauth2"
)

// mockSource and mockDestination append to a shared call log so ordering across both ends can be checked.
type mockSource struct {
	calls    *[]string
	tracks   []models.TrackDescriptor
	tokenErr error
	readErr  error
}

func (m *mockSource) FetchToken(ctx context.Context) (string, error) {
	*m.calls = append(*m.calls, "token")
	if m.tokenErr != nil {
		return "", m.tokenErr
	}
	return "sp-token", nil
}

func (m *mockSource) ReadPlaylist(ctx context.Context, token, playlistID string) ([]models.TrackDescriptor, error) {
	*m.calls = append(*m.calls, "read:"+token+":"+playlistID)
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.tracks, nil
}

type mockDestination struct {
	calls        *[]string
	videos       map[string]string
	searchErr    error
	failSearchAt int
	searches     int
	authErr      error
	createErr    error
	failInsert   int
	inserts      int
}

func (m *mockDestination) Search(ctx context.Context, query string) (string, bool, error) {
	*m.calls = append(*m.calls, "search:"+query)
	m.searches++
	if m.searchErr != nil && (m.failSearchAt == 0 || m.searches == m.failSearchAt) {
		return "", false, m.searchErr
	}
	id, ok := m.videos[query]
	return id, ok, nil
}

func (m *mockDestination) Authorize(ctx context.Context, a services.Authorizer) error {
	*m.calls = append(*m.calls, "authorize")
	if m.authErr != nil {
		return m.authErr
	}
	_, err := a.Authorize(ctx)
	return err
}

func (m *mockDestination) CreatePlaylist(ctx context.Context, details models.PlaylistDetails) (*models.PlaylistResult, error) {
	*m.calls = append(*m.calls, "create:"+details.Title)
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.PlaylistResult{ID: "PL123", Title: details.Title, Description: details.Description, Privacy: details.Privacy}, nil
}

func (m *mockDestination) InsertItem(ctx context.Context, playlistID, videoID string) error {
	*m.calls = append(*m.calls, "insert:"+playlistID+":"+videoID)
	m.inserts++
	if m.failInsert != 0 && m.inserts == m.failInsert {
		return shared.ErrAPIRequest
	}
	return nil
}

type noopAuthorizer struct{}

func (noopAuthorizer) Authorize(context.Context) (oauth2.TokenSource, error) {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "yt"}), nil
}

type mockRecorder struct {
	started     int
	stages      []models.Stage
	resolutions models.Resolutions
	updateErr   error
}

func (m *mockRecorder) StartRun(run *models.Run) error {
	m.started++
	return nil
}

func (m *mockRecorder) UpdateRun(run *models.Run) error {
	m.stages = append(m.stages, run.Stage)
	return m.updateErr
}

func (m *mockRecorder) SaveResolutions(runID string, rs models.Resolutions) error {
	m.resolutions = rs
	return nil
}

var (
	songA = models.TrackDescriptor{ID: "a", Name: "Song A", Artists: []string{"Artist X"}}
	songB = models.TrackDescriptor{ID: "b", Name: "Song B", Artists: []string{"Y", "Z"}}
	songC = models.TrackDescriptor{ID: "c", Name: "Song C", Artists: []string{"W"}}

	details = models.PlaylistDetails{Title: "Test Playlist", Description: "This is a test", Privacy: "public"}
)

func newTestPipeline(tracks []models.TrackDescriptor, videos map[string]string) (*Pipeline, *mockSource, *mockDestination, *[]string) {
	calls := &[]string{}
	src := &mockSource{calls: calls, tracks: tracks}
	dst := &mockDestination{calls: calls, videos: videos}
	p := NewPipeline(src, dst, noopAuthorizer{}, log.New(&bytes.Buffer{}))
	return p, src, dst, calls
}

func TestPipeline_Run(t *testing.T) {
	ctx := context.Background()
	opts := Options{PlaylistID: "pl1", Details: details}

	t.Run("full transfer", func(t *testing.T) {
		p, _, _, calls := newTestPipeline(
			[]models.TrackDescriptor{songA, songB, songC},
			map[string]string{"Song A by Artist X": "v1", "Song B by Y, Z": "v2", "Song C by W": "v3"},
		)

		result, err := p.Run(ctx, opts, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		want := []string{
			"token",
			"read:sp-token:pl1",
			"search:Song A by Artist X",
			"search:Song B by Y, Z",
			"search:Song C by W",
			"authorize",
			"create:Test Playlist",
			"insert:PL123:v1",
			"insert:PL123:v2",
			"insert:PL123:v3",
		}
		if !slices.Equal(*calls, want) {
			t.Errorf("calls = %v, want %v", *calls, want)
		}
		if result.Playlist.Inserted != 3 {
			t.Errorf("expected 3 inserted, got %d", result.Playlist.Inserted)
		}
		if result.Run.Stage != models.Done || result.Run.Status != models.RunSucceeded {
			t.Errorf("unexpected run state %v/%v", result.Run.Stage, result.Run.Status)
		}
		if result.Run.DestPlaylistID != "PL123" || result.Run.ItemsInserted != 3 {
			t.Errorf("unexpected run %+v", result.Run)
		}
	})

	t.Run("miss keeps position and is dropped at insert", func(t *testing.T) {
		p, _, dst, _ := newTestPipeline(
			[]models.TrackDescriptor{songA, songB},
			map[string]string{"Song A by Artist X": "v1"},
		)

		result, err := p.Run(ctx, opts, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(result.Resolutions) != 2 || result.Resolutions[1].Found {
			t.Errorf("unexpected resolutions %+v", result.Resolutions)
		}
		if dst.inserts != 1 || result.Playlist.Inserted != 1 {
			t.Errorf("expected exactly one insert, got %d", dst.inserts)
		}
	})

	t.Run("empty source halts before destination", func(t *testing.T) {
		p, src, _, calls := newTestPipeline(nil, nil)
		src.readErr = shared.ErrNoItems

		result, err := p.Run(ctx, opts, nil)
		if !errors.Is(err, shared.ErrNoItems) {
			t.Fatalf("expected ErrNoItems, got %v", err)
		}
		if !slices.Equal(*calls, []string{"token", "read:sp-token:pl1"}) {
			t.Errorf("expected no destination calls, got %v", *calls)
		}
		if stage, ok := FailedStage(err); !ok || stage != models.TokenAcquired {
			t.Errorf("expected failure after token_acquired, got %v", stage)
		}
		if result.Run.Status != models.RunFailed {
			t.Errorf("expected failed run, got %v", result.Run.Status)
		}
	})

	t.Run("source returning no tracks without error", func(t *testing.T) {
		p, _, _, calls := newTestPipeline([]models.TrackDescriptor{}, nil)
		if _, err := p.Run(ctx, opts, nil); !errors.Is(err, shared.ErrNoItems) {
			t.Fatalf("expected ErrNoItems, got %v", err)
		}
		if len(*calls) != 2 {
			t.Errorf("expected no destination calls, got %v", *calls)
		}
	})

	t.Run("token failure stops everything", func(t *testing.T) {
		p, src, _, calls := newTestPipeline([]models.TrackDescriptor{songA}, nil)
		src.tokenErr = shared.ErrAuthFailed

		if _, err := p.Run(ctx, opts, nil); !errors.Is(err, shared.ErrAuthFailed) {
			t.Fatalf("expected ErrAuthFailed, got %v", err)
		}
		if !slices.Equal(*calls, []string{"token"}) {
			t.Errorf("expected only the token call, got %v", *calls)
		}
	})

	t.Run("search failure halts the run", func(t *testing.T) {
		p, _, dst, calls := newTestPipeline([]models.TrackDescriptor{songA, songB}, nil)
		dst.searchErr = shared.ErrAPIRequest

		if _, err := p.Run(ctx, opts, nil); !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if slices.Contains(*calls, "authorize") || len(*calls) != 3 {
			t.Errorf("expected to stop at first search, got %v", *calls)
		}
	})

	t.Run("no matches halts before authorizing", func(t *testing.T) {
		p, _, _, calls := newTestPipeline([]models.TrackDescriptor{songA}, nil)

		result, err := p.Run(ctx, opts, nil)
		if !errors.Is(err, shared.ErrNoMatches) {
			t.Fatalf("expected ErrNoMatches, got %v", err)
		}
		if slices.Contains(*calls, "authorize") {
			t.Errorf("expected no authorization, got %v", *calls)
		}
		if result.Run.Stage != models.VideosResolved {
			t.Errorf("expected videos_resolved, got %v", result.Run.Stage)
		}
	})

	t.Run("authorization failure", func(t *testing.T) {
		p, _, dst, calls := newTestPipeline([]models.TrackDescriptor{songA}, map[string]string{"Song A by Artist X": "v1"})
		dst.authErr = shared.ErrTimeout

		if _, err := p.Run(ctx, opts, nil); !errors.Is(err, shared.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
		if (*calls)[len(*calls)-1] != "authorize" {
			t.Errorf("expected to stop at authorize, got %v", *calls)
		}
	})

	t.Run("create failure", func(t *testing.T) {
		p, _, dst, calls := newTestPipeline([]models.TrackDescriptor{songA}, map[string]string{"Song A by Artist X": "v1"})
		dst.createErr = shared.ErrAPIRequest

		result, err := p.Run(ctx, opts, nil)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if result.Playlist != nil || dst.inserts != 0 {
			t.Errorf("expected no playlist and no inserts, calls %v", *calls)
		}
	})

	t.Run("insert failure keeps partial playlist", func(t *testing.T) {
		p, _, dst, _ := newTestPipeline(
			[]models.TrackDescriptor{songA, songB, songC},
			map[string]string{"Song A by Artist X": "v1", "Song B by Y, Z": "v2", "Song C by W": "v3"},
		)
		dst.failInsert = 2

		result, err := p.Run(ctx, opts, nil)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if result.Playlist == nil || result.Playlist.Inserted != 1 {
			t.Fatalf("expected partial playlist with 1 item, got %+v", result.Playlist)
		}
		if dst.inserts != 2 {
			t.Errorf("expected no insert after the failure, got %d attempts", dst.inserts)
		}
		if stage, _ := FailedStage(err); stage != models.PlaylistCreated {
			t.Errorf("expected failure after playlist_created, got %v", stage)
		}
	})

	t.Run("dry run stops after resolution", func(t *testing.T) {
		p, _, _, calls := newTestPipeline([]models.TrackDescriptor{songA}, map[string]string{"Song A by Artist X": "v1"})

		result, err := p.Run(ctx, Options{PlaylistID: "pl1", Details: details, DryRun: true}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if slices.Contains(*calls, "authorize") || result.Playlist != nil {
			t.Errorf("expected no writes, got %v", *calls)
		}
		if result.Run.Stage != models.Done || !result.Run.DryRun {
			t.Errorf("unexpected run %+v", result.Run)
		}
	})

	t.Run("validates inputs", func(t *testing.T) {
		p, _, _, _ := newTestPipeline(nil, nil)
		if _, err := p.Run(ctx, Options{}, nil); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}

		empty := NewPipeline(nil, nil, nil, nil)
		if _, err := empty.Run(ctx, opts, nil); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestPipeline_Recorder(t *testing.T) {
	ctx := context.Background()

	t.Run("records each stage and resolutions", func(t *testing.T) {
		p, _, _, _ := newTestPipeline([]models.TrackDescriptor{songA, songB}, map[string]string{"Song A by Artist X": "v1"})
		rec := &mockRecorder{}
		p.SetRecorder(rec)

		if _, err := p.Run(ctx, Options{PlaylistID: "pl1", Details: details}, nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		want := []models.Stage{
			models.TokenAcquired,
			models.TracksRead,
			models.VideosResolved,
			models.PlaylistCreated,
			models.ItemsInserted,
			models.Done,
		}
		if rec.started != 1 || !slices.Equal(rec.stages, want) {
			t.Errorf("started=%d stages=%v, want %v", rec.started, rec.stages, want)
		}
		if len(rec.resolutions) != 2 {
			t.Errorf("expected 2 saved resolutions, got %d", len(rec.resolutions))
		}
	})

	t.Run("search failure keeps resolved positions", func(t *testing.T) {
		p, _, dst, _ := newTestPipeline(
			[]models.TrackDescriptor{songA, songB, songC},
			map[string]string{"Song A by Artist X": "v1"},
		)
		dst.searchErr = shared.ErrAPIRequest
		dst.failSearchAt = 3
		rec := &mockRecorder{}
		p.SetRecorder(rec)

		result, err := p.Run(ctx, Options{PlaylistID: "pl1", Details: details}, nil)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if len(result.Resolutions) != 2 {
			t.Fatalf("expected 2 resolutions in result, got %d", len(result.Resolutions))
		}
		if len(rec.resolutions) != 2 {
			t.Fatalf("expected 2 recorded resolutions, got %d", len(rec.resolutions))
		}
		if !rec.resolutions[0].Found || rec.resolutions[1].Found {
			t.Errorf("unexpected recorded resolutions %+v", rec.resolutions)
		}
		if last := rec.stages[len(rec.stages)-1]; last != models.TracksRead {
			t.Errorf("expected run to stop at tracks_read, got %v", last)
		}
	})

	t.Run("first search failure records nothing", func(t *testing.T) {
		p, _, dst, _ := newTestPipeline([]models.TrackDescriptor{songA}, nil)
		dst.searchErr = shared.ErrAPIRequest
		rec := &mockRecorder{}
		p.SetRecorder(rec)

		_, _ = p.Run(ctx, Options{PlaylistID: "pl1", Details: details}, nil)
		if rec.resolutions != nil {
			t.Errorf("expected no recorded resolutions, got %+v", rec.resolutions)
		}
	})

	t.Run("recorder errors do not stop the run", func(t *testing.T) {
		var buf bytes.Buffer
		calls := &[]string{}
		p := NewPipeline(
			&mockSource{calls: calls, tracks: []models.TrackDescriptor{songA}},
			&mockDestination{calls: calls, videos: map[string]string{"Song A by Artist X": "v1"}},
			noopAuthorizer{},
			log.New(&buf),
		)
		p.SetRecorder(&mockRecorder{updateErr: errors.New("disk full")})

		if _, err := p.Run(ctx, Options{PlaylistID: "pl1", Details: details}, nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !bytes.Contains(buf.Bytes(), []byte("failed to record run")) {
			t.Errorf("expected warning, got %q", buf.String())
		}
	})
}

func TestPipeline_Progress(t *testing.T) {
	ctx := context.Background()

	t.Run("emits phases in order and ends with complete", func(t *testing.T) {
		p, _, _, _ := newTestPipeline([]models.TrackDescriptor{songA}, map[string]string{"Song A by Artist X": "v1"})
		progress := make(chan ProgressUpdate, 64)

		if _, err := p.Run(ctx, Options{PlaylistID: "pl1", Details: details}, progress); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		close(progress)

		var phases []Phase
		var last ProgressUpdate
		for u := range progress {
			if len(phases) == 0 || phases[len(phases)-1] != u.Phase {
				phases = append(phases, u.Phase)
			}
			last = u
		}

		want := []Phase{AcquireToken, ReadTracks, ResolveVideos, Authorize, CreatePlaylist, InsertItems, Complete}
		if !slices.Equal(phases, want) {
			t.Errorf("phases = %v, want %v", phases, want)
		}
		if !last.Terminal() {
			t.Error("last update should be terminal")
		}
	})

	t.Run("failure ends with failed update", func(t *testing.T) {
		p, src, _, _ := newTestPipeline(nil, nil)
		src.tokenErr = shared.ErrAuthFailed
		progress := make(chan ProgressUpdate, 8)

		_, _ = p.Run(ctx, Options{PlaylistID: "pl1"}, progress)
		close(progress)

		var last ProgressUpdate
		for u := range progress {
			last = u
		}
		if last.Phase != Failed || !errors.Is(last.Err, shared.ErrAuthFailed) {
			t.Errorf("unexpected last update %+v", last)
		}
	})

	t.Run("full channel never blocks", func(t *testing.T) {
		p, _, _, _ := newTestPipeline([]models.TrackDescriptor{songA}, map[string]string{"Song A by Artist X": "v1"})
		progress := make(chan ProgressUpdate)

		if _, err := p.Run(ctx, Options{PlaylistID: "pl1", Details: details}, progress); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}

func TestFinalUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("matches the update sent on success", func(t *testing.T) {
		p, _, _, _ := newTestPipeline([]models.TrackDescriptor{songA}, map[string]string{"Song A by Artist X": "v1"})
		progress := make(chan ProgressUpdate, 64)

		result, err := p.Run(ctx, Options{PlaylistID: "pl1", Details: details}, progress)
		close(progress)

		var last ProgressUpdate
		for u := range progress {
			last = u
		}

		got := FinalUpdate(result, err)
		if got.Phase != Complete || got.Message != last.Message {
			t.Errorf("FinalUpdate() = %+v, want message %q", got, last.Message)
		}
	})

	t.Run("matches the update sent on failure", func(t *testing.T) {
		p, src, _, _ := newTestPipeline(nil, nil)
		src.readErr = shared.ErrPlaylistNotFound
		progress := make(chan ProgressUpdate, 64)

		result, err := p.Run(ctx, Options{PlaylistID: "pl1"}, progress)
		close(progress)

		var last ProgressUpdate
		for u := range progress {
			last = u
		}

		got := FinalUpdate(result, err)
		if got.Phase != Failed || got.Message != last.Message || !errors.Is(got.Err, shared.ErrPlaylistNotFound) {
			t.Errorf("FinalUpdate() = %+v, want message %q", got, last.Message)
		}
	})

	t.Run("error before the run starts", func(t *testing.T) {
		got := FinalUpdate(nil, shared.ErrMissingArgument)
		if got.Phase != Failed || !errors.Is(got.Err, shared.ErrMissingArgument) {
			t.Errorf("unexpected update %+v", got)
		}
	})
}

func TestPhase_String(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{AcquireToken, "acquire_token"},
		{ReadTracks, "read_tracks"},
		{ResolveVideos, "resolve_videos"},
		{Authorize, "authorize"},
		{CreatePlaylist, "create_playlist"},
		{InsertItems, "insert_items"},
		{Complete, "complete"},
		{Failed, "failed"},
		{Phase(99), ""},
	}

	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.phase, got, tt.want)
		}
	}
}
