package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curatorhq/curator/internal/common"
	"github.com/curatorhq/curator/internal/interfaces"
	"github.com/curatorhq/curator/internal/jobs"
	"github.com/curatorhq/curator/internal/models"
)

// stubClassifier returns a fixed classification for every video.
type stubClassifier struct{}

func (c *stubClassifier) Classify(ctx context.Context, video *models.Video) (*models.Classification, error) {
	return &models.Classification{
		PrimaryCategories: []string{"Technology"},
		Tags:              []string{"go", "testing", "http", "api", "backend"},
		Confidence:        0.9,
	}, nil
}

func (c *stubClassifier) Provider() string { return "stub" }

// slowClassifier takes delay per video and aborts if the context dies first,
// the way a real provider call would.
type slowClassifier struct {
	delay time.Duration
}

func (c *slowClassifier) Classify(ctx context.Context, video *models.Video) (*models.Classification, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.delay):
	}
	return (&stubClassifier{}).Classify(ctx, video)
}

func (c *slowClassifier) Provider() string { return "slow" }

// memStorage is an in-memory StorageManager for handler tests.
type memStorage struct {
	mu         sync.Mutex
	videos     map[string]*models.Video
	categories map[string]*models.Category
	tags       map[string]*models.Tag
}

func newMemStorage() *memStorage {
	return &memStorage{
		videos:     make(map[string]*models.Video),
		categories: make(map[string]*models.Category),
		tags:       make(map[string]*models.Tag),
	}
}

func (s *memStorage) VideoStorage() interfaces.VideoStorage       { return s }
func (s *memStorage) TaxonomyStorage() interfaces.TaxonomyStorage { return s }
func (s *memStorage) Close() error                                { return nil }

func (s *memStorage) StoreVideo(ctx context.Context, video *models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if video.ID == "" {
		video.ID = common.NewVideoID()
	}
	s.videos[video.ID] = video
	return nil
}

func (s *memStorage) StoreVideos(ctx context.Context, videos []*models.Video) error {
	for _, v := range videos {
		if err := s.StoreVideo(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *memStorage) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok {
		return nil, fmt.Errorf("video not found: %s", id)
	}
	return v, nil
}

func (s *memStorage) ListVideos(ctx context.Context, ownerID string, limit int) ([]*models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Video
	for _, v := range s.videos {
		if v.OwnerID == ownerID {
			out = append(out, v)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *memStorage) DeleteVideo(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[id]; !ok {
		return fmt.Errorf("video not found: %s", id)
	}
	delete(s.videos, id)
	return nil
}

func (s *memStorage) CountVideos(ctx context.Context, ownerID string) (int, error) {
	videos, _ := s.ListVideos(ctx, ownerID, 0)
	return len(videos), nil
}

func (s *memStorage) ListUncategorized(ctx context.Context, ownerID string, limit int) ([]*models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Video
	for _, v := range s.videos {
		if v.OwnerID == ownerID && !v.IsCategorized {
			out = append(out, v)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *memStorage) ApplyCategorization(ctx context.Context, videoID string, categoryIDs, tagIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[videoID]
	if !ok {
		return fmt.Errorf("video not found: %s", videoID)
	}
	now := time.Now()
	v.CategoryIDs = categoryIDs
	v.TagIDs = tagIDs
	v.IsCategorized = true
	v.CategorizedAt = &now
	return nil
}

func (s *memStorage) CountUncategorized(ctx context.Context, ownerID string) (int, error) {
	videos, _ := s.ListUncategorized(ctx, ownerID, 0)
	return len(videos), nil
}

func (s *memStorage) GetOrCreateCategory(ctx context.Context, name string) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slug := models.Slugify(name)
	for _, c := range s.categories {
		if c.Slug == slug {
			return c, nil
		}
	}
	c := &models.Category{ID: common.NewCategoryID(), Name: name, Slug: slug, CreatedAt: time.Now()}
	s.categories[c.ID] = c
	return c, nil
}

func (s *memStorage) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return nil, fmt.Errorf("category not found: %s", id)
	}
	return c, nil
}

func (s *memStorage) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if c.Slug == slug {
			return c, nil
		}
	}
	return nil, fmt.Errorf("category not found: %s", slug)
}

func (s *memStorage) ListCategories(ctx context.Context) ([]*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	return out, nil
}

func (s *memStorage) GetOrCreateTag(ctx context.Context, name string) (*models.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slug := models.Slugify(name)
	for _, t := range s.tags {
		if t.Slug == slug {
			t.UsageCount++
			return t, nil
		}
	}
	t := &models.Tag{ID: common.NewTagID(), Name: name, Slug: slug, UsageCount: 1, CreatedAt: time.Now()}
	s.tags[t.ID] = t
	return t, nil
}

func (s *memStorage) GetTag(ctx context.Context, id string) (*models.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tags[id]
	if !ok {
		return nil, fmt.Errorf("tag not found: %s", id)
	}
	return t, nil
}

func (s *memStorage) ListTags(ctx context.Context, limit int) ([]*models.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Tag, 0, len(s.tags))
	for _, t := range s.tags {
		out = append(out, t)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func newTestJobHandler(t *testing.T) (*JobHandler, *memStorage) {
	return newTestJobHandlerWith(t, &stubClassifier{})
}

func newTestJobHandlerWith(t *testing.T, classifier interfaces.Classifier) (*JobHandler, *memStorage) {
	t.Helper()
	logger := common.GetLogger()
	storage := newMemStorage()
	store := jobs.NewStore(time.Hour, logger)
	engine := jobs.NewEngine(store, storage, classifier, nil, jobs.EngineOptions{}, logger)
	stream := NewStreamHandler(store, 50*time.Millisecond, logger)
	return NewJobHandler(engine, storage, nil, stream, logger), storage
}

func seedVideos(t *testing.T, storage *memStorage, owner string, n int) []string {
	t.Helper()
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		v := &models.Video{
			OwnerID: owner,
			Title:   fmt.Sprintf("Video %d", i),
			LikedAt: time.Now(),
		}
		require.NoError(t, storage.StoreVideo(context.Background(), v))
		ids[i] = v.ID
	}
	return ids
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func waitForStatus(t *testing.T, h *JobHandler, jobID string, status models.JobStatus) models.JobSnapshot {
	t.Helper()
	var snapshot models.JobSnapshot
	require.Eventually(t, func() bool {
		var err error
		snapshot, err = h.engine.Store().Get(jobID)
		return err == nil && snapshot.Status == status
	}, 5*time.Second, 10*time.Millisecond)
	return snapshot
}

func TestStartCategorizationWithExplicitIDs(t *testing.T) {
	h, storage := newTestJobHandler(t)
	ids := seedVideos(t, storage, "local", 4)

	rec := postJSON(t, h.StartCategorizationHandler, "/api/jobs/categorize", map[string]interface{}{
		"video_ids": ids,
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	body := decodeBody(t, rec)
	jobID, ok := body["job_id"].(string)
	require.True(t, ok)
	assert.Equal(t, float64(4), body["total"])

	snapshot := waitForStatus(t, h, jobID, models.JobStatusCompleted)
	assert.Equal(t, 4, snapshot.Completed)
	assert.Equal(t, 0, snapshot.Failed)

	remaining, err := storage.CountUncategorized(context.Background(), "local")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestStartCategorizationFromUncategorizedSource(t *testing.T) {
	h, storage := newTestJobHandler(t)
	seedVideos(t, storage, "local", 3)

	rec := postJSON(t, h.StartCategorizationHandler, "/api/jobs/categorize", map[string]interface{}{
		"source": "uncategorized",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(3), body["total"])
}

func TestStartCategorizationEmptyListRejected(t *testing.T) {
	h, _ := newTestJobHandler(t)

	rec := postJSON(t, h.StartCategorizationHandler, "/api/jobs/categorize", map[string]interface{}{
		"video_ids": []string{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartCategorizationNoUncategorizedVideos(t *testing.T) {
	h, _ := newTestJobHandler(t)

	rec := postJSON(t, h.StartCategorizationHandler, "/api/jobs/categorize", map[string]interface{}{
		"source": "uncategorized",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetJobSnapshot(t *testing.T) {
	h, storage := newTestJobHandler(t)
	ids := seedVideos(t, storage, "local", 2)

	rec := postJSON(t, h.StartCategorizationHandler, "/api/jobs/categorize", map[string]interface{}{
		"video_ids": ids,
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	jobID := decodeBody(t, rec)["job_id"].(string)

	waitForStatus(t, h, jobID, models.JobStatusCompleted)

	req := httptest.NewRequest("GET", "/api/jobs/"+jobID, nil)
	getRec := httptest.NewRecorder()
	h.JobRoutesHandler(getRec, req)
	require.Equal(t, http.StatusOK, getRec.Code)

	var snapshot models.JobSnapshot
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &snapshot))
	assert.Equal(t, jobID, snapshot.JobID)
	assert.Equal(t, models.JobStatusCompleted, snapshot.Status)
	assert.Equal(t, 2, snapshot.Total)
}

func TestJobSurvivesClosedStartRequest(t *testing.T) {
	h, storage := newTestJobHandlerWith(t, &slowClassifier{delay: 150 * time.Millisecond})
	ids := seedVideos(t, storage, "local", 10)

	// A real server cancels the request context once the handler returns, so
	// the 202 must leave the job running on its own.
	srv := httptest.NewServer(http.HandlerFunc(h.StartCategorizationHandler))
	defer srv.Close()

	body, err := json.Marshal(map[string]interface{}{
		"video_ids":   ids,
		"concurrency": 2,
	})
	require.NoError(t, err)

	resp, err := http.Post(srv.URL, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var accepted map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))
	jobID, ok := accepted["job_id"].(string)
	require.True(t, ok)

	snapshot := waitForStatus(t, h, jobID, models.JobStatusCompleted)
	assert.Equal(t, 10, snapshot.Completed)
	assert.Equal(t, 0, snapshot.Failed)
	assert.Empty(t, snapshot.Error)

	remaining, err := storage.CountUncategorized(context.Background(), "local")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestGetJobNotFound(t *testing.T) {
	h, _ := newTestJobHandler(t)

	req := httptest.NewRequest("GET", "/api/jobs/job_missing", nil)
	rec := httptest.NewRecorder()
	h.JobRoutesHandler(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownJobAction(t *testing.T) {
	h, _ := newTestJobHandler(t)

	req := httptest.NewRequest("POST", "/api/jobs/job_x/restart", nil)
	rec := httptest.NewRecorder()
	h.JobRoutesHandler(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelJobViaAPI(t *testing.T) {
	h, storage := newTestJobHandler(t)
	ids := seedVideos(t, storage, "local", 50)

	rec := postJSON(t, h.StartCategorizationHandler, "/api/jobs/categorize", map[string]interface{}{
		"video_ids":   ids,
		"concurrency": 2,
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	jobID := decodeBody(t, rec)["job_id"].(string)

	cancelReq := httptest.NewRequest("POST", "/api/jobs/"+jobID+"/cancel", nil)
	cancelRec := httptest.NewRecorder()
	h.JobRoutesHandler(cancelRec, cancelReq)
	require.Equal(t, http.StatusOK, cancelRec.Code)

	require.Eventually(t, func() bool {
		snapshot, err := h.engine.Store().Get(jobID)
		return err == nil && snapshot.Status.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)
}

func TestPauseAfterTerminalConflicts(t *testing.T) {
	h, storage := newTestJobHandler(t)
	ids := seedVideos(t, storage, "local", 1)

	rec := postJSON(t, h.StartCategorizationHandler, "/api/jobs/categorize", map[string]interface{}{
		"video_ids": ids,
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	jobID := decodeBody(t, rec)["job_id"].(string)

	waitForStatus(t, h, jobID, models.JobStatusCompleted)

	pauseReq := httptest.NewRequest("POST", "/api/jobs/"+jobID+"/pause", nil)
	pauseRec := httptest.NewRecorder()
	h.JobRoutesHandler(pauseRec, pauseReq)
	assert.Equal(t, http.StatusConflict, pauseRec.Code)
}

func TestStreamDeliversTerminalSnapshot(t *testing.T) {
	h, storage := newTestJobHandler(t)
	ids := seedVideos(t, storage, "local", 3)

	rec := postJSON(t, h.StartCategorizationHandler, "/api/jobs/categorize", map[string]interface{}{
		"video_ids": ids,
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	jobID := decodeBody(t, rec)["job_id"].(string)

	req := httptest.NewRequest("GET", "/api/jobs/"+jobID+"/stream", nil)
	streamRec := httptest.NewRecorder()
	h.JobRoutesHandler(streamRec, req)

	// The stream handler returns once the terminal snapshot is delivered and
	// the subscription closes.
	assert.Equal(t, "text/event-stream", streamRec.Header().Get("Content-Type"))

	var last models.JobSnapshot
	found := false
	for _, line := range bytes.Split(streamRec.Body.Bytes(), []byte("\n")) {
		if !bytes.HasPrefix(line, []byte("data: ")) {
			continue
		}
		require.NoError(t, json.Unmarshal(bytes.TrimPrefix(line, []byte("data: ")), &last))
		found = true
	}
	require.True(t, found, "expected at least one SSE event")
	assert.Equal(t, models.JobStatusCompleted, last.Status)
	assert.Equal(t, 3, last.Completed)
}
