package learning_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StoreFront/internal/catalog"
	"StoreFront/internal/kv"
	"StoreFront/internal/learning"
)

type fakeCatalog map[catalog.ItemID]catalog.Item

func (f fakeCatalog) Get(id catalog.ItemID) (catalog.Item, bool) {
	it, ok := f[id]
	return it, ok
}

var courses = fakeCatalog{
	"c1": {ID: "c1", Title: "React Basics", LessonCount: 4},
	"p1": {ID: "p1", Title: "Mug", Price: 9.99},
}

type progressBody struct {
	CourseID             string   `json:"course_id"`
	CompletedLessons     []string `json:"completed_lessons"`
	TotalLessons         int      `json:"total_lessons"`
	LastAccessedLesson   string   `json:"last_accessed_lesson"`
	CompletionPercentage int      `json:"completion_percentage"`
}

func newLearningTS(t *testing.T) (*httptest.Server, *learning.Server, kv.Store) {
	t.Helper()

	store := kv.NewMemStore()
	s := &learning.Server{
		Catalog: courses,
		Scope:   func(*http.Request) (kv.Store, bool) { return store, true },
	}
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return ts, s, store
}

func call(t *testing.T, method, url string, out any) int {
	t.Helper()

	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHTTP_LearningFlow(t *testing.T) {
	ts, _, _ := newLearningTS(t)

	var p progressBody
	require.Equal(t, http.StatusCreated, call(t, http.MethodPost, ts.URL+"/enrollments/c1", &p))
	assert.Equal(t, 4, p.TotalLessons)
	require.Equal(t, http.StatusOK, call(t, http.MethodPost, ts.URL+"/enrollments/c1", &p))

	require.Equal(t, http.StatusOK, call(t, http.MethodPost, ts.URL+"/progress/c1/lessons/l1", &p))
	require.Equal(t, http.StatusOK, call(t, http.MethodPost, ts.URL+"/progress/c1/lessons/l1", &p))
	assert.Equal(t, []string{"l1"}, p.CompletedLessons)
	assert.Equal(t, 25, p.CompletionPercentage)

	require.Equal(t, http.StatusOK, call(t, http.MethodPost, ts.URL+"/progress/c1/last/l2", &p))
	assert.Equal(t, "l2", p.LastAccessedLesson)

	require.Equal(t, http.StatusOK, call(t, http.MethodGet, ts.URL+"/progress/c1", &p))
	assert.Equal(t, "c1", p.CourseID)

	var all map[string]progressBody
	require.Equal(t, http.StatusOK, call(t, http.MethodGet, ts.URL+"/progress", &all))
	assert.Equal(t, 25, all["c1"].CompletionPercentage)

	var enrolled struct {
		CourseIDs []string `json:"course_ids"`
	}
	require.Equal(t, http.StatusOK, call(t, http.MethodGet, ts.URL+"/enrollments", &enrolled))
	assert.Equal(t, []string{"c1"}, enrolled.CourseIDs)
}

func TestHTTP_UnknownCourses(t *testing.T) {
	ts, _, _ := newLearningTS(t)

	assert.Equal(t, http.StatusNotFound, call(t, http.MethodPost, ts.URL+"/enrollments/nope", nil))
	assert.Equal(t, http.StatusNotFound, call(t, http.MethodGet, ts.URL+"/progress/c1", nil))
	assert.Equal(t, http.StatusNotFound, call(t, http.MethodPost, ts.URL+"/progress/c1/lessons/l1", nil))
}

func TestServer_EnrollPurchased(t *testing.T) {
	_, s, store := newLearningTS(t)
	ctx := context.Background()

	s.EnrollPurchased(ctx, store, []catalog.ItemID{"p1", "c1", "gone"})

	ls := learning.Open(ctx, store, nil)
	assert.Equal(t, []string{"c1"}, ls.Enrolled())
	p, ok := ls.Progress("c1")
	require.True(t, ok)
	assert.Equal(t, 4, p.TotalLessons)
}

func TestHTTP_UnreadableRecordsRefuseWrites(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemStore()
	learning.Open(ctx, mem, nil).Enroll(ctx, "c1", 4)

	fails := 0
	s := &learning.Server{
		Catalog: courses,
		Scope: func(*http.Request) (kv.Store, bool) {
			return flakyReads{MemStore: mem, fails: &fails}, true
		},
	}
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)

	fails = 1
	assert.Equal(t, http.StatusServiceUnavailable, call(t, http.MethodPost, ts.URL+"/enrollments/c1", nil))
	fails = 1
	assert.Equal(t, http.StatusServiceUnavailable, call(t, http.MethodPost, ts.URL+"/progress/c1/lessons/l1", nil))

	fails = 1
	s.EnrollPurchased(ctx, flakyReads{MemStore: mem, fails: &fails}, []catalog.ItemID{"c1"})

	var got progressBody
	require.Equal(t, http.StatusOK, call(t, http.MethodGet, ts.URL+"/progress/c1", &got))
	assert.Empty(t, got.CompletedLessons)
	assert.Equal(t, 4, got.TotalLessons)
}
