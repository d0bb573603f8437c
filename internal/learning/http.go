package learning

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"StoreFront/internal/catalog"
	"StoreFront/internal/kv"
	"StoreFront/pkg/kit"
)

// Catalog resolves course ids; a course's lesson count seeds its progress.
type Catalog interface {
	Get(id catalog.ItemID) (catalog.Item, bool)
}

type Server struct {
	Catalog Catalog
	Scope   func(*http.Request) (kv.Store, bool)
	Log     *zap.Logger

	mu sync.Mutex
}

type progressResp struct {
	CourseID             string   `json:"course_id"`
	CompletedLessons     []string `json:"completed_lessons"`
	TotalLessons         int      `json:"total_lessons"`
	LastAccessedLesson   string   `json:"last_accessed_lesson,omitempty"`
	CompletionPercentage int      `json:"completion_percentage"`
}

func toResp(id string, p Progress) progressResp {
	return progressResp{
		CourseID:             id,
		CompletedLessons:     p.CompletedLessons,
		TotalLessons:         p.TotalLessons,
		LastAccessedLesson:   p.LastAccessedLesson,
		CompletionPercentage: p.Percentage(),
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/enrollments", s.enrollments)
	r.Post("/enrollments/{courseID}", s.enroll)
	r.Get("/progress", s.all)
	r.Get("/progress/{courseID}", s.progress)
	r.Post("/progress/{courseID}/lessons/{lessonID}", s.complete)
	r.Post("/progress/{courseID}/last/{lessonID}", s.touch)

	return r
}

// EnrollPurchased enrolls the learner in every purchased item that is a
// course, meaning it has lessons.
func (s *Server) EnrollPurchased(ctx context.Context, store kv.Store, ids []catalog.ItemID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ls := Open(ctx, store, s.Log)
	if err := ls.Err(); err != nil {
		kit.OrNop(s.Log).Error("enrollment after checkout skipped", zap.Error(err))
		return
	}
	for _, id := range ids {
		it, ok := s.Catalog.Get(id)
		if !ok || it.LessonCount <= 0 {
			continue
		}
		if ls.Enroll(ctx, string(id), it.LessonCount) {
			kit.OrNop(s.Log).Info("enrolled after checkout", zap.String("course_id", string(id)))
		}
	}
}

func (s *Server) with(w http.ResponseWriter, r *http.Request, fn func(ls *Store)) {
	store, ok := s.Scope(r)
	if !ok {
		kit.WriteError(w, r, http.StatusUnauthorized, "no user", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fn(Open(r.Context(), store, s.Log))
}

// mutate is with for handlers that write; it answers 503 when the stored
// records could not be read.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn func(ls *Store)) {
	s.with(w, r, func(ls *Store) {
		if err := ls.Err(); err != nil {
			kit.OrNop(s.Log).Error("learning store unavailable", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "storage unavailable", nil)
			return
		}
		fn(ls)
	})
}

func (s *Server) enrollments(w http.ResponseWriter, r *http.Request) {
	s.with(w, r, func(ls *Store) {
		kit.WriteJSON(w, http.StatusOK, map[string]any{"course_ids": ls.Enrolled()})
	})
}

func (s *Server) enroll(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "courseID")
	it, ok := s.Catalog.Get(catalog.ItemID(id))
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "course not found", map[string]any{"course_id": id})
		return
	}

	s.mutate(w, r, func(ls *Store) {
		status := http.StatusOK
		if ls.Enroll(r.Context(), id, it.LessonCount) {
			status = http.StatusCreated
		}
		p, _ := ls.Progress(id)
		kit.WriteJSON(w, status, toResp(id, p))
	})
}

func (s *Server) all(w http.ResponseWriter, r *http.Request) {
	s.with(w, r, func(ls *Store) {
		kit.WriteJSON(w, http.StatusOK, ls.All())
	})
}

func (s *Server) progress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "courseID")
	s.with(w, r, func(ls *Store) {
		writeProgress(w, r, ls, id)
	})
}

func (s *Server) complete(w http.ResponseWriter, r *http.Request) {
	id, lesson := chi.URLParam(r, "courseID"), chi.URLParam(r, "lessonID")
	s.mutate(w, r, func(ls *Store) {
		ls.MarkComplete(r.Context(), id, lesson)
		writeProgress(w, r, ls, id)
	})
}

func (s *Server) touch(w http.ResponseWriter, r *http.Request) {
	id, lesson := chi.URLParam(r, "courseID"), chi.URLParam(r, "lessonID")
	s.mutate(w, r, func(ls *Store) {
		ls.Touch(r.Context(), id, lesson)
		writeProgress(w, r, ls, id)
	})
}

func writeProgress(w http.ResponseWriter, r *http.Request, ls *Store, id string) {
	p, ok := ls.Progress(id)
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "course not tracked", map[string]any{"course_id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, toResp(id, p))
}
