// Package learning records which courses a learner is enrolled in and how
// far through each one they are.
package learning

import (
	"context"
	"errors"
	"slices"
	"sync"

	"go.uber.org/zap"

	"StoreFront/internal/kv"
	"StoreFront/pkg/kit"
)

const (
	KeyEnrolled = "enrolled"
	KeyProgress = "progress"
)

type Store struct {
	kv  kv.Store
	log *zap.Logger

	mu       sync.Mutex
	enrolled []string
	progress map[string]Progress
	// readErr is set when the backend could not be read on Open; saves are
	// then skipped so the stored records survive.
	readErr error
}

// Open hydrates enrollments and progress from store. Unreadable blobs are
// logged and replaced by empty collections. Check Err before mutating.
func Open(ctx context.Context, store kv.Store, log *zap.Logger) *Store {
	s := &Store{kv: store, log: kit.OrNop(log)}

	enrolled, err := kv.LoadJSON[[]string](ctx, store, KeyEnrolled)
	if err != nil {
		s.log.Warn("enrollments restore failed", zap.Error(err))
		s.noteRead(err)
	}
	for _, id := range enrolled {
		if id != "" && !slices.Contains(s.enrolled, id) {
			s.enrolled = append(s.enrolled, id)
		}
	}

	progress, err := kv.LoadJSON[map[string]Progress](ctx, store, KeyProgress)
	if err != nil {
		s.log.Warn("progress restore failed", zap.Error(err))
		s.noteRead(err)
	}
	s.progress = make(map[string]Progress, len(progress))
	for id, p := range progress {
		p.CompletedLessons = dedupe(p.CompletedLessons)
		s.progress[id] = p
	}
	return s
}

func (s *Store) noteRead(err error) {
	if errors.Is(err, kv.ErrRead) {
		s.readErr = errors.Join(s.readErr, err)
	}
}

// Err reports a backend read failure from Open. A store with a non-nil Err
// never writes.
func (s *Store) Err() error { return s.readErr }

// Enroll adds courseID to the enrollments and starts tracking its progress.
// It reports whether the learner was newly enrolled.
func (s *Store) Enroll(ctx context.Context, courseID string, totalLessons int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initLocked(ctx, courseID, totalLessons)
	if slices.Contains(s.enrolled, courseID) {
		return false
	}
	s.enrolled = append(s.enrolled, courseID)
	s.save(ctx, KeyEnrolled, s.enrolled)
	return true
}

func (s *Store) IsEnrolled(courseID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.enrolled, courseID)
}

// Enrolled lists course ids in enrollment order.
func (s *Store) Enrolled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enrolled == nil {
		return []string{}
	}
	return slices.Clone(s.enrolled)
}

// InitProgress creates an empty record for courseID if none exists. An
// existing record with an unknown total picks up totalLessons.
func (s *Store) InitProgress(ctx context.Context, courseID string, totalLessons int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initLocked(ctx, courseID, totalLessons)
}

func (s *Store) initLocked(ctx context.Context, courseID string, totalLessons int) {
	p, ok := s.progress[courseID]
	switch {
	case !ok:
		p = Progress{CompletedLessons: []string{}, TotalLessons: max(totalLessons, 0)}
	case p.TotalLessons == 0 && totalLessons > 0:
		p.TotalLessons = totalLessons
	default:
		return
	}
	s.progress[courseID] = p
	s.save(ctx, KeyProgress, s.progress)
}

// MarkComplete records lessonID as done. It reports whether anything
// changed; untracked courses and repeated lessons are no-ops.
func (s *Store) MarkComplete(ctx context.Context, courseID, lessonID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.progress[courseID]
	if !ok || lessonID == "" || p.Completed(lessonID) {
		return false
	}
	p.CompletedLessons = append(slices.Clone(p.CompletedLessons), lessonID)
	s.progress[courseID] = p
	s.save(ctx, KeyProgress, s.progress)
	return true
}

// Touch remembers lessonID as the last one opened in courseID.
func (s *Store) Touch(ctx context.Context, courseID, lessonID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.progress[courseID]
	if !ok {
		return false
	}
	if p.LastAccessedLesson == lessonID {
		return true
	}
	p.LastAccessedLesson = lessonID
	s.progress[courseID] = p
	s.save(ctx, KeyProgress, s.progress)
	return true
}

func (s *Store) Progress(courseID string) (Progress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.progress[courseID]
	return p.clone(), ok
}

func (s *Store) All() map[string]Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Progress, len(s.progress))
	for id, p := range s.progress {
		out[id] = p.clone()
	}
	return out
}

func (s *Store) save(ctx context.Context, key string, v any) {
	if s.readErr != nil {
		s.log.Warn("learning not saved, stored records were never read", zap.String("key", key))
		return
	}
	if err := kv.SaveJSON(ctx, s.kv, key, v); err != nil {
		s.log.Error("learning save failed", zap.String("key", key), zap.Error(err))
	}
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
