// File: internal/scratch/scratch.go

// Package scratch holds the per-course working context the assistant uses
// to answer questions. The store is ephemeral and in-process; nothing
// survives the run, and a course's entry is deleted when the course is done.
package scratch

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// maxPromptContext bounds the prompt context string so LLM requests stay
// inside a predictable token budget.
const maxPromptContext = 10000

// Definition is a term encountered in course material.
type Definition struct {
	Term       string
	Definition string
}

// Scratch accumulates everything learned about a course during the run.
type Scratch struct {
	CourseID    string
	Title       string
	Description string
	KeyPoints   []string
	Definitions []Definition
	Facts       []string
}

// Store is a mutex-guarded map of course scratch data, keyed by course ID.
// Parallel workers for different courses never contend on content, only on
// the map itself.
type Store struct {
	mu      sync.Mutex
	courses map[string]*Scratch
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{courses: make(map[string]*Scratch)}
}

// Get returns the scratch for a course, or nil when none exists.
func (s *Store) Get(courseID string) *Scratch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.courses[courseID]
}

// Put replaces the scratch for a course.
func (s *Store) Put(sc *Scratch) {
	if sc == nil || sc.CourseID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[sc.CourseID] = sc
}

// Append merges new key points and facts into a course's scratch, creating
// it if needed.
func (s *Store) Append(courseID string, keyPoints []string, facts []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.courses[courseID]
	if !ok {
		sc = &Scratch{CourseID: courseID}
		s.courses[courseID] = sc
	}
	sc.KeyPoints = append(sc.KeyPoints, keyPoints...)
	sc.Facts = append(sc.Facts, facts...)
}

// Delete removes a course's scratch once the course is complete.
func (s *Store) Delete(courseID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.courses, courseID)
}

// merge folds one harvested page into a course's scratch. All mutation
// happens under the store lock so parallel workers sharing a course key
// never race on the slices.
func (s *Store) merge(courseID, title, lesson string, keyPoints []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.courses[courseID]
	if !ok {
		sc = &Scratch{CourseID: courseID}
		s.courses[courseID] = sc
	}
	if sc.Title == "" && title != "" {
		sc.Title = title
	}
	if lesson != "" {
		sc.Facts = append(sc.Facts, lesson)
	}
	sc.KeyPoints = append(sc.KeyPoints, keyPoints...)
}

// PromptContext renders a course's scratch as a prompt-ready string, bounded
// to roughly 10k characters with the oldest key points and facts trimmed
// first.
func (s *Store) PromptContext(courseID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := s.courses[courseID]
	if sc == nil {
		return ""
	}

	var sb strings.Builder
	if sc.Title != "" {
		fmt.Fprintf(&sb, "Course: %s\n", sc.Title)
	}
	if sc.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", sc.Description)
	}
	if len(sc.Definitions) > 0 {
		sb.WriteString("Definitions:\n")
		for _, d := range sc.Definitions {
			fmt.Fprintf(&sb, "- %s: %s\n", d.Term, d.Definition)
		}
	}

	header := sb.String()
	budget := maxPromptContext - len(header)
	if budget <= 0 {
		return header[:maxPromptContext]
	}

	// Newest entries are the most relevant to the current page, so trim from
	// the front.
	var tail strings.Builder
	writeBounded := func(label string, items []string) {
		if len(items) == 0 {
			return
		}
		var section strings.Builder
		section.WriteString(label + ":\n")
		for _, it := range items {
			section.WriteString("- " + it + "\n")
		}
		for section.Len() > budget/2 && len(items) > 1 {
			items = items[1:]
			section.Reset()
			section.WriteString(label + ":\n")
			for _, it := range items {
				section.WriteString("- " + it + "\n")
			}
		}
		tail.WriteString(section.String())
	}
	writeBounded("Key points", sc.KeyPoints)
	writeBounded("Facts", sc.Facts)

	out := header + tail.String()
	if len(out) > maxPromptContext {
		out = out[len(out)-maxPromptContext:]
	}
	return out
}

// Page is the browser surface Collect needs.
type Page interface {
	Evaluate(ctx context.Context, script string, out interface{}) error
	Title(ctx context.Context) (string, error)
}

// pageContext is the payload harvested from the current page.
type pageContext struct {
	Title     string   `json:"title"`
	Lesson    string   `json:"lesson"`
	KeyPoints []string `json:"keyPoints"`
}

const collectScript = `(() => {
	const out = {title: "", lesson: "", keyPoints: []};
	const heading = document.querySelector('h1, .course-title, .lesson-title');
	if (heading) out.title = heading.textContent.trim();
	const content = document.querySelector('.content, .lesson-content, article, .course-material');
	if (content) out.lesson = content.innerText.slice(0, 4000);
	const emphasized = document.querySelectorAll('h2, h3, strong, b, .key-point');
	for (const el of emphasized) {
		const text = el.textContent.trim();
		if (text.length > 3 && text.length < 300) out.keyPoints.push(text);
		if (out.keyPoints.length >= 40) break;
	}
	return out;
})()`

// Collect harvests the current page into the course's scratch. Errors are
// returned but callers treat collection as best-effort.
func Collect(ctx context.Context, p Page, courseID string, store *Store, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	var pc pageContext
	if err := p.Evaluate(ctx, collectScript, &pc); err != nil {
		return fmt.Errorf("failed to harvest page context: %w", err)
	}

	store.merge(courseID, pc.Title, pc.Lesson, pc.KeyPoints)

	logger.Debug("Collected course context",
		zap.String("course_id", courseID),
		zap.Int("key_points", len(pc.KeyPoints)),
		zap.Int("lesson_chars", len(pc.Lesson)),
	)
	return nil
}
