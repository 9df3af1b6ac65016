// File: internal/scratch/scratch_test.go
package scratch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreLifecycle(t *testing.T) {
	store := NewStore()

	assert.Nil(t, store.Get("101"))

	store.Put(&Scratch{CourseID: "101", Title: "Safety"})
	sc := store.Get("101")
	require.NotNil(t, sc)
	assert.Equal(t, "Safety", sc.Title)

	store.Append("101", []string{"wear gloves"}, []string{"gloves prevent cuts"})
	sc = store.Get("101")
	assert.Equal(t, []string{"wear gloves"}, sc.KeyPoints)
	assert.Equal(t, []string{"gloves prevent cuts"}, sc.Facts)

	// Append creates the entry when it does not exist yet.
	store.Append("202", []string{"new"}, nil)
	require.NotNil(t, store.Get("202"))

	store.Delete("101")
	assert.Nil(t, store.Get("101"))
}

func TestPutIgnoresInvalid(t *testing.T) {
	store := NewStore()
	store.Put(nil)
	store.Put(&Scratch{Title: "no id"})
	assert.Empty(t, store.courses)
}

func TestPromptContextRendersSections(t *testing.T) {
	store := NewStore()
	store.Put(&Scratch{
		CourseID:    "101",
		Title:       "Fire Safety",
		Description: "Basics of fire response",
		Definitions: []Definition{{Term: "PPE", Definition: "personal protective equipment"}},
		KeyPoints:   []string{"stay low"},
		Facts:       []string{"smoke rises"},
	})

	out := store.PromptContext("101")
	assert.Contains(t, out, "Course: Fire Safety")
	assert.Contains(t, out, "Description: Basics of fire response")
	assert.Contains(t, out, "- PPE: personal protective equipment")
	assert.Contains(t, out, "Key points:\n- stay low")
	assert.Contains(t, out, "Facts:\n- smoke rises")

	assert.Empty(t, store.PromptContext("missing"))
}

func TestPromptContextTrimsOldestFirst(t *testing.T) {
	store := NewStore()
	sc := &Scratch{CourseID: "101"}
	for i := 0; i < 200; i++ {
		sc.KeyPoints = append(sc.KeyPoints, fmt.Sprintf("point-%03d %s", i, strings.Repeat("x", 100)))
	}
	store.Put(sc)

	out := store.PromptContext("101")
	assert.LessOrEqual(t, len(out), maxPromptContext)
	// The newest entry survives; the oldest is dropped.
	assert.Contains(t, out, "point-199")
	assert.NotContains(t, out, "point-000")
}

type fakePage struct {
	pc  pageContext
	err error
}

func (f *fakePage) Evaluate(ctx context.Context, script string, out interface{}) error {
	if f.err != nil {
		return f.err
	}
	*(out.(*pageContext)) = f.pc
	return nil
}

func (f *fakePage) Title(ctx context.Context) (string, error) { return f.pc.Title, nil }

func TestCollectMergesIntoStore(t *testing.T) {
	store := NewStore()
	page := &fakePage{pc: pageContext{
		Title:     "Module 1",
		Lesson:    "Lesson body text",
		KeyPoints: []string{"a", "b"},
	}}

	require.NoError(t, Collect(context.Background(), page, "101", store, nil))

	sc := store.Get("101")
	require.NotNil(t, sc)
	assert.Equal(t, "Module 1", sc.Title)
	assert.Equal(t, []string{"Lesson body text"}, sc.Facts)
	assert.Equal(t, []string{"a", "b"}, sc.KeyPoints)

	// A second page keeps the original title and accumulates content.
	page.pc = pageContext{Title: "Module 2", Lesson: "More text", KeyPoints: []string{"c"}}
	require.NoError(t, Collect(context.Background(), page, "101", store, nil))

	sc = store.Get("101")
	assert.Equal(t, "Module 1", sc.Title)
	assert.Equal(t, []string{"Lesson body text", "More text"}, sc.Facts)
	assert.Equal(t, []string{"a", "b", "c"}, sc.KeyPoints)
}

func TestCollectConcurrentSameCourse(t *testing.T) {
	store := NewStore()
	const workers = 4
	const pages = 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			page := &fakePage{pc: pageContext{Lesson: "text", KeyPoints: []string{"k"}}}
			for i := 0; i < pages; i++ {
				assert.NoError(t, Collect(context.Background(), page, "shared", store, nil))
			}
		}()
	}
	wg.Wait()

	// Every harvested page lands exactly once even when workers share a key.
	sc := store.Get("shared")
	require.NotNil(t, sc)
	assert.Len(t, sc.Facts, workers*pages)
	assert.Len(t, sc.KeyPoints, workers*pages)
}

func TestCollectReportsEvaluateError(t *testing.T) {
	store := NewStore()
	page := &fakePage{err: assert.AnError}
	err := Collect(context.Background(), page, "101", store, nil)
	assert.Error(t, err)
	assert.Nil(t, store.Get("101"))
}
