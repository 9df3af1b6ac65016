// File: internal/lms/assignment_test.go
package lms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d := ParseDate("03/15/2026")
	require.NotNil(t, d)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), *d)

	d = ParseDate("3/5/2026")
	require.NotNil(t, d)
	assert.Equal(t, time.March, d.Month())

	d = ParseDate("January 2, 2026")
	require.NotNil(t, d)
	assert.Equal(t, 2, d.Day())

	assert.Nil(t, ParseDate(""))
	assert.Nil(t, ParseDate("N/A"))
	assert.Nil(t, ParseDate("whenever"))
}

func TestSortByDueDate(t *testing.T) {
	d1 := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)

	assignments := []Assignment{
		{Name: "no-due-a"},
		{Name: "late", DueDate: &d2},
		{Name: "early", DueDate: &d1},
		{Name: "no-due-b"},
	}
	SortByDueDate(assignments)

	// Dated assignments ascend; undated ones sink to the end in their
	// original relative order.
	assert.Equal(t, "early", assignments[0].Name)
	assert.Equal(t, "late", assignments[1].Name)
	assert.Equal(t, "no-due-a", assignments[2].Name)
	assert.Equal(t, "no-due-b", assignments[3].Name)
}

func TestClassifyKind(t *testing.T) {
	assert.Equal(t, KindCourse, classifyKind("Online Course"))
	assert.Equal(t, KindEvent, classifyKind("Live Event"))
	assert.Equal(t, KindFile, classifyKind("PDF Document"))
	assert.Equal(t, KindUnknown, classifyKind("Mystery"))
}
