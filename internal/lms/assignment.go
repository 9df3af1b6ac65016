// File: internal/lms/assignment.go
package lms

import (
	"sort"
	"strings"
	"time"
)

// AssignmentKind is the coarse type of an assignment as shown on the list page.
type AssignmentKind string

const (
	KindCourse  AssignmentKind = "course"
	KindEvent   AssignmentKind = "event"
	KindFile    AssignmentKind = "file"
	KindUnknown AssignmentKind = "unknown"
)

// Assignment is one row from the assignments list page.
type Assignment struct {
	ID           string
	Name         string
	URL          string
	TranscriptID string
	StartDate    *time.Time
	DueDate      *time.Time
	Status       string
	AssignedBy   string
	Kind         AssignmentKind
}

// SortByDueDate orders assignments ascending by due date. Assignments with no
// due date sort last, in their original relative order.
func SortByDueDate(assignments []Assignment) {
	sort.SliceStable(assignments, func(i, j int) bool {
		a, b := assignments[i].DueDate, assignments[j].DueDate
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.Before(*b)
	})
}

var dateLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"02 Jan 2006",
}

// ParseDate parses the date formats the list page uses. Returns nil for empty
// or unrecognized text rather than an error; a missing due date is ordinary.
func ParseDate(text string) *time.Time {
	text = strings.TrimSpace(text)
	if text == "" || strings.EqualFold(text, "n/a") || strings.EqualFold(text, "none") {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return &t
		}
	}
	return nil
}

// classifyKind maps the type-column label to an assignment kind.
func classifyKind(label string) AssignmentKind {
	switch {
	case strings.Contains(strings.ToLower(label), "course"):
		return KindCourse
	case strings.Contains(strings.ToLower(label), "event"):
		return KindEvent
	case strings.Contains(strings.ToLower(label), "file"), strings.Contains(strings.ToLower(label), "document"):
		return KindFile
	default:
		return KindUnknown
	}
}
