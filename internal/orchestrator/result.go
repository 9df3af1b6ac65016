// File: internal/orchestrator/result.go
package orchestrator

// AssignmentResult records the outcome of one assignment.
type AssignmentResult struct {
	Name      string
	URL       string
	Completed bool
	Error     string
}

// CourseResult records the outcome of one course and its assignments.
type CourseResult struct {
	CourseID             string
	Success              bool
	AssignmentsCompleted int
	Assignments          []AssignmentResult
	Error                string
}

// RunResult is the aggregate outcome of a run. It is always returned as a
// value; failures are recorded, never panicked.
type RunResult struct {
	Success                   bool
	TotalAssignmentsCompleted int
	TotalAssignments          int
	Courses                   []CourseResult
	Err                       string
}
