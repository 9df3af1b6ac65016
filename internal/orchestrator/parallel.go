// File: internal/orchestrator/parallel.go
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/xkilldash9x/lms-autopilot/internal/config"
	"github.com/xkilldash9x/lms-autopilot/internal/lms"
	"github.com/xkilldash9x/lms-autopilot/internal/observability"
)

// runParallel completes assignments concurrently, one isolated browser tab
// per in-flight assignment. Admission is bounded by a weighted semaphore;
// all tabs share the authenticated browser profile so workers do not log in
// again. Completion order is not defined.
func (r *Runner) runParallel(ctx context.Context, assignments []lms.Assignment) *RunResult {
	maxConcurrent := int64(r.cfg.Automation.MaxConcurrent)
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	observability.Emit(r.emitter, observability.LevelInfo,
		fmt.Sprintf("Processing %d assignments with up to %d in parallel", len(assignments), maxConcurrent))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(maxConcurrent)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		courses  = make([]CourseResult, 0, len(assignments))
		aborted  bool
	)

	for _, a := range assignments {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		wg.Add(1)
		go func(a lms.Assignment) {
			defer wg.Done()
			defer sem.Release(1)

			course := r.runParallelAssignment(ctx, a)

			mu.Lock()
			courses = append(courses, course)
			if course.Error == abortRunError {
				aborted = true
			}
			mu.Unlock()

			if course.Error == abortRunError {
				cancel()
			}
		}(a)
	}

	wg.Wait()

	result := &RunResult{TotalAssignments: len(assignments), Courses: courses}
	for _, c := range courses {
		result.TotalAssignmentsCompleted += c.AssignmentsCompleted
	}
	if aborted {
		result.Err = "session expired and policy is abort-run"
		return result
	}
	result.Success = true
	observability.Emit(r.emitter, observability.LevelSuccess,
		fmt.Sprintf("Completed %d assignments in parallel mode", result.TotalAssignmentsCompleted))
	return result
}

// runParallelAssignment opens a fresh tab for one assignment and tears it
// down when done.
func (r *Runner) runParallelAssignment(ctx context.Context, a lms.Assignment) CourseResult {
	courseID := courseKey(a)
	course := CourseResult{CourseID: courseID}

	session, err := r.factory.NewSession(ctx)
	if err != nil {
		course.Error = fmt.Sprintf("failed to open browser session: %v", err)
		course.Assignments = append(course.Assignments, AssignmentResult{Name: a.Name, URL: a.URL, Error: course.Error})
		return course
	}
	defer session.Close(ctx)

	outcome := r.processAssignment(ctx, session, a, courseID)

	if outcome.needsLogin {
		switch r.cfg.Automation.OnSessionExpired {
		case config.SessionExpiredResume:
			r.logger.Warn("Session expired in worker, logging in again", zap.String("assignment", a.Name))
			if err := r.login(ctx, session); err != nil {
				course.Error = abortRunError
				course.Assignments = append(course.Assignments, AssignmentResult{
					Name: a.Name, URL: a.URL, Error: "session expired and re-login failed",
				})
				return course
			}
			outcome = r.processAssignment(ctx, session, a, courseID)
			if outcome.needsLogin {
				outcome = assignmentOutcome{err: "session expired again after re-login"}
			}
		case config.SessionExpiredAbortRun:
			course.Error = abortRunError
			course.Assignments = append(course.Assignments, AssignmentResult{
				Name: a.Name, URL: a.URL, Error: "session expired",
			})
			return course
		default:
			outcome = assignmentOutcome{err: "session expired, course abandoned"}
		}
	}

	course.Assignments = append(course.Assignments, AssignmentResult{
		Name: a.Name, URL: a.URL, Completed: outcome.completed, Error: outcome.err,
	})
	course.Success = outcome.completed
	if outcome.completed {
		course.AssignmentsCompleted = 1
		r.store.Delete(courseID)
	} else if course.Error == "" {
		course.Error = outcome.err
	}
	return course
}
