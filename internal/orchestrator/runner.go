// File: internal/orchestrator/runner.go
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/lms-autopilot/internal/artifacts"
	"github.com/xkilldash9x/lms-autopilot/internal/browser"
	"github.com/xkilldash9x/lms-autopilot/internal/classify"
	"github.com/xkilldash9x/lms-autopilot/internal/config"
	"github.com/xkilldash9x/lms-autopilot/internal/llm"
	"github.com/xkilldash9x/lms-autopilot/internal/lms"
	"github.com/xkilldash9x/lms-autopilot/internal/observability"
	"github.com/xkilldash9x/lms-autopilot/internal/quiz"
	"github.com/xkilldash9x/lms-autopilot/internal/retry"
	"github.com/xkilldash9x/lms-autopilot/internal/scratch"
	"github.com/xkilldash9x/lms-autopilot/internal/timegate"
)

// Session is the browser surface a run drives. browser.Session satisfies it.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	Back(ctx context.Context) error
	WaitVisible(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error
	Count(ctx context.Context, selector string) (int, error)
	Text(ctx context.Context, selector string) (string, error)
	BodyText(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	URL(ctx context.Context) (string, error)
	Evaluate(ctx context.Context, script string, out interface{}) error
	Keepalive(ctx context.Context) error
	Screenshot(ctx context.Context) ([]byte, error)
	Sleep(ctx context.Context, d time.Duration) error
	Close(ctx context.Context) error
}

// SessionFactory opens isolated browser sessions.
type SessionFactory interface {
	NewSession(ctx context.Context) (Session, error)
}

// ManagerFactory adapts the browser manager to SessionFactory.
type ManagerFactory struct {
	Manager *browser.Manager
}

func (f ManagerFactory) NewSession(ctx context.Context) (Session, error) {
	return f.Manager.NewSession(ctx)
}

// Runner drives a full automation run end to end.
type Runner struct {
	cfg         *config.Config
	logger      *zap.Logger
	emitter     observability.Emitter
	factory     SessionFactory
	assistant   llm.Assistant
	store       *scratch.Store
	screenshots *artifacts.Screenshots

	resolver  *timegate.Resolver
	engine    *quiz.Engine
	retryOpts retry.Options
}

// NewRunner wires the run pipeline together.
func NewRunner(cfg *config.Config, logger *zap.Logger, emitter observability.Emitter,
	factory SessionFactory, assistant llm.Assistant, store *scratch.Store,
	screenshots *artifacts.Screenshots) *Runner {

	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("orchestrator")

	retryOpts := retry.Options{
		MaxRetries:   cfg.Automation.MaxRetries,
		InitialDelay: cfg.Automation.RetryDelay,
		MaxDelay:     cfg.Automation.MaxRetryDelay,
		Logger:       logger,
	}

	resolver := timegate.NewResolver(logger, emitter)
	resolver.SpeedUpVideos = cfg.Automation.SpeedUpVideos
	resolver.MaxNextWait = cfg.Automation.MaxTimeGateWait

	engine := quiz.NewEngine(assistant, resolver, logger, emitter)
	engine.Thresholds = classify.Thresholds{
		Quiz: cfg.Automation.QuizThreshold,
		Exam: cfg.Automation.ExamThreshold,
	}
	engine.PassThreshold = cfg.Automation.PassThreshold
	engine.MaxPacedPages = cfg.Automation.MaxPacedPages
	engine.RetryOpts = retryOpts

	return &Runner{
		cfg:         cfg,
		logger:      logger,
		emitter:     emitter,
		factory:     factory,
		assistant:   assistant,
		store:       store,
		screenshots: screenshots,
		resolver:    resolver,
		engine:      engine,
		retryOpts:   retryOpts,
	}
}

// Run executes the whole flow: login, discovery, then every assignment. The
// result is always a value; an error string marks a failed run.
func (r *Runner) Run(ctx context.Context) *RunResult {
	observability.Emit(r.emitter, observability.LevelInfo, "Starting automation run...")

	session, err := r.factory.NewSession(ctx)
	if err != nil {
		return &RunResult{Err: fmt.Sprintf("failed to open browser session: %v", err)}
	}
	defer session.Close(ctx)

	if err := r.login(ctx, session); err != nil {
		observability.Emit(r.emitter, observability.LevelError, "Login failed, aborting run")
		return &RunResult{Err: fmt.Sprintf("login failed: %v", err)}
	}

	if len(r.cfg.LMS.CourseIDs) > 0 {
		return r.runConfiguredCourses(ctx, session)
	}
	return r.runDiscoveredAssignments(ctx, session)
}

func (r *Runner) login(ctx context.Context, session Session) error {
	return lms.Login(ctx, lms.LoginDeps{
		Page:     session,
		URL:      r.cfg.LMS.URL,
		Username: r.cfg.LMS.Username,
		Password: r.cfg.LMS.Password,
		Logger:   r.logger,
		Emitter:  r.emitter,
	})
}

// runDiscoveredAssignments works off the assignments list page. Each row is
// its own course for scratch and reporting purposes.
func (r *Runner) runDiscoveredAssignments(ctx context.Context, session Session) *RunResult {
	if err := lms.NavigateToAssignments(ctx, session, r.cfg.LMS.AssignmentsURL, r.logger, r.emitter); err != nil {
		return &RunResult{Err: fmt.Sprintf("failed to reach assignments page: %v", err)}
	}

	assignments, err := lms.DiscoverAssignments(ctx, session, r.logger, r.emitter)
	if err != nil {
		return &RunResult{Err: fmt.Sprintf("assignment discovery failed: %v", err)}
	}
	if len(assignments) == 0 {
		observability.Emit(r.emitter, observability.LevelInfo, "No assignments found. Automation complete.")
		return &RunResult{Success: true}
	}

	lms.SortByDueDate(assignments)

	if r.cfg.Automation.Parallel && len(assignments) > 1 {
		return r.runParallel(ctx, assignments)
	}
	return r.runSequential(ctx, session, assignments)
}

func (r *Runner) runSequential(ctx context.Context, session Session, assignments []lms.Assignment) *RunResult {
	result := &RunResult{TotalAssignments: len(assignments)}

	for _, a := range assignments {
		if err := ctx.Err(); err != nil {
			result.Err = err.Error()
			return result
		}

		course := r.processWithPolicy(ctx, session, a)
		result.Courses = append(result.Courses, course)
		result.TotalAssignmentsCompleted += course.AssignmentsCompleted

		if course.Error == abortRunError {
			result.Err = "session expired and policy is abort-run"
			return result
		}
	}

	result.Success = true
	observability.Emit(r.emitter, observability.LevelSuccess,
		fmt.Sprintf("Automation completed. %d of %d assignments completed.",
			result.TotalAssignmentsCompleted, result.TotalAssignments))
	return result
}

const abortRunError = "session expired, run aborted"

// processWithPolicy runs one assignment and applies the session-expiry
// policy when the browser falls back to a login page mid-assignment.
func (r *Runner) processWithPolicy(ctx context.Context, session Session, a lms.Assignment) CourseResult {
	courseID := courseKey(a)
	course := CourseResult{CourseID: courseID}

	outcome := r.processAssignment(ctx, session, a, courseID)

	if outcome.needsLogin {
		switch r.cfg.Automation.OnSessionExpired {
		case config.SessionExpiredResume:
			r.logger.Warn("Session expired, logging in again and retrying assignment once",
				zap.String("assignment", a.Name))
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
		default: // abort-course
			outcome = assignmentOutcome{err: "session expired, course abandoned"}
		}
	}

	ar := AssignmentResult{Name: a.Name, URL: a.URL, Completed: outcome.completed, Error: outcome.err}
	course.Assignments = append(course.Assignments, ar)
	course.Success = outcome.completed
	if outcome.completed {
		course.AssignmentsCompleted = 1
		r.store.Delete(courseID)
	} else if course.Error == "" {
		course.Error = outcome.err
	}
	return course
}

// runConfiguredCourses navigates to each configured course id and completes
// the assignments it links to.
func (r *Runner) runConfiguredCourses(ctx context.Context, session Session) *RunResult {
	result := &RunResult{}

	for _, courseID := range r.cfg.LMS.CourseIDs {
		if err := ctx.Err(); err != nil {
			result.Err = err.Error()
			return result
		}

		course := CourseResult{CourseID: courseID}
		if err := r.navigateToCourse(ctx, session, courseID); err != nil {
			r.logger.Error("Course navigation failed", zap.String("course", courseID), zap.Error(err))
			course.Error = "Failed to navigate to course"
			result.Courses = append(result.Courses, course)
			continue
		}

		if err := scratch.Collect(ctx, session, courseID, r.store, r.logger); err != nil {
			r.logger.Debug("Course context collection failed", zap.Error(err))
		}

		assignments, err := lms.DiscoverAssignments(ctx, session, r.logger, r.emitter)
		if err != nil {
			course.Error = fmt.Sprintf("assignment discovery failed: %v", err)
			result.Courses = append(result.Courses, course)
			continue
		}
		lms.SortByDueDate(assignments)
		result.TotalAssignments += len(assignments)

		course.Success = true
		for _, a := range assignments {
			outcome := r.processAssignment(ctx, session, a, courseID)
			if outcome.needsLogin && r.cfg.Automation.OnSessionExpired == config.SessionExpiredAbortRun {
				course.Error = abortRunError
				course.Success = false
				result.Courses = append(result.Courses, course)
				result.Err = "session expired and policy is abort-run"
				return result
			}
			if outcome.needsLogin {
				outcome = assignmentOutcome{err: "session expired"}
				course.Success = false
				if r.cfg.Automation.OnSessionExpired == config.SessionExpiredAbortCourse {
					course.Assignments = append(course.Assignments, AssignmentResult{
						Name: a.Name, URL: a.URL, Error: outcome.err,
					})
					break
				}
			}
			course.Assignments = append(course.Assignments, AssignmentResult{
				Name: a.Name, URL: a.URL, Completed: outcome.completed, Error: outcome.err,
			})
			if outcome.completed {
				course.AssignmentsCompleted++
				result.TotalAssignmentsCompleted++
			} else {
				course.Success = false
			}
		}

		r.store.Delete(courseID)
		result.Courses = append(result.Courses, course)
	}

	result.Success = true
	return result
}

// navigateToCourse walks the course list to a specific course.
func (r *Runner) navigateToCourse(ctx context.Context, session Session, courseID string) error {
	r.logger.Info("Navigating to course", zap.String("course", courseID))

	err := retry.Navigation(ctx, session, func(ctx context.Context) error {
		if err := session.Click(ctx, `a[href*="courses"]`); err != nil {
			return err
		}
		if err := session.WaitVisible(ctx, ".course-list"); err != nil {
			return err
		}
		if err := session.Click(ctx, fmt.Sprintf(`a[href*="courses/%s"]`, courseID)); err != nil {
			return err
		}
		return session.WaitVisible(ctx, ".course-content")
	}, r.retryOpts)
	if err != nil {
		return fmt.Errorf("failed to navigate to course %s: %w", courseID, err)
	}
	return nil
}

func courseKey(a lms.Assignment) string {
	if a.TranscriptID != "" {
		return a.TranscriptID
	}
	if a.ID != "" {
		return a.ID
	}
	return a.Name
}
