// File: cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/lms-autopilot/internal/artifacts"
	"github.com/xkilldash9x/lms-autopilot/internal/browser"
	"github.com/xkilldash9x/lms-autopilot/internal/config"
	"github.com/xkilldash9x/lms-autopilot/internal/llm"
	"github.com/xkilldash9x/lms-autopilot/internal/observability"
	"github.com/xkilldash9x/lms-autopilot/internal/orchestrator"
	"github.com/xkilldash9x/lms-autopilot/internal/scratch"
)

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Logs in to the LMS and completes every outstanding assignment",
		// PreRunE binds flags so command-line values override config file and
		// environment with the right precedence.
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			if err := viper.BindPFlag("automation.parallel", cmd.Flags().Lookup("parallel")); err != nil {
				return err
			}
			if err := viper.BindPFlag("automation.max_concurrent", cmd.Flags().Lookup("concurrency")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.FromViper(viper.GetViper())
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logger.Info("Starting automation run",
				zap.String("lms_url", cfg.LMS.URL),
				zap.Bool("headless", cfg.Browser.Headless),
				zap.Bool("parallel", cfg.Automation.Parallel),
			)

			components, err := initializeRunComponents(ctx, cfg, logger)
			if err != nil {
				if components != nil {
					components.Shutdown(ctx)
				}
				return fmt.Errorf("failed to initialize components: %w", err)
			}
			defer components.Shutdown(ctx)

			result := components.Runner.Run(ctx)
			if result.Err != "" {
				if errors.Is(ctx.Err(), context.Canceled) {
					logger.Warn("Run aborted gracefully")
					return fmt.Errorf("run aborted by user signal")
				}
				logger.Error("Run failed", zap.String("error", result.Err))
				return errors.New(result.Err)
			}

			fmt.Printf("\nRun complete. %d of %d assignments completed.\n",
				result.TotalAssignmentsCompleted, result.TotalAssignments)
			for _, course := range result.Courses {
				status := "ok"
				if !course.Success {
					status = "failed"
					if course.Error != "" {
						status = course.Error
					}
				}
				fmt.Printf("  course %s: %d completed (%s)\n", course.CourseID, course.AssignmentsCompleted, status)
			}
			return nil
		},
	}

	runCmd.Flags().Bool("headless", true, "Run the browser headless. (Overrides config/env)")
	runCmd.Flags().Bool("parallel", false, "Process assignments concurrently. (Overrides config/env)")
	runCmd.Flags().IntP("concurrency", "j", 0, "Maximum concurrent assignments in parallel mode. (Overrides config/env)")

	return runCmd
}

// runComponents holds initialized services.
type runComponents struct {
	BrowserManager *browser.Manager
	Runner         *orchestrator.Runner
}

// Shutdown gracefully closes all components.
func (rc *runComponents) Shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if rc.BrowserManager != nil {
		if err := rc.BrowserManager.Shutdown(shutdownCtx); err != nil {
			observability.GetLogger().Warn("Error during browser manager shutdown", zap.Error(err))
		}
	}
	observability.Sync()
}

// initializeRunComponents handles dependency injection.
func initializeRunComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*runComponents, error) {
	components := &runComponents{}

	// 1. Browser Manager
	browserManager, err := browser.NewManager(ctx, logger, cfg)
	if err != nil {
		return components, fmt.Errorf("failed to initialize browser manager: %w", err)
	}
	components.BrowserManager = browserManager

	// 2. LLM Router and Assistant
	router, err := llm.NewFromConfig(cfg.LLM, logger)
	if err != nil {
		return components, fmt.Errorf("failed to initialize LLM router: %w", err)
	}
	assistant := llm.NewAssistant(router, logger)

	// 3. Scratch store and screenshot artifacts
	store := scratch.NewStore()
	screenshots := artifacts.NewScreenshots(cfg.Automation.ScreenshotDir, cfg.Automation.SaveScreenshots, logger)

	// 4. Orchestrator
	emitter := observability.NewLogEmitter(logger)
	components.Runner = orchestrator.NewRunner(cfg, logger, emitter,
		orchestrator.ManagerFactory{Manager: browserManager}, assistant, store, screenshots)

	return components, nil
}
