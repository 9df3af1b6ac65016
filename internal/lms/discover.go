// File: internal/lms/discover.go
package lms

import (
	"context"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/lms-autopilot/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// assignmentsHeading verifies the list page rendered.
const assignmentsHeading = "h1.header"

// extractAssignmentsScript reads the assignments table row by row. The name
// cell carries the link and a transcript id in its query string.
const extractAssignmentsScript = `(() => {
	const rows = Array.from(document.querySelectorAll('table.pod.data tbody tr'));
	const out = rows.map((row) => {
		const cell = (n) => row.querySelector('td:nth-child(' + n + ')');
		const typeCell = cell(1), nameCell = cell(2), startCell = cell(3);
		const dueCell = cell(4), statusCell = cell(5), assignedByCell = cell(6);
		if (!nameCell) return null;

		const link = nameCell.querySelector('a');
		const href = link ? link.href : '';
		const m = href.match(/transcriptID=(\d+)/);

		return {
			id: (row.id || '').replace('row', ''),
			type: typeCell && typeCell.querySelector('span') ? (typeCell.querySelector('span').title || 'Unknown') : 'Unknown',
			name: nameCell.textContent.trim(),
			url: href,
			transcriptId: m ? m[1] : '',
			startDate: startCell ? startCell.textContent.trim() : '',
			dueDate: dueCell ? dueCell.textContent.trim() : '',
			status: statusCell ? statusCell.textContent.trim() : '',
			assignedBy: assignedByCell ? assignedByCell.textContent.trim() : '',
		};
	}).filter(Boolean);
	return JSON.stringify(out);
})()`

// fallbackAssignmentsScript covers list pages without the standard table.
const fallbackAssignmentsScript = `(() => {
	const seen = new Set();
	const out = [];
	for (const a of document.querySelectorAll('a[href*="assignment"]')) {
		const name = (a.textContent || '').trim();
		if (!name || seen.has(a.href)) continue;
		seen.add(a.href);
		out.push({id: '', type: 'Unknown', name, url: a.href, transcriptId: '', startDate: '', dueDate: '', status: '', assignedBy: ''});
	}
	return JSON.stringify(out);
})()`

type rawAssignment struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Name         string `json:"name"`
	URL          string `json:"url"`
	TranscriptID string `json:"transcriptId"`
	StartDate    string `json:"startDate"`
	DueDate      string `json:"dueDate"`
	Status       string `json:"status"`
	AssignedBy   string `json:"assignedBy"`
}

// DiscoverAssignments reads every assignment off the current list page,
// sorted ascending by due date. The table layout is tried first, then a
// generic link scan.
func DiscoverAssignments(ctx context.Context, p Page, logger *zap.Logger, emitter observability.Emitter) ([]Assignment, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	observability.Emit(emitter, observability.LevelInfo, "Getting assignments from My Assignments page...")

	assignments, err := runExtraction(ctx, p, extractAssignmentsScript)
	if err != nil {
		return nil, fmt.Errorf("assignment extraction failed: %w", err)
	}
	if len(assignments) == 0 {
		logger.Info("Assignments table not found, trying generic link scan")
		assignments, err = runExtraction(ctx, p, fallbackAssignmentsScript)
		if err != nil {
			return nil, fmt.Errorf("fallback assignment extraction failed: %w", err)
		}
	}

	SortByDueDate(assignments)
	observability.Emit(emitter, observability.LevelInfo,
		fmt.Sprintf("Found %d assignments", len(assignments)))
	return assignments, nil
}

func runExtraction(ctx context.Context, p Page, script string) ([]Assignment, error) {
	var raw string
	if err := p.Evaluate(ctx, script, &raw); err != nil {
		return nil, err
	}
	var rows []rawAssignment
	if err := json.UnmarshalFromString(raw, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode assignment rows: %w", err)
	}

	assignments := make([]Assignment, 0, len(rows))
	for _, r := range rows {
		if r.Name == "" {
			continue
		}
		assignments = append(assignments, Assignment{
			ID:           r.ID,
			Name:         r.Name,
			URL:          r.URL,
			TranscriptID: r.TranscriptID,
			StartDate:    ParseDate(r.StartDate),
			DueDate:      ParseDate(r.DueDate),
			Status:       r.Status,
			AssignedBy:   r.AssignedBy,
			Kind:         classifyKind(r.Type),
		})
	}
	return assignments, nil
}

// NavigateToAssignments gets the session onto the assignments list page. It
// prefers clicking the navigation link; when the link is absent it falls back
// to the direct URL from config.
func NavigateToAssignments(ctx context.Context, p Page, directURL string, logger *zap.Logger, emitter observability.Emitter) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	observability.Emit(emitter, observability.LevelInfo, "Navigating to My Assignments page...")

	current, err := p.URL(ctx)
	if err == nil && strings.Contains(current, "c_pro_assignments.showHome") {
		logger.Info("Already on My Assignments page")
		return nil
	}

	if clicked := clickAssignmentsLink(ctx, p, logger); clicked {
		if err := p.Sleep(ctx, 2*time.Second); err != nil {
			return err
		}
		if onAssignmentsPage(ctx, p) {
			observability.Emit(emitter, observability.LevelSuccess, "Successfully navigated to My Assignments page")
			return nil
		}
		logger.Warn("Assignments link click did not land on the list page")
	}

	if directURL == "" {
		return fmt.Errorf("assignments link not found and no direct URL configured")
	}
	logger.Info("Trying direct assignments URL", zap.String("url", directURL))
	if err := p.Navigate(ctx, directURL); err != nil {
		return fmt.Errorf("failed to open assignments page: %w", err)
	}
	if !onAssignmentsPage(ctx, p) {
		return fmt.Errorf("assignments page did not load")
	}
	observability.Emit(emitter, observability.LevelSuccess, "Successfully navigated to My Assignments page")
	return nil
}

func clickAssignmentsLink(ctx context.Context, p Page, logger *zap.Logger) bool {
	const script = `(() => {
		for (const a of document.querySelectorAll('a')) {
			if ((a.textContent || '').trim() === 'My Assignments') {
				a.setAttribute('data-autopilot-assignments', '1');
				return true;
			}
		}
		return false;
	})()`
	var found bool
	if err := p.Evaluate(ctx, script, &found); err != nil || !found {
		return false
	}
	if err := p.Click(ctx, `[data-autopilot-assignments="1"]`); err != nil {
		logger.Debug("Assignments link click failed", zap.Error(err))
		return false
	}
	return true
}

func onAssignmentsPage(ctx context.Context, p Page) bool {
	script := fmt.Sprintf(`(() => {
		const h = document.querySelector(%q);
		return !!(h && h.textContent.includes('My Assignments'));
	})()`, assignmentsHeading)
	var ok bool
	if err := p.Evaluate(ctx, script, &ok); err != nil {
		return false
	}
	if ok {
		return true
	}
	// Some skins drop the heading; the table itself is proof enough.
	n, err := p.Count(ctx, "table.pod.data")
	return err == nil && n > 0
}
