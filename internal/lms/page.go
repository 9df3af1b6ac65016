// File: internal/lms/page.go
package lms

import (
	"context"
	"time"
)

// Page is the browser surface the LMS flows drive. browser.Session satisfies
// it.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	WaitVisible(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error
	Count(ctx context.Context, selector string) (int, error)
	BodyText(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	URL(ctx context.Context) (string, error)
	Evaluate(ctx context.Context, script string, out interface{}) error
	Sleep(ctx context.Context, d time.Duration) error
}
