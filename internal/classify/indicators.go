// File: internal/classify/indicators.go
package classify

// QuizIndicators signal quiz or exam content. Weights reflect how strongly
// each signal implies an assessment; structural selectors outweigh loose
// text matches.
var QuizIndicators = []Indicator{
	{Selector: ".quiz-container", Weight: 10},
	{Selector: ".exam-container", Weight: 10},
	{Selector: ".assessment", Weight: 8},
	{Selector: ".question-container", Weight: 9},
	{Selector: ".multiple-choice", Weight: 9},
	{Selector: "form.quiz", Weight: 10},
	{Selector: "form.exam", Weight: 10},
	{Selector: `input[type="radio"]`, Weight: 7},
	{Selector: ".quiz-question", Weight: 9},
	{Selector: ".exam-question", Weight: 9},
	{Selector: ".question-text", Weight: 8},
	{Selector: ".option-text", Weight: 7},
	{Selector: ".answer-option", Weight: 7},
	{Selector: ".submit-quiz", Weight: 9},
	{Selector: ".submit-exam", Weight: 9},
	{Selector: ".question-number", Weight: 8},

	{Text: "quiz", Weight: 5},
	{Text: "exam", Weight: 5},
	{Text: "assessment", Weight: 4},
	{Text: "multiple choice", Weight: 5},
	{Text: "select the correct", Weight: 5},
	{Text: "choose the best", Weight: 5},
	{Text: "final exam", Weight: 6},
	{Text: "question", Weight: 3},
	{Text: "answer", Weight: 3},
	{Text: "submit your answers", Weight: 5},
	{Text: "passing score", Weight: 5},
	{Text: "minimum score", Weight: 5},
	{Text: "time limit", Weight: 4},
}

// CompletionIndicators signal an assignment or course already finished.
var CompletionIndicators = []Indicator{
	{Selector: ".completion-message", Weight: 10},
	{Selector: ".course-complete", Weight: 10},
	{Selector: ".certificate", Weight: 8},
	{Selector: ".quiz-complete", Weight: 9},
	{Selector: ".exam-complete", Weight: 9},
	{Text: "congratulations", Weight: 6},
	{Text: "course complete", Weight: 8},
	{Text: "you have completed", Weight: 8},
	{Text: "successfully completed", Weight: 8},
}

// TimeLockIndicators signal content gated behind a minimum dwell time.
var TimeLockIndicators = []Indicator{
	{Selector: ".timer", Weight: 8},
	{Selector: ".countdown", Weight: 8},
	{Selector: ".time-remaining", Weight: 8},
	{Selector: ".time-lock-message", Weight: 10},
	{Selector: "[data-time-required]", Weight: 10},
	{Text: "please wait", Weight: 4},
	{Text: "time remaining", Weight: 6},
	{Text: "available in", Weight: 5},
}

// ErrorIndicators signal an LMS or browser error page.
var ErrorIndicators = []Indicator{
	{Selector: ".error-message", Weight: 8},
	{Selector: ".alert-danger", Weight: 7},
	{Selector: ".error-page", Weight: 10},
	{Text: "an error occurred", Weight: 8},
	{Text: "something went wrong", Weight: 8},
	{Text: "page not found", Weight: 8},
	{Text: "this site can't be reached", Weight: 10},
}

// LoginIndicators signal a login page or an expired session.
var LoginIndicators = []Indicator{
	{Selector: `input[type="password"]`, Weight: 10},
	{Selector: ".login-form", Weight: 9},
	{Selector: "#username", Weight: 7},
	{Selector: ".btn-login", Weight: 8},
	{Text: "session expired", Weight: 10},
	{Text: "session has expired", Weight: 10},
	{Text: "please log in", Weight: 8},
	{Text: "sign in to continue", Weight: 8},
}

// CaptchaIndicators signal a human-verification challenge.
var CaptchaIndicators = []Indicator{
	{Selector: `iframe[src*="recaptcha"]`, Weight: 10},
	{Selector: ".g-recaptcha", Weight: 10},
	{Selector: ".h-captcha", Weight: 10},
	{Selector: `input[name="captcha"]`, Weight: 8},
	{Text: "verify you are human", Weight: 8},
	{Text: "i'm not a robot", Weight: 8},
}
