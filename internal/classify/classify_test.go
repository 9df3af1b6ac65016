// File: internal/classify/classify_test.go
package classify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeProbe struct {
	counts map[string]int
	body   string
	title  string
}

func (f *fakeProbe) Count(ctx context.Context, selector string) (int, error) {
	return f.counts[selector], nil
}

func (f *fakeProbe) BodyText(ctx context.Context) (string, error) { return f.body, nil }
func (f *fakeProbe) Title(ctx context.Context) (string, error)    { return f.title, nil }

func TestScoreAbsenceIsZero(t *testing.T) {
	p := &fakeProbe{counts: map[string]int{}, body: "plain lesson text"}
	det := NewDetector("quiz", QuizIndicators, zaptest.NewLogger(t))

	res := det.Score(context.Background(), p)
	assert.Zero(t, res.Score)
	assert.Empty(t, res.Matched)
}

func TestScoreIsIdempotent(t *testing.T) {
	p := &fakeProbe{
		counts: map[string]int{".quiz-container": 1, `input[type="radio"]`: 4},
		body:   "take the quiz",
	}
	det := NewDetector("quiz", QuizIndicators, zaptest.NewLogger(t))

	first := det.Score(context.Background(), p)
	second := det.Score(context.Background(), p)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Matched, second.Matched)
}

func TestClassifyQuizBelowExamThreshold(t *testing.T) {
	// .quiz-container (10) + radio inputs (7) + body "quiz" (5) = 22. Above
	// both thresholds, but the body never mentions an exam, so this is a
	// quiz, not an exam.
	p := &fakeProbe{
		counts: map[string]int{".quiz-container": 1, `input[type="radio"]`: 4},
		body:   "take the quiz",
	}

	info := ClassifyQuiz(context.Background(), p, Thresholds{}, zaptest.NewLogger(t))
	assert.Equal(t, 22, info.Score)
	assert.True(t, info.IsQuiz)
	assert.False(t, info.IsExam)
	assert.Equal(t, KindMultipleChoice, info.Kind)
}

func TestClassifyQuizExamNeedsBodyMention(t *testing.T) {
	p := &fakeProbe{
		counts: map[string]int{".exam-container": 1, `input[type="radio"]`: 4},
		body:   "this is the final exam",
	}

	info := ClassifyQuiz(context.Background(), p, Thresholds{}, zaptest.NewLogger(t))
	require.True(t, info.IsQuiz)
	assert.True(t, info.IsExam)
}

func TestClassifyQuizNotAQuiz(t *testing.T) {
	p := &fakeProbe{
		counts: map[string]int{},
		body:   "a lesson about answer keys", // "answer" alone scores 3
	}

	info := ClassifyQuiz(context.Background(), p, Thresholds{}, zaptest.NewLogger(t))
	assert.False(t, info.IsQuiz)
	assert.Equal(t, KindUnknown, info.Kind)
	assert.Zero(t, info.QuestionCount)
}

func TestClassifyQuizQuestionCount(t *testing.T) {
	p := &fakeProbe{
		counts: map[string]int{
			".quiz-container": 1,
			`input[type="radio"]`: 8,
			".question-container, .quiz-question, .exam-question, .assessment-question": 3,
		},
		body: "quiz time",
	}

	info := ClassifyQuiz(context.Background(), p, Thresholds{}, zaptest.NewLogger(t))
	require.True(t, info.IsQuiz)
	assert.Equal(t, 3, info.QuestionCount)
}

func TestClassifyPagePrecedence(t *testing.T) {
	logger := zaptest.NewLogger(t)

	login := &fakeProbe{
		counts: map[string]int{`input[type="password"]`: 1, ".btn-login": 1},
		body:   "please log in",
	}
	assert.Equal(t, PageLogin, ClassifyPage(context.Background(), login, Thresholds{}, logger))

	// Login chrome outranks completion chrome: an expired session can still
	// show stale completion markup.
	both := &fakeProbe{
		counts: map[string]int{
			`input[type="password"]`: 1,
			".btn-login":             1,
			".completion-message":    1,
		},
		body: "please log in",
	}
	assert.Equal(t, PageLogin, ClassifyPage(context.Background(), both, Thresholds{}, logger))

	completed := &fakeProbe{
		counts: map[string]int{".completion-message": 1},
		body:   "congratulations, you have completed the course",
	}
	assert.Equal(t, PageCompleted, ClassifyPage(context.Background(), completed, Thresholds{}, logger))

	timeLocked := &fakeProbe{
		counts: map[string]int{"[data-time-required]": 1},
		body:   "please wait, time remaining 5:00",
	}
	assert.Equal(t, PageTimeLocked, ClassifyPage(context.Background(), timeLocked, Thresholds{}, logger))

	unknown := &fakeProbe{counts: map[string]int{}, body: "nothing notable"}
	assert.Equal(t, PageUnknown, ClassifyPage(context.Background(), unknown, Thresholds{}, logger))
}

func TestSessionExpired(t *testing.T) {
	expired := &fakeProbe{
		counts: map[string]int{},
		body:   "your session has expired, please log in again",
	}
	got, err := SessionExpired(context.Background(), expired, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, got)

	active := &fakeProbe{counts: map[string]int{}, body: "lesson content"}
	got, err = SessionExpired(context.Background(), active, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, got)
}

func TestCaptchaPresent(t *testing.T) {
	p := &fakeProbe{counts: map[string]int{".g-recaptcha": 1}, body: ""}
	assert.True(t, CaptchaPresent(context.Background(), p, zaptest.NewLogger(t)))

	clean := &fakeProbe{counts: map[string]int{}, body: "lesson"}
	assert.False(t, CaptchaPresent(context.Background(), clean, zaptest.NewLogger(t)))
}
