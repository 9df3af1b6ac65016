// File: internal/quiz/quiz_test.go
package quiz

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/lms-autopilot/internal/classify"
	"github.com/xkilldash9x/lms-autopilot/internal/retry"
)

type mockAssistant struct {
	choice      int
	choiceErr   error
	text        string
	textErr     error
	gotQuestion string
	gotOptions  []string
}

func (m *mockAssistant) SelectChoice(ctx context.Context, question string, options []string, courseContext string) (int, error) {
	m.gotQuestion = question
	m.gotOptions = options
	return m.choice, m.choiceErr
}

func (m *mockAssistant) GenerateText(ctx context.Context, prompt string, courseContext string) (string, error) {
	return m.text, m.textErr
}

type fakeQuizPage struct {
	counts   map[string]int
	body     string
	clicks   []string
	typed    map[string]string
	evaluate func(script string, out interface{}) error
}

func (f *fakeQuizPage) Reload(ctx context.Context) error { return nil }
func (f *fakeQuizPage) Back(ctx context.Context) error   { return nil }
func (f *fakeQuizPage) BodyText(ctx context.Context) (string, error) {
	return f.body, nil
}
func (f *fakeQuizPage) Count(ctx context.Context, selector string) (int, error) {
	return f.counts[selector], nil
}
func (f *fakeQuizPage) Click(ctx context.Context, selector string) error {
	f.clicks = append(f.clicks, selector)
	return nil
}
func (f *fakeQuizPage) Type(ctx context.Context, selector, text string) error {
	if f.typed == nil {
		f.typed = map[string]string{}
	}
	f.typed[selector] = text
	return nil
}
func (f *fakeQuizPage) Evaluate(ctx context.Context, script string, out interface{}) error {
	if f.evaluate != nil {
		return f.evaluate(script, out)
	}
	return nil
}
func (f *fakeQuizPage) Sleep(ctx context.Context, d time.Duration) error { return nil }
func (f *fakeQuizPage) Title(ctx context.Context) (string, error)        { return "", nil }

func choiceQuestion() Question {
	return Question{
		Index: 1,
		Text:  "Which gas do plants absorb?",
		Kind:  classify.KindMultipleChoice,
		Options: []Option{
			{Text: "Oxygen", Value: "a", Selector: "#opt-a"},
			{Text: "Carbon dioxide", Value: "b", Selector: "#opt-b"},
			{Text: "Nitrogen", Value: "c", Selector: "#opt-c"},
		},
	}
}

func TestExtractQuestionsDecodesOptionsInOrder(t *testing.T) {
	extracted := `[
		{"index": 1, "text": "Which gas do plants absorb?", "kind": "multiple-choice", "options": [
			{"text": "Oxygen", "value": "a", "selector": "#q1-a"},
			{"text": "Carbon dioxide", "value": "b", "selector": "#q1-b"},
			{"text": "Nitrogen", "value": "c", "selector": "#q1-c"},
			{"text": "Helium", "value": "d", "selector": "#q1-d"}
		]},
		{"index": 2, "text": "Describe photosynthesis.", "kind": "free-response", "selector": "#q2-answer", "options": []}
	]`
	page := &fakeQuizPage{evaluate: func(script string, out interface{}) error {
		*(out.(*string)) = extracted
		return nil
	}}

	questions, err := ExtractQuestions(context.Background(), page,
		classify.QuizInfo{IsQuiz: true}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, questions, 2)

	// Four options on the page come back as exactly four, in source order,
	// each with usable text and a selector.
	q := questions[0]
	assert.Equal(t, classify.KindMultipleChoice, q.Kind)
	require.Len(t, q.Options, 4)
	wantText := []string{"Oxygen", "Carbon dioxide", "Nitrogen", "Helium"}
	wantSel := []string{"#q1-a", "#q1-b", "#q1-c", "#q1-d"}
	for i, opt := range q.Options {
		assert.Equal(t, wantText[i], opt.Text)
		assert.Equal(t, wantSel[i], opt.Selector)
	}

	assert.Equal(t, classify.KindFreeResponse, questions[1].Kind)
	assert.Equal(t, "#q2-answer", questions[1].Selector)
	assert.Empty(t, questions[1].Options)
}

func TestExtractQuestionsBadPayload(t *testing.T) {
	page := &fakeQuizPage{evaluate: func(script string, out interface{}) error {
		*(out.(*string)) = "not json"
		return nil
	}}

	_, err := ExtractQuestions(context.Background(), page,
		classify.QuizInfo{IsQuiz: true}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestAnswerQuestionPreservesOptionOrder(t *testing.T) {
	assistant := &mockAssistant{choice: 2}
	q := choiceQuestion()

	a := AnswerQuestion(context.Background(), assistant, q, "", zaptest.NewLogger(t))
	require.True(t, a.Success)
	assert.Equal(t, 1, a.OptionIndex)
	assert.Equal(t, []string{"Oxygen", "Carbon dioxide", "Nitrogen"}, assistant.gotOptions)
}

func TestAnswerQuestionOutOfRangeNeverGuesses(t *testing.T) {
	assistant := &mockAssistant{choice: 7}
	q := choiceQuestion()

	a := AnswerQuestion(context.Background(), assistant, q, "", zaptest.NewLogger(t))
	assert.False(t, a.Success)
	assert.Equal(t, "invalid option index", a.Err)

	// A failed answer must never reach the page.
	p := &fakeQuizPage{counts: map[string]int{}}
	ok := SubmitAnswer(context.Background(), p, q, a, retry.Options{}, zaptest.NewLogger(t))
	assert.False(t, ok)
	assert.Empty(t, p.clicks)
}

func TestAnswerQuestionFillInBlankTruncated(t *testing.T) {
	assistant := &mockAssistant{text: "Photosynthesis\nA much longer explanation follows."}
	q := Question{Index: 1, Text: "Name the process", Kind: classify.KindFillInBlank, Selector: "#blank"}

	a := AnswerQuestion(context.Background(), assistant, q, "", zaptest.NewLogger(t))
	require.True(t, a.Success)
	assert.Equal(t, "Photosynthesis", a.Response)
}

func TestTruncateBlank(t *testing.T) {
	assert.Equal(t, "short", TruncateBlank("short"))
	assert.Equal(t, "first line", TruncateBlank("first line\nsecond line"))

	long := strings.Repeat("x", 80)
	assert.Len(t, TruncateBlank(long), 50)
}

func TestSubmitAnswerClicksChoice(t *testing.T) {
	p := &fakeQuizPage{counts: map[string]int{"#opt-b": 1}}
	q := choiceQuestion()
	a := Answer{Success: true, OptionIndex: 1}

	ok := SubmitAnswer(context.Background(), p, q, a, retry.Options{InitialDelay: time.Millisecond}, zaptest.NewLogger(t))
	require.True(t, ok)
	assert.Contains(t, p.clicks, "#opt-b")
}

func TestSubmitQuizSkipsDisabledControl(t *testing.T) {
	// The only submit control present reports itself disabled, so nothing is
	// clicked and submission fails.
	p := &fakeQuizPage{
		counts: map[string]int{`button[type="submit"]`: 1},
		evaluate: func(script string, out interface{}) error {
			if b, ok := out.(*bool); ok {
				if strings.Contains(script, "aria-disabled") {
					*b = true // disabled probe
				} else {
					*b = false // text scan finds nothing
				}
			}
			return nil
		},
	}

	ok := SubmitQuiz(context.Background(), p, retry.Options{InitialDelay: time.Millisecond}, zaptest.NewLogger(t))
	assert.False(t, ok)
	assert.Empty(t, p.clicks)
}

func TestParseScore(t *testing.T) {
	s := ParseScore("You scored 8/10 on this quiz")
	require.NotNil(t, s)
	assert.True(t, s.HasRatio)
	assert.Equal(t, 8.0, s.Earned)
	assert.Equal(t, 10.0, s.Total)
	assert.InDelta(t, 80.0, s.Percentage, 0.001)

	s = ParseScore("Final grade: 85%")
	require.NotNil(t, s)
	assert.False(t, s.HasRatio)
	assert.InDelta(t, 85.0, s.Percentage, 0.001)

	assert.Nil(t, ParseScore("no score here"))
}

func TestDecidePassedThreshold(t *testing.T) {
	passed := DecidePassed("your score is below", &Score{Percentage: 70}, 70)
	require.NotNil(t, passed)
	assert.True(t, *passed)

	failedScore := DecidePassed("your score is", &Score{Percentage: 69.9}, 70)
	require.NotNil(t, failedScore)
	assert.False(t, *failedScore)

	// Explicit text wins over the numeric score.
	explicit := DecidePassed("you passed the quiz", &Score{Percentage: 10}, 70)
	require.NotNil(t, explicit)
	assert.True(t, *explicit)

	assert.Nil(t, DecidePassed("nothing conclusive", nil, 70))
}

func TestCheckResultsNotFound(t *testing.T) {
	p := &fakeQuizPage{counts: map[string]int{}, body: "just some lesson text"}

	res := CheckResults(context.Background(), p, 70, zaptest.NewLogger(t))
	assert.False(t, res.Found)
	assert.Nil(t, res.Score)
}

func TestExtractQuestionsNotAQuiz(t *testing.T) {
	p := &fakeQuizPage{}
	qs, err := ExtractQuestions(context.Background(), p, classify.QuizInfo{IsQuiz: false}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Nil(t, qs)
}
