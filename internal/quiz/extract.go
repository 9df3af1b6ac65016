// File: internal/quiz/extract.go
package quiz

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/lms-autopilot/internal/classify"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// extractScript walks the page for questions and serializes them. Strategy
// order mirrors how real LMS markup degrades: explicit question containers
// first, then radio groups keyed by name with a DOM climb for the question
// text, then text inputs for the free-response kinds.
const extractScript = `(() => {
	const clean = (s) => (s || '').trim().replace(/\s+/g, ' ');

	const optionTextFor = (input, root) => {
		if (input.id) {
			const label = (root || document).querySelector('label[for="' + input.id + '"]');
			if (label) return clean(label.textContent);
		}
		if (input.parentElement && clean(input.parentElement.textContent)) {
			return clean(input.parentElement.textContent);
		}
		let sibling = input.nextSibling;
		while (sibling) {
			if (clean(sibling.textContent)) return clean(sibling.textContent);
			sibling = sibling.nextSibling;
		}
		return 'Unknown option';
	};

	const selectorFor = (el) => {
		if (el.id) return '#' + el.id;
		if (el.name) return el.tagName.toLowerCase() + '[name="' + el.name + '"][value="' + el.value + '"]';
		return '';
	};

	const questions = [];

	// Strategy 1: question containers.
	const containers = document.querySelectorAll('.question-container, .quiz-question, .exam-question, .assessment-question');
	if (containers.length > 0) {
		containers.forEach((container, i) => {
			let text = '';
			const textEl = container.querySelector('.question-text, .question-title, .question-stem');
			if (textEl) {
				text = clean(textEl.textContent);
			} else {
				const firstP = container.querySelector('p');
				if (firstP) text = clean(firstP.textContent);
			}
			if (!text) text = 'Unknown question';

			const inputs = container.querySelectorAll('input[type="radio"], input[type="checkbox"]');
			const options = [];
			let kind = 'multiple-choice';
			inputs.forEach((input) => {
				if (input.type === 'checkbox') kind = 'multiple-select';
				options.push({
					text: optionTextFor(input, container),
					value: input.value,
					selector: selectorFor(input),
				});
			});

			const textarea = container.querySelector('textarea');
			const textInput = container.querySelector('input[type="text"]');
			if (options.length === 0 && textarea) {
				questions.push({index: i + 1, text, kind: 'free-response', selector: selectorFor(textarea) || 'textarea', options: []});
				return;
			}
			if (options.length === 0 && textInput) {
				questions.push({index: i + 1, text, kind: 'fill-in-blank', selector: selectorFor(textInput) || 'input[type="text"]', options: []});
				return;
			}
			questions.push({index: i + 1, text, kind, selector: '', options});
		});
		return JSON.stringify(questions);
	}

	// Strategy 2: group radios by name and climb for the question text.
	const radios = document.querySelectorAll('input[type="radio"]');
	const groups = {};
	radios.forEach((radio) => {
		if (!radio.name) return;
		if (!groups[radio.name]) {
			let questionText = 'Unknown question';
			let current = radio;
			while (current && current.tagName !== 'BODY') {
				current = current.parentElement;
				if (!current) break;
				if (current.querySelectorAll('input[type="radio"]').length > 0 &&
					current.querySelector('input[type="radio"]') !== radio &&
					current.querySelectorAll('input[type="radio"][name="' + radio.name + '"]').length !== current.querySelectorAll('input[type="radio"]').length) {
					break;
				}
				const candidates = current.querySelectorAll('p, h3, h4, .question, .question-text');
				for (const el of candidates) {
					if (clean(el.textContent) && !el.querySelector('input')) {
						questionText = clean(el.textContent);
						break;
					}
				}
				if (questionText !== 'Unknown question') break;
			}
			groups[radio.name] = {text: questionText, options: []};
		}
		groups[radio.name].options.push({
			text: optionTextFor(radio, null),
			value: radio.value,
			selector: radio.id ? '#' + radio.id : 'input[name="' + radio.name + '"][value="' + radio.value + '"]',
		});
	});
	let index = 1;
	for (const name of Object.keys(groups)) {
		const g = groups[name];
		if (g.options.length === 0) continue;
		questions.push({index: index++, text: g.text, kind: 'multiple-choice', selector: '', options: g.options});
	}
	if (questions.length > 0) return JSON.stringify(questions);

	// Strategy 3: free-response and fill-in-blank fields.
	const climb = (el, excludeSelector) => {
		if (el.id) {
			const label = document.querySelector('label[for="' + el.id + '"]');
			if (label) return clean(label.textContent);
		}
		let current = el;
		while (current && current.tagName !== 'BODY') {
			current = current.parentElement;
			if (!current) break;
			const candidates = current.querySelectorAll('p, h3, h4, .question, .question-text');
			for (const qEl of candidates) {
				if (clean(qEl.textContent) && !qEl.querySelector(excludeSelector)) {
					return clean(qEl.textContent);
				}
			}
		}
		return 'Unknown question';
	};

	document.querySelectorAll('textarea').forEach((ta, i) => {
		questions.push({
			index: questions.length + 1,
			text: climb(ta, 'textarea'),
			kind: 'free-response',
			selector: selectorFor(ta) || 'textarea:nth-of-type(' + (i + 1) + ')',
			options: [],
		});
	});
	document.querySelectorAll('input[type="text"]').forEach((inp, i) => {
		questions.push({
			index: questions.length + 1,
			text: climb(inp, 'input[type="text"]'),
			kind: 'fill-in-blank',
			selector: selectorFor(inp) || 'input[type="text"]:nth-of-type(' + (i + 1) + ')',
			options: [],
		});
	});
	return JSON.stringify(questions);
})()`

// ExtractQuestions pulls all answerable questions off the current page.
// Returns an empty slice (not an error) when the page has none.
func ExtractQuestions(ctx context.Context, p Page, info classify.QuizInfo, logger *zap.Logger) ([]Question, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !info.IsQuiz {
		logger.Warn("Not a quiz page, cannot extract questions")
		return nil, nil
	}

	var raw string
	if err := p.Evaluate(ctx, extractScript, &raw); err != nil {
		return nil, fmt.Errorf("question extraction script failed: %w", err)
	}

	var questions []Question
	if err := json.UnmarshalFromString(raw, &questions); err != nil {
		return nil, fmt.Errorf("failed to decode extracted questions: %w", err)
	}

	logger.Info("Extracted quiz questions", zap.Int("count", len(questions)))
	return questions, nil
}
