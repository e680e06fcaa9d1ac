package quizzes

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// QuestionType enumerates the supported quiz question shapes.
type QuestionType string

const (
	// TypeMultipleChoice questions carry exactly four options.
	TypeMultipleChoice QuestionType = "multiple_choice"
	// TypeTrueFalse questions carry no options.
	TypeTrueFalse QuestionType = "true_false"
)

// Difficulty grades a question.
type Difficulty string

const (
	// DifficultyEasy marks warm-up questions.
	DifficultyEasy Difficulty = "easy"
	// DifficultyMedium marks standard questions.
	DifficultyMedium Difficulty = "medium"
	// DifficultyHard marks stretch questions.
	DifficultyHard Difficulty = "hard"
)

// Status enumerates the quiz publication states.
type Status string

const (
	// StatusDraft quizzes are visible to the authoring instructor only.
	StatusDraft Status = "draft"
	// StatusPublished quizzes are visible to students.
	StatusPublished Status = "published"
)

const (
	// MinQuestions is the smallest question set a quiz may carry.
	MinQuestions = 2
	// MaxQuestions is the largest question set a quiz may carry.
	MaxQuestions = 10
	// MaxQuestionLength bounds question text.
	MaxQuestionLength = 300
	// MaxExplanationLength bounds answer explanations.
	MaxExplanationLength = 200
	// MultipleChoiceOptionCount is the exact option count for multiple choice.
	MultipleChoiceOptionCount = 4
)

// ErrInvalidQuiz indicates the quiz fails shape validation.
var ErrInvalidQuiz = errors.New("quizzes: invalid quiz")

// Question models one quiz question. For true/false questions Options is nil
// and CorrectAnswer is "true" or "false"; for multiple choice CorrectAnswer
// is one of the four options.
type Question struct {
	ID                  string
	Type                QuestionType
	Question            string
	Options             []string
	CorrectAnswer       string
	Explanation         string
	Difficulty          Difficulty
	SourceTranscriptIDs []string
}

// Quiz models a generated quiz owned by a classroom session.
type Quiz struct {
	ID                  string
	SessionID           string
	CreatedBy           string
	CreatedByName       string
	CreatedAt           time.Time
	LastModified        time.Time
	SourceTranscriptIDs []string
	Questions           []Question
	Status              Status
	Title               string
}

// Update describes a partial quiz mutation. Nil fields are left untouched.
type Update struct {
	Title     *string
	Status    *Status
	Questions []Question
}

// Validate checks the structural rules a well-formed quiz satisfies. The
// store trusts its callers; the HTTP boundary runs this before Save.
func (q Quiz) Validate() error {
	if strings.TrimSpace(q.ID) == "" {
		return fmt.Errorf("%w: empty quiz id", ErrInvalidQuiz)
	}
	if strings.TrimSpace(q.SessionID) == "" {
		return fmt.Errorf("%w: empty session id", ErrInvalidQuiz)
	}
	if len(q.SourceTranscriptIDs) == 0 {
		return fmt.Errorf("%w: no source transcripts", ErrInvalidQuiz)
	}
	if len(q.Questions) < MinQuestions || len(q.Questions) > MaxQuestions {
		return fmt.Errorf("%w: question count %d outside [%d, %d]",
			ErrInvalidQuiz, len(q.Questions), MinQuestions, MaxQuestions)
	}
	switch q.Status {
	case StatusDraft, StatusPublished:
	default:
		return fmt.Errorf("%w: status %q", ErrInvalidQuiz, q.Status)
	}
	for _, question := range q.Questions {
		if err := question.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (q Question) validate() error {
	text := strings.TrimSpace(q.Question)
	if text == "" {
		return fmt.Errorf("%w: empty question text", ErrInvalidQuiz)
	}
	if utf8.RuneCountInString(text) > MaxQuestionLength {
		return fmt.Errorf("%w: question text exceeds %d characters", ErrInvalidQuiz, MaxQuestionLength)
	}
	if utf8.RuneCountInString(q.Explanation) > MaxExplanationLength {
		return fmt.Errorf("%w: explanation exceeds %d characters", ErrInvalidQuiz, MaxExplanationLength)
	}
	switch q.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
	default:
		return fmt.Errorf("%w: difficulty %q", ErrInvalidQuiz, q.Difficulty)
	}
	switch q.Type {
	case TypeMultipleChoice:
		if len(q.Options) != MultipleChoiceOptionCount {
			return fmt.Errorf("%w: multiple choice requires exactly %d options",
				ErrInvalidQuiz, MultipleChoiceOptionCount)
		}
		found := false
		for _, option := range q.Options {
			if option == q.CorrectAnswer {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: correct answer is not one of the options", ErrInvalidQuiz)
		}
	case TypeTrueFalse:
		if q.Options != nil {
			return fmt.Errorf("%w: true/false questions carry no options", ErrInvalidQuiz)
		}
		if q.CorrectAnswer != "true" && q.CorrectAnswer != "false" {
			return fmt.Errorf("%w: true/false answer must be \"true\" or \"false\"", ErrInvalidQuiz)
		}
	default:
		return fmt.Errorf("%w: question type %q", ErrInvalidQuiz, q.Type)
	}
	return nil
}
