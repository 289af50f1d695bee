package service

import (
	"math"

	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/google/uuid"
)

// Grade scores a session's answers against the exam's questions.
// Every question adds its points to the total; only multiple_choice and
// sentence_order answers can earn them. The result is a percentage rounded to
// two decimals, or 0 when the exam is worth no points.
func Grade(questions []model.Question, answers map[string]model.AnswerEntry) float64 {
	total, earned := 0, 0
	for i := range questions {
		q := &questions[i]
		total += q.Points

		if q.QuestionType == model.QuestionTypeEssay {
			continue
		}
		entry, ok := answers[q.ID.String()]
		if !ok {
			continue
		}
		correct, err := model.DecodeAnswer(q.QuestionType, q.CorrectAnswer)
		if err != nil {
			continue
		}
		given, err := model.DecodeAnswer(q.QuestionType, entry.Answer)
		if err != nil {
			continue
		}
		if correct.Matches(given) {
			earned += q.Points
		}
	}

	if total == 0 {
		return 0
	}
	return math.Round(float64(earned)/float64(total)*100*100) / 100
}

// orderQuestions arranges fetched questions in the exam's question_ids order.
// Ids that no longer resolve are skipped and repeated ids appear once.
func orderQuestions(ids []uuid.UUID, fetched []model.Question) []model.Question {
	byID := make(map[uuid.UUID]model.Question, len(fetched))
	for _, q := range fetched {
		byID[q.ID] = q
	}

	ordered := make([]model.Question, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if q, ok := byID[id]; ok {
			ordered = append(ordered, q)
		}
	}
	return ordered
}
