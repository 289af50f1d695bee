package service

import (
	"encoding/json"
	"testing"

	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/google/uuid"
)

func mcQuestion(points int, correct any) model.Question {
	return model.Question{
		ID:            uuid.New(),
		QuestionType:  model.QuestionTypeMultipleChoice,
		Options:       []string{"A", "B", "C", "D"},
		CorrectAnswer: raw(correct),
		Points:        points,
	}
}

func answered(pairs ...any) map[string]model.AnswerEntry {
	out := map[string]model.AnswerEntry{}
	for i := 0; i+1 < len(pairs); i += 2 {
		q := pairs[i].(model.Question)
		out[q.ID.String()] = model.AnswerEntry{Answer: raw(pairs[i+1]), Status: "answered"}
	}
	return out
}

func TestGrade(t *testing.T) {
	q1 := mcQuestion(1, "B")
	q2 := mcQuestion(1, "C")
	essay := model.Question{ID: uuid.New(), QuestionType: model.QuestionTypeEssay, CorrectAnswer: raw("anything"), Points: 5}
	order := model.Question{
		ID:            uuid.New(),
		QuestionType:  model.QuestionTypeSentenceOrder,
		CorrectAnswer: raw([]string{"saya", "pergi", "ke", "pasar"}),
		Points:        2,
	}
	numeric := mcQuestion(1, 1)
	zero := mcQuestion(0, "A")

	tests := []struct {
		name      string
		questions []model.Question
		answers   map[string]model.AnswerEntry
		want      float64
	}{
		{"all correct", []model.Question{q1, q2}, answered(q1, "B", q2, "C"), 100},
		{"half correct", []model.Question{q1, q2}, answered(q1, "B", q2, "A"), 50},
		{"nothing answered", []model.Question{q1, q2}, nil, 0},
		{"essay never earns", []model.Question{q1, essay}, answered(q1, "B", essay, "anything"), 16.67},
		{"sentence order exact", []model.Question{order}, answered(order, []string{"saya", "pergi", "ke", "pasar"}), 100},
		{"sentence order no partial credit", []model.Question{order}, answered(order, []string{"saya", "ke", "pergi", "pasar"}), 0},
		{"sentence order wrong shape", []model.Question{order}, answered(order, "saya pergi ke pasar"), 0},
		{"string does not equal number", []model.Question{numeric}, answered(numeric, "1"), 0},
		{"integer equals float", []model.Question{numeric}, answered(numeric, json.RawMessage("1.0")), 100},
		{"zero total", []model.Question{zero}, answered(zero, "A"), 0},
		{"no questions", nil, answered(q1, "B"), 0},
		{"answers to unknown questions ignored", []model.Question{q1}, answered(q2, "C"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Grade(tt.questions, tt.answers)
			if got != tt.want {
				t.Errorf("Grade = %v, want %v", got, tt.want)
			}
			if got < 0 || got > 100 {
				t.Errorf("Grade = %v, outside [0,100]", got)
			}
		})
	}
}

func TestGrade_Deterministic(t *testing.T) {
	q1 := mcQuestion(3, "A")
	q2 := mcQuestion(4, "D")
	answers := answered(q1, "A", q2, "B")

	first := Grade([]model.Question{q1, q2}, answers)
	for i := 0; i < 10; i++ {
		if got := Grade([]model.Question{q1, q2}, answers); got != first {
			t.Fatalf("run %d: Grade = %v, want %v", i, got, first)
		}
	}
	if first != 42.86 {
		t.Errorf("Grade = %v, want 42.86", first)
	}
}

func TestOrderQuestions(t *testing.T) {
	a, b, c := mcQuestion(1, "A"), mcQuestion(1, "B"), mcQuestion(1, "C")
	missing := uuid.New()

	got := orderQuestions(
		[]uuid.UUID{c.ID, missing, a.ID, c.ID, b.ID},
		[]model.Question{a, b, c},
	)

	want := []uuid.UUID{c.ID, a.ID, b.ID}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("position %d = %s, want %s", i, got[i].ID, want[i])
		}
	}
}
