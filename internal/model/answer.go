package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrAnswerShape is returned when a value does not have the shape its
// question type requires.
var ErrAnswerShape = errors.New("answer shape does not match question type")

// Answer is a decoded answer (or correct answer) tagged by question type.
//   - multiple_choice: Choice holds a canonical scalar (string, number or bool)
//   - sentence_order:  Order holds the ordered sequence of fragments
//   - essay:           Text holds the raw submission and is never compared
type Answer struct {
	Type   QuestionType
	Choice string
	Order  []string
	Text   string
}

// DecodeAnswer parses raw JSON according to the question type.
func DecodeAnswer(t QuestionType, raw json.RawMessage) (Answer, error) {
	raw = bytes.TrimSpace(raw)
	switch t {
	case QuestionTypeMultipleChoice:
		choice, err := canonicalScalar(raw)
		if err != nil {
			return Answer{}, err
		}
		return Answer{Type: t, Choice: choice}, nil

	case QuestionTypeSentenceOrder:
		if len(raw) == 0 || raw[0] != '[' {
			return Answer{}, fmt.Errorf("%w: sentence_order expects a list of strings", ErrAnswerShape)
		}
		var order []string
		if err := json.Unmarshal(raw, &order); err != nil {
			return Answer{}, fmt.Errorf("%w: %v", ErrAnswerShape, err)
		}
		return Answer{Type: t, Order: order}, nil

	case QuestionTypeEssay:
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			text = string(raw)
		}
		return Answer{Type: t, Text: text}, nil
	}
	return Answer{}, fmt.Errorf("%w: unknown question type %q", ErrAnswerShape, t)
}

// Matches reports whether a student answer earns the points of a question
// whose correct answer is a. Essays never match.
func (a Answer) Matches(student Answer) bool {
	if a.Type != student.Type {
		return false
	}
	switch a.Type {
	case QuestionTypeMultipleChoice:
		return a.Choice == student.Choice
	case QuestionTypeSentenceOrder:
		if len(a.Order) != len(student.Order) {
			return false
		}
		for i := range a.Order {
			if a.Order[i] != student.Order[i] {
				return false
			}
		}
		return true
	}
	return false
}

// canonicalScalar encodes a JSON scalar so that equal values of the same kind
// compare equal: "1" and 1 differ, 1 and 1.0 do not.
func canonicalScalar(raw json.RawMessage) (string, error) {
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("%w: %v", ErrAnswerShape, err)
	}
	switch x := v.(type) {
	case string:
		return "s:" + x, nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrAnswerShape, err)
		}
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64), nil
	case bool:
		return "b:" + strconv.FormatBool(x), nil
	}
	return "", fmt.Errorf("%w: multiple_choice expects a single value", ErrAnswerShape)
}
