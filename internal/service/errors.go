package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Shared business errors. Handlers map them to HTTP statuses with errors.Is.
var (
	ErrNotFound  = errors.New("resource not found")
	ErrForbidden = errors.New("forbidden")
)

// QuestionsNotOwnedError lists the question ids an exam referenced that are
// missing or owned by someone else.
type QuestionsNotOwnedError struct {
	Missing []uuid.UUID
}

func (e *QuestionsNotOwnedError) Error() string {
	ids := make([]string, len(e.Missing))
	for i, id := range e.Missing {
		ids[i] = id.String()
	}
	return fmt.Sprintf("questions not found or not owned: %s", strings.Join(ids, ", "))
}
