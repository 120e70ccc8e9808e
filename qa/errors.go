package qa

import (
	"errors"
	"fmt"
)

// GenerationError is returned when the model could not produce an answer.
// History is never updated for a failed question.
type GenerationError struct {
	Question string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("qa: generation failed for %q: %v", e.Question, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}
