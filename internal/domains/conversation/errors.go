package conversation

import (
	"errors"
	"fmt"

	"github.com/xpanvictor/chemtalk/internal/types"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// ErrNotFound covers unknown conversations and ones owned by someone else.
var ErrNotFound = types.ErrConversationNotFound

// PersistenceError is a durable-store failure. The answer it accompanies is
// still valid; generation is never rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}
