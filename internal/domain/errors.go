package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTransitionIgnored is returned when an event arrives in a phase that does not accept it.
	ErrTransitionIgnored = errors.New("transition not valid in current phase")
	// ErrInvalidQuestionCount is returned for quiz sizes other than 5, 10 or 15.
	ErrInvalidQuestionCount = errors.New("question count must be 5, 10 or 15")
	// ErrEmptyQuestionSet is returned when the answering service produced no questions.
	ErrEmptyQuestionSet = errors.New("answering service returned no questions")
	// ErrMalformedQuestion indicates a question without options or with an unknown answer key.
	ErrMalformedQuestion = errors.New("malformed quiz question")
	// ErrOptionNotFound indicates a submitted option key is not part of the current question.
	ErrOptionNotFound = errors.New("option not found")
	// ErrEmptyQuestion is returned when a chat message is blank.
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrSessionDiscarded is returned when a response arrives for a session that was reset or cleared.
	ErrSessionDiscarded = errors.New("session discarded before response arrived")
	// ErrNotFound is returned by key-value stores for absent keys.
	ErrNotFound = errors.New("key not found")
)

// ServiceError describes a failed call to the remote answering service.
type ServiceError struct {
	Op     string
	Status int
	Detail string
	Err    error
}

func (e *ServiceError) Error() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
	}
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
