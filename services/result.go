package services

import "ticket-marketplace/internal/status"

// Result is the uniform shape returned by every mutation entry point.
// Presentation surfaces branch on Success only; the error kind is there
// so an authorization failure and a validation failure can be shown
// differently without any exception handling on the consumer side.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

func Ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

func Fail[T any](err error) Result[T] {
	return Result[T]{Error: err.Error(), Kind: status.KindOf(err)}
}
