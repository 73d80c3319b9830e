package kafkawrapper

import "errors"

var (
	ErrNotInitialized = errors.New("kafka client not initialized")
	ErrNoTopic        = errors.New("no topic given and no default topic configured")

	// ErrSkipCommit returned by a handler leaves the batch uncommitted so it is redelivered.
	ErrSkipCommit = errors.New("skip commit")
)
