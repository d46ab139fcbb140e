package queueboard

import "errors"

var (
	ErrInvalidQueueName = errors.New("queueboard: queue name is required")
	ErrAlreadyObserved  = errors.New("queueboard: queue already observed")
	ErrNotObserved      = errors.New("queueboard: queue not observed")
)
