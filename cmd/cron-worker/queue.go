package main

import (
	"errors"

	"github.com/snapwall/snapwall-backend/internal/transcode"
)

// rejectingQueue backs the media service in a process that only purges; uploads never reach it.
type rejectingQueue struct{}

func (rejectingQueue) Submit(transcode.Task) error {
	return errors.New("cron worker does not accept transcode tasks")
}
