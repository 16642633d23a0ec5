package domain

import "errors"

var (
	ErrPostNotFound    = errors.New("scheduled post not found")
	ErrJobNotFound     = errors.New("recurring job not found")
	ErrPostNotEditable = errors.New("post already left the scheduled state")
	ErrPostNotClaimed  = errors.New("post was claimed by another executor")
)
