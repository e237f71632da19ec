package data

import "errors"

// ErrProfileNotFound is returned in APIs if a profile is not cached
var ErrProfileNotFound = errors.New("profile not found")

// ErrJobNotFound is returned in APIs if a job ID is unknown
var ErrJobNotFound = errors.New("job not found")
