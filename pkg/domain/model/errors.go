package model

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for domain operations
var (
	ErrNoInputFiles = goerr.New("no supported input files found")
	ErrRunNotFound  = goerr.New("report run not found")
)

// Error tags for classifying file failures
var (
	ErrTagRequiredField   = goerr.NewTag("required_field")
	ErrTagUnsupportedFile = goerr.NewTag("unsupported_file")
	ErrTagEmptyFile       = goerr.NewTag("empty_file")
	ErrTagInvalidConfig   = goerr.NewTag("invalid_config")
)
