package services

import "errors"

// Dashboard service errors. Their messages map to 404 responses.
var (
	ErrUnknownStrategy = errors.New("strategy not found")
	ErrUnknownAnalysis = errors.New("analysis not found")
)
