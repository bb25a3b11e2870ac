package eso

import "errors"

// Sentinel errors for the archive client.
var (
	ErrInvalidCalibMode = errors.New(`eso: calibration mode must be "raw" or "processed"`)
	ErrCalSelector      = errors.New("eso: unexpected calselector response")
	ErrNoFilename       = errors.New("eso: response carries no filename")
	ErrDateFilterClash  = errors.New(`eso: a "date_obs" filter cannot be combined with start/end time bounds`)
)
