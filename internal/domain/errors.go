package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrServerOffline indicates the metadata-computation backend is unreachable
	ErrServerOffline = errors.New("metadata backend is unreachable")

	// ErrFaceNotFound indicates the requested face identity does not exist
	ErrFaceNotFound = errors.New("face not found")

	// ErrImportInProgress indicates a bulk import is already running
	ErrImportInProgress = errors.New("bulk import already in progress")

	// ErrPoolClosed indicates the decode pool was torn down before the job ran
	ErrPoolClosed = errors.New("decode pool closed")

	// ErrNoFaces indicates the input directory contains no face images
	ErrNoFaces = errors.New("no face images found")
)
