package services

import "errors"

var (
	// ErrValidation marks bad caller input: empty job text, invalid weights,
	// malformed uploads. Surfaced immediately, never retried.
	ErrValidation = errors.New("validation failed")

	// ErrExtraction means the job offer could not be decomposed into the three
	// category queries. Treated as a validation-class failure.
	ErrExtraction = errors.New("category extraction failed")

	// ErrPipeline means no retrieval source produced anything at all, so no
	// ranking can be computed. Partial source failures do not raise this.
	ErrPipeline = errors.New("search pipeline failed")

	// ErrNoText means a parsed document contained no extractable text.
	ErrNoText = errors.New("no text content found in PDF")
)
