package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrEmptyCatalog is returned when a catalog contains no usable products
	ErrEmptyCatalog = errors.New("catalog contains no valid products")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrVisionAPIFailure is returned when the visual similarity provider fails
	ErrVisionAPIFailure = errors.New("visual similarity request failed")

	// ErrReRankAPIFailure is returned when the re-ranking provider fails
	ErrReRankAPIFailure = errors.New("re-ranking request failed")

	// ErrInvalidVerdict is returned when the re-ranking provider answers
	// with an index outside the shortlist
	ErrInvalidVerdict = errors.New("re-ranker returned out-of-range match index")
)
