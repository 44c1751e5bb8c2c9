package service

import "errors"

// Sentinel errors returned by Run.
var (
	ErrNoFetcher   = errors.New("no roster fetcher configured")
	ErrNoSubmitter = errors.New("no submitter configured")
)
