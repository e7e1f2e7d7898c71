package domain

import "errors"

var (
	// ErrTransport marks request build, execution, status or body decoding failures.
	ErrTransport = errors.New("transport error")
	// ErrParse marks a row or page element that failed structural or type validation.
	ErrParse = errors.New("parse error")
	// ErrElementMissing marks an expected page element that is absent.
	ErrElementMissing = errors.New("element missing")
)
