package browser

import "errors"

var (
	ErrElementNotFound   = errors.New("element not found")
	ErrAttributeNotFound = errors.New("attribute not found")

	errNotOpened = errors.New("session has no open page")
)
