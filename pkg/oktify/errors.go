package oktify

import "github.com/hejijunhao/oktify/internal/model"

// Error kinds returned by Rows and Collect. Match with errors.Is.
var (
	ErrAuthentication  = model.ErrAuthentication
	ErrMalformedQuery  = model.ErrMalformedQuery
	ErrRateLimited     = model.ErrRateLimited
	ErrTransport       = model.ErrTransport
	ErrRetryExhausted  = model.ErrRetryExhausted
	ErrMalformedWindow = model.ErrMalformedWindow
)

// RetryExhaustedError reports the window and last consumed page of an
// aborted audit. Match with errors.As.
type RetryExhaustedError = model.RetryExhaustedError
