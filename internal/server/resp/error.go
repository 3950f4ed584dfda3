package resp

const (
	ErrBadRequest       = "Invalid request parameters"
	ErrInvalidJSON      = "Invalid JSON format"
	ErrResourceNotFound = "Resource not found"
	ErrInternalServer   = "An unexpected error occurred"
	ErrDatabase         = "Database operation failed"
	ErrUnauthorized     = "Authentication failed"
	ErrQuotaExceeded    = "Group token quota exceeded"
)
