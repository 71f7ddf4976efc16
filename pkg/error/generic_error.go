package error

// GenericError is implemented by all application errors so the REST
// recovery middleware can map them to a response envelope.
type GenericError interface {
	Error() string
	ErrCode() string
	StatusCode() int
}
