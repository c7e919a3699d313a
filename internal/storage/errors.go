package storage

// parseError reports malformed markdown or export input.
type parseError struct {
	msg string
}

func (e *parseError) Error() string {
	return e.msg
}
