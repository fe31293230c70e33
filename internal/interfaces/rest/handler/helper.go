package handler

// socketError error frame sent over websockets
type socketError struct {
	Type   string `json:"type"`
	Code   int    `json:"code"`
	Detail string `json:"detail"`
}

func newSocketError(err error) *socketError {
	return &socketError{Type: "error", Code: StatusOf(err), Detail: err.Error()}
}
