package error

import "net/http"

// ConflictError covers mutations rejected because the record already left
// the state the caller assumed (e.g. editing a post that started publishing).
type ConflictError string

func (err ConflictError) Error() string {
	return string(err)
}

func (err ConflictError) ErrCode() string {
	return "CONFLICT_ERROR"
}

func (err ConflictError) StatusCode() int {
	return http.StatusConflict
}
