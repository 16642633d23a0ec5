package error

import "net/http"

// RemoteSyncError marks failures talking to the remote scheduling authority.
// These are logged and retried on the next heartbeat, never surfaced to the
// caller that triggered a push.
type RemoteSyncError string

func (err RemoteSyncError) Error() string {
	return string(err)
}

func (err RemoteSyncError) ErrCode() string {
	return "REMOTE_SYNC_ERROR"
}

func (err RemoteSyncError) StatusCode() int {
	return http.StatusBadGateway
}
