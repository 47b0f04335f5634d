package errors

import (
	"errors"
	"fmt"
)

type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	RemoteStatus   int    `json:"remote_status,omitempty"`
	RemoteEndpoint string `json:"remote_endpoint,omitempty"`
}

// remoteFailure is implemented by transport errors that carry the backend's HTTP status.
type remoteFailure interface {
	StatusCode() int
	Endpoint() string
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var remote remoteFailure
	if errors.As(err, &remote) {
		d.RemoteStatus = remote.StatusCode()
		d.RemoteEndpoint = remote.Endpoint()
	}

	return d
}
