package exchange

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned when a control message is sent without a live connection.
	ErrNotConnected = errors.New("exchange: stream not connected")
	// ErrClosed is returned once the stream has been shut down.
	ErrClosed = errors.New("exchange: stream closed")
)

// ConnectionError reports that the transport could not be opened.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string { return fmt.Sprintf("connect stream: %v", e.Err) }

func (e *ConnectionError) Unwrap() error { return e.Err }

// SubscriptionError reports a failed subscribe request. The stream retries these on its own backoff.
type SubscriptionError struct {
	Instrument string
	Err        error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("subscribe %s: %v", e.Instrument, e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }

// DataError reports an inbound frame that could not be understood. The frame is dropped.
type DataError struct {
	Reason string
	Err    error
}

func (e *DataError) Error() string {
	if e.Err == nil {
		return "stream data: " + e.Reason
	}
	return fmt.Sprintf("stream data: %s: %v", e.Reason, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }
