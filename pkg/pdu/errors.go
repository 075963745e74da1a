package pdu

import (
	"errors"
	"fmt"
)

// ErrInvalidOutlet is returned for outlet indices that are rejected before
// anything is sent to the device.
var ErrInvalidOutlet = errors.New("invalid outlet")

// RemoteProtocolError reports a failed exchange with the device: either the
// SNMP stack gave up (timeout, transport failure, undecodable reply) or the
// agent answered with an error status.
type RemoteProtocolError struct {
	Op     string
	OID    string
	Target string
	Reason string
	Err    error
}

func (e *RemoteProtocolError) Error() string {
	return fmt.Sprintf("snmpv1 %s %s on %s failed: %s", e.Op, e.OID, e.Target, e.Reason)
}

func (e *RemoteProtocolError) Unwrap() error {
	return e.Err
}

// IsRemoteProtocolError reports whether err is or wraps a RemoteProtocolError.
func IsRemoteProtocolError(err error) bool {
	var rpe *RemoteProtocolError
	return errors.As(err, &rpe)
}
