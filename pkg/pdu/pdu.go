// Package pdu controls the outlets of CyberPower ePDUs over SNMPv1.
//
// Every operation is a single request/response exchange: a GET against the
// outlet status table or a SET against the outlet control table. Sessions are
// opened per call and nothing is retained between calls, so a Controller can
// be shared freely between goroutines.
package pdu

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gosnmp/gosnmp"
)

const (
	// DefaultPort is the SNMP agent port of the ePDU.
	DefaultPort uint16 = 161

	// StatusOIDPrefix is ePDUOutletStatusOutletState from the CyberPower MIB.
	StatusOIDPrefix = "1.3.6.1.4.1.3808.1.1.3.3.5.1.1.4"
	// ControlOIDPrefix is ePDUOutletControlOutletCommand from the CyberPower MIB.
	ControlOIDPrefix = "1.3.6.1.4.1.3808.1.1.3.3.3.1.1.4"

	DefaultReadCommunity  = "public"
	DefaultWriteCommunity = "private"

	DefaultReadTimeout  = 1 * time.Second
	DefaultWriteTimeout = 2 * time.Second
	DefaultRetries      = 3
)

// OutletIndex is the row of an outlet in the device's outlet tables.
type OutletIndex int

func (o OutletIndex) String() string {
	return strconv.Itoa(int(o))
}

// OutletCommand is the integer written to the control table. The device
// reserves further values (delayed on/off, reboot) that are not used here.
type OutletCommand int

const (
	CommandOn  OutletCommand = 1
	CommandOff OutletCommand = 2
)

// CommandFor maps a desired power state to its control value.
func CommandFor(on bool) OutletCommand {
	if on {
		return CommandOn
	}
	return CommandOff
}

// OutletStatus is the state reported by the status table.
type OutletStatus int

const (
	StatusUnknown OutletStatus = 0
	StatusOn      OutletStatus = 1
	StatusOff     OutletStatus = 2
)

// ParseOutletStatus maps a raw status value. Anything other than 1 or 2 is
// StatusUnknown.
func ParseOutletStatus(v int64) OutletStatus {
	switch v {
	case int64(StatusOn):
		return StatusOn
	case int64(StatusOff):
		return StatusOff
	default:
		return StatusUnknown
	}
}

func (s OutletStatus) IsOn() bool {
	return s == StatusOn
}

func (s OutletStatus) String() string {
	switch s {
	case StatusOn:
		return "on"
	case StatusOff:
		return "off"
	default:
		return "unknown"
	}
}

// StatusOID returns the status table OID of an outlet.
func StatusOID(outlet OutletIndex) string {
	return fmt.Sprintf("%s.%d", StatusOIDPrefix, outlet)
}

// ControlOID returns the control table OID of an outlet.
func ControlOID(outlet OutletIndex) string {
	return fmt.Sprintf("%s.%d", ControlOIDPrefix, outlet)
}

// Address locates the SNMP agent of one device.
type Address struct {
	Host string `json:"host" yaml:"host"`
	Port uint16 `json:"port" yaml:"port"`
}

// NewAddress returns an Address for host, using DefaultPort when port is 0.
func NewAddress(host string, port int) (Address, error) {
	if host == "" {
		return Address{}, fmt.Errorf("no host provided")
	}
	if port < 0 || port > 65535 {
		return Address{}, fmt.Errorf("invalid port %d", port)
	}
	if port == 0 {
		port = int(DefaultPort)
	}
	return Address{Host: host, Port: uint16(port)}, nil
}

func (a Address) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port)))
}

// Communities are the SNMPv1 community strings of a device. Read is used for
// status queries, Write for control commands.
type Communities struct {
	Read  string `json:"read" yaml:"read"`
	Write string `json:"write" yaml:"write"`
}

// Config is the process-wide configuration of a Controller.
type Config struct {
	Communities  Communities
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Retries      int

	// WireLogger receives gosnmp's packet trace when set.
	WireLogger gosnmp.LoggerInterface
}

// DefaultConfig returns the settings the ePDU ships with.
func DefaultConfig() Config {
	return Config{
		Communities: Communities{
			Read:  DefaultReadCommunity,
			Write: DefaultWriteCommunity,
		},
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
		Retries:      DefaultRetries,
	}
}
