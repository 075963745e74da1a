package pdu

import (
	"context"
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"
)

// Target is everything needed to open one SNMPv1 session.
type Target struct {
	Address
	Community string
	Timeout   time.Duration
	Retries   int
}

// Session is a single-use SNMP session. *gosnmp.GoSNMP provides Get and Set.
type Session interface {
	Get(oids []string) (*gosnmp.SnmpPacket, error)
	Set(pdus []gosnmp.SnmpPDU) (*gosnmp.SnmpPacket, error)
	Close() error
}

// Dialer opens a Session to a target. The context bounds the lifetime of
// the session's requests.
type Dialer func(ctx context.Context, target Target) (Session, error)

type snmpSession struct {
	*gosnmp.GoSNMP
}

func (s snmpSession) Close() error {
	if s.Conn == nil {
		return nil
	}
	return s.Conn.Close()
}

// SNMPDialer returns a Dialer backed by gosnmp over UDP. A non-nil logger
// receives gosnmp's packet trace.
func SNMPDialer(logger gosnmp.LoggerInterface) Dialer {
	return func(ctx context.Context, target Target) (Session, error) {
		g := &gosnmp.GoSNMP{
			Target:    target.Host,
			Port:      target.Port,
			Transport: "udp",
			Community: target.Community,
			Version:   gosnmp.Version1,
			Timeout:   target.Timeout,
			Retries:   target.Retries,
			Context:   ctx,
			MaxOids:   gosnmp.MaxOids,
		}
		if logger != nil {
			g.Logger = gosnmp.NewLogger(logger)
		}
		if err := g.Connect(); err != nil {
			return nil, fmt.Errorf("failed to open session to %s: %w", target.Address, err)
		}
		return snmpSession{g}, nil
	}
}
