package pdu

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/rs/zerolog/log"
)

type Option func(*Controller)

// WithDialer replaces the gosnmp transport, mostly for tests.
func WithDialer(dial Dialer) Option {
	return func(c *Controller) {
		c.dial = dial
	}
}

// Controller issues outlet status queries and control commands. It holds no
// mutable state and is safe for concurrent use.
type Controller struct {
	config Config
	dial   Dialer
}

func NewController(config Config, opts ...Option) *Controller {
	c := &Controller{config: config}
	for _, opt := range opts {
		opt(c)
	}
	if c.dial == nil {
		c.dial = SNMPDialer(config.WireLogger)
	}
	return c
}

func (c *Controller) Config() Config {
	return c.config
}

// WithCommunities returns a copy of the controller using other community
// strings, e.g. ones loaded for a specific device.
func (c *Controller) WithCommunities(communities Communities) *Controller {
	cp := *c
	cp.config.Communities = communities
	return &cp
}

// QueryState reads the status of one outlet.
//
// A reply other than on (1) or off (2) is reported as StatusOff.
func (c *Controller) QueryState(ctx context.Context, addr Address, outlet OutletIndex) (OutletStatus, error) {
	if outlet < 0 {
		return StatusUnknown, fmt.Errorf("%w: %d", ErrInvalidOutlet, outlet)
	}

	oid := StatusOID(outlet)
	target := Target{
		Address:   addr,
		Community: c.config.Communities.Read,
		Timeout:   c.config.ReadTimeout,
		Retries:   c.config.Retries,
	}
	packet, err := c.exchange(ctx, "get", target, oid, func(s Session) (*gosnmp.SnmpPacket, error) {
		return s.Get([]string{oid})
	})
	if err != nil {
		return StatusUnknown, err
	}

	value, err := integerValue(packet)
	if err != nil {
		return StatusUnknown, &RemoteProtocolError{Op: "get", OID: oid, Target: addr.String(), Reason: err.Error()}
	}

	status := ParseOutletStatus(value)
	if status == StatusUnknown {
		log.Warn().
			Str("target", addr.String()).
			Stringer("outlet", outlet).
			Int64("value", value).
			Msg("outlet reported an unrecognized state; treating it as off")
		status = StatusOff
	}
	return status, nil
}

// SetState switches one outlet on or off. A nil error only means the device
// accepted the command; query the outlet to confirm the new state.
func (c *Controller) SetState(ctx context.Context, addr Address, outlet OutletIndex, on bool) error {
	if outlet < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidOutlet, outlet)
	}

	oid := ControlOID(outlet)
	target := Target{
		Address:   addr,
		Community: c.config.Communities.Write,
		Timeout:   c.config.WriteTimeout,
		Retries:   c.config.Retries,
	}
	pdu := gosnmp.SnmpPDU{
		Name:  oid,
		Type:  gosnmp.Integer,
		Value: int(CommandFor(on)),
	}
	_, err := c.exchange(ctx, "set", target, oid, func(s Session) (*gosnmp.SnmpPacket, error) {
		return s.Set([]gosnmp.SnmpPDU{pdu})
	})
	return err
}

// Cycle turns an outlet off, waits for delay and turns it back on.
func (c *Controller) Cycle(ctx context.Context, addr Address, outlet OutletIndex, delay time.Duration) error {
	if err := c.SetState(ctx, addr, outlet, false); err != nil {
		return fmt.Errorf("failed to switch outlet %d off: %w", outlet, err)
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("outlet %d left off: %w", outlet, ctx.Err())
	case <-timer.C:
	}

	if err := c.SetState(ctx, addr, outlet, true); err != nil {
		return fmt.Errorf("failed to switch outlet %d on: %w", outlet, err)
	}
	return nil
}

// PowerGet reports whether an outlet is on. Off and unrecognized states are
// both false.
func (c *Controller) PowerGet(host string, port int, index int) (bool, error) {
	addr, err := NewAddress(host, port)
	if err != nil {
		return false, err
	}
	status, err := c.QueryState(context.Background(), addr, OutletIndex(index))
	if err != nil {
		return false, err
	}
	return status.IsOn(), nil
}

// PowerSet switches an outlet on (true) or off (false).
func (c *Controller) PowerSet(host string, port int, index int, on bool) error {
	addr, err := NewAddress(host, port)
	if err != nil {
		return err
	}
	return c.SetState(context.Background(), addr, OutletIndex(index), on)
}

// PowerGet queries an outlet with DefaultConfig.
func PowerGet(host string, port int, index int) (bool, error) {
	return NewController(DefaultConfig()).PowerGet(host, port, index)
}

// PowerSet switches an outlet with DefaultConfig.
func PowerSet(host string, port int, index int, on bool) error {
	return NewController(DefaultConfig()).PowerSet(host, port, index, on)
}

func (c *Controller) exchange(ctx context.Context, op string, target Target, oid string, request func(Session) (*gosnmp.SnmpPacket, error)) (*gosnmp.SnmpPacket, error) {
	fail := func(reason string, err error) error {
		return &RemoteProtocolError{Op: op, OID: oid, Target: target.Address.String(), Reason: reason, Err: err}
	}

	log.Debug().
		Str("op", op).
		Str("oid", oid).
		Str("target", target.Address.String()).
		Dur("timeout", target.Timeout).
		Int("retries", target.Retries).
		Msg("sending snmp request")

	session, err := c.dial(ctx, target)
	if err != nil {
		return nil, fail(err.Error(), err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn().Err(err).Str("target", target.Address.String()).Msg("failed to close snmp session")
		}
	}()

	packet, err := request(session)
	if err != nil {
		return nil, fail(err.Error(), err)
	}
	if packet == nil {
		return nil, fail("no response received", nil)
	}
	if packet.Error != gosnmp.NoError {
		return nil, fail(fmt.Sprintf("%v (index %d)", packet.Error, packet.ErrorIndex), nil)
	}
	return packet, nil
}

func integerValue(packet *gosnmp.SnmpPacket) (int64, error) {
	if len(packet.Variables) == 0 {
		return 0, errors.New("response carried no variables")
	}
	v := packet.Variables[0]
	if v.Type != gosnmp.Integer {
		return 0, fmt.Errorf("unexpected value type %v", v.Type)
	}
	return gosnmp.ToBigInt(v.Value).Int64(), nil
}
