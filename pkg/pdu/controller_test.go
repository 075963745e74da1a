package pdu

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Target Target
	Op     string
	OIDs   []string
	PDUs   []gosnmp.SnmpPDU
}

// mockAgent stands in for the SNMP transport. Replies are produced by the
// get/set funcs; every request is recorded.
type mockAgent struct {
	mu       sync.Mutex
	requests []recordedRequest
	dialErr  error
	get      func(oid string) (*gosnmp.SnmpPacket, error)
	set      func(pdu gosnmp.SnmpPDU) (*gosnmp.SnmpPacket, error)
	closed   int
}

type mockSession struct {
	agent  *mockAgent
	target Target
}

func (a *mockAgent) dial(ctx context.Context, target Target) (Session, error) {
	if a.dialErr != nil {
		return nil, a.dialErr
	}
	return &mockSession{agent: a, target: target}, nil
}

func (a *mockAgent) record(r recordedRequest) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, r)
}

func (a *mockAgent) Requests() []recordedRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]recordedRequest(nil), a.requests...)
}

func (s *mockSession) Get(oids []string) (*gosnmp.SnmpPacket, error) {
	s.agent.record(recordedRequest{Target: s.target, Op: "get", OIDs: oids})
	return s.agent.get(oids[0])
}

func (s *mockSession) Set(pdus []gosnmp.SnmpPDU) (*gosnmp.SnmpPacket, error) {
	s.agent.record(recordedRequest{Target: s.target, Op: "set", PDUs: pdus})
	return s.agent.set(pdus[0])
}

func (s *mockSession) Close() error {
	s.agent.mu.Lock()
	defer s.agent.mu.Unlock()
	s.agent.closed++
	return nil
}

func integerReply(oid string, value int) *gosnmp.SnmpPacket {
	return &gosnmp.SnmpPacket{
		Version: gosnmp.Version1,
		PDUType: gosnmp.GetResponse,
		Variables: []gosnmp.SnmpPDU{
			{Name: "." + oid, Type: gosnmp.Integer, Value: value},
		},
	}
}

func statusAgent(value int) *mockAgent {
	return &mockAgent{
		get: func(oid string) (*gosnmp.SnmpPacket, error) {
			return integerReply(oid, value), nil
		},
		set: func(pdu gosnmp.SnmpPDU) (*gosnmp.SnmpPacket, error) {
			return integerReply(pdu.Name, pdu.Value.(int)), nil
		},
	}
}

func testAddress() Address {
	return Address{Host: "10.0.0.5", Port: DefaultPort}
}

func TestOIDConstruction(t *testing.T) {
	for _, i := range []OutletIndex{1, 2, 8, 24, 123} {
		assert.Equal(t, "1.3.6.1.4.1.3808.1.1.3.3.5.1.1.4."+i.String(), StatusOID(i))
		assert.Equal(t, "1.3.6.1.4.1.3808.1.1.3.3.3.1.1.4."+i.String(), ControlOID(i))
	}
}

func TestParseOutletStatus(t *testing.T) {
	tests := []struct {
		raw  int64
		want OutletStatus
	}{
		{1, StatusOn},
		{2, StatusOff},
		{0, StatusUnknown},
		{3, StatusUnknown},
		{7, StatusUnknown},
		{-1, StatusUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseOutletStatus(tt.raw), "raw value %d", tt.raw)
	}
}

func TestQueryState(t *testing.T) {
	tests := []struct {
		name  string
		value int
		want  OutletStatus
	}{
		{"on", 1, StatusOn},
		{"off", 2, StatusOff},
		{"out of range is off", 7, StatusOff},
		{"zero is off", 0, StatusOff},
		{"negative is off", -3, StatusOff},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := statusAgent(tt.value)
			c := NewController(DefaultConfig(), WithDialer(agent.dial))

			status, err := c.QueryState(context.Background(), testAddress(), 4)
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)

			reqs := agent.Requests()
			require.Len(t, reqs, 1)
			assert.Equal(t, "get", reqs[0].Op)
			assert.Equal(t, []string{StatusOIDPrefix + ".4"}, reqs[0].OIDs)
			assert.Equal(t, 1, agent.closed)
		})
	}
}

func TestQueryStateSessionParameters(t *testing.T) {
	agent := statusAgent(1)
	c := NewController(DefaultConfig(), WithDialer(agent.dial))

	_, err := c.QueryState(context.Background(), testAddress(), 1)
	require.NoError(t, err)

	target := agent.Requests()[0].Target
	assert.Equal(t, "public", target.Community)
	assert.Equal(t, time.Second, target.Timeout)
	assert.Equal(t, 3, target.Retries)
	assert.Equal(t, testAddress(), target.Address)
}

func TestSetState(t *testing.T) {
	tests := []struct {
		on   bool
		want int
	}{
		{true, 1},
		{false, 2},
	}
	for _, tt := range tests {
		agent := statusAgent(0)
		c := NewController(DefaultConfig(), WithDialer(agent.dial))

		require.NoError(t, c.SetState(context.Background(), testAddress(), 3, tt.on))

		reqs := agent.Requests()
		require.Len(t, reqs, 1)
		req := reqs[0]
		assert.Equal(t, "set", req.Op)
		require.Len(t, req.PDUs, 1)
		assert.Equal(t, ControlOIDPrefix+".3", req.PDUs[0].Name)
		assert.Equal(t, gosnmp.Integer, req.PDUs[0].Type)
		assert.Equal(t, tt.want, req.PDUs[0].Value)

		assert.Equal(t, "private", req.Target.Community)
		assert.Equal(t, 2*time.Second, req.Target.Timeout)
		assert.Equal(t, 3, req.Target.Retries)
	}
}

func TestConfiguredCommunities(t *testing.T) {
	agent := statusAgent(1)
	cfg := DefaultConfig()
	cfg.Communities = Communities{Read: "ro-site", Write: "rw-site"}
	c := NewController(cfg, WithDialer(agent.dial))

	_, err := c.QueryState(context.Background(), testAddress(), 1)
	require.NoError(t, err)
	require.NoError(t, c.SetState(context.Background(), testAddress(), 1, true))

	derived := c.WithCommunities(Communities{Read: "ro-pdu", Write: "rw-pdu"})
	_, err = derived.QueryState(context.Background(), testAddress(), 1)
	require.NoError(t, err)

	reqs := agent.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "ro-site", reqs[0].Target.Community)
	assert.Equal(t, "rw-site", reqs[1].Target.Community)
	assert.Equal(t, "ro-pdu", reqs[2].Target.Community)
	assert.Equal(t, "ro-site", c.Config().Communities.Read)
}

func TestRemoteErrorStatus(t *testing.T) {
	agent := &mockAgent{
		get: func(oid string) (*gosnmp.SnmpPacket, error) {
			return &gosnmp.SnmpPacket{PDUType: gosnmp.GetResponse, Error: gosnmp.NoSuchName, ErrorIndex: 1}, nil
		},
		set: func(pdu gosnmp.SnmpPDU) (*gosnmp.SnmpPacket, error) {
			return &gosnmp.SnmpPacket{PDUType: gosnmp.GetResponse, Error: gosnmp.ReadOnly, ErrorIndex: 1}, nil
		},
	}
	c := NewController(DefaultConfig(), WithDialer(agent.dial))

	on, err := c.PowerGet("10.0.0.5", 161, 99)
	require.Error(t, err)
	assert.False(t, on)
	var rpe *RemoteProtocolError
	require.ErrorAs(t, err, &rpe)
	assert.Equal(t, "get", rpe.Op)
	assert.Equal(t, StatusOIDPrefix+".99", rpe.OID)
	assert.Equal(t, "10.0.0.5:161", rpe.Target)

	err = c.PowerSet("10.0.0.5", 161, 99, true)
	require.Error(t, err)
	require.ErrorAs(t, err, &rpe)
	assert.Equal(t, "set", rpe.Op)
	assert.Equal(t, ControlOIDPrefix+".99", rpe.OID)
}

func TestRemoteErrorIndication(t *testing.T) {
	timeout := errors.New("request timeout (after 3 retries)")
	agent := &mockAgent{
		get: func(oid string) (*gosnmp.SnmpPacket, error) { return nil, timeout },
		set: func(pdu gosnmp.SnmpPDU) (*gosnmp.SnmpPacket, error) { return nil, timeout },
	}
	c := NewController(DefaultConfig(), WithDialer(agent.dial))

	_, err := c.QueryState(context.Background(), testAddress(), 1)
	assert.True(t, IsRemoteProtocolError(err))
	assert.ErrorIs(t, err, timeout)
	assert.Contains(t, err.Error(), "request timeout")

	err = c.SetState(context.Background(), testAddress(), 1, false)
	assert.True(t, IsRemoteProtocolError(err))
	assert.ErrorIs(t, err, timeout)
	assert.Equal(t, 2, agent.closed)
}

func TestDialFailure(t *testing.T) {
	agent := &mockAgent{dialErr: errors.New("no route to host")}
	c := NewController(DefaultConfig(), WithDialer(agent.dial))

	_, err := c.QueryState(context.Background(), testAddress(), 1)
	assert.True(t, IsRemoteProtocolError(err))
	assert.Empty(t, agent.Requests())
}

func TestMalformedReplies(t *testing.T) {
	tests := []struct {
		name  string
		reply *gosnmp.SnmpPacket
	}{
		{"no response", nil},
		{"no variables", &gosnmp.SnmpPacket{PDUType: gosnmp.GetResponse}},
		{"not an integer", &gosnmp.SnmpPacket{
			PDUType:   gosnmp.GetResponse,
			Variables: []gosnmp.SnmpPDU{{Name: StatusOID(1), Type: gosnmp.OctetString, Value: []byte("on")}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := &mockAgent{get: func(string) (*gosnmp.SnmpPacket, error) { return tt.reply, nil }}
			c := NewController(DefaultConfig(), WithDialer(agent.dial))

			status, err := c.QueryState(context.Background(), testAddress(), 1)
			assert.True(t, IsRemoteProtocolError(err))
			assert.Equal(t, StatusUnknown, status)
		})
	}
}

func TestNegativeOutletRejectedLocally(t *testing.T) {
	agent := statusAgent(1)
	c := NewController(DefaultConfig(), WithDialer(agent.dial))

	_, err := c.QueryState(context.Background(), testAddress(), -1)
	assert.ErrorIs(t, err, ErrInvalidOutlet)
	assert.ErrorIs(t, c.SetState(context.Background(), testAddress(), -1, true), ErrInvalidOutlet)
	assert.Empty(t, agent.Requests())
}

func TestPowerSetThenGet(t *testing.T) {
	agent := statusAgent(1)
	c := NewController(DefaultConfig(), WithDialer(agent.dial))

	require.NoError(t, c.PowerSet("10.0.0.5", 161, 3, true))
	on, err := c.PowerGet("10.0.0.5", 161, 3)
	require.NoError(t, err)
	assert.True(t, on)

	reqs := agent.Requests()
	require.Len(t, reqs, 2)

	set := reqs[0]
	assert.Equal(t, "set", set.Op)
	assert.Equal(t, "1.3.6.1.4.1.3808.1.1.3.3.3.1.1.4.3", set.PDUs[0].Name)
	assert.Equal(t, 1, set.PDUs[0].Value)
	assert.Equal(t, "private", set.Target.Community)
	assert.Equal(t, Address{Host: "10.0.0.5", Port: 161}, set.Target.Address)

	get := reqs[1]
	assert.Equal(t, "get", get.Op)
	assert.Equal(t, []string{"1.3.6.1.4.1.3808.1.1.3.3.5.1.1.4.3"}, get.OIDs)
	assert.Equal(t, "public", get.Target.Community)
}

func TestPowerGetAmbiguousIsFalse(t *testing.T) {
	c := NewController(DefaultConfig(), WithDialer(statusAgent(7).dial))

	on, err := c.PowerGet("10.0.0.5", 161, 3)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestNewAddress(t *testing.T) {
	addr, err := NewAddress("pdu1", 0)
	require.NoError(t, err)
	assert.Equal(t, Address{Host: "pdu1", Port: 161}, addr)
	assert.Equal(t, "pdu1:161", addr.String())

	addr, err = NewAddress("fe80::1", 1161)
	require.NoError(t, err)
	assert.Equal(t, "[fe80::1]:1161", addr.String())

	_, err = NewAddress("", 161)
	assert.Error(t, err)
	_, err = NewAddress("pdu1", 70000)
	assert.Error(t, err)
}

func TestCycle(t *testing.T) {
	agent := statusAgent(0)
	c := NewController(DefaultConfig(), WithDialer(agent.dial))

	require.NoError(t, c.Cycle(context.Background(), testAddress(), 5, 10*time.Millisecond))

	reqs := agent.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, int(CommandOff), reqs[0].PDUs[0].Value)
	assert.Equal(t, int(CommandOn), reqs[1].PDUs[0].Value)
}

func TestCycleCancelledLeavesOutletOff(t *testing.T) {
	agent := statusAgent(0)
	c := NewController(DefaultConfig(), WithDialer(agent.dial))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := c.Cycle(ctx, testAddress(), 5, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, agent.Requests(), 1)
}
