package pdu

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutletList(t *testing.T) {
	tests := []struct {
		list string
		want []OutletIndex
	}{
		{"1", []OutletIndex{1}},
		{"3,1,2", []OutletIndex{1, 2, 3}},
		{"2-4", []OutletIndex{2, 3, 4}},
		{"4-2", []OutletIndex{2, 3, 4}},
		{"1, 3-5, 4, 8", []OutletIndex{1, 3, 4, 5, 8}},
		{"7,7,7", []OutletIndex{7}},
		{"127-128", []OutletIndex{127, 128}},
	}
	for _, tt := range tests {
		got, err := ParseOutletList(tt.list)
		require.NoError(t, err, tt.list)
		assert.Equal(t, tt.want, got, tt.list)
	}

	for _, bad := range []string{"", "0", "a", "1-b", "-3", ",", "129", "1-50000000", "50000000-1"} {
		_, err := ParseOutletList(bad)
		assert.ErrorIs(t, err, ErrInvalidOutlet, bad)
	}
}

func TestRunBatchKeepsOrder(t *testing.T) {
	outlets := []OutletIndex{1, 2, 3, 4, 5, 6, 7, 8}
	var running, peak int32

	results := RunBatch(context.Background(), 3, outlets, func(ctx context.Context, o OutletIndex) OutletResult {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(time.Duration(9-o) * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return OutletResult{Outlet: o, Status: StatusOn}
	})

	require.Len(t, results, len(outlets))
	for i, r := range results {
		assert.Equal(t, outlets[i], r.Outlet)
	}
	assert.LessOrEqual(t, peak, int32(3))
}

func TestRunBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := RunBatch(ctx, 2, []OutletIndex{1, 2}, func(ctx context.Context, o OutletIndex) OutletResult {
		t.Errorf("outlet %d should not run", o)
		return OutletResult{}
	})
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
	assert.Empty(t, RunBatch(context.Background(), 4, nil, nil))
}

func TestQueryOutletsOneRequestEach(t *testing.T) {
	agent := &mockAgent{
		get: func(oid string) (*gosnmp.SnmpPacket, error) {
			if oid == StatusOID(2) {
				return &gosnmp.SnmpPacket{Error: gosnmp.NoSuchName, ErrorIndex: 1}, nil
			}
			return integerReply(oid, 1), nil
		},
	}
	c := NewController(DefaultConfig(), WithDialer(agent.dial))

	results := c.QueryOutlets(context.Background(), testAddress(), []OutletIndex{1, 2, 3}, 2)
	require.Len(t, results, 3)
	assert.Equal(t, StatusOn, results[0].Status)
	assert.True(t, IsRemoteProtocolError(results[1].Err))
	assert.Equal(t, StatusOn, results[2].Status)

	reqs := agent.Requests()
	require.Len(t, reqs, 3)
	for _, r := range reqs {
		assert.Len(t, r.OIDs, 1)
	}
}

func TestSetOutlets(t *testing.T) {
	agent := statusAgent(0)
	c := NewController(DefaultConfig(), WithDialer(agent.dial))

	results := c.SetOutlets(context.Background(), testAddress(), []OutletIndex{1, 2}, false, 4)
	for _, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, StatusOff, r.Status)
	}
	assert.Len(t, agent.Requests(), 2)

	results = c.CycleOutlets(context.Background(), testAddress(), []OutletIndex{3}, time.Millisecond, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, StatusOn, results[0].Status)
	assert.Len(t, agent.Requests(), 4)
}

func TestNewInventory(t *testing.T) {
	results := []OutletResult{
		{Outlet: 1, Status: StatusOn},
		{Outlet: 2, Status: StatusOff},
		{Outlet: 3, Err: errors.New("boom")},
	}

	inv, err := NewInventory(testAddress(), "", results)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", inv.Host)
	assert.Equal(t, "on", inv.Outlets[0].PowerState)
	assert.Equal(t, "off", inv.Outlets[1].PowerState)
	assert.Equal(t, "unknown", inv.Outlets[2].PowerState)
	assert.Equal(t, "boom", inv.Outlets[2].Error)
	assert.Empty(t, inv.Outlets[0].ID)
	assert.Len(t, inv.Failed(), 1)

	inv, err = NewInventory(testAddress(), "x3000m0p1", results)
	require.NoError(t, err)
	assert.Equal(t, "x3000m0p1v1", inv.Outlets[0].ID)
	assert.Equal(t, "x3000m0p1v3", inv.Outlets[2].ID)

	_, err = NewInventory(testAddress(), "x3000c0s0b0n0", results)
	assert.Error(t, err)
	_, err = NewInventory(testAddress(), "x3000m0p1v2", results)
	assert.Error(t, err)
}
