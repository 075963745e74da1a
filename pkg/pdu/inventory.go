package pdu

import (
	"fmt"

	"github.com/Cray-HPE/hms-xname/xnames"
)

type Outlet struct {
	Index      OutletIndex `json:"index" yaml:"index"`
	ID         string      `json:"id,omitempty" yaml:"id,omitempty"` // e.g. "x3000m0p0v3"
	PowerState string      `json:"power_state" yaml:"power_state"`   // "on", "off" or "unknown"
	Error      string      `json:"error,omitempty" yaml:"error,omitempty"`
}

type Inventory struct {
	Host    string   `json:"host" yaml:"host"`
	Port    uint16   `json:"port" yaml:"port"`
	XName   string   `json:"xname,omitempty" yaml:"xname,omitempty"`
	Outlets []Outlet `json:"outlets" yaml:"outlets"`
}

// NewInventory collects batch results for one device. When xname names a
// CabinetPDU, each outlet is given its CabinetPDUPowerConnector xname.
func NewInventory(addr Address, xname string, results []OutletResult) (*Inventory, error) {
	var parent *xnames.CabinetPDU
	if xname != "" {
		parent = xnames.FromStringToStruct[xnames.CabinetPDU](xname)
		if parent == nil {
			return nil, fmt.Errorf("%q is not a CabinetPDU xname (e.g. x3000m0p0)", xname)
		}
	}

	inventory := &Inventory{
		Host:    addr.Host,
		Port:    addr.Port,
		XName:   xname,
		Outlets: make([]Outlet, 0, len(results)),
	}
	for _, r := range results {
		outlet := Outlet{
			Index:      r.Outlet,
			PowerState: r.Status.String(),
		}
		if r.Err != nil {
			outlet.PowerState = StatusUnknown.String()
			outlet.Error = r.Err.Error()
		}
		if parent != nil {
			outlet.ID = parent.CabinetPDUPowerConnector(int(r.Outlet)).String()
		}
		inventory.Outlets = append(inventory.Outlets, outlet)
	}
	return inventory, nil
}

// Failed returns the outlets whose operation did not succeed.
func (inv *Inventory) Failed() []Outlet {
	var failed []Outlet
	for _, o := range inv.Outlets {
		if o.Error != "" {
			failed = append(failed, o)
		}
	}
	return failed
}
