package daemon

// OutletState is the document returned for an outlet.
type OutletState struct {
	Host   string `json:"host"`
	Port   uint16 `json:"port"`
	Outlet int    `json:"outlet"`
	State  string `json:"state"`
	On     bool   `json:"on"`
}

// PowerRequest is the body of PUT /pdus/{host}/outlets/{outlet}.
type PowerRequest struct {
	On *bool `json:"on"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
