package models

import "errors"

const (
	AgentVersion = "2.0.0"
	DefaultPort  = "3033"
)

// Client-side failures. Handlers map these to HTTP 400; everything else
// coming out of the dispatch path is a server-side execution error.
var (
	ErrInvalidEncoding = errors.New("invalid payload encoding")
	ErrMissingPayload  = errors.New("no print payload found in request body")
	ErrMissingTarget   = errors.New("no printer or share name found in request body")
)

// DeviceInfo identifies the kiosk hardware the agent runs on.
type DeviceInfo struct {
	MAC      string   `json:"mac"`
	MACs     []string `json:"mac_list"`
	IP       string   `json:"local_ip"`
	Hostname string   `json:"hostname"`
	OS       string   `json:"os_platform"`
	Version  string   `json:"agent_version"`
}

// PrinterInfo is one entry from printer enumeration. Only Name is
// guaranteed; DeviceID and PaperSizes depend on the source that answered.
type PrinterInfo struct {
	Name       string   `json:"name"`
	DeviceID   string   `json:"deviceId,omitempty"`
	PaperSizes []string `json:"paperSizes,omitempty"`
}

// DispatchEvent is the record of one completed print operation, kept in the
// recent-jobs ring and pushed to websocket subscribers.
type DispatchEvent struct {
	RequestID string `json:"requestId"`
	Operation string `json:"operation"` // raw, label, pdf, html
	Target    string `json:"target"`
	Bytes     int    `json:"bytes"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Elapsed   string `json:"elapsed"`
	CreatedAt string `json:"createdAt"`
}

const (
	OpRaw   = "raw"
	OpLabel = "label"
	OpPDF   = "pdf"
	OpHTML  = "html"
)
