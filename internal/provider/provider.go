package provider

import "context"

// Classification codes produced by the transport and interpreter. Upstream
// codes from a <respuesta> block are passed through verbatim.
const (
	CodeSuccess        = "000"
	CodeTransportError = "ERROR"
	CodeParseError     = "PARSE_ERROR"
	CodeRNDCError      = "RNDC_ERROR"
)

// Provider is the outbound RNDC delivery port.
//
// Send always returns a Result for network and HTTP outcomes. The error return
// is reserved for misuse such as an uninitialised client or an empty document.
type Provider interface {
	Send(ctx context.Context, document, targetURL string) (*Result, error)
}

// Result is the classified outcome of one RNDC call.
type Result struct {
	Success    bool
	Code       string
	Message    string
	RawXML     string
	IngresoID  string
	Documents  []map[string]string
	StatusCode int
}
