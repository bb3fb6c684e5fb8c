package guard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/NeuralTrust/SMSGuard/pkg/domain/signals"
	"github.com/valyala/fastjson"
)

// ErrMalformedInput marks a request that cannot be scored at all: an
// unparseable body or a missing phone number. It is the only error the
// evaluator ever returns; every other failure degrades to missing signals.
var ErrMalformedInput = errors.New("malformed input")

// InboundRequest is the transport-free view of one OTP request: the client
// IP, the raw JSON body and whichever trust headers the edge layer supplied.
type InboundRequest struct {
	IP        string
	RequestID string
	Body      []byte
	Headers   map[string]string
}

var parserPool fastjson.ParserPool

// extract builds the request-scoped signal set. Trust headers only ever set a
// field when present; an absent header leaves the field unset so scoring can
// tell "not observed" from "observed and negative".
func (e *Evaluator) extract(req *InboundRequest) (*signals.RequestSignals, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.ParseBytes(req.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid json body: %v", ErrMalformedInput, err)
	}

	phone := string(v.GetStringBytes("phone"))
	if phone == "" {
		return nil, fmt.Errorf("%w: missing phone field", ErrMalformedInput)
	}

	s := &signals.RequestSignals{
		IP:        req.IP,
		RequestID: req.RequestID,
		Phone:     phone,
	}

	if country := req.Headers[e.cfg.HeaderViewerCountry]; country != "" {
		upper := strings.ToUpper(country)
		s.IPCountry = &upper
	}
	if req.Headers[e.cfg.HeaderAnonymizingIP] != "" {
		s.AnonymizingIP = true
	}
	if req.Headers[e.cfg.HeaderDatacenter] != "" {
		s.DatacenterIP = true
	}
	if req.Headers[e.cfg.HeaderBot] != "" {
		s.BotSignal = true
	}
	s.SessionVelocity = signals.ParseSessionVelocity(req.Headers[e.cfg.HeaderSessionVelocity])

	return s, nil
}
