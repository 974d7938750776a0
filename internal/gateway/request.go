package gateway

import (
	"encoding/json"
	"math"
	"strconv"
)

// Verb is the CoAP method passed to coap-client.
type Verb string

// Supported verbs.
const (
	VerbGet  Verb = "get"
	VerbPut  Verb = "put"
	VerbPost Verb = "post"
)

// Credentials authenticate one DTLS session.
type Credentials struct {
	Identity string
	// Secret is the PSK or, for registration, the gateway security code.
	// WARNING: Never log this value.
	Secret string
}

// Request is a fully specified gateway call. Requests are values; nothing
// modifies one after the Encoder returns it.
type Request struct {
	Verb        Verb
	Path        string
	Credentials Credentials
	// Payload is the encoded JSON body, empty for GET.
	Payload string
}

// Properties are the optional attributes of a state change. Nil fields
// are left out of the payload.
type Properties struct {
	// State accepts "on", 1 or true for on. Any other non-nil value means off.
	State any

	// TransitionTime is passed through unchanged (tenths of a second).
	TransitionTime *int

	// Color is a preset name or 6-digit hex string. Devices only; values
	// that are neither are dropped without error.
	Color *string

	// Brightness is passed through unchanged (0-254).
	Brightness *int
}

// Encoder builds Requests. It holds credentials only and is safe to share.
type Encoder struct {
	session   Credentials
	bootstrap Credentials
}

// NewEncoder returns an Encoder that signs normal requests with session
// and registration requests with bootstrap.
func NewEncoder(session, bootstrap Credentials) *Encoder {
	return &Encoder{session: session, bootstrap: bootstrap}
}

// WithSession returns a copy of the encoder using new session credentials.
func (e *Encoder) WithSession(session Credentials) *Encoder {
	return &Encoder{session: session, bootstrap: e.bootstrap}
}

// Session returns the credentials used for non-registration requests.
func (e *Encoder) Session() Credentials {
	return e.session
}

// Get builds a GET for one resource, or for the id list when id is nil.
func (e *Encoder) Get(kind Kind, id *int) Request {
	path := kind.Endpoint()
	if id != nil {
		path += "/" + strconv.Itoa(*id)
	}
	return Request{
		Verb:        VerbGet,
		Path:        path,
		Credentials: e.session,
	}
}

// Put builds a PUT carrying only the properties that are set.
func (e *Encoder) Put(kind Kind, id int, props Properties) Request {
	mod := make(map[string]any, 4)

	if props.State != nil {
		if isOn(props.State) {
			mod[ResOnOff] = 1
		} else {
			mod[ResOnOff] = 0
		}
	}
	if props.TransitionTime != nil {
		mod[ResTransitionTime] = *props.TransitionTime
	}
	if kind == KindDevice && props.Color != nil {
		if hex, ok := ResolveColour(*props.Color); ok {
			mod[ResColor] = hex
		}
	}
	if props.Brightness != nil {
		mod[ResBrightness] = *props.Brightness
	}

	// Device settings live in the light-control object instance array;
	// groups take the settings at the top level.
	var body any = mod
	if kind == KindDevice {
		body = map[string]any{ResLightControl: []any{mod}}
	}

	return Request{
		Verb:        VerbPut,
		Path:        kind.Endpoint() + "/" + strconv.Itoa(id),
		Credentials: e.session,
		Payload:     mustJSON(body),
	}
}

// Register builds the POST that asks the gateway to issue a PSK for identity.
func (e *Encoder) Register(identity string) Request {
	return Request{
		Verb:        VerbPost,
		Path:        EndpointRegister,
		Credentials: e.bootstrap,
		Payload:     mustJSON(map[string]string{ResClientIdentity: identity}),
	}
}

// isOn reports whether a state value means on: "on", numeric 1 or true.
func isOn(v any) bool {
	switch s := v.(type) {
	case string:
		return s == "on"
	case bool:
		return s
	case json.Number:
		f, err := s.Float64()
		return err == nil && f == 1
	}
	f, ok := toFloat(v)
	return ok && f == 1
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, !math.IsNaN(n)
	}
	return 0, false
}

// mustJSON encodes maps of strings and numbers, which cannot fail.
func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic("gateway: encoding payload: " + err.Error())
	}
	return string(b)
}
