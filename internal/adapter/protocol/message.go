package protocol

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrFieldNotFound = errors.New("field not found")
	ErrMalformed     = errors.New("malformed payload")
	ErrUnrecognized  = errors.New("unrecognized frame")
)

const (
	policyPrefix   = "<cross-domain-policy"
	systemPrefix   = "<msg"
	protocolPrefix = "`xt`"

	// Delimiter separates protocol frame segments.
	Delimiter = "`"
)

type Kind int

const (
	KindUnrecognized Kind = iota
	KindPolicy
	KindSystem
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindPolicy:
		return "policy"
	case KindSystem:
		return "system"
	case KindProtocol:
		return "protocol"
	default:
		return "unrecognized"
	}
}

// Message is one parsed inbound frame. Which fields are set depends on Kind:
// system messages carry Action and Cmd, protocol messages carry Action and
// Code plus the raw segments for action specific decoding.
type Message struct {
	Kind   Kind
	Action string
	Code   string
	Cmd    string
	Raw    string

	segments []string
	fields   map[string]string
	userID   string
}

// Parse never fails. Frames without a known prefix, or system envelopes that
// are not well-formed XML, come back as KindUnrecognized.
func Parse(frame string) Message {
	m := Message{Raw: frame}
	switch {
	case strings.HasPrefix(frame, policyPrefix):
		m.Kind = KindPolicy
	case strings.HasPrefix(frame, protocolPrefix):
		m.segments = strings.Split(frame, Delimiter)
		if len(m.segments) < 4 {
			return Message{Raw: frame}
		}
		m.Kind = KindProtocol
		m.Action = m.segments[2]
		m.Code = m.segments[3]
	case strings.HasPrefix(frame, systemPrefix):
		env, err := parseEnvelope(frame)
		if err != nil {
			return Message{Raw: frame}
		}
		m.Kind = KindSystem
		m.Action = env.action
		m.fields = env.vars
		m.userID = env.userID
		m.Cmd = env.vars["_cmd"]
	}
	return m
}

// Segment returns the i-th delimiter-separated segment of a protocol frame.
func (m Message) Segment(i int) (string, bool) {
	if i < 0 || i >= len(m.segments) {
		return "", false
	}
	return m.segments[i], true
}

// Segments returns a copy of every segment of a protocol frame.
func (m Message) Segments() []string {
	return append([]string(nil), m.segments...)
}

// Field returns a named value of a system message. An empty value is returned
// with a nil error; a missing name yields ErrFieldNotFound.
func (m Message) Field(name string) (string, error) {
	v, ok := m.fields[name]
	if !ok {
		return "", fmt.Errorf("%s: %w", name, ErrFieldNotFound)
	}
	return v, nil
}

// UserID is the id attribute of the user element carried by userGone.
func (m Message) UserID() (string, error) {
	if m.userID == "" {
		return "", fmt.Errorf("user id: %w", ErrFieldNotFound)
	}
	return m.userID, nil
}

type envelope struct {
	action string
	vars   map[string]string
	userID string
}

// parseEnvelope walks the system XML. The dataObj payload is wrapped in CDATA
// on the wire, so the wrapper is removed before decoding.
func parseEnvelope(frame string) (envelope, error) {
	clean := strings.ReplaceAll(frame, "<![CDATA[<dataObj>", "<dataObj>")
	clean = strings.ReplaceAll(clean, "</dataObj>]]>", "</dataObj>")

	env := envelope{vars: map[string]string{}}
	dec := xml.NewDecoder(strings.NewReader(clean))
	dec.Strict = false

	var (
		varName string
		inVar   bool
		text    strings.Builder
		sawBody bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "body":
				sawBody = true
				env.action = attr(t, "action")
			case "var":
				varName = attr(t, "n")
				inVar = true
				text.Reset()
			case "user":
				if id := attr(t, "id"); id != "" {
					env.userID = id
				}
			}
		case xml.CharData:
			if inVar {
				text.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local == "var" && inVar {
				env.vars[varName] = text.String()
				inVar = false
			}
		}
	}
	if !sawBody {
		return envelope{}, fmt.Errorf("%w: no body element", ErrMalformed)
	}
	return env, nil
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
