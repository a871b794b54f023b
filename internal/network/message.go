// Package network provides the social graph, directed trust, and the message bus
// through which agents influence each other's behavioral profiles.
package network

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/compliance-sim/internal/behavior"
)

// MessageType is the payload of an AgentMessage. The set of implementations is closed.
type MessageType interface {
	// Kind returns the wire tag for the payload.
	Kind() string
	isMessageType()
}

// StatuteInfo shares knowledge about a statute and whether to comply with it.
type StatuteInfo struct {
	StatuteID             string `json:"statute_id"`
	ComplianceRecommended bool   `json:"compliance_recommended"`
}

// ComplianceExperience reports the sender's own decision.
type ComplianceExperience struct {
	StatuteID string  `json:"statute_id"`
	Complied  bool    `json:"complied"`
	Outcome   float64 `json:"outcome"`
}

// EnforcementAlert warns about enforcement activity (level in [0, 1]).
type EnforcementAlert struct {
	StatuteID        string  `json:"statute_id"`
	EnforcementLevel float64 `json:"enforcement_level"`
}

// SocialNorm states how widely a statute is observed.
type SocialNorm struct {
	StatuteID      string  `json:"statute_id"`
	ComplianceRate float64 `json:"compliance_rate"`
}

// Advice is free-form guidance.
type Advice struct {
	StatuteID string `json:"statute_id,omitempty"`
	Text      string `json:"text"`
}

const (
	KindStatuteInfo          = "StatuteInfo"
	KindComplianceExperience = "ComplianceExperience"
	KindEnforcementAlert     = "EnforcementAlert"
	KindSocialNorm           = "SocialNorm"
	KindAdvice               = "Advice"
)

func (StatuteInfo) Kind() string          { return KindStatuteInfo }
func (ComplianceExperience) Kind() string { return KindComplianceExperience }
func (EnforcementAlert) Kind() string     { return KindEnforcementAlert }
func (SocialNorm) Kind() string           { return KindSocialNorm }
func (Advice) Kind() string               { return KindAdvice }

func (StatuteInfo) isMessageType()          {}
func (ComplianceExperience) isMessageType() {}
func (EnforcementAlert) isMessageType()     {}
func (SocialNorm) isMessageType()           {}
func (Advice) isMessageType()               {}

// AgentMessage is one communication event. A nil Receiver means broadcast.
type AgentMessage struct {
	ID          string            `json:"id"`
	Sender      behavior.AgentID  `json:"sender"`
	Receiver    *behavior.AgentID `json:"receiver,omitempty"`
	MessageType MessageType       `json:"message_type"`
	Timestamp   time.Time         `json:"timestamp"`
	Credibility float64           `json:"credibility"`
}

// NewMessage creates a direct message; credibility is clamped to [0, 1].
func NewMessage(sender, receiver behavior.AgentID, payload MessageType, at time.Time, credibility float64) AgentMessage {
	r := receiver
	m := NewBroadcast(sender, payload, at, credibility)
	m.Receiver = &r
	return m
}

// NewBroadcast creates a message for every connected agent.
func NewBroadcast(sender behavior.AgentID, payload MessageType, at time.Time, credibility float64) AgentMessage {
	return AgentMessage{
		ID:          uuid.NewString(),
		Sender:      sender,
		MessageType: payload,
		Timestamp:   at,
		Credibility: clamp01(credibility),
	}
}

// IsBroadcast reports whether the message has no specific receiver.
func (m AgentMessage) IsBroadcast() bool {
	return m.Receiver == nil
}

type messageEnvelope struct {
	ID          string            `json:"id"`
	Sender      behavior.AgentID  `json:"sender"`
	Receiver    *behavior.AgentID `json:"receiver,omitempty"`
	MessageType json.RawMessage   `json:"message_type"`
	Timestamp   time.Time         `json:"timestamp"`
	Credibility float64           `json:"credibility"`
}

// MarshalJSON writes the payload as a flat object with its kind under "type".
func (m AgentMessage) MarshalJSON() ([]byte, error) {
	if m.MessageType == nil {
		return nil, fmt.Errorf("message %s has no payload", m.ID)
	}
	data, err := json.Marshal(m.MessageType)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("payload %s: %w", m.MessageType.Kind(), err)
	}
	kind, err := json.Marshal(m.MessageType.Kind())
	if err != nil {
		return nil, err
	}
	fields["type"] = kind
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return json.Marshal(messageEnvelope{
		ID:          m.ID,
		Sender:      m.Sender,
		Receiver:    m.Receiver,
		MessageType: payload,
		Timestamp:   m.Timestamp,
		Credibility: m.Credibility,
	})
}

// UnmarshalJSON decodes a payload by its "type" field. Credibility is re-clamped.
func (m *AgentMessage) UnmarshalJSON(b []byte) error {
	var env messageEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(env.MessageType, &tag); err != nil {
		return fmt.Errorf("message_type: %w", err)
	}

	var payload MessageType
	var err error
	switch tag.Type {
	case KindStatuteInfo:
		payload, err = decodePayload[StatuteInfo](env.MessageType)
	case KindComplianceExperience:
		payload, err = decodePayload[ComplianceExperience](env.MessageType)
	case KindEnforcementAlert:
		payload, err = decodePayload[EnforcementAlert](env.MessageType)
	case KindSocialNorm:
		payload, err = decodePayload[SocialNorm](env.MessageType)
	case KindAdvice:
		payload, err = decodePayload[Advice](env.MessageType)
	default:
		return fmt.Errorf("unknown message type %q", tag.Type)
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", tag.Type, err)
	}

	*m = AgentMessage{
		ID:          env.ID,
		Sender:      env.Sender,
		Receiver:    env.Receiver,
		MessageType: payload,
		Timestamp:   env.Timestamp,
		Credibility: clamp01(env.Credibility),
	}
	return nil
}

func decodePayload[T MessageType](data json.RawMessage) (MessageType, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func clamp01(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
