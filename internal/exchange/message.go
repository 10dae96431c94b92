package exchange

import (
	"encoding/json"
	"fmt"

	"quotebot-go/internal/signal"
)

// MessageKind tags inbound stream messages after decoding.
type MessageKind int

const (
	// KindQuote carries a bid/ask update.
	KindQuote MessageKind = iota + 1
	// KindSubscribed confirms a market data subscription.
	KindSubscribed
	// KindUnsubscribed confirms a market data unsubscription.
	KindUnsubscribed
	// KindPing acknowledges a keepalive.
	KindPing
)

func (k MessageKind) String() string {
	switch k {
	case KindQuote:
		return "quote"
	case KindSubscribed:
		return "subscribed"
	case KindUnsubscribed:
		return "unsubscribed"
	case KindPing:
		return "ping"
	default:
		return "unknown"
	}
}

const (
	destinationSubscribe   = "marketData.subscribe"
	destinationUnsubscribe = "marketData.unsubscribe"
	destinationQuote       = "quote"
	destinationPing        = "ping"
)

type envelope struct {
	Destination   string          `json:"destination"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Status        string          `json:"status,omitempty"`
	CST           string          `json:"cst,omitempty"`
	SecurityToken string          `json:"securityToken,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

type quotePayload struct {
	Epic      string   `json:"epic"`
	Offer     *float64 `json:"ofr"`
	Bid       *float64 `json:"bid"`
	Timestamp int64    `json:"timestamp"`
}

type epicsPayload struct {
	Epics []string `json:"epics"`
}

// Message is a decoded inbound frame.
type Message struct {
	Kind    MessageKind
	Status  string
	Tick    signal.Tick // set for KindQuote
	Payload json.RawMessage
}

// DecodeMessage parses one inbound frame. Malformed or unexpected frames yield a *DataError.
func DecodeMessage(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, &DataError{Reason: "decode envelope", Err: err}
	}
	msg := Message{Status: env.Status, Payload: env.Payload}
	switch env.Destination {
	case destinationQuote:
		var q quotePayload
		if err := json.Unmarshal(env.Payload, &q); err != nil {
			return Message{}, &DataError{Reason: "decode quote", Err: err}
		}
		if q.Epic == "" || q.Offer == nil || q.Bid == nil {
			return Message{}, &DataError{Reason: "incomplete quote"}
		}
		msg.Kind = KindQuote
		msg.Tick = signal.Tick{Instrument: q.Epic, Ask: *q.Offer, Bid: *q.Bid, Timestamp: q.Timestamp}
	case destinationSubscribe:
		msg.Kind = KindSubscribed
	case destinationUnsubscribe:
		msg.Kind = KindUnsubscribed
	case destinationPing:
		msg.Kind = KindPing
	default:
		return Message{}, &DataError{Reason: fmt.Sprintf("unexpected destination %q", env.Destination)}
	}
	return msg, nil
}

// encodeControl builds an outbound control frame carrying the session tokens.
func encodeControl(destination, correlationID string, session Session, payload any) ([]byte, error) {
	env := envelope{
		Destination:   destination,
		CorrelationID: correlationID,
		CST:           session.CST,
		SecurityToken: session.SecurityToken,
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", destination, err)
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}
