package types

import "encoding/json"

// CipherEnvelope carries one sealed message body. Both fields are standard
// base64 with padding.
type CipherEnvelope struct {
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// InboundMessage is a stored message as returned by the relay.
type InboundMessage struct {
	ID        MessageID
	From      Username
	To        Username
	Envelope  CipherEnvelope
	Timestamp int64
}

type inboundWire struct {
	ID         MessageID `json:"id"`
	From       Username  `json:"from"`
	LegacyFrom Username  `json:"from_,omitempty"`
	To         Username  `json:"to,omitempty"`
	Nonce      string    `json:"nonce"`
	Ciphertext string    `json:"ciphertext"`
	Timestamp  int64     `json:"timestamp,omitempty"`
}

// MarshalJSON flattens the envelope into the message object.
func (m InboundMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(inboundWire{
		ID:         m.ID,
		From:       m.From,
		To:         m.To,
		Nonce:      m.Envelope.Nonce,
		Ciphertext: m.Envelope.Ciphertext,
		Timestamp:  m.Timestamp,
	})
}

// UnmarshalJSON accepts the sender under either "from" or "from_"; older
// relays emit the latter.
func (m *InboundMessage) UnmarshalJSON(data []byte) error {
	var w inboundWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	from := w.From
	if from == "" {
		from = w.LegacyFrom
	}
	*m = InboundMessage{
		ID:        w.ID,
		From:      from,
		To:        w.To,
		Envelope:  CipherEnvelope{Nonce: w.Nonce, Ciphertext: w.Ciphertext},
		Timestamp: w.Timestamp,
	}
	return nil
}

// DecryptedMessage is what MessageService.ReceiveMessages returns.
type DecryptedMessage struct {
	ID        MessageID `json:"id"`
	From      Username  `json:"from"`
	Plaintext []byte    `json:"plaintext"`
	Timestamp int64     `json:"timestamp"`
}
