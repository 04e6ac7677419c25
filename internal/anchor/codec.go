package anchor

import (
	"encoding/json"

	"github.com/shane2512/AeXoWorK-sub001/internal/envelope"
)

func marshalAnchor(rec envelope.AnchorRecord) ([]byte, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, envelope.Wrap(envelope.KindIntegrityError, "marshal anchor record", err)
	}
	return raw, nil
}

func marshalOffBus(msg envelope.OffBusMessage) ([]byte, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, envelope.Wrap(envelope.KindIntegrityError, "marshal off-bus message", err)
	}
	return raw, nil
}

func unmarshalOffBus(raw []byte) (envelope.OffBusMessage, error) {
	var msg envelope.OffBusMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return envelope.OffBusMessage{}, envelope.Wrap(envelope.KindIntegrityError, "unmarshal off-bus message", err)
	}
	return msg, nil
}

func unmarshalEnvelope(raw []byte, e *envelope.Envelope) error {
	return json.Unmarshal(raw, e)
}
