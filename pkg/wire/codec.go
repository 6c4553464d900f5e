package wire

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/appwatch/appwatch-go/pkg/collection"
	"github.com/fxamacker/cbor/v2"
)

// ErrInvalidRecord is returned for a persisted event that cannot be turned
// back into a change event.
var ErrInvalidRecord = errors.New("invalid event record")

// encMode is the CBOR encoder mode for payloads and events.
// Configured for deterministic encoding.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for payloads and events.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Nested maps must come back as map[string]any so that a decoded payload
	// compares equal to the one that was encoded.
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
		DefaultMapType:    reflect.TypeOf(map[string]any(nil)),
		IntDec:            cbor.IntDecConvertSigned,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Marshal encodes a value to CBOR bytes.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR bytes into a value.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// EncodePayload encodes an entity payload. A nil payload encodes as CBOR null.
func EncodePayload(payload map[string]any) ([]byte, error) {
	return Marshal(payload)
}

// DecodePayload decodes an entity payload. Empty input yields nil.
func DecodePayload(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var payload map[string]any
	if err := Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return payload, nil
}

// EventRecord is a persisted change event whose payload is still CBOR
// encoded, as read back from a change log.
type EventRecord struct {
	Type    collection.EventType `cbor:"1,keyasint"`
	Key     collection.Key       `cbor:"2,keyasint"`
	Payload []byte               `cbor:"3,keyasint,omitempty"`
	Version uint64               `cbor:"4,keyasint,omitempty"`
}

// Event decodes the payload and returns the change event stamped with the
// record's version. Only Added, Modified and Deleted records exist; stream
// errors are never persisted.
func (r EventRecord) Event() (collection.ChangeEvent, error) {
	switch r.Type {
	case collection.EventAdded, collection.EventModified, collection.EventDeleted:
	default:
		return collection.ChangeEvent{}, fmt.Errorf("%w: %s", ErrInvalidRecord, r.Type)
	}
	if r.Key.IsZero() {
		return collection.ChangeEvent{}, fmt.Errorf("%w: missing key", ErrInvalidRecord)
	}

	payload, err := DecodePayload(r.Payload)
	if err != nil {
		return collection.ChangeEvent{}, err
	}
	return collection.ChangeEvent{
		Type:    r.Type,
		Entity:  collection.NewEntity(r.Key, payload),
		Version: r.Version,
	}, nil
}
