package log

import (
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// ErrMalformedEvent is returned when a decoded record is not a sync event.
var ErrMalformedEvent = errors.New("malformed sync event")

// Trace records are written with nanosecond RFC 3339 timestamps so events
// of one fold keep their order when sorted, and payload maps decode with
// string keys so they compare equal to what the synchronizer folded.
var (
	traceEnc cbor.EncMode
	traceDec cbor.DecMode
)

func init() {
	var err error
	traceEnc, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("sync trace encoder: %v", err))
	}

	traceDec, err = cbor.DecOptions{
		DupMapKey:      cbor.DupMapKeyQuiet,
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("sync trace decoder: %v", err))
	}
}

// EncodeEvent encodes one trace record.
func EncodeEvent(event Event) ([]byte, error) {
	return traceEnc.Marshal(event)
}

// DecodeEvent decodes one trace record and checks its category.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := traceDec.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, checkEvent(event)
}

// checkEvent rejects records whose category is out of range.
func checkEvent(event Event) error {
	if event.Category > CategoryError {
		return fmt.Errorf("%w: category %d", ErrMalformedEvent, event.Category)
	}
	return nil
}

// eventDecoder reads consecutive trace records from a stream.
type eventDecoder struct {
	dec *cbor.Decoder
}

func newEventDecoder(r io.Reader) *eventDecoder {
	return &eventDecoder{dec: traceDec.NewDecoder(r)}
}

// next returns the next record, or io.EOF at a clean end of stream.
func (d *eventDecoder) next() (Event, error) {
	var event Event
	if err := d.dec.Decode(&event); err != nil {
		return Event{}, err
	}
	if err := checkEvent(event); err != nil {
		return Event{}, fmt.Errorf("at byte %d: %w", d.dec.NumBytesRead(), err)
	}
	return event, nil
}
