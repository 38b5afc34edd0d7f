// Package mqtt provides MQTT subscription and payload decoding with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/sweeney/agri-logger/internal/logic"
)

// DefaultTopic is the MQTT topic the irrigation controller publishes telemetry on.
const DefaultTopic = "esp32/agri/data"

// Payload keys.
const (
	KeyTemperature   = "temperature"
	KeyHumidity      = "humidity"
	KeySoilMoisture  = "soil_moisture"
	KeyEvaporationML = "evaporation_ml"
	KeyWaterPoured   = "water_poured"
	KeyIrrigation    = "irrigation"
	KeyManualMode    = "manual_mode"
)

// Message is a received MQTT message.
type Message struct {
	Topic    string
	Payload  []byte
	Received time.Time // local wall clock at receipt
}

// Subscriber delivers messages received on the subscribed topic.
type Subscriber interface {
	// Messages returns the channel messages are delivered on, in receipt order.
	Messages() <-chan Message

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

var (
	errNotObject   = errors.New("payload is not a JSON object")
	errInvalidUTF8 = errors.New("payload is not valid UTF-8")
	errNotNumber   = errors.New("expected a number")
	errNotBool     = errors.New("expected a boolean")
)

// DecodeError reports a payload that could not be interpreted as a telemetry record.
// Field is empty when the payload as a whole is malformed.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("decode payload: %v", e.Err)
	}
	return fmt.Sprintf("decode payload: field %q: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DecodePayload parses a JSON telemetry payload into a record.
// Missing keys and null values are treated as absent. Unknown keys are ignored.
// Numeric keys must hold JSON numbers and boolean keys JSON booleans.
func DecodePayload(payload []byte) (logic.Record, error) {
	// encoding/json passes invalid bytes inside strings through unchanged.
	if !utf8.Valid(payload) {
		return logic.Record{}, &DecodeError{Err: errInvalidUTF8}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return logic.Record{}, &DecodeError{Err: err}
	}
	if raw == nil {
		return logic.Record{}, &DecodeError{Err: errNotObject}
	}

	var (
		rec logic.Record
		err error
	)
	numbers := []struct {
		key string
		dst *string
	}{
		{KeyTemperature, &rec.Temperature},
		{KeyHumidity, &rec.Humidity},
		{KeySoilMoisture, &rec.SoilMoisture},
		{KeyEvaporationML, &rec.EvaporationML},
		{KeyWaterPoured, &rec.WaterPoured},
	}
	for _, n := range numbers {
		if *n.dst, err = decodeNumber(raw, n.key); err != nil {
			return logic.Record{}, err
		}
	}
	if rec.Irrigation, err = decodeFlag(raw, KeyIrrigation); err != nil {
		return logic.Record{}, err
	}
	if rec.ManualMode, err = decodeFlag(raw, KeyManualMode); err != nil {
		return logic.Record{}, err
	}

	return rec, nil
}

func isNull(v json.RawMessage) bool {
	return string(v) == "null"
}

// decodeNumber returns the number exactly as transmitted, so 60 stays "60" and 22.50 stays "22.50".
func decodeNumber(raw map[string]json.RawMessage, key string) (string, error) {
	v, ok := raw[key]
	if !ok || isNull(v) {
		return "", nil
	}
	if len(v) == 0 || (v[0] != '-' && (v[0] < '0' || v[0] > '9')) {
		return "", &DecodeError{Field: key, Err: errNotNumber}
	}
	return string(v), nil
}

func decodeFlag(raw map[string]json.RawMessage, key string) (logic.Flag, error) {
	v, ok := raw[key]
	if !ok || isNull(v) {
		return logic.FlagUnknown, nil
	}
	var b bool
	if err := json.Unmarshal(v, &b); err != nil {
		return logic.FlagUnknown, &DecodeError{Field: key, Err: errNotBool}
	}
	return logic.FlagOf(&b), nil
}
