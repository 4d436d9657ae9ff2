package types

import (
	"fmt"
	"strconv"
)

// Attribute is a single key/value pair of an emitted event.
type Attribute struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Event is a typed group of attributes emitted while executing a transaction.
type Event struct {
	Type       string      `json:"type" yaml:"type"`
	Attributes []Attribute `json:"attributes" yaml:"attributes"`
}

// TxResult is the confirmed outcome of a transaction. It is consumed right after the
// call and never persisted.
type TxResult struct {
	TxHash    string   `json:"tx_hash" yaml:"tx_hash"`
	Height    int64    `json:"height" yaml:"height"`
	Code      uint32   `json:"code" yaml:"code"`
	RawLog    string   `json:"raw_log" yaml:"raw_log"`
	Events    []Event  `json:"events" yaml:"events"`
	Data      [][]byte `json:"data" yaml:"data"`
	GasWanted int64    `json:"gas_wanted" yaml:"gas_wanted"`
	GasUsed   int64    `json:"gas_used" yaml:"gas_used"`
}

func (r *TxResult) Succeeded() bool {
	return r.Code == 0
}

// FindAttribute returns the value of the first attribute with the given key. An empty
// eventType matches every event.
func (r *TxResult) FindAttribute(eventType, key string) (string, bool) {
	for _, event := range r.Events {
		if eventType != "" && event.Type != eventType {
			continue
		}
		for _, attr := range event.Attributes {
			if attr.Key == key {
				return attr.Value, true
			}
		}
	}
	return "", false
}

// MustFindAttribute is FindAttribute returning ErrEventNotFound on a miss.
func (r *TxResult) MustFindAttribute(eventType, key string) (string, error) {
	value, ok := r.FindAttribute(eventType, key)
	if !ok {
		if eventType == "" {
			return "", fmt.Errorf("%w: attribute %q in tx %s", ErrEventNotFound, key, r.TxHash)
		}
		return "", fmt.Errorf("%w: %s.%s in tx %s", ErrEventNotFound, eventType, key, r.TxHash)
	}
	return value, nil
}

// CodeID extracts the code id assigned by an upload. Only the first event of the
// receipt is searched and the attribute must hold a positive integer.
func (r *TxResult) CodeID(key string) (uint64, error) {
	if len(r.Events) == 0 {
		return 0, fmt.Errorf("%w: no events in tx %s", ErrEventNotFound, r.TxHash)
	}
	first := TxResult{TxHash: r.TxHash, Events: r.Events[:1]}
	value, err := first.MustFindAttribute(r.Events[0].Type, key)
	if err != nil {
		return 0, err
	}
	codeID, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if codeID == 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, value)
	}
	return codeID, nil
}
