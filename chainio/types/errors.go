package types

import (
	"errors"
	"fmt"
)

var (
	ErrConnection    = errors.New("connection error")
	ErrUpload        = errors.New("upload error")
	ErrInstantiate   = errors.New("instantiate error")
	ErrExecution     = errors.New("execution error")
	ErrQuery         = errors.New("query error")
	ErrFaucet        = errors.New("faucet error")
	ErrEventNotFound = errors.New("event not found")
)

// TxError is returned when a transaction was included but finished with a non-zero
// status code.
type TxError struct {
	Kind   error
	TxHash string
	Code   uint32
	Log    string
}

func (e *TxError) Error() string {
	return fmt.Sprintf("%v: tx %s failed with code %d: %s", e.Kind, e.TxHash, e.Code, e.Log)
}

func (e *TxError) Unwrap() error {
	return e.Kind
}

// CheckTx turns a failed result into a *TxError of the given kind.
func CheckTx(kind error, res *TxResult) error {
	if res == nil {
		return fmt.Errorf("%w: empty tx result", kind)
	}
	if res.Succeeded() {
		return nil
	}
	return &TxError{Kind: kind, TxHash: res.TxHash, Code: res.Code, Log: res.RawLog}
}
