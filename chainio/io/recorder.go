package io

import (
	"context"
	"sync"

	"github.com/zorostang/secret-upgradable-nfts/chainio/types"
)

// Recorded is a transaction seen by a Recorder.
type Recorded struct {
	Kind   string
	Result *types.TxResult
}

// Recorder wraps a ChainIO and keeps every tx result returned through it.
type Recorder struct {
	ChainIO

	mu  sync.Mutex
	txs []Recorded
}

func NewRecorder(chain ChainIO) *Recorder {
	return &Recorder{ChainIO: chain}
}

func (r *Recorder) StoreCode(ctx context.Context, opts types.StoreCodeOptions) (*types.TxResult, error) {
	res, err := r.ChainIO.StoreCode(ctx, opts)
	r.record("upload", res)
	return res, err
}

func (r *Recorder) Instantiate(ctx context.Context, opts types.InstantiateOptions) (*types.TxResult, error) {
	res, err := r.ChainIO.Instantiate(ctx, opts)
	r.record("instantiate", res)
	return res, err
}

func (r *Recorder) Execute(ctx context.Context, opts types.ExecuteOptions) (*types.TxResult, error) {
	res, err := r.ChainIO.Execute(ctx, opts)
	r.record("execute", res)
	return res, err
}

// Txs returns the recorded transactions in submission order.
func (r *Recorder) Txs() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.txs))
	copy(out, r.txs)
	return out
}

func (r *Recorder) record(kind string, res *types.TxResult) {
	if res == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txs = append(r.txs, Recorded{Kind: kind, Result: res})
}
