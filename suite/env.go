package suite

import (
	"fmt"
	"sort"
	"sync"

	"github.com/zorostang/secret-upgradable-nfts/chainio/io"
)

// Key names a value shared between test cases.
type Key string

// Env is the context shared by every case of a run. Chain is set before the first case
// and never replaced; everything else is published under a Key.
type Env struct {
	Chain io.ChainIO

	mu     sync.RWMutex
	values map[Key]interface{}
}

func NewEnv(chain io.ChainIO) *Env {
	return &Env{Chain: chain, values: make(map[Key]interface{})}
}

func (e *Env) Set(key Key, value interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.values[key] = value
}

func (e *Env) Lookup(key Key) (interface{}, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	value, ok := e.values[key]
	return value, ok
}

func (e *Env) Has(key Key) bool {
	_, ok := e.Lookup(key)
	return ok
}

// Keys returns the published keys in lexical order.
func (e *Env) Keys() []Key {
	e.mu.RLock()
	defer e.mu.RUnlock()
	keys := make([]Key, 0, len(e.values))
	for k := range e.values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// missing returns the keys not yet published.
func (e *Env) missing(keys []Key) []Key {
	var out []Key
	for _, k := range keys {
		if !e.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// Get returns the value under key as T.
func Get[T interface{}](env *Env, key Key) (T, error) {
	var zero T
	value, ok := env.Lookup(key)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	typed, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("env key %s holds %T, not %T", key, value, zero)
	}
	return typed, nil
}

// MustGet is Get for keys a case declared in Requires.
func MustGet[T interface{}](env *Env, key Key) T {
	value, err := Get[T](env, key)
	if err != nil {
		panic(err)
	}
	return value
}
