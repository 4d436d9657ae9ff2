package faucet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cosmossdk.io/math"
	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"

	"github.com/zorostang/secret-upgradable-nfts/chainio/types"
	"github.com/zorostang/secret-upgradable-nfts/logger"
)

var errBelowTarget = errors.New("balance below target")

// Account is the funded side of a fill.
type Account interface {
	Address() string
	Balance(ctx context.Context, denom string) (math.Int, error)
}

type Options struct {
	Denom string
	// MaxAttempts bounds faucet calls; 0 keeps calling until the target is reached or
	// Timeout expires.
	MaxAttempts   uint
	RetryInterval time.Duration
	// Timeout bounds the whole fill; 0 disables it.
	Timeout       time.Duration
	RatePerSecond float64
}

type Filler struct {
	client  *Client
	opts    Options
	limiter *rate.Limiter
	logger  logger.Logger
}

func NewFiller(client *Client, opts Options, l logger.Logger) *Filler {
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	return &Filler{
		client:  client,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		logger:  l,
	}
}

// Fill requests funds until the account holds at least target and returns the final
// balance. An account already at target causes no faucet call. Failed faucet calls are
// logged and retried; running out of attempts or time returns ErrFaucet.
func (f *Filler) Fill(ctx context.Context, account Account, target math.Int) (math.Int, error) {
	balance, err := account.Balance(ctx, f.opts.Denom)
	if err != nil {
		return math.ZeroInt(), err
	}
	if balance.GTE(target) {
		f.logger.Info("Account already funded",
			logger.WithField("address", account.Address()),
			logger.WithField("balance", balance.String()),
		)
		return balance, nil
	}

	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	calls := 0
	err = retry.Do(func() error {
		if err := f.limiter.Wait(ctx); err != nil {
			return retry.Unrecoverable(err)
		}
		calls++
		if err := f.client.Request(ctx, account.Address()); err != nil {
			f.logger.Warn("Failed to get tokens from faucet", logger.WithField("attempt", calls), logger.WithError(err))
		}

		balance, err = account.Balance(ctx, f.opts.Denom)
		if err != nil {
			return err
		}
		if balance.LT(target) {
			return fmt.Errorf("%w: %s < %s", errBelowTarget, balance, target)
		}
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(f.opts.MaxAttempts),
		retry.Delay(f.opts.RetryInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return balance, fmt.Errorf("%w: %s not funded after %d faucet calls: %v", types.ErrFaucet, account.Address(), calls, err)
	}

	f.logger.Info("Got tokens from faucet",
		logger.WithField("address", account.Address()),
		logger.WithField("balance", balance.String()),
		logger.WithField("calls", calls),
	)
	return balance, nil
}

// BalanceQuerier reads the balance of any address.
type BalanceQuerier interface {
	BalanceOf(ctx context.Context, address, denom string) (math.Int, error)
}

type addressAccount struct {
	address string
	querier BalanceQuerier
}

// AccountAt is the Account at address, read through q.
func AccountAt(q BalanceQuerier, address string) Account {
	return addressAccount{address: address, querier: q}
}

func (a addressAccount) Address() string {
	return a.address
}

func (a addressAccount) Balance(ctx context.Context, denom string) (math.Int, error) {
	return a.querier.BalanceOf(ctx, a.address, denom)
}
