// Package devnet starts a single-node local Secret chain in a container.
package devnet

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	DefaultImage   = "ghcr.io/scrtlabs/localsecret:v1.15.0"
	DefaultChainID = "secretdev-1"

	lcdPort    nat.Port = "1317/tcp"
	grpcPort   nat.Port = "9090/tcp"
	rpcPort    nat.Port = "26657/tcp"
	faucetPort nat.Port = "5000/tcp"
)

type Options struct {
	Image   string
	ChainID string
	// StartupTimeout bounds the wait for the first block.
	StartupTimeout time.Duration
}

// Endpoints are the host-mapped URLs of a running devnet.
type Endpoints struct {
	RPC    string `json:"rpc" yaml:"rpc"`
	GRPC   string `json:"grpc" yaml:"grpc"`
	LCD    string `json:"lcd" yaml:"lcd"`
	Faucet string `json:"faucet" yaml:"faucet"`
}

type Devnet struct {
	Container testcontainers.Container
	ChainID   string
	Endpoints Endpoints
}

func Run(ctx context.Context, opts Options) (*Devnet, error) {
	if opts.Image == "" {
		opts.Image = DefaultImage
	}
	if opts.ChainID == "" {
		opts.ChainID = DefaultChainID
	}
	if opts.StartupTimeout == 0 {
		opts.StartupTimeout = 3 * time.Minute
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        opts.Image,
			Env:          map[string]string{"CHAINID": opts.ChainID},
			ExposedPorts: []string{string(lcdPort), string(grpcPort), string(rpcPort), string(faucetPort)},
			WaitingFor: wait.ForAll(
				wait.ForHTTP("/status").WithPort(rpcPort),
				wait.ForListeningPort(faucetPort),
			).WithDeadline(opts.StartupTimeout),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start devnet: %w", err)
	}

	d := &Devnet{Container: container, ChainID: opts.ChainID}
	if d.Endpoints, err = endpoints(ctx, container); err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}
	return d, nil
}

func (d *Devnet) Terminate(ctx context.Context) error {
	return d.Container.Terminate(ctx)
}

func endpoints(ctx context.Context, c testcontainers.Container) (Endpoints, error) {
	host, err := c.Host(ctx)
	if err != nil {
		return Endpoints{}, err
	}
	mapped := func(port nat.Port) (string, error) {
		p, err := c.MappedPort(ctx, port)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s:%s", host, p.Port()), nil
	}

	var e Endpoints
	for _, ep := range []struct {
		port   nat.Port
		format string
		dst    *string
	}{
		{rpcPort, "http://%s", &e.RPC},
		{grpcPort, "%s", &e.GRPC},
		{lcdPort, "http://%s", &e.LCD},
		{faucetPort, "http://%s/faucet", &e.Faucet},
	} {
		addr, err := mapped(ep.port)
		if err != nil {
			return Endpoints{}, err
		}
		*ep.dst = fmt.Sprintf(ep.format, addr)
	}
	return e, nil
}
