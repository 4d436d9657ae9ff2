// Package contractstest implements the SNIP-721 and metadata-provider contracts as
// chaintest contracts, so clients and scenarios run without a devnet.
package contractstest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zorostang/secret-upgradable-nfts/chainio/chaintest"
	"github.com/zorostang/secret-upgradable-nfts/chainio/types"
	"github.com/zorostang/secret-upgradable-nfts/contracts/provider"
	"github.com/zorostang/secret-upgradable-nfts/contracts/snip721"
)

var (
	SNIP721Wasm  = []byte("\x00asm\x01\x00\x00\x00snip721-upgradable")
	ProviderWasm = []byte("\x00asm\x01\x00\x00\x00metadata-provider")
)

const blockSize = 256

const wrongViewingKey = "Wrong viewing key for this address or viewing key not set"

// Register binds both fake contracts to chain and returns their code hashes.
func Register(chain *chaintest.Chain) (nftHash, providerHash string) {
	nftHash = chain.RegisterCode(SNIP721Wasm, NewSNIP721)
	providerHash = chain.RegisterCode(ProviderWasm, NewProvider)
	return nftHash, providerHash
}

// WriteArtifacts writes both wasm files into dir.
func WriteArtifacts(dir string) (nftPath, providerPath string, err error) {
	nftPath = filepath.Join(dir, "snip721_upgradable.wasm")
	providerPath = filepath.Join(dir, "metadata_provider.wasm")
	if err := os.WriteFile(nftPath, SNIP721Wasm, 0o644); err != nil {
		return "", "", err
	}
	if err := os.WriteFile(providerPath, ProviderWasm, 0o644); err != nil {
		return "", "", err
	}
	return nftPath, providerPath, nil
}

type token struct {
	idx     uint32
	owner   string
	public  *snip721.Metadata
	private *snip721.Metadata
}

type registered struct {
	address  string
	codeHash string
}

// SNIP721 keeps tokens, viewing keys and registered providers in memory.
type SNIP721 struct {
	Name   string
	Symbol string
	Admin  string

	tokens      map[string]*token
	viewingKeys map[string]string
	providers   []registered
}

var _ chaintest.Contract = (*SNIP721)(nil)

func NewSNIP721(env chaintest.Env, initMsg []byte) (chaintest.Contract, error) {
	var msg snip721.InstantiateMsg
	if err := json.Unmarshal(initMsg, &msg); err != nil {
		return nil, parseErr(err)
	}
	if msg.Name == "" || msg.Symbol == "" {
		return nil, genericErr("name and symbol are required")
	}
	admin := env.Sender
	if msg.Admin != nil {
		admin = *msg.Admin
	}
	return &SNIP721{
		Name:        msg.Name,
		Symbol:      msg.Symbol,
		Admin:       admin,
		tokens:      make(map[string]*token),
		viewingKeys: make(map[string]string),
	}, nil
}

// Providers returns the addresses of registered providers in registration order.
func (c *SNIP721) Providers() []string {
	out := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		out = append(out, p.address)
	}
	return out
}

func (c *SNIP721) Execute(env chaintest.Env, msg []byte) (*chaintest.Response, error) {
	var m snip721.ExecuteMsg
	if err := json.Unmarshal(msg, &m); err != nil {
		return nil, parseErr(err)
	}

	switch {
	case m.MintNft != nil:
		return c.mint(env, m.MintNft)
	case m.SetMetadata != nil:
		t, ok := c.tokens[m.SetMetadata.TokenID]
		if !ok {
			return nil, genericErr(fmt.Sprintf("token ID: %s not found", m.SetMetadata.TokenID))
		}
		if err := validate(m.SetMetadata.PublicMetadata, m.SetMetadata.PrivateMetadata); err != nil {
			return nil, err
		}
		if m.SetMetadata.PublicMetadata != nil {
			t.public = m.SetMetadata.PublicMetadata
		}
		if m.SetMetadata.PrivateMetadata != nil {
			t.private = m.SetMetadata.PrivateMetadata
		}
		return respond(snip721.ExecuteAnswer{SetMetadata: &snip721.StatusAnswer{Status: snip721.Success}}, nil)
	case m.SetViewingKey != nil:
		c.viewingKeys[env.Sender] = m.SetViewingKey.Key
		return respond(snip721.ExecuteAnswer{ViewingKey: &snip721.ViewingKeyAnswer{Key: m.SetViewingKey.Key}}, nil)
	case m.RegisterMetadataProvider != nil:
		if env.Sender != c.Admin {
			return nil, genericErr("This is an admin command and can only be run from the admin address")
		}
		reg := m.RegisterMetadataProvider
		for _, p := range c.providers {
			if p.address == reg.Address {
				return nil, genericErr(fmt.Sprintf("provider %s is already registered", reg.Address))
			}
		}
		c.providers = append(c.providers, registered{address: reg.Address, codeHash: reg.CodeHash})
		return respond(
			snip721.ExecuteAnswer{RegisterMetadataProvider: &snip721.StatusAnswer{Status: snip721.Success}},
			[]types.Attribute{{Key: snip721.RegisterProviderKey, Value: reg.Address}},
		)
	}
	return nil, parseErr(errors.New("unknown variant"))
}

func (c *SNIP721) mint(env chaintest.Env, msg *snip721.MintNft) (*chaintest.Response, error) {
	if env.Sender != c.Admin {
		return nil, genericErr("Only designated minters are allowed to mint")
	}
	if err := validate(msg.PublicMetadata, msg.PrivateMetadata); err != nil {
		return nil, err
	}
	idx := uint32(len(c.tokens))
	id := strconv.FormatUint(uint64(idx), 10)
	if msg.TokenID != nil {
		id = *msg.TokenID
	}
	if _, exists := c.tokens[id]; exists {
		return nil, genericErr(fmt.Sprintf("Token ID %s is already in use", id))
	}
	owner := env.Sender
	if msg.Owner != nil {
		owner = *msg.Owner
	}
	c.tokens[id] = &token{idx: idx, owner: owner, public: msg.PublicMetadata, private: msg.PrivateMetadata}
	return respond(snip721.ExecuteAnswer{MintNft: &snip721.MintNftAnswer{TokenID: id}}, nil)
}

func (c *SNIP721) Query(env chaintest.Env, msg []byte) ([]byte, error) {
	var m snip721.QueryMsg
	if err := json.Unmarshal(msg, &m); err != nil {
		return nil, parseErr(err)
	}

	switch {
	case m.NftInfo != nil:
		t, ok := c.tokens[m.NftInfo.TokenID]
		if !ok {
			return errorResponse(fmt.Sprintf("token ID: %s not found", m.NftInfo.TokenID))
		}
		return pad(snip721.NftInfoResponse{NftInfo: orEmpty(t.public)})
	case m.PrivateMetadata != nil:
		t, ok := c.tokens[m.PrivateMetadata.TokenID]
		if !ok {
			return errorResponse(fmt.Sprintf("token ID: %s not found", m.PrivateMetadata.TokenID))
		}
		if !c.canView(m.PrivateMetadata.Viewer, t) {
			return viewingKeyError()
		}
		return pad(snip721.PrivateMetadataResponse{PrivateMetadata: orEmpty(t.private)})
	case m.BatchProviderMetadata != nil:
		return c.batchProviderMetadata(env, m.BatchProviderMetadata)
	}
	return nil, parseErr(errors.New("unknown variant"))
}

func (c *SNIP721) batchProviderMetadata(env chaintest.Env, msg *snip721.BatchProviderMetadata) ([]byte, error) {
	t, ok := c.tokens[msg.TokenID]
	if !ok {
		return errorResponse(fmt.Sprintf("token ID: %s not found", msg.TokenID))
	}
	withPrivate := msg.Viewer != nil
	if withPrivate && !c.canView(msg.Viewer, t) {
		return viewingKeyError()
	}

	out := snip721.BatchProviderMetadataResponse{BatchProviderMetadata: []snip721.ProviderMetadata{}}
	for _, p := range c.providers {
		entry := snip721.ProviderMetadata{Provider: p.address}

		var public provider.NftInfoResponse
		err := subQuery(env, p, provider.QueryMsg{NftInfo: &provider.NftInfo{TokenIdx: t.idx}}, &public)
		if err != nil {
			return nil, err
		}
		entry.PublicMetadata = public.NftInfo

		if withPrivate {
			var private provider.PrivateMetadataResponse
			err := subQuery(env, p, provider.QueryMsg{PrivateMetadata: &provider.PrivateMetadata{
				TokenID: msg.TokenID,
				Viewer:  msg.Viewer,
			}}, &private)
			if err != nil {
				return nil, err
			}
			entry.PrivateMetadata = private.PrivateMetadata
		}
		out.BatchProviderMetadata = append(out.BatchProviderMetadata, entry)
	}
	return pad(out)
}

func (c *SNIP721) canView(viewer *snip721.ViewerInfo, t *token) bool {
	if viewer == nil || viewer.Address != t.owner {
		return false
	}
	key, ok := c.viewingKeys[viewer.Address]
	return ok && key == viewer.ViewingKey
}

func subQuery(env chaintest.Env, p registered, msg provider.QueryMsg, out interface{}) error {
	queryMsg, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	data, err := env.Chain.QueryContract(context.Background(), types.QueryOptions{
		ContractAddr: p.address,
		CodeHash:     p.codeHash,
		QueryMsg:     queryMsg,
	})
	if err != nil {
		return genericErr(fmt.Sprintf("provider %s: %v", p.address, err))
	}
	return json.Unmarshal(data, out)
}

func validate(metadata ...*snip721.Metadata) error {
	for _, m := range metadata {
		if m != nil && m.TokenURI != nil && m.Extension != nil {
			return genericErr("Metadata can not have BOTH token_uri AND extension")
		}
	}
	return nil
}

func orEmpty(m *snip721.Metadata) *snip721.Metadata {
	if m == nil {
		return &snip721.Metadata{}
	}
	return m
}

func respond(answer interface{}, attrs []types.Attribute) (*chaintest.Response, error) {
	data, err := pad(answer)
	if err != nil {
		return nil, err
	}
	return &chaintest.Response{Data: data, Attributes: attrs}, nil
}

// pad marshals v and right-pads it with spaces to a multiple of blockSize.
func pad(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if rem := len(data) % blockSize; rem != 0 {
		data = append(data, strings.Repeat(" ", blockSize-rem)...)
	}
	return data, nil
}

func errorResponse(msg string) ([]byte, error) {
	return json.Marshal(map[string]map[string]string{"generic_err": {"msg": msg}})
}

func viewingKeyError() ([]byte, error) {
	return json.Marshal(map[string]map[string]string{"viewing_key_error": {"error": wrongViewingKey}})
}

func genericErr(msg string) error {
	return fmt.Errorf("generic_err: %s", msg)
}

func parseErr(err error) error {
	return fmt.Errorf("parse_err: %v", err)
}
