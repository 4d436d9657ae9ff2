package contractstest

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/zorostang/secret-upgradable-nfts/chainio/chaintest"
	"github.com/zorostang/secret-upgradable-nfts/contracts/provider"
	"github.com/zorostang/secret-upgradable-nfts/contracts/snip721"
)

// Provider is the metadata-provider contract. Public metadata is stored by token index
// and private metadata by token id.
type Provider struct {
	Name          string
	Symbol        string
	Admin         string
	TokenAddress  string
	TokenCodeHash string

	public      map[uint32]*snip721.Metadata
	private     map[string]*snip721.Metadata
	viewingKeys map[string]string
}

var _ chaintest.Contract = (*Provider)(nil)

func NewProvider(env chaintest.Env, initMsg []byte) (chaintest.Contract, error) {
	var msg provider.InstantiateMsg
	if err := json.Unmarshal(initMsg, &msg); err != nil {
		return nil, parseErr(err)
	}
	if msg.TokenAddress == "" {
		return nil, genericErr("token_address is required")
	}
	return &Provider{
		Name:          msg.Name,
		Symbol:        msg.Symbol,
		Admin:         env.Sender,
		TokenAddress:  msg.TokenAddress,
		TokenCodeHash: msg.TokenCodeHash,
		public:        make(map[uint32]*snip721.Metadata),
		private:       make(map[string]*snip721.Metadata),
		viewingKeys:   make(map[string]string),
	}, nil
}

func (p *Provider) Execute(env chaintest.Env, msg []byte) (*chaintest.Response, error) {
	var m provider.ExecuteMsg
	if err := json.Unmarshal(msg, &m); err != nil {
		return nil, parseErr(err)
	}

	switch {
	case m.SetMetadata != nil:
		set := m.SetMetadata
		if err := validate(set.PublicMetadata, set.PrivateMetadata); err != nil {
			return nil, err
		}
		if set.PublicMetadata != nil {
			p.public[set.Idx] = set.PublicMetadata
		}
		if set.PrivateMetadata != nil {
			p.private[set.TokenID] = set.PrivateMetadata
		}
		return respond(provider.ExecuteAnswer{SetMetadata: &snip721.StatusAnswer{Status: snip721.Success}}, nil)
	case m.CreateViewingKey != nil:
		seed := sha256.Sum256([]byte(env.Sender + "/" + m.CreateViewingKey.Entropy))
		key := "api_key_" + base64.StdEncoding.EncodeToString(seed[:])
		p.viewingKeys[env.Sender] = key
		return respond(provider.ExecuteAnswer{ViewingKey: &snip721.ViewingKeyAnswer{Key: key}}, nil)
	case m.SetViewingKey != nil:
		p.viewingKeys[env.Sender] = m.SetViewingKey.Key
		return respond(provider.ExecuteAnswer{ViewingKey: &snip721.ViewingKeyAnswer{Key: m.SetViewingKey.Key}}, nil)
	case m.ChangeAdmin != nil:
		if env.Sender != p.Admin {
			return nil, genericErr(provider.AdminOnlyError)
		}
		p.Admin = m.ChangeAdmin.Address
		return respond(provider.ExecuteAnswer{ChangeAdmin: &snip721.StatusAnswer{Status: snip721.Success}}, nil)
	}
	return nil, parseErr(errors.New("unknown variant"))
}

func (p *Provider) Query(_ chaintest.Env, msg []byte) ([]byte, error) {
	var m provider.QueryMsg
	if err := json.Unmarshal(msg, &m); err != nil {
		return nil, parseErr(err)
	}

	switch {
	case m.NftInfo != nil:
		return pad(provider.NftInfoResponse{NftInfo: orEmpty(p.public[m.NftInfo.TokenIdx])})
	case m.PrivateMetadata != nil:
		return pad(provider.PrivateMetadataResponse{PrivateMetadata: orEmpty(p.private[m.PrivateMetadata.TokenID])})
	}
	return nil, parseErr(errors.New("unknown variant"))
}
