// Package provider holds the messages and a typed client of the metadata-provider
// contract, which serves extra metadata for tokens of a bound SNIP-721 contract.
package provider

import "github.com/zorostang/secret-upgradable-nfts/contracts/snip721"

// AdminOnlyError is the message a provider answers with when change_admin comes from
// anyone but the admin.
const AdminOnlyError = "This is an admin command and can only be run from the admin address"

type InstantiateMsg struct {
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	TokenAddress  string `json:"token_address"`
	TokenCodeHash string `json:"token_code_hash"`
}

type ExecuteMsg struct {
	SetMetadata      *SetMetadata      `json:"set_metadata,omitempty"`
	CreateViewingKey *CreateViewingKey `json:"create_viewing_key,omitempty"`
	SetViewingKey    *SetViewingKey    `json:"set_viewing_key,omitempty"`
	ChangeAdmin      *ChangeAdmin      `json:"change_admin,omitempty"`
}

type SetMetadata struct {
	TokenID         string            `json:"token_id"`
	Idx             uint32            `json:"idx"`
	PublicMetadata  *snip721.Metadata `json:"public_metadata,omitempty"`
	PrivateMetadata *snip721.Metadata `json:"private_metadata,omitempty"`
	Padding         *string           `json:"padding,omitempty"`
}

type CreateViewingKey struct {
	Entropy string  `json:"entropy"`
	Padding *string `json:"padding,omitempty"`
}

type SetViewingKey struct {
	Key     string  `json:"key"`
	Padding *string `json:"padding,omitempty"`
}

type ChangeAdmin struct {
	Address string  `json:"address"`
	Padding *string `json:"padding,omitempty"`
}

type ExecuteAnswer struct {
	SetMetadata *snip721.StatusAnswer     `json:"set_metadata,omitempty"`
	ViewingKey  *snip721.ViewingKeyAnswer `json:"viewing_key,omitempty"`
	ChangeAdmin *snip721.StatusAnswer     `json:"change_admin,omitempty"`
}

type QueryMsg struct {
	NftInfo         *NftInfo         `json:"nft_info,omitempty"`
	PrivateMetadata *PrivateMetadata `json:"private_metadata,omitempty"`
}

type NftInfo struct {
	TokenIdx uint32 `json:"token_idx"`
}

// PrivateMetadata looks metadata up by token id. The viewer is sent along but not
// checked by the contract.
type PrivateMetadata struct {
	TokenID string              `json:"token_id"`
	Viewer  *snip721.ViewerInfo `json:"viewer,omitempty"`
}

type NftInfoResponse struct {
	NftInfo *snip721.Metadata `json:"nft_info,omitempty"`
}

type PrivateMetadataResponse struct {
	PrivateMetadata *snip721.Metadata `json:"private_metadata,omitempty"`
}
