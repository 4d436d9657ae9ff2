package snip721

import "errors"

type InstantiateMsg struct {
	Name    string             `json:"name"`
	Symbol  string             `json:"symbol"`
	Admin   *string            `json:"admin,omitempty"`
	Entropy string             `json:"entropy"`
	Config  *InstantiateConfig `json:"config,omitempty"`
}

type InstantiateConfig struct {
	PublicTokenSupply          bool `json:"public_token_supply"`
	PublicOwner                bool `json:"public_owner"`
	EnableSealedMetadata       bool `json:"enable_sealed_metadata"`
	UnwrappedMetadataIsPrivate bool `json:"unwrapped_metadata_is_private"`
	MinterMayUpdateMetadata    bool `json:"minter_may_update_metadata"`
	OwnerMayUpdateMetadata     bool `json:"owner_may_update_metadata"`
	EnableBurn                 bool `json:"enable_burn"`
}

type ExecuteMsg struct {
	MintNft                  *MintNft                  `json:"mint_nft,omitempty"`
	SetMetadata              *SetMetadata              `json:"set_metadata,omitempty"`
	SetViewingKey            *SetViewingKey            `json:"set_viewing_key,omitempty"`
	RegisterMetadataProvider *RegisterMetadataProvider `json:"register_metadata_provider,omitempty"`
}

type MintNft struct {
	TokenID         *string   `json:"token_id,omitempty"`
	Owner           *string   `json:"owner,omitempty"`
	PublicMetadata  *Metadata `json:"public_metadata,omitempty"`
	PrivateMetadata *Metadata `json:"private_metadata,omitempty"`
	Memo            *string   `json:"memo,omitempty"`
	Padding         *string   `json:"padding,omitempty"`
}

type SetMetadata struct {
	TokenID         string    `json:"token_id"`
	PublicMetadata  *Metadata `json:"public_metadata,omitempty"`
	PrivateMetadata *Metadata `json:"private_metadata,omitempty"`
	Padding         *string   `json:"padding,omitempty"`
}

type SetViewingKey struct {
	Key     string  `json:"key"`
	Padding *string `json:"padding,omitempty"`
}

// RegisterMetadataProvider registers a metadata-provider contract whose metadata is
// served alongside the token's own.
type RegisterMetadataProvider struct {
	Address  string  `json:"address"`
	CodeHash string  `json:"code_hash"`
	Padding  *string `json:"padding,omitempty"`
}

type ResponseStatus string

const (
	Success ResponseStatus = "success"
	Failure ResponseStatus = "failure"
)

type ExecuteAnswer struct {
	MintNft                  *MintNftAnswer    `json:"mint_nft,omitempty"`
	SetMetadata              *StatusAnswer     `json:"set_metadata,omitempty"`
	ViewingKey               *ViewingKeyAnswer `json:"viewing_key,omitempty"`
	RegisterMetadataProvider *StatusAnswer     `json:"register_metadata_provider,omitempty"`
}

type MintNftAnswer struct {
	TokenID string `json:"token_id"`
}

type StatusAnswer struct {
	Status ResponseStatus `json:"status"`
}

type ViewingKeyAnswer struct {
	Key string `json:"key"`
}

type QueryMsg struct {
	NftInfo               *NftInfo               `json:"nft_info,omitempty"`
	PrivateMetadata       *PrivateMetadata       `json:"private_metadata,omitempty"`
	BatchProviderMetadata *BatchProviderMetadata `json:"batch_provider_metadata,omitempty"`
}

type NftInfo struct {
	TokenID string `json:"token_id"`
}

type PrivateMetadata struct {
	TokenID string      `json:"token_id"`
	Viewer  *ViewerInfo `json:"viewer,omitempty"`
}

type BatchProviderMetadata struct {
	TokenID string      `json:"token_id"`
	Viewer  *ViewerInfo `json:"viewer,omitempty"`
}

type ViewerInfo struct {
	Address    string `json:"address"`
	ViewingKey string `json:"viewing_key"`
}

type NftInfoResponse struct {
	NftInfo *Metadata `json:"nft_info,omitempty"`
}

type PrivateMetadataResponse struct {
	PrivateMetadata *Metadata `json:"private_metadata,omitempty"`
}

type BatchProviderMetadataResponse struct {
	BatchProviderMetadata []ProviderMetadata `json:"batch_provider_metadata"`
}

// ProviderMetadata is the metadata one registered provider holds for a token.
type ProviderMetadata struct {
	Provider        string    `json:"provider"`
	PublicMetadata  *Metadata `json:"public_metadata,omitempty"`
	PrivateMetadata *Metadata `json:"private_metadata,omitempty"`
}

type Metadata struct {
	TokenURI  *string    `json:"token_uri,omitempty"`
	Extension *Extension `json:"extension,omitempty"`
}

var ErrMetadataFieldExclusion = errors.New("metadata can not have both token_uri and extension")

// Validate rejects metadata carrying both a token_uri and an extension.
func (m *Metadata) Validate() error {
	if m.TokenURI != nil && m.Extension != nil {
		return ErrMetadataFieldExclusion
	}
	return nil
}

type Extension struct {
	Image               *string     `json:"image,omitempty"`
	ImageData           *string     `json:"image_data,omitempty"`
	ExternalURL         *string     `json:"external_url,omitempty"`
	Description         *string     `json:"description,omitempty"`
	Name                *string     `json:"name,omitempty"`
	Attributes          []Trait     `json:"attributes,omitempty"`
	Media               []MediaFile `json:"media,omitempty"`
	ProtectedAttributes []string    `json:"protected_attributes,omitempty"`
}

type Trait struct {
	DisplayType *string `json:"display_type,omitempty"`
	TraitType   *string `json:"trait_type,omitempty"`
	Value       string  `json:"value"`
	MaxValue    *string `json:"max_value,omitempty"`
}

type MediaFile struct {
	FileType       *string         `json:"file_type,omitempty"`
	Extension      *string         `json:"extension,omitempty"`
	Authentication *Authentication `json:"authentication,omitempty"`
	URL            string          `json:"url"`
}

type Authentication struct {
	Key  *string `json:"key,omitempty"`
	User *string `json:"user,omitempty"`
}

// Ptr returns a pointer to v, for filling optional fields.
func Ptr[T any](v T) *T {
	return &v
}

// RegisterProviderKey is the log attribute carrying the address of a newly registered
// metadata provider.
const RegisterProviderKey = "register_provider"
