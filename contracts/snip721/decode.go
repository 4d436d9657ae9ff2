package snip721

import (
	"encoding/json"
	"fmt"

	"github.com/zorostang/secret-upgradable-nfts/chainio/types"
)

func decode(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", types.ErrQuery, err)
	}
	return nil
}
