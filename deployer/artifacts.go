package deployer

import (
	"fmt"
	"os"

	"github.com/CosmWasm/wasmd/x/wasm/ioutils"
)

// ReadArtifact returns the contract binary at path, plain or gzipped wasm.
func ReadArtifact(path string) ([]byte, error) {
	wasm, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	if !ioutils.IsWasm(wasm) && !ioutils.IsGzip(wasm) {
		return nil, fmt.Errorf("%s is not a wasm binary", path)
	}
	return wasm, nil
}
