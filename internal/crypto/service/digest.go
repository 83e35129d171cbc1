package service

import (
	"fmt"

	"github.com/multiformats/go-multihash"
)

// ContentDigest returns a self-describing SHA2-256 multihash of data.
// It is used to detect whether a key's container changed on disk since it was
// last loaded or saved.
func ContentDigest(data []byte) ([]byte, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return nil, fmt.Errorf("failed to compute content digest: %w", err)
	}
	return []byte(mh), nil
}
