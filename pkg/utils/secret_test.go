package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashSecret(t *testing.T) {
	req := require.New(t)
	hash, err := HashSecret("operator-key")
	req.NoError(err)
	req.NotEqual("operator-key", hash)

	req.True(CheckSecret("operator-key", hash))
	req.False(CheckSecret("operator-kez", hash))
	req.False(CheckSecret("", hash))
	req.False(CheckSecret("operator-key", ""))
}
