package sqlstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cloudvault/vaultd/internal/store/metadata/storetest"
)

func TestSQLStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Backend {
		s, err := Open(":memory:")
		require.NoError(t, err)
		return storetest.Backend{Files: s, Dirs: s}
	})
}
