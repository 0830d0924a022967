package badgerstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cloudvault/vaultd/internal/store/metadata/storetest"
)

func TestBadgerStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Backend {
		s, err := Open(t.TempDir())
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return storetest.Backend{Files: s, Dirs: s}
	})
}
