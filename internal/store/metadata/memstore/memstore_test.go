package memstore

import (
	"testing"

	"github.com/cloudvault/vaultd/internal/store/metadata/storetest"
)

func TestMemStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Backend {
		s := New()
		return storetest.Backend{Files: s, Dirs: s}
	})
}
