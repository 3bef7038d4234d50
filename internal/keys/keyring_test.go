package keys

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"sentra/pkg/platform/sentinel"
)

// =============================================================================
// Keyring Test Suite
// =============================================================================

type KeyringSuite struct {
	suite.Suite
	keyring *Keyring
}

func TestKeyringSuite(t *testing.T) {
	suite.Run(t, new(KeyringSuite))
}

func (s *KeyringSuite) SetupTest() {
	var err error
	s.keyring, err = New("test-master-secret", "k1")
	s.Require().NoError(err)
}

func (s *KeyringSuite) TestNew() {
	s.Run("empty master secret returns error", func() {
		_, err := New("", "k1")
		s.Error(err)
	})

	s.Run("empty key id returns error", func() {
		_, err := New("secret", "")
		s.Error(err)
	})

	s.Run("initial key is active and 32 bytes", func() {
		keyID, key := s.keyring.Active()
		s.Equal("k1", keyID)
		s.Len(key, 32)
	})
}

func (s *KeyringSuite) TestDerivation() {
	s.Run("same secret and id derive the same key", func() {
		other, err := New("test-master-secret", "k1")
		s.Require().NoError(err)

		_, a := s.keyring.Active()
		_, b := other.Active()
		s.Equal(a, b)
	})

	s.Run("different key ids derive independent keys", func() {
		s.Require().NoError(s.keyring.Rotate("test-master-secret", "k2"))

		k1, err := s.keyring.Lookup("k1")
		s.Require().NoError(err)
		k2, err := s.keyring.Lookup("k2")
		s.Require().NoError(err)
		s.NotEqual(k1, k2)
	})
}

func (s *KeyringSuite) TestLookup() {
	s.Run("unknown id returns not found", func() {
		_, err := s.keyring.Lookup("k99")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *KeyringSuite) TestRotate() {
	s.Run("rotation switches the active key and keeps the old one", func() {
		s.Require().NoError(s.keyring.Rotate("test-master-secret", "k2"))
		s.Equal("k2", s.keyring.ActiveKeyID())

		_, err := s.keyring.Lookup("k1")
		s.NoError(err)
	})

	s.Run("rotating back to an existing id reuses its material", func() {
		s.Require().NoError(s.keyring.Rotate("test-master-secret", "k2"))
		k2First, err := s.keyring.Lookup("k2")
		s.Require().NoError(err)

		s.Require().NoError(s.keyring.Rotate("test-master-secret", "k1"))
		s.Require().NoError(s.keyring.Rotate("test-master-secret", "k2"))
		k2Second, err := s.keyring.Lookup("k2")
		s.Require().NoError(err)
		s.Equal(k2First, k2Second)
	})

	s.Run("concurrent lookups during rotation are safe", func() {
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, _ = s.keyring.Lookup("k1")
			}()
			go func() {
				defer wg.Done()
				_ = s.keyring.Rotate("test-master-secret", "k3")
			}()
		}
		wg.Wait()
		_, err := s.keyring.Lookup("k3")
		s.NoError(err)
	})
}
