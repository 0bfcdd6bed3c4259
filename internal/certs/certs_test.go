package certs

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(t *testing.T, cert tls.Certificate) *x509.Certificate {
	t.Helper()
	require.Len(t, cert.Certificate, 1)
	parsed, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	return parsed
}

func TestStore_LoadOrCreate(t *testing.T) {
	tests := []struct {
		setup     func(t *testing.T, s *Store)
		name      string
		wantReuse bool
	}{
		{
			name:  "creates certificate when none exists",
			setup: func(*testing.T, *Store) {},
		},
		{
			name: "reuses a valid certificate",
			setup: func(t *testing.T, s *Store) {
				_, err := s.LoadOrCreate()
				require.NoError(t, err)
			},
			wantReuse: true,
		},
		{
			name: "replaces corrupt files",
			setup: func(t *testing.T, s *Store) {
				require.NoError(t, os.MkdirAll(s.dir, 0o700))
				require.NoError(t, os.WriteFile(s.certFile, []byte("garbage"), 0o600))
				require.NoError(t, os.WriteFile(s.keyFile, []byte("garbage"), 0o600))
			},
		},
		{
			name: "replaces an expired certificate",
			setup: func(t *testing.T, s *Store) {
				s.now = func() time.Time { return time.Now().Add(-2 * Validity) }
				_, err := s.LoadOrCreate()
				require.NoError(t, err)
				s.now = time.Now
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(filepath.Join(t.TempDir(), "certs"))
			tt.setup(t, store)

			var before []byte
			if tt.wantReuse {
				before, _ = os.ReadFile(store.CertFile())
			}

			cert, err := store.LoadOrCreate()
			require.NoError(t, err)

			parsed := leaf(t, cert)
			assert.NoError(t, parsed.VerifyHostname("localhost"))
			assert.True(t, parsed.NotAfter.After(time.Now()))
			assert.Equal(t, "Vigil Demo Bank", parsed.Subject.Organization[0])

			if tt.wantReuse {
				after, err := os.ReadFile(store.CertFile())
				require.NoError(t, err)
				assert.Equal(t, before, after)
			}
		})
	}
}

func TestStore_FilePermissions(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.LoadOrCreate()
	require.NoError(t, err)

	for _, f := range []string{store.certFile, store.keyFile} {
		info, err := os.Stat(f)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestStore_ServesTLS(t *testing.T) {
	store := NewStore(t.TempDir())
	cert, err := store.LoadOrCreate()
	require.NoError(t, err)

	pool := x509.NewCertPool()
	pem, err := os.ReadFile(store.CertFile())
	require.NoError(t, err)
	require.True(t, pool.AppendCertsFromPEM(pem))

	_, err = leaf(t, cert).Verify(x509.VerifyOptions{DNSName: "localhost", Roots: pool})
	assert.NoError(t, err)
}
