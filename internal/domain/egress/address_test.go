package egress

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAndValidateRejectsLoopback(t *testing.T) {
	_, err := ParseAndValidate("http://127.0.0.1/secret")
	require.Error(t, err)
}

func TestParseAndValidateRejectsRFC1918(t *testing.T) {
	_, err := ParseAndValidate("http://10.0.0.5/")
	require.Error(t, err)

	_, err = ParseAndValidate("http://192.168.1.1/")
	require.Error(t, err)
}

func TestParseAndValidateRejectsNonHTTPScheme(t *testing.T) {
	_, err := ParseAndValidate("file:///etc/passwd")
	require.Error(t, err)
}

func TestParseAndValidateAllowsPublicHTTPS(t *testing.T) {
	u, err := ParseAndValidate("https://api.github.com/repos")
	require.NoError(t, err)
	require.Equal(t, "api.github.com", u.Hostname())
}

func TestHostAllowedExactMatchDefaultPort(t *testing.T) {
	require.True(t, HostAllowed([]string{"api.github.com"}, "https", "api.github.com", ""))
	require.False(t, HostAllowed([]string{"api.github.com"}, "https", "api.github.com", "8443"))
}

func TestHostAllowedWildcard(t *testing.T) {
	require.True(t, HostAllowed([]string{"*.example.com"}, "https", "sub.example.com", ""))
	require.False(t, HostAllowed([]string{"*.example.com"}, "https", "example.com", ""))
	require.False(t, HostAllowed([]string{"*.example.com"}, "https", "deep.sub.example.com", ""))
}

func TestHostAllowedExplicitPort(t *testing.T) {
	require.True(t, HostAllowed([]string{"internal.example.com:8443"}, "https", "internal.example.com", "8443"))
	require.False(t, HostAllowed([]string{"internal.example.com:8443"}, "https", "internal.example.com", "9443"))
}

func TestHostAllowedRejectsUnlisted(t *testing.T) {
	require.False(t, HostAllowed([]string{"api.github.com"}, "https", "evil.example.com", ""))
}

func TestIntersectAllowlists(t *testing.T) {
	out := IntersectAllowlists([]string{"api.github.com", "evil.com"}, []string{"api.github.com", "example.com"})
	require.Equal(t, []string{"api.github.com"}, out)
}
