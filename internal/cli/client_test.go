package cli

import "testing"

func TestEnvOr(t *testing.T) {
	t.Setenv("AGENTBUS_TEST_KEY", "from-env")
	if got := envOr("AGENTBUS_TEST_KEY", "fallback"); got != "from-env" {
		t.Fatalf("got %q", got)
	}
	if got := envOr("AGENTBUS_TEST_KEY_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("got %q", got)
	}
}
