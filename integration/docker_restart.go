//go:build integration
// +build integration

package integration

import (
	"context"
	"os/exec"
	"testing"
)

var composeService = getenv("E2E_COMPOSE_SERVICE", "order")

// restartOrderContainer bounces the service so the test can check orders
// outlive the process.
func restartOrderContainer(t *testing.T, ctx context.Context) {
	t.Helper()

	cmd := exec.CommandContext(ctx, "docker", "compose", "restart", composeService)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("docker compose restart %s failed: %v\n%s", composeService, err, string(out))
	}
}
