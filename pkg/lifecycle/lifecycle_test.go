package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessLifecycleCancelsWithCause(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())
	lc := NewProcessLifecycle(cancel)

	lc.RebootToBootloader("BOOT command")
	lc.Reboot("ignored")

	<-ctx.Done()
	req, ok := RequestFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, ModeBootloader, req.Mode)
	assert.Equal(t, "BOOT command", req.Reason)
	assert.Equal(t, ExitCodeBootloader, req.Mode.ExitCode())
}

func TestRequestFromContextWithoutReboot(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := RequestFromContext(ctx)
	assert.False(t, ok)
	assert.Equal(t, ExitCodeReboot, ModeReboot.ExitCode())
	assert.Equal(t, "reboot", ModeReboot.String())
}
