package utils

import (
	"context"
	"fmt"

	"github.com/morler/codeassist/constants/lipgloss"
)

// GracefulShutdown waits for ctx to end, runs cleanup once and cancels.
func GracefulShutdown(ctx context.Context, cancel context.CancelFunc, cleanup func()) {
	<-ctx.Done()
	if cleanup != nil {
		cleanup()
	}
	cancel()
	fmt.Println(lipgloss.Yellow.Render("\n🔄 Session closed."))
}
