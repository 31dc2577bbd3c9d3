package mcpcheck

import (
	"context"
	"fmt"
	"time"
)

// WithClient manages client lifecycle with automatic cleanup.
//
// This helper creates a client, starts it with the provided options,
// performs the initialize handshake, executes the callback function, and
// closes the client when done.
//
// If the callback returns an error, it is returned to the caller.
// If Close() fails, a warning is logged but does not override the callback's error.
//
// Example usage:
//
//	err := mcpcheck.WithClient(ctx, func(c mcpcheck.Client) error {
//	    resp, err := c.CallTool(ctx, "echo", map[string]any{"text": "hi"}, 0)
//	    if err != nil {
//	        return err
//	    }
//	    // inspect resp...
//	    return nil
//	},
//	    mcpcheck.WithCommand("./publish/server"),
//	    mcpcheck.WithLogger(log),
//	)
func WithClient(ctx context.Context, fn func(Client) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	options := applyOptions(opts)

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	client := NewClient()
	if err := client.Start(ctx, opts...); err != nil {
		return fmt.Errorf("failed to start client: %w", err)
	}

	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout(options))
		defer cancel()

		if closeErr := client.Close(closeCtx); closeErr != nil {
			log.Warn("failed to close client", "error", closeErr)
		}
	}()

	if _, err := client.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	return fn(client)
}

// closeTimeout leaves room for the interrupt grace period plus the kill.
func closeTimeout(options *Options) time.Duration {
	return options.WithDefaults().TerminateGrace + 5*time.Second
}
