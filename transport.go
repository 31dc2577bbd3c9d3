package mcpcheck

import "github.com/wagiedev/mcpcheck/internal/config"

// Transport is the byte-level boundary to the tool server's standard
// streams. Implement this to provide custom transports for testing,
// mocking, or alternative process launchers.
//
// The default implementation spawns a subprocess.
// Custom transports can be injected via WithTransport.
type Transport = config.Transport
