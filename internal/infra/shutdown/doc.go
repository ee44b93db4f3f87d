// Package shutdown runs ordered cleanup hooks when the process is asked
// to stop, by SIGINT/SIGTERM or programmatically.
//
// Usage:
//
//	h := shutdown.NewHandler(10*time.Second, logger)
//	h.OnShutdown("store", store.Close)
//	err := h.Wait(ctx)
package shutdown
