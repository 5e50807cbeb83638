// Package tokenguard implements refresh-token rotation with breach
// detection, a JWT access-token blacklist, and a risk-scored security event
// trail, all backed by Redis.
//
// Refresh tokens are opaque single-use secrets organized into families: one
// family per login session, one version per rotation. Presenting a token a
// second time outside the concurrency grace window is treated as theft and
// revokes the whole family, including the access tokens minted along the way.
//
// Construction goes through the builder:
//
//	engine, err := tokenguard.New().
//		WithConfig(cfg).
//		WithRedis(client).
//		Build()
//	if err != nil {
//		...
//	}
//	defer engine.Close()
//
// All token state lives in Redis; nothing mutable is cached in process
// memory, so any number of engine instances can share one store.
package tokenguard
