// Package service exposes the HTTP-facing API surface. It translates between
// transport payloads and the biz layer, keeping handlers thin.
package service

import "github.com/google/wire"

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewGenerationService)
