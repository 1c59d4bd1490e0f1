package shaders

import (
	_ "embed"
)

//go:embed terrain.wgsl
var TerrainWGSL string

//go:embed identity.wgsl
var IdentityWGSL string
