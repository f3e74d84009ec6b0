package clubsite

import "embed"

// EmbeddedAssets holds the default stylesheet served at /public/site.css.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
