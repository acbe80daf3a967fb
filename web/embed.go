// Package web embeds the single page chat client.
package web

import "embed"

//go:embed index.html
var Assets embed.FS
