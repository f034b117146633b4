package serengine

import "embed"

//go:embed web/*
var WebFiles embed.FS

//go:embed schema.sql
var SchemaSQL []byte
