// Package configs provides embedded configuration templates for wayfairmcp.
//
// Templates are embedded at build time so `wayfairmcp config init` works from
// any distribution. Configuration precedence (see internal/config Load()):
//  1. Hardcoded defaults
//  2. User config (~/.config/wayfairmcp/config.yaml)
//  3. Project config (.wayfairmcp.yaml)
//  4. Environment variables (WAYFAIRMCP_*)
package configs

import _ "embed"

// UserConfigTemplate is the template for user/machine-level configuration.
// Created by `wayfairmcp config init`.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is the template for a per-directory .wayfairmcp.yaml.
// Created by `wayfairmcp config init --project`.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
