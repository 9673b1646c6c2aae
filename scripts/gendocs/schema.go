package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/lexo-astro/lexo/internal/cli/config"
	"github.com/lexo-astro/lexo/pkg/schema"
)

// generateSchemaDocs writes the configuration and record family references.
func generateSchemaDocs(outDir string) error {
	log.Printf("Generating schema docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := generateConfigurationDoc(outDir); err != nil {
		return fmt.Errorf("failed to generate configuration.md: %w", err)
	}
	log.Printf("  Generated configuration.md")

	if err := generateFamiliesDoc(outDir); err != nil {
		return fmt.Errorf("failed to generate families.md: %w", err)
	}
	log.Printf("  Generated families.md")

	return nil
}

// ConfigField describes one configuration key.
type ConfigField struct {
	Key     string
	Env     string
	Type    string
	Default string
}

// configFields lists the keys of config.Config in declaration order, with
// their built-in defaults.
func configFields() []ConfigField {
	def := reflect.ValueOf(config.Default()).Elem()
	typ := def.Type()

	fields := make([]ConfigField, 0, typ.NumField())
	for i := range typ.NumField() {
		key := typ.Field(i).Tag.Get("koanf")
		if key == "" {
			continue
		}
		value := fmt.Sprint(def.Field(i).Interface())
		if key == "data_dir" {
			// Platform dependent.
			value = "<user cache dir>/lexo"
		}
		fields = append(fields, ConfigField{
			Key:     key,
			Env:     config.EnvPrefix + strings.ToUpper(key),
			Type:    typ.Field(i).Type.String(),
			Default: value,
		})
	}
	return fields
}

func generateConfigurationDoc(outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Configuration", "lexo configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph("lexo reads `lexo.yaml` from the working directory or from `<user config dir>/lexo/`. " +
		"Keys can be overridden with `LEXO_*` environment variables and with command-line flags.")

	headers := []string{"Key", "Type", "Default", "Environment"}
	var rows [][]string
	for _, f := range configFields() {
		rows = append(rows, []string{InlineCode(f.Key), f.Type, InlineCode(f.Default), InlineCode(f.Env)})
	}
	w.Table(headers, rows)

	w.Header(2, "Example")
	w.CodeBlock("yaml", `# lexo.yaml
data_dir: ~/.cache/lexo
cache_ttl: 168h
http_timeout: 2m
workers: 8
output: text
log_level: info`)

	filename := filepath.Join(outDir, "configuration.md")
	return os.WriteFile(filename, w.Bytes(), 0600)
}

// generateFamiliesDoc documents which archive columns back each canonical
// attribute, per record family.
func generateFamiliesDoc(outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Record Families", "Archive column mapping per catalog table")
	w.GeneratedMarker()

	w.Header(1, "Record Families")
	w.Paragraph("A record's family is detected from its column prefixes, in the order listed below. " +
		"Attributes a family does not report are always `null`.")

	for _, f := range schema.Families() {
		w.Header(2, f.String())

		prefixes := make([]string, 0, len(f.Prefixes()))
		for _, p := range f.Prefixes() {
			prefixes = append(prefixes, InlineCode(p+"*"))
		}
		n := f.Names()
		u := f.Units()
		w.BulletList([]string{
			"Table: " + InlineCode(f.Table()),
			"Column prefixes: " + strings.Join(prefixes, ", "),
			"Host column: " + InlineCode(n.Host),
			fmt.Sprintf("Unit factors: depth x%g, radius x%.6g, duration x%.6g", u.DepthToPPM, u.RadiusToJupiter, u.DurationToDays),
		})

		headers := []string{"Attribute", "Value", "Upper error", "Lower error"}
		var rows [][]string
		for _, a := range schema.Attributes() {
			fields, ok := f.Fields(a)
			if !ok {
				continue
			}
			rows = append(rows, []string{a.String(), InlineCode(fields.Value), codeOrDash(fields.ErrHigh), codeOrDash(fields.ErrLow)})
		}
		w.Table(headers, rows)
	}

	filename := filepath.Join(outDir, "families.md")
	return os.WriteFile(filename, w.Bytes(), 0600)
}

func codeOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return InlineCode(s)
}
