// Package manifest loads project template manifests (template.yaml) and
// validates them against the embedded JSON Schema before any of their
// content is trusted.
package manifest
