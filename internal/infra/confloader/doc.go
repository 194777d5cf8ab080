// Package confloader loads layered configuration with koanf and watches
// the configuration file for changes.
//
// Priority (highest to lowest):
//
//  1. Command-line flags (LoadMap)
//  2. Environment variables (ACI_ prefix)
//  3. YAML configuration file
//  4. Defaults already present in the target struct
//
// Environment names use a double underscore between levels so keys may
// contain single underscores: ACI_STORAGE__ROOT_DIR sets storage.root_dir.
package confloader
