// Package confloader loads configuration with koanf.
//
// Sources, lowest to highest priority:
//
//  1. The target struct as passed in (defaults)
//  2. A YAML configuration file
//  3. Environment variables with the TOKVAULT_ prefix
//  4. A map of overrides, usually built from command-line flags
//
// Environment keys use a double underscore between sections so that
// single underscores inside key names survive:
// TOKVAULT_STORAGE__DATA_DIR sets storage.data_dir.
//
// Watcher reports changes to a configuration file using fsnotify.
package confloader
