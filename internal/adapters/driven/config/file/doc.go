// Package file provides file-based configuration adapters.
//
// ConfigStore persists settings as TOML in ~/.docatlas/config.toml, flattened
// to dot-notation keys in memory. PromptStore loads user-editable prompt
// templates from ~/.docatlas/prompts/, falling back to embedded defaults.
package file
