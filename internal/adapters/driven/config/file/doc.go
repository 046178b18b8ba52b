// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data under the memoir home directory (~/.memoir).
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage with MEMOIR_* environment overrides
//   - PromptStore: user-editable prompt templates with embedded defaults
//   - PromptWatcher: reloads the PromptStore when prompt files change
package file
