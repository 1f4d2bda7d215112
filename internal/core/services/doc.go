// Package services implements the driving port interfaces.
//
// IndexerService runs the extract, split, embed pipeline and keeps the
// document store and vector index consistent. QueryEngine runs the
// catalog-first retrieval flow with vector fallback. SettingsService
// bridges typed application settings onto the key/value config store.
//
// Services orchestrate driven ports only; they hold no infrastructure
// code themselves.
package services
