// Package domain holds the core entities of the campaign platform: lists,
// subscribers, campaigns with their block-structured content, and import
// jobs. Types here are plain structs with no storage or transport concerns;
// lifecycle rules are expressed as pure functions of entity state.
package domain
