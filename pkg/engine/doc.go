// Package engine implements the schema and record stores of the flextable
// engine. Both stores are written purely against the types.Backend storage
// interface and the validate package; they hold no caches, so a schema
// mutation is visible to the next record write immediately.
package engine
