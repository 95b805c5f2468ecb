// Package types defines the Backend interface, the Table, PropertyDefinition
// and Record entity types, the property type registry, and standard error
// types for the flextable storage engine.
package types
