// Package registry builds stores and parsers from configuration.
//
// Components are selected by a TypeOptions value: the registered type name plus a
// free-form option map. The map is decoded into the typed options of the component
// with mapstructure (weakly typed, durations accepted as strings, unknown keys
// rejected). Registries are explicit maps from name to constructor, new backends are
// added with Register.
package registry
