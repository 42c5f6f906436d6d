// Package parser decodes single raw records of a bulk source into
// (ChangeType, Key, Value) triples.
//
// Three wire formats share the Parser interface:
//
//   - LineParser: key<sep>value<sep>changeType? with a configurable separator
//     (default tab). The change type field is optional and defaults to Add.
//   - JSONParser: one JSON document per record. The key is assembled from one or
//     more dotted field paths, the value is the whole document.
//   - BSONParser: one BSON document per record, same rules as JSON.
//
// Change types are inferred the same way everywhere: numbers 1, 2 and 3 map to
// Add, Update and Delete, any other number to Unknown; text is matched case
// insensitively against add, update and delete, anything else is Unknown. JSON
// and BSON records select their change type through ordered rules that compare
// document fields against expected values.
//
// A record that cannot be decoded at all fails with a store.CodeParser error. A
// line with fewer than two fields is not an error: it parses to an Unknown record
// with zero key and value, which loaders skip.
package parser
