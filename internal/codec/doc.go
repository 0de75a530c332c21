// Package codec converts store contents to and from files: CSV sale
// uploads, JSON backups, and flattened XLSX/CSV exports.
//
// Decoding never touches the store. Decoders return rows for the import
// functions of package sales, and any malformed input is reported as
// sales.ErrCodec.
package codec
