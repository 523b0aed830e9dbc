// Package share encodes editor contents into share links.
//
// Code is lz-string compressed into the URI-safe alphabet and carried in
// the "code" query parameter. Decoding is forgiving: anything that does
// not decompress to text yields an empty string so a bad link opens an
// empty editor instead of an error.
package share
