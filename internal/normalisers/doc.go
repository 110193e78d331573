// Package normalisers reads document files into page texts. Each
// subpackage handles one family of file extensions and implements
// driven.DocumentLoader.
//
// Loaders are registered with a Registry at startup, which picks one by
// file extension.
package normalisers
