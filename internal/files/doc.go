// Package files discovers fermentation logs on disk.
package files
