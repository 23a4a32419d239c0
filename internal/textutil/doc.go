// Package textutil reduces free-form names to tokens safe for scratch
// directory paths.
package textutil
