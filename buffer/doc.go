/*
Package buffer describes the caller owned float64 memory exchanged with the
linear algebra layer.

A Buffer is either a vector (rank 1) or a row-major matrix (rank 2). Views
built by the wrapper package borrow a Buffer's Data slice for the duration
of a single call, results are always returned as new Buffers.
*/
package buffer
