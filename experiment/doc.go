// Package experiment measures how well the visual-word independence
// assumption approximates the squared L2 norm of an average.
//
// For N vectors x_i the true value is ‖(1/N) Σ x_i‖² and the approximation
// is Σ ‖x_i‖² / N², which drops every cross term ⟨x_i, x_j⟩. The error
// shrinks when the vectors are independent and zero-mean, and when few of
// their dimensions overlap.
package experiment
