// Package pricing turns a cart subtotal into the checkout price breakdown.
// All arithmetic runs on decimal values and is rounded to cents only when a
// figure is reported, so repeated float error never leaks into a total.
package pricing
