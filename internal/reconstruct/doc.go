// Package reconstruct rebuilds nested read models from flat store rows:
// media enrichment of order lines and grouping of lines into orders.
package reconstruct
