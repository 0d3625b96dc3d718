// Package catalog loads the backend's framework and category lists once at
// startup. A failed load leaves the catalog empty, in which case
// auto-selection is the only framework choice offered.
package catalog
