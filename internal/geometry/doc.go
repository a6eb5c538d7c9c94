// Package geometry implements the grid algorithms behind click simulation:
// exact Euclidean distance transforms, 6-connected component extraction,
// topology-preserving thinning, separable Gaussian smoothing, generalized
// geodesic distance and non-overlapping patch tiling.
//
// Every function works on models.Grid values of two or three spatial
// dimensions. Two-dimensional grids are treated as three-dimensional grids
// with a depth of one where that keeps the code paths shared.
package geometry
