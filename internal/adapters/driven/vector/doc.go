// Package vector holds the similarity maths shared by the vector index
// implementations in its subpackages.
//
//   - flat: exact brute-force scan, the default
//   - lsh: random-hyperplane locality-sensitive hashing, approximate
//
// Both build immutable indexes that are safe for concurrent queries.
package vector
