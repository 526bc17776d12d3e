// Package core holds the peer registration domain: the Storage contract and its
// in-memory and cached implementations, the privilege-checking Registry, the
// provenance verifier and the boundary Service. Storage backends live in
// sibling packages and depend on core, never the other way around.
package core
