// Package router keeps a table of ring members and answers key placement
// queries for a hosting service. It exposes the table over gRPC as the
// hashring.v1.Ring service.
//
// The router only computes placement. It never dials members, moves data
// or tracks member health.
package router
