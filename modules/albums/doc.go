// Package albums is the album CRUD module. It leans on database row
// security for tenant scoping: only inserts name the tenant, every other
// statement runs unfiltered against the primed connection.
package albums
