// Package repository exposes typed accessors for each entity,
// abstracting the client's model lookup away from the service layer.
package repository
