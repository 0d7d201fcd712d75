// Package models contains GORM persistence models that map domain aggregates
// to database tables. Models convert to and from domain entities via
// ToDomain/FromDomain; domain code never sees GORM tags.
package models
