// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

// Tenant is a customer organization served by this process. Each tenant owns an
// isolated database and is addressed by the first label of the request host.
type Tenant struct {
	Subdomain string // Unique key, e.g. "acme" for acme.example.com.
	Database  string // Name of the tenant's database on the tenant cluster.
}
