// Package domain contains the core domain entities used by the provisioning
// service. These types represent the business concepts (provisioned users)
// and are intentionally free of infrastructure concerns so they can be shared
// across packages.
package domain
