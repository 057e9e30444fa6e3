// Package entities declares the Satellite resource kinds on the core engine.
// Kinds are plain declarations: every behavior lives in core.
//
//	org := core.MustNew(entities.Organization, cfg, map[string]any{"name": "Default"})
//	created, err := engine.Create(ctx, org, core.CreateOptions{})
package entities

import "github.com/preslavrachev/nailgun/core"

// Catalog holds every kind declared by this package
var Catalog = NewRegistry()

// NewRegistry declares the full catalog in a fresh registry
func NewRegistry() *core.Registry {
	reg := core.NewRegistry()
	declareContent(reg)
	declareHosts(reg)
	declareUsers(reg)
	declareTasks(reg)
	return reg
}

// Kinds of the default catalog
var (
	Architecture           = Catalog.MustKind("Architecture")
	ContentView            = Catalog.MustKind("ContentView")
	ContentViewVersion     = Catalog.MustKind("ContentViewVersion")
	DockerComputeResource  = Catalog.MustKind("DockerComputeResource")
	Domain                 = Catalog.MustKind("Domain")
	ForemanTask            = Catalog.MustKind("ForemanTask")
	GPGKey                 = Catalog.MustKind("GPGKey")
	Host                   = Catalog.MustKind("Host")
	HostGroup              = Catalog.MustKind("HostGroup")
	Interface              = Catalog.MustKind("Interface")
	LibvirtComputeResource = Catalog.MustKind("LibvirtComputeResource")
	LifecycleEnvironment   = Catalog.MustKind("LifecycleEnvironment")
	Location               = Catalog.MustKind("Location")
	OperatingSystem        = Catalog.MustKind("OperatingSystem")
	Organization           = Catalog.MustKind("Organization")
	Product                = Catalog.MustKind("Product")
	Repository             = Catalog.MustKind("Repository")
	Role                   = Catalog.MustKind("Role")
	Subnet                 = Catalog.MustKind("Subnet")
	SyncPlan               = Catalog.MustKind("SyncPlan")
	User                   = Catalog.MustKind("User")
	UserGroup              = Catalog.MustKind("UserGroup")
)
