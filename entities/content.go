package entities

import (
	"net/http"

	"github.com/preslavrachev/nailgun/core"
)

// FakeYumRepo is the feed new repositories point at unless told otherwise
const FakeYumRepo = "http://inecas.fedorapeople.org/fakerepos/zoo3/"

func declareContent(reg *core.Registry) {
	reg.Register("Organization").
		WithAPIPath("katello/api/v2/organizations").
		WithField("name", core.StringField().Required(true).Unique(true)).
		WithField("label", core.StringField().Charset(core.CharsetAlpha)).
		WithField("description", core.StringField()).
		WithField("title", core.StringField()).
		WithSubPath("products", "products", core.ScopeSelf).
		WithSubPath("subscriptions", "subscriptions", core.ScopeSelf).
		WithSubPath("subscriptions/*", "subscriptions/*", core.ScopeSelf).
		WithSubPath("sync_plans", "sync_plans", core.ScopeSelf).
		WithAction(core.NewAction("refresh_manifest", "Refresh manifest").
			Path("subscriptions/refresh_manifest").Async().Build()).
		WithAction(core.NewAction("delete_manifest", "Delete manifest").
			Method(http.MethodPost).Path("subscriptions/delete_manifest").Async().Build()).
		WithAsyncDelete()

	reg.Register("GPGKey").
		WithAPIPath("katello/api/v2/gpg_keys").
		WithField("name", core.StringField().Required(true)).
		WithField("content", core.StringField().Required(true)).
		WithField("organization", core.OneToOne("Organization").Required(true))

	reg.Register("SyncPlan").
		WithAPIPath("katello/api/v2/sync_plans").
		WithField("name", core.StringField().Required(true)).
		WithField("description", core.StringField()).
		WithField("enabled", core.BooleanField().Required(true)).
		WithField("interval", core.StringField().Required(true).Choices("hourly", "daily", "weekly")).
		WithField("sync_date", core.DateTimeField().Required(true)).
		WithField("organization", core.OneToOne("Organization").Required(true)).
		NestedUnder("organization", "sync_plans")

	reg.Register("Product").
		WithAPIPath("katello/api/v2/products").
		WithField("name", core.StringField().Required(true)).
		WithField("label", core.StringField()).
		WithField("description", core.StringField()).
		WithField("organization", core.OneToOne("Organization").Required(true)).
		WithField("gpg_key", core.OneToOne("GPGKey")).
		WithField("sync_plan", core.OneToOne("SyncPlan")).
		WithSubPath("repository_sets*", "repository_sets*", core.ScopeSelf).
		WithAction(core.NewAction("sync", "Synchronize").Method(http.MethodPost).Async().Build()).
		WithReadIgnoreBefore("6.1", "organization").
		WithAsyncDelete()

	reg.Register("Repository").
		WithAPIPath("katello/api/v2/repositories").
		WithField("name", core.StringField().Required(true)).
		WithField("label", core.StringField()).
		WithField("product", core.OneToOne("Product").Required(true)).
		WithField("content_type", core.StringField().Required(true).
			Choices("puppet", "yum", "file", "docker").Default("yum")).
		WithField("url", core.URLField().Required(true).Default(FakeYumRepo)).
		WithField("checksum_type", core.StringField().Choices("sha1", "sha256")).
		WithField("docker_upstream_name", core.StringField().Default("busybox")).
		WithField("gpg_key", core.OneToOne("GPGKey")).
		WithField("unprotected", core.BooleanField()).
		WithSubPath("upload_content", "upload_content", core.ScopeSelf).
		WithAction(core.NewAction("sync", "Synchronize").Method(http.MethodPost).Async().Build()).
		WithAsyncDelete()

	reg.Register("LifecycleEnvironment").
		WithAPIPath("katello/api/v2/environments").
		WithField("name", core.StringField().Required(true)).
		WithField("description", core.StringField()).
		WithField("organization", core.OneToOne("Organization").Required(true)).
		WithField("prior", core.OneToOne("LifecycleEnvironment"))

	reg.Register("ContentView").
		WithAPIPath("katello/api/v2/content_views").
		WithField("name", core.StringField().Required(true)).
		WithField("label", core.StringField()).
		WithField("description", core.StringField()).
		WithField("composite", core.BooleanField()).
		WithField("organization", core.OneToOne("Organization").Required(true)).
		WithField("repository", core.OneToMany("Repository")).
		WithField("component", core.OneToMany("ContentView")).
		WithSubPath("content_view_versions", "content_view_versions", core.ScopeSelf).
		WithAction(core.NewAction("publish", "Publish").Method(http.MethodPost).Async().Build()).
		WithAction(core.NewAction("copy", "Copy").Method(http.MethodPost).Build())

	reg.Register("ContentViewVersion").
		WithAPIPath("katello/api/v2/content_view_versions").
		WithField("version", core.StringField()).
		WithField("content_view", core.OneToOne("ContentView")).
		WithField("environment", core.OneToMany("LifecycleEnvironment")).
		WithOperations(core.OpRead | core.OpDelete | core.OpSearch).
		WithAction(core.NewAction("promote", "Promote").Method(http.MethodPost).Async().Build()).
		WithAsyncDelete()
}
