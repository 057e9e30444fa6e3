package entities

import "github.com/preslavrachev/nailgun/core"

func declareUsers(reg *core.Registry) {
	reg.Register("Role").
		WithField("name", core.StringField().Required(true).Unique(true).Charset(core.CharsetAlphanumeric).Length(2, 30))

	reg.Register("User").
		WithField("login", core.StringField().Required(true).Unique(true).Length(1, 100).Charset(core.CharsetAlphanumeric)).
		WithField("mail", core.EmailField().Required(true)).
		WithField("password", core.StringField().Required(true)).
		WithField("firstname", core.StringField().Length(1, 50)).
		WithField("lastname", core.StringField().Length(1, 50)).
		WithField("admin", core.BooleanField()).
		WithField("default_location", core.OneToOne("Location")).
		WithField("default_organization", core.OneToOne("Organization")).
		WithField("location", core.OneToMany("Location")).
		WithField("organization", core.OneToMany("Organization")).
		WithField("role", core.OneToMany("Role")).
		WithReadIgnore("password")

	reg.Register("UserGroup").
		WithAPIPath("api/v2/usergroups").
		WithWrapperKey("usergroup").
		WithField("name", core.StringField().Required(true)).
		WithField("admin", core.BooleanField()).
		WithField("user", core.OneToMany("User").Required(true)).
		WithField("role", core.OneToMany("Role")).
		WithField("usergroup", core.OneToMany("UserGroup"))
}
