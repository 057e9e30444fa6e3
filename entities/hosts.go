package entities

import "github.com/preslavrachev/nailgun/core"

// Families accepted for operating systems
var osFamilies = []any{
	"AIX", "Archlinux", "Debian", "Freebsd", "Gentoo", "Junos",
	"Redhat", "Solaris", "Suse", "Windows",
}

func declareHosts(reg *core.Registry) {
	reg.Register("Location").
		WithField("name", core.StringField().Required(true)).
		WithField("description", core.StringField()).
		WithField("organization", core.OneToMany("Organization")).
		WithField("domain", core.OneToMany("Domain")).
		WithField("subnet", core.OneToMany("Subnet")).
		WithField("hostgroup", core.OneToMany("HostGroup")).
		WithField("user", core.OneToMany("User")).
		WithField("compute_resource", core.OneToMany("LibvirtComputeResource", "DockerComputeResource"))

	reg.Register("Domain").
		WithField("name", core.StringField().Required(true).Unique(true).Charset(core.CharsetAlphanumeric)).
		WithField("fullname", core.StringField()).
		WithField("domain_parameters_attributes", core.ListField()).
		WithField("location", core.OneToMany("Location")).
		WithField("organization", core.OneToMany("Organization")).
		WithReadAlias("parameters", "domain_parameters_attributes")

	reg.Register("Subnet").
		WithField("name", core.StringField().Required(true)).
		WithField("network", core.IPAddressField().Required(true)).
		WithField("mask", core.NetmaskField().Required(true)).
		WithField("gateway", core.StringField()).
		WithField("dns_primary", core.IPAddressField()).
		WithField("dns_secondary", core.IPAddressField()).
		WithField("from", core.IPAddressField()).
		WithField("to", core.IPAddressField()).
		WithField("vlanid", core.StringField()).
		WithField("boot_mode", core.StringField().Choices("Static", "DHCP").Default("DHCP")).
		WithField("ipam", core.StringField().Choices("DHCP", "Internal DB").Default("DHCP")).
		WithField("domain", core.OneToMany("Domain")).
		WithField("location", core.OneToMany("Location")).
		WithField("organization", core.OneToMany("Organization")).
		WithReadIgnoreBefore("6.1", "boot_mode", "ipam", "location", "organization")

	reg.Register("Architecture").
		WithField("name", core.StringField().Required(true)).
		WithField("operatingsystem", core.OneToMany("OperatingSystem"))

	reg.Register("OperatingSystem").
		WithAPIPath("api/v2/operatingsystems").
		WithWrapperKey("operatingsystem").
		WithField("name", core.StringField().Required(true)).
		WithField("major", core.StringField().Required(true).Length(1, 5).Charset(core.CharsetNumeric)).
		WithField("minor", core.StringField().Length(1, 16).Charset(core.CharsetNumeric)).
		WithField("description", core.StringField()).
		WithField("family", core.StringField().Choices(osFamilies...)).
		WithField("release_name", core.StringField()).
		WithField("architecture", core.OneToMany("Architecture"))

	computeResource := func(name, provider string) *core.KindBuilder {
		return reg.Register(name).
			WithAPIPath("api/v2/compute_resources").
			WithWrapperKey("compute_resource").
			WithField("name", core.StringField().Required(true).Charset(core.CharsetAlphanumeric)).
			WithField("description", core.StringField()).
			WithField("provider", core.StringField().Required(true).Default(provider)).
			WithField("provider_friendly_name", core.StringField().Default(provider)).
			WithField("url", core.URLField().Required(true)).
			WithField("location", core.OneToMany("Location")).
			WithField("organization", core.OneToMany("Organization"))
	}
	computeResource("LibvirtComputeResource", "Libvirt").
		WithField("display_type", core.StringField().Required(true).Choices("VNC", "SPICE")).
		WithField("set_console_password", core.BooleanField())
	computeResource("DockerComputeResource", "Docker").
		WithField("email", core.EmailField()).
		WithField("user", core.StringField()).
		WithField("password", core.StringField()).
		WithReadIgnore("password")

	reg.Register("HostGroup").
		WithAPIPath("api/v2/hostgroups").
		WithWrapperKey("hostgroup").
		WithField("name", core.StringField().Required(true)).
		WithField("architecture", core.OneToOne("Architecture")).
		WithField("domain", core.OneToOne("Domain")).
		WithField("operatingsystem", core.OneToOne("OperatingSystem")).
		WithField("subnet", core.OneToOne("Subnet")).
		WithField("parent", core.OneToOne("HostGroup"))

	reg.Register("Host").
		WithField("name", core.StringField().Required(true).Charset(core.CharsetAlpha)).
		WithField("organization", core.OneToOne("Organization").Required(true)).
		WithField("location", core.OneToOne("Location").Required(true)).
		WithField("mac", core.MACAddressField()).
		WithField("ip", core.StringField()).
		WithField("root_pass", core.StringField().Length(8, 30)).
		WithField("build", core.BooleanField()).
		WithField("enabled", core.BooleanField()).
		WithField("managed", core.BooleanField()).
		WithField("owner_type", core.StringField().Choices("User", "Usergroup")).
		WithField("provision_method", core.StringField()).
		WithField("host_parameters_attributes", core.ListField()).
		WithField("architecture", core.OneToOne("Architecture")).
		WithField("domain", core.OneToOne("Domain")).
		WithField("hostgroup", core.OneToOne("HostGroup")).
		WithField("operatingsystem", core.OneToOne("OperatingSystem")).
		WithField("owner", core.OneToOne("User")).
		WithField("subnet", core.OneToOne("Subnet")).
		WithField("compute_resource", core.OneToOne("LibvirtComputeResource", "DockerComputeResource")).
		WithReadAlias("parameters", "host_parameters_attributes").
		WithReadIgnore("root_pass").
		WithReadIgnoreBefore("6.1", "compute_resource")

	reg.Register("Interface").
		WithField("name", core.StringField().Required(true)).
		WithField("host", core.OneToOne("Host").Required(true)).
		WithField("type", core.StringField().Required(true).Choices("interface", "bmc", "bond", "bridge").Default("interface")).
		WithField("ip", core.IPAddressField().Required(true)).
		WithField("mac", core.MACAddressField().Required(true)).
		WithField("provider", core.StringField()).
		WithField("username", core.StringField()).
		WithField("password", core.StringField()).
		WithField("domain", core.OneToOne("Domain")).
		WithField("subnet", core.OneToOne("Subnet")).
		NestedUnder("host", "interfaces").
		WithReadIgnore("password")
}
