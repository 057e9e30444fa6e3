package entities

import "github.com/preslavrachev/nailgun/core"

func declareTasks(reg *core.Registry) {
	// Tasks are only ever read by id; the server has no listing for them
	reg.Register("ForemanTask").
		WithAPIPath("foreman_tasks/api/tasks").
		WithField("id", core.StringField()).
		WithField("label", core.StringField()).
		WithField("state", core.StringField()).
		WithField("result", core.StringField()).
		WithField("progress", core.FloatField()).
		WithField("pending", core.BooleanField()).
		WithField("started_at", core.DateTimeField()).
		WithField("ended_at", core.DateTimeField()).
		WithField("humanized", core.DictField()).
		WithOperations(core.OpRead).
		WithSubPath("bulk_search", "bulk_search", core.ScopeBase).
		SelfOnly()
}
