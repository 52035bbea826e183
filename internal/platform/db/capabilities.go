package db

// Capabilities records which optional tables the connected schema provides.
// Tenants migrate on their own schedule, so readers must keep working while
// these tables are absent.
type Capabilities struct {
	TaskChecklistItems bool
	WorkOrderTaskLinks bool
}

// DetectCapabilities probes the optional tables once at startup. Adapters
// consult the result instead of discovering undefined-table errors per query.
func DetectCapabilities(p *Postgres) Capabilities {
	if p == nil || p.DB == nil {
		return Capabilities{}
	}
	migrator := p.DB.Migrator()
	return Capabilities{
		TaskChecklistItems: migrator.HasTable("task_checklist_items"),
		WorkOrderTaskLinks: migrator.HasTable("work_order_task_links"),
	}
}
