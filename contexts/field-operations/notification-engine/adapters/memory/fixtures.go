package memory

import "meridian/contexts/field-operations/notification-engine/ports"

// SeedSampleData loads a small field-operations tenant: a support task with
// observers, a sales lead, a work order linked to the task, and a one-to-one
// conversation. Used by the in-memory module and the local sandbox.
func SeedSampleData(store *Store) {
	store.AddUser(ports.UserProfile{UserID: "usr_alex", FullName: "Álex Moreira", Email: "alex.moreira@meridian.example", Sector: "support", Role: "agent", Active: true})
	store.AddUser(ports.UserProfile{UserID: "usr_ana_souza", FullName: "Ana Souza", Email: "ana.souza@meridian.example", Sector: "support", Role: "agent", Active: true})
	store.AddUser(ports.UserProfile{UserID: "usr_ana_lima", FullName: "Ana Lima", Email: "ana.lima@meridian.example", Sector: "sales", Role: "agent", Active: true})
	store.AddUser(ports.UserProfile{UserID: "usr_bruno", FullName: "Bruno Tavares", Email: "bruno.tavares@meridian.example", Sector: "sales", Role: "agent", Active: true})
	store.AddUser(ports.UserProfile{UserID: "usr_clara", FullName: "Clara Nunes", Email: "clara.nunes@meridian.example", Sector: "support", Role: "supervisor", Active: true})
	store.AddUser(ports.UserProfile{UserID: "usr_diego", FullName: "Diego Fonseca", Email: "diego.fonseca@meridian.example", Sector: "works", Role: "agent", Active: true})
	store.AddUser(ports.UserProfile{UserID: "usr_elisa", FullName: "Elisa Prado", Email: "elisa.prado@meridian.example", Sector: "works", Role: "agent", Active: true})
	store.AddUser(ports.UserProfile{UserID: "usr_marta", FullName: "Marta Campos", Email: "marta.campos@meridian.example", Sector: "sales", Role: ports.RoleAdministrator, Active: true})

	store.AddTask(ports.TaskSnapshot{
		TaskID:      "task_001",
		AssigneeID:  "usr_alex",
		CreatorID:   "usr_clara",
		Sector:      "support",
		ObserverIDs: []string{"usr_diego", "usr_elisa"},
	})
	store.SetChecklistResponsibles("task_001", []string{"usr_ana_souza"})

	store.AddLead(ports.LeadSnapshot{
		LeadID:       "lead_001",
		OwnerID:      "usr_bruno",
		SupervisorID: "usr_marta",
		Sector:       "sales",
	})

	store.AddWorkOrder(ports.WorkOrderSnapshot{
		WorkOrderID: "wo_001",
		CreatorID:   "usr_clara",
	})
	store.LinkTask("wo_001", "task_001")

	store.AddConversation(ports.ConversationSnapshot{
		ConversationID: "conv_001",
		UserA:          "usr_alex",
		UserB:          "usr_bruno",
	})
}
