package notificationengine

import (
	"log/slog"

	httpadapter "meridian/contexts/field-operations/notification-engine/adapters/http"
	"meridian/contexts/field-operations/notification-engine/adapters/memory"
	"meridian/contexts/field-operations/notification-engine/application"
	"meridian/contexts/field-operations/notification-engine/application/workers"
	"meridian/contexts/field-operations/notification-engine/ports"
)

type Module struct {
	Handler  httpadapter.Handler
	Service  application.Service
	Consumer workers.EventConsumer
	Store    *memory.Store
}

type Dependencies struct {
	Notifications ports.NotificationRepository
	Rules         ports.RuleStore
	Directory     ports.UserDirectory
	Tasks         ports.TaskReader
	Leads         ports.LeadReader
	WorkOrders    ports.WorkOrderReader
	Conversations ports.ConversationReader
	Publisher     ports.EventPublisher
	Subscriber    ports.EventSubscriber
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	Logger        *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := application.Service{
		Repo:      deps.Notifications,
		Rules:     deps.Rules,
		Directory: deps.Directory,
		Resolvers: application.Resolvers{
			Directory:     deps.Directory,
			Tasks:         deps.Tasks,
			Leads:         deps.Leads,
			WorkOrders:    deps.WorkOrders,
			Conversations: deps.Conversations,
			Logger:        deps.Logger,
		},
		Publisher: deps.Publisher,
		Clock:     deps.Clock,
		IDs:       deps.IDGen,
		Logger:    deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Notifications: service,
			Logger:        deps.Logger,
		},
		Service: service,
		Consumer: workers.EventConsumer{
			Service:    service,
			Subscriber: deps.Subscriber,
			Logger:     deps.Logger,
		},
	}
}

// NewInMemoryModule wires the engine entirely on the in-memory store, seeded
// with the sample tenant. Used by tests and the local sandbox.
func NewInMemoryModule(publisher ports.EventPublisher, subscriber ports.EventSubscriber, logger *slog.Logger) Module {
	store := memory.NewStore()
	memory.SeedSampleData(store)
	module := NewModule(Dependencies{
		Notifications: store,
		Rules:         store,
		Directory:     store,
		Tasks:         store,
		Leads:         store,
		WorkOrders:    store,
		Conversations: store,
		Publisher:     publisher,
		Subscriber:    subscriber,
		Clock:         store,
		IDGen:         store,
		Logger:        logger,
	})
	module.Store = store
	return module
}
