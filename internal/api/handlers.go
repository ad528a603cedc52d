package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/courier/internal/delivery"
	"github.com/ignite/courier/internal/domain"
	"github.com/ignite/courier/internal/mailer"
	"github.com/ignite/courier/internal/pkg/httputil"
	"github.com/ignite/courier/internal/pkg/logger"
	"github.com/ignite/courier/internal/render"
	"github.com/ignite/courier/internal/service/campaign"
	"github.com/ignite/courier/internal/storage"
)

// Store is the data access surface the HTTP handlers need.
// *store.Store satisfies it.
type Store interface {
	CreateList(ctx context.Context, list *domain.List) error
	GetList(ctx context.Context, listID uuid.UUID) (*domain.List, error)
	GetListByShortcode(ctx context.Context, shortcode string) (*domain.List, error)
	GetLists(ctx context.Context) ([]*domain.List, error)
	UpdateList(ctx context.Context, list *domain.List) error
	DeleteList(ctx context.Context, listID uuid.UUID) error
	ListShortcodeExists(ctx context.Context, code string) (bool, error)
	GetListStats(ctx context.Context, listID uuid.UUID) (*domain.ListStats, error)

	CreateSubscriber(ctx context.Context, sub *domain.Subscriber) error
	GetSubscriber(ctx context.Context, subID uuid.UUID) (*domain.Subscriber, error)
	GetSubscriberByEmail(ctx context.Context, listID uuid.UUID, email string) (*domain.Subscriber, error)
	GetSubscribers(ctx context.Context, listID uuid.UUID, limit, offset int) ([]*domain.Subscriber, int, error)
	DeleteSubscriber(ctx context.Context, subID uuid.UUID) error
	VerifySubscriber(ctx context.Context, token string) (*domain.Subscriber, error)

	CreateImport(ctx context.Context, imp *domain.Import) error
	GetImport(ctx context.Context, importID uuid.UUID) (*domain.Import, error)
	GetImports(ctx context.Context, limit int) ([]*domain.Import, error)
}

// Handlers carries the dependencies shared by all HTTP handlers.
type Handlers struct {
	store     Store
	campaigns *campaign.Service
	deliverer *delivery.Deliverer
	files     storage.FileStore
	feeds     *render.FeedFetcher
	mail      mailer.Mailer
	persona   *render.Personalizer
	log       *logger.Logger
}

// NewHandlers wires the handler set.
func NewHandlers(
	store Store,
	campaigns *campaign.Service,
	deliverer *delivery.Deliverer,
	files storage.FileStore,
	feeds *render.FeedFetcher,
	mail mailer.Mailer,
) *Handlers {
	return &Handlers{
		store:     store,
		campaigns: campaigns,
		deliverer: deliverer,
		files:     files,
		feeds:     feeds,
		mail:      mail,
		persona:   render.NewPersonalizer(),
		log:       logger.New("api", logger.INFO),
	}
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// pathUUID parses a UUID route parameter. Writes a 400 and returns false on
// malformed input.
func pathUUID(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		httputil.BadRequest(w, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
