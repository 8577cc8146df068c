package app

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"

	"github.com/charmbracelet/log"

	"kinkeeper/config"
	"kinkeeper/database"
	"kinkeeper/models"
	"kinkeeper/remote"
	"kinkeeper/services"
	"kinkeeper/session"
	"kinkeeper/store"
	"kinkeeper/sync"
	"kinkeeper/validator"
)

// Remote column selections. Columns are listed explicitly, never *.
var (
	contactColumns = []string{
		"id", "owner_id", "first_name", "last_name", "details",
		"communication_channels", "deleted", "created_at", "updated_at",
	}
	interactionColumns = []string{
		"id", "owner_id", "contact_id", "raw_content", "key_concepts",
		"status", "deleted", "created_at", "updated_at",
	}
	profileColumns = []string{
		"user_id", "onboarding_done", "subscribed", "deleted",
		"created_at", "updated_at",
	}
)

// App wires the whole data layer together and owns the session lifecycle.
// This struct is the central point for dependency injection: the UI layer
// only ever touches the exported services plus ActivateSync and
// ClearPersistedData.
type App struct {
	Contacts     *services.ContactService
	Interactions *services.InteractionService
	Profile      *services.ProfileService
	Jobs         *services.JobService
	Session      *session.Session

	logger *log.Logger
	db     *database.DB
	cache  *database.Cache

	contactStore     *store.Collection[models.Contact]
	interactionStore *store.Collection[models.Interaction]
	profileStore     *store.Collection[models.Profile]

	contactEngine     *sync.Engine[models.Contact]
	interactionEngine *sync.Engine[models.Interaction]
	profileEngine     *sync.Engine[models.Profile]

	cleanup *services.OrphanCleanup

	mu        gosync.Mutex
	cancel    context.CancelFunc
	activated bool
}

// New builds the data layer. Store collections and services are explicit
// instances created here, not package globals, so a sign-out/sign-in cycle
// is a matter of deactivating and reactivating rather than mutating shared
// state.
func New(cfg *config.Config, logger *log.Logger) (*App, error) {
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	cache := database.NewCache(db)
	logger.Info("database initialized", "path", cfg.DatabasePath)

	client := remote.NewClient(context.Background(), cfg)
	feed := remote.NewRealtime(cfg, logger)

	contactStore := store.NewCollection[models.Contact](models.CollectionContacts)
	interactionStore := store.NewCollection[models.Interaction](models.CollectionInteractions)
	profileStore := store.NewCollection[models.Profile](models.CollectionProfiles)

	contactTable := remote.NewTable[models.Contact](client, models.CollectionContacts, contactColumns, "owner_id")
	interactionTable := remote.NewTable[models.Interaction](client, models.CollectionInteractions, interactionColumns, "owner_id")
	profileTable := remote.NewTable[models.Profile](client, models.CollectionProfiles, profileColumns, "user_id")

	sess := session.New()
	validate := validator.New()

	jobs := services.NewJobService(remote.NewJobTable(client), validate, logger)
	contacts := services.NewContactService(contactStore, sess, jobs, validate, logger)
	interactions := services.NewInteractionService(interactionStore, contactStore, sess, jobs, validate, logger)
	profile := services.NewProfileService(profileStore, sess, logger)

	app := &App{
		Contacts:     contacts,
		Interactions: interactions,
		Profile:      profile,
		Jobs:         jobs,
		Session:      sess,
		logger:       logger,
		db:           db,
		cache:        cache,

		contactStore:     contactStore,
		interactionStore: interactionStore,
		profileStore:     profileStore,

		contactEngine:     sync.NewEngine(contactStore, contactTable, feed, cache, logger),
		interactionEngine: sync.NewEngine(interactionStore, interactionTable, feed, cache, logger),
		profileEngine:     sync.NewEngine(profileStore, profileTable, feed, cache, logger),

		cleanup: services.NewOrphanCleanup(contactStore, interactionStore, interactions, logger),
	}
	return app, nil
}

// ActivateSync signs userID in: the session becomes active, every engine
// binds its collection to the remote, a default profile is ensured, and
// orphan cleanup is scheduled to run once the initial pulls have landed.
// Called by the authentication flow on sign-in.
func (a *App) ActivateSync(ctx context.Context, userID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.activated {
		return fmt.Errorf("sync is already active")
	}

	runCtx, cancel := context.WithCancel(ctx)
	a.Session.SetActive(userID)

	for _, activate := range []func() error{
		func() error { return a.contactEngine.Activate(runCtx, userID) },
		func() error { return a.interactionEngine.Activate(runCtx, userID) },
		func() error { return a.profileEngine.Activate(runCtx, userID) },
	} {
		if err := activate(); err != nil {
			cancel()
			a.Session.Clear()
			return err
		}
	}

	a.cancel = cancel
	a.activated = true

	// A tombstoned profile is a deliberate deletion, not a provisioning
	// failure.
	if _, err := a.Profile.GetOrCreate(userID); err != nil && !errors.Is(err, services.ErrNotFound) {
		a.logger.Error("failed to ensure profile", "user", userID, "err", err)
	}

	// Cleanup needs both the contact and interaction partitions to be
	// fully pulled, otherwise a slow pull would look like a missing
	// contact.
	contactsSynced := a.contactEngine.Synced()
	interactionsSynced := a.interactionEngine.Synced()
	go func() {
		select {
		case <-contactsSynced:
		case <-runCtx.Done():
			return
		}
		select {
		case <-interactionsSynced:
		case <-runCtx.Done():
			return
		}
		a.cleanup.Run()
	}()

	a.logger.Info("sync activated", "user", userID)
	return nil
}

// ClearPersistedData signs the user out: engines stop, in-memory
// collections are reset and the SQLite cache is dropped, so a fresh
// activation for a different user never observes the prior user's rows.
// Called by the authentication flow on sign-out.
func (a *App) ClearPersistedData() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.activated {
		a.contactEngine.Deactivate()
		a.interactionEngine.Deactivate()
		a.profileEngine.Deactivate()
		a.cancel()
		a.activated = false
	}

	a.Session.Clear()
	a.contactStore.Reset()
	a.interactionStore.Reset()
	a.profileStore.Reset()

	if err := a.cache.ClearAll(); err != nil {
		return fmt.Errorf("failed to clear persisted data: %w", err)
	}

	a.logger.Info("persisted data cleared")
	return nil
}

// Close shuts the data layer down.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.activated {
		a.contactEngine.Deactivate()
		a.interactionEngine.Deactivate()
		a.profileEngine.Deactivate()
		a.cancel()
		a.activated = false
	}

	return a.db.Close()
}
