package app

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"buildwise/api/internal/aiassist"
	"buildwise/api/internal/authpw"
	"buildwise/api/internal/config"
	"buildwise/api/internal/export"
	"buildwise/api/internal/home"
	"buildwise/api/internal/search"
	"buildwise/api/internal/storage"
	"buildwise/api/internal/store"
)

const listLimit = 100

type dataStore interface {
	Ping(context.Context) error

	CreateHome(context.Context, home.Home) (home.Home, error)
	GetHome(context.Context, string) (home.Home, error)
	ListHomes(context.Context, int) ([]home.Home, error)
	ListHomesForEmail(context.Context, string, int) ([]home.Home, error)
	MutateHome(context.Context, string, func(*home.Home) ([]home.Patch, error)) (home.Home, error)

	GetPerson(context.Context, string) (store.Person, error)
	ListPersons(context.Context, store.PersonFilter) ([]store.Person, error)
	UpsertPersonRole(context.Context, store.PersonInput, string, string) (store.Person, error)
	SetPassword(context.Context, string, string, string, string) (store.Person, error)
	SaveMarketingSignup(context.Context, store.MarketingSignup) (store.Person, error)
	ConfirmEmail(context.Context, string) error

	CreateTemplate(context.Context, store.Template) (store.Template, error)
	GetTemplate(context.Context, string) (store.Template, error)
	ListTemplates(context.Context) ([]store.Template, error)

	FindPermitSet(context.Context, string, string) (store.PermitDocumentSet, error)

	InsertMessage(context.Context, store.Message) (store.Message, error)
	ListMessages(context.Context, store.MessageFilter) ([]store.Message, error)
}

// sessionStore keeps refresh tokens and revoked access tokens. Both the
// Redis store and the Postgres fallback satisfy it.
type sessionStore interface {
	SaveRefreshSession(context.Context, string, string, time.Time) error
	LookupRefreshSession(context.Context, string) (string, error)
	RevokeRefreshSession(context.Context, string) error
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)
}

type mailer interface {
	IsConfigured() bool
	SendInviteEmail(to, homeName, role, registerURL string) error
	SendConfirmEmail(to, confirmURL string) error
}

type objectStore interface {
	UploadFile(ctx context.Context, folder, fileName, localPath, contentType string) (storage.Object, error)
	Delete(ctx context.Context, key string) error
	DeleteMany(ctx context.Context, keys []string) error
}

type analyzer interface {
	Configured() bool
	Analyze(context.Context, aiassist.Request) (aiassist.Result, error)
	AnalyzeArchitecture(ctx context.Context, userEmail string, urls []string) (aiassist.Result, *aiassist.Architecture, string, error)
}

type searchIndex interface {
	Search(context.Context, search.Query) search.Response
	IndexHome(home.Home)
	DeleteDocument(string)
}

type reportExporter interface {
	Export(context.Context, home.Home, export.Format) (*export.Result, error)
}

type pinger interface {
	Ping(context.Context) error
}

// Deps wires the collaborators of Service. Only Store is required; a nil
// Sessions falls back to Store when it can hold sessions.
type Deps struct {
	Store    dataStore
	Sessions sessionStore
	Mail     mailer
	Files    objectStore
	AI       analyzer
	Search   searchIndex
	Exports  reportExporter
	// Redis is pinged by the readiness check when set.
	Redis pinger
}

type Service struct {
	cfg       config.Config
	store     dataStore
	sessions  sessionStore
	passwords *authpw.Service
	mail      mailer
	files     objectStore
	ai        analyzer
	search    searchIndex
	exports   reportExporter
	redis     pinger
	now       func() time.Time
}

func New(cfg config.Config, deps Deps) *Service {
	sessions := deps.Sessions
	if sessions == nil {
		if fallback, ok := deps.Store.(sessionStore); ok {
			sessions = fallback
		}
	}
	return &Service{
		cfg:       cfg,
		store:     deps.Store,
		sessions:  sessions,
		passwords: authpw.NewService(deps.Store),
		mail:      deps.Mail,
		files:     deps.Files,
		ai:        deps.AI,
		search:    deps.Search,
		exports:   deps.Exports,
		redis:     deps.Redis,
		now:       time.Now,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// PingRedis reports whether Redis is reachable; ok is false when it is not configured.
func (s *Service) PingRedis(ctx context.Context) (ok bool, err error) {
	if s.redis == nil {
		return false, nil
	}
	return true, s.redis.Ping(ctx)
}

func (s *Service) SMTPConfigured() bool {
	return s.mail != nil && s.mail.IsConfigured()
}

// mutate runs fn under the home row lock and reindexes the stored result.
func (s *Service) mutate(ctx context.Context, homeID string, fn func(*home.Home) ([]home.Patch, error)) (home.Home, error) {
	if !validID(homeID) {
		return home.Home{}, errHomeNotFound
	}
	updated, err := s.store.MutateHome(ctx, homeID, fn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return home.Home{}, errHomeNotFound
		}
		return home.Home{}, err
	}
	s.reindex(updated)
	return updated, nil
}

// validID reports whether id can name a row; ids are uuids.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}

func (s *Service) reindex(h home.Home) {
	if s.search != nil {
		s.search.IndexHome(h)
	}
}

func (s *Service) GetHome(ctx context.Context, homeID string) (home.Home, error) {
	if !validID(homeID) {
		return home.Home{}, errHomeNotFound
	}
	h, err := s.store.GetHome(ctx, homeID)
	if errors.Is(err, sql.ErrNoRows) {
		return home.Home{}, errHomeNotFound
	}
	return h, err
}

func (s *Service) ListHomes(ctx context.Context) ([]home.Home, error) {
	return s.store.ListHomes(ctx, listLimit)
}

// MyHomes lists homes where email is the client, builder, a monitor or a participant.
func (s *Service) MyHomes(ctx context.Context, email string) ([]home.Home, error) {
	return s.store.ListHomesForEmail(ctx, email, listLimit)
}

// registerURL builds the invite link sent to people without a password.
func (s *Service) registerURL(email string) string {
	return s.publicLink("register", "email="+url.QueryEscape(email))
}

func (s *Service) publicLink(path, query string) string {
	base := strings.TrimRight(s.cfg.AppPublicURL, "/")
	link := path + "?" + query
	if base == "" {
		return link
	}
	return base + "/" + link
}

func (s *Service) sendInvites(ctx context.Context, h home.Home, participants []home.Participant) {
	if s.mail == nil {
		return
	}
	for _, p := range participants {
		person, err := s.store.GetPerson(ctx, p.Email)
		if err != nil || person.HasPassword() {
			continue
		}
		if err := s.mail.SendInviteEmail(person.Email, h.Name, p.Role, s.registerURL(person.Email)); err != nil {
			log.Warn().Err(err).Str("email", person.Email).Str("home_id", h.ID).Msg("invite email failed")
		}
	}
}
