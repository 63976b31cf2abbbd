package app

import (
	"context"
	"strings"

	"buildwise/api/internal/home"
	"buildwise/api/internal/store"
)

// Participant roles accepted by onboarding.
const (
	ParticipantPartner        = "partner"
	ParticipantBuilder        = "builder"
	ParticipantCoordinator    = "coordinator"
	ParticipantBuilderAdvisor = "builder advisor"
	ParticipantArchitect      = "architect"
	ParticipantDecorator      = "interior decorator"
)

type OnboardingPerson struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone"`
}

type OnboardingParticipant struct {
	FullName string `json:"fullName"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone"`
	Role     string `json:"role" validate:"required,oneof=partner builder coordinator 'builder advisor' architect 'interior decorator'"`
}

type OnboardingHome struct {
	Name          string `json:"name" validate:"required"`
	Address       string `json:"address"`
	WithTemplates *bool  `json:"withTemplates"`
	TemplateID    string `json:"templateId"`
}

type OnboardingInput struct {
	Client       *OnboardingPerson       `json:"client"`
	Monitors     []OnboardingPerson      `json:"monitors" validate:"omitempty,dive"`
	Builder      *OnboardingPerson       `json:"builder"`
	Participants []OnboardingParticipant `json:"participants" validate:"omitempty,dive"`
	Home         *OnboardingHome         `json:"home" validate:"required"`
}

// globalRole maps a participant role onto the person registry's role set.
func globalRole(participantRole string) string {
	switch participantRole {
	case ParticipantPartner:
		return store.RoleClient
	case ParticipantBuilder, ParticipantBuilderAdvisor:
		return store.RoleBuilder
	default:
		return store.RoleMonitor
	}
}

// Onboard creates a home together with its people in one request. Client and
// builder fall back to the first partner and builder among the participants.
// Participants without a password get an invite email.
func (s *Service) Onboard(ctx context.Context, input OnboardingInput) (home.Home, error) {
	if err := validateInput(input); err != nil {
		return home.Home{}, err
	}

	ensure := func(p store.PersonInput, role string) (store.Person, error) {
		drop := ""
		if role == store.RoleClient {
			drop = store.RoleMonitor
		}
		return s.store.UpsertPersonRole(ctx, p, role, drop)
	}

	monitors := make([]home.PersonLite, 0, len(input.Monitors))
	seen := map[string]bool{}
	for _, m := range input.Monitors {
		key := strings.ToLower(strings.TrimSpace(m.Email))
		if seen[key] {
			continue
		}
		seen[key] = true
		person, err := ensure(store.PersonInput{Email: m.Email, FullName: m.FullName, Phone: m.Phone}, store.RoleMonitor)
		if err != nil {
			return home.Home{}, err
		}
		monitors = append(monitors, personLite(person))
	}

	participants := make([]home.Participant, 0, len(input.Participants))
	seen = map[string]bool{}
	var partner, builder, advisor *home.PersonLite
	for _, p := range input.Participants {
		key := strings.ToLower(strings.TrimSpace(p.Email))
		if seen[key] {
			continue
		}
		seen[key] = true
		fullName := strings.TrimSpace(p.FullName)
		if fullName == "" {
			fullName = key
		}
		person, err := ensure(store.PersonInput{Email: key, FullName: fullName, Phone: p.Phone}, globalRole(p.Role))
		if err != nil {
			return home.Home{}, err
		}
		lite := personLite(person)
		participants = append(participants, home.Participant{PersonLite: lite, Role: p.Role})
		switch {
		case p.Role == ParticipantPartner && partner == nil:
			partner = &lite
		case p.Role == ParticipantBuilder && builder == nil:
			builder = &lite
		case p.Role == ParticipantBuilderAdvisor && advisor == nil:
			advisor = &lite
		}
	}
	if builder == nil {
		builder = advisor
	}

	var client *home.PersonLite
	if input.Client == nil {
		client = partner
	} else {
		person, err := ensure(store.PersonInput{Email: input.Client.Email, FullName: input.Client.FullName, Phone: input.Client.Phone}, store.RoleClient)
		if err != nil {
			return home.Home{}, err
		}
		lite := personLite(person)
		client = &lite
	}
	if input.Builder != nil {
		person, err := ensure(store.PersonInput{Email: input.Builder.Email, FullName: input.Builder.FullName, Phone: input.Builder.Phone}, store.RoleBuilder)
		if err != nil {
			return home.Home{}, err
		}
		lite := personLite(person)
		builder = &lite
	}

	clientName := ""
	if client != nil {
		clientName = client.FullName
	}
	h := home.New(input.Home.Name, input.Home.Address, clientName, home.OnboardingPhases())
	h.Client = client
	h.Builder = builder
	h.Monitors = monitors
	h.Participants = participants
	if input.Home.WithTemplates == nil || *input.Home.WithTemplates {
		h.Trades = s.buildTrades(ctx, input.Home.TemplateID)
	}

	created, err := s.store.CreateHome(ctx, h)
	if err != nil {
		return home.Home{}, err
	}
	s.reindex(created)
	s.sendInvites(ctx, created, participants)
	return created, nil
}
