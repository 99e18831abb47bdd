package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"diceboard/internal/dependencies/clock"
	"diceboard/internal/model"
	"diceboard/internal/storage"
)

// Service is the identity registry: it owns player records keyed by the
// durable client-supplied identity and the color allocation that goes with
// them. Connection bindings live in the gateway, not here.
type Service struct {
	storage storage.Storage
	colors  *ColorPool
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a new identity Service
func New(store storage.Storage, colors *ColorPool, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage: store,
		colors:  colors,
		clock:   clk,
		logger:  logger.With(slog.String("component", "identity")),
	}
}

// RegisterOrReattach resolves the identity to a player record, creating one
// with lobby defaults on first sight. On reattach the display name is
// updated only when the incoming name is real, or when the stored one is
// itself a placeholder; a reconnect with a generated placeholder never
// clobbers a chosen name. Returns the record and whether it was created.
func (s *Service) RegisterOrReattach(ctx context.Context, id model.PlayerID, name string) (*model.Player, bool, error) {
	player, err := s.storage.GetPlayer(ctx, id)
	if err != nil && !errors.Is(err, model.ErrPlayerNotFound) {
		return nil, false, err
	}

	if player == nil {
		player = &model.Player{
			ID:        id,
			Name:      name,
			Role:      model.RoleGuest,
			Status:    model.StatusLobby,
			Color:     s.colors.Acquire(),
			CreatedAt: s.clock.Now(),
		}
		if err := s.storage.SavePlayer(ctx, player); err != nil {
			return nil, false, err
		}
		s.logger.Info("player registered",
			slog.String("player_id", string(id)),
			slog.String("name", player.Name))
		return player, true, nil
	}

	if !IsPlaceholderName(name) {
		player.Name = name
	} else if IsPlaceholderName(player.Name) {
		player.Name = name
	}
	if err := s.storage.SavePlayer(ctx, player); err != nil {
		return nil, false, err
	}

	s.logger.Info("player reattached",
		slog.String("player_id", string(id)),
		slog.String("name", player.Name))
	return player, false, nil
}

// Get returns the player record for the identity
func (s *Service) Get(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return s.storage.GetPlayer(ctx, id)
}

// Erase permanently removes the player record and reclaims its color.
// Used when the reconnection grace period expires.
func (s *Service) Erase(ctx context.Context, id model.PlayerID) error {
	player, err := s.storage.GetPlayer(ctx, id)
	if errors.Is(err, model.ErrPlayerNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	s.colors.Release(player.Color)
	if err := s.storage.DeletePlayer(ctx, id); err != nil {
		return err
	}
	s.logger.Info("player erased", slog.String("player_id", string(id)))
	return nil
}

// IsPlaceholderName reports whether the name is a client-generated
// placeholder rather than a chosen display name
func IsPlaceholderName(name string) bool {
	return name == "" || name == "null" || strings.HasPrefix(name, "Guest_")
}
