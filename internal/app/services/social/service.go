// Package social manages friend requests, the friend graph and game invites.
package social

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frogworks/storefront/internal/app/domain/social"
	"github.com/frogworks/storefront/internal/app/storage"
	"github.com/frogworks/storefront/pkg/logger"
)

var (
	// ErrSelfRequest reports a friend request addressed to its sender.
	ErrSelfRequest = errors.New("cannot send a friend request to yourself")
	// ErrAlreadyFriends reports a request between existing friends.
	ErrAlreadyFriends = errors.New("users are already friends")
	// ErrRequestExists reports a duplicate outstanding request.
	ErrRequestExists = errors.New("friend request already sent")
	// ErrAwaitingResponse reports that the other user has already sent a
	// request the caller should answer instead.
	ErrAwaitingResponse = errors.New("a request from this user is awaiting your response")
	// ErrNotFriends reports an operation that requires friendship.
	ErrNotFriends = errors.New("users are not friends")
)

// Store is the persistence surface the social service needs.
type Store interface {
	storage.UserStore
	storage.CatalogStore
	storage.SocialStore
	storage.TxRunner
}

// Service manages the friend graph.
type Service struct {
	store Store
	log   *logger.Logger
}

// New constructs a social service.
func New(store Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("social")
	}
	return &Service{store: store, log: log}
}

// SendFriendRequest asks toUserID for friendship. The reciprocity checks and
// the insert run in one transaction.
func (s *Service) SendFriendRequest(ctx context.Context, fromUserID, toUserID string) (social.FriendRequest, error) {
	if fromUserID == toUserID {
		return social.FriendRequest{}, ErrSelfRequest
	}

	var req social.FriendRequest
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		if _, err := tx.GetUser(ctx, toUserID); err != nil {
			return err
		}
		if _, err := tx.GetFriendPair(ctx, fromUserID, toUserID); err == nil {
			return ErrAlreadyFriends
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if _, err := tx.GetFriendRequestBetween(ctx, toUserID, fromUserID); err == nil {
			return ErrRequestExists
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if _, err := tx.GetFriendRequestBetween(ctx, fromUserID, toUserID); err == nil {
			return ErrAwaitingResponse
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		var err error
		req, err = tx.CreateFriendRequest(ctx, social.FriendRequest{
			UserID:     toUserID,
			FromUserID: fromUserID,
			Date:       time.Now().UTC(),
		})
		return err
	})
	if err != nil {
		return social.FriendRequest{}, err
	}

	s.log.WithField("from_user_id", fromUserID).
		WithField("to_user_id", toUserID).
		Info("friend request sent")
	return req, nil
}

// AcceptFriendRequest turns a pending request into a friendship. Both
// directional rows are written in the same transaction as the request
// deletion, so the graph stays symmetric.
func (s *Service) AcceptFriendRequest(ctx context.Context, userID, requestID string) error {
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		req, err := tx.GetFriendRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req.UserID != userID {
			return fmt.Errorf("friend request %s: %w", requestID, storage.ErrNotFound)
		}

		now := time.Now().UTC()
		if _, err := tx.CreateFriend(ctx, social.Friend{
			UserID:      req.UserID,
			OtherUserID: req.FromUserID,
			Date:        now,
		}); err != nil {
			return err
		}
		if _, err := tx.CreateFriend(ctx, social.Friend{
			UserID:      req.FromUserID,
			OtherUserID: req.UserID,
			Date:        now,
		}); err != nil {
			return err
		}
		return tx.DeleteFriendRequest(ctx, requestID)
	})
	if err != nil {
		return err
	}

	s.log.WithField("user_id", userID).
		WithField("request_id", requestID).
		Info("friend request accepted")
	return nil
}

// DeclineFriendRequest drops a pending request addressed to the user.
func (s *Service) DeclineFriendRequest(ctx context.Context, userID, requestID string) error {
	req, err := s.store.GetFriendRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.UserID != userID {
		return fmt.Errorf("friend request %s: %w", requestID, storage.ErrNotFound)
	}
	return s.store.DeleteFriendRequest(ctx, requestID)
}

// FriendRequests lists pending requests addressed to the user.
func (s *Service) FriendRequests(ctx context.Context, userID string) ([]social.FriendRequest, error) {
	return s.store.ListFriendRequestsFor(ctx, userID)
}

// Friends lists the user's friends.
func (s *Service) Friends(ctx context.Context, userID string) ([]social.Friend, error) {
	return s.store.ListFriends(ctx, userID)
}

// AreFriends reports whether the two users are friends.
func (s *Service) AreFriends(ctx context.Context, userID, otherUserID string) (bool, error) {
	if _, err := s.store.GetFriendPair(ctx, userID, otherUserID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RemoveFriend severs a friendship in both directions.
func (s *Service) RemoveFriend(ctx context.Context, userID, otherUserID string) error {
	if err := s.store.DeleteFriendPair(ctx, userID, otherUserID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFriends
		}
		return err
	}
	s.log.WithField("user_id", userID).
		WithField("other_user_id", otherUserID).
		Info("friendship removed")
	return nil
}

// SendInvite delivers a game invite to another user.
func (s *Service) SendInvite(ctx context.Context, fromUserID, toUserID, applicationID string, details map[string]any) (social.Invite, error) {
	if fromUserID == toUserID {
		return social.Invite{}, ErrSelfRequest
	}
	if _, err := s.store.GetUser(ctx, toUserID); err != nil {
		return social.Invite{}, err
	}
	if _, err := s.store.GetApplication(ctx, applicationID); err != nil {
		return social.Invite{}, err
	}

	inv, err := s.store.CreateInvite(ctx, social.Invite{
		UserID:        toUserID,
		FromUserID:    fromUserID,
		ApplicationID: applicationID,
		Details:       details,
		Date:          time.Now().UTC(),
	})
	if err != nil {
		return social.Invite{}, err
	}
	s.log.WithField("from_user_id", fromUserID).
		WithField("to_user_id", toUserID).
		WithField("application_id", applicationID).
		Info("invite sent")
	return inv, nil
}

// Invites lists invites addressed to the user, optionally for one
// application.
func (s *Service) Invites(ctx context.Context, userID, applicationID string) ([]social.Invite, error) {
	if applicationID != "" {
		return s.store.ListUserInvitesFor(ctx, userID, applicationID)
	}
	return s.store.ListUserInvites(ctx, userID)
}

// DismissInvite removes an invite addressed to the user.
func (s *Service) DismissInvite(ctx context.Context, userID, inviteID string) error {
	inv, err := s.store.GetInvite(ctx, inviteID)
	if err != nil {
		return err
	}
	if inv.UserID != userID {
		return fmt.Errorf("invite %s: %w", inviteID, storage.ErrNotFound)
	}
	return s.store.DeleteInvite(ctx, inviteID)
}
