package service

import (
	"context"
	"errors"
	"slices"

	"edu-ledger/internal/core/domain"
	"edu-ledger/internal/core/ports"
	"edu-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OwnershipServiceImpl implements ports.OwnershipService.
type OwnershipServiceImpl struct {
	remote  ports.OwnershipRepository
	local   ports.LocalCache
	syncer  ports.ChangeSyncer
	catalog ports.CatalogService
	metrics *Metrics
	log     zerolog.Logger
}

func NewOwnershipService(
	remote ports.OwnershipRepository,
	local ports.LocalCache,
	syncer ports.ChangeSyncer,
	catalog ports.CatalogService,
	metrics *Metrics,
	log zerolog.Logger,
) *OwnershipServiceImpl {
	return &OwnershipServiceImpl{
		remote:  remote,
		local:   local,
		syncer:  syncer,
		catalog: catalog,
		metrics: metrics,
		log:     log,
	}
}

// ListOwned prefers the remote collection. When it is empty or unreachable
// the list is rebuilt from the local owned cache and the completed
// marketplace history, deduplicated by NFT id.
func (s *OwnershipServiceImpl) ListOwned(ctx context.Context, userID uuid.UUID) []domain.Ownership {
	remote, err := s.remote.ListByOwner(ctx, userID)
	if err != nil {
		warnFallback(s.log, s.metrics, err, userID, "remote", "list_owned")
	}
	if len(remote) > 0 {
		return remote
	}
	return s.rebuildLocal(ctx, userID)
}

func (s *OwnershipServiceImpl) rebuildLocal(ctx context.Context, userID uuid.UUID) []domain.Ownership {
	owned, err := s.local.GetOwned(ctx, userID)
	if err != nil {
		warnFallback(s.log, s.metrics, err, userID, "local", "get_owned")
	}
	activity, err := s.local.GetNFTActivity(ctx, userID)
	if err != nil {
		warnFallback(s.log, s.metrics, err, userID, "local", "get_nft_activity")
	}

	out := make([]domain.Ownership, 0, len(owned))
	seen := make(map[string]bool, len(owned))
	for _, o := range owned {
		if seen[o.NFT.ID] {
			continue
		}
		seen[o.NFT.ID] = true
		out = append(out, o)
	}

	slices.SortStableFunc(activity, func(a, b domain.NFTActivity) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	for _, a := range activity {
		if a.Status != domain.ActivityStatusCompleted {
			continue
		}
		switch {
		case a.BuyerID == userID && !seen[a.NFTID]:
			seen[a.NFTID] = true
			out = append(out, s.fromActivity(userID, a))
		case a.Type == domain.AcquiredTypeGift && a.SellerID != nil && *a.SellerID == userID && seen[a.NFTID]:
			delete(seen, a.NFTID)
			out = slices.DeleteFunc(out, func(o domain.Ownership) bool { return o.NFT.ID == a.NFTID })
		}
	}
	return out
}

func (s *OwnershipServiceImpl) fromActivity(userID uuid.UUID, a domain.NFTActivity) domain.Ownership {
	nft := domain.NFT{ID: a.NFTID, Price: a.Price, IsOwned: true}
	if snap, ok := s.catalog.Snapshot(a.NFTID, userID); ok {
		nft = *snap
	}
	o := domain.Ownership{
		ID:           a.ID,
		OwnerID:      userID,
		NFT:          nft,
		AcquiredType: a.Type,
		AcquiredAt:   a.Timestamp,
	}
	if a.Type == domain.AcquiredTypeGift {
		o.ReceivedFrom = a.SellerID
	}
	return o
}

// AddOwnership records o locally and mirrors it remotely. It fails only
// when neither store accepted the write.
func (s *OwnershipServiceImpl) AddOwnership(ctx context.Context, o *domain.Ownership) error {
	localErr := s.updateLocal(ctx, o.OwnerID, func(owned []domain.Ownership) []domain.Ownership {
		return append(owned, *o)
	})
	if localErr != nil {
		warnFallback(s.log, s.metrics, localErr, o.OwnerID, "local", "add_ownership")
	}

	remoteErr := s.syncer.SyncOnChange(ctx, o.OwnerID, domain.Change{
		Kind:      domain.ChangeKindOwnership,
		Op:        domain.ChangeOpAdd,
		Ownership: o,
	})
	if remoteErr != nil {
		warnFallback(s.log, s.metrics, remoteErr, o.OwnerID, "remote", "add_ownership")
	}

	if localErr != nil && remoteErr != nil {
		return apperror.ErrStoreUnavailable(errors.Join(localErr, remoteErr))
	}
	return nil
}

// RemoveOwnership drops every record of nftID for userID. Removing an NFT
// the user does not own succeeds.
func (s *OwnershipServiceImpl) RemoveOwnership(ctx context.Context, userID uuid.UUID, nftID string) error {
	localErr := s.updateLocal(ctx, userID, func(owned []domain.Ownership) []domain.Ownership {
		return slices.DeleteFunc(owned, func(o domain.Ownership) bool { return o.NFT.ID == nftID })
	})
	if localErr != nil {
		warnFallback(s.log, s.metrics, localErr, userID, "local", "remove_ownership")
	}

	remoteErr := s.syncer.SyncOnChange(ctx, userID, domain.Change{
		Kind:  domain.ChangeKindOwnership,
		Op:    domain.ChangeOpRemove,
		NFTID: nftID,
	})
	if remoteErr != nil {
		warnFallback(s.log, s.metrics, remoteErr, userID, "remote", "remove_ownership")
	}

	if localErr != nil && remoteErr != nil {
		return apperror.ErrStoreUnavailable(errors.Join(localErr, remoteErr))
	}
	return nil
}

func (s *OwnershipServiceImpl) updateLocal(ctx context.Context, userID uuid.UUID, fn func([]domain.Ownership) []domain.Ownership) error {
	owned, err := s.local.GetOwned(ctx, userID)
	if err != nil {
		return err
	}
	return s.local.SetOwned(ctx, userID, fn(owned))
}

// RecordActivity appends to the user's local marketplace history.
func (s *OwnershipServiceImpl) RecordActivity(ctx context.Context, userID uuid.UUID, activity *domain.NFTActivity) {
	if err := s.local.AppendNFTActivity(ctx, userID, activity); err != nil {
		warnFallback(s.log, s.metrics, err, userID, "local", "append_nft_activity")
	}
}
