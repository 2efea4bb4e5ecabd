package service

import (
	"context"
	"time"

	"edu-ledger/internal/core/domain"
	"edu-ledger/internal/core/ports"
	"edu-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// MarketplaceServiceImpl implements ports.MarketplaceService. Each flow is
// a saga: the debit comes first, and a failed ownership write is
// compensated by refunding the debit.
type MarketplaceServiceImpl struct {
	catalog   ports.CatalogService
	ledger    ports.LedgerService
	ownership ports.OwnershipService
	users     ports.UserService
	idem      idempotencyGuard
	metrics   *Metrics
	log       zerolog.Logger

	now func() time.Time
}

func NewMarketplaceService(
	catalog ports.CatalogService,
	ledger ports.LedgerService,
	ownership ports.OwnershipService,
	users ports.UserService,
	idemCache ports.IdempotencyCache,
	metrics *Metrics,
	log zerolog.Logger,
) *MarketplaceServiceImpl {
	return &MarketplaceServiceImpl{
		catalog:   catalog,
		ledger:    ledger,
		ownership: ownership,
		users:     users,
		idem:      idempotencyGuard{cache: idemCache, log: log},
		metrics:   metrics,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Purchase buys a catalog item at its list price. The catalog is not
// decremented, so any number of users can buy the same item.
func (s *MarketplaceServiceImpl) Purchase(ctx context.Context, req ports.PurchaseRequest) (*ports.PurchaseResult, error) {
	nft, ok := s.catalog.Get(req.NFTID)
	if !ok {
		return nil, apperror.ErrNFTNotFound()
	}

	var key string
	if req.IdempotencyKey != "" {
		key = domain.BuildIdempotencyKey(req.BuyerID, domain.FlowPurchase, req.IdempotencyKey)
	}
	cached, release, err := s.idem.begin(ctx, key)
	if err != nil {
		return nil, err
	}
	defer release()
	if cached != nil {
		return replay[ports.PurchaseResult](cached)
	}

	balance, tx, err := s.ledger.Debit(ctx, domain.Movement{
		UserID:      req.BuyerID,
		Amount:      nft.Price,
		Type:        domain.TransactionTypePurchase,
		Description: "Purchased " + nft.Name,
		From:        req.BuyerID.String(),
		To:          nft.Creator.ID,
		NFTID:       nft.ID,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	snap, _ := s.catalog.Snapshot(nft.ID, req.BuyerID)
	own := &domain.Ownership{
		ID:           ulid.Make().String(),
		OwnerID:      req.BuyerID,
		NFT:          *snap,
		AcquiredType: domain.AcquiredTypePurchase,
		AcquiredAt:   now,
	}
	activity := &domain.NFTActivity{
		ID:        ulid.Make().String(),
		NFTID:     nft.ID,
		Type:      domain.AcquiredTypePurchase,
		BuyerID:   req.BuyerID,
		Price:     nft.Price,
		Status:    domain.ActivityStatusCompleted,
		Timestamp: now,
	}

	if err := s.ownership.AddOwnership(ctx, own); err != nil {
		s.refund(ctx, domain.FlowPurchase, req.BuyerID, nft, err)
		activity.Status = domain.ActivityStatusFailed
		s.ownership.RecordActivity(ctx, req.BuyerID, activity)
		return nil, apperror.ErrTransferIncomplete(err)
	}
	s.ownership.RecordActivity(ctx, req.BuyerID, activity)

	result := &ports.PurchaseResult{NFT: snap, Ownership: own, Balance: balance, Transaction: tx}
	s.idem.complete(ctx, key, result)

	s.log.Info().
		Str("user_id", req.BuyerID.String()).
		Str("nft_id", nft.ID).
		Str("tx_id", tx.ID).
		Msg("nft purchased")
	return result, nil
}

// Gift charges the sender the list price and gives the item to a
// resolved, active recipient. The sender is not required to own the item.
func (s *MarketplaceServiceImpl) Gift(ctx context.Context, req ports.GiftRequest) (*ports.GiftResult, error) {
	nft, ok := s.catalog.Get(req.NFTID)
	if !ok {
		return nil, apperror.ErrNFTNotFound()
	}

	recipient, err := s.users.ResolveRecipient(ctx, req.Recipient)
	if err != nil {
		return nil, err
	}
	if recipient.ID == req.SenderID {
		return nil, apperror.ErrSelfGift()
	}

	var key string
	if req.IdempotencyKey != "" {
		key = domain.BuildIdempotencyKey(req.SenderID, domain.FlowGift, req.IdempotencyKey)
	}
	cached, release, err := s.idem.begin(ctx, key)
	if err != nil {
		return nil, err
	}
	defer release()
	if cached != nil {
		return replay[ports.GiftResult](cached)
	}

	balance, senderTx, err := s.ledger.Debit(ctx, domain.Movement{
		UserID:      req.SenderID,
		Amount:      nft.Price,
		Type:        domain.TransactionTypeGift,
		Description: "Gift to @" + recipient.Username + ": " + nft.Name,
		From:        req.SenderID.String(),
		To:          recipient.ID.String(),
		NFTID:       nft.ID,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	sender := req.SenderID
	snap, _ := s.catalog.Snapshot(nft.ID, recipient.ID)
	own := &domain.Ownership{
		ID:           ulid.Make().String(),
		OwnerID:      recipient.ID,
		NFT:          *snap,
		AcquiredType: domain.AcquiredTypeGift,
		AcquiredAt:   now,
		ReceivedFrom: &sender,
		GiftMessage:  req.Message,
	}
	activity := &domain.NFTActivity{
		ID:        ulid.Make().String(),
		NFTID:     nft.ID,
		Type:      domain.AcquiredTypeGift,
		BuyerID:   recipient.ID,
		SellerID:  &sender,
		Price:     nft.Price,
		Status:    domain.ActivityStatusCompleted,
		Timestamp: now,
	}

	// The recipient is written before the sender loses the item, so a
	// failure here leaves the sender whole once refunded.
	if err := s.ownership.AddOwnership(ctx, own); err != nil {
		s.refund(ctx, domain.FlowGift, sender, nft, err)
		activity.Status = domain.ActivityStatusFailed
		s.ownership.RecordActivity(ctx, sender, activity)
		return nil, apperror.ErrTransferIncomplete(err)
	}
	if err := s.ownership.RemoveOwnership(ctx, sender, nft.ID); err != nil {
		s.log.Warn().Err(err).
			Str("user_id", sender.String()).
			Str("nft_id", nft.ID).
			Msg("gift delivered but sender ownership was not removed")
	}

	recipientTx := &domain.Transaction{
		ID:          ulid.Make().String(),
		UserID:      recipient.ID,
		Type:        domain.TransactionTypeGift,
		Amount:      decimal.Zero,
		Symbol:      domain.TokenSymbol,
		From:        sender.String(),
		To:          recipient.ID.String(),
		NFTID:       nft.ID,
		Timestamp:   now,
		Status:      domain.TransactionStatusConfirmed,
		Description: "Gift received: " + nft.Name,
	}
	s.ledger.AppendTransaction(ctx, recipientTx)

	s.ownership.RecordActivity(ctx, sender, activity)
	s.ownership.RecordActivity(ctx, recipient.ID, activity)

	result := &ports.GiftResult{
		Recipient:            *recipient,
		Ownership:            own,
		Balance:              balance,
		SenderTransaction:    senderTx,
		RecipientTransaction: recipientTx,
	}
	s.idem.complete(ctx, key, result)

	s.log.Info().
		Str("user_id", sender.String()).
		Str("recipient_id", recipient.ID.String()).
		Str("nft_id", nft.ID).
		Str("tx_id", senderTx.ID).
		Msg("nft gifted")
	return result, nil
}

// refund credits back a debit whose transfer could not be completed.
func (s *MarketplaceServiceImpl) refund(ctx context.Context, flow string, userID uuid.UUID, nft *domain.NFT, cause error) {
	_, tx, err := s.ledger.Credit(context.WithoutCancel(ctx), domain.Movement{
		UserID:      userID,
		Amount:      nft.Price,
		Type:        domain.TransactionTypeTransfer,
		Description: "Refund: " + nft.Name,
		To:          userID.String(),
		NFTID:       nft.ID,
	})
	if err != nil {
		s.metrics.IncCompensation(flow, "failed")
		s.log.Error().Err(err).AnErr("cause", cause).
			Str("user_id", userID.String()).
			Str("nft_id", nft.ID).
			Msg("transfer failed and refund could not be applied")
		return
	}
	s.metrics.IncCompensation(flow, "ok")
	s.log.Warn().Err(cause).
		Str("user_id", userID.String()).
		Str("nft_id", nft.ID).
		Str("tx_id", tx.ID).
		Msg("transfer failed, debit refunded")
}
