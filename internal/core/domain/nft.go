package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type NFTCategory string

const (
	NFTCategoryCertificate NFTCategory = "certificate"
	NFTCategoryAchievement NFTCategory = "achievement"
	NFTCategoryBadge       NFTCategory = "badge"
	NFTCategoryCourse      NFTCategory = "course"
	NFTCategoryCollectible NFTCategory = "collectible"
)

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

type Creator struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// NFT is a catalog item. Owner and IsOwned are only ever set on a
// transient snapshot.
type NFT struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Price       decimal.Decimal `json:"price"`
	Category    NFTCategory     `json:"category"`
	Rarity      Rarity          `json:"rarity"`
	Attributes  []Attribute     `json:"attributes"`
	Creator     Creator         `json:"creator"`
	MintedAt    time.Time       `json:"minted_at"`
	IsListed    bool            `json:"is_listed"`
	IsOwned     bool            `json:"is_owned"`
	Owner       *uuid.UUID      `json:"owner,omitempty"`
}

type AcquiredType string

const (
	AcquiredTypePurchase AcquiredType = "purchase"
	AcquiredTypeGift     AcquiredType = "gift"
)

// Ownership is one acquisition of an NFT by a user.
type Ownership struct {
	ID           string       `json:"id"`
	OwnerID      uuid.UUID    `json:"owner_id"`
	NFT          NFT          `json:"nft"`
	AcquiredType AcquiredType `json:"acquired_type"`
	AcquiredAt   time.Time    `json:"acquired_at"`
	ReceivedFrom *uuid.UUID   `json:"received_from,omitempty"`
	GiftMessage  string       `json:"gift_message,omitempty"`
}

type ActivityStatus string

const (
	ActivityStatusCompleted ActivityStatus = "completed"
	ActivityStatusFailed    ActivityStatus = "failed"
)

// NFTActivity is a marketplace event kept in the local NFT history. For
// gifts BuyerID is the recipient and SellerID the sender.
type NFTActivity struct {
	ID        string          `json:"id"`
	NFTID     string          `json:"nft_id"`
	Type      AcquiredType    `json:"type"`
	BuyerID   uuid.UUID       `json:"buyer_id"`
	SellerID  *uuid.UUID      `json:"seller_id,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Status    ActivityStatus  `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
}
