package service

import (
	"slices"
	"time"

	"edu-ledger/internal/core/domain"
	"edu-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Catalog is the static list of purchasable NFTs. It is never decremented:
// the same item can be bought by any number of users.
type Catalog struct {
	items []domain.NFT
	index map[string]int
}

// NewCatalog builds a catalog over items. Later duplicates of an id are
// ignored.
func NewCatalog(items []domain.NFT) *Catalog {
	c := &Catalog{index: make(map[string]int, len(items))}
	for _, it := range items {
		if _, dup := c.index[it.ID]; dup {
			continue
		}
		c.index[it.ID] = len(c.items)
		c.items = append(c.items, it)
	}
	return c
}

// List returns copies of the listed items matching filter, in catalog order.
func (c *Catalog) List(filter ports.CatalogFilter) []domain.NFT {
	out := make([]domain.NFT, 0, len(c.items))
	for _, it := range c.items {
		if !it.IsListed {
			continue
		}
		if filter.Category != "" && it.Category != filter.Category {
			continue
		}
		if filter.Rarity != "" && it.Rarity != filter.Rarity {
			continue
		}
		out = append(out, copyNFT(it))
	}
	return out
}

func (c *Catalog) Get(id string) (*domain.NFT, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	nft := copyNFT(c.items[i])
	return &nft, true
}

// Snapshot returns the item as owned by ownerID. The catalog itself is
// left unchanged.
func (c *Catalog) Snapshot(id string, ownerID uuid.UUID) (*domain.NFT, bool) {
	nft, ok := c.Get(id)
	if !ok {
		return nil, false
	}
	owner := ownerID
	nft.Owner = &owner
	nft.IsOwned = true
	return nft, true
}

func copyNFT(n domain.NFT) domain.NFT {
	n.Attributes = slices.Clone(n.Attributes)
	if n.Owner != nil {
		owner := *n.Owner
		n.Owner = &owner
	}
	return n
}

var eduAcademy = domain.Creator{ID: "edu-academy", Name: "EDU Academy", Avatar: "/assets/creators/edu-academy.png"}

// DefaultCatalogItems is the catalog shipped with the service.
func DefaultCatalogItems() []domain.NFT {
	minted := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	item := func(id, name, desc string, price string, cat domain.NFTCategory, rarity domain.Rarity, attrs ...domain.Attribute) domain.NFT {
		return domain.NFT{
			ID:          id,
			Name:        name,
			Description: desc,
			Image:       "/assets/nfts/" + id + ".png",
			Price:       decimal.RequireFromString(price),
			Category:    cat,
			Rarity:      rarity,
			Attributes:  attrs,
			Creator:     eduAcademy,
			MintedAt:    minted,
			IsListed:    true,
		}
	}
	attr := func(k, v string) domain.Attribute { return domain.Attribute{TraitType: k, Value: v} }

	return []domain.NFT{
		item("nft-001", "Blockchain Fundamentals", "Completion token for the blockchain fundamentals track.",
			"25", domain.NFTCategoryCertificate, domain.RarityCommon, attr("Track", "Blockchain"), attr("Level", "Beginner")),
		item("nft-002", "Smart Contract Architect", "Awarded for shipping a reviewed smart contract project.",
			"75", domain.NFTCategoryAchievement, domain.RarityRare, attr("Track", "Solidity"), attr("Level", "Advanced")),
		item("nft-003", "Early Learner Badge", "Given to the first cohort of EDU learners.",
			"10", domain.NFTCategoryBadge, domain.RarityCommon, attr("Cohort", "2024")),
		item("nft-004", "DeFi Masterclass Pass", "Lifetime access pass for the DeFi masterclass.",
			"150", domain.NFTCategoryCourse, domain.RarityEpic, attr("Track", "DeFi"), attr("Access", "Lifetime")),
		item("nft-005", "Golden Owl", "Limited collectible for top mentors.",
			"500", domain.NFTCategoryCollectible, domain.RarityLegendary, attr("Edition", "1 of 100")),
		item("nft-006", "Data Science Explorer", "Completion token for the data science path.",
			"40", domain.NFTCategoryCertificate, domain.RarityRare, attr("Track", "Data Science")),
		item("nft-007", "Hackathon Finalist", "Reached the finals of an EDU hackathon.",
			"95", domain.NFTCategoryAchievement, domain.RarityEpic, attr("Event", "Hackathon")),
		item("nft-008", "Peer Reviewer", "Reviewed fifty assignments from other learners.",
			"15", domain.NFTCategoryBadge, domain.RarityCommon, attr("Reviews", "50")),
	}
}
