package game

import (
	"time"

	"github.com/vikinglords/vikinglords-server/internal/game/ledger"
)

// DefaultMarketplace returns the fixed catalog of goods.
func DefaultMarketplace() []Good {
	return []Good{
		{Name: string(Tavern), Cost: ledger.NewCost(1, 1, 1, 0), Kind: GoodStructure, Prereqs: []Structure{}},
		{Name: string(MeadHall), Cost: ledger.NewCost(1, 1, 1, 0), Kind: GoodStructure, Prereqs: []Structure{Tavern}},
		{Name: string(Skald), Cost: ledger.NewCost(1, 1, 0, 1), Kind: GoodClansman, Prereqs: []Structure{}},
		{Name: string(Viking), Cost: ledger.NewCost(0, 1, 1, 1), Kind: GoodClansman, Prereqs: []Structure{}},
		{Name: GoodAttack, Cost: ledger.NewCost(0, 1, 1, 1), Kind: GoodAction, Prereqs: []Structure{}},
		{Name: GoodOffering, Cost: ledger.NewCost(1, 0, 1, 1), Kind: GoodAction, Prereqs: []Structure{}},
		{Name: string(Longboat), Cost: ledger.NewCost(1, 1, 1, 1), Kind: GoodStructure, Prereqs: []Structure{}},
	}
}

func newTrack(name string, reset bool, costs ...int) SharedTrack {
	slots := make([]BuySlot, len(costs))
	for i, c := range costs {
		slots[i] = BuySlot{Cost: c, Available: i == 0}
	}
	return SharedTrack{Name: name, Slots: slots, Reset: reset}
}

// DefaultSharedTracks returns the track templates.
func DefaultSharedTracks() []SharedTrack {
	return []SharedTrack{
		newTrack(TrackTradingPost, true, 1, 2, 3, 4),
		newTrack(TrackTribute, true, 1, 2, 3, 4),
		newTrack(TrackEndGame, false, 1, 1, 2, 2),
		newTrack(TrackLeadViking, true, 1, 2, 3, 4),
	}
}

// DefaultOmens returns the omen master deck: ten common, five rare, five war
// and the chaos card.
func DefaultOmens() []OmenKind {
	omens := make([]OmenKind, 0, 21)
	for i := 0; i < 10; i++ {
		omens = append(omens, OmenCommon)
	}
	for i := 0; i < 5; i++ {
		omens = append(omens, OmenRare)
	}
	for i := 0; i < 5; i++ {
		omens = append(omens, OmenWar)
	}
	return append(omens, OmenChaos)
}

// DefaultOfferings returns the offering master deck.
func DefaultOfferings() []OfferingKind {
	return []OfferingKind{
		OfferingSmite,
		OfferingBounty,
		OfferingScourge,
		OfferingHonor,
		OfferingFortune,
		OfferingValkyrie,
	}
}

// NewGame returns an open game with the standard catalog and the creator seated.
func NewGame(id, name string, creator User, now time.Time) *Game {
	return &Game{
		ID:           id,
		Name:         name,
		Creator:      creator,
		CreatedAt:    now,
		Status:       StatusOpen,
		Players:      []User{creator},
		Marketplace:  DefaultMarketplace(),
		SharedTracks: DefaultSharedTracks(),
		Omens:        DefaultOmens(),
		Offerings:    DefaultOfferings(),
		Commands:     []Command{},
	}
}
