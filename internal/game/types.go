package game

import (
	"time"

	"github.com/vikinglords/vikinglords-server/internal/game/ledger"
	"github.com/vikinglords/vikinglords-server/internal/game/rules"
)

// Status is the lifecycle state of a game.
type Status string

const (
	StatusOpen     Status = "open"
	StatusStarted  Status = "started"
	StatusComplete Status = "complete"
)

// User identifies a person seated at a game.
type User struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// Structure is a building a player can own.
type Structure string

const (
	Tavern   Structure = "tavern"
	MeadHall Structure = "meadhall"
	Longboat Structure = "longboat"
)

// AllStructures lists every structure kind.
var AllStructures = []Structure{Tavern, MeadHall, Longboat}

// Valid reports whether s is a known structure.
func (s Structure) Valid() bool {
	switch s {
	case Tavern, MeadHall, Longboat:
		return true
	}
	return false
}

// Clansman is a unit a player can recruit.
type Clansman string

const (
	Skald  Clansman = "skald"
	Viking Clansman = "viking"
)

// AllClansmen lists every clansman kind.
var AllClansmen = []Clansman{Skald, Viking}

// Valid reports whether c is a known clansman.
func (c Clansman) Valid() bool {
	return c == Skald || c == Viking
}

// StructureCounts maps structures to a count.
type StructureCounts map[Structure]int

func newStructureCounts() StructureCounts {
	counts := make(StructureCounts, len(AllStructures))
	for _, s := range AllStructures {
		counts[s] = 0
	}
	return counts
}

// Clone returns an independent copy.
func (c StructureCounts) Clone() StructureCounts {
	out := make(StructureCounts, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// ClansmanCounts maps clansmen to a count.
type ClansmanCounts map[Clansman]int

func newClansmanCounts() ClansmanCounts {
	return ClansmanCounts{Skald: 0, Viking: 0}
}

// Clone returns an independent copy.
func (c ClansmanCounts) Clone() ClansmanCounts {
	out := make(ClansmanCounts, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// GoodKind classifies marketplace goods.
type GoodKind string

const (
	GoodStructure GoodKind = "structure"
	GoodClansman  GoodKind = "clansman"
	GoodAction    GoodKind = "action"
)

// Action goods.
const (
	GoodAttack   = "attack"
	GoodOffering = "offering"
)

// Good is a marketplace item. Prerequisite structures are consumed on purchase.
type Good struct {
	Name    string      `json:"name"`
	Cost    ledger.Cost `json:"cost"`
	Kind    GoodKind    `json:"type"`
	Prereqs []Structure `json:"prereqs"`
}

// Clone returns an independent copy.
func (g Good) Clone() Good {
	g.Cost = g.Cost.Clone()
	g.Prereqs = append([]Structure(nil), g.Prereqs...)
	return g
}

// OmenKind is a card of the omen deck.
type OmenKind string

const (
	OmenCommon OmenKind = "common"
	OmenRare   OmenKind = "rare"
	OmenWar    OmenKind = "war"
	OmenChaos  OmenKind = "chaos"
)

// OfferingKind is a card of the offering deck.
type OfferingKind string

const (
	OfferingSmite    OfferingKind = "smite"
	OfferingBounty   OfferingKind = "bounty"
	OfferingScourge  OfferingKind = "scourge"
	OfferingHonor    OfferingKind = "honor"
	OfferingFortune  OfferingKind = "fortune"
	OfferingValkyrie OfferingKind = "valkyrie"
)

// Shared track names.
const (
	TrackTradingPost = "Trading Post"
	TrackTribute     = "Tribute to Jarl"
	TrackEndGame     = "End Game"
	TrackLeadViking  = "Lead Viking"
)

// BuySlot is one rung of a shared track.
type BuySlot struct {
	Bought    bool `json:"bought"`
	Available bool `json:"available"`
	Cost      int  `json:"cost"`
}

// SharedTrack is a sequential purchase ladder shared by every player.
type SharedTrack struct {
	Name  string    `json:"name"`
	Slots []BuySlot `json:"buySlots"`
	Reset bool      `json:"reset"`
}

// Clone returns an independent copy.
func (t SharedTrack) Clone() SharedTrack {
	t.Slots = append([]BuySlot(nil), t.Slots...)
	return t
}

// ResourcePicks are the personal resources chosen during setup.
type ResourcePicks struct {
	Common ledger.Resource `json:"common"`
	Rare   ledger.Resource `json:"rare"`
}

// PlayerState is one seat of a started game.
type PlayerState struct {
	User       User `json:"user"`
	LeadViking bool `json:"leadViking"`
	LastViking bool `json:"lastViking"`

	Stash         ledger.Stash    `json:"stash"`
	Structures    StructureCounts `json:"structures"`
	Purchased     StructureCounts `json:"purchased"`
	StructureUses StructureCounts `json:"structureUses"`
	Clansmen      ClansmanCounts  `json:"clansmen"`
	ResourcePicks ResourcePicks   `json:"resourcePicks"`

	// raid
	Raiding            bool   `json:"raiding"`
	DecidingWhoToRaid  bool   `json:"decidingWhoToRaid"`
	DecidingHowToRaid  bool   `json:"decidingHowToRaid"`
	RaidTargetUserID   string `json:"raidTargetUserId"`
	RaidTakeNumLeft    int    `json:"raidTakeNumLeft"`
	WaitingForDefender bool   `json:"waitingForDefender"`
	DefendingBurn      bool   `json:"defendingBurn"`
	ChoosingWhatToBurn bool   `json:"choosingWhatToBurn"`

	// offerings
	CollectingBounty       bool   `json:"collectingBounty"`
	Smiting                bool   `json:"smiting"`
	DecidingWhoToSmite     bool   `json:"decidingWhoToSmite"`
	SmiteTargetUserID      string `json:"smiteTargetUserId"`
	Valkyring              bool   `json:"valkyring"`
	DecidingWhoToValkyrie  bool   `json:"decidingWhoToValkyrie"`
	ValkyrieTargetUserID   string `json:"valkyrieTargetUserId"`
	ResourcesLeftToScourge int    `json:"resourcesLeftToScourge"`

	// economy
	ResourcesLeftToConvert int  `json:"resourcesLeftToConvert"`
	UsingTradingPost       bool `json:"usingTradingPost"`
	UsingTradingPostStep1  bool `json:"usingTradingPostStep1"`
	GivingSkald            bool `json:"givingSkald"`

	WeregeldOwed []string `json:"weregeldOwed"`
}

func newPlayerState(u User) *PlayerState {
	return &PlayerState{
		User:          u,
		Stash:         ledger.NewStash(),
		Structures:    newStructureCounts(),
		Purchased:     newStructureCounts(),
		StructureUses: newStructureCounts(),
		Clansmen:      newClansmanCounts(),
		WeregeldOwed:  []string{},
	}
}

// Clone returns a deep copy.
func (p *PlayerState) Clone() *PlayerState {
	if p == nil {
		return nil
	}
	out := *p
	out.Stash = p.Stash.Clone()
	out.Structures = p.Structures.Clone()
	out.Purchased = p.Purchased.Clone()
	out.StructureUses = p.StructureUses.Clone()
	out.Clansmen = p.Clansmen.Clone()
	out.WeregeldOwed = append([]string{}, p.WeregeldOwed...)
	return &out
}

// Busy reports whether the player has an interaction that must be resolved
// before buying or ending the turn.
func (p *PlayerState) Busy() bool {
	return p.ResourcesLeftToScourge > 0 ||
		p.ResourcesLeftToConvert > 0 ||
		p.Valkyring ||
		p.Smiting ||
		p.CollectingBounty ||
		p.DefendingBurn ||
		p.Raiding ||
		p.GivingSkald ||
		p.UsingTradingPost
}

func (p *PlayerState) closeRaid() {
	p.Raiding = false
	p.DecidingWhoToRaid = false
	p.DecidingHowToRaid = false
	p.RaidTargetUserID = ""
	p.RaidTakeNumLeft = 0
	p.WaitingForDefender = false
	p.ChoosingWhatToBurn = false
}

func (p *PlayerState) clearRaidFlags() {
	p.closeRaid()
	p.DefendingBurn = false
}

func (p *PlayerState) clearOfferingFlags() {
	p.CollectingBounty = false
	p.Smiting = false
	p.DecidingWhoToSmite = false
	p.SmiteTargetUserID = ""
	p.Valkyring = false
	p.DecidingWhoToValkyrie = false
	p.ValkyrieTargetUserID = ""
	p.ResourcesLeftToScourge = 0
}

// CurrentState is the mutable board of a started game.
type CurrentState struct {
	Step               rules.Step        `json:"step"`
	Round              int               `json:"round"`
	Players            []*PlayerState    `json:"players"`
	CurrentPlayerIndex int               `json:"currentPlayerIndex"`
	AvailableCommon    []ledger.Resource `json:"availableCommonResources"`
	AvailableRare      []ledger.Resource `json:"availableRareResources"`
	SharedTracks       []SharedTrack     `json:"sharedTracks"`
	OmenDeck           []OmenKind        `json:"omenDeck"`
	PlayedOmens        []OmenKind        `json:"playedOmens"`
	OfferingDeck       []OfferingKind    `json:"offeringDeck"`
	PlayedOfferings    []OfferingKind    `json:"playedOfferings"`
}

// Clone returns a deep copy.
func (s *CurrentState) Clone() *CurrentState {
	if s == nil {
		return nil
	}
	out := *s
	out.Players = make([]*PlayerState, len(s.Players))
	for i, p := range s.Players {
		out.Players[i] = p.Clone()
	}
	out.AvailableCommon = append([]ledger.Resource{}, s.AvailableCommon...)
	out.AvailableRare = append([]ledger.Resource{}, s.AvailableRare...)
	out.SharedTracks = make([]SharedTrack, len(s.SharedTracks))
	for i, t := range s.SharedTracks {
		out.SharedTracks[i] = t.Clone()
	}
	out.OmenDeck = append([]OmenKind{}, s.OmenDeck...)
	out.PlayedOmens = append([]OmenKind{}, s.PlayedOmens...)
	out.OfferingDeck = append([]OfferingKind{}, s.OfferingDeck...)
	out.PlayedOfferings = append([]OfferingKind{}, s.PlayedOfferings...)
	return &out
}

// CurrentPlayer returns the turn holder.
func (s *CurrentState) CurrentPlayer() *PlayerState {
	return s.Players[s.CurrentPlayerIndex]
}

// Player returns the seat of userID, or nil.
func (s *CurrentState) Player(userID string) *PlayerState {
	for _, p := range s.Players {
		if p.User.ID == userID {
			return p
		}
	}
	return nil
}

func (s *CurrentState) leadIndex() int {
	for i, p := range s.Players {
		if p.LeadViking {
			return i
		}
	}
	return 0
}

func (s *CurrentState) track(name string) *SharedTrack {
	for i := range s.SharedTracks {
		if s.SharedTracks[i].Name == name {
			return &s.SharedTracks[i]
		}
	}
	return nil
}

// Game is the persisted document of one match.
type Game struct {
	ID           string         `json:"_id"`
	Name         string         `json:"name"`
	Creator      User           `json:"creator"`
	CreatedAt    time.Time      `json:"createdAt"`
	Status       Status         `json:"status"`
	Players      []User         `json:"players"`
	Marketplace  []Good         `json:"marketplace"`
	SharedTracks []SharedTrack  `json:"sharedTracks"`
	Omens        []OmenKind     `json:"omens"`
	Offerings    []OfferingKind `json:"offerings"`
	CurrentState *CurrentState  `json:"currentState,omitempty"`
	Commands     []Command      `json:"commands"`
}

// Clone returns a deep copy.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	out := *g
	out.Players = append([]User{}, g.Players...)
	out.Marketplace = make([]Good, len(g.Marketplace))
	for i, good := range g.Marketplace {
		out.Marketplace[i] = good.Clone()
	}
	out.SharedTracks = make([]SharedTrack, len(g.SharedTracks))
	for i, t := range g.SharedTracks {
		out.SharedTracks[i] = t.Clone()
	}
	out.Omens = append([]OmenKind{}, g.Omens...)
	out.Offerings = append([]OfferingKind{}, g.Offerings...)
	out.CurrentState = g.CurrentState.Clone()
	out.Commands = make([]Command, len(g.Commands))
	for i, c := range g.Commands {
		out.Commands[i] = c.Clone()
	}
	return &out
}

// HasPlayer reports whether userID is seated.
func (g *Game) HasPlayer(userID string) bool {
	for _, u := range g.Players {
		if u.ID == userID {
			return true
		}
	}
	return false
}

// Good returns the marketplace entry called name.
func (g *Game) Good(name string) (Good, bool) {
	for _, good := range g.Marketplace {
		if good.Name == name {
			return good, true
		}
	}
	return Good{}, false
}

func (g *Game) trackTemplate(name string) (SharedTrack, bool) {
	for _, t := range g.SharedTracks {
		if t.Name == name {
			return t, true
		}
	}
	return SharedTrack{}, false
}
